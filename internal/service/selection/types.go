package selection

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/examprep-api/internal/domain/entity"
)

// Request описывает параметры подбора
type Request struct {
	UserID   uuid.UUID
	ExamType entity.ExamType
	Mode     entity.SelectionMode
	Domain   string
	Count    int
}

// EmptyReason объясняет, почему результат пуст
type EmptyReason string

const (
	ReasonNone         EmptyReason = ""
	ReasonNoCandidates EmptyReason = "no_candidates"
	ReasonFetchFailed  EmptyReason = "fetch_failed"
)

// Result - упорядоченный набор вопросов и причина пустого результата
type Result struct {
	Questions []entity.Question
	Reason    EmptyReason
}

// IsEmpty возвращает true, если подобрать ничего не удалось
func (r *Result) IsEmpty() bool {
	return len(r.Questions) == 0
}

// QuestionSource - источник вопросов для подбора
type QuestionSource interface {
	FindCandidates(ctx context.Context, examType entity.ExamType, domain string) ([]entity.Question, error)
	ListDomains(ctx context.Context, examType entity.ExamType) ([]string, error)
}

// AnswerSource - источник истории ответов
type AnswerSource interface {
	ListUserHistory(ctx context.Context, userID uuid.UUID) ([]entity.AnswerRecord, error)
	GetGlobalQuestionStats(ctx context.Context) ([]entity.QuestionStat, error)
}

// randomSource - источник случайности. Реализация должна быть потокобезопасной.
type randomSource interface {
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

// lockedRand защищает *rand.Rand мьютексом
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newLockedRand() *lockedRand {
	return &lockedRand{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.r.Shuffle(n, swap)
}
