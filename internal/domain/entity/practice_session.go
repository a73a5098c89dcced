package entity

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SelectionMode определяет эвристику подбора вопросов
type SelectionMode string

const (
	SelectionModeRandom        SelectionMode = "random"
	SelectionModeUnanswered    SelectionMode = "unanswered"
	SelectionModeWeakPoints    SelectionMode = "weak_points"
	SelectionModeHardQuestions SelectionMode = "hard_questions"
)

// ParseSelectionMode нормализует режим. Неизвестный режим трактуется как random, второй результат false.
func ParseSelectionMode(s string) (SelectionMode, bool) {
	m := SelectionMode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case SelectionModeRandom, SelectionModeUnanswered, SelectionModeWeakPoints, SelectionModeHardQuestions:
		return m, true
	}
	return SelectionModeRandom, false
}

// Статусы практической сессии
const (
	SessionStatusInProgress = "in_progress"
	SessionStatusCompleted  = "completed"
	SessionStatusExpired    = "expired"
)

// MaxSessionScore - максимальный балл за сессию, по шкале Cisco
const MaxSessionScore = 1000

// PracticeSession - практический тест пользователя с зафиксированным набором вопросов
type PracticeSession struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID     `gorm:"type:uuid;not null;index" json:"user_id"`
	ExamType      ExamType      `gorm:"size:10;not null" json:"exam_type"`
	Mode          SelectionMode `gorm:"size:20;not null" json:"mode"`
	Domain        string        `gorm:"size:100;not null;default:''" json:"domain"`
	QuestionIDs   StringArray   `gorm:"type:jsonb;not null" json:"question_ids"`
	QuestionCount int           `gorm:"not null" json:"question_count"`
	TimeLimitSec  int           `gorm:"not null" json:"time_limit_sec"`
	Status        string        `gorm:"size:20;not null;default:'in_progress';index" json:"status"`
	StartedAt     time.Time     `gorm:"not null" json:"started_at"`
	ExpiresAt     time.Time     `gorm:"not null;index" json:"expires_at"`
	FinishedAt    *time.Time    `json:"finished_at,omitempty"`
	CorrectCount  int           `gorm:"not null;default:0" json:"correct_count"`
	Score         int           `gorm:"not null;default:0" json:"score"`
	Passed        bool          `gorm:"not null;default:false" json:"passed"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (PracticeSession) TableName() string {
	return "practice_sessions"
}

// IsInProgress проверяет, активна ли сессия
func (s *PracticeSession) IsInProgress() bool {
	return s.Status == SessionStatusInProgress
}

// IsOverdue возвращает true, если время активной сессии истекло
func (s *PracticeSession) IsOverdue(now time.Time) bool {
	return s.IsInProgress() && !now.Before(s.ExpiresAt)
}

// RemainingSeconds возвращает оставшееся время в секундах (не меньше 0)
func (s *PracticeSession) RemainingSeconds(now time.Time) int {
	if !s.IsInProgress() {
		return 0
	}
	left := s.ExpiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

// ContainsQuestion проверяет, входит ли вопрос в сессию
func (s *PracticeSession) ContainsQuestion(questionID uuid.UUID) bool {
	id := questionID.String()
	for _, qid := range s.QuestionIDs {
		if qid == id {
			return true
		}
	}
	return false
}

// QuestionUUIDs возвращает ID вопросов в порядке сессии, пропуская невалидные значения
func (s *PracticeSession) QuestionUUIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s.QuestionIDs))
	for _, raw := range s.QuestionIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// Finalize переводит сессию в конечный статус и рассчитывает итоговый балл
func (s *PracticeSession) Finalize(status string, correct int, passingScore int, now time.Time) {
	s.Status = status
	s.CorrectCount = correct
	s.Score = CalculateSessionScore(correct, s.QuestionCount)
	s.Passed = s.Score >= passingScore
	finished := now
	s.FinishedAt = &finished
}

// CalculateSessionScore переводит число правильных ответов в шкалу 0..1000
func CalculateSessionScore(correct, total int) int {
	if total <= 0 || correct <= 0 {
		return 0
	}
	if correct > total {
		correct = total
	}
	return int(math.Round(float64(correct) / float64(total) * MaxSessionScore))
}
