package selection

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/examprep-api/internal/domain/entity"
	"github.com/yourusername/examprep-api/internal/domain/repository"
	apperrors "github.com/yourusername/examprep-api/internal/pkg/errors"
	"github.com/yourusername/examprep-api/pkg/monitoring"
)

const globalStatsCacheKey = "selection:global_stats"

func domainsCacheKey(examType entity.ExamType) string {
	return fmt.Sprintf("selection:domains:%s", examType)
}

// QuestionSelector подбирает вопросы для практики по выбранной эвристике
type QuestionSelector struct {
	config    *Config
	questions QuestionSource
	answers   AnswerSource
	cache     repository.CacheRepository // может быть nil
	rng       randomSource
}

// NewQuestionSelector создаёт новый селектор. cache может быть nil.
func NewQuestionSelector(config *Config, questions QuestionSource, answers AnswerSource, cache repository.CacheRepository) *QuestionSelector {
	if config == nil {
		config = DefaultConfig()
	}
	return &QuestionSelector{
		config:    config,
		questions: questions,
		answers:   answers,
		cache:     cache,
		rng:       newLockedRand(),
	}
}

// scoredQuestion - вопрос с баллом приоритета
type scoredQuestion struct {
	question entity.Question
	score    float64
}

// SelectQuestions возвращает до req.Count вопросов, наиболее подходящих под режим, в случайном порядке.
// Ошибок не возвращает: при сбое загрузки или пустом пуле результат пуст, а Reason объясняет причину.
func (s *QuestionSelector) SelectQuestions(ctx context.Context, req Request) *Result {
	start := time.Now()
	mode, known := entity.ParseSelectionMode(string(req.Mode))
	if !known && req.Mode != "" {
		log.Printf("[Selector] Unknown mode %q for user %s, falling back to random", req.Mode, req.UserID)
	}
	defer func() {
		monitoring.ObserveSelection(string(mode), time.Since(start))
	}()

	count := req.Count
	if count < 0 {
		count = 0
	}

	var (
		candidates  []entity.Question
		history     []entity.AnswerRecord
		globalStats []entity.QuestionStat
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		candidates, err = s.questions.FindCandidates(gctx, req.ExamType, req.Domain)
		if err != nil {
			return fmt.Errorf("load candidates: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		history, err = s.answers.ListUserHistory(gctx, req.UserID)
		if err != nil {
			return fmt.Errorf("load history of user %s: %w", req.UserID, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		globalStats, err = s.loadGlobalStats(gctx)
		if err != nil {
			return fmt.Errorf("load global stats: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("[Selector] ERROR: selection for user %s (exam=%s mode=%s domain=%q) failed: %v",
			req.UserID, req.ExamType, mode, req.Domain, err)
		return s.empty(ReasonFetchFailed)
	}

	if len(candidates) == 0 {
		log.Printf("[Selector] No candidates for exam=%s domain=%q", req.ExamType, req.Domain)
		return s.empty(ReasonNoCandidates)
	}

	profile := buildAnswerProfile(history, s.config.RecentWindow)
	global := indexGlobalStats(globalStats)

	scored := make([]scoredQuestion, len(candidates))
	for i, q := range candidates {
		scored[i] = scoredQuestion{
			question: q,
			score:    s.score(mode, q, profile, global),
		}
	}

	// Стабильная сортировка: при равных баллах сохраняется порядок пула (от новых к старым)
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	if count > len(scored) {
		count = len(scored)
	}
	selected := make([]entity.Question, count)
	for i := 0; i < count; i++ {
		selected[i] = scored[i].question
	}

	s.rng.Shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})

	log.Printf("[Selector] User %s: selected %d/%d questions (exam=%s mode=%s domain=%q history=%d)",
		req.UserID, len(selected), len(candidates), req.ExamType, mode, req.Domain, len(history))

	return &Result{Questions: selected}
}

func (s *QuestionSelector) score(mode entity.SelectionMode, q entity.Question, profile *answerProfile, global map[uuid.UUID]entity.QuestionStat) float64 {
	switch mode {
	case entity.SelectionModeUnanswered:
		return scoreUnanswered(s.config, profile.attempts(q.ID))
	case entity.SelectionModeWeakPoints:
		return scoreWeakPoints(s.config, profile.recent[q.ID])
	case entity.SelectionModeHardQuestions:
		return scoreHard(s.config, global[q.ID])
	default:
		return scoreRandom(s.config, s.rng, profile.attempts(q.ID))
	}
}

func (s *QuestionSelector) empty(reason EmptyReason) *Result {
	monitoring.CountEmptySelection(string(reason))
	return &Result{Questions: []entity.Question{}, Reason: reason}
}

// loadGlobalStats читает глобальную статистику, используя кеш, если он включен.
// Ошибки кеша не фатальны: статистика берется из БД.
func (s *QuestionSelector) loadGlobalStats(ctx context.Context) ([]entity.QuestionStat, error) {
	useCache := s.cache != nil && s.config.GlobalStatsCacheTTL > 0
	if useCache {
		var cached []entity.QuestionStat
		err := s.cache.GetJSON(globalStatsCacheKey, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[Selector] WARNING: global stats cache read failed: %v", err)
		}
	}

	stats, err := s.answers.GetGlobalQuestionStats(ctx)
	if err != nil {
		return nil, err
	}

	if useCache {
		if err := s.cache.SetJSON(globalStatsCacheKey, stats, s.config.GlobalStatsCacheTTL); err != nil {
			log.Printf("[Selector] WARNING: global stats cache write failed: %v", err)
		}
	}
	return stats, nil
}

// GetExamDomains возвращает отсортированный список уникальных доменов.
// При ошибке запроса возвращается пустой список.
func (s *QuestionSelector) GetExamDomains(ctx context.Context, examType entity.ExamType) []string {
	useCache := s.cache != nil && s.config.DomainsCacheTTL > 0
	key := domainsCacheKey(examType)
	if useCache {
		var cached []string
		err := s.cache.GetJSON(key, &cached)
		if err == nil {
			return cached
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[Selector] WARNING: domains cache read failed: %v", err)
		}
	}

	raw, err := s.questions.ListDomains(ctx, examType)
	if err != nil {
		log.Printf("[Selector] ERROR: failed to list domains for exam=%s: %v", examType, err)
		return []string{}
	}

	seen := make(map[string]struct{}, len(raw))
	domains := make([]string, 0, len(raw))
	for _, d := range raw {
		if d == "" {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		domains = append(domains, d)
	}
	sort.Strings(domains)

	if useCache {
		if err := s.cache.SetJSON(key, domains, s.config.DomainsCacheTTL); err != nil {
			log.Printf("[Selector] WARNING: domains cache write failed: %v", err)
		}
	}
	return domains
}

// InvalidateDomains сбрасывает кеш доменов после изменения банка вопросов
func (s *QuestionSelector) InvalidateDomains() {
	if s.cache == nil {
		return
	}
	err := s.cache.Delete(
		domainsCacheKey(entity.ExamTypeENCOR),
		domainsCacheKey(entity.ExamTypeENARSI),
		domainsCacheKey(entity.ExamTypeBoth),
	)
	if err != nil {
		log.Printf("[Selector] WARNING: failed to invalidate domains cache: %v", err)
	}
}
