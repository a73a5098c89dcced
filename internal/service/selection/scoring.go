package selection

import (
	"sort"

	"github.com/google/uuid"

	"github.com/yourusername/examprep-api/internal/domain/entity"
)

// answerProfile - статистика пользователя по вопросам, построенная из истории ответов
type answerProfile struct {
	// lifetime - все попытки пользователя по вопросу
	lifetime map[uuid.UUID]entity.QuestionStat
	// recent - исходы последних попыток (true = верно), от новых к старым
	recent map[uuid.UUID][]bool
}

// buildAnswerProfile агрегирует историю. Порядок входа не важен: записи сортируются по answered_at.
func buildAnswerProfile(history []entity.AnswerRecord, window int) *answerProfile {
	ordered := make([]entity.AnswerRecord, len(history))
	copy(ordered, history)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].AnsweredAt.After(ordered[j].AnsweredAt)
	})

	profile := &answerProfile{
		lifetime: make(map[uuid.UUID]entity.QuestionStat),
		recent:   make(map[uuid.UUID][]bool),
	}
	for _, rec := range ordered {
		stat := profile.lifetime[rec.QuestionID]
		stat.QuestionID = rec.QuestionID
		stat.Attempts++
		if rec.IsCorrect {
			stat.Correct++
		}
		profile.lifetime[rec.QuestionID] = stat

		if len(profile.recent[rec.QuestionID]) < window {
			profile.recent[rec.QuestionID] = append(profile.recent[rec.QuestionID], rec.IsCorrect)
		}
	}
	return profile
}

func (p *answerProfile) attempts(questionID uuid.UUID) int {
	return p.lifetime[questionID].Attempts
}

func indexGlobalStats(stats []entity.QuestionStat) map[uuid.UUID]entity.QuestionStat {
	index := make(map[uuid.UUID]entity.QuestionStat, len(stats))
	for _, s := range stats {
		index[s.QuestionID] = s
	}
	return index
}

// scoreUnanswered отдает приоритет вопросам, на которые пользователь никогда не отвечал
func scoreUnanswered(cfg *Config, attempts int) float64 {
	if attempts == 0 {
		return cfg.UnansweredBoost
	}
	return 0
}

// scoreWeakPoints оценивает вопрос по последним исходам пользователя (от новых к старым).
// Низкая недавняя точность и надбавка за последний промах складываются.
func scoreWeakPoints(cfg *Config, recent []bool) float64 {
	if len(recent) == 0 {
		return 0
	}

	correct := 0
	for _, ok := range recent {
		if ok {
			correct++
		}
	}
	accuracy := float64(correct) / float64(len(recent))

	score := 0.0
	if accuracy <= cfg.WeakAccuracyThreshold {
		score += cfg.ScoreScale - accuracy*cfg.ScoreScale
	}
	if !recent[0] {
		score += cfg.WeakRecentMissBonus
	}
	return score
}

// scoreHard оценивает вопрос по глобальной точности. До набора минимума попыток вопрос не оценивается.
func scoreHard(cfg *Config, global entity.QuestionStat) float64 {
	if global.Attempts < cfg.HardMinGlobalAttempts {
		return 0
	}
	accuracy := global.Accuracy()
	if accuracy <= cfg.HardAccuracyThreshold {
		return cfg.ScoreScale - accuracy*cfg.ScoreScale
	}
	return 0
}

// scoreRandom - равномерный шум с надбавкой за новизну
func scoreRandom(cfg *Config, rng randomSource, attempts int) float64 {
	score := rng.Float64() * cfg.RandomSpread
	if attempts == 0 {
		score += cfg.RandomNoveltyBonus
	}
	return score
}
