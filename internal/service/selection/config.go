package selection

import "time"

// Config содержит настройки эвристик подбора вопросов
type Config struct {
	// ScoreScale - шкала, в которой выражаются баллы weak_points и hard_questions
	ScoreScale float64

	// RecentWindow - сколько последних ответов на вопрос учитывать в weak_points
	RecentWindow int

	// WeakAccuracyThreshold - точность, при которой (и ниже) вопрос считается слабым местом
	WeakAccuracyThreshold float64

	// WeakRecentMissBonus - надбавка, если последний ответ на вопрос был неверным
	WeakRecentMissBonus float64

	// HardMinGlobalAttempts - минимум попыток всех пользователей, чтобы оценивать сложность
	HardMinGlobalAttempts int

	// HardAccuracyThreshold - глобальная точность, при которой (и ниже) вопрос считается сложным
	HardAccuracyThreshold float64

	// UnansweredBoost - балл для вопроса без попыток в режиме unanswered
	UnansweredBoost float64

	// RandomSpread - ширина равномерного шума в режиме random
	RandomSpread float64

	// RandomNoveltyBonus - надбавка в режиме random за еще не виденный вопрос
	RandomNoveltyBonus float64

	// GlobalStatsCacheTTL - время жизни кеша глобальной статистики. 0 отключает кеш.
	GlobalStatsCacheTTL time.Duration

	// DomainsCacheTTL - время жизни кеша списка доменов. 0 отключает кеш.
	DomainsCacheTTL time.Duration
}

// DefaultConfig возвращает настройки по умолчанию
func DefaultConfig() *Config {
	return &Config{
		ScoreScale:            1000,
		RecentWindow:          5,
		WeakAccuracyThreshold: 0.7,
		WeakRecentMissBonus:   500,
		HardMinGlobalAttempts: 3,
		HardAccuracyThreshold: 0.5,
		UnansweredBoost:       1000,
		RandomSpread:          100,
		RandomNoveltyBonus:    50,
	}
}
