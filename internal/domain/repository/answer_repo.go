package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yourusername/examprep-api/internal/domain/entity"
	"gorm.io/datatypes"
)

// AnswerRepository определяет методы для работы с историей ответов
type AnswerRepository interface {
	// Save сохраняет ответ. Повторный ответ на вопрос сессии возвращает ErrDuplicateAnswer.
	Save(ctx context.Context, answer *entity.AnswerRecord) error
	// ListUserHistory возвращает все ответы пользователя, от новых к старым
	ListUserHistory(ctx context.Context, userID uuid.UUID) ([]entity.AnswerRecord, error)
	// GetGlobalQuestionStats агрегирует попытки всех пользователей по вопросам
	GetGlobalQuestionStats(ctx context.Context) ([]entity.QuestionStat, error)
	// ListUserAnswers возвращает страницу ответов пользователя вместе с вопросами
	ListUserAnswers(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.AnswerRecord, int64, error)
	ListSessionAnswers(ctx context.Context, sessionID uuid.UUID) ([]entity.AnswerRecord, error)
	CountSessionCorrect(ctx context.Context, sessionID uuid.UUID) (int64, error)
	// GetUserDomainStats группирует ответы пользователя по экзамену и домену
	GetUserDomainStats(ctx context.Context, userID uuid.UUID, examType entity.ExamType) ([]entity.DomainStat, error)
	CountAll(ctx context.Context) (int64, error)
}

// AnalyticsRepository предоставляет агрегаты, рассчитываемые на стороне БД
type AnalyticsRepository interface {
	// GetStudentAnalytics вызывает функцию get_student_analytics и возвращает ее JSON как есть
	GetStudentAnalytics(ctx context.Context, userID uuid.UUID) (datatypes.JSON, error)
}
