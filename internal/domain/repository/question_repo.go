package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yourusername/examprep-api/internal/domain/entity"
)

// QuestionFilter задает фильтры для списка вопросов в админке и экспорте.
// Пустые поля не фильтруют.
type QuestionFilter struct {
	ExamType     entity.ExamType
	Domain       string
	QuestionType entity.QuestionType
	Search       string
}

// QuestionRepository определяет методы для работы с вопросами
type QuestionRepository interface {
	Create(ctx context.Context, question *entity.Question) error
	// CreateBatch создает все вопросы в одной транзакции
	CreateBatch(ctx context.Context, questions []entity.Question) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Question, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Question, error)
	// Update обновляет поля вопроса и полностью заменяет варианты ответа
	Update(ctx context.Context, question *entity.Question) error
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateImageURL(ctx context.Context, id uuid.UUID, imageURL string) error
	List(ctx context.Context, filter QuestionFilter, limit, offset int) ([]entity.Question, int64, error)
	ListAll(ctx context.Context, filter QuestionFilter) ([]entity.Question, error)

	// FindCandidates возвращает пул кандидатов для подбора (created_at DESC, с вариантами).
	// ExamTypeBoth отключает фильтр по экзамену, пустой domain - фильтр по домену.
	FindCandidates(ctx context.Context, examType entity.ExamType, domain string) ([]entity.Question, error)
	// ListDomains возвращает домены вопросов (возможны повторы и любой порядок)
	ListDomains(ctx context.Context, examType entity.ExamType) ([]string, error)

	// CountGrouped возвращает количество вопросов, сгруппированное по колонке exam_type, domain или question_type
	CountGrouped(ctx context.Context, column string) ([]entity.GroupCount, error)
	Count(ctx context.Context) (int64, error)
}
