package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/examprep-api/internal/domain/entity"
	"github.com/yourusername/examprep-api/internal/domain/repository"
	apperrors "github.com/yourusername/examprep-api/internal/pkg/errors"
)

// Колонки, по которым разрешена группировка на дашборде
var groupableQuestionColumns = map[string]bool{
	"exam_type":     true,
	"domain":        true,
	"question_type": true,
}

// QuestionRepo реализует repository.QuestionRepository
type QuestionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo создает новый репозиторий вопросов
func NewQuestionRepo(db *gorm.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

func orderedOptions(db *gorm.DB) *gorm.DB {
	return db.Order("answer_options.position ASC, answer_options.id ASC")
}

// Create создает новый вопрос вместе с вариантами ответа
func (r *QuestionRepo) Create(ctx context.Context, question *entity.Question) error {
	return r.db.WithContext(ctx).Create(question).Error
}

// CreateBatch создает пакет вопросов в одной транзакции
func (r *QuestionRepo) CreateBatch(ctx context.Context, questions []entity.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SET CLIENT_ENCODING TO 'UTF8'").Error; err != nil {
			return err
		}
		return tx.Create(&questions).Error
	})
}

// GetByID возвращает вопрос по ID вместе с вариантами
func (r *QuestionRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Question, error) {
	var question entity.Question
	err := r.db.WithContext(ctx).Preload("Options", orderedOptions).First(&question, "id = ?", id).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &question, nil
}

// GetByIDs возвращает вопросы по списку ID. Порядок результата не гарантирован.
func (r *QuestionRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Question, error) {
	if len(ids) == 0 {
		return []entity.Question{}, nil
	}
	var questions []entity.Question
	err := r.db.WithContext(ctx).Preload("Options", orderedOptions).Where("id IN ?", ids).Find(&questions).Error
	return questions, err
}

// Update обновляет вопрос и заменяет его варианты ответа
func (r *QuestionRepo) Update(ctx context.Context, question *entity.Question) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&entity.Question{}).Where("id = ?", question.ID).Updates(map[string]interface{}{
			"exam_type":        question.ExamType,
			"domain":           question.Domain,
			"question_type":    question.QuestionType,
			"text":             question.Text,
			"explanation":      question.Explanation,
			"accepted_answers": question.AcceptedAnswers,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrNotFound
		}

		if err := tx.Where("question_id = ?", question.ID).Delete(&entity.AnswerOption{}).Error; err != nil {
			return fmt.Errorf("delete options of question %s: %w", question.ID, err)
		}
		if len(question.Options) == 0 {
			return nil
		}
		for i := range question.Options {
			question.Options[i].ID = 0
			question.Options[i].QuestionID = question.ID
		}
		return tx.Create(&question.Options).Error
	})
}

// Delete удаляет вопрос, варианты удаляются каскадно
func (r *QuestionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&entity.Question{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// UpdateImageURL сохраняет ссылку на изображение вопроса
func (r *QuestionRepo) UpdateImageURL(ctx context.Context, id uuid.UUID, imageURL string) error {
	result := r.db.WithContext(ctx).Model(&entity.Question{}).Where("id = ?", id).Update("image_url", imageURL)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func applyQuestionFilter(db *gorm.DB, filter repository.QuestionFilter) *gorm.DB {
	if filter.ExamType.IsConcrete() {
		db = db.Where("exam_type = ?", filter.ExamType)
	}
	if filter.Domain != "" {
		db = db.Where("domain = ?", filter.Domain)
	}
	if filter.QuestionType != "" {
		db = db.Where("question_type = ?", filter.QuestionType)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		db = db.Where("text ILIKE ?", "%"+search+"%")
	}
	return db
}

// List возвращает страницу вопросов и общее количество под фильтр
func (r *QuestionRepo) List(ctx context.Context, filter repository.QuestionFilter, limit, offset int) ([]entity.Question, int64, error) {
	var total int64
	base := applyQuestionFilter(r.db.WithContext(ctx).Model(&entity.Question{}), filter)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var questions []entity.Question
	err := applyQuestionFilter(r.db.WithContext(ctx), filter).
		Preload("Options", orderedOptions).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&questions).Error
	if err != nil {
		return nil, 0, err
	}
	return questions, total, nil
}

// ListAll возвращает все вопросы под фильтр, используется для экспорта
func (r *QuestionRepo) ListAll(ctx context.Context, filter repository.QuestionFilter) ([]entity.Question, error) {
	var questions []entity.Question
	err := applyQuestionFilter(r.db.WithContext(ctx), filter).
		Preload("Options", orderedOptions).
		Order("exam_type, domain, created_at").
		Find(&questions).Error
	return questions, err
}

// FindCandidates возвращает пул кандидатов для подбора, от новых к старым
func (r *QuestionRepo) FindCandidates(ctx context.Context, examType entity.ExamType, domain string) ([]entity.Question, error) {
	query := r.db.WithContext(ctx).Preload("Options", orderedOptions)
	if examType != entity.ExamTypeBoth {
		query = query.Where("exam_type = ?", examType)
	}
	if domain != "" {
		query = query.Where("domain = ?", domain)
	}

	var questions []entity.Question
	if err := query.Order("created_at DESC").Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

// ListDomains возвращает различные домены вопросов
func (r *QuestionRepo) ListDomains(ctx context.Context, examType entity.ExamType) ([]string, error) {
	query := r.db.WithContext(ctx).Model(&entity.Question{})
	if examType != entity.ExamTypeBoth {
		query = query.Where("exam_type = ?", examType)
	}

	var domains []string
	if err := query.Distinct().Pluck("domain", &domains).Error; err != nil {
		return nil, err
	}
	return domains, nil
}

// CountGrouped возвращает количество вопросов, сгруппированное по колонке
func (r *QuestionRepo) CountGrouped(ctx context.Context, column string) ([]entity.GroupCount, error) {
	if !groupableQuestionColumns[column] {
		return nil, fmt.Errorf("column %q is not groupable: %w", column, apperrors.ErrValidation)
	}
	var counts []entity.GroupCount
	err := r.db.WithContext(ctx).Model(&entity.Question{}).
		Select(column + ` AS "key", COUNT(*) AS "count"`).
		Group(column).
		Order(column).
		Scan(&counts).Error
	return counts, err
}

// Count возвращает общее количество вопросов
func (r *QuestionRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Question{}).Count(&count).Error
	return count, err
}
