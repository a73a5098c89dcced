package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/examprep-api/internal/domain/entity"
	"github.com/yourusername/examprep-api/internal/domain/repository"
)

// AnswerRepo реализует repository.AnswerRepository
type AnswerRepo struct {
	db *gorm.DB
}

// NewAnswerRepo создает новый репозиторий истории ответов
func NewAnswerRepo(db *gorm.DB) *AnswerRepo {
	return &AnswerRepo{db: db}
}

// Save сохраняет ответ пользователя
func (r *AnswerRepo) Save(ctx context.Context, answer *entity.AnswerRecord) error {
	err := r.db.WithContext(ctx).Omit("Question").Create(answer).Error
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: question %s", repository.ErrDuplicateAnswer, answer.QuestionID)
		}
		return err
	}
	return nil
}

// ListUserHistory возвращает все ответы пользователя от новых к старым.
// Загружаются только поля, нужные для подбора вопросов.
func (r *AnswerRepo) ListUserHistory(ctx context.Context, userID uuid.UUID) ([]entity.AnswerRecord, error) {
	var answers []entity.AnswerRecord
	err := r.db.WithContext(ctx).
		Select("id", "user_id", "question_id", "is_correct", "answered_at").
		Where("user_id = ?", userID).
		Order("answered_at DESC, id DESC").
		Find(&answers).Error
	return answers, err
}

// GetGlobalQuestionStats агрегирует попытки всех пользователей по каждому вопросу
func (r *AnswerRepo) GetGlobalQuestionStats(ctx context.Context) ([]entity.QuestionStat, error) {
	var stats []entity.QuestionStat
	err := r.db.WithContext(ctx).Model(&entity.AnswerRecord{}).
		Select("question_id, COUNT(*) AS attempts, SUM(CASE WHEN is_correct THEN 1 ELSE 0 END) AS correct").
		Group("question_id").
		Scan(&stats).Error
	return stats, err
}

// ListUserAnswers возвращает страницу ответов пользователя вместе с вопросами
func (r *AnswerRepo) ListUserAnswers(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.AnswerRecord, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&entity.AnswerRecord{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var answers []entity.AnswerRecord
	err := r.db.WithContext(ctx).
		Preload("Question").
		Preload("Question.Options", orderedOptions).
		Where("user_id = ?", userID).
		Order("answered_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&answers).Error
	if err != nil {
		return nil, 0, err
	}
	return answers, total, nil
}

// ListSessionAnswers возвращает ответы, данные в рамках сессии
func (r *AnswerRepo) ListSessionAnswers(ctx context.Context, sessionID uuid.UUID) ([]entity.AnswerRecord, error) {
	var answers []entity.AnswerRecord
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("answered_at ASC, id ASC").
		Find(&answers).Error
	return answers, err
}

// CountSessionCorrect возвращает количество правильных ответов в сессии
func (r *AnswerRepo) CountSessionCorrect(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.AnswerRecord{}).
		Where("session_id = ? AND is_correct = ?", sessionID, true).
		Count(&count).Error
	return count, err
}

// GetUserDomainStats группирует ответы пользователя по экзамену и домену
func (r *AnswerRepo) GetUserDomainStats(ctx context.Context, userID uuid.UUID, examType entity.ExamType) ([]entity.DomainStat, error) {
	query := r.db.WithContext(ctx).Table("user_answers AS ua").
		Select("q.exam_type, q.domain, COUNT(*) AS answered, SUM(CASE WHEN ua.is_correct THEN 1 ELSE 0 END) AS correct").
		Joins("JOIN questions q ON q.id = ua.question_id").
		Where("ua.user_id = ?", userID)
	if examType.IsConcrete() {
		query = query.Where("q.exam_type = ?", examType)
	}

	var stats []entity.DomainStat
	err := query.Group("q.exam_type, q.domain").Order("q.exam_type, q.domain").Scan(&stats).Error
	return stats, err
}

// CountAll возвращает общее количество ответов
func (r *AnswerRepo) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.AnswerRecord{}).Count(&count).Error
	return count, err
}
