package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/examprep-api/internal/domain/entity"
	"github.com/yourusername/examprep-api/internal/domain/repository"
)

// SessionRepo реализует repository.SessionRepository
type SessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo создает новый репозиторий практических сессий
func NewSessionRepo(db *gorm.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create создает новую сессию
func (r *SessionRepo) Create(ctx context.Context, session *entity.PracticeSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// GetByID возвращает сессию по ID
func (r *SessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.PracticeSession, error) {
	var session entity.PracticeSession
	if err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &session, nil
}

// Finalize атомарно сохраняет итог сессии.
// Обновление выполняется только из статуса in_progress, поэтому конкурирующие завершения не перезаписывают друг друга.
func (r *SessionRepo) Finalize(ctx context.Context, session *entity.PracticeSession) (bool, error) {
	result := r.db.WithContext(ctx).Model(&entity.PracticeSession{}).
		Where("id = ? AND status = ?", session.ID, entity.SessionStatusInProgress).
		Updates(map[string]interface{}{
			"status":        session.Status,
			"correct_count": session.CorrectCount,
			"score":         session.Score,
			"passed":        session.Passed,
			"finished_at":   session.FinishedAt,
		})
	if result.Error != nil {
		return false, fmt.Errorf("finalize session %s failed: %w", session.ID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListByUser возвращает страницу сессий пользователя, от новых к старым
func (r *SessionRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.PracticeSession, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&entity.PracticeSession{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sessions []entity.PracticeSession
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&sessions).Error
	if err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// ListOverdue возвращает активные сессии с истекшим временем
func (r *SessionRepo) ListOverdue(ctx context.Context, now time.Time, limit int) ([]entity.PracticeSession, error) {
	var sessions []entity.PracticeSession
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", entity.SessionStatusInProgress, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}

// GetUserSummary возвращает сводку по завершенным и истекшим сессиям пользователя
func (r *SessionRepo) GetUserSummary(ctx context.Context, userID uuid.UUID, examType entity.ExamType) (*repository.SessionSummary, error) {
	var summary repository.SessionSummary
	query := r.db.WithContext(ctx).Model(&entity.PracticeSession{}).
		Select("COUNT(*) AS completed, "+
			"COALESCE(SUM(CASE WHEN passed THEN 1 ELSE 0 END), 0) AS passed, "+
			"COALESCE(AVG(score), 0) AS average_score").
		Where("user_id = ? AND status <> ?", userID, entity.SessionStatusInProgress)
	if examType.IsConcrete() {
		query = query.Where("exam_type = ?", examType)
	}
	err := query.Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// CountByStatus возвращает количество сессий по статусам
func (r *SessionRepo) CountByStatus(ctx context.Context) ([]entity.GroupCount, error) {
	var counts []entity.GroupCount
	err := r.db.WithContext(ctx).Model(&entity.PracticeSession{}).
		Select(`status AS "key", COUNT(*) AS "count"`).
		Group("status").
		Order("status").
		Scan(&counts).Error
	return counts, err
}
