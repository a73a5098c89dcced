package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/examprep-api/internal/domain/entity"
)

// SessionSummary - сводка по завершенным сессиям пользователя
type SessionSummary struct {
	Completed    int64   `json:"completed"`
	Passed       int64   `json:"passed"`
	AverageScore float64 `json:"average_score"`
}

// SessionRepository определяет методы для работы с практическими сессиями
type SessionRepository interface {
	Create(ctx context.Context, session *entity.PracticeSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.PracticeSession, error)
	// Finalize сохраняет итог, только если сессия все еще in_progress. false - сессию уже завершили.
	Finalize(ctx context.Context, session *entity.PracticeSession) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.PracticeSession, int64, error)
	// ListOverdue возвращает активные сессии с истекшим временем
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]entity.PracticeSession, error)
	// GetUserSummary учитывает только сессии examType, если он конкретный (не BOTH)
	GetUserSummary(ctx context.Context, userID uuid.UUID, examType entity.ExamType) (*SessionSummary, error)
	CountByStatus(ctx context.Context) ([]entity.GroupCount, error)
}
