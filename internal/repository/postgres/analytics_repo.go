package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AnalyticsRepo реализует repository.AnalyticsRepository
type AnalyticsRepo struct {
	db *gorm.DB
}

// NewAnalyticsRepo создает репозиторий аналитики
func NewAnalyticsRepo(db *gorm.DB) *AnalyticsRepo {
	return &AnalyticsRepo{db: db}
}

// GetStudentAnalytics вызывает хранимую функцию get_student_analytics.
// Реализация по умолчанию создается миграцией 000001 и может быть заменена.
func (r *AnalyticsRepo) GetStudentAnalytics(ctx context.Context, userID uuid.UUID) (datatypes.JSON, error) {
	var result datatypes.JSON
	row := r.db.WithContext(ctx).
		Raw("SELECT COALESCE(get_student_analytics(?)::jsonb, '{}'::jsonb)", userID).
		Row()
	if err := row.Scan(&result); err != nil {
		return nil, fmt.Errorf("get_student_analytics(%s): %w", userID, err)
	}
	return result, nil
}
