package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/examprep-api/internal/domain/entity"
	"github.com/yourusername/examprep-api/internal/domain/repository"
	apperrors "github.com/yourusername/examprep-api/internal/pkg/errors"
)

// Поля профиля, которые пользователь может менять сам
var allowedProfileFields = map[string]bool{
	"display_name": true,
}

// UserRepo реализует repository.UserRepository
type UserRepo struct {
	db *gorm.DB
}

// NewUserRepo создает новый репозиторий пользователей
func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create создает нового пользователя
func (r *UserRepo) Create(ctx context.Context, user *entity.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", repository.ErrDuplicateUser, user.ID)
		}
		return err
	}
	return nil
}

// GetByID возвращает пользователя по ID
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &user, nil
}

// UpdateProfile обновляет только разрешенные поля профиля
func (r *UserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	filtered := make(map[string]interface{}, len(updates)+1)
	for field, value := range updates {
		if allowedProfileFields[field] {
			filtered[field] = value
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	filtered["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).Model(&entity.User{}).Where("id = ?", id).Updates(filtered)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// UpdateRole меняет роль пользователя
func (r *UserRepo) UpdateRole(ctx context.Context, id uuid.UUID, role entity.Role) error {
	result := r.db.WithContext(ctx).Model(&entity.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"role":       role,
		"updated_at": time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// List возвращает страницу пользователей и общее количество под фильтр
func (r *UserRepo) List(ctx context.Context, filter repository.UserFilter, limit, offset int) ([]entity.User, int64, error) {
	apply := func(db *gorm.DB) *gorm.DB {
		if filter.Role != "" {
			db = db.Where("role = ?", filter.Role)
		}
		if search := strings.TrimSpace(filter.Search); search != "" {
			like := "%" + search + "%"
			db = db.Where("email ILIKE ? OR display_name ILIKE ?", like, like)
		}
		return db
	}

	var total int64
	if err := apply(r.db.WithContext(ctx).Model(&entity.User{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []entity.User
	err := apply(r.db.WithContext(ctx)).Order("created_at DESC").Limit(limit).Offset(offset).Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}
