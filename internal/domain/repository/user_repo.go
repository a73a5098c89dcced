package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yourusername/examprep-api/internal/domain/entity"
)

// UserFilter задает фильтры для списка пользователей
type UserFilter struct {
	Role   entity.Role
	Search string
}

// UserRepository определяет методы для работы с пользователями
type UserRepository interface {
	// Create возвращает ErrDuplicateUser при нарушении уникальности
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateRole(ctx context.Context, id uuid.UUID, role entity.Role) error
	List(ctx context.Context, filter UserFilter, limit, offset int) ([]entity.User, int64, error)
}
