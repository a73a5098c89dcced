package dto

import "github.com/yourusername/examprep-api/internal/domain/entity"

// UpdateProfileRequest - изменение профиля текущего пользователя
type UpdateProfileRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
}

// UpdateRoleRequest - смена роли пользователя администратором
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// PaginatedUsersResponse - страница пользователей
type PaginatedUsersResponse struct {
	Users   []entity.User `json:"users"`
	Total   int64         `json:"total"`
	Page    int           `json:"page"`
	PerPage int           `json:"per_page"`
}
