package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/examprep-api/internal/domain/entity"
	"github.com/yourusername/examprep-api/internal/handler/dto"
)

// UserService - операции с пользователями, используемые обработчиком
type UserService interface {
	GetUser(ctx context.Context, id uuid.UUID) (*entity.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, displayName string) (*entity.User, error)
	ListUsers(ctx context.Context, roleFilter, search string, page, pageSize int) (*dto.PaginatedUsersResponse, error)
	UpdateRole(ctx context.Context, actorID, targetID uuid.UUID, roleValue string) (*entity.User, error)
}

// UserHandler обрабатывает запросы профиля и управления пользователями
type UserHandler struct {
	userService UserService
}

// NewUserHandler создает новый обработчик пользователей
func NewUserHandler(userService UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetMe возвращает профиль текущего пользователя
func (h *UserHandler) GetMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), userID)
	if err != nil {
		handleError(c, "UserHandler", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMe обновляет отображаемое имя
func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), userID, req.DisplayName)
	if err != nil {
		handleError(c, "UserHandler", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ListUsers возвращает страницу пользователей (для администратора)
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, pageSize := paginationParams(c)

	users, err := h.userService.ListUsers(c.Request.Context(),
		strings.TrimSpace(c.Query("role")), strings.TrimSpace(c.Query("search")), page, pageSize)
	if err != nil {
		handleError(c, "UserHandler", err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// UpdateRole меняет роль пользователя
func (h *UserHandler) UpdateRole(c *gin.Context) {
	actorID, ok := currentUserID(c)
	if !ok {
		return
	}
	targetID := c.MustGet("targetUserID").(uuid.UUID)

	var req dto.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.UpdateRole(c.Request.Context(), actorID, targetID, req.Role)
	if err != nil {
		handleError(c, "UserHandler", err)
		return
	}
	c.JSON(http.StatusOK, user)
}
