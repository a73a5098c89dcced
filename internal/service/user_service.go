package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/yourusername/examprep-api/internal/domain/entity"
	"github.com/yourusername/examprep-api/internal/domain/repository"
	"github.com/yourusername/examprep-api/internal/handler/dto"
	"github.com/yourusername/examprep-api/internal/handler/helper"
	apperrors "github.com/yourusername/examprep-api/internal/pkg/errors"
)

const maxDisplayNameLength = 100

// UserService предоставляет методы для работы с пользователями
type UserService struct {
	userRepo repository.UserRepository
}

// NewUserService создает новый сервис пользователей
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
	}
}

// EnsureUser возвращает пользователя по ID из токена, создавая его при первом обращении.
// Гонка параллельных вставок разрешается повторным чтением.
func (s *UserService) EnsureUser(ctx context.Context, id uuid.UUID, email, name string) (*entity.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	user = &entity.User{
		ID:          id,
		Email:       strings.ToLower(strings.TrimSpace(email)),
		DisplayName: truncateRunes(strings.TrimSpace(name), maxDisplayNameLength),
		Role:        entity.RoleExaminee,
	}
	if user.DisplayName == "" {
		user.DisplayName = displayNameFromEmail(user.Email)
	}

	err = s.userRepo.Create(ctx, user)
	if err == nil {
		log.Printf("[UserService] Provisioned user %s (%s)", user.ID, user.Email)
		return user, nil
	}
	if !errors.Is(err, repository.ErrDuplicateUser) {
		return nil, err
	}

	existing, rerr := s.userRepo.GetByID(ctx, id)
	if rerr == nil {
		return existing, nil
	}
	if errors.Is(rerr, apperrors.ErrNotFound) {
		// email занят другим пользователем
		return nil, fmt.Errorf("email %s is already used by another account: %w", user.Email, apperrors.ErrConflict)
	}
	return nil, rerr
}

// GetUser возвращает пользователя по ID
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// UpdateProfile меняет отображаемое имя (1..100 символов)
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, displayName string) (*entity.User, error) {
	displayName = strings.TrimSpace(displayName)
	length := utf8.RuneCountInString(displayName)
	if length < 1 || length > maxDisplayNameLength {
		return nil, fmt.Errorf("display_name must be 1..%d characters: %w", maxDisplayNameLength, apperrors.ErrValidation)
	}

	if err := s.userRepo.UpdateProfile(ctx, id, map[string]interface{}{"display_name": displayName}); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, id)
}

// ListUsers возвращает пагинированный список пользователей для администратора
func (s *UserService) ListUsers(ctx context.Context, roleFilter, search string, page, pageSize int) (*dto.PaginatedUsersResponse, error) {
	filter := repository.UserFilter{Search: strings.TrimSpace(search)}
	if roleFilter != "" {
		role, ok := entity.ParseRole(roleFilter)
		if !ok {
			return nil, fmt.Errorf("unknown role %q: %w", roleFilter, apperrors.ErrValidation)
		}
		filter.Role = role
	}

	page, pageSize, offset := helper.NormalizePagination(page, pageSize)
	users, total, err := s.userRepo.List(ctx, filter, pageSize, offset)
	if err != nil {
		log.Printf("[UserService] Ошибка при получении списка пользователей: %v", err)
		return nil, err
	}

	return &dto.PaginatedUsersResponse{
		Users:   users,
		Total:   total,
		Page:    page,
		PerPage: pageSize,
	}, nil
}

// UpdateRole меняет роль пользователя. Администратор не может менять свою роль.
func (s *UserService) UpdateRole(ctx context.Context, actorID, targetID uuid.UUID, roleValue string) (*entity.User, error) {
	role, ok := entity.ParseRole(roleValue)
	if !ok {
		return nil, fmt.Errorf("unknown role %q: %w", roleValue, apperrors.ErrValidation)
	}
	if actorID == targetID {
		return nil, ErrCannotChangeOwnRole
	}

	if err := s.userRepo.UpdateRole(ctx, targetID, role); err != nil {
		return nil, err
	}
	log.Printf("[UserService] User %s changed role of %s to %s", actorID, targetID, role)
	return s.userRepo.GetByID(ctx, targetID)
}

func displayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return truncateRunes(local, maxDisplayNameLength)
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
