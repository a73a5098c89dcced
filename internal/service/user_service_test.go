package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/examprep-api/internal/domain/entity"
	"github.com/yourusername/examprep-api/internal/domain/repository"
	apperrors "github.com/yourusername/examprep-api/internal/pkg/errors"
)

func TestEnsureUser_ReturnsExisting(t *testing.T) {
	repo := new(MockUserRepo)
	svc := NewUserService(repo)
	id := uuid.New()
	existing := &entity.User{ID: id, Email: "a@example.com", Role: entity.RoleAdmin}
	repo.On("GetByID", mock.Anything, id).Return(existing, nil)

	user, err := svc.EnsureUser(context.Background(), id, "a@example.com", "A")

	require.NoError(t, err)
	assert.Same(t, existing, user)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestEnsureUser_ProvisionsNewExaminee(t *testing.T) {
	// Arrange
	repo := new(MockUserRepo)
	svc := NewUserService(repo)
	id := uuid.New()
	repo.On("GetByID", mock.Anything, id).Return(nil, apperrors.ErrNotFound)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(u *entity.User) bool {
		return u.ID == id && u.Email == "new.user@example.com" && u.Role == entity.RoleExaminee && u.DisplayName == "new.user"
	})).Return(nil)

	// Act
	user, err := svc.EnsureUser(context.Background(), id, " New.User@Example.com ", "")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, entity.RoleExaminee, user.Role)
	repo.AssertExpectations(t)
}

func TestEnsureUser_ConcurrentInsertRereads(t *testing.T) {
	repo := new(MockUserRepo)
	svc := NewUserService(repo)
	id := uuid.New()
	winner := &entity.User{ID: id, Email: "race@example.com", Role: entity.RoleExaminee}

	repo.On("GetByID", mock.Anything, id).Return(nil, apperrors.ErrNotFound).Once()
	repo.On("Create", mock.Anything, mock.Anything).Return(fmt.Errorf("%w: %s", repository.ErrDuplicateUser, id))
	repo.On("GetByID", mock.Anything, id).Return(winner, nil).Once()

	user, err := svc.EnsureUser(context.Background(), id, "race@example.com", "Race")

	require.NoError(t, err)
	assert.Same(t, winner, user)
	repo.AssertExpectations(t)
}

func TestEnsureUser_EmailTakenByOtherAccount(t *testing.T) {
	repo := new(MockUserRepo)
	svc := NewUserService(repo)
	id := uuid.New()

	repo.On("GetByID", mock.Anything, id).Return(nil, apperrors.ErrNotFound)
	repo.On("Create", mock.Anything, mock.Anything).Return(repository.ErrDuplicateUser)

	_, err := svc.EnsureUser(context.Background(), id, "taken@example.com", "")

	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestUpdateProfile_ValidatesLength(t *testing.T) {
	testCases := []struct {
		name string
		in   string
	}{
		{"empty", "   "},
		{"too long", strings.Repeat("я", 101)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo := new(MockUserRepo)
			svc := NewUserService(repo)

			_, err := svc.UpdateProfile(context.Background(), uuid.New(), tc.in)

			assert.ErrorIs(t, err, apperrors.ErrValidation)
			repo.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestUpdateProfile_Success(t *testing.T) {
	repo := new(MockUserRepo)
	svc := NewUserService(repo)
	id := uuid.New()
	name := strings.Repeat("я", 100)
	repo.On("UpdateProfile", mock.Anything, id, map[string]interface{}{"display_name": name}).Return(nil)
	repo.On("GetByID", mock.Anything, id).Return(&entity.User{ID: id, DisplayName: name}, nil)

	user, err := svc.UpdateProfile(context.Background(), id, "  "+name+"  ")

	require.NoError(t, err)
	assert.Equal(t, name, user.DisplayName)
	repo.AssertExpectations(t)
}

func TestUpdateRole(t *testing.T) {
	admin := uuid.New()
	target := uuid.New()

	t.Run("changes role of another user", func(t *testing.T) {
		repo := new(MockUserRepo)
		svc := NewUserService(repo)
		repo.On("UpdateRole", mock.Anything, target, entity.RoleSupporter).Return(nil)
		repo.On("GetByID", mock.Anything, target).Return(&entity.User{ID: target, Role: entity.RoleSupporter}, nil)

		user, err := svc.UpdateRole(context.Background(), admin, target, "Supporter")

		require.NoError(t, err)
		assert.Equal(t, entity.RoleSupporter, user.Role)
	})

	t.Run("own role is forbidden", func(t *testing.T) {
		svc := NewUserService(new(MockUserRepo))

		_, err := svc.UpdateRole(context.Background(), admin, admin, "examinee")

		assert.ErrorIs(t, err, ErrCannotChangeOwnRole)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("unknown role", func(t *testing.T) {
		svc := NewUserService(new(MockUserRepo))

		_, err := svc.UpdateRole(context.Background(), admin, target, "root")

		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("missing user", func(t *testing.T) {
		repo := new(MockUserRepo)
		svc := NewUserService(repo)
		repo.On("UpdateRole", mock.Anything, target, entity.RoleAdmin).Return(apperrors.ErrNotFound)

		_, err := svc.UpdateRole(context.Background(), admin, target, "admin")

		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestListUsers(t *testing.T) {
	repo := new(MockUserRepo)
	svc := NewUserService(repo)
	users := []entity.User{{ID: uuid.New(), Email: "s@example.com", Role: entity.RoleSupporter}}
	repo.On("List", mock.Anything, repository.UserFilter{Role: entity.RoleSupporter, Search: "s@"}, 10, 10).
		Return(users, int64(11), nil)

	resp, err := svc.ListUsers(context.Background(), "supporter", " s@ ", 2, 10)

	require.NoError(t, err)
	assert.Equal(t, int64(11), resp.Total)
	assert.Equal(t, 2, resp.Page)
	assert.Len(t, resp.Users, 1)

	_, err = svc.ListUsers(context.Background(), "guest", "", 1, 10)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
