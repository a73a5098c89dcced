package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role определяет уровень доступа пользователя
type Role string

const (
	RoleExaminee  Role = "examinee"
	RoleSupporter Role = "supporter"
	RoleAdmin     Role = "admin"
)

// ParseRole нормализует строку в Role
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleExaminee, RoleSupporter, RoleAdmin:
		return r, true
	}
	return "", false
}

// User представляет пользователя. ID совпадает с subject внешнего провайдера аутентификации.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email       string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	DisplayName string    `gorm:"size:100;not null;default:''" json:"display_name"`
	Role        Role      `gorm:"size:20;not null;default:'examinee'" json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (User) TableName() string {
	return "users"
}

// IsAdmin проверяет, является ли пользователь администратором
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanViewStudents возвращает true для ролей, которым доступна статистика других пользователей
func (u *User) CanViewStudents() bool {
	return u.Role == RoleSupporter || u.Role == RoleAdmin
}
