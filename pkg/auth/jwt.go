package auth

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	apperrors "github.com/yourusername/examprep-api/internal/pkg/errors"
)

// Claims - поля access token, выпущенного внешним сервисом аутентификации.
// Subject содержит UUID пользователя.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// UserID разбирает subject токена как UUID
func (c *Claims) UserID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("token subject %q is not a uuid: %w", c.Subject, apperrors.ErrUnauthorized)
	}
	return id, nil
}

// TokenVerifier проверяет подпись и стандартные claims access token (HS256)
type TokenVerifier struct {
	secret   []byte
	audience string
	issuer   string
	leeway   time.Duration
	now      func() time.Time
}

// NewTokenVerifier создает верификатор. Пустые audience и issuer не проверяются.
func NewTokenVerifier(secret, audience, issuer string, leeway time.Duration) (*TokenVerifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret cannot be empty")
	}
	return &TokenVerifier{
		secret:   []byte(secret),
		audience: audience,
		issuer:   issuer,
		leeway:   leeway,
		now:      time.Now,
	}, nil
}

// Verify проверяет токен и возвращает его claims.
// Ошибки оборачивают apperrors.ErrUnauthorized или apperrors.ErrExpiredToken.
func (v *TokenVerifier) Verify(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, fmt.Errorf("empty token: %w", apperrors.ErrUnauthorized)
	}

	claims := &Claims{}
	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}

	// Временные claims проверяем сами, чтобы учесть leeway
	parser := jwt.NewParser(jwt.WithoutClaimsValidation(), jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	token, err := parser.ParseWithClaims(tokenString, claims, keyFunc)
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) {
			switch {
			case ve.Errors&jwt.ValidationErrorMalformed != 0:
				log.Printf("[JWT] Ошибка: Токен имеет неверный формат")
				return nil, fmt.Errorf("token is malformed: %w", apperrors.ErrUnauthorized)
			case ve.Errors&jwt.ValidationErrorSignatureInvalid != 0:
				log.Printf("[JWT] Ошибка: Неверная подпись токена (sub=%s)", claims.Subject)
				return nil, fmt.Errorf("signature is invalid: %w", apperrors.ErrUnauthorized)
			}
		}
		log.Printf("[JWT] Ошибка при разборе токена: %v", err)
		return nil, fmt.Errorf("token validation failed: %w", apperrors.ErrUnauthorized)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", apperrors.ErrUnauthorized)
	}

	now := v.now()
	if !claims.VerifyExpiresAt(now.Add(-v.leeway), true) {
		return nil, fmt.Errorf("token expired for sub=%s: %w", claims.Subject, apperrors.ErrExpiredToken)
	}
	if !claims.VerifyNotBefore(now.Add(v.leeway), false) {
		return nil, fmt.Errorf("token not valid yet: %w", apperrors.ErrUnauthorized)
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		return nil, fmt.Errorf("token audience mismatch: %w", apperrors.ErrUnauthorized)
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return nil, fmt.Errorf("token issuer mismatch: %w", apperrors.ErrUnauthorized)
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}

	return claims, nil
}
