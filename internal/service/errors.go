package service

import (
	"fmt"

	apperrors "github.com/yourusername/examprep-api/internal/pkg/errors"
)

// Ошибки сервисного слоя. Каждая оборачивает общую ошибку, чтобы обработчики могли использовать errors.Is.
var (
	// ErrNoQuestionsAvailable возвращается, когда подборщик не нашел ни одного вопроса под фильтры
	ErrNoQuestionsAvailable = fmt.Errorf("no questions available for the requested filters: %w", apperrors.ErrValidation)

	// ErrSessionNotActive означает, что сессия уже завершена или истекла
	ErrSessionNotActive = fmt.Errorf("practice session is not in progress: %w", apperrors.ErrConflict)

	// ErrSessionTimeOver означает, что время сессии вышло в момент ответа
	ErrSessionTimeOver = fmt.Errorf("practice session time is over: %w", apperrors.ErrConflict)

	// ErrQuestionNotInSession - попытка ответить на вопрос не из этой сессии
	ErrQuestionNotInSession = fmt.Errorf("question does not belong to the session: %w", apperrors.ErrValidation)

	// ErrAlreadyAnswered - на вопрос уже ответили в этой сессии
	ErrAlreadyAnswered = fmt.Errorf("question already answered in this session: %w", apperrors.ErrConflict)

	// ErrCannotChangeOwnRole - администратор не может менять собственную роль
	ErrCannotChangeOwnRole = fmt.Errorf("cannot change own role: %w", apperrors.ErrForbidden)

	// ErrUnsupportedImage - недопустимый тип или размер изображения
	ErrUnsupportedImage = fmt.Errorf("unsupported image: %w", apperrors.ErrValidation)
)
