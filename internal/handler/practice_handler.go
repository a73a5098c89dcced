package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/examprep-api/internal/domain/entity"
	"github.com/yourusername/examprep-api/internal/handler/dto"
	"github.com/yourusername/examprep-api/internal/service"
)

// PracticeService - операции практических сессий, используемые обработчиком
type PracticeService interface {
	StartSession(ctx context.Context, userID uuid.UUID, in service.StartSessionInput) (*dto.SessionResponse, error)
	GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*dto.SessionResponse, error)
	SubmitAnswer(ctx context.Context, userID, sessionID, questionID uuid.UUID, response entity.AnswerResponse) (*dto.AnswerFeedbackResponse, error)
	FinishSession(ctx context.Context, userID, sessionID uuid.UUID) (*dto.SessionResponse, error)
	ListSessions(ctx context.Context, userID uuid.UUID, page, pageSize int) (*dto.PaginatedSessionsResponse, error)
}

// PracticeHandler обрабатывает запросы практических сессий
type PracticeHandler struct {
	practiceService PracticeService
}

// NewPracticeHandler создает новый обработчик практических сессий
func NewPracticeHandler(practiceService PracticeService) *PracticeHandler {
	return &PracticeHandler{practiceService: practiceService}
}

// StartSession подбирает вопросы и запускает сессию
func (h *PracticeHandler) StartSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	examType, valid := entity.ParseExamType(req.ExamType)
	if !valid {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "exam_type must be ENCOR, ENARSI or BOTH"})
		return
	}

	session, err := h.practiceService.StartSession(c.Request.Context(), userID, service.StartSessionInput{
		ExamType:         examType,
		Mode:             entity.SelectionMode(strings.TrimSpace(req.Mode)),
		Domain:           strings.TrimSpace(req.Domain),
		Count:            req.Count,
		TimeLimitMinutes: req.TimeLimitMinutes,
	})
	if err != nil {
		handleError(c, "PracticeHandler", err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// ListSessions возвращает сессии текущего пользователя
func (h *PracticeHandler) ListSessions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	page, pageSize := paginationParams(c)

	sessions, err := h.practiceService.ListSessions(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		handleError(c, "PracticeHandler", err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// GetSession возвращает сессию с вопросами
func (h *PracticeHandler) GetSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sessionID := c.MustGet("sessionID").(uuid.UUID)

	session, err := h.practiceService.GetSession(c.Request.Context(), userID, sessionID)
	if err != nil {
		handleError(c, "PracticeHandler", err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// SubmitAnswer принимает ответ на вопрос сессии
func (h *PracticeHandler) SubmitAnswer(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sessionID := c.MustGet("sessionID").(uuid.UUID)

	var req dto.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid question_id"})
		return
	}

	feedback, err := h.practiceService.SubmitAnswer(c.Request.Context(), userID, sessionID, questionID, entity.AnswerResponse{
		OptionIDs: req.OptionIDs,
		Text:      req.Text,
	})
	if err != nil {
		handleError(c, "PracticeHandler", err)
		return
	}
	c.JSON(http.StatusOK, feedback)
}

// FinishSession завершает сессию и возвращает результат
func (h *PracticeHandler) FinishSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sessionID := c.MustGet("sessionID").(uuid.UUID)

	result, err := h.practiceService.FinishSession(c.Request.Context(), userID, sessionID)
	if err != nil {
		handleError(c, "PracticeHandler", err)
		return
	}
	c.JSON(http.StatusOK, result)
}
