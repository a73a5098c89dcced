package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yourusername/examprep-api/internal/domain/entity"
	"github.com/yourusername/examprep-api/internal/handler/dto"
)

// HistoryService - история ответов и статистика
type HistoryService interface {
	ListAnswerHistory(ctx context.Context, userID uuid.UUID, page, pageSize int) (*dto.PaginatedAnswersResponse, error)
	GetUserStats(ctx context.Context, userID uuid.UUID, examType entity.ExamType) (*dto.UserStatsResponse, error)
	GetStudentStats(ctx context.Context, studentID uuid.UUID, examType entity.ExamType) (*dto.UserStatsResponse, error)
	ListStudentAnswers(ctx context.Context, studentID uuid.UUID, page, pageSize int) (*dto.PaginatedAnswersResponse, error)
	GetStudentAnalytics(ctx context.Context, studentID uuid.UUID) (datatypes.JSON, error)
}

// HistoryHandler обрабатывает запросы истории и статистики
type HistoryHandler struct {
	historyService HistoryService
}

// NewHistoryHandler создает новый обработчик истории
func NewHistoryHandler(historyService HistoryService) *HistoryHandler {
	return &HistoryHandler{historyService: historyService}
}

// MyAnswers возвращает историю ответов текущего пользователя
func (h *HistoryHandler) MyAnswers(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	page, pageSize := paginationParams(c)

	answers, err := h.historyService.ListAnswerHistory(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		handleError(c, "HistoryHandler", err)
		return
	}
	c.JSON(http.StatusOK, answers)
}

// MyStats возвращает статистику текущего пользователя
func (h *HistoryHandler) MyStats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	examType, ok := statsExamType(c)
	if !ok {
		return
	}

	stats, err := h.historyService.GetUserStats(c.Request.Context(), userID, examType)
	if err != nil {
		handleError(c, "HistoryHandler", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// StudentStats возвращает статистику студента (для инструктора)
func (h *HistoryHandler) StudentStats(c *gin.Context) {
	studentID := c.MustGet("studentID").(uuid.UUID)
	examType, ok := statsExamType(c)
	if !ok {
		return
	}

	stats, err := h.historyService.GetStudentStats(c.Request.Context(), studentID, examType)
	if err != nil {
		handleError(c, "HistoryHandler", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// StudentAnswers возвращает историю ответов студента
func (h *HistoryHandler) StudentAnswers(c *gin.Context) {
	studentID := c.MustGet("studentID").(uuid.UUID)
	page, pageSize := paginationParams(c)

	answers, err := h.historyService.ListStudentAnswers(c.Request.Context(), studentID, page, pageSize)
	if err != nil {
		handleError(c, "HistoryHandler", err)
		return
	}
	c.JSON(http.StatusOK, answers)
}

// StudentAnalytics возвращает агрегированную аналитику студента.
// Документ собирается в базе и отдается без перекодирования.
func (h *HistoryHandler) StudentAnalytics(c *gin.Context) {
	studentID := c.MustGet("studentID").(uuid.UUID)

	analytics, err := h.historyService.GetStudentAnalytics(c.Request.Context(), studentID)
	if err != nil {
		handleError(c, "HistoryHandler", err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", analytics)
}

// statsExamType читает необязательный exam_type; пустое значение - оба экзамена
func statsExamType(c *gin.Context) (entity.ExamType, bool) {
	raw := c.Query("exam_type")
	if raw == "" {
		return entity.ExamTypeBoth, true
	}
	examType, ok := entity.ParseExamType(raw)
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "exam_type must be ENCOR, ENARSI or BOTH"})
		return "", false
	}
	return examType, true
}
