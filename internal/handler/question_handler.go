package handler

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/examprep-api/internal/domain/entity"
	"github.com/yourusername/examprep-api/internal/domain/repository"
	"github.com/yourusername/examprep-api/internal/handler/dto"
)

// QuestionService - операции банка вопросов, используемые обработчиком
type QuestionService interface {
	CreateQuestion(ctx context.Context, actorID uuid.UUID, q entity.Question) (*entity.Question, error)
	BulkCreate(ctx context.Context, actorID uuid.UUID, questions []entity.Question) (int, error)
	GetQuestion(ctx context.Context, id uuid.UUID) (*entity.Question, error)
	UpdateQuestion(ctx context.Context, id uuid.UUID, q entity.Question) (*entity.Question, error)
	DeleteQuestion(ctx context.Context, id uuid.UUID) error
	ListQuestions(ctx context.Context, filter repository.QuestionFilter, page, pageSize int) (*dto.PaginatedQuestionsResponse, error)
	ListAllQuestions(ctx context.Context, filter repository.QuestionFilter) ([]entity.Question, error)
	GetDashboard(ctx context.Context) (*dto.DashboardResponse, error)
	UploadImage(ctx context.Context, id uuid.UUID, contentType string, size int64, reader io.Reader) (*entity.Question, error)
}

// DomainLister возвращает отсортированные домены экзамена
type DomainLister interface {
	GetExamDomains(ctx context.Context, examType entity.ExamType) []string
}

// QuestionHandler обрабатывает запросы банка вопросов
type QuestionHandler struct {
	questionService QuestionService
	domainLister    DomainLister
	maxImageBytes   int64
}

// NewQuestionHandler создает новый обработчик банка вопросов
func NewQuestionHandler(questionService QuestionService, domainLister DomainLister, maxImageBytes int64) *QuestionHandler {
	return &QuestionHandler{
		questionService: questionService,
		domainLister:    domainLister,
		maxImageBytes:   maxImageBytes,
	}
}

// GetDomains возвращает домены экзамена. Доступно любому пользователю.
func (h *QuestionHandler) GetDomains(c *gin.Context) {
	examType, ok := entity.ParseExamType(c.DefaultQuery("exam_type", string(entity.ExamTypeBoth)))
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "exam_type must be ENCOR, ENARSI or BOTH"})
		return
	}

	c.JSON(http.StatusOK, dto.DomainsResponse{
		ExamType: examType,
		Domains:  h.domainLister.GetExamDomains(c.Request.Context(), examType),
	})
}

// ListQuestions возвращает страницу банка вопросов с фильтрами
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	filter, ok := questionFilterFromQuery(c)
	if !ok {
		return
	}
	page, pageSize := paginationParams(c)

	questions, err := h.questionService.ListQuestions(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		handleError(c, "QuestionHandler", err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

// CreateQuestion создает вопрос
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question, err := h.questionService.CreateQuestion(c.Request.Context(), userID, req.ToEntity())
	if err != nil {
		handleError(c, "QuestionHandler", err)
		return
	}
	c.JSON(http.StatusCreated, question)
}

// BulkCreate загружает пакет вопросов в одной транзакции
func (h *QuestionHandler) BulkCreate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req dto.BulkQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	questions := make([]entity.Question, len(req.Questions))
	for i := range req.Questions {
		questions[i] = req.Questions[i].ToEntity()
	}

	created, err := h.questionService.BulkCreate(c.Request.Context(), userID, questions)
	if err != nil {
		handleError(c, "QuestionHandler", err)
		return
	}
	c.JSON(http.StatusCreated, dto.BulkCreateResponse{Created: created})
}

// GetQuestion возвращает вопрос с правильными ответами
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	questionID := c.MustGet("questionID").(uuid.UUID)

	question, err := h.questionService.GetQuestion(c.Request.Context(), questionID)
	if err != nil {
		handleError(c, "QuestionHandler", err)
		return
	}
	c.JSON(http.StatusOK, question)
}

// UpdateQuestion заменяет содержимое вопроса
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	questionID := c.MustGet("questionID").(uuid.UUID)

	var req dto.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question, err := h.questionService.UpdateQuestion(c.Request.Context(), questionID, req.ToEntity())
	if err != nil {
		handleError(c, "QuestionHandler", err)
		return
	}
	c.JSON(http.StatusOK, question)
}

// DeleteQuestion удаляет вопрос
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	questionID := c.MustGet("questionID").(uuid.UUID)

	if err := h.questionService.DeleteQuestion(c.Request.Context(), questionID); err != nil {
		handleError(c, "QuestionHandler", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetDashboard возвращает сводку по банку вопросов
func (h *QuestionHandler) GetDashboard(c *gin.Context) {
	dashboard, err := h.questionService.GetDashboard(c.Request.Context())
	if err != nil {
		handleError(c, "QuestionHandler", err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// UploadImage принимает изображение вопроса (multipart, поле image)
func (h *QuestionHandler) UploadImage(c *gin.Context) {
	questionID := c.MustGet("questionID").(uuid.UUID)

	if h.maxImageBytes > 0 {
		// запас на служебные части multipart
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxImageBytes+64*1024)
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read image"})
		return
	}
	defer file.Close()

	// тип определяем по содержимому, а не по заголовку клиента
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read image"})
		return
	}
	head = head[:n]
	contentType := http.DetectContentType(head)

	question, err := h.questionService.UploadImage(c.Request.Context(), questionID, contentType, fileHeader.Size,
		io.MultiReader(bytes.NewReader(head), file))
	if err != nil {
		handleError(c, "QuestionHandler", err)
		return
	}
	c.JSON(http.StatusOK, question)
}

// ExportQuestions выгружает банк вопросов в CSV или XLSX
func (h *QuestionHandler) ExportQuestions(c *gin.Context) {
	filter, ok := questionFilterFromQuery(c)
	if !ok {
		return
	}
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "format must be csv or xlsx"})
		return
	}

	questions, err := h.questionService.ListAllQuestions(c.Request.Context(), filter)
	if err != nil {
		handleError(c, "QuestionHandler", err)
		return
	}

	filename := fmt.Sprintf("questions_%s", time.Now().Format("2006-01-02"))
	switch format {
	case "xlsx":
		h.exportXLSX(c, questions, filename)
	default:
		h.exportCSV(c, questions, filename)
	}
}

var exportHeaders = []string{"ID", "Exam", "Domain", "Type", "Question", "Options", "Correct", "Accepted answers", "Explanation", "Image"}

func exportRow(q *entity.Question) []string {
	options := make([]string, len(q.Options))
	for i, opt := range q.Options {
		options[i] = opt.Text
	}
	correct := make([]string, 0, len(q.Options))
	for _, id := range q.CorrectOptionIDs() {
		for _, opt := range q.Options {
			if opt.ID == id {
				correct = append(correct, opt.Text)
			}
		}
	}

	return []string{
		q.ID.String(),
		string(q.ExamType),
		sanitizeForExcel(q.Domain),
		string(q.QuestionType),
		sanitizeForExcel(q.Text),
		sanitizeForExcel(strings.Join(options, " | ")),
		sanitizeForExcel(strings.Join(correct, " | ")),
		sanitizeForExcel(strings.Join(q.AcceptedAnswers, " | ")),
		sanitizeForExcel(q.Explanation),
		q.ImageURL,
	}
}

// exportCSV экспортирует вопросы в CSV с правильным экранированием спецсимволов
func (h *QuestionHandler) exportCSV(c *gin.Context, questions []entity.Question, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(exportHeaders)
	for i := range questions {
		if err := writer.Write(exportRow(&questions[i])); err != nil {
			log.Printf("[QuestionHandler] Ошибка записи строки CSV: %v", err)
			return
		}
	}
}

// exportXLSX экспортирует вопросы в Excel с использованием StreamWriter
func (h *QuestionHandler) exportXLSX(c *gin.Context, questions []entity.Question, filename string) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Questions"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[QuestionHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	headers := make([]interface{}, len(exportHeaders))
	for i, hdr := range exportHeaders {
		headers[i] = hdr
	}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[QuestionHandler] Ошибка записи заголовков: %v", err)
	}

	for i := range questions {
		cells := exportRow(&questions[i])
		row := make([]interface{}, len(cells))
		for j, v := range cells {
			row[j] = v
		}
		if err := sw.SetRow("A"+strconv.Itoa(i+2), row); err != nil {
			log.Printf("[QuestionHandler] Ошибка записи строки %d: %v", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[QuestionHandler] Ошибка при Flush: %v", err)
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[QuestionHandler] Ошибка записи Excel в response: %v", err)
	}
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}

func questionFilterFromQuery(c *gin.Context) (repository.QuestionFilter, bool) {
	filter := repository.QuestionFilter{
		Domain: strings.TrimSpace(c.Query("domain")),
		Search: strings.TrimSpace(c.Query("search")),
	}
	if raw := c.Query("exam_type"); raw != "" {
		examType, ok := entity.ParseExamType(raw)
		if !ok {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "exam_type must be ENCOR, ENARSI or BOTH"})
			return filter, false
		}
		filter.ExamType = examType
	}
	if raw := c.Query("question_type"); raw != "" {
		qt := entity.QuestionType(strings.ToLower(raw))
		if !qt.IsValid() {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unknown question_type"})
			return filter, false
		}
		filter.QuestionType = qt
	}
	return filter, true
}
