package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/yourusername/examprep-api/internal/domain/entity"
	"github.com/yourusername/examprep-api/internal/domain/repository"
	"github.com/yourusername/examprep-api/internal/handler/dto"
	"github.com/yourusername/examprep-api/internal/handler/helper"
	apperrors "github.com/yourusername/examprep-api/internal/pkg/errors"
)

// допустимые изображения вопросов и их расширения
var allowedImageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// DomainCacheInvalidator сбрасывает кеш доменов после изменения банка вопросов
type DomainCacheInvalidator interface {
	InvalidateDomains()
}

// QuestionService управляет банком вопросов
type QuestionService struct {
	questionRepo  repository.QuestionRepository
	answerRepo    repository.AnswerRepository
	sessionRepo   repository.SessionRepository
	storage       StorageProvider
	domains       DomainCacheInvalidator // может быть nil
	maxImageBytes int64
}

// NewQuestionService создает сервис банка вопросов
func NewQuestionService(
	questionRepo repository.QuestionRepository,
	answerRepo repository.AnswerRepository,
	sessionRepo repository.SessionRepository,
	storage StorageProvider,
	domains DomainCacheInvalidator,
	maxImageBytes int64,
) *QuestionService {
	return &QuestionService{
		questionRepo:  questionRepo,
		answerRepo:    answerRepo,
		sessionRepo:   sessionRepo,
		storage:       storage,
		domains:       domains,
		maxImageBytes: maxImageBytes,
	}
}

// ValidateQuestion проверяет вопрос по правилам его типа
func ValidateQuestion(q *entity.Question) error {
	if !q.ExamType.IsConcrete() {
		return fmt.Errorf("exam_type must be ENCOR or ENARSI: %w", apperrors.ErrValidation)
	}
	if strings.TrimSpace(q.Domain) == "" {
		return fmt.Errorf("domain is required: %w", apperrors.ErrValidation)
	}
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("text is required: %w", apperrors.ErrValidation)
	}

	correct := 0
	for _, opt := range q.Options {
		if strings.TrimSpace(opt.Text) == "" {
			return fmt.Errorf("option text is required: %w", apperrors.ErrValidation)
		}
		if opt.IsCorrect {
			correct++
		}
	}

	switch q.QuestionType {
	case entity.QuestionTypeSingleChoice:
		if len(q.Options) < 2 || correct != 1 {
			return fmt.Errorf("single_choice needs at least 2 options and exactly 1 correct: %w", apperrors.ErrValidation)
		}
	case entity.QuestionTypeMultipleChoice:
		if len(q.Options) < 2 || correct < 2 {
			return fmt.Errorf("multiple_choice needs at least 2 options and at least 2 correct: %w", apperrors.ErrValidation)
		}
	case entity.QuestionTypeDragAndDrop:
		if len(q.Options) < 2 {
			return fmt.Errorf("drag_and_drop needs at least 2 options: %w", apperrors.ErrValidation)
		}
		positions := make(map[int]struct{}, len(q.Options))
		for _, opt := range q.Options {
			if _, dup := positions[opt.Position]; dup {
				return fmt.Errorf("drag_and_drop positions must be distinct: %w", apperrors.ErrValidation)
			}
			positions[opt.Position] = struct{}{}
		}
	case entity.QuestionTypeFillInBlank:
		if len(q.AcceptedAnswers) == 0 {
			return fmt.Errorf("fill_in_blank needs at least 1 accepted answer: %w", apperrors.ErrValidation)
		}
	default:
		return fmt.Errorf("unknown question_type %q: %w", q.QuestionType, apperrors.ErrValidation)
	}
	return nil
}

// CreateQuestion проверяет и сохраняет новый вопрос
func (s *QuestionService) CreateQuestion(ctx context.Context, actorID uuid.UUID, q entity.Question) (*entity.Question, error) {
	if err := ValidateQuestion(&q); err != nil {
		return nil, err
	}
	q.ID = uuid.Nil
	q.CreatedBy = &actorID
	if err := s.questionRepo.Create(ctx, &q); err != nil {
		log.Printf("[QuestionService] Ошибка создания вопроса: %v", err)
		return nil, err
	}
	s.invalidateDomains()
	log.Printf("[QuestionService] Question %s created by %s (%s/%s)", q.ID, actorID, q.ExamType, q.Domain)
	return &q, nil
}

// BulkCreate сохраняет пакет вопросов в одной транзакции. Ошибка в любом вопросе отменяет весь пакет.
func (s *QuestionService) BulkCreate(ctx context.Context, actorID uuid.UUID, questions []entity.Question) (int, error) {
	if len(questions) == 0 {
		return 0, fmt.Errorf("no questions to create: %w", apperrors.ErrValidation)
	}
	for i := range questions {
		if err := ValidateQuestion(&questions[i]); err != nil {
			return 0, fmt.Errorf("question #%d: %w", i+1, err)
		}
		questions[i].ID = uuid.Nil
		questions[i].CreatedBy = &actorID
	}

	if err := s.questionRepo.CreateBatch(ctx, questions); err != nil {
		log.Printf("[QuestionService] Ошибка пакетной загрузки %d вопросов: %v", len(questions), err)
		return 0, err
	}
	s.invalidateDomains()
	log.Printf("[QuestionService] %d questions created by %s", len(questions), actorID)
	return len(questions), nil
}

// GetQuestion возвращает вопрос с вариантами
func (s *QuestionService) GetQuestion(ctx context.Context, id uuid.UUID) (*entity.Question, error) {
	return s.questionRepo.GetByID(ctx, id)
}

// UpdateQuestion заменяет содержимое вопроса и его варианты
func (s *QuestionService) UpdateQuestion(ctx context.Context, id uuid.UUID, q entity.Question) (*entity.Question, error) {
	if err := ValidateQuestion(&q); err != nil {
		return nil, err
	}
	q.ID = id
	if err := s.questionRepo.Update(ctx, &q); err != nil {
		return nil, err
	}
	s.invalidateDomains()
	return s.questionRepo.GetByID(ctx, id)
}

// DeleteQuestion удаляет вопрос и, если возможно, его изображение
func (s *QuestionService) DeleteQuestion(ctx context.Context, id uuid.UUID) error {
	q, err := s.questionRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.questionRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateDomains()

	if q.ImageURL != "" && s.storage != nil {
		if err := s.storage.Delete(ctx, imageObjectName(id, q.ImageURL)); err != nil {
			log.Printf("[QuestionService] WARNING: failed to delete image of question %s: %v", id, err)
		}
	}
	return nil
}

// ListQuestions возвращает страницу банка вопросов с фильтрами
func (s *QuestionService) ListQuestions(ctx context.Context, filter repository.QuestionFilter, page, pageSize int) (*dto.PaginatedQuestionsResponse, error) {
	page, pageSize, offset := helper.NormalizePagination(page, pageSize)
	questions, total, err := s.questionRepo.List(ctx, filter, pageSize, offset)
	if err != nil {
		return nil, err
	}
	return &dto.PaginatedQuestionsResponse{
		Questions: questions,
		Total:     total,
		Page:      page,
		PerPage:   pageSize,
	}, nil
}

// ListAllQuestions возвращает все вопросы под фильтр для экспорта
func (s *QuestionService) ListAllQuestions(ctx context.Context, filter repository.QuestionFilter) ([]entity.Question, error) {
	return s.questionRepo.ListAll(ctx, filter)
}

// GetDashboard собирает сводку по банку вопросов
func (s *QuestionService) GetDashboard(ctx context.Context) (*dto.DashboardResponse, error) {
	var (
		resp dto.DashboardResponse
		err  error
	)
	if resp.TotalQuestions, err = s.questionRepo.Count(ctx); err != nil {
		return nil, err
	}
	if resp.TotalAnswers, err = s.answerRepo.CountAll(ctx); err != nil {
		return nil, err
	}
	if resp.ByExamType, err = s.questionRepo.CountGrouped(ctx, "exam_type"); err != nil {
		return nil, err
	}
	if resp.ByDomain, err = s.questionRepo.CountGrouped(ctx, "domain"); err != nil {
		return nil, err
	}
	if resp.ByQuestionType, err = s.questionRepo.CountGrouped(ctx, "question_type"); err != nil {
		return nil, err
	}
	if resp.SessionsByStatus, err = s.sessionRepo.CountByStatus(ctx); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UploadImage сохраняет изображение вопроса в хранилище и обновляет image_url
func (s *QuestionService) UploadImage(ctx context.Context, id uuid.UUID, contentType string, size int64, reader io.Reader) (*entity.Question, error) {
	contentType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("content type %q is not allowed: %w", contentType, ErrUnsupportedImage)
	}
	if size <= 0 || (s.maxImageBytes > 0 && size > s.maxImageBytes) {
		return nil, fmt.Errorf("image size %d exceeds limit %d: %w", size, s.maxImageBytes, ErrUnsupportedImage)
	}

	q, err := s.questionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	objectName := fmt.Sprintf("questions/%s/%s%s", id, uuid.NewString(), ext)
	url, err := s.storage.Upload(ctx, objectName, reader, size, contentType)
	if err != nil {
		log.Printf("[QuestionService] Ошибка загрузки изображения вопроса %s: %v", id, err)
		return nil, err
	}
	if err := s.questionRepo.UpdateImageURL(ctx, id, url); err != nil {
		return nil, err
	}

	if q.ImageURL != "" {
		if err := s.storage.Delete(ctx, imageObjectName(id, q.ImageURL)); err != nil {
			log.Printf("[QuestionService] WARNING: failed to delete previous image of question %s: %v", id, err)
		}
	}
	q.ImageURL = url
	return q, nil
}

func (s *QuestionService) invalidateDomains() {
	if s.domains != nil {
		s.domains.InvalidateDomains()
	}
}

// imageObjectName восстанавливает имя объекта по публичному URL изображения
func imageObjectName(id uuid.UUID, imageURL string) string {
	return fmt.Sprintf("questions/%s/%s", id, path.Base(imageURL))
}
