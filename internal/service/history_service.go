package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yourusername/examprep-api/internal/domain/entity"
	"github.com/yourusername/examprep-api/internal/domain/repository"
	"github.com/yourusername/examprep-api/internal/handler/dto"
	"github.com/yourusername/examprep-api/internal/handler/helper"
	apperrors "github.com/yourusername/examprep-api/internal/pkg/errors"
)

// HistoryService предоставляет историю ответов и статистику пользователей
type HistoryService struct {
	answerRepo    repository.AnswerRepository
	sessionRepo   repository.SessionRepository
	analyticsRepo repository.AnalyticsRepository
	userRepo      repository.UserRepository
}

// NewHistoryService создает сервис истории
func NewHistoryService(
	answerRepo repository.AnswerRepository,
	sessionRepo repository.SessionRepository,
	analyticsRepo repository.AnalyticsRepository,
	userRepo repository.UserRepository,
) *HistoryService {
	return &HistoryService{
		answerRepo:    answerRepo,
		sessionRepo:   sessionRepo,
		analyticsRepo: analyticsRepo,
		userRepo:      userRepo,
	}
}

// ListAnswerHistory возвращает страницу ответов пользователя, от новых к старым
func (s *HistoryService) ListAnswerHistory(ctx context.Context, userID uuid.UUID, page, pageSize int) (*dto.PaginatedAnswersResponse, error) {
	page, pageSize, offset := helper.NormalizePagination(page, pageSize)
	records, total, err := s.answerRepo.ListUserAnswers(ctx, userID, pageSize, offset)
	if err != nil {
		log.Printf("[HistoryService] Ошибка при получении истории пользователя %s: %v", userID, err)
		return nil, err
	}

	items := make([]dto.AnswerHistoryItem, len(records))
	for i := range records {
		items[i] = dto.NewAnswerHistoryItem(&records[i])
	}
	return &dto.PaginatedAnswersResponse{
		Answers: items,
		Total:   total,
		Page:    page,
		PerPage: pageSize,
	}, nil
}

// GetUserStats собирает точность по доменам и сводку по сессиям.
// ExamTypeBoth (или пустой тип) учитывает оба экзамена.
func (s *HistoryService) GetUserStats(ctx context.Context, userID uuid.UUID, examType entity.ExamType) (*dto.UserStatsResponse, error) {
	if examType == "" {
		examType = entity.ExamTypeBoth
	}

	domainStats, err := s.answerRepo.GetUserDomainStats(ctx, userID, examType)
	if err != nil {
		return nil, err
	}
	summary, err := s.sessionRepo.GetUserSummary(ctx, userID, examType)
	if err != nil {
		return nil, err
	}

	resp := &dto.UserStatsResponse{
		UserID:   userID,
		ExamType: examType,
		Domains:  make([]dto.DomainStatResponse, len(domainStats)),
		Sessions: *summary,
	}
	for i, ds := range domainStats {
		resp.TotalAnswered += ds.Answered
		resp.TotalCorrect += ds.Correct
		resp.Domains[i] = dto.DomainStatResponse{
			ExamType: ds.ExamType,
			Domain:   ds.Domain,
			Answered: ds.Answered,
			Correct:  ds.Correct,
			Accuracy: ds.Accuracy(),
		}
	}
	if resp.TotalAnswered > 0 {
		resp.Accuracy = float64(resp.TotalCorrect) / float64(resp.TotalAnswered)
	}
	return resp, nil
}

// GetStudentStats - статистика другого пользователя для supporter/admin
func (s *HistoryService) GetStudentStats(ctx context.Context, studentID uuid.UUID, examType entity.ExamType) (*dto.UserStatsResponse, error) {
	if err := s.requireStudent(ctx, studentID); err != nil {
		return nil, err
	}
	return s.GetUserStats(ctx, studentID, examType)
}

// ListStudentAnswers - история другого пользователя для supporter/admin
func (s *HistoryService) ListStudentAnswers(ctx context.Context, studentID uuid.UUID, page, pageSize int) (*dto.PaginatedAnswersResponse, error) {
	if err := s.requireStudent(ctx, studentID); err != nil {
		return nil, err
	}
	return s.ListAnswerHistory(ctx, studentID, page, pageSize)
}

// GetStudentAnalytics возвращает JSON функции get_student_analytics без изменений
func (s *HistoryService) GetStudentAnalytics(ctx context.Context, studentID uuid.UUID) (datatypes.JSON, error) {
	if err := s.requireStudent(ctx, studentID); err != nil {
		return nil, err
	}
	analytics, err := s.analyticsRepo.GetStudentAnalytics(ctx, studentID)
	if err != nil {
		log.Printf("[HistoryService] Ошибка get_student_analytics для %s: %v", studentID, err)
		return nil, err
	}
	return analytics, nil
}

// requireStudent пропускает только пользователей с ролью examinee.
// Данные supporter и admin через эндпоинты студентов не отдаются.
func (s *HistoryService) requireStudent(ctx context.Context, studentID uuid.UUID) error {
	user, err := s.userRepo.GetByID(ctx, studentID)
	if err != nil {
		return err
	}
	if user.Role != entity.RoleExaminee {
		return fmt.Errorf("student %s: %w", studentID, apperrors.ErrNotFound)
	}
	return nil
}
