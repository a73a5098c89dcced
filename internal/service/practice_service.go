package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/examprep-api/internal/config"
	"github.com/yourusername/examprep-api/internal/domain/entity"
	"github.com/yourusername/examprep-api/internal/domain/repository"
	"github.com/yourusername/examprep-api/internal/handler/dto"
	"github.com/yourusername/examprep-api/internal/handler/helper"
	apperrors "github.com/yourusername/examprep-api/internal/pkg/errors"
	"github.com/yourusername/examprep-api/internal/service/selection"
)

const (
	overdueBatchSize  = 100
	reportDedupeTTL   = 24 * time.Hour
	reportSendTimeout = 30 * time.Second
)

// QuestionPicker подбирает вопросы для новой сессии
type QuestionPicker interface {
	SelectQuestions(ctx context.Context, req selection.Request) *selection.Result
}

// StartSessionInput - параметры запуска практической сессии
type StartSessionInput struct {
	ExamType         entity.ExamType
	Mode             entity.SelectionMode
	Domain           string
	Count            int
	TimeLimitMinutes int
}

// PracticeService управляет практическими сессиями: запуск, ответы, завершение и истечение времени
type PracticeService struct {
	config       config.PracticeConfig
	picker       QuestionPicker
	sessionRepo  repository.SessionRepository
	questionRepo repository.QuestionRepository
	answerRepo   repository.AnswerRepository
	userRepo     repository.UserRepository
	cacheRepo    repository.CacheRepository // может быть nil
	emailService EmailService               // nil - отчеты не отправляются

	now     func() time.Time
	reports sync.WaitGroup
}

// NewPracticeService создает сервис практических сессий
func NewPracticeService(
	cfg config.PracticeConfig,
	picker QuestionPicker,
	sessionRepo repository.SessionRepository,
	questionRepo repository.QuestionRepository,
	answerRepo repository.AnswerRepository,
	userRepo repository.UserRepository,
	cacheRepo repository.CacheRepository,
	emailService EmailService,
) *PracticeService {
	return &PracticeService{
		config:       cfg,
		picker:       picker,
		sessionRepo:  sessionRepo,
		questionRepo: questionRepo,
		answerRepo:   answerRepo,
		userRepo:     userRepo,
		cacheRepo:    cacheRepo,
		emailService: emailService,
		now:          time.Now,
	}
}

// Now возвращает текущее время сервиса
func (s *PracticeService) Now() time.Time {
	return s.now()
}

// WaitForReports дожидается отправки всех асинхронных отчетов
func (s *PracticeService) WaitForReports() {
	s.reports.Wait()
}

// StartSession подбирает вопросы и создает новую сессию
func (s *PracticeService) StartSession(ctx context.Context, userID uuid.UUID, in StartSessionInput) (*dto.SessionResponse, error) {
	if _, ok := entity.ParseExamType(string(in.ExamType)); !ok {
		return nil, fmt.Errorf("unknown exam type %q: %w", in.ExamType, apperrors.ErrValidation)
	}

	count := in.Count
	if count == 0 {
		count = s.config.DefaultQuestionCount
	}
	if count < 1 || count > s.config.MaxQuestionCount {
		return nil, fmt.Errorf("count must be between 1 and %d: %w", s.config.MaxQuestionCount, apperrors.ErrValidation)
	}
	if in.TimeLimitMinutes < 0 || (s.config.MaxTimeLimitMinutes > 0 && in.TimeLimitMinutes > s.config.MaxTimeLimitMinutes) {
		return nil, fmt.Errorf("time limit must be between 1 and %d minutes: %w", s.config.MaxTimeLimitMinutes, apperrors.ErrValidation)
	}

	result := s.picker.SelectQuestions(ctx, selection.Request{
		UserID:   userID,
		ExamType: in.ExamType,
		Mode:     in.Mode,
		Domain:   in.Domain,
		Count:    count,
	})
	if result.IsEmpty() {
		log.Printf("[PracticeService] No questions for user %s (exam=%s mode=%s domain=%q reason=%s)",
			userID, in.ExamType, in.Mode, in.Domain, result.Reason)
		return nil, ErrNoQuestionsAvailable
	}

	mode, _ := entity.ParseSelectionMode(string(in.Mode))
	ids := make(entity.StringArray, len(result.Questions))
	for i, q := range result.Questions {
		ids[i] = q.ID.String()
	}

	timeLimit := time.Duration(in.TimeLimitMinutes) * time.Minute
	if timeLimit == 0 {
		timeLimit = time.Duration(len(ids)*s.config.SecondsPerQuestion) * time.Second
	}

	now := s.now()
	session := &entity.PracticeSession{
		ID:            uuid.New(),
		UserID:        userID,
		ExamType:      in.ExamType,
		Mode:          mode,
		Domain:        in.Domain,
		QuestionIDs:   ids,
		QuestionCount: len(ids),
		TimeLimitSec:  int(timeLimit / time.Second),
		Status:        entity.SessionStatusInProgress,
		StartedAt:     now,
		ExpiresAt:     now.Add(timeLimit),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		log.Printf("[PracticeService] Ошибка создания сессии для пользователя %s: %v", userID, err)
		return nil, err
	}

	log.Printf("[PracticeService] User %s started session %s (%d questions, %ds)",
		userID, session.ID, session.QuestionCount, session.TimeLimitSec)

	resp := dto.NewSessionResponse(session, 0, now)
	resp.Questions = make([]dto.SessionQuestionResponse, len(result.Questions))
	for i := range result.Questions {
		resp.Questions[i] = dto.NewSessionQuestionResponse(&result.Questions[i], false)
	}
	return &resp, nil
}

// GetSession возвращает сессию владельца вместе с вопросами в порядке сессии
func (s *PracticeService) GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*dto.SessionResponse, error) {
	session, err := s.loadOwnedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsOverdue(s.now()) {
		if err := s.finalize(ctx, session, entity.SessionStatusExpired); err != nil {
			return nil, err
		}
	}

	questions, err := s.questionRepo.GetByIDs(ctx, session.QuestionUUIDs())
	if err != nil {
		return nil, err
	}
	answered, err := s.answeredQuestions(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*entity.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	resp := dto.NewSessionResponse(session, len(answered), s.now())
	resp.Questions = make([]dto.SessionQuestionResponse, 0, len(questions))
	for _, id := range session.QuestionUUIDs() {
		q, ok := byID[id]
		if !ok {
			// вопрос удален из банка после старта сессии
			continue
		}
		_, done := answered[id]
		resp.Questions = append(resp.Questions, dto.NewSessionQuestionResponse(q, done))
	}
	return &resp, nil
}

// SubmitAnswer проверяет и сохраняет ответ на вопрос сессии
func (s *PracticeService) SubmitAnswer(ctx context.Context, userID, sessionID, questionID uuid.UUID, response entity.AnswerResponse) (*dto.AnswerFeedbackResponse, error) {
	session, err := s.loadOwnedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsInProgress() {
		return nil, ErrSessionNotActive
	}

	now := s.now()
	if session.IsOverdue(now) {
		if err := s.finalize(ctx, session, entity.SessionStatusExpired); err != nil {
			return nil, err
		}
		return nil, ErrSessionTimeOver
	}
	if !session.ContainsQuestion(questionID) {
		return nil, ErrQuestionNotInSession
	}

	question, err := s.questionRepo.GetByID(ctx, questionID)
	if err != nil {
		return nil, err
	}
	for _, optionID := range response.OptionIDs {
		if !question.HasOption(optionID) {
			return nil, fmt.Errorf("option %d does not belong to question %s: %w", optionID, questionID, apperrors.ErrValidation)
		}
	}

	isCorrect := question.IsCorrect(response)
	sid := session.ID
	record := &entity.AnswerRecord{
		UserID:     userID,
		QuestionID: questionID,
		SessionID:  &sid,
		Response:   response,
		IsCorrect:  isCorrect,
		AnsweredAt: now,
	}
	if err := s.answerRepo.Save(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicateAnswer) {
			return nil, ErrAlreadyAnswered
		}
		return nil, err
	}

	answered, err := s.answeredQuestions(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	return &dto.AnswerFeedbackResponse{
		QuestionID:       questionID,
		IsCorrect:        isCorrect,
		CorrectOptionIDs: question.CorrectOptionIDs(),
		AcceptedAnswers:  question.AcceptedAnswers,
		Explanation:      question.Explanation,
		AnsweredCount:    len(answered),
		QuestionCount:    session.QuestionCount,
	}, nil
}

// FinishSession подсчитывает результат и завершает сессию.
// Повторный вызов возвращает уже сохраненный итог.
func (s *PracticeService) FinishSession(ctx context.Context, userID, sessionID uuid.UUID) (*dto.SessionResponse, error) {
	session, err := s.loadOwnedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	if session.IsInProgress() {
		status := entity.SessionStatusCompleted
		if session.IsOverdue(s.now()) {
			status = entity.SessionStatusExpired
		}
		if err := s.finalize(ctx, session, status); err != nil {
			return nil, err
		}
	}

	answered, err := s.answeredQuestions(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	resp := dto.NewSessionResponse(session, len(answered), s.now())
	return &resp, nil
}

// ExpireOverdueSessions переводит просроченные активные сессии в статус expired.
// Возвращает количество завершенных сессий.
func (s *PracticeService) ExpireOverdueSessions(ctx context.Context) (int, error) {
	expired := 0
	for {
		batch, err := s.sessionRepo.ListOverdue(ctx, s.now(), overdueBatchSize)
		if err != nil {
			return expired, err
		}

		progressed := 0
		for i := range batch {
			if err := ctx.Err(); err != nil {
				return expired, err
			}
			session := &batch[i]
			if err := s.finalize(ctx, session, entity.SessionStatusExpired); err != nil {
				log.Printf("[PracticeService] ERROR: failed to expire session %s: %v", session.ID, err)
				continue
			}
			progressed++
		}
		expired += progressed

		if len(batch) < overdueBatchSize || progressed == 0 {
			break
		}
	}

	if expired > 0 {
		log.Printf("[PracticeService] Expired %d overdue sessions", expired)
	}
	return expired, nil
}

// ListSessions возвращает сессии пользователя, от новых к старым
func (s *PracticeService) ListSessions(ctx context.Context, userID uuid.UUID, page, pageSize int) (*dto.PaginatedSessionsResponse, error) {
	page, pageSize, offset := helper.NormalizePagination(page, pageSize)
	sessions, total, err := s.sessionRepo.ListByUser(ctx, userID, pageSize, offset)
	if err != nil {
		log.Printf("[PracticeService] Ошибка при получении сессий пользователя %s: %v", userID, err)
		return nil, err
	}

	now := s.now()
	items := make([]dto.SessionResponse, len(sessions))
	for i := range sessions {
		// в списке не считаем ответы по каждой сессии
		items[i] = dto.NewSessionResponse(&sessions[i], 0, now)
	}
	return &dto.PaginatedSessionsResponse{
		Sessions: items,
		Total:    total,
		Page:     page,
		PerPage:  pageSize,
	}, nil
}

// GetSessionState возвращает актуальное состояние сессии для таймера.
// Просроченная сессия завершается на месте.
func (s *PracticeService) GetSessionState(ctx context.Context, userID, sessionID uuid.UUID) (*entity.PracticeSession, error) {
	session, err := s.loadOwnedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsOverdue(s.now()) {
		if err := s.finalize(ctx, session, entity.SessionStatusExpired); err != nil {
			return nil, err
		}
	}
	return session, nil
}

func (s *PracticeService) loadOwnedSession(ctx context.Context, userID, sessionID uuid.UUID) (*entity.PracticeSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, fmt.Errorf("session %s belongs to another user: %w", sessionID, apperrors.ErrForbidden)
	}
	return session, nil
}

func (s *PracticeService) answeredQuestions(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	answers, err := s.answerRepo.ListSessionAnswers(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	answered := make(map[uuid.UUID]struct{}, len(answers))
	for _, a := range answers {
		answered[a.QuestionID] = struct{}{}
	}
	return answered, nil
}

// finalize подсчитывает результат и сохраняет конечный статус.
// Если сессию уже завершил другой запрос, session заполняется сохраненным состоянием.
func (s *PracticeService) finalize(ctx context.Context, session *entity.PracticeSession, status string) error {
	correct, err := s.answerRepo.CountSessionCorrect(ctx, session.ID)
	if err != nil {
		return err
	}

	session.Finalize(status, int(correct), s.config.PassingScore, s.now())
	updated, err := s.sessionRepo.Finalize(ctx, session)
	if err != nil {
		log.Printf("[PracticeService] Ошибка завершения сессии %s: %v", session.ID, err)
		return err
	}
	if !updated {
		stored, err := s.sessionRepo.GetByID(ctx, session.ID)
		if err != nil {
			return err
		}
		*session = *stored
		return nil
	}

	log.Printf("[PracticeService] Session %s %s: %d/%d correct, score %d, passed=%t",
		session.ID, status, session.CorrectCount, session.QuestionCount, session.Score, session.Passed)
	s.sendReportAsync(*session)
	return nil
}

func (s *PracticeService) sendReportAsync(session entity.PracticeSession) {
	if s.emailService == nil {
		return
	}

	s.reports.Add(1)
	go func() {
		defer s.reports.Done()
		ctx, cancel := context.WithTimeout(context.Background(), reportSendTimeout)
		defer cancel()

		if s.cacheRepo != nil {
			acquired, err := s.cacheRepo.SetNX(fmt.Sprintf("email:session_report:%s", session.ID), 1, reportDedupeTTL)
			if err != nil {
				log.Printf("[PracticeService] WARNING: report dedupe check failed for session %s: %v", session.ID, err)
			} else if !acquired {
				return
			}
		}

		user, err := s.userRepo.GetByID(ctx, session.UserID)
		if err != nil {
			log.Printf("[PracticeService] WARNING: cannot load user %s for session report: %v", session.UserID, err)
			return
		}

		finishedAt := s.now()
		if session.FinishedAt != nil {
			finishedAt = *session.FinishedAt
		}
		report := SessionReport{
			DisplayName:   user.DisplayName,
			ExamType:      string(session.ExamType),
			Mode:          string(session.Mode),
			Domain:        session.Domain,
			QuestionCount: session.QuestionCount,
			CorrectCount:  session.CorrectCount,
			Score:         session.Score,
			PassingScore:  s.config.PassingScore,
			Passed:        session.Passed,
			Status:        session.Status,
			FinishedAt:    finishedAt,
		}
		if err := s.emailService.SendSessionReport(ctx, user.Email, report, "session-report-"+session.ID.String()); err != nil {
			log.Printf("[PracticeService] WARNING: failed to send report for session %s: %v", session.ID, err)
		}
	}()
}
