package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/examprep-api/internal/config"
	"github.com/yourusername/examprep-api/internal/domain/entity"
	"github.com/yourusername/examprep-api/internal/domain/repository"
	apperrors "github.com/yourusername/examprep-api/internal/pkg/errors"
	"github.com/yourusername/examprep-api/internal/service/selection"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type practiceFixture struct {
	svc       *PracticeService
	picker    *MockPicker
	sessions  *MockSessionRepo
	questions *MockQuestionRepo
	answers   *MockAnswerRepo
	users     *MockUserRepo
	cache     *MockCacheRepo
	email     *MockEmailService
}

func testPracticeConfig() config.PracticeConfig {
	return config.PracticeConfig{
		DefaultQuestionCount: 20,
		MaxQuestionCount:     100,
		SecondsPerQuestion:   90,
		MaxTimeLimitMinutes:  240,
		PassingScore:         825,
	}
}

func newPracticeFixture(withEmail bool) *practiceFixture {
	f := &practiceFixture{
		picker:    new(MockPicker),
		sessions:  new(MockSessionRepo),
		questions: new(MockQuestionRepo),
		answers:   new(MockAnswerRepo),
		users:     new(MockUserRepo),
		cache:     new(MockCacheRepo),
		email:     new(MockEmailService),
	}
	var emailService EmailService
	if withEmail {
		emailService = f.email
	}
	f.svc = NewPracticeService(testPracticeConfig(), f.picker, f.sessions, f.questions, f.answers, f.users, f.cache, emailService)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func (f *practiceFixture) assertAll(t *testing.T) {
	f.picker.AssertExpectations(t)
	f.sessions.AssertExpectations(t)
	f.questions.AssertExpectations(t)
	f.answers.AssertExpectations(t)
	f.users.AssertExpectations(t)
	f.cache.AssertExpectations(t)
	f.email.AssertExpectations(t)
}

func singleChoiceQuestion() entity.Question {
	return entity.Question{
		ID:           uuid.New(),
		ExamType:     entity.ExamTypeENCOR,
		Domain:       "Security",
		QuestionType: entity.QuestionTypeSingleChoice,
		Text:         "Which protocol secures management traffic?",
		Explanation:  "SSH encrypts the session.",
		Options: []entity.AnswerOption{
			{ID: 1, Text: "SSH", IsCorrect: true},
			{ID: 2, Text: "Telnet"},
		},
	}
}

func activeSession(userID uuid.UUID, questionIDs ...uuid.UUID) *entity.PracticeSession {
	ids := make(entity.StringArray, len(questionIDs))
	for i, id := range questionIDs {
		ids[i] = id.String()
	}
	return &entity.PracticeSession{
		ID:            uuid.New(),
		UserID:        userID,
		ExamType:      entity.ExamTypeENCOR,
		Mode:          entity.SelectionModeRandom,
		QuestionIDs:   ids,
		QuestionCount: len(ids),
		TimeLimitSec:  600,
		Status:        entity.SessionStatusInProgress,
		StartedAt:     fixedNow.Add(-5 * time.Minute),
		ExpiresAt:     fixedNow.Add(5 * time.Minute),
	}
}

// answersFor возвращает по одному ответу на каждый вопрос
func answersFor(questionIDs ...uuid.UUID) []entity.AnswerRecord {
	records := make([]entity.AnswerRecord, len(questionIDs))
	for i, id := range questionIDs {
		records[i] = entity.AnswerRecord{QuestionID: id}
	}
	return records
}

// ============================================================================
// StartSession
// ============================================================================

func TestStartSession_CreatesSessionInSelectedOrder(t *testing.T) {
	// Arrange
	f := newPracticeFixture(false)
	userID := uuid.New()
	q1, q2 := singleChoiceQuestion(), singleChoiceQuestion()

	f.picker.On("SelectQuestions", mock.Anything, selection.Request{
		UserID:   userID,
		ExamType: entity.ExamTypeENCOR,
		Mode:     entity.SelectionModeWeakPoints,
		Domain:   "Security",
		Count:    20,
	}).Return(&selection.Result{Questions: []entity.Question{q2, q1}})
	f.sessions.On("Create", mock.Anything, mock.MatchedBy(func(s *entity.PracticeSession) bool {
		return s.UserID == userID &&
			s.Status == entity.SessionStatusInProgress &&
			s.QuestionCount == 2 &&
			s.TimeLimitSec == 180 &&
			s.ExpiresAt.Equal(fixedNow.Add(180*time.Second)) &&
			len(s.QuestionIDs) == 2 && s.QuestionIDs[0] == q2.ID.String() && s.QuestionIDs[1] == q1.ID.String()
	})).Return(nil)

	// Act
	resp, err := f.svc.StartSession(context.Background(), userID, StartSessionInput{
		ExamType: entity.ExamTypeENCOR,
		Mode:     entity.SelectionModeWeakPoints,
		Domain:   "Security",
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, resp.QuestionCount)
	assert.Equal(t, 180, resp.RemainingSec)
	assert.Equal(t, entity.SelectionModeWeakPoints, resp.Mode)
	require.Len(t, resp.Questions, 2)
	assert.Equal(t, q2.ID, resp.Questions[0].ID)
	assert.Equal(t, q1.ID, resp.Questions[1].ID)
	f.assertAll(t)
}

func TestStartSession_UnknownModeStoredAsRandom(t *testing.T) {
	f := newPracticeFixture(false)
	userID := uuid.New()
	q := singleChoiceQuestion()

	f.picker.On("SelectQuestions", mock.Anything, mock.MatchedBy(func(r selection.Request) bool {
		return r.Mode == "adaptive" && r.Count == 5
	})).Return(&selection.Result{Questions: []entity.Question{q}})
	f.sessions.On("Create", mock.Anything, mock.MatchedBy(func(s *entity.PracticeSession) bool {
		return s.Mode == entity.SelectionModeRandom
	})).Return(nil)

	resp, err := f.svc.StartSession(context.Background(), userID, StartSessionInput{
		ExamType: entity.ExamTypeBoth,
		Mode:     "adaptive",
		Count:    5,
	})

	require.NoError(t, err)
	assert.Equal(t, entity.SelectionModeRandom, resp.Mode)
	f.assertAll(t)
}

func TestStartSession_CustomTimeLimit(t *testing.T) {
	f := newPracticeFixture(false)
	q := singleChoiceQuestion()

	f.picker.On("SelectQuestions", mock.Anything, mock.Anything).Return(&selection.Result{Questions: []entity.Question{q}})
	f.sessions.On("Create", mock.Anything, mock.MatchedBy(func(s *entity.PracticeSession) bool {
		return s.TimeLimitSec == 1800
	})).Return(nil)

	resp, err := f.svc.StartSession(context.Background(), uuid.New(), StartSessionInput{
		ExamType:         entity.ExamTypeENARSI,
		Count:            1,
		TimeLimitMinutes: 30,
	})

	require.NoError(t, err)
	assert.Equal(t, 1800, resp.TimeLimitSec)
	f.assertAll(t)
}

func TestStartSession_EmptySelection(t *testing.T) {
	f := newPracticeFixture(false)
	f.picker.On("SelectQuestions", mock.Anything, mock.Anything).
		Return(&selection.Result{Questions: []entity.Question{}, Reason: selection.ReasonNoCandidates})

	resp, err := f.svc.StartSession(context.Background(), uuid.New(), StartSessionInput{ExamType: entity.ExamTypeENCOR})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrNoQuestionsAvailable)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	f.sessions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestStartSession_RejectsInvalidInput(t *testing.T) {
	testCases := []struct {
		name  string
		input StartSessionInput
	}{
		{"unknown exam", StartSessionInput{ExamType: "CCNA"}},
		{"count above max", StartSessionInput{ExamType: entity.ExamTypeENCOR, Count: 101}},
		{"negative count", StartSessionInput{ExamType: entity.ExamTypeENCOR, Count: -3}},
		{"time limit above max", StartSessionInput{ExamType: entity.ExamTypeENCOR, TimeLimitMinutes: 241}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newPracticeFixture(false)

			_, err := f.svc.StartSession(context.Background(), uuid.New(), tc.input)

			assert.ErrorIs(t, err, apperrors.ErrValidation)
			f.picker.AssertNotCalled(t, "SelectQuestions", mock.Anything, mock.Anything)
		})
	}
}

// ============================================================================
// GetSession
// ============================================================================

func TestGetSession_ReturnsQuestionsInSessionOrder(t *testing.T) {
	f := newPracticeFixture(false)
	userID := uuid.New()
	q1, q2 := singleChoiceQuestion(), singleChoiceQuestion()
	session := activeSession(userID, q2.ID, q1.ID)

	f.sessions.On("GetByID", mock.Anything, session.ID).Return(session, nil)
	f.questions.On("GetByIDs", mock.Anything, []uuid.UUID{q2.ID, q1.ID}).Return([]entity.Question{q1, q2}, nil)
	f.answers.On("ListSessionAnswers", mock.Anything, session.ID).Return([]entity.AnswerRecord{{QuestionID: q2.ID}}, nil)

	resp, err := f.svc.GetSession(context.Background(), userID, session.ID)

	require.NoError(t, err)
	require.Len(t, resp.Questions, 2)
	assert.Equal(t, q2.ID, resp.Questions[0].ID)
	assert.True(t, resp.Questions[0].Answered)
	assert.False(t, resp.Questions[1].Answered)
	assert.Equal(t, 1, resp.AnsweredCount)
	assert.Equal(t, 300, resp.RemainingSec)
	f.assertAll(t)
}

func TestGetSession_OtherUserForbidden(t *testing.T) {
	f := newPracticeFixture(false)
	session := activeSession(uuid.New())
	f.sessions.On("GetByID", mock.Anything, session.ID).Return(session, nil)

	_, err := f.svc.GetSession(context.Background(), uuid.New(), session.ID)

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestGetSession_NotFound(t *testing.T) {
	f := newPracticeFixture(false)
	id := uuid.New()
	f.sessions.On("GetByID", mock.Anything, id).Return(nil, apperrors.ErrNotFound)

	_, err := f.svc.GetSession(context.Background(), uuid.New(), id)

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// ============================================================================
// SubmitAnswer
// ============================================================================

func TestSubmitAnswer_CorrectAnswerReturnsFeedback(t *testing.T) {
	// Arrange
	f := newPracticeFixture(false)
	userID := uuid.New()
	q := singleChoiceQuestion()
	session := activeSession(userID, q.ID)

	f.sessions.On("GetByID", mock.Anything, session.ID).Return(session, nil)
	f.questions.On("GetByID", mock.Anything, q.ID).Return(&q, nil)
	f.answers.On("Save", mock.Anything, mock.MatchedBy(func(a *entity.AnswerRecord) bool {
		return a.UserID == userID && a.QuestionID == q.ID && a.IsCorrect &&
			a.SessionID != nil && *a.SessionID == session.ID && a.AnsweredAt.Equal(fixedNow)
	})).Return(nil)
	f.answers.On("ListSessionAnswers", mock.Anything, session.ID).Return([]entity.AnswerRecord{{QuestionID: q.ID}}, nil)

	// Act
	resp, err := f.svc.SubmitAnswer(context.Background(), userID, session.ID, q.ID, entity.AnswerResponse{OptionIDs: []uint{1}})

	// Assert
	require.NoError(t, err)
	assert.True(t, resp.IsCorrect)
	assert.Equal(t, []uint{1}, resp.CorrectOptionIDs)
	assert.Equal(t, "SSH encrypts the session.", resp.Explanation)
	assert.Equal(t, 1, resp.AnsweredCount)
	assert.Equal(t, 1, resp.QuestionCount)
	f.assertAll(t)
}

func TestSubmitAnswer_WrongAnswerIsRecorded(t *testing.T) {
	f := newPracticeFixture(false)
	userID := uuid.New()
	q := singleChoiceQuestion()
	session := activeSession(userID, q.ID)

	f.sessions.On("GetByID", mock.Anything, session.ID).Return(session, nil)
	f.questions.On("GetByID", mock.Anything, q.ID).Return(&q, nil)
	f.answers.On("Save", mock.Anything, mock.MatchedBy(func(a *entity.AnswerRecord) bool {
		return !a.IsCorrect
	})).Return(nil)
	f.answers.On("ListSessionAnswers", mock.Anything, session.ID).Return([]entity.AnswerRecord{{QuestionID: q.ID}}, nil)

	resp, err := f.svc.SubmitAnswer(context.Background(), userID, session.ID, q.ID, entity.AnswerResponse{OptionIDs: []uint{2}})

	require.NoError(t, err)
	assert.False(t, resp.IsCorrect)
	assert.Equal(t, []uint{1}, resp.CorrectOptionIDs)
}

func TestSubmitAnswer_OverdueSessionExpires(t *testing.T) {
	// Arrange
	f := newPracticeFixture(false)
	userID := uuid.New()
	q := singleChoiceQuestion()
	session := activeSession(userID, q.ID)
	session.ExpiresAt = fixedNow.Add(-time.Second)

	f.sessions.On("GetByID", mock.Anything, session.ID).Return(session, nil)
	f.answers.On("CountSessionCorrect", mock.Anything, session.ID).Return(int64(0), nil)
	f.sessions.On("Finalize", mock.Anything, mock.MatchedBy(func(s *entity.PracticeSession) bool {
		return s.Status == entity.SessionStatusExpired && s.FinishedAt != nil
	})).Return(true, nil)

	// Act
	_, err := f.svc.SubmitAnswer(context.Background(), userID, session.ID, q.ID, entity.AnswerResponse{OptionIDs: []uint{1}})

	// Assert
	assert.ErrorIs(t, err, ErrSessionTimeOver)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	f.answers.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	f.assertAll(t)
}

func TestSubmitAnswer_Rejections(t *testing.T) {
	userID := uuid.New()

	t.Run("session not active", func(t *testing.T) {
		f := newPracticeFixture(false)
		q := singleChoiceQuestion()
		session := activeSession(userID, q.ID)
		session.Status = entity.SessionStatusCompleted
		f.sessions.On("GetByID", mock.Anything, session.ID).Return(session, nil)

		_, err := f.svc.SubmitAnswer(context.Background(), userID, session.ID, q.ID, entity.AnswerResponse{OptionIDs: []uint{1}})

		assert.ErrorIs(t, err, ErrSessionNotActive)
	})

	t.Run("question not in session", func(t *testing.T) {
		f := newPracticeFixture(false)
		session := activeSession(userID, uuid.New())
		f.sessions.On("GetByID", mock.Anything, session.ID).Return(session, nil)

		_, err := f.svc.SubmitAnswer(context.Background(), userID, session.ID, uuid.New(), entity.AnswerResponse{OptionIDs: []uint{1}})

		assert.ErrorIs(t, err, ErrQuestionNotInSession)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("foreign option", func(t *testing.T) {
		f := newPracticeFixture(false)
		q := singleChoiceQuestion()
		session := activeSession(userID, q.ID)
		f.sessions.On("GetByID", mock.Anything, session.ID).Return(session, nil)
		f.questions.On("GetByID", mock.Anything, q.ID).Return(&q, nil)

		_, err := f.svc.SubmitAnswer(context.Background(), userID, session.ID, q.ID, entity.AnswerResponse{OptionIDs: []uint{99}})

		assert.ErrorIs(t, err, apperrors.ErrValidation)
		f.answers.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("already answered", func(t *testing.T) {
		f := newPracticeFixture(false)
		q := singleChoiceQuestion()
		session := activeSession(userID, q.ID)
		f.sessions.On("GetByID", mock.Anything, session.ID).Return(session, nil)
		f.questions.On("GetByID", mock.Anything, q.ID).Return(&q, nil)
		f.answers.On("Save", mock.Anything, mock.Anything).
			Return(fmt.Errorf("%w: %s", repository.ErrDuplicateAnswer, q.ID))

		_, err := f.svc.SubmitAnswer(context.Background(), userID, session.ID, q.ID, entity.AnswerResponse{OptionIDs: []uint{1}})

		assert.ErrorIs(t, err, ErrAlreadyAnswered)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})

	t.Run("other user", func(t *testing.T) {
		f := newPracticeFixture(false)
		q := singleChoiceQuestion()
		session := activeSession(uuid.New(), q.ID)
		f.sessions.On("GetByID", mock.Anything, session.ID).Return(session, nil)

		_, err := f.svc.SubmitAnswer(context.Background(), userID, session.ID, q.ID, entity.AnswerResponse{OptionIDs: []uint{1}})

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})
}

// ============================================================================
// FinishSession
// ============================================================================

func TestFinishSession_ScoresAndSendsReport(t *testing.T) {
	// Arrange
	f := newPracticeFixture(true)
	userID := uuid.New()
	ids := make([]uuid.UUID, 20)
	for i := range ids {
		ids[i] = uuid.New()
	}
	session := activeSession(userID, ids...)
	user := &entity.User{ID: userID, Email: "candidate@example.com", DisplayName: "Candidate"}

	f.sessions.On("GetByID", mock.Anything, session.ID).Return(session, nil)
	f.answers.On("CountSessionCorrect", mock.Anything, session.ID).Return(int64(17), nil)
	f.sessions.On("Finalize", mock.Anything, mock.MatchedBy(func(s *entity.PracticeSession) bool {
		return s.Status == entity.SessionStatusCompleted && s.Score == 850 && s.Passed && s.CorrectCount == 17
	})).Return(true, nil)
	f.answers.On("ListSessionAnswers", mock.Anything, session.ID).Return([]entity.AnswerRecord{}, nil)
	f.cache.On("SetNX", "email:session_report:"+session.ID.String(), 1, reportDedupeTTL).Return(true, nil)
	f.users.On("GetByID", mock.Anything, userID).Return(user, nil)
	f.email.On("SendSessionReport", mock.Anything, "candidate@example.com", mock.MatchedBy(func(r SessionReport) bool {
		return r.Score == 850 && r.Passed && r.PassingScore == 825 && r.DisplayName == "Candidate" && r.FinishedAt.Equal(fixedNow)
	}), "session-report-"+session.ID.String()).Return(nil)

	// Act
	resp, err := f.svc.FinishSession(context.Background(), userID, session.ID)
	f.svc.WaitForReports()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, entity.SessionStatusCompleted, resp.Status)
	assert.Equal(t, 850, resp.Score)
	assert.True(t, resp.Passed)
	assert.Equal(t, 0, resp.RemainingSec)
	f.assertAll(t)
}

func TestFinishSession_ReportSkippedWhenAlreadySent(t *testing.T) {
	f := newPracticeFixture(true)
	userID := uuid.New()
	session := activeSession(userID, uuid.New())

	f.sessions.On("GetByID", mock.Anything, session.ID).Return(session, nil)
	f.answers.On("CountSessionCorrect", mock.Anything, session.ID).Return(int64(0), nil)
	f.sessions.On("Finalize", mock.Anything, mock.Anything).Return(true, nil)
	f.answers.On("ListSessionAnswers", mock.Anything, session.ID).Return([]entity.AnswerRecord{}, nil)
	f.cache.On("SetNX", mock.Anything, 1, reportDedupeTTL).Return(false, nil)

	resp, err := f.svc.FinishSession(context.Background(), userID, session.ID)
	f.svc.WaitForReports()

	require.NoError(t, err)
	assert.False(t, resp.Passed)
	f.email.AssertNotCalled(t, "SendSessionReport", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestFinishSession_AfterDeadlineIsExpired(t *testing.T) {
	f := newPracticeFixture(false)
	userID := uuid.New()
	session := activeSession(userID, uuid.New(), uuid.New())
	session.ExpiresAt = fixedNow.Add(-time.Minute)

	f.sessions.On("GetByID", mock.Anything, session.ID).Return(session, nil)
	f.answers.On("CountSessionCorrect", mock.Anything, session.ID).Return(int64(2), nil)
	f.sessions.On("Finalize", mock.Anything, mock.MatchedBy(func(s *entity.PracticeSession) bool {
		return s.Status == entity.SessionStatusExpired && s.Score == 1000
	})).Return(true, nil)
	f.answers.On("ListSessionAnswers", mock.Anything, session.ID).Return(answersFor(session.QuestionUUIDs()...), nil)

	resp, err := f.svc.FinishSession(context.Background(), userID, session.ID)

	require.NoError(t, err)
	assert.Equal(t, entity.SessionStatusExpired, resp.Status)
	assert.Equal(t, 2, resp.AnsweredCount)
	f.assertAll(t)
}

func TestFinishSession_IdempotentForFinishedSession(t *testing.T) {
	f := newPracticeFixture(false)
	userID := uuid.New()
	session := activeSession(userID, uuid.New())
	session.Finalize(entity.SessionStatusCompleted, 1, 825, fixedNow.Add(-time.Minute))

	f.sessions.On("GetByID", mock.Anything, session.ID).Return(session, nil)
	f.answers.On("ListSessionAnswers", mock.Anything, session.ID).Return(answersFor(session.QuestionUUIDs()...), nil)

	resp, err := f.svc.FinishSession(context.Background(), userID, session.ID)

	require.NoError(t, err)
	assert.Equal(t, 1000, resp.Score)
	assert.Equal(t, 1, resp.AnsweredCount)
	f.sessions.AssertNotCalled(t, "Finalize", mock.Anything, mock.Anything)
	f.answers.AssertNotCalled(t, "CountSessionCorrect", mock.Anything, mock.Anything)
}

func TestFinishSession_ConcurrentFinishReturnsStoredState(t *testing.T) {
	f := newPracticeFixture(true)
	userID := uuid.New()
	session := activeSession(userID, uuid.New())
	stored := *session
	stored.Finalize(entity.SessionStatusExpired, 0, 825, fixedNow)

	f.sessions.On("GetByID", mock.Anything, session.ID).Return(session, nil).Once()
	f.sessions.On("GetByID", mock.Anything, session.ID).Return(&stored, nil).Once()
	f.answers.On("CountSessionCorrect", mock.Anything, session.ID).Return(int64(1), nil)
	f.sessions.On("Finalize", mock.Anything, mock.Anything).Return(false, nil)
	f.answers.On("ListSessionAnswers", mock.Anything, session.ID).Return([]entity.AnswerRecord{}, nil)

	resp, err := f.svc.FinishSession(context.Background(), userID, session.ID)
	f.svc.WaitForReports()

	require.NoError(t, err)
	assert.Equal(t, entity.SessionStatusExpired, resp.Status)
	assert.Equal(t, 0, resp.Score)
	f.email.AssertNotCalled(t, "SendSessionReport", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// ============================================================================
// ExpireOverdueSessions / ListSessions / GetSessionState
// ============================================================================

func TestExpireOverdueSessions(t *testing.T) {
	// Arrange
	f := newPracticeFixture(false)
	s1 := activeSession(uuid.New(), uuid.New())
	s2 := activeSession(uuid.New(), uuid.New())
	s1.ExpiresAt = fixedNow.Add(-time.Minute)
	s2.ExpiresAt = fixedNow.Add(-time.Hour)

	f.sessions.On("ListOverdue", mock.Anything, fixedNow, overdueBatchSize).Return([]entity.PracticeSession{*s1, *s2}, nil)
	f.answers.On("CountSessionCorrect", mock.Anything, s1.ID).Return(int64(1), nil)
	f.answers.On("CountSessionCorrect", mock.Anything, s2.ID).Return(int64(0), errors.New("db down"))
	f.sessions.On("Finalize", mock.Anything, mock.MatchedBy(func(s *entity.PracticeSession) bool {
		return s.ID == s1.ID && s.Status == entity.SessionStatusExpired
	})).Return(true, nil)

	// Act
	expired, err := f.svc.ExpireOverdueSessions(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, expired)
	f.assertAll(t)
}

func TestExpireOverdueSessions_ListError(t *testing.T) {
	f := newPracticeFixture(false)
	f.sessions.On("ListOverdue", mock.Anything, fixedNow, overdueBatchSize).Return(nil, errors.New("db down"))

	expired, err := f.svc.ExpireOverdueSessions(context.Background())

	assert.Error(t, err)
	assert.Equal(t, 0, expired)
}

func TestListSessions_NormalizesPagination(t *testing.T) {
	f := newPracticeFixture(false)
	userID := uuid.New()
	session := activeSession(userID, uuid.New())
	f.sessions.On("ListByUser", mock.Anything, userID, 20, 0).Return([]entity.PracticeSession{*session}, int64(1), nil)

	resp, err := f.svc.ListSessions(context.Background(), userID, 0, 0)

	require.NoError(t, err)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 20, resp.PerPage)
	assert.Equal(t, int64(1), resp.Total)
	require.Len(t, resp.Sessions, 1)
	assert.Equal(t, session.ID, resp.Sessions[0].ID)
}

func TestGetSessionState_ExpiresOverdueSession(t *testing.T) {
	f := newPracticeFixture(false)
	userID := uuid.New()
	session := activeSession(userID, uuid.New())
	session.ExpiresAt = fixedNow

	f.sessions.On("GetByID", mock.Anything, session.ID).Return(session, nil)
	f.answers.On("CountSessionCorrect", mock.Anything, session.ID).Return(int64(0), nil)
	f.sessions.On("Finalize", mock.Anything, mock.Anything).Return(true, nil)

	state, err := f.svc.GetSessionState(context.Background(), userID, session.ID)

	require.NoError(t, err)
	assert.Equal(t, entity.SessionStatusExpired, state.Status)
	assert.Equal(t, 0, state.RemainingSeconds(fixedNow))
}
