package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/yourusername/examprep-api/internal/domain/entity"
	"github.com/yourusername/examprep-api/internal/domain/repository"
	"github.com/yourusername/examprep-api/internal/handler/dto"
	"github.com/yourusername/examprep-api/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestGinContext создает *gin.Context для тестов с JSON body
func newTestGinContext(method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()

	var req *http.Request
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		req, _ = http.NewRequest(method, path, bytes.NewReader(bodyBytes))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c, w
}

// parseJSONResponse парсит JSON ответ из *httptest.ResponseRecorder
func parseJSONResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err, "Response body should be valid JSON: %s", w.Body.String())
	return resp
}

// MockPracticeService - мок PracticeService
type MockPracticeService struct {
	mock.Mock
}

func (m *MockPracticeService) StartSession(ctx context.Context, userID uuid.UUID, in service.StartSessionInput) (*dto.SessionResponse, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.SessionResponse), args.Error(1)
}

func (m *MockPracticeService) GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*dto.SessionResponse, error) {
	args := m.Called(ctx, userID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.SessionResponse), args.Error(1)
}

func (m *MockPracticeService) SubmitAnswer(ctx context.Context, userID, sessionID, questionID uuid.UUID, response entity.AnswerResponse) (*dto.AnswerFeedbackResponse, error) {
	args := m.Called(ctx, userID, sessionID, questionID, response)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.AnswerFeedbackResponse), args.Error(1)
}

func (m *MockPracticeService) FinishSession(ctx context.Context, userID, sessionID uuid.UUID) (*dto.SessionResponse, error) {
	args := m.Called(ctx, userID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.SessionResponse), args.Error(1)
}

func (m *MockPracticeService) ListSessions(ctx context.Context, userID uuid.UUID, page, pageSize int) (*dto.PaginatedSessionsResponse, error) {
	args := m.Called(ctx, userID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.PaginatedSessionsResponse), args.Error(1)
}

// MockQuestionService - мок QuestionService
type MockQuestionService struct {
	mock.Mock
}

func (m *MockQuestionService) CreateQuestion(ctx context.Context, actorID uuid.UUID, q entity.Question) (*entity.Question, error) {
	args := m.Called(ctx, actorID, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Question), args.Error(1)
}

func (m *MockQuestionService) BulkCreate(ctx context.Context, actorID uuid.UUID, questions []entity.Question) (int, error) {
	args := m.Called(ctx, actorID, questions)
	return args.Int(0), args.Error(1)
}

func (m *MockQuestionService) GetQuestion(ctx context.Context, id uuid.UUID) (*entity.Question, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Question), args.Error(1)
}

func (m *MockQuestionService) UpdateQuestion(ctx context.Context, id uuid.UUID, q entity.Question) (*entity.Question, error) {
	args := m.Called(ctx, id, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Question), args.Error(1)
}

func (m *MockQuestionService) DeleteQuestion(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockQuestionService) ListQuestions(ctx context.Context, filter repository.QuestionFilter, page, pageSize int) (*dto.PaginatedQuestionsResponse, error) {
	args := m.Called(ctx, filter, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.PaginatedQuestionsResponse), args.Error(1)
}

func (m *MockQuestionService) ListAllQuestions(ctx context.Context, filter repository.QuestionFilter) ([]entity.Question, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

func (m *MockQuestionService) GetDashboard(ctx context.Context) (*dto.DashboardResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.DashboardResponse), args.Error(1)
}

func (m *MockQuestionService) UploadImage(ctx context.Context, id uuid.UUID, contentType string, size int64, reader io.Reader) (*entity.Question, error) {
	args := m.Called(ctx, id, contentType, size, reader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Question), args.Error(1)
}

// MockDomainLister - мок DomainLister
type MockDomainLister struct {
	mock.Mock
}

func (m *MockDomainLister) GetExamDomains(ctx context.Context, examType entity.ExamType) []string {
	args := m.Called(ctx, examType)
	return args.Get(0).([]string)
}

// MockHistoryService - мок HistoryService
type MockHistoryService struct {
	mock.Mock
}

func (m *MockHistoryService) ListAnswerHistory(ctx context.Context, userID uuid.UUID, page, pageSize int) (*dto.PaginatedAnswersResponse, error) {
	args := m.Called(ctx, userID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.PaginatedAnswersResponse), args.Error(1)
}

func (m *MockHistoryService) GetUserStats(ctx context.Context, userID uuid.UUID, examType entity.ExamType) (*dto.UserStatsResponse, error) {
	args := m.Called(ctx, userID, examType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.UserStatsResponse), args.Error(1)
}

func (m *MockHistoryService) GetStudentStats(ctx context.Context, studentID uuid.UUID, examType entity.ExamType) (*dto.UserStatsResponse, error) {
	args := m.Called(ctx, studentID, examType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.UserStatsResponse), args.Error(1)
}

func (m *MockHistoryService) ListStudentAnswers(ctx context.Context, studentID uuid.UUID, page, pageSize int) (*dto.PaginatedAnswersResponse, error) {
	args := m.Called(ctx, studentID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.PaginatedAnswersResponse), args.Error(1)
}

func (m *MockHistoryService) GetStudentAnalytics(ctx context.Context, studentID uuid.UUID) (datatypes.JSON, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(datatypes.JSON), args.Error(1)
}

// MockUserService - мок UserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) GetUser(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, id uuid.UUID, displayName string) (*entity.User, error) {
	args := m.Called(ctx, id, displayName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserService) ListUsers(ctx context.Context, roleFilter, search string, page, pageSize int) (*dto.PaginatedUsersResponse, error) {
	args := m.Called(ctx, roleFilter, search, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.PaginatedUsersResponse), args.Error(1)
}

func (m *MockUserService) UpdateRole(ctx context.Context, actorID, targetID uuid.UUID, roleValue string) (*entity.User, error) {
	args := m.Called(ctx, actorID, targetID, roleValue)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}
