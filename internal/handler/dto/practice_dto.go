package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/examprep-api/internal/domain/entity"
	"github.com/yourusername/examprep-api/internal/handler/helper"
)

// StartSessionRequest - запрос на запуск практической сессии
type StartSessionRequest struct {
	ExamType         string `json:"exam_type" binding:"required"`
	Mode             string `json:"mode"`
	Domain           string `json:"domain"`
	Count            int    `json:"count" binding:"omitempty,min=1"`
	TimeLimitMinutes int    `json:"time_limit_minutes" binding:"omitempty,min=1"`
}

// SubmitAnswerRequest - ответ на вопрос сессии
type SubmitAnswerRequest struct {
	QuestionID string `json:"question_id" binding:"required,uuid"`
	OptionIDs  []uint `json:"option_ids"`
	Text       string `json:"text"`
}

// SessionQuestionResponse - вопрос сессии без правильных ответов
type SessionQuestionResponse struct {
	ID           uuid.UUID               `json:"id"`
	ExamType     entity.ExamType         `json:"exam_type"`
	Domain       string                  `json:"domain"`
	QuestionType entity.QuestionType     `json:"question_type"`
	Text         string                  `json:"text"`
	ImageURL     string                  `json:"image_url,omitempty"`
	Options      []helper.QuestionOption `json:"options"`
	Answered     bool                    `json:"answered"`
}

// SessionResponse - состояние практической сессии
type SessionResponse struct {
	ID            uuid.UUID                 `json:"id"`
	ExamType      entity.ExamType           `json:"exam_type"`
	Mode          entity.SelectionMode      `json:"mode"`
	Domain        string                    `json:"domain,omitempty"`
	Status        string                    `json:"status"`
	QuestionCount int                       `json:"question_count"`
	AnsweredCount int                       `json:"answered_count"`
	TimeLimitSec  int                       `json:"time_limit_sec"`
	RemainingSec  int                       `json:"remaining_sec"`
	StartedAt     time.Time                 `json:"started_at"`
	ExpiresAt     time.Time                 `json:"expires_at"`
	FinishedAt    *time.Time                `json:"finished_at,omitempty"`
	CorrectCount  int                       `json:"correct_count"`
	Score         int                       `json:"score"`
	Passed        bool                      `json:"passed"`
	Questions     []SessionQuestionResponse `json:"questions,omitempty"`
}

// AnswerFeedbackResponse - результат проверки ответа
type AnswerFeedbackResponse struct {
	QuestionID       uuid.UUID `json:"question_id"`
	IsCorrect        bool      `json:"is_correct"`
	CorrectOptionIDs []uint    `json:"correct_option_ids"`
	AcceptedAnswers  []string  `json:"accepted_answers,omitempty"`
	Explanation      string    `json:"explanation"`
	AnsweredCount    int       `json:"answered_count"`
	QuestionCount    int       `json:"question_count"`
}

// PaginatedSessionsResponse - страница сессий пользователя
type PaginatedSessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PerPage  int               `json:"per_page"`
}

// NewSessionResponse создает DTO сессии без списка вопросов
func NewSessionResponse(s *entity.PracticeSession, answered int, now time.Time) SessionResponse {
	return SessionResponse{
		ID:            s.ID,
		ExamType:      s.ExamType,
		Mode:          s.Mode,
		Domain:        s.Domain,
		Status:        s.Status,
		QuestionCount: s.QuestionCount,
		AnsweredCount: answered,
		TimeLimitSec:  s.TimeLimitSec,
		RemainingSec:  s.RemainingSeconds(now),
		StartedAt:     s.StartedAt,
		ExpiresAt:     s.ExpiresAt,
		FinishedAt:    s.FinishedAt,
		CorrectCount:  s.CorrectCount,
		Score:         s.Score,
		Passed:        s.Passed,
	}
}

// NewSessionQuestionResponse создает DTO вопроса сессии
func NewSessionQuestionResponse(q *entity.Question, answered bool) SessionQuestionResponse {
	return SessionQuestionResponse{
		ID:           q.ID,
		ExamType:     q.ExamType,
		Domain:       q.Domain,
		QuestionType: q.QuestionType,
		Text:         q.Text,
		ImageURL:     q.ImageURL,
		Options:      helper.ConvertOptionsToObjects(q.QuestionType, q.Options),
		Answered:     answered,
	}
}
