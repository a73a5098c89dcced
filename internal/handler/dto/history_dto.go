package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/examprep-api/internal/domain/entity"
	"github.com/yourusername/examprep-api/internal/domain/repository"
)

// AnswerHistoryItem - ответ пользователя вместе с данными вопроса
type AnswerHistoryItem struct {
	ID           uint                  `json:"id"`
	QuestionID   uuid.UUID             `json:"question_id"`
	SessionID    *uuid.UUID            `json:"session_id,omitempty"`
	ExamType     entity.ExamType       `json:"exam_type,omitempty"`
	Domain       string                `json:"domain,omitempty"`
	QuestionType entity.QuestionType   `json:"question_type,omitempty"`
	QuestionText string                `json:"question_text,omitempty"`
	Response     entity.AnswerResponse `json:"response"`
	IsCorrect    bool                  `json:"is_correct"`
	AnsweredAt   time.Time             `json:"answered_at"`
}

// PaginatedAnswersResponse - страница истории ответов
type PaginatedAnswersResponse struct {
	Answers []AnswerHistoryItem `json:"answers"`
	Total   int64               `json:"total"`
	Page    int                 `json:"page"`
	PerPage int                 `json:"per_page"`
}

// DomainStatResponse - точность пользователя в домене
type DomainStatResponse struct {
	ExamType entity.ExamType `json:"exam_type"`
	Domain   string          `json:"domain"`
	Answered int64           `json:"answered"`
	Correct  int64           `json:"correct"`
	Accuracy float64         `json:"accuracy"`
}

// UserStatsResponse - сводная статистика пользователя
type UserStatsResponse struct {
	UserID        uuid.UUID                 `json:"user_id"`
	ExamType      entity.ExamType           `json:"exam_type"`
	TotalAnswered int64                     `json:"total_answered"`
	TotalCorrect  int64                     `json:"total_correct"`
	Accuracy      float64                   `json:"accuracy"`
	Domains       []DomainStatResponse      `json:"domains"`
	Sessions      repository.SessionSummary `json:"sessions"`
}

// NewAnswerHistoryItem создает DTO записи истории
func NewAnswerHistoryItem(r *entity.AnswerRecord) AnswerHistoryItem {
	item := AnswerHistoryItem{
		ID:         r.ID,
		QuestionID: r.QuestionID,
		SessionID:  r.SessionID,
		Response:   r.Response,
		IsCorrect:  r.IsCorrect,
		AnsweredAt: r.AnsweredAt,
	}
	if r.Question != nil {
		item.ExamType = r.Question.ExamType
		item.Domain = r.Question.Domain
		item.QuestionType = r.Question.QuestionType
		item.QuestionText = r.Question.Text
	}
	return item
}
