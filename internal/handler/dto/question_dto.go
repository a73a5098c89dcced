package dto

import (
	"strings"

	"github.com/yourusername/examprep-api/internal/domain/entity"
)

// AnswerOptionRequest - вариант ответа в запросе администратора
type AnswerOptionRequest struct {
	Text      string `json:"text" binding:"required"`
	IsCorrect bool   `json:"is_correct"`
	Position  int    `json:"position"`
}

// QuestionRequest - создание или изменение вопроса
type QuestionRequest struct {
	ExamType        string                `json:"exam_type" binding:"required"`
	Domain          string                `json:"domain" binding:"required"`
	QuestionType    string                `json:"question_type" binding:"required"`
	Text            string                `json:"text" binding:"required"`
	Explanation     string                `json:"explanation"`
	AcceptedAnswers []string              `json:"accepted_answers"`
	Options         []AnswerOptionRequest `json:"options"`
}

// BulkQuestionsRequest - пакетная загрузка уже структурированных вопросов
type BulkQuestionsRequest struct {
	Questions []QuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

// ToEntity преобразует запрос в сущность. Валидация выполняется в сервисе.
func (r *QuestionRequest) ToEntity() entity.Question {
	examType, ok := entity.ParseExamType(r.ExamType)
	if !ok {
		examType = entity.ExamType(strings.TrimSpace(r.ExamType))
	}
	q := entity.Question{
		ExamType:        examType,
		Domain:          strings.TrimSpace(r.Domain),
		QuestionType:    entity.QuestionType(strings.ToLower(strings.TrimSpace(r.QuestionType))),
		Text:            strings.TrimSpace(r.Text),
		Explanation:     strings.TrimSpace(r.Explanation),
		AcceptedAnswers: entity.StringArray{},
	}
	for _, a := range r.AcceptedAnswers {
		if a = strings.TrimSpace(a); a != "" {
			q.AcceptedAnswers = append(q.AcceptedAnswers, a)
		}
	}
	for _, opt := range r.Options {
		q.Options = append(q.Options, entity.AnswerOption{
			Text:      strings.TrimSpace(opt.Text),
			IsCorrect: opt.IsCorrect,
			Position:  opt.Position,
		})
	}
	return q
}

// PaginatedQuestionsResponse - страница банка вопросов
type PaginatedQuestionsResponse struct {
	Questions []entity.Question `json:"questions"`
	Total     int64             `json:"total"`
	Page      int               `json:"page"`
	PerPage   int               `json:"per_page"`
}

// BulkCreateResponse - итог пакетной загрузки
type BulkCreateResponse struct {
	Created int `json:"created"`
}

// DashboardResponse - сводка по банку вопросов для администратора
type DashboardResponse struct {
	TotalQuestions   int64               `json:"total_questions"`
	TotalAnswers     int64               `json:"total_answers"`
	ByExamType       []entity.GroupCount `json:"by_exam_type"`
	ByDomain         []entity.GroupCount `json:"by_domain"`
	ByQuestionType   []entity.GroupCount `json:"by_question_type"`
	SessionsByStatus []entity.GroupCount `json:"sessions_by_status"`
}

// DomainsResponse - список доменов экзамена
type DomainsResponse struct {
	ExamType entity.ExamType `json:"exam_type"`
	Domains  []string        `json:"domains"`
}
