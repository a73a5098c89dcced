package helper

import (
	"sort"

	"github.com/yourusername/examprep-api/internal/domain/entity"
)

// QuestionOption представляет вариант ответа для фронтенда без признака правильности
type QuestionOption struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

// ConvertOptionsToObjects скрывает правильность и порядок вариантов.
// Для drag_and_drop варианты сортируются по тексту, чтобы порядок не подсказывал ответ.
func ConvertOptionsToObjects(questionType entity.QuestionType, options []entity.AnswerOption) []QuestionOption {
	converted := make([]QuestionOption, len(options))
	for i, opt := range options {
		converted[i] = QuestionOption{ID: opt.ID, Text: opt.Text}
	}
	if questionType == entity.QuestionTypeDragAndDrop {
		sort.SliceStable(converted, func(i, j int) bool {
			if converted[i].Text == converted[j].Text {
				return converted[i].ID < converted[j].ID
			}
			return converted[i].Text < converted[j].Text
		})
	}
	return converted
}

// NormalizePagination приводит параметры пагинации к допустимым значениям
func NormalizePagination(page, pageSize int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	} else if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize, (page - 1) * pageSize
}
