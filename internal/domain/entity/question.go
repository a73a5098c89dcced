package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExamType определяет сертификационный экзамен, к которому относится вопрос
type ExamType string

const (
	ExamTypeENCOR  ExamType = "ENCOR"
	ExamTypeENARSI ExamType = "ENARSI"
	// ExamTypeBoth отключает фильтр по экзамену при выборке
	ExamTypeBoth ExamType = "BOTH"
)

// ParseExamType нормализует строку в ExamType. Регистр не важен.
func ParseExamType(s string) (ExamType, bool) {
	t := ExamType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case ExamTypeENCOR, ExamTypeENARSI, ExamTypeBoth:
		return t, true
	}
	return "", false
}

// IsConcrete возвращает true для конкретного экзамена (не BOTH)
func (t ExamType) IsConcrete() bool {
	return t == ExamTypeENCOR || t == ExamTypeENARSI
}

// QuestionType определяет формат вопроса и способ проверки ответа
type QuestionType string

const (
	QuestionTypeSingleChoice   QuestionType = "single_choice"
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeDragAndDrop    QuestionType = "drag_and_drop"
	QuestionTypeFillInBlank    QuestionType = "fill_in_blank"
)

// IsValid проверяет, что тип вопроса известен
func (t QuestionType) IsValid() bool {
	switch t {
	case QuestionTypeSingleChoice, QuestionTypeMultipleChoice, QuestionTypeDragAndDrop, QuestionTypeFillInBlank:
		return true
	}
	return false
}

// StringArray - пользовательский тип для работы с JSONB
type StringArray []string

// Scan реализует интерфейс sql.Scanner для StringArray
func (o *StringArray) Scan(value interface{}) error {
	if value == nil {
		*o = StringArray{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to unmarshal JSONB value: expected []byte or string")
	}

	if len(bytes) == 0 {
		*o = StringArray{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value реализует интерфейс driver.Valuer для StringArray
func (o StringArray) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(o)
}

// AnswerOption - вариант ответа. Для drag_and_drop Position задает правильный порядок.
type AnswerOption struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	QuestionID uuid.UUID `gorm:"type:uuid;not null;index" json:"question_id"`
	Text       string    `gorm:"size:500;not null" json:"text"`
	IsCorrect  bool      `gorm:"not null;default:false" json:"is_correct"`
	Position   int       `gorm:"not null;default:0" json:"position"`
}

// TableName определяет имя таблицы для GORM
func (AnswerOption) TableName() string {
	return "answer_options"
}

// Question представляет экзаменационный вопрос
type Question struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ExamType        ExamType       `gorm:"size:10;not null;index" json:"exam_type"`
	Domain          string         `gorm:"size:100;not null;index" json:"domain"`
	QuestionType    QuestionType   `gorm:"size:20;not null" json:"question_type"`
	Text            string         `gorm:"type:text;not null" json:"text"`
	Explanation     string         `gorm:"type:text;not null;default:''" json:"explanation"`
	ImageURL        string         `gorm:"size:500;not null;default:''" json:"image_url"`
	AcceptedAnswers StringArray    `gorm:"type:jsonb;not null" json:"accepted_answers"`
	CreatedBy       *uuid.UUID     `gorm:"type:uuid" json:"created_by,omitempty"`
	Options         []AnswerOption `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"options"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// BeforeCreate назначает UUID, если он не задан
func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// AnswerResponse - ответ пользователя на вопрос.
// OptionIDs используется для choice и drag_and_drop (в порядке пользователя), Text - для fill_in_blank.
type AnswerResponse struct {
	OptionIDs []uint `json:"option_ids,omitempty"`
	Text      string `json:"text,omitempty"`
}

// Scan реализует интерфейс sql.Scanner для AnswerResponse
func (r *AnswerResponse) Scan(value interface{}) error {
	if value == nil {
		*r = AnswerResponse{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to unmarshal JSONB value: expected []byte or string")
	}
	if len(bytes) == 0 {
		*r = AnswerResponse{}
		return nil
	}
	return json.Unmarshal(bytes, r)
}

// Value реализует интерфейс driver.Valuer для AnswerResponse
func (r AnswerResponse) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// IsCorrect проверяет ответ в зависимости от типа вопроса
func (q *Question) IsCorrect(resp AnswerResponse) bool {
	switch q.QuestionType {
	case QuestionTypeSingleChoice:
		if len(resp.OptionIDs) != 1 {
			return false
		}
		correct := q.CorrectOptionIDs()
		return len(correct) == 1 && correct[0] == resp.OptionIDs[0]
	case QuestionTypeMultipleChoice:
		return sameIDSet(q.CorrectOptionIDs(), resp.OptionIDs)
	case QuestionTypeDragAndDrop:
		expected := q.CorrectOptionIDs()
		if len(expected) != len(resp.OptionIDs) {
			return false
		}
		for i := range expected {
			if expected[i] != resp.OptionIDs[i] {
				return false
			}
		}
		return true
	case QuestionTypeFillInBlank:
		given := normalizeFreeText(resp.Text)
		if given == "" {
			return false
		}
		for _, accepted := range q.AcceptedAnswers {
			if normalizeFreeText(accepted) == given {
				return true
			}
		}
		return false
	}
	return false
}

// CorrectOptionIDs возвращает ID правильных вариантов.
// Для drag_and_drop - все варианты в правильном порядке.
func (q *Question) CorrectOptionIDs() []uint {
	if q.QuestionType == QuestionTypeDragAndDrop {
		ordered := make([]AnswerOption, len(q.Options))
		copy(ordered, q.Options)
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Position < ordered[j].Position
		})
		ids := make([]uint, len(ordered))
		for i, opt := range ordered {
			ids[i] = opt.ID
		}
		return ids
	}

	ids := make([]uint, 0, 1)
	for _, opt := range q.Options {
		if opt.IsCorrect {
			ids = append(ids, opt.ID)
		}
	}
	return ids
}

// HasOption проверяет, принадлежит ли вариант вопросу
func (q *Question) HasOption(optionID uint) bool {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}

func sameIDSet(expected, given []uint) bool {
	if len(expected) == 0 || len(expected) != len(given) {
		return false
	}
	seen := make(map[uint]struct{}, len(expected))
	for _, id := range expected {
		seen[id] = struct{}{}
	}
	for _, id := range given {
		if _, ok := seen[id]; !ok {
			return false
		}
		delete(seen, id)
	}
	return len(seen) == 0
}

// normalizeFreeText приводит ответ к нижнему регистру и схлопывает пробелы
func normalizeFreeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
