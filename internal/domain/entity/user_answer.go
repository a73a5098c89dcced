package entity

import (
	"time"

	"github.com/google/uuid"
)

// AnswerRecord - одна попытка ответа пользователя на вопрос.
// SessionID пуст для ответов, данных вне практической сессии.
type AnswerRecord struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	QuestionID uuid.UUID      `gorm:"type:uuid;not null;index" json:"question_id"`
	SessionID  *uuid.UUID     `gorm:"type:uuid" json:"session_id,omitempty"`
	Response   AnswerResponse `gorm:"type:jsonb;not null" json:"response"`
	IsCorrect  bool           `gorm:"not null" json:"is_correct"`
	AnsweredAt time.Time      `gorm:"not null;index" json:"answered_at"`
	Question   *Question      `gorm:"foreignKey:QuestionID" json:"question,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (AnswerRecord) TableName() string {
	return "user_answers"
}

// QuestionStat - агрегированная статистика ответов по вопросу
type QuestionStat struct {
	QuestionID uuid.UUID `json:"question_id"`
	Attempts   int       `json:"attempts"`
	Correct    int       `json:"correct"`
}

// Accuracy возвращает долю правильных ответов или 0 при отсутствии попыток
func (s QuestionStat) Accuracy() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Attempts)
}

// DomainStat - статистика пользователя по домену экзамена
type DomainStat struct {
	ExamType ExamType `json:"exam_type"`
	Domain   string   `json:"domain"`
	Answered int64    `json:"answered"`
	Correct  int64    `json:"correct"`
}

// Accuracy возвращает долю правильных ответов в домене
func (s DomainStat) Accuracy() float64 {
	if s.Answered == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Answered)
}

// GroupCount - количество записей в группе, используется для дашборда
type GroupCount struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}
