package repository

import "errors"

var (
	// ErrDuplicateAnswer означает, что ответ на вопрос в этой сессии уже сохранен
	ErrDuplicateAnswer = errors.New("answer already recorded for this session question")
	// ErrDuplicateUser означает, что пользователь с таким ID или email уже существует
	ErrDuplicateUser = errors.New("user already exists")
)
