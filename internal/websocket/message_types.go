package websocket

// Типы сообщений таймера практической сессии
const (
	// SESSION_TICK сообщает оставшееся время сессии
	SESSION_TICK = "SESSION_TICK"

	// SESSION_EXPIRED сообщает, что время вышло и сессия завершена автоматически
	SESSION_EXPIRED = "SESSION_EXPIRED"

	// SESSION_FINISHED сообщает, что сессия завершена пользователем
	SESSION_FINISHED = "SESSION_FINISHED"
)

// Message - сообщение, отправляемое клиенту
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// TickData - полезная нагрузка SESSION_TICK
type TickData struct {
	SessionID    string `json:"session_id"`
	RemainingSec int    `json:"remaining_sec"`
}

// ResultData - полезная нагрузка SESSION_EXPIRED и SESSION_FINISHED
type ResultData struct {
	SessionID    string `json:"session_id"`
	Status       string `json:"status"`
	CorrectCount int    `json:"correct_count"`
	Score        int    `json:"score"`
	Passed       bool   `json:"passed"`
}
