package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/yourusername/examprep-api/internal/domain/entity"
	"github.com/yourusername/examprep-api/pkg/monitoring"
)

const (
	// Максимальный размер входящего сообщения. Клиент ничего не присылает, кроме служебных кадров.
	maxMessageSize = 512

	// Размер буфера канала отправки
	sendBufferSize = 8
)

// SessionStateSource отдает актуальное состояние сессии.
// Просроченная сессия должна завершаться источником при чтении.
type SessionStateSource interface {
	GetSessionState(ctx context.Context, userID, sessionID uuid.UUID) (*entity.PracticeSession, error)
	Now() time.Time
}

// TimerConfig содержит интервалы таймера и keepalive
type TimerConfig struct {
	// TickInterval - период отправки SESSION_TICK
	TickInterval time.Duration

	// PongWait определяет время ожидания pong-ответа
	PongWait time.Duration

	// PingInterval определяет интервал между ping-сообщениями
	PingInterval time.Duration

	// WriteWait определяет тайм-аут для записи сообщений
	WriteWait time.Duration
}

// DefaultTimerConfig возвращает настройки по умолчанию
func DefaultTimerConfig() TimerConfig {
	return TimerConfig{
		TickInterval: time.Second,
		PongWait:     30 * time.Second,
		PingInterval: 27 * time.Second,
		WriteWait:    10 * time.Second,
	}
}

// TimerClient транслирует клиенту оставшееся время одной сессии
type TimerClient struct {
	conn         *websocket.Conn
	source       SessionStateSource
	config       TimerConfig
	UserID       uuid.UUID
	SessionID    uuid.UUID
	ConnectionID string

	send     chan []byte
	done     chan struct{}
	stopOnce sync.Once
}

// NewTimerClient создает клиента таймера для открытого соединения
func NewTimerClient(conn *websocket.Conn, source SessionStateSource, userID, sessionID uuid.UUID, config TimerConfig) *TimerClient {
	return &TimerClient{
		conn:         conn,
		source:       source,
		config:       config,
		UserID:       userID,
		SessionID:    sessionID,
		ConnectionID: uuid.NewString(),
		send:         make(chan []byte, sendBufferSize),
		done:         make(chan struct{}),
	}
}

// Run блокируется, пока сессия не завершится или клиент не отключится
func (c *TimerClient) Run(ctx context.Context) {
	monitoring.ActiveTimerSockets.Inc()
	defer monitoring.ActiveTimerSockets.Dec()

	log.Printf("[SessionTimer] Started for UserID: %s, SessionID: %s, ConnID: %s", c.UserID, c.SessionID, c.ConnectionID)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.writePump()
	}()
	go func() {
		defer wg.Done()
		c.readPump()
	}()

	c.tickLoop(ctx)
	wg.Wait()

	log.Printf("[SessionTimer] Stopped for UserID: %s, SessionID: %s, ConnID: %s", c.UserID, c.SessionID, c.ConnectionID)
}

func (c *TimerClient) stop() {
	c.stopOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// tickLoop - единственный отправитель в канал send, поэтому закрывает его при выходе
func (c *TimerClient) tickLoop(ctx context.Context) {
	defer close(c.send)

	ticker := time.NewTicker(c.config.TickInterval)
	defer ticker.Stop()

	for {
		session, err := c.source.GetSessionState(ctx, c.UserID, c.SessionID)
		if err != nil {
			log.Printf("[SessionTimer] ERROR: cannot read session %s: %v", c.SessionID, err)
			return
		}

		msg, final := nextTimerEvent(session, c.source.Now())
		payload, err := json.Marshal(msg)
		if err != nil {
			log.Printf("[SessionTimer] ERROR: marshal %s: %v", msg.Type, err)
			return
		}

		select {
		case c.send <- payload:
		case <-c.done:
			return
		}
		if final {
			return
		}

		select {
		case <-ticker.C:
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// readPump нужен только для обработки pong и обнаружения отключения клиента
func (c *TimerClient) readPump() {
	defer c.stop()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("[SessionTimer] Read error (UserID: %s, ConnID: %s): %v", c.UserID, c.ConnectionID, err)
			}
			return
		}
	}
}

// writePump отправляет сообщения из канала send и ping-кадры
func (c *TimerClient) writePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.stop()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait)); err != nil {
				return
			}
			if !ok {
				// сессия завершена или клиент ушел
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[SessionTimer] Write error (UserID: %s, ConnID: %s): %v", c.UserID, c.ConnectionID, err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[SessionTimer] Ping error (UserID: %s, ConnID: %s): %v", c.UserID, c.ConnectionID, err)
				return
			}
		}
	}
}

// nextTimerEvent определяет сообщение для текущего состояния сессии.
// Второй результат true, если сообщение последнее.
func nextTimerEvent(session *entity.PracticeSession, now time.Time) (Message, bool) {
	result := ResultData{
		SessionID:    session.ID.String(),
		Status:       session.Status,
		CorrectCount: session.CorrectCount,
		Score:        session.Score,
		Passed:       session.Passed,
	}

	switch session.Status {
	case entity.SessionStatusInProgress:
		remaining := session.RemainingSeconds(now)
		if remaining > 0 {
			return Message{Type: SESSION_TICK, Data: TickData{SessionID: session.ID.String(), RemainingSec: remaining}}, false
		}
		return Message{Type: SESSION_EXPIRED, Data: result}, true
	case entity.SessionStatusExpired:
		return Message{Type: SESSION_EXPIRED, Data: result}, true
	default:
		return Message{Type: SESSION_FINISHED, Data: result}, true
	}
}
