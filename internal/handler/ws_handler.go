package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"

	"github.com/yourusername/examprep-api/internal/websocket"
)

// WSHandler обрабатывает WebSocket-подключения таймера сессии
type WSHandler struct {
	source      websocket.SessionStateSource
	upgrader    gorillaws.Upgrader
	timerConfig websocket.TimerConfig
}

// NewWSHandler создает новый обработчик WebSocket
func NewWSHandler(source websocket.SessionStateSource, allowedOrigins []string) *WSHandler {
	allowAll := false
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		origins[origin] = struct{}{}
	}

	return &WSHandler{
		source:      source,
		timerConfig: websocket.DefaultTimerConfig(),
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// Нативные клиенты не присылают Origin
				if origin == "" || allowAll {
					return true
				}
				if _, ok := origins[origin]; ok {
					return true
				}
				log.Printf("[WSHandler] Rejected origin: %s", origin)
				return false
			},
		},
	}
}

// ServeSessionTimer открывает поток оставшегося времени сессии.
// Доступ к сессии проверяется до апгрейда, чтобы вернуть обычную HTTP-ошибку.
func (h *WSHandler) ServeSessionTimer(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sessionID := c.MustGet("sessionID").(uuid.UUID)

	if _, err := h.source.GetSessionState(c.Request.Context(), userID, sessionID); err != nil {
		handleError(c, "WSHandler", err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WSHandler] Upgrade failed for UserID %s: %v", userID, err)
		return
	}

	websocket.NewTimerClient(conn, h.source, userID, sessionID, h.timerConfig).Run(c.Request.Context())
}
