package ws

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/guildsync/backend/internal/auth"
)

// Handler upgrades dashboard connections into hub observers
type Handler struct {
	hub            *Hub
	jwtService     *auth.JWTService
	allowedOrigins []string
	logger         zerolog.Logger
}

// NewHandler creates a new observer connection handler
func NewHandler(hub *Hub, jwtService *auth.JWTService, allowedOrigins []string, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:            hub,
		jwtService:     jwtService,
		allowedOrigins: allowedOrigins,
		logger:         logger,
	}
}

// HandleWebSocket handles observer upgrade requests
func (h *Handler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token required"})
		return
	}

	if _, err := h.jwtService.ValidateToken(token); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(h.allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return false
			}
			for _, pattern := range h.allowedOrigins {
				if matchOrigin(pattern, origin) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to upgrade observer connection")
		return
	}

	obs := NewObserver(h.hub, conn)
	h.hub.Register(obs)

	go obs.WritePump()
	go obs.ReadPump()
}

// GetObservers reports the live observer count (for admin/diagnostics)
func (h *Handler) GetObservers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"observers": h.hub.Count()})
}

// matchOrigin supports exact matches or wildcard patterns like *.example.com
func matchOrigin(pattern, origin string) bool {
	if pattern == origin {
		return true
	}
	if strings.HasPrefix(pattern, "*.") {
		originHost := origin
		if u, err := url.Parse(origin); err == nil {
			originHost = u.Hostname()
		}
		patHost := strings.TrimPrefix(pattern, "*.")
		if strings.HasSuffix(originHost, patHost) {
			return true
		}
	}
	return false
}
