package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/quizforge/quizforge-backend/internal/config"
	"github.com/quizforge/quizforge-backend/internal/middleware"
	"github.com/quizforge/quizforge-backend/internal/model"
	"github.com/quizforge/quizforge-backend/internal/response"
	"github.com/quizforge/quizforge-backend/internal/service"
	ws "github.com/quizforge/quizforge-backend/internal/websocket"
)

const monitorTickInterval = 5 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// MonitorHandler streams live session activity to the owning host over
// a WebSocket: join events relayed from Redis, periodic participant
// counts, and a final notice when the session window closes.
type MonitorHandler struct {
	sessionService *service.SessionService
	rdb            *redis.Client
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(sessionService *service.SessionService, rdb *redis.Client, log zerolog.Logger, allowedOrigins []string) *MonitorHandler {
	return &MonitorHandler{
		sessionService: sessionService,
		rdb:            rdb,
		log:            log.With().Str("component", "monitor_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// MonitorSession godoc
// WS /ws/v1/sessions/:session_id/monitor?token=...
// Upgrades to a WebSocket that mirrors the session's Redis event
// channel for its owning host.
func (h *MonitorHandler) MonitorSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	// Ownership is checked before the upgrade so rejections stay plain HTTP.
	session, err := h.sessionService.GetOwnedSession(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		failSessionError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pubsub := h.rdb.Subscribe(ctx, config.CacheKey.SessionEventsChannel(sessionID.String()))
	defer pubsub.Close()

	// Drain reads so close frames from the client are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	mLog := h.log.With().
		Int("host_id", claims.UserID).
		Str("session_id", sessionID.String()).
		Logger()
	mLog.Info().Msg("monitor connected")

	ticker := time.NewTicker(monitorTickInterval)
	defer ticker.Stop()

	expiry := time.NewTimer(time.Until(session.EndTime))
	defer expiry.Stop()

	// Immediate snapshot so the host does not stare at a blank screen
	// until the first tick.
	if err := h.writeTick(ctx, conn, session); err != nil {
		return
	}

	events := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			mLog.Info().Msg("monitor disconnected")
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			if err := ws.WriteRaw(conn, []byte(msg.Payload)); err != nil {
				mLog.Warn().Err(err).Msg("relay event failed")
				return
			}
		case <-ticker.C:
			if err := h.writeTick(ctx, conn, session); err != nil {
				return
			}
		case <-expiry.C:
			_ = ws.WriteTyped(conn, ws.SessionExpiredEvent{Event: ws.EventSessionExpired})
			mLog.Info().Msg("session window closed, ending monitor stream")
			return
		}
	}
}

func (h *MonitorHandler) writeTick(ctx context.Context, conn *websocket.Conn, session *model.Session) error {
	count, err := h.sessionService.ParticipantCount(ctx, session.ID)
	if err != nil {
		count = 0
	}

	remaining := int(time.Until(session.EndTime).Seconds())
	if remaining < 0 {
		remaining = 0
	}

	return ws.WriteTyped(conn, ws.TickEvent{
		Event:            ws.EventTick,
		ParticipantCount: count,
		RemainingSeconds: remaining,
	})
}
