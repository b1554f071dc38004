package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"mate_chat/internal/config"
	"mate_chat/internal/domain"
	"mate_chat/internal/hub"
	"mate_chat/internal/middleware"
	"mate_chat/internal/service"
	apperrors "mate_chat/pkg/errors"
	"mate_chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WebSocketHandler upgrades authenticated requests and serves the chat
// protocol on them.
type WebSocketHandler struct {
	chatService      service.ChatService
	rateLimitService service.RateLimitService
	router           *hub.Router
	upgrader         websocket.Upgrader
	clientCfg        hub.ClientConfig
	rateLimit        config.RateLimitConfig
	log              logger.Logger
}

func NewWebSocketHandler(
	chatService service.ChatService,
	rateLimitService service.RateLimitService,
	router *hub.Router,
	cfg *config.Config,
	log logger.Logger,
) *WebSocketHandler {
	return &WebSocketHandler{
		chatService:      chatService,
		rateLimitService: rateLimitService,
		router:           router,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.Server.AllowedOrigins),
		},
		clientCfg: hub.ClientConfig{
			SendBuffer:    cfg.Chat.SendBuffer,
			MaxFrameBytes: cfg.Chat.MaxFrameBytes,
		},
		rateLimit: cfg.RateLimit,
		log:       log,
	}
}

// HandleConnection serves GET /ws. RequireSocketAuth has already rejected
// callers without a valid credential, so every socket here has an identity.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	identity := middleware.UserID(c)
	if identity == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("Failed to upgrade connection", "error", err, "user_id", identity)
		return
	}

	client := hub.NewClient(conn, identity, h.router, h, h.clientCfg, h.log)
	client.Run(c.Request.Context())
}

// HandleEvent dispatches one client frame. Failures are reported to the
// sender only.
func (h *WebSocketHandler) HandleEvent(ctx context.Context, c *hub.Client, env hub.Envelope) {
	var err error
	switch env.Event {
	case hub.EventJoinRoom:
		err = h.joinRoom(c, env)
	case hub.EventLeaveRoom:
		err = h.leaveRoom(c, env)
	case hub.EventGetChatHistory:
		err = h.getChatHistory(ctx, c, env)
	case hub.EventSendMessage:
		err = h.sendMessage(ctx, c, env)
	default:
		err = apperrors.ErrInvalidEvent
	}

	if err == nil {
		return
	}
	if apperrors.HTTPStatusFromError(err) >= http.StatusInternalServerError {
		h.log.Error("Event failed", "error", err, "event", env.Event, "user_id", c.Identity())
	} else {
		h.log.Debug("Event rejected", "error", err, "event", env.Event, "user_id", c.Identity())
	}
	c.EmitError(env.Event, err)
}

func decodeRoom(env hub.Envelope) (string, error) {
	var payload hub.RoomPayload
	if err := env.DecodeData(&payload); err != nil {
		return "", apperrors.ErrInvalidEvent
	}
	if err := domain.ValidateRoomID(payload.RoomID); err != nil {
		return "", err
	}
	return payload.RoomID, nil
}

func (h *WebSocketHandler) joinRoom(c *hub.Client, env hub.Envelope) error {
	roomID, err := decodeRoom(env)
	if err != nil {
		return err
	}
	if err := h.router.Join(c, roomID); err != nil {
		return err
	}
	c.Emit(hub.EventJoinedRoom, hub.RoomPayload{RoomID: roomID})
	return nil
}

func (h *WebSocketHandler) leaveRoom(c *hub.Client, env hub.Envelope) error {
	roomID, err := decodeRoom(env)
	if err != nil {
		return err
	}
	h.router.Leave(c, roomID)
	c.Emit(hub.EventLeftRoom, hub.RoomPayload{RoomID: roomID})
	return nil
}

func (h *WebSocketHandler) getChatHistory(ctx context.Context, c *hub.Client, env hub.Envelope) error {
	var req hub.HistoryRequest
	if err := env.DecodeData(&req); err != nil {
		return apperrors.ErrInvalidEvent
	}

	page, err := h.chatService.GetHistory(ctx, req.RoomID, req.Cursor, req.Limit)
	if err != nil {
		return err
	}
	c.Emit(hub.EventChatHistory, page)
	return nil
}

func (h *WebSocketHandler) sendMessage(ctx context.Context, c *hub.Client, env hub.Envelope) error {
	var req hub.SendMessageRequest
	if err := env.DecodeData(&req); err != nil {
		return apperrors.ErrInvalidEvent
	}

	if h.rateLimit.Enabled {
		allowed, _ := h.rateLimitService.Allow(ctx, "msg:"+c.Identity(), h.rateLimit.Messages, h.rateLimit.Window)
		if !allowed {
			return apperrors.ErrRateLimited
		}
	}

	// Отправитель всегда берётся из соединения, не из payload
	_, err := h.chatService.SendMessage(ctx, c.Identity(), req.RoomID, req.ReceiverID, req.Message)
	return err
}

// originChecker allows requests without an Origin header (native clients)
// and browser origins from the configured list. "*" allows every origin.
func originChecker(allowed []string) func(r *http.Request) bool {
	origins := make(map[string]struct{}, len(allowed))
	allowAll := len(allowed) == 0
	for _, origin := range allowed {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			allowAll = true
			continue
		}
		if normalized, ok := normalizeOrigin(origin); ok {
			origins[normalized] = struct{}{}
		}
	}

	return func(r *http.Request) bool {
		header := r.Header.Get("Origin")
		if header == "" || allowAll {
			return true
		}
		normalized, ok := normalizeOrigin(header)
		if !ok {
			return false
		}
		_, exists := origins[normalized]
		return exists
	}
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}
