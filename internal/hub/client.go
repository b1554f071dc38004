package hub

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"time"

	apperrors "mate_chat/pkg/errors"
	"mate_chat/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// EventHandler processes one decoded client frame. Calls for a single
// client are sequential and follow frame order.
type EventHandler interface {
	HandleEvent(ctx context.Context, c *Client, env Envelope)
}

type ClientConfig struct {
	SendBuffer    int
	MaxFrameBytes int64
}

// Client is one authenticated WebSocket connection. The identity is fixed
// for the lifetime of the connection.
type Client struct {
	id       string
	identity string
	conn     *websocket.Conn
	router   *Router
	handler  EventHandler
	cfg      ClientConfig
	log      logger.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(conn *websocket.Conn, identity string, router *Router, handler EventHandler, cfg ClientConfig, log logger.Logger) *Client {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}
	id := uuid.NewString()
	return &Client{
		id:       id,
		identity: identity,
		conn:     conn,
		router:   router,
		handler:  handler,
		cfg:      cfg,
		log:      log.With("conn_id", id, "user_id", identity),
		send:     make(chan []byte, cfg.SendBuffer),
		done:     make(chan struct{}),
	}
}

func (c *Client) ID() string       { return c.id }
func (c *Client) Identity() string { return c.identity }

// Deliver queues frame for the writer. A full queue means the peer does not
// keep up; the connection is closed instead of blocking the room.
func (c *Client) Deliver(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		c.log.Warn("Send buffer full, closing slow connection", "buffer", cap(c.send))
		c.Close()
		return false
	}
}

// Emit sends an event to this connection only.
func (c *Client) Emit(event string, data any) bool {
	frame, err := Encode(event, data)
	if err != nil {
		c.log.Error("Failed to encode event", "error", err, "event", event)
		return false
	}
	return c.Deliver(frame)
}

// EmitError reports a failed request back to the sender.
func (c *Client) EmitError(event string, err error) bool {
	return c.Emit(EventError, ErrorPayload{Event: event, Message: apperrors.ClientMessage(err)})
}

// Close stops both pumps. Safe to call more than once and from any goroutine.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Done is closed once the connection starts shutting down.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Run serves the connection until the peer goes away or Close is called.
// Memberships are released before Run returns. Router.Wait covers the whole
// call, including an event that is still being handled.
func (c *Client) Run(ctx context.Context) {
	// Обработка уже принятых событий не должна прерываться при обрыве запроса
	ctx = context.WithoutCancel(ctx)

	if !c.router.attach(c) {
		c.log.Info("Router closed, rejecting connection")
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = c.conn.Close()
		return
	}
	c.log.Info("Client connected")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump()
	}()

	c.readPump(ctx)

	c.Close()
	<-writerDone
	c.router.detach(c)
	c.log.Info("Client disconnected")
}

func (c *Client) readPump(ctx context.Context) {
	if c.cfg.MaxFrameBytes > 0 {
		c.conn.SetReadLimit(c.cfg.MaxFrameBytes)
	}
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn("Failed to set read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
			c.log.Debug("Discarding malformed frame", "error", err)
			c.EmitError("", apperrors.ErrInvalidEvent)
			continue
		}

		c.handler.HandleEvent(ctx, c, env)
	}
}

func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("Frame exceeded read limit", "limit", c.cfg.MaxFrameBytes)
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		c.log.Debug("Peer closed connection", "error", err)
	case websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure):
		c.log.Warn("Unexpected close", "error", err)
	case errors.Is(err, net.ErrClosed):
		// закрыто нами
	default:
		c.log.Debug("Read stopped", "error", err)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			c.log.Debug("Failed to close connection", "error", err)
		}
	}()

	for {
		select {
		case frame := <-c.send:
			if !c.write(websocket.TextMessage, frame) {
				c.Close()
				return
			}
		case <-ticker.C:
			if !c.write(websocket.PingMessage, nil) {
				c.Close()
				return
			}
		case <-c.done:
			c.drain()
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// drain flushes frames queued before shutdown, such as a final error event.
func (c *Client) drain() {
	for {
		select {
		case frame := <-c.send:
			if !c.write(websocket.TextMessage, frame) {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(messageType int, payload []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.log.Debug("Failed to set write deadline", "error", err)
		return false
	}
	if err := c.conn.WriteMessage(messageType, payload); err != nil {
		if !errors.Is(err, net.ErrClosed) {
			c.log.Debug("Write failed", "error", err)
		}
		return false
	}
	return true
}
