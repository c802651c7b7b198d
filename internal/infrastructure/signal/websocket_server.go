package signal

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"callroom/internal/core/domain"
	"callroom/internal/core/ports"
	"callroom/pkg/config"
	apperrors "callroom/pkg/errors"
	rlog "callroom/pkg/logger"
	"callroom/pkg/tracing"
	"callroom/pkg/utils"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config holds the transport settings.
type Config struct {
	PingInterval      time.Duration
	PongTimeout       time.Duration
	WriteTimeout      time.Duration
	SendQueueSize     int
	MaxMessageSize    int64
	MessagesPerSecond float64
	MessageBurst      int
	AllowedOrigins    []string
}

func ConfigFrom(cfg *config.Config) Config {
	return Config{
		PingInterval:      cfg.Signal.PingInterval,
		PongTimeout:       cfg.Signal.PongTimeout,
		WriteTimeout:      cfg.Signal.WriteTimeout,
		SendQueueSize:     cfg.Signal.SendQueueSize,
		MaxMessageSize:    cfg.RateLimiting.WebSocket.MaxMessageSizeBytes,
		MessagesPerSecond: cfg.RateLimiting.WebSocket.MessagesPerSecond,
		MessageBurst:      cfg.RateLimiting.WebSocket.Burst,
		AllowedOrigins:    cfg.Auth.AllowedOrigins,
	}
}

// Services are the room operations reachable over the socket.
type Services struct {
	Lifecycle ports.LifecycleService
	Rooms     ports.RoomService
	Admission ports.AdmissionService
	Relay     ports.SignalRelay
	Calls     ports.CallService
}

// Observer receives transport measurements.
type Observer interface {
	ConnectionOpened()
	ConnectionClosed()
	EventHandled(event string, code int, duration time.Duration)
}

type noopObserver struct{}

func (noopObserver) ConnectionOpened()                       {}
func (noopObserver) ConnectionClosed()                       {}
func (noopObserver) EventHandled(string, int, time.Duration) {}

type WebSocketServer struct {
	hub      *Hub
	services Services
	cfg      Config
	upgrader websocket.Upgrader
	handlers map[string]eventHandler
	observer Observer
	logger   *zap.SugaredLogger
	ctxLog   *rlog.ContextLogger
}

func NewWebSocketServer(hub *Hub, services Services, cfg Config, observer Observer, logger *zap.SugaredLogger) *WebSocketServer {
	if observer == nil {
		observer = noopObserver{}
	}
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = 64
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 25 * time.Second
	}
	if cfg.PongTimeout <= cfg.PingInterval {
		cfg.PongTimeout = cfg.PingInterval * 2
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	s := &WebSocketServer{
		hub:      hub,
		services: services,
		cfg:      cfg,
		observer: observer,
		logger:   logger,
		ctxLog:   rlog.NewContextLogger(logger),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.handlers = s.routes()
	return s
}

func (s *WebSocketServer) Hub() *Hub {
	return s.hub
}

func (s *WebSocketServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func accessToken(r *http.Request) string {
	if token := r.URL.Query().Get("access_token"); token != "" {
		return token
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	codec, err := CodecFor(r.URL.Query().Get("codec"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}

	connID := domain.ConnectionID(utils.GenerateConnectionID())
	ctx := rlog.WithConnectionID(context.Background(), string(connID))

	limit := rate.Inf
	if s.cfg.MessagesPerSecond > 0 {
		limit = rate.Limit(s.cfg.MessagesPerSecond)
	}
	client := &Client{
		id:           connID,
		conn:         conn,
		codec:        codec,
		send:         make(chan []byte, s.cfg.SendQueueSize),
		done:         make(chan struct{}),
		limiter:      rate.NewLimiter(limit, s.cfg.MessageBurst),
		pingInterval: s.cfg.PingInterval,
		writeTimeout: s.cfg.WriteTimeout,
		logger:       s.ctxLog.For(ctx),
	}

	s.hub.register(client)
	s.observer.ConnectionOpened()
	go client.writePump()

	token := accessToken(r)
	entry, err := s.services.Lifecycle.Connect(ctx, connID, token)
	if err != nil {
		appErr := ClassifyError(err)
		client.logger.Infow("connection rejected",
			"error", err,
			"token", utils.MaskSensitive(token, 8),
		)
		client.sendEvent(domain.EventAuthError, map[string]interface{}{
			"code":    int(appErr.Code),
			"message": appErr.Code.Message(),
		})
	} else {
		client.userID = entry.UserID
		ctx = rlog.WithUserID(ctx, string(entry.UserID))
		client.logger = s.ctxLog.For(ctx)
		client.logger.Infow("client connected", "codec", codec.Name())
	}

	s.readLoop(ctx, client)

	if client.userID != "" {
		report := s.services.Lifecycle.Disconnect(ctx, connID)
		if !report.Clean() {
			client.logger.Warnw("disconnect cleanup incomplete",
				"cancel_join_error", report.CancelJoin,
				"leave_room_error", report.LeaveRoom,
				"purge_error", report.Purge,
			)
		}
	}
	s.hub.unregister(client)
	client.close()
	s.observer.ConnectionClosed()
	client.logger.Infow("client disconnected")
}

// readLoop handles inbound frames one at a time until the socket fails.
func (s *WebSocketServer) readLoop(ctx context.Context, c *Client) {
	if s.cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(s.cfg.MaxMessageSize)
	}
	c.conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Infow("error reading message", "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
		s.dispatch(ctx, c, frame)
	}
}

func (s *WebSocketServer) dispatch(ctx context.Context, c *Client, frame []byte) {
	start := time.Now()

	env, err := c.codec.DecodeEnvelope(frame)
	if err != nil || env.Event == "" {
		c.logger.Debugw("malformed frame", "error", err)
		s.ack(c, env.ID, env.Event, apperrors.CodeInvalidParams, nil)
		s.observer.EventHandled("malformed", int(apperrors.CodeInvalidParams), time.Since(start))
		return
	}

	ctx, span := tracing.TraceWebSocketEvent(ctx, env.Event, string(c.id))
	defer span.End()

	code := s.handle(ctx, c, env)
	tracing.AddSpanAttributes(ctx, tracing.AckCodeKey.Int(int(code)))

	event := env.Event
	if _, ok := s.handlers[event]; !ok {
		event = "unknown"
	}
	s.observer.EventHandled(event, int(code), time.Since(start))
}

// handle runs one event and acks it unless it is fire-and-forget.
func (s *WebSocketServer) handle(ctx context.Context, c *Client, env Envelope) apperrors.ErrorCode {
	h, known := s.handlers[env.Event]
	ack := !known || !h.fireAndForget

	if !c.limiter.Allow() {
		if ack {
			s.ack(c, env.ID, env.Event, apperrors.CodeRateLimited, nil)
		}
		return apperrors.CodeRateLimited
	}
	if c.userID == "" {
		if ack {
			s.ack(c, env.ID, env.Event, apperrors.CodeInvalidAccessToken, nil)
		}
		return apperrors.CodeInvalidAccessToken
	}
	if !known {
		s.ack(c, env.ID, env.Event, apperrors.CodeInvalidParams, nil)
		return apperrors.CodeInvalidParams
	}

	result, err := s.invoke(ctx, h, c, env.Data)
	if err != nil {
		appErr := ClassifyError(err)
		if appErr.Code == apperrors.CodeServerError {
			tracing.RecordError(ctx, err)
			c.logger.Errorw("event failed", "event", env.Event, "error", err)
		} else {
			c.logger.Debugw("event rejected", "event", env.Event, "code", appErr.Code, "error", err)
		}
		if ack {
			s.ack(c, env.ID, env.Event, appErr.Code, nil)
		}
		return appErr.Code
	}

	if ack {
		s.ack(c, env.ID, env.Event, apperrors.CodeSuccess, result)
	}
	return apperrors.CodeSuccess
}

func (s *WebSocketServer) invoke(ctx context.Context, h eventHandler, c *Client, data []byte) (result map[string]interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Errorw("panic in event handler", "panic", r)
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.fn(ctx, c, data)
}

func (s *WebSocketServer) ack(c *Client, id *int64, event string, code apperrors.ErrorCode, result map[string]interface{}) {
	if err := c.sendAck(id, event, ackData(code, result)); err != nil {
		c.logger.Warnw("failed to send ack", "event", event, "error", err)
	}
}
