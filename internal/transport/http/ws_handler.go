package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat-server/internal/auth"
	"github.com/vovakirdan/roomchat-server/internal/config"
	"github.com/vovakirdan/roomchat-server/internal/core"
	"github.com/vovakirdan/roomchat-server/internal/proto"
	"github.com/vovakirdan/roomchat-server/internal/utils"
)

const disconnectTimeout = 5 * time.Second

// WSHandler authenticates and upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	engine Engine
	auth   *auth.Service
	cfg    *config.Config
	log    *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(engine Engine, authService *auth.Service, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{engine: engine, auth: authService, cfg: cfg, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	identity, err := h.auth.Authenticate(r)
	if err != nil {
		h.log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("ws connection refused")
		stdhttp.Error(w, "unauthorized", stdhttp.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.cfg.AllowedOrigins,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(h.cfg.MaxMessageBytes)

	client := core.NewClient(utils.NewID(), identity, h.cfg.ClientBuffer)
	if err := h.engine.Connect(client); err != nil {
		conn.Close(websocket.StatusPolicyViolation, "unauthorized")
		return
	}
	log := h.log.With().Str("conn_id", client.ID).Str("user", identity.Username).Logger()
	log.Info().Msg("ws connected")

	// Disconnect must run to completion even when the request context is gone.
	defer func() {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), disconnectTimeout)
		defer cancel()
		h.engine.Disconnect(dctx, client)
		log.Info().Msg("ws disconnected")
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client, &log)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client, &log)
	}()

	err = <-errCh
	cancel()
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "internal error"
			log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// readLoop handles inbound frames in order on this goroutine, so a
// connection's commands are applied in the order they were sent.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, log *zerolog.Logger) error {
	limiter := newMessageLimiter(h.cfg.MessagesPerMinute)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			client.Deliver(core.ErrorEvent(core.ErrCodeBadRequest, "expected a text frame"))
			continue
		}

		if !limiter.Allow() {
			client.Deliver(core.ErrorEvent(core.ErrCodeRateLimited, "too many messages"))
			continue
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			log.Debug().Err(err).Msg("malformed inbound frame")
			client.Deliver(core.ErrorEvent(core.ErrCodeBadRequest, "malformed message"))
			continue
		}

		cmd, perr := inboundToCommand(inbound, h.cfg.MaxMessageLength)
		if perr != nil {
			client.Deliver(core.ErrorEvent(perr.Code, perr.Msg))
			continue
		}
		h.engine.Handle(ctx, client, cmd)
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, log *zerolog.Logger) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				log.Error().Err(err).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
