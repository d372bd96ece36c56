package http

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/vovakirdan/roomchat-server/internal/config"
	"github.com/vovakirdan/roomchat-server/internal/core"
	"github.com/vovakirdan/roomchat-server/internal/proto"
)

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.ts.Client().Get(env.ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestWebSocketUpgradeReachesEngine(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	token := env.register(t, "alice")
	env.dial(ctx, t, token)

	deadline := time.Now().Add(2 * time.Second)
	for env.hub.Connected() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := env.hub.Connected(); n != 1 {
		t.Fatalf("expected 1 connected client, got %d", n)
	}

	// REST routes are still served by the router behind the same handler.
	if resp := env.do(http.MethodGet, "/api/me", "", ""); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 from /api/me, got %d", resp.Code)
	}
	if resp := env.do(http.MethodGet, "/api/me", token, ""); resp.Code != http.StatusOK {
		t.Fatalf("expected 200 from /api/me, got %d", resp.Code)
	}
}

func TestWebSocketEmptyMessageIgnored(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	token := env.register(t, "alice")
	room, err := env.store.CreateRoom(ctx, "general", 1)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	conn := env.dial(ctx, t, token)
	send(ctx, t, conn, proto.InboundTypeJoin, proto.JoinData{Room: room.ID})
	var joined proto.Message
	readEvent(ctx, t, conn, proto.EventMessage, &joined)
	if !joined.System {
		t.Fatalf("expected joined notice, got %+v", joined)
	}

	send(ctx, t, conn, proto.InboundTypeSend, proto.SendData{Message: ""})
	send(ctx, t, conn, proto.InboundTypeSend, map[string]string{})
	send(ctx, t, conn, proto.InboundTypeSend, proto.SendData{Message: "hi"})

	out := readOutbound(ctx, t, conn)
	if out.Type != proto.OutboundTypeEvent || out.Event != proto.EventMessage {
		t.Fatalf("expected message event, got %+v", out)
	}
	var msg proto.Message
	readEventFrom(t, out, &msg)
	if msg.Message != "hi" || msg.Username != "alice" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestWebSocketRoomFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	aliceToken := env.register(t, "alice")
	bobToken := env.register(t, "bob")
	room, err := env.store.CreateRoom(ctx, "general", 1)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if err := env.store.AddMember(ctx, 2, room.ID); err != nil {
		t.Fatalf("add member: %v", err)
	}

	connA := env.dial(ctx, t, aliceToken)
	send(ctx, t, connA, proto.InboundTypeJoin, proto.JoinData{Room: room.ID})

	var info proto.RoomInfo
	readEvent(ctx, t, connA, proto.EventRoomInfo, &info)
	if info.Name != "general" || info.Creator != "alice" || len(info.Members) != 2 {
		t.Fatalf("unexpected room info: %+v", info)
	}
	var history proto.History
	readEvent(ctx, t, connA, proto.EventHistory, &history)
	if len(history.Messages) != 0 {
		t.Fatalf("expected empty history, got %+v", history)
	}
	var joined proto.Message
	readEvent(ctx, t, connA, proto.EventMessage, &joined)
	if !joined.System || joined.Message != "alice has joined the room." {
		t.Fatalf("unexpected join notice: %+v", joined)
	}

	send(ctx, t, connA, proto.InboundTypeSend, proto.SendData{Message: "hi"})
	var echo proto.Message
	readEvent(ctx, t, connA, proto.EventMessage, &echo)
	if echo.Message != "hi" || echo.Username != "alice" || echo.ID == 0 {
		t.Fatalf("unexpected echo: %+v", echo)
	}
	if _, err := time.Parse(proto.TimeFormat, echo.Timestamp); err != nil {
		t.Fatalf("bad timestamp %q: %v", echo.Timestamp, err)
	}

	connB := env.dial(ctx, t, bobToken)
	send(ctx, t, connB, proto.InboundTypeJoin, proto.JoinData{Room: room.ID})

	// The first frame after room_info must be the history.
	if out := readOutbound(ctx, t, connB); out.Event != proto.EventRoomInfo {
		t.Fatalf("expected room_info first, got %+v", out)
	}
	out := readOutbound(ctx, t, connB)
	if out.Event != proto.EventHistory {
		t.Fatalf("expected message_history second, got %+v", out)
	}
	readEventFrom(t, out, &history)
	if len(history.Messages) != 1 || history.Messages[0].Username != "alice" || history.Messages[0].Message != "hi" {
		t.Fatalf("unexpected history: %+v", history)
	}

	// Alice disconnects; bob sees exactly one notice.
	readEvent(ctx, t, connB, proto.EventMessage, &joined)
	connA.Close(websocket.StatusNormalClosure, "bye")

	var gone proto.Message
	readEvent(ctx, t, connB, proto.EventMessage, &gone)
	if gone.Message != "alice has disconnected." {
		t.Fatalf("unexpected notice: %+v", gone)
	}

	deadline := time.Now().Add(2 * time.Second)
	for env.hub.Sessions().Len() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := env.hub.Sessions().Len(); n != 1 {
		t.Fatalf("expected only bob registered, got %d sessions", n)
	}
}

func TestWebSocketJoinDenied(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	env.register(t, "bob")
	aliceToken := env.register(t, "alice")
	secret, err := env.store.CreateRoom(ctx, "secret", 1)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	conn := env.dial(ctx, t, aliceToken)
	send(ctx, t, conn, proto.InboundTypeJoin, proto.JoinData{Room: secret.ID})

	out := readOutbound(ctx, t, conn)
	if out.Type != proto.OutboundTypeError || out.Error == nil || out.Error.Code != core.ErrCodeAccessDenied {
		t.Fatalf("expected access_denied, got %+v", out)
	}

	send(ctx, t, conn, proto.InboundTypeJoin, proto.JoinData{Room: secret.ID + 100})
	out = readOutbound(ctx, t, conn)
	if out.Error == nil || out.Error.Code != core.ErrCodeRoomNotFound {
		t.Fatalf("expected room_not_found, got %+v", out)
	}
}

func TestWebSocketRateLimited(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.MessagesPerMinute = 1 })
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	token := env.register(t, "alice")
	conn := env.dial(ctx, t, token)

	send(ctx, t, conn, proto.InboundTypeJoin, proto.JoinData{Room: 42})
	if out := readOutbound(ctx, t, conn); out.Error == nil || out.Error.Code != core.ErrCodeRoomNotFound {
		t.Fatalf("expected room_not_found, got %+v", out)
	}

	send(ctx, t, conn, proto.InboundTypeJoin, proto.JoinData{Room: 42})
	if out := readOutbound(ctx, t, conn); out.Error == nil || out.Error.Code != core.ErrCodeRateLimited {
		t.Fatalf("expected rate_limited, got %+v", out)
	}
}

func TestWebSocketRejectsOversizedMessage(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.MaxMessageLength = 5 })
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	token := env.register(t, "alice")
	conn := env.dial(ctx, t, token)

	send(ctx, t, conn, proto.InboundTypeSend, proto.SendData{Message: fmt.Sprintf("%010d", 1)})
	out := readOutbound(ctx, t, conn)
	if out.Error == nil || out.Error.Code != core.ErrCodeBadRequest {
		t.Fatalf("expected bad_request, got %+v", out)
	}
}
