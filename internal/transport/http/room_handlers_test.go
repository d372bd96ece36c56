package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
)

func TestCreateRoom(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "testuser")

	resp := env.do(http.MethodPost, "/api/rooms", token, `{"name":"my-test-room"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var roomResp RoomResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &roomResp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if roomResp.Name != "my-test-room" {
		t.Errorf("expected room name 'my-test-room', got '%s'", roomResp.Name)
	}
	if roomResp.Creator != "testuser" {
		t.Errorf("expected creator 'testuser', got '%s'", roomResp.Creator)
	}

	// Without token.
	resp = env.do(http.MethodPost, "/api/rooms", "", `{"name":"should-fail"}`)
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", resp.Code)
	}

	// Duplicate name.
	resp = env.do(http.MethodPost, "/api/rooms", token, `{"name":"my-test-room"}`)
	if resp.Code != http.StatusConflict {
		t.Errorf("expected status 409, got %d: %s", resp.Code, resp.Body.String())
	}

	// Blank name.
	resp = env.do(http.MethodPost, "/api/rooms", token, `{"name":"   "}`)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestListRoomsOnlyMemberships(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.register(t, "alice")
	bobToken := env.register(t, "bob")

	for _, name := range []string{"zeta", "alpha", "secret"} {
		if resp := env.do(http.MethodPost, "/api/rooms", aliceToken, fmt.Sprintf(`{"name":%q}`, name)); resp.Code != http.StatusCreated {
			t.Fatalf("create %s: %d", name, resp.Code)
		}
	}

	resp := env.do(http.MethodGet, "/api/rooms", aliceToken, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var rooms []RoomResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &rooms); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(rooms) != 3 || rooms[0].Name != "alpha" || rooms[2].Name != "zeta" {
		t.Fatalf("expected rooms ordered by name, got %+v", rooms)
	}

	resp = env.do(http.MethodGet, "/api/rooms", bobToken, "")
	if resp.Code != http.StatusOK || resp.Body.String() != "[]" {
		t.Fatalf("expected empty list for bob, got %d %s", resp.Code, resp.Body.String())
	}

	resp = env.do(http.MethodGet, "/api/rooms", "", "")
	if resp.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", resp.Code)
	}
}

func TestAddMemberAndReadRoom(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.register(t, "alice")
	bobToken := env.register(t, "bob")
	carolToken := env.register(t, "carol")

	resp := env.do(http.MethodPost, "/api/rooms", aliceToken, `{"name":"general"}`)
	var room RoomResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &room); err != nil {
		t.Fatalf("unmarshal room: %v", err)
	}
	path := fmt.Sprintf("/api/rooms/%d", room.ID)

	// Non-member reads are refused.
	if resp := env.do(http.MethodGet, path, bobToken, ""); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-member, got %d", resp.Code)
	}
	if resp := env.do(http.MethodGet, path+"/messages", bobToken, ""); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-member history, got %d", resp.Code)
	}
	if resp := env.do(http.MethodGet, "/api/rooms/999/messages", aliceToken, ""); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown room, got %d", resp.Code)
	}
	if resp := env.do(http.MethodGet, "/api/rooms/abc", aliceToken, ""); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", resp.Code)
	}

	// Only the creator can add members.
	if resp := env.do(http.MethodPost, path+"/members", carolToken, `{"username":"bob"}`); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-creator, got %d", resp.Code)
	}
	if resp := env.do(http.MethodPost, path+"/members", aliceToken, `{"username":"nobody"}`); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", resp.Code)
	}
	if resp := env.do(http.MethodPost, path+"/members", aliceToken, `{"username":"bob"}`); resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = env.do(http.MethodGet, path, bobToken, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for member, got %d", resp.Code)
	}
	var info struct {
		Name    string   `json:"name"`
		Creator string   `json:"creator"`
		Members []string `json:"members"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &info); err != nil {
		t.Fatalf("unmarshal info: %v", err)
	}
	if info.Creator != "alice" || len(info.Members) != 2 || info.Members[0] != "alice" || info.Members[1] != "bob" {
		t.Fatalf("unexpected room info: %+v", info)
	}

	aliceID, _ := env.auth.ValidateToken(aliceToken)
	if _, err := env.store.AppendMessage(context.Background(), room.ID, aliceID.UserID, "alice", "hello"); err != nil {
		t.Fatalf("append: %v", err)
	}
	resp = env.do(http.MethodGet, path+"/messages", bobToken, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for history, got %d", resp.Code)
	}
	var msgs []struct {
		Username string `json:"username"`
		Message  string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &msgs); err != nil {
		t.Fatalf("unmarshal history: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Username != "alice" || msgs[0].Message != "hello" {
		t.Fatalf("unexpected history: %+v", msgs)
	}
}

func TestRegisterAndLoginEndpoints(t *testing.T) {
	env := newTestEnv(t)

	if resp := env.do(http.MethodPost, "/api/register", "", `{"username":"alice","password":"short"}`); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short password, got %d", resp.Code)
	}

	resp := env.do(http.MethodPost, "/api/register", "", `{"username":"alice","password":"password123"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	if resp := env.do(http.MethodPost, "/api/register", "", `{"username":"alice","password":"password123"}`); resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}

	if resp := env.do(http.MethodPost, "/api/login", "", `{"username":"alice","password":"wrong-password"}`); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}

	resp = env.do(http.MethodPost, "/api/login", "", `{"username":"alice","password":"password123"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var auth AuthResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &auth); err != nil || auth.Token == "" {
		t.Fatalf("expected token, got %s (%v)", resp.Body.String(), err)
	}

	resp = env.do(http.MethodGet, "/api/me", auth.Token, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 from /api/me, got %d", resp.Code)
	}
	var me UserResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &me); err != nil || me.Username != "alice" {
		t.Fatalf("unexpected /api/me body %s (%v)", resp.Body.String(), err)
	}
}
