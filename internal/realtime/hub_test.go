package realtime_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/anonto42/studyhub/backend/internal/realtime"
	"github.com/gorilla/websocket"
)

// members maps group ids to the users belonging to them.
type members map[string][]uint

func (m members) IsMember(_ context.Context, groupID string, userID uint) (bool, error) {
	for _, id := range m[groupID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

var testGroups = members{"g1": {1, 2}, "g2": {1}}

func newServer(t *testing.T) (*realtime.Hub, *httptest.Server) {
	t.Helper()
	hub := realtime.NewHub("*", testGroups)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseUint(r.URL.Query().Get("user"), 10, 64)
		if err != nil {
			http.Error(w, "bad user", http.StatusBadRequest)
			return
		}
		_ = hub.HandleRequest(w, r, uint(id))
	}))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, srv
}

type client struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, srv *httptest.Server, userID int) *client {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + strconv.Itoa(userID)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	c := &client{t: t, conn: conn}
	c.expect(realtime.EventConnected)
	return c
}

func (c *client) send(event, groupID string) {
	c.t.Helper()
	msg := map[string]any{"event": event, "data": map[string]string{"group_id": groupID}}
	if err := c.conn.WriteJSON(msg); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

func (c *client) next() realtime.Envelope {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env realtime.Envelope
	if err := c.conn.ReadJSON(&env); err != nil {
		c.t.Fatalf("read: %v", err)
	}
	return env
}

func (c *client) expect(event string) realtime.Envelope {
	c.t.Helper()
	env := c.next()
	if env.Event != event {
		c.t.Fatalf("got event %q (%s), want %q", env.Event, env.Data, event)
	}
	return env
}

func typingUsers(t *testing.T, env realtime.Envelope) []uint {
	t.Helper()
	var data struct {
		GroupID string `json:"group_id"`
		Users   []uint `json:"users"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode typing: %v", err)
	}
	return data.Users
}

func TestEmitToUserChannel(t *testing.T) {
	hub, srv := newServer(t)
	alice := dial(t, srv, 1)
	bob := dial(t, srv, 2)

	if err := hub.Emit("user:2", "notify", map[string]string{"title": "for bob"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if err := hub.Emit("user:1", "notify", map[string]string{"title": "for alice"}); err != nil {
		t.Fatalf("emit: %v", err)
	}

	env := bob.expect("notify")
	if !strings.Contains(string(env.Data), "for bob") {
		t.Errorf("bob got %s", env.Data)
	}
	env = alice.expect("notify")
	if !strings.Contains(string(env.Data), "for alice") {
		t.Errorf("alice got %s, events for other users leaked", env.Data)
	}
}

func TestEmitRejectsMalformedChannel(t *testing.T) {
	hub, _ := newServer(t)
	for _, ch := range []string{"user", "user:", "user:abc", "room:1"} {
		if err := hub.Emit(ch, "notify", nil); err == nil {
			t.Errorf("Emit(%q) succeeded, want error", ch)
		}
	}
}

func TestGroupTypingPresence(t *testing.T) {
	_, srv := newServer(t)
	alice := dial(t, srv, 1)
	bob := dial(t, srv, 2)

	alice.send("join_group", "g1")
	alice.expect(realtime.EventJoined)
	bob.send("join_group", "g1")
	bob.expect(realtime.EventJoined)

	alice.send("group_typing_start", "g1")
	if users := typingUsers(t, bob.expect(realtime.EventGroupTyping)); len(users) != 1 || users[0] != 1 {
		t.Fatalf("bob sees typing %v, want [1]", users)
	}
	alice.expect(realtime.EventGroupTyping)

	bob.send("group_typing_start", "g1")
	if users := typingUsers(t, alice.expect(realtime.EventGroupTyping)); len(users) != 2 {
		t.Fatalf("alice sees typing %v, want [1 2]", users)
	}
	bob.expect(realtime.EventGroupTyping)

	alice.conn.Close()
	if users := typingUsers(t, bob.expect(realtime.EventGroupTyping)); len(users) != 1 || users[0] != 2 {
		t.Fatalf("after disconnect bob sees %v, want [2]", users)
	}
}

func TestTypingRequiresMembership(t *testing.T) {
	_, srv := newServer(t)
	alice := dial(t, srv, 1)

	alice.send("group_typing_start", "g9")
	alice.expect(realtime.EventError)

	alice.send("bogus", "g9")
	alice.expect(realtime.EventError)
}

func TestJoinGroupRequiresMembership(t *testing.T) {
	hub, srv := newServer(t)
	bob := dial(t, srv, 2)
	mallory := dial(t, srv, 3)

	mallory.send("join_group", "g1")
	mallory.expect(realtime.EventError)
	bob.send("join_group", "g2")
	bob.expect(realtime.EventError)

	bob.send("join_group", "g1")
	bob.expect(realtime.EventJoined)

	if err := hub.Emit("group:g1", "ping", map[string]string{"to": "g1"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	bob.expect("ping")
	if err := hub.Emit("user:3", "notify", map[string]string{"title": "only"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	// A group event that leaked to mallory would arrive before this one.
	mallory.expect("notify")
}

func TestTypingSurvivesSecondSession(t *testing.T) {
	_, srv := newServer(t)
	laptop := dial(t, srv, 1)
	phone := dial(t, srv, 1)
	bob := dial(t, srv, 2)
	for _, c := range []*client{laptop, phone, bob} {
		c.send("join_group", "g1")
		c.expect(realtime.EventJoined)
	}

	laptop.send("group_typing_start", "g1")
	for _, c := range []*client{laptop, phone, bob} {
		c.expect(realtime.EventGroupTyping)
	}

	phone.conn.Close()
	time.Sleep(100 * time.Millisecond)

	bob.send("group_typing_start", "g1")
	if users := typingUsers(t, bob.expect(realtime.EventGroupTyping)); len(users) != 2 || users[0] != 1 || users[1] != 2 {
		t.Fatalf("after phone disconnect bob sees %v, want [1 2]", users)
	}
	laptop.expect(realtime.EventGroupTyping)

	laptop.conn.Close()
	if users := typingUsers(t, bob.expect(realtime.EventGroupTyping)); len(users) != 1 || users[0] != 2 {
		t.Fatalf("after last session closed bob sees %v, want [2]", users)
	}
}

func TestDropMember(t *testing.T) {
	hub, srv := newServer(t)
	alice := dial(t, srv, 1)
	bob := dial(t, srv, 2)
	for _, c := range []*client{alice, bob} {
		c.send("join_group", "g1")
		c.expect(realtime.EventJoined)
	}
	bob.send("group_typing_start", "g1")
	bob.expect(realtime.EventGroupTyping)
	alice.expect(realtime.EventGroupTyping)

	hub.DropMember("g1", 2)
	if users := typingUsers(t, alice.expect(realtime.EventGroupTyping)); len(users) != 0 {
		t.Fatalf("alice sees %v after bob was dropped", users)
	}

	if err := hub.Emit("group:g1", "ping", nil); err != nil {
		t.Fatalf("emit: %v", err)
	}
	alice.expect("ping")
	if err := hub.Emit("user:2", "notify", nil); err != nil {
		t.Fatalf("emit: %v", err)
	}
	bob.expect("notify")
}
