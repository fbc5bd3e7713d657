// Package realtime is the websocket push channel. Every connection joins
// user:<id> and may join the group:<id> channels of groups the user belongs to.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/olahol/melody"
)

const (
	keyUserID = "user_id"

	EventConnected   = "connected"
	EventJoined      = "joined"
	EventLeft        = "left"
	EventGroupTyping = "group_typing"
	EventError       = "error"
)

// Envelope is the wire format of every server and client message.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type groupRequest struct {
	GroupID string `json:"group_id"`
}

// Membership decides who may join a group channel.
type Membership interface {
	IsMember(ctx context.Context, groupID string, userID uint) (bool, error)
}

// Hub fans events out to websocket sessions.
type Hub struct {
	m        *melody.Melody
	presence *Presence
	members  Membership

	mu     sync.RWMutex
	groups map[*melody.Session]map[string]struct{}
}

// NewHub builds a hub accepting upgrades from allowedOrigin ("*" or empty allows any).
// Group channels are only open to users members reports as belonging to the group;
// with nil members no group can be joined.
func NewHub(allowedOrigin string, members Membership) *Hub {
	m := melody.New()
	m.Config.MaxMessageSize = 4 * 1024
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second
	m.Upgrader.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return allowedOrigin == "" || allowedOrigin == "*" || origin == "" || origin == allowedOrigin
	}

	h := &Hub{
		m:        m,
		presence: NewPresence(),
		members:  members,
		groups:   make(map[*melody.Session]map[string]struct{}),
	}

	m.HandleConnect(h.onConnect)
	m.HandleDisconnect(h.onDisconnect)
	m.HandleMessage(h.onMessage)
	m.HandleError(func(s *melody.Session, err error) {
		log.Printf("[ws] user %d: %v", sessionUser(s), err)
	})
	return h
}

// HandleRequest upgrades the request into a session owned by userID.
func (h *Hub) HandleRequest(w http.ResponseWriter, r *http.Request, userID uint) error {
	return h.m.HandleRequestWithKeys(w, r, map[string]interface{}{keyUserID: userID})
}

// Emit sends {event, data} to every session subscribed to channel.
func (h *Hub) Emit(channel, event string, payload any) error {
	msg, err := encode(event, payload)
	if err != nil {
		return err
	}

	kind, id, ok := strings.Cut(channel, ":")
	if !ok || id == "" {
		return fmt.Errorf("malformed channel %q", channel)
	}

	switch kind {
	case "user":
		userID, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			return fmt.Errorf("malformed channel %q: %w", channel, err)
		}
		return h.m.BroadcastFilter(msg, func(s *melody.Session) bool {
			return sessionUser(s) == uint(userID)
		})
	case "group":
		return h.m.BroadcastFilter(msg, func(s *melody.Session) bool {
			return h.inGroup(s, id)
		})
	default:
		return fmt.Errorf("unknown channel kind %q", kind)
	}
}

// Presence exposes the typing tracker.
func (h *Hub) Presence() *Presence {
	return h.presence
}

func (h *Hub) Close() error {
	return h.m.Close()
}

// DropMember unsubscribes every session of userID from groupID, for when the
// user leaves the group or is removed from it.
func (h *Hub) DropMember(groupID string, userID uint) {
	h.mu.Lock()
	for s, set := range h.groups {
		if sessionUser(s) == userID {
			delete(set, groupID)
		}
	}
	h.mu.Unlock()

	if users, ok := h.presence.Forget(userID, []string{groupID})[groupID]; ok {
		h.broadcastTyping(groupID, users)
	}
}

func (h *Hub) onConnect(s *melody.Session) {
	userID := sessionUser(s)
	log.Printf("[ws] user %d connected", userID)
	h.reply(s, EventConnected, map[string]any{"user_id": userID, "channel": fmt.Sprintf("user:%d", userID)})
}

func (h *Hub) onDisconnect(s *melody.Session) {
	userID := sessionUser(s)

	h.mu.Lock()
	joined := h.groups[s]
	delete(h.groups, s)
	var orphaned []string
	for groupID := range joined {
		if !h.userInGroupLocked(userID, groupID) {
			orphaned = append(orphaned, groupID)
		}
	}
	h.mu.Unlock()

	// Typing state belongs to the user, so it survives while another of
	// their sessions is still in the group.
	for groupID, users := range h.presence.Forget(userID, orphaned) {
		h.broadcastTyping(groupID, users)
	}
	log.Printf("[ws] user %d disconnected", userID)
}

func (h *Hub) onMessage(s *melody.Session, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.reply(s, EventError, map[string]string{"message": "malformed message"})
		return
	}
	var req groupRequest
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &req); err != nil {
			h.reply(s, EventError, map[string]string{"message": "malformed data"})
			return
		}
	}
	if req.GroupID == "" {
		h.reply(s, EventError, map[string]string{"message": "group_id is required"})
		return
	}

	userID := sessionUser(s)
	switch env.Event {
	case "join_group":
		if err := h.canJoin(req.GroupID, userID); err != nil {
			h.reply(s, EventError, map[string]string{"message": err.Error()})
			return
		}
		h.join(s, req.GroupID)
		h.reply(s, EventJoined, req)
	case "leave_group":
		if h.leave(s, req.GroupID) {
			if users, ok := h.presence.Forget(userID, []string{req.GroupID})[req.GroupID]; ok {
				h.broadcastTyping(req.GroupID, users)
			}
		}
		h.reply(s, EventLeft, req)
	case "group_typing_start":
		if !h.inGroup(s, req.GroupID) {
			h.reply(s, EventError, map[string]string{"message": "join the group first"})
			return
		}
		h.broadcastTyping(req.GroupID, h.presence.Start(req.GroupID, userID))
	case "group_typing_stop":
		h.broadcastTyping(req.GroupID, h.presence.Stop(req.GroupID, userID))
	default:
		h.reply(s, EventError, map[string]string{"message": "unknown event " + env.Event})
	}
}

func (h *Hub) canJoin(groupID string, userID uint) error {
	if h.members == nil {
		return errors.New("groups are unavailable")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ok, err := h.members.IsMember(ctx, groupID, userID)
	if err != nil {
		log.Printf("[ws] membership of user %d in group %s: %v", userID, groupID, err)
		return errors.New("could not verify membership")
	}
	if !ok {
		return errors.New("not a member of this group")
	}
	return nil
}

func (h *Hub) join(s *melody.Session, groupID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.groups[s]
	if !ok {
		set = make(map[string]struct{})
		h.groups[s] = set
	}
	set[groupID] = struct{}{}
}

// leave unsubscribes s and reports whether that was the user's last session
// in the group.
func (h *Hub) leave(s *melody.Session, groupID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.groups[s], groupID)
	return !h.userInGroupLocked(sessionUser(s), groupID)
}

func (h *Hub) userInGroupLocked(userID uint, groupID string) bool {
	for s, set := range h.groups {
		if _, ok := set[groupID]; ok && sessionUser(s) == userID {
			return true
		}
	}
	return false
}

func (h *Hub) inGroup(s *melody.Session, groupID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.groups[s][groupID]
	return ok
}

func (h *Hub) broadcastTyping(groupID string, users []uint) {
	payload := map[string]any{"group_id": groupID, "users": users}
	if err := h.Emit("group:"+groupID, EventGroupTyping, payload); err != nil {
		log.Printf("[ws] typing update for group %s: %v", groupID, err)
	}
}

func (h *Hub) reply(s *melody.Session, event string, payload any) {
	msg, err := encode(event, payload)
	if err != nil {
		log.Printf("[ws] encode %s: %v", event, err)
		return
	}
	if err := s.Write(msg); err != nil {
		log.Printf("[ws] reply %s to user %d: %v", event, sessionUser(s), err)
	}
}

func encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

func sessionUser(s *melody.Session) uint {
	v, ok := s.Get(keyUserID)
	if !ok {
		return 0
	}
	id, _ := v.(uint)
	return id
}
