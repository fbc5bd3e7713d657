package services_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anonto42/studyhub/backend/internal/mailer"
	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/repositories/memory"
	"github.com/anonto42/studyhub/backend/internal/services"
	"github.com/anonto42/studyhub/backend/internal/slot"
)

type pushed struct {
	channel string
	event   string
	payload any
}

type fakePusher struct {
	mu     sync.Mutex
	events []pushed
	err    error
}

func (p *fakePusher) Emit(channel, event string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, pushed{channel, event, payload})
	return p.err
}

func (p *fakePusher) count(channel, event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.channel == channel && e.event == event {
			n++
		}
	}
	return n
}

// testClock is a settable Clock safe for concurrent reads.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type env struct {
	svc           *services.MeetingService
	notifier      *services.Notifier
	meetings      *memory.Meetings
	notifications *memory.Notifications
	users         *memory.Users
	pusher        *fakePusher
	mail          *mailer.Mock
	clock         *testClock
	alice, bob    *models.User
	carol         *models.User
}

var requestTime = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

var scenarioSlot = models.SlotInput{Date: "2024-03-05", From: "14:00", To: "15:00", Timezone: "America/New_York"}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		meetings:      memory.NewMeetings(),
		notifications: memory.NewNotifications(),
		users:         memory.NewUsers(),
		pusher:        &fakePusher{},
		mail:          &mailer.Mock{},
		clock:         &testClock{now: requestTime},
	}
	e.alice = addUser(t, e.users, "Alice Able", "alice@state.edu")
	e.bob = addUser(t, e.users, "Bob Baker", "bob@state.edu")
	e.carol = addUser(t, e.users, "Carol Chen", "carol@state.edu")

	normalizer, err := slot.NewNormalizer("America/New_York", true, e.clock.Now)
	if err != nil {
		t.Fatalf("normalizer: %v", err)
	}
	e.notifier = services.NewNotifier(e.notifications, e.pusher, e.clock.Now)
	e.svc = services.NewMeetingService(services.MeetingServiceConfig{
		Meetings:   e.meetings,
		Users:      e.users,
		Notifier:   e.notifier,
		Mailer:     e.mail,
		Normalizer: normalizer,
		Links:      services.NewLinkGenerator("https://meet.jit.si/"),
		Clock:      e.clock.Now,
	})
	return e
}

func addUser(t *testing.T, users *memory.Users, name, email string) *models.User {
	t.Helper()
	u := &models.User{FullName: name, Email: email, Timezone: "America/New_York", University: "state.edu", NotifyEmail: true}
	if err := users.CreateUser(u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (e *env) request(t *testing.T) *models.Meeting {
	t.Helper()
	m, err := e.svc.RequestMeeting(context.Background(), e.alice.ID, e.bob.ID, scenarioSlot)
	if err != nil {
		t.Fatalf("request meeting: %v", err)
	}
	return m
}

func (e *env) accept(t *testing.T, m *models.Meeting) *models.Meeting {
	t.Helper()
	accepted, err := e.svc.RespondToMeeting(context.Background(), m.ID.Hex(), e.bob.ID, models.MeetingAccepted)
	if err != nil {
		t.Fatalf("accept meeting: %v", err)
	}
	return accepted
}

func (e *env) notificationsOf(userID uint, kind string) []models.Notification {
	var out []models.Notification
	for _, n := range e.notifications.All() {
		if n.UserID == userID && n.Type == kind {
			out = append(out, n)
		}
	}
	return out
}

func (e *env) worker(mail mailer.Sender) *services.ReminderWorker {
	return services.NewReminderWorker(services.ReminderWorkerConfig{
		Meetings: e.meetings,
		Users:    e.users,
		Notifier: e.notifier,
		Mailer:   mail,
		Clock:    e.clock.Now,
		Interval: 10 * time.Millisecond,
		Batch:    100,
	})
}

func isMeetingLink(link string) bool {
	return strings.HasPrefix(link, "https://meet.jit.si/sgh-") && len(link) > len("https://meet.jit.si/sgh-")
}

var errStore = errors.New("store unavailable")

// failingNotifications fails every insert.
type failingNotifications struct {
	*memory.Notifications
}

func (failingNotifications) CreateNotification(context.Context, *models.Notification) error {
	return errStore
}
