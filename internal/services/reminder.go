package services

import (
	"context"
	"log"
	"runtime/debug"
	"time"

	"github.com/anonto42/studyhub/backend/internal/mailer"
	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/repositories"
)

const (
	DefaultReminderInterval = 30 * time.Second
	DefaultReminderBatch    = 100

	minTickTimeout = 5 * time.Second
)

type ReminderWorkerConfig struct {
	Meetings repositories.MeetingRepository
	Users    repositories.UserRepository
	Notifier *Notifier
	Mailer   mailer.Sender
	Clock    Clock
	Interval time.Duration
	Batch    int64
}

// ReminderWorker polls for accepted meetings whose reminder time has passed
// and reminds both parties. Each meeting is claimed with a conditional write
// before anything is sent, so concurrent workers never double-send.
type ReminderWorker struct {
	meetings repositories.MeetingRepository
	users    repositories.UserRepository
	notifier *Notifier
	mail     mailer.Sender
	clock    Clock
	interval time.Duration
	batch    int64
}

func NewReminderWorker(cfg ReminderWorkerConfig) *ReminderWorker {
	w := &ReminderWorker{
		meetings: cfg.Meetings,
		users:    cfg.Users,
		notifier: cfg.Notifier,
		mail:     cfg.Mailer,
		clock:    cfg.Clock,
		interval: cfg.Interval,
		batch:    cfg.Batch,
	}
	if w.mail == nil {
		w.mail = mailer.NoEmail{}
	}
	if w.clock == nil {
		w.clock = SystemClock
	}
	if w.interval <= 0 {
		w.interval = DefaultReminderInterval
	}
	if w.batch <= 0 {
		w.batch = DefaultReminderBatch
	}
	return w
}

// Run ticks immediately and then every interval until ctx is cancelled.
func (w *ReminderWorker) Run(ctx context.Context) {
	log.Printf("[reminder] worker started (interval=%s, batch=%d)", w.interval, w.batch)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.safeTick(ctx)

		select {
		case <-ctx.Done():
			log.Println("[reminder] worker stopped")
			return
		case <-ticker.C:
		}
	}
}

func (w *ReminderWorker) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[reminder] tick panicked: %v\n%s", r, debug.Stack())
		}
	}()

	timeout := w.interval
	if timeout < minTickTimeout {
		timeout = minTickTimeout
	}
	tickCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if sent := w.Tick(tickCtx); sent > 0 {
		log.Printf("[reminder] sent %d reminder(s)", sent)
	}
}

// Tick processes one batch and returns how many meetings this call claimed.
func (w *ReminderWorker) Tick(ctx context.Context) int {
	now := w.clock()
	due, err := w.meetings.GetDueReminders(ctx, now, w.batch)
	if err != nil {
		log.Printf("[reminder] query due meetings: %v", err)
		return 0
	}

	claimed := 0
	for i := range due {
		if ctx.Err() != nil {
			break
		}
		if w.remind(ctx, &due[i], now) {
			claimed++
		}
	}
	return claimed
}

// remind claims one meeting and notifies both parties. Failures stay local to the meeting.
func (w *ReminderWorker) remind(ctx context.Context, m *models.Meeting, now time.Time) (claimed bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[reminder] meeting %s panicked: %v", m.ID.Hex(), r)
		}
	}()

	ok, err := w.meetings.ClaimReminder(ctx, m.ID, now)
	if err != nil {
		log.Printf("[reminder] claim meeting %s: %v", m.ID.Hex(), err)
		return false
	}
	if !ok {
		return false
	}
	claimed = true

	sender, senderErr := w.users.GetUserByID(m.SenderID)
	receiver, receiverErr := w.users.GetUserByID(m.ReceiverID)
	parties := []struct {
		id    uint
		user  *models.User
		err   error
		other *models.User
	}{
		{m.SenderID, sender, senderErr, receiver},
		{m.ReceiverID, receiver, receiverErr, sender},
	}

	for _, p := range parties {
		otherName := "your study partner"
		if p.other != nil {
			otherName = p.other.FullName
		}

		payload := map[string]any{
			"meeting_id":   m.ID.Hex(),
			"meeting_link": m.MeetingLink,
			"slot":         m.Slot,
			"start_at":     m.StartAt,
			"with":         otherName,
		}
		if _, err := w.notifier.Notify(ctx, p.id, models.NotificationMeetingReminder, "Your meeting with "+otherName+" starts soon", payload); err != nil {
			log.Printf("[reminder] meeting %s: %v", m.ID.Hex(), err)
		}

		if p.err != nil {
			log.Printf("[reminder] meeting %s: lookup user %d: %v", m.ID.Hex(), p.id, p.err)
			continue
		}
		if p.user.Email == "" || !p.user.NotifyEmail {
			continue
		}
		email := mailer.MeetingReminderEmail(otherName, m.Slot, m.MeetingLink)
		if err := w.mail.SendEmail(p.user.Email, email.Subject, email.HTML, email.Text); err != nil {
			log.Printf("[reminder] meeting %s: email user %d: %v", m.ID.Hex(), p.id, err)
		}
	}
	return claimed
}
