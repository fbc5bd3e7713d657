package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/repositories"
)

// Pusher delivers fire-and-forget real-time events to a channel.
type Pusher interface {
	Emit(channel, event string, payload any) error
}

const EventNotify = "notify"

func UserChannel(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

func GroupChannel(groupID string) string {
	return "group:" + groupID
}

// Notifier persists inbox rows and mirrors them over the real-time channel.
type Notifier struct {
	notifications repositories.NotificationRepository
	pusher        Pusher
	clock         Clock
}

func NewNotifier(repo repositories.NotificationRepository, pusher Pusher, clock Clock) *Notifier {
	if clock == nil {
		clock = SystemClock
	}
	return &Notifier{notifications: repo, pusher: pusher, clock: clock}
}

// Notify stores the notification and then pushes it. Only a storage failure is returned.
func (n *Notifier) Notify(ctx context.Context, userID uint, kind, title string, payload map[string]any) (*models.Notification, error) {
	notification := &models.Notification{
		UserID:    userID,
		Type:      kind,
		Title:     title,
		Payload:   payload,
		CreatedAt: n.clock(),
	}
	if err := n.notifications.CreateNotification(ctx, notification); err != nil {
		return nil, fmt.Errorf("persist %s notification for user %d: %w", kind, userID, err)
	}

	n.Push(userID, EventNotify, notification)
	return notification, nil
}

// Push emits to user:<id>; failures are logged only.
func (n *Notifier) Push(userID uint, event string, payload any) {
	if n.pusher == nil {
		return
	}
	if err := n.pusher.Emit(UserChannel(userID), event, payload); err != nil {
		log.Printf("[notify] push %s to user %d failed: %v", event, userID, err)
	}
}

func (n *Notifier) ListUnread(ctx context.Context, userID uint) ([]models.Notification, error) {
	return n.notifications.GetUnread(ctx, userID)
}

func (n *Notifier) List(ctx context.Context, userID uint, page, limit int) ([]models.Notification, int64, error) {
	return n.notifications.GetByRecipientID(ctx, userID, page, limit)
}

// Grouped buckets the inbox into today, yesterday, earlier this week and older, in loc.
func (n *Notifier) Grouped(ctx context.Context, userID uint, loc *time.Location) (today, yesterday, thisWeek, older []models.Notification, err error) {
	now := n.clock().In(loc)
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	return n.notifications.GetGrouped(ctx, userID, todayStart.UTC())
}

func (n *Notifier) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return n.notifications.GetUnreadCount(ctx, userID)
}

func (n *Notifier) MarkRead(ctx context.Context, userID uint, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: no notification ids", ErrInvalidInput)
	}
	return n.notifications.MarkAsRead(ctx, userID, ids)
}

func (n *Notifier) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return n.notifications.MarkAllAsRead(ctx, userID)
}
