package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Notifications struct {
	mu    sync.Mutex
	items []*models.Notification
}

var _ repositories.NotificationRepository = (*Notifications)(nil)

func NewNotifications() *Notifications {
	return &Notifications{}
}

func (r *Notifications) CreateNotification(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n.ID = primitive.NewObjectID()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	c := *n
	r.items = append(r.items, &c)
	return nil
}

func (r *Notifications) GetByRecipientID(_ context.Context, userID uint, page, limit int) ([]models.Notification, int64, error) {
	all := r.filter(func(n *models.Notification) bool { return n.UserID == userID })
	total := int64(len(all))

	start := (page - 1) * limit
	if start < 0 || start >= len(all) {
		return []models.Notification{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *Notifications) GetGrouped(_ context.Context, userID uint, todayStart time.Time) (today, yesterday, thisWeek, older []models.Notification, err error) {
	yesterdayStart := todayStart.AddDate(0, 0, -1)
	weekStart := todayStart.AddDate(0, 0, -7)
	today, yesterday, thisWeek, older = []models.Notification{}, []models.Notification{}, []models.Notification{}, []models.Notification{}

	for _, n := range r.filter(func(n *models.Notification) bool { return n.UserID == userID }) {
		switch {
		case !n.CreatedAt.Before(todayStart):
			today = append(today, n)
		case !n.CreatedAt.Before(yesterdayStart):
			yesterday = append(yesterday, n)
		case !n.CreatedAt.Before(weekStart):
			thisWeek = append(thisWeek, n)
		case len(older) < 50:
			older = append(older, n)
		}
	}
	return today, yesterday, thisWeek, older, nil
}

func (r *Notifications) GetUnread(_ context.Context, userID uint) ([]models.Notification, error) {
	return r.filter(func(n *models.Notification) bool { return n.UserID == userID && !n.Read }), nil
}

func (r *Notifications) GetUnreadCount(ctx context.Context, userID uint) (int64, error) {
	unread, _ := r.GetUnread(ctx, userID)
	return int64(len(unread)), nil
}

func (r *Notifications) MarkAsRead(_ context.Context, userID uint, ids []string) (int64, error) {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	return r.markRead(func(n *models.Notification) bool {
		return n.UserID == userID && wanted[n.ID.Hex()]
	}), nil
}

func (r *Notifications) MarkAllAsRead(_ context.Context, userID uint) (int64, error) {
	return r.markRead(func(n *models.Notification) bool { return n.UserID == userID }), nil
}

// All returns every stored notification, oldest first.
func (r *Notifications) All() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Notification, 0, len(r.items))
	for _, n := range r.items {
		out = append(out, *n)
	}
	return out
}

func (r *Notifications) markRead(match func(*models.Notification) bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	var updated int64
	for _, n := range r.items {
		if !n.Read && match(n) {
			n.Read = true
			readAt := now
			n.ReadAt = &readAt
			updated++
		}
	}
	return updated
}

// filter returns matches newest first.
func (r *Notifications) filter(keep func(*models.Notification) bool) []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []models.Notification{}
	for _, n := range r.items {
		if keep(n) {
			out = append(out, *n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
