// Package memory provides in-process repositories with the same conditional
// write semantics as the Mongo and Postgres ones. Service and router tests
// run against them; the server itself only uses Mongo and Postgres.
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

type Meetings struct {
	mu       sync.Mutex
	meetings map[primitive.ObjectID]*models.Meeting
}

var _ repositories.MeetingRepository = (*Meetings)(nil)

func NewMeetings() *Meetings {
	return &Meetings{meetings: make(map[primitive.ObjectID]*models.Meeting)}
}

func (r *Meetings) CreateMeeting(_ context.Context, meeting *models.Meeting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	meeting.ID = primitive.NewObjectID()
	if meeting.CreatedAt.IsZero() {
		meeting.CreatedAt = time.Now().UTC()
	}
	if meeting.DeletedFor == nil {
		meeting.DeletedFor = []uint{}
	}
	r.meetings[meeting.ID] = cloneMeeting(meeting)
	return nil
}

func (r *Meetings) GetMeetingByID(_ context.Context, id string) (*models.Meeting, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repositories.ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.meetings[oid]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return cloneMeeting(m), nil
}

func (r *Meetings) RespondToPending(_ context.Context, id string, receiverID uint, resp models.MeetingResponse) (*models.Meeting, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repositories.ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.meetings[oid]
	if !ok || m.ReceiverID != receiverID || m.Status != models.MeetingPending {
		return nil, repositories.ErrNotFound
	}

	m.Status = resp.Status
	respondedAt := resp.RespondedAt
	m.RespondedAt = &respondedAt
	if resp.MeetingLink != "" {
		m.MeetingLink = resp.MeetingLink
	}
	if resp.ReminderAt != nil {
		reminderAt := *resp.ReminderAt
		m.ReminderAt = &reminderAt
	}
	return cloneMeeting(m), nil
}

func (r *Meetings) GetMeetingsForUser(_ context.Context, userID uint) ([]models.Meeting, error) {
	out := r.filter(func(m *models.Meeting) bool {
		return m.IsParty(userID) && !m.HiddenFor(userID)
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.Hex() > out[j].ID.Hex()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Meetings) HideForUser(_ context.Context, id string, userID uint) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repositories.ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.meetings[oid]
	if !ok || !m.IsParty(userID) {
		return repositories.ErrNotFound
	}
	if !m.HiddenFor(userID) {
		m.DeletedFor = append(m.DeletedFor, userID)
	}
	return nil
}

func (r *Meetings) GetDueReminders(_ context.Context, now time.Time, limit int64) ([]models.Meeting, error) {
	out := r.filter(func(m *models.Meeting) bool {
		return reminderDue(m, now)
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ReminderAt.Before(*out[j].ReminderAt)
	})
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Meetings) ClaimReminder(_ context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.meetings[id]
	if !ok || !reminderDue(m, now) {
		return false, nil
	}
	m.ReminderSent = true
	claimedAt := now
	m.ReminderClaimedAt = &claimedAt
	return true, nil
}

func (r *Meetings) GetUpcomingAccepted(_ context.Context, userID uint, from time.Time) ([]models.Meeting, error) {
	out := r.filter(func(m *models.Meeting) bool {
		return m.IsParty(userID) && !m.HiddenFor(userID) &&
			m.Status == models.MeetingAccepted && !m.EndAt.Before(from)
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartAt.Before(out[j].StartAt)
	})
	return out, nil
}

func (r *Meetings) filter(keep func(*models.Meeting) bool) []models.Meeting {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []models.Meeting{}
	for _, m := range r.meetings {
		if keep(m) {
			out = append(out, *cloneMeeting(m))
		}
	}
	return out
}

func reminderDue(m *models.Meeting, now time.Time) bool {
	return m.Status == models.MeetingAccepted && !m.ReminderSent &&
		m.ReminderAt != nil && !m.ReminderAt.After(now)
}

func cloneMeeting(m *models.Meeting) *models.Meeting {
	c := *m
	c.DeletedFor = append([]uint{}, m.DeletedFor...)
	if m.ReminderAt != nil {
		t := *m.ReminderAt
		c.ReminderAt = &t
	}
	if m.ReminderClaimedAt != nil {
		t := *m.ReminderClaimedAt
		c.ReminderClaimedAt = &t
	}
	if m.RespondedAt != nil {
		t := *m.RespondedAt
		c.RespondedAt = &t
	}
	return &c
}
