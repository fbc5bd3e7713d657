package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/anonto42/studyhub/backend/internal/mailer"
	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/repositories"
	"github.com/anonto42/studyhub/backend/internal/slot"
	"gorm.io/gorm"
)

const (
	EventMeetingUpdated = "meeting_updated"

	DefaultReminderLead = 30 * time.Minute
)

type MeetingServiceConfig struct {
	Meetings     repositories.MeetingRepository
	Users        repositories.UserRepository
	Notifier     *Notifier
	Mailer       mailer.Sender
	Normalizer   *slot.Normalizer
	Links        LinkGenerator
	Clock        Clock
	ReminderLead time.Duration
}

// MeetingService owns the pending -> accepted | rejected lifecycle.
type MeetingService struct {
	meetings     repositories.MeetingRepository
	users        repositories.UserRepository
	notifier     *Notifier
	mail         mailer.Sender
	normalizer   *slot.Normalizer
	links        LinkGenerator
	clock        Clock
	reminderLead time.Duration
}

func NewMeetingService(cfg MeetingServiceConfig) *MeetingService {
	s := &MeetingService{
		meetings:     cfg.Meetings,
		users:        cfg.Users,
		notifier:     cfg.Notifier,
		mail:         cfg.Mailer,
		normalizer:   cfg.Normalizer,
		links:        cfg.Links,
		clock:        cfg.Clock,
		reminderLead: cfg.ReminderLead,
	}
	if s.mail == nil {
		s.mail = mailer.NoEmail{}
	}
	if s.clock == nil {
		s.clock = SystemClock
	}
	if s.reminderLead <= 0 {
		s.reminderLead = DefaultReminderLead
	}
	return s
}

// RequestMeeting creates a pending proposal from senderID to receiverID.
func (s *MeetingService) RequestMeeting(ctx context.Context, senderID, receiverID uint, in models.SlotInput) (*models.Meeting, error) {
	if senderID == receiverID {
		return nil, fmt.Errorf("%w: cannot request a meeting with yourself", ErrInvalidInput)
	}
	sender, err := s.lookupUser(senderID)
	if err != nil {
		return nil, err
	}
	receiver, err := s.lookupUser(receiverID)
	if err != nil {
		return nil, fmt.Errorf("receiver: %w", err)
	}

	normalized, err := s.normalizer.Normalize(in, sender.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	meeting := &models.Meeting{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Slot:       normalized.Slot,
		StartAt:    normalized.StartAt,
		EndAt:      normalized.EndAt,
		Status:     models.MeetingPending,
		DeletedFor: []uint{},
		CreatedAt:  s.clock(),
	}
	if err := s.meetings.CreateMeeting(ctx, meeting); err != nil {
		return nil, fmt.Errorf("create meeting: %w", err)
	}

	payload := map[string]any{
		"meeting_id":  meeting.ID.Hex(),
		"sender_id":   senderID,
		"sender_name": sender.FullName,
		"slot":        meeting.Slot,
	}
	if _, err := s.notifier.Notify(ctx, receiverID, models.NotificationMeetingRequest, "New meeting request from "+sender.FullName, payload); err != nil {
		log.Printf("[meetings] request %s: %v", meeting.ID.Hex(), err)
	}
	s.emailAsync(receiver, mailer.MeetingRequestEmail(sender.FullName, meeting.Slot))

	return meeting, nil
}

// RespondToMeeting moves a pending meeting to accepted or rejected. Only the
// receiver may respond; anyone else gets ErrNotFound. A meeting that is no
// longer pending yields ErrConflict.
func (s *MeetingService) RespondToMeeting(ctx context.Context, meetingID string, responderID uint, decision models.MeetingStatus) (*models.Meeting, error) {
	if decision != models.MeetingAccepted && decision != models.MeetingRejected {
		return nil, fmt.Errorf("%w: status must be accepted or rejected", ErrInvalidInput)
	}

	// start_at never changes after creation, so reading it ahead of the
	// conditional write is safe. The read also classifies failures.
	current, err := s.meetings.GetMeetingByID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if current.ReceiverID != responderID {
		return nil, ErrNotFound
	}
	if current.Status != models.MeetingPending {
		return nil, fmt.Errorf("%w: meeting already %s", ErrConflict, current.Status)
	}

	resp := models.MeetingResponse{Status: decision, RespondedAt: s.clock()}
	if decision == models.MeetingAccepted {
		resp.MeetingLink = s.links()
		reminderAt := current.StartAt.Add(-s.reminderLead)
		resp.ReminderAt = &reminderAt
	}

	meeting, err := s.meetings.RespondToPending(ctx, meetingID, responderID, resp)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: meeting already responded to", ErrConflict)
		}
		return nil, err
	}

	s.announceResponse(ctx, meeting)
	return meeting, nil
}

func (s *MeetingService) announceResponse(ctx context.Context, meeting *models.Meeting) {
	receiverName := "Your contact"
	if receiver, err := s.users.GetUserByID(meeting.ReceiverID); err == nil {
		receiverName = receiver.FullName
	}

	kind, title := models.NotificationMeetingRejected, receiverName+" declined your meeting request"
	if meeting.Status == models.MeetingAccepted {
		kind, title = models.NotificationMeetingAccepted, receiverName+" accepted your meeting request"
	}
	payload := map[string]any{
		"meeting_id":    meeting.ID.Hex(),
		"status":        meeting.Status,
		"meeting_link":  meeting.MeetingLink,
		"receiver_id":   meeting.ReceiverID,
		"receiver_name": receiverName,
		"slot":          meeting.Slot,
	}
	if _, err := s.notifier.Notify(ctx, meeting.SenderID, kind, title, payload); err != nil {
		log.Printf("[meetings] respond %s: %v", meeting.ID.Hex(), err)
	}

	update := map[string]any{
		"id":           meeting.ID.Hex(),
		"status":       meeting.Status,
		"meeting_link": meeting.MeetingLink,
	}
	s.notifier.Push(meeting.SenderID, EventMeetingUpdated, update)
	s.notifier.Push(meeting.ReceiverID, EventMeetingUpdated, update)

	if sender, err := s.users.GetUserByID(meeting.SenderID); err == nil {
		s.emailAsync(sender, mailer.MeetingResponseEmail(receiverName, meeting.Status, meeting.Slot, meeting.MeetingLink))
	} else {
		log.Printf("[meetings] respond %s: sender %d lookup failed: %v", meeting.ID.Hex(), meeting.SenderID, err)
	}
}

// GetMeeting returns a meeting visible to userID.
func (s *MeetingService) GetMeeting(ctx context.Context, meetingID string, userID uint) (*models.Meeting, error) {
	meeting, err := s.meetings.GetMeetingByID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !meeting.IsParty(userID) || meeting.HiddenFor(userID) {
		return nil, ErrNotFound
	}
	return scrub(meeting), nil
}

// ListMeetings returns userID's meetings, newest first, minus the ones they cleared.
func (s *MeetingService) ListMeetings(ctx context.Context, userID uint) ([]models.Meeting, error) {
	meetings, err := s.meetings.GetMeetingsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range meetings {
		scrub(&meetings[i])
	}
	return meetings, nil
}

// ClearMeeting hides the meeting from userID's view. Idempotent.
func (s *MeetingService) ClearMeeting(ctx context.Context, meetingID string, userID uint) error {
	if err := s.meetings.HideForUser(ctx, meetingID, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// UpcomingAccepted lists accepted meetings of userID that have not ended yet.
func (s *MeetingService) UpcomingAccepted(ctx context.Context, userID uint) ([]models.Meeting, error) {
	return s.meetings.GetUpcomingAccepted(ctx, userID, s.clock())
}

func (s *MeetingService) lookupUser(id uint) (*models.User, error) {
	user, err := s.users.GetUserByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, id)
		}
		return nil, err
	}
	return user, nil
}

func (s *MeetingService) emailAsync(to *models.User, email mailer.Email) {
	if to.Email == "" || !to.NotifyEmail {
		return
	}
	go func() {
		if err := s.mail.SendEmail(to.Email, email.Subject, email.HTML, email.Text); err != nil {
			log.Printf("[meetings] email to user %d failed: %v", to.ID, err)
		}
	}()
}

// scrub drops the link from meetings that are not accepted.
func scrub(m *models.Meeting) *models.Meeting {
	if m.Status != models.MeetingAccepted {
		m.MeetingLink = ""
	}
	return m
}
