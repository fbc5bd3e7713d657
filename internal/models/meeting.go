package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MeetingStatus string

const (
	MeetingPending  MeetingStatus = "pending"
	MeetingAccepted MeetingStatus = "accepted"
	MeetingRejected MeetingStatus = "rejected"
)

// Slot is the canonical, human-displayable form of a proposed time range.
type Slot struct {
	Day      string `json:"day" bson:"day"`
	Date     string `json:"date" bson:"date"` // YYYY-MM-DD
	From     string `json:"from" bson:"from"` // HH:MM
	To       string `json:"to" bson:"to"`     // HH:MM
	Timezone string `json:"timezone" bson:"timezone"`
}

// SlotInput is the user-supplied slot before normalization
type SlotInput struct {
	Day      string `json:"day,omitempty"`
	Date     string `json:"date" validate:"required"`
	From     string `json:"from" validate:"required"`
	To       string `json:"to" validate:"required"`
	Timezone string `json:"timezone,omitempty"`
}

// Meeting represents a meeting proposal between two users stored in MongoDB
type Meeting struct {
	ID                primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	SenderID          uint               `json:"sender_id" bson:"sender_id"`
	ReceiverID        uint               `json:"receiver_id" bson:"receiver_id"`
	Slot              Slot               `json:"slot" bson:"slot"`
	StartAt           time.Time          `json:"start_at" bson:"start_at"`
	EndAt             time.Time          `json:"end_at" bson:"end_at"`
	Status            MeetingStatus      `json:"status" bson:"status"`
	MeetingLink       string             `json:"meeting_link,omitempty" bson:"meeting_link,omitempty"`
	ReminderAt        *time.Time         `json:"reminder_at,omitempty" bson:"reminder_at,omitempty"`
	ReminderSent      bool               `json:"reminder_sent" bson:"reminder_sent"`
	ReminderClaimedAt *time.Time         `json:"-" bson:"reminder_claimed_at,omitempty"`
	DeletedFor        []uint             `json:"-" bson:"deleted_for"`
	CreatedAt         time.Time          `json:"created_at" bson:"created_at"`
	RespondedAt       *time.Time         `json:"responded_at,omitempty" bson:"responded_at,omitempty"`
}

// IsParty reports whether userID is the sender or the receiver.
func (m *Meeting) IsParty(userID uint) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// HiddenFor reports whether userID has cleared the meeting from their view.
func (m *Meeting) HiddenFor(userID uint) bool {
	for _, id := range m.DeletedFor {
		if id == userID {
			return true
		}
	}
	return false
}

// Counterpart returns the other party of the meeting.
func (m *Meeting) Counterpart(userID uint) uint {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// MeetingResponse carries the fields written by the pending -> terminal transition.
type MeetingResponse struct {
	Status      MeetingStatus
	RespondedAt time.Time
	MeetingLink string
	ReminderAt  *time.Time
}

// CreateMeetingRequest defines the request body for proposing a meeting
type CreateMeetingRequest struct {
	ReceiverID uint      `json:"receiver_id" validate:"required"`
	Slot       SlotInput `json:"slot" validate:"required"`
}

// RespondMeetingRequest defines the request body for accepting/rejecting a meeting
type RespondMeetingRequest struct {
	Status string `json:"status" validate:"required,oneof=accepted rejected"`
}
