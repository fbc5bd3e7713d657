package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	NotificationMeetingRequest  = "meeting_request"
	NotificationMeetingAccepted = "meeting_accepted"
	NotificationMeetingRejected = "meeting_rejected"
	NotificationMeetingReminder = "meeting_reminder"

	NotificationJoinRequest  = "join_request"
	NotificationJoinApproved = "join_approved"
	NotificationJoinRejected = "join_rejected"
)

// Notification represents a user inbox entry (MongoDB)
type Notification struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    uint               `json:"user_id" bson:"user_id"`
	Type      string             `json:"type" bson:"type"` // meeting_* or join_*
	Title     string             `json:"title" bson:"title"`
	Payload   map[string]any     `json:"payload,omitempty" bson:"payload,omitempty"`
	Read      bool               `json:"read" bson:"read"`
	ReadAt    *time.Time         `json:"read_at,omitempty" bson:"read_at,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

// MarkReadRequest defines the request body for marking several notifications read
type MarkReadRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}
