package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Availability is a free slot a user publishes so others can propose meetings in it
type Availability struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    uint               `json:"user_id" bson:"user_id"`
	Slot      Slot               `json:"slot" bson:"slot"`
	StartAt   time.Time          `json:"start_at" bson:"start_at"`
	EndAt     time.Time          `json:"end_at" bson:"end_at"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

type CreateAvailabilityRequest struct {
	Slot SlotInput `json:"slot" validate:"required"`
}
