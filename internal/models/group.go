package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type JoinStatus string

const (
	JoinPending  JoinStatus = "pending"
	JoinApproved JoinStatus = "approved"
	JoinRejected JoinStatus = "rejected"
)

// JoinRequest is one user's request to join a group. Resolved requests are
// kept so the owner can see the history.
type JoinRequest struct {
	UserID      uint       `json:"user_id" bson:"user_id"`
	Status      JoinStatus `json:"status" bson:"status"`
	RequestedAt time.Time  `json:"requested_at" bson:"requested_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty" bson:"resolved_at,omitempty"`
}

// Group is a study group scoped to one university (MongoDB). The owner is
// always a member and cannot leave.
type Group struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title        string             `json:"title" bson:"title"`
	Course       string             `json:"course" bson:"course"`
	Description  string             `json:"description,omitempty" bson:"description,omitempty"`
	University   string             `json:"university" bson:"university"`
	Department   string             `json:"department,omitempty" bson:"department,omitempty"`
	OwnerID      uint               `json:"owner_id" bson:"owner_id"`
	Members      []uint             `json:"members" bson:"members"`
	JoinRequests []JoinRequest      `json:"-" bson:"join_requests"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
}

func (g *Group) IsMember(userID uint) bool {
	for _, id := range g.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// HasPendingRequest reports whether userID is waiting for the owner's decision.
func (g *Group) HasPendingRequest(userID uint) bool {
	for _, r := range g.JoinRequests {
		if r.UserID == userID && r.Status == JoinPending {
			return true
		}
	}
	return false
}

// CreateGroupRequest defines the request body for starting a group
type CreateGroupRequest struct {
	Title       string `json:"title" validate:"required,min=2,max=120"`
	Course      string `json:"course" validate:"required,max=60"`
	Description string `json:"description,omitempty" validate:"omitempty,max=1000"`
}

// PendingJoin is a pending request shown to the group owner.
type PendingJoin struct {
	User        UserCompact `json:"user"`
	RequestedAt time.Time   `json:"requested_at"`
}
