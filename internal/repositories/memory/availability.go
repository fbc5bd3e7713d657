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

type Availability struct {
	mu    sync.Mutex
	slots map[primitive.ObjectID]models.Availability
}

var _ repositories.AvailabilityRepository = (*Availability)(nil)

func NewAvailability() *Availability {
	return &Availability{slots: make(map[primitive.ObjectID]models.Availability)}
}

func (r *Availability) CreateAvailability(_ context.Context, a *models.Availability) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a.ID = primitive.NewObjectID()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	r.slots[a.ID] = *a
	return nil
}

func (r *Availability) GetByUserID(_ context.Context, userID uint, endingAfter *time.Time) ([]models.Availability, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []models.Availability{}
	for _, a := range r.slots {
		if a.UserID != userID {
			continue
		}
		if endingAfter != nil && a.EndAt.Before(*endingAfter) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

func (r *Availability) DeleteAvailability(_ context.Context, id string, userID uint) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return repositories.ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.slots[oid]
	if !ok || a.UserID != userID {
		return repositories.ErrNotFound
	}
	delete(r.slots, oid)
	return nil
}
