package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/repositories"
	"github.com/anonto42/studyhub/backend/internal/slot"
)

// AvailabilityService manages the free slots users publish for others to book.
type AvailabilityService struct {
	availability repositories.AvailabilityRepository
	users        repositories.UserRepository
	normalizer   *slot.Normalizer
	clock        Clock
}

func NewAvailabilityService(repo repositories.AvailabilityRepository, users repositories.UserRepository, normalizer *slot.Normalizer, clock Clock) *AvailabilityService {
	if clock == nil {
		clock = SystemClock
	}
	return &AvailabilityService{availability: repo, users: users, normalizer: normalizer, clock: clock}
}

func (s *AvailabilityService) Publish(ctx context.Context, userID uint, in models.SlotInput) (*models.Availability, error) {
	fallback := ""
	if user, err := s.users.GetUserByID(userID); err == nil {
		fallback = user.Timezone
	}

	normalized, err := s.normalizer.Normalize(in, fallback)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	availability := &models.Availability{
		UserID:    userID,
		Slot:      normalized.Slot,
		StartAt:   normalized.StartAt,
		EndAt:     normalized.EndAt,
		CreatedAt: s.clock(),
	}
	if err := s.availability.CreateAvailability(ctx, availability); err != nil {
		return nil, fmt.Errorf("create availability: %w", err)
	}
	return availability, nil
}

// List returns userID's slots by start time. Slots that already ended are
// omitted unless includePast is set.
func (s *AvailabilityService) List(ctx context.Context, userID uint, includePast bool) ([]models.Availability, error) {
	if includePast {
		return s.availability.GetByUserID(ctx, userID, nil)
	}
	now := s.clock()
	return s.availability.GetByUserID(ctx, userID, &now)
}

func (s *AvailabilityService) Delete(ctx context.Context, id string, userID uint) error {
	if err := s.availability.DeleteAvailability(ctx, id, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
