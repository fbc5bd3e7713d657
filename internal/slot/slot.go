// Package slot turns user supplied date/time/timezone input into canonical
// slots and UTC instants.
package slot

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // zone database for minimal container images

	"github.com/anonto42/studyhub/backend/internal/models"
)

var ErrInvalidSlot = errors.New("invalid slot")

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Normalized is a validated slot together with its UTC instants.
type Normalized struct {
	Slot    models.Slot
	StartAt time.Time
	EndAt   time.Time
}

type Normalizer struct {
	defaultZone *time.Location
	rejectPast  bool
	now         func() time.Time
}

// NewNormalizer returns a Normalizer falling back to defaultZone. When
// rejectPast is set, slots starting before now() are invalid.
func NewNormalizer(defaultZone string, rejectPast bool, now func() time.Time) (*Normalizer, error) {
	loc, err := time.LoadLocation(defaultZone)
	if err != nil {
		return nil, fmt.Errorf("load default timezone %q: %w", defaultZone, err)
	}
	if now == nil {
		now = time.Now
	}
	return &Normalizer{defaultZone: loc, rejectPast: rejectPast, now: now}, nil
}

// DefaultZone returns the zone used when no other zone resolves.
func (n *Normalizer) DefaultZone() *time.Location {
	return n.defaultZone
}

// Location resolves name, then fallback, then the default zone. Unknown
// names are skipped rather than rejected.
func (n *Normalizer) Location(name, fallback string) *time.Location {
	for _, candidate := range []string{name, fallback} {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if loc, err := time.LoadLocation(candidate); err == nil {
			return loc
		}
	}
	return n.defaultZone
}

// Normalize validates in and converts it to UTC. fallbackZone is used when
// in.Timezone is empty or unknown, typically the requesting user's profile zone.
func (n *Normalizer) Normalize(in models.SlotInput, fallbackZone string) (Normalized, error) {
	date, err := time.Parse(dateLayout, strings.TrimSpace(in.Date))
	if err != nil {
		return Normalized{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidSlot, in.Date)
	}
	from, err := parseClock(in.From)
	if err != nil {
		return Normalized{}, err
	}
	to, err := parseClock(in.To)
	if err != nil {
		return Normalized{}, err
	}

	weekday := date.Weekday().String()
	if d := strings.TrimSpace(in.Day); d != "" && !strings.EqualFold(d, weekday) {
		return Normalized{}, fmt.Errorf("%w: %s is a %s, not %s", ErrInvalidSlot, in.Date, weekday, d)
	}

	loc := n.Location(in.Timezone, fallbackZone)
	start, err := wallClock(date, from, loc)
	if err != nil {
		return Normalized{}, err
	}
	end, err := wallClock(date, to, loc)
	if err != nil {
		return Normalized{}, err
	}

	if !end.After(start) {
		return Normalized{}, fmt.Errorf("%w: end %s must be after start %s", ErrInvalidSlot, to.Format(timeLayout), from.Format(timeLayout))
	}
	if n.rejectPast && start.Before(n.now()) {
		return Normalized{}, fmt.Errorf("%w: slot starts in the past", ErrInvalidSlot)
	}

	return Normalized{
		Slot: models.Slot{
			Day:      weekday,
			Date:     date.Format(dateLayout),
			From:     from.Format(timeLayout),
			To:       to.Format(timeLayout),
			Timezone: loc.String(),
		},
		StartAt: start.UTC(),
		EndAt:   end.UTC(),
	}, nil
}

// Describe re-derives the display slot of a stored start/end pair.
func Describe(startAt, endAt time.Time, zone string) (models.Slot, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return models.Slot{}, fmt.Errorf("%w: unknown timezone %q", ErrInvalidSlot, zone)
	}
	start := startAt.In(loc)
	return models.Slot{
		Day:      start.Weekday().String(),
		Date:     start.Format(dateLayout),
		From:     start.Format(timeLayout),
		To:       endAt.In(loc).Format(timeLayout),
		Timezone: loc.String(),
	}, nil
}

// parseClock accepts 24h H:MM or HH:MM.
func parseClock(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time %q is not HH:MM", ErrInvalidSlot, s)
	}
	return t, nil
}

// wallClock places clock on date in loc. Times skipped by a DST jump are rejected.
func wallClock(date, clock time.Time, loc *time.Location) (time.Time, error) {
	t := time.Date(date.Year(), date.Month(), date.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
	if t.Hour() != clock.Hour() || t.Minute() != clock.Minute() {
		return time.Time{}, fmt.Errorf("%w: %s does not exist on %s in %s", ErrInvalidSlot, clock.Format(timeLayout), date.Format(dateLayout), loc)
	}
	return t, nil
}
