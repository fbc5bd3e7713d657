package slot_test

import (
	"errors"
	"testing"
	"time"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/anonto42/studyhub/backend/internal/slot"
)

var fixedNow = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func newNormalizer(t *testing.T, rejectPast bool) *slot.Normalizer {
	t.Helper()
	n, err := slot.NewNormalizer("America/New_York", rejectPast, func() time.Time { return fixedNow })
	if err != nil {
		t.Fatalf("new normalizer: %v", err)
	}
	return n
}

func TestNormalizeConvertsToUTC(t *testing.T) {
	n := newNormalizer(t, true)

	got, err := n.Normalize(models.SlotInput{Date: "2024-03-05", From: "14:00", To: "15:00", Timezone: "America/New_York"}, "")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}

	wantStart := time.Date(2024, 3, 5, 19, 0, 0, 0, time.UTC)
	if !got.StartAt.Equal(wantStart) {
		t.Errorf("start = %v, want %v", got.StartAt, wantStart)
	}
	if !got.EndAt.Equal(wantStart.Add(time.Hour)) {
		t.Errorf("end = %v, want %v", got.EndAt, wantStart.Add(time.Hour))
	}
	if got.StartAt.Location() != time.UTC {
		t.Errorf("start location = %v, want UTC", got.StartAt.Location())
	}
	want := models.Slot{Day: "Tuesday", Date: "2024-03-05", From: "14:00", To: "15:00", Timezone: "America/New_York"}
	if got.Slot != want {
		t.Errorf("slot = %+v, want %+v", got.Slot, want)
	}
}

func TestNormalizeZoneFallback(t *testing.T) {
	n := newNormalizer(t, false)

	tests := []struct {
		name      string
		zone      string
		fallback  string
		wantZone  string
		wantStart time.Time
	}{
		{"explicit zone", "Asia/Tokyo", "Europe/London", "Asia/Tokyo", time.Date(2024, 3, 5, 5, 0, 0, 0, time.UTC)},
		{"profile zone", "", "Europe/London", "Europe/London", time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)},
		{"default zone", "", "", "America/New_York", time.Date(2024, 3, 5, 19, 0, 0, 0, time.UTC)},
		{"unknown zone", "Mars/Olympus_Mons", "", "America/New_York", time.Date(2024, 3, 5, 19, 0, 0, 0, time.UTC)},
		{"unknown zone with profile", "Not/AZone", "Europe/London", "Europe/London", time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Normalize(models.SlotInput{Date: "2024-03-05", From: "14:00", To: "15:30", Timezone: tt.zone}, tt.fallback)
			if err != nil {
				t.Fatalf("normalize: %v", err)
			}
			if got.Slot.Timezone != tt.wantZone {
				t.Errorf("zone = %q, want %q", got.Slot.Timezone, tt.wantZone)
			}
			if !got.StartAt.Equal(tt.wantStart) {
				t.Errorf("start = %v, want %v", got.StartAt, tt.wantStart)
			}
		})
	}
}

func TestNormalizeCanonicalisesClock(t *testing.T) {
	n := newNormalizer(t, false)

	got, err := n.Normalize(models.SlotInput{Date: "2024-03-05", From: "9:05", To: " 10:00 ", Day: "tuesday"}, "")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got.Slot.From != "09:05" || got.Slot.To != "10:00" {
		t.Errorf("clock = %s-%s, want 09:05-10:00", got.Slot.From, got.Slot.To)
	}
	if got.Slot.Day != "Tuesday" {
		t.Errorf("day = %q, want Tuesday", got.Slot.Day)
	}
}

func TestNormalizeRejects(t *testing.T) {
	n := newNormalizer(t, true)

	tests := []struct {
		name string
		in   models.SlotInput
	}{
		{"bad date", models.SlotInput{Date: "2024-13-01", From: "10:00", To: "11:00"}},
		{"date with time", models.SlotInput{Date: "2024-03-05T10:00", From: "10:00", To: "11:00"}},
		{"hour out of range", models.SlotInput{Date: "2024-03-05", From: "25:00", To: "26:00"}},
		{"single digit minute", models.SlotInput{Date: "2024-03-05", From: "10:0", To: "11:00"}},
		{"twelve hour clock", models.SlotInput{Date: "2024-03-05", From: "10:00am", To: "11:00"}},
		{"empty to", models.SlotInput{Date: "2024-03-05", From: "10:00", To: ""}},
		{"end equals start", models.SlotInput{Date: "2024-03-05", From: "10:00", To: "10:00"}},
		{"end before start", models.SlotInput{Date: "2024-03-05", From: "11:00", To: "10:00"}},
		{"weekday mismatch", models.SlotInput{Date: "2024-03-05", From: "10:00", To: "11:00", Day: "Friday"}},
		{"dst gap", models.SlotInput{Date: "2024-03-10", From: "02:30", To: "04:00", Timezone: "America/New_York"}},
		{"in the past", models.SlotInput{Date: "2024-02-28", From: "10:00", To: "11:00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(tt.in, "")
			if !errors.Is(err, slot.ErrInvalidSlot) {
				t.Fatalf("err = %v, want ErrInvalidSlot", err)
			}
		})
	}
}

func TestNormalizeAllowsPastWhenDisabled(t *testing.T) {
	n := newNormalizer(t, false)

	if _, err := n.Normalize(models.SlotInput{Date: "2024-02-28", From: "10:00", To: "11:00"}, ""); err != nil {
		t.Fatalf("normalize: %v", err)
	}
}

func TestDescribeRoundTrips(t *testing.T) {
	n := newNormalizer(t, false)

	inputs := []models.SlotInput{
		{Date: "2024-03-05", From: "14:00", To: "15:00", Timezone: "America/New_York"},
		{Date: "2024-03-31", From: "00:30", To: "03:15", Timezone: "Europe/Berlin"},
		{Date: "2024-11-03", From: "00:15", To: "23:45", Timezone: "America/Los_Angeles"},
		{Date: "2024-06-30", From: "7:00", To: "8:00", Timezone: "Asia/Kolkata"},
		{Date: "2024-12-31", From: "23:00", To: "23:59", Timezone: "Pacific/Auckland"},
	}

	for _, in := range inputs {
		t.Run(in.Date+" "+in.Timezone, func(t *testing.T) {
			got, err := n.Normalize(in, "")
			if err != nil {
				t.Fatalf("normalize: %v", err)
			}
			if !got.StartAt.Before(got.EndAt) {
				t.Fatalf("start %v not before end %v", got.StartAt, got.EndAt)
			}
			back, err := slot.Describe(got.StartAt, got.EndAt, got.Slot.Timezone)
			if err != nil {
				t.Fatalf("describe: %v", err)
			}
			if back != got.Slot {
				t.Errorf("round trip = %+v, want %+v", back, got.Slot)
			}
		})
	}
}
