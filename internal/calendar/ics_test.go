package calendar

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/emersion/go-ical"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRenderAcceptedMeetings(t *testing.T) {
	start := time.Date(2024, 3, 5, 19, 0, 0, 0, time.UTC)
	accepted := models.Meeting{
		ID:          primitive.NewObjectID(),
		SenderID:    1,
		ReceiverID:  2,
		Slot:        models.Slot{Day: "Tuesday", Date: "2024-03-05", From: "14:00", To: "15:00", Timezone: "America/New_York"},
		StartAt:     start,
		EndAt:       start.Add(time.Hour),
		Status:      models.MeetingAccepted,
		MeetingLink: "https://meet.example.com/sgh-abc",
	}
	pending := accepted
	pending.ID = primitive.NewObjectID()
	pending.Status = models.MeetingPending

	var buf bytes.Buffer
	feed := Feed{OwnerID: 2, Name: "Bob's meetings", Names: map[uint]string{1: "Alice"}, Host: "studygrouphub"}
	if err := Render(&buf, feed, []models.Meeting{accepted, pending}, start.Add(-24*time.Hour)); err != nil {
		t.Fatalf("Render: %v", err)
	}

	cal, err := ical.NewDecoder(strings.NewReader(buf.String())).Decode()
	if err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}

	var events []*ical.Component
	for _, comp := range cal.Children {
		if comp.Name == ical.CompEvent {
			events = append(events, comp)
		}
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	ev := events[0]

	if got := ev.Props.Get(ical.PropSummary).Value; got != "Meeting with Alice" {
		t.Errorf("summary = %q", got)
	}
	if got := ev.Props.Get(ical.PropUID).Value; got != accepted.ID.Hex()+"@studygrouphub" {
		t.Errorf("uid = %q", got)
	}
	dtStart, err := ev.Props.Get(ical.PropDateTimeStart).DateTime(time.UTC)
	if err != nil || !dtStart.Equal(start) {
		t.Errorf("dtstart = %v (%v), want %v", dtStart, err, start)
	}
	dtEnd, err := ev.Props.Get(ical.PropDateTimeEnd).DateTime(time.UTC)
	if err != nil || !dtEnd.Equal(start.Add(time.Hour)) {
		t.Errorf("dtend = %v (%v)", dtEnd, err)
	}
	if got := ev.Props.Get(ical.PropLocation).Value; got != accepted.MeetingLink {
		t.Errorf("location = %q", got)
	}
}

func TestRenderEmptyFeed(t *testing.T) {
	pending := models.Meeting{ID: primitive.NewObjectID(), SenderID: 1, ReceiverID: 2, Status: models.MeetingPending}
	name := "Alice, Able; meetings"

	var buf bytes.Buffer
	if err := Render(&buf, Feed{OwnerID: 1, Name: name, Host: "h"}, []models.Meeting{pending}, time.Now()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "BEGIN:VCALENDAR\r\n") || !strings.HasSuffix(out, "END:VCALENDAR\r\n") || strings.Contains(out, "BEGIN:VEVENT") {
		t.Fatalf("unexpected feed:\n%s", out)
	}

	cal, err := ical.NewDecoder(strings.NewReader(out)).Decode()
	if err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(cal.Children) != 0 {
		t.Errorf("got %d components, want none", len(cal.Children))
	}
	if got := cal.Props.Get(ical.PropProductID).Value; got != productID {
		t.Errorf("prodid = %q", got)
	}
	if got, err := cal.Props.Get("X-WR-CALNAME").Text(); err != nil || got != name {
		t.Errorf("calendar name = %q (%v), want %q", got, err, name)
	}
}

func TestUnknownCounterpartName(t *testing.T) {
	start := time.Date(2024, 3, 5, 19, 0, 0, 0, time.UTC)
	m := models.Meeting{
		ID: primitive.NewObjectID(), SenderID: 4, ReceiverID: 1,
		StartAt: start, EndAt: start.Add(30 * time.Minute), Status: models.MeetingAccepted,
	}
	ev := event(Feed{OwnerID: 1, Host: "h"}, &m, start)
	if got := ev.Props.Get(ical.PropSummary).Value; got != "Meeting with study partner" {
		t.Errorf("summary = %q", got)
	}
	if ev.Props.Get(ical.PropURL) != nil {
		t.Error("URL set without a meeting link")
	}
}
