package mailer

import (
	"strings"
	"testing"

	"github.com/anonto42/studyhub/backend/internal/models"
)

func TestTemplatesEscapeAndIncludeSlot(t *testing.T) {
	s := models.Slot{Day: "Tuesday", Date: "2024-03-05", From: "14:00", To: "15:00", Timezone: "America/New_York"}

	tests := []struct {
		name        string
		email       Email
		wantSubject string
		wantLink    bool
	}{
		{"request", MeetingRequestEmail("<b>Ada</b>", s), "New meeting request from <b>Ada</b>", false},
		{"accepted", MeetingResponseEmail("Grace", models.MeetingAccepted, s, "https://meet.jit.si/sgh-1"), "Meeting accepted by Grace", true},
		{"rejected", MeetingResponseEmail("Grace", models.MeetingRejected, s, ""), "Meeting rejected by Grace", false},
		{"reminder", MeetingReminderEmail("Alan", s, "https://meet.jit.si/sgh-2"), "Reminder: meeting with Alan starts soon", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.email.Subject != tt.wantSubject {
				t.Errorf("subject = %q, want %q", tt.email.Subject, tt.wantSubject)
			}
			if !strings.Contains(tt.email.Text, "Tuesday 2024-03-05, 14:00-15:00 (America/New_York)") {
				t.Errorf("text body missing slot: %q", tt.email.Text)
			}
			if strings.Contains(tt.email.HTML, "<b>Ada</b>") {
				t.Errorf("html body not escaped: %q", tt.email.HTML)
			}
			if got := strings.Contains(tt.email.HTML, "<a href="); got != tt.wantLink {
				t.Errorf("html link present = %v, want %v", got, tt.wantLink)
			}
		})
	}
}

func TestMockRecords(t *testing.T) {
	m := &Mock{}
	if err := m.SendEmail("a@state.edu", "hi", "<p>hi</p>", "hi"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if !m.WaitFor(1, 0) {
		t.Fatal("expected one recorded message")
	}
	if got := m.Messages()[0].To; got != "a@state.edu" {
		t.Errorf("to = %q", got)
	}
}
