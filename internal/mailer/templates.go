package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/anonto42/studyhub/backend/internal/models"
)

// Email is a rendered message ready for Sender.SendEmail.
type Email struct {
	Subject string
	HTML    string
	Text    string
}

var layout = template.Must(template.New("email").Parse(`<!doctype html>
<html><body style="font-family:sans-serif">
<h2>{{.Heading}}</h2>
{{range .Lines}}<p>{{.}}</p>
{{end}}{{if .Link}}<p><a href="{{.Link}}">{{.Link}}</a></p>{{end}}
</body></html>`))

type emailData struct {
	Heading string
	Lines   []string
	Link    string
}

func render(subject string, data emailData) Email {
	var html bytes.Buffer
	if err := layout.Execute(&html, data); err != nil {
		html.Reset()
	}

	text := strings.Join(append([]string{data.Heading, ""}, data.Lines...), "\n")
	if data.Link != "" {
		text += "\n\n" + data.Link
	}
	return Email{Subject: subject, HTML: html.String(), Text: text + "\n"}
}

func describeSlot(s models.Slot) string {
	return fmt.Sprintf("%s %s, %s-%s (%s)", s.Day, s.Date, s.From, s.To, s.Timezone)
}

// MeetingRequestEmail is sent to the receiver of a new proposal.
func MeetingRequestEmail(senderName string, slot models.Slot) Email {
	return render("New meeting request from "+senderName, emailData{
		Heading: "You have a new meeting request",
		Lines: []string{
			senderName + " would like to meet with you.",
			"When: " + describeSlot(slot),
			"Open Study Group Hub to accept or decline.",
		},
	})
}

// MeetingResponseEmail is sent to the sender once the receiver decides.
func MeetingResponseEmail(receiverName string, status models.MeetingStatus, slot models.Slot, link string) Email {
	lines := []string{
		fmt.Sprintf("%s has %s your meeting request.", receiverName, status),
		"When: " + describeSlot(slot),
	}
	if status == models.MeetingAccepted {
		lines = append(lines, "Join using the link below at the scheduled time.")
	}
	return render(fmt.Sprintf("Meeting %s by %s", status, receiverName), emailData{
		Heading: "Meeting " + string(status),
		Lines:   lines,
		Link:    link,
	})
}

// MeetingReminderEmail is sent to each party shortly before the meeting.
func MeetingReminderEmail(otherName string, slot models.Slot, link string) Email {
	return render("Reminder: meeting with "+otherName+" starts soon", emailData{
		Heading: "Your meeting starts soon",
		Lines: []string{
			"You are meeting " + otherName + ".",
			"When: " + describeSlot(slot),
		},
		Link: link,
	})
}
