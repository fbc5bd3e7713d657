// Package calendar renders a user's accepted meetings as an iCalendar feed.
package calendar

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/anonto42/studyhub/backend/internal/models"
	"github.com/emersion/go-ical"
)

const productID = "-//Study Group Hub//Meetings//EN"

// Feed describes whose calendar is being rendered.
type Feed struct {
	OwnerID uint
	Name    string
	// Names maps user ids to display names for event summaries.
	Names map[uint]string
	// Host is used to build globally unique event UIDs.
	Host string
}

// Render writes meetings as VEVENTs. Only accepted meetings are included.
// A feed with nothing to show is still a valid, empty VCALENDAR.
func Render(w io.Writer, feed Feed, meetings []models.Meeting, now time.Time) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText(ical.PropCalendarScale, "GREGORIAN")
	cal.Props.SetText(ical.PropMethod, "PUBLISH")
	cal.Props.SetText("X-WR-CALNAME", feed.Name)

	for i := range meetings {
		m := &meetings[i]
		if m.Status != models.MeetingAccepted {
			continue
		}
		cal.Children = append(cal.Children, event(feed, m, now).Component)
	}

	// The encoder refuses calendars without components.
	if len(cal.Children) == 0 {
		return writeEmpty(w, feed.Name)
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

var textEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\r\n", `\n`, "\n", `\n`)

func writeEmpty(w io.Writer, name string) error {
	lines := []string{
		"BEGIN:" + ical.CompCalendar,
		ical.PropVersion + ":2.0",
		ical.PropProductID + ":" + textEscaper.Replace(productID),
		ical.PropCalendarScale + ":GREGORIAN",
		ical.PropMethod + ":PUBLISH",
		"X-WR-CALNAME:" + textEscaper.Replace(name),
		"END:" + ical.CompCalendar,
	}
	if _, err := io.WriteString(w, strings.Join(lines, "\r\n")+"\r\n"); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

func event(feed Feed, m *models.Meeting, now time.Time) *ical.Event {
	other := feed.Names[m.Counterpart(feed.OwnerID)]
	if other == "" {
		other = "study partner"
	}

	ev := ical.NewEvent()
	ev.Props.SetText(ical.PropUID, fmt.Sprintf("%s@%s", m.ID.Hex(), feed.Host))
	ev.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	ev.Props.SetDateTime(ical.PropDateTimeStart, m.StartAt.UTC())
	ev.Props.SetDateTime(ical.PropDateTimeEnd, m.EndAt.UTC())
	ev.Props.SetText(ical.PropSummary, "Meeting with "+other)
	ev.Props.SetText(ical.PropStatus, "CONFIRMED")
	ev.Props.SetText(ical.PropDescription, fmt.Sprintf("%s %s, %s-%s (%s)\n%s",
		m.Slot.Day, m.Slot.Date, m.Slot.From, m.Slot.To, m.Slot.Timezone, m.MeetingLink))
	if m.MeetingLink != "" {
		ev.Props.SetText(ical.PropLocation, m.MeetingLink)
		url := ical.NewProp(ical.PropURL)
		url.Value = m.MeetingLink
		ev.Props.Set(url)
	}
	return ev
}
