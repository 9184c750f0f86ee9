package notify

import (
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/wolfman30/studio-concierge/internal/booking"
)

// ErrUnparsableDateTime is returned when an appointment date/time matches
// none of the accepted layouts.
var ErrUnparsableDateTime = errors.New("notify: unparsable appointment date/time")

// dateTimeLayouts are tried in order when parsing a requested slot.
var dateTimeLayouts = []string{
	"02.01.2006 15:04",
	"2.1.2006 15:04",
	"2006-01-02 15:04",
}

// ParseDateTime interprets value as a wall-clock time in loc.
func ParseDateTime(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	value = strings.Join(strings.Fields(value), " ")
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsableDateTime, value)
}

// CalendarEvent describes the VEVENT attached to a notification.
type CalendarEvent struct {
	UID         string
	Start       time.Time
	Duration    time.Duration
	Summary     string
	Description string
	Location    string
	Organizer   string
	Attendee    string
	CreatedAt   time.Time
}

// NewCalendarEvent builds the event for req starting at start.
func NewCalendarEvent(req booking.AppointmentRequest, start time.Time, duration time.Duration, location, organizer string) CalendarEvent {
	return CalendarEvent{
		UID:         uuid.NewString(),
		Start:       start,
		Duration:    duration,
		Summary:     fmt.Sprintf("%s appointment request: %s", req.Service, req.Name),
		Description: fmt.Sprintf("Requested by %s (%s) for %s.", req.Name, req.Email, req.Service),
		Location:    location,
		Organizer:   organizer,
		Attendee:    req.Email,
		CreatedAt:   time.Now(),
	}
}

// Serialize renders ev as an iCalendar document.
func (ev CalendarEvent) Serialize() string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodRequest)
	cal.SetProductId("-//Studio Concierge//Appointment Requests//EN")

	event := cal.AddEvent(ev.UID)
	event.SetCreatedTime(ev.CreatedAt)
	event.SetDtStampTime(ev.CreatedAt)
	event.SetStartAt(ev.Start)
	event.SetEndAt(ev.Start.Add(ev.Duration))
	event.SetSummary(ev.Summary)
	event.SetDescription(ev.Description)
	if ev.Location != "" {
		event.SetLocation(ev.Location)
	}
	if ev.Organizer != "" {
		event.SetOrganizer("mailto:" + ev.Organizer)
	}
	if ev.Attendee != "" && ev.Attendee != booking.NotAvailable {
		event.AddAttendee("mailto:"+ev.Attendee,
			ics.ParticipationStatusNeedsAction,
			ics.WithRSVP(true),
		)
	}
	return cal.Serialize()
}
