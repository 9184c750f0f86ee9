// Package notify delivers confirmed appointment requests to the studio owner
// by email with an iCalendar attachment.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/studio-concierge/internal/booking"
	"github.com/wolfman30/studio-concierge/pkg/logging"
)

const defaultDuration = time.Hour

// AppointmentConfig holds the studio details used when notifying.
type AppointmentConfig struct {
	Recipient  string
	StudioName string
	Location   string
	Timezone   *time.Location
	Duration   time.Duration
}

// AppointmentNotifier emails appointment requests to the studio. It
// implements booking.Notifier.
type AppointmentNotifier struct {
	email  EmailSender
	cfg    AppointmentConfig
	logger *logging.Logger
}

// NewAppointmentNotifier creates a notifier sending through email.
func NewAppointmentNotifier(email EmailSender, cfg AppointmentConfig, logger *logging.Logger) *AppointmentNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Timezone == nil {
		cfg.Timezone = time.UTC
	}
	if cfg.Duration <= 0 {
		cfg.Duration = defaultDuration
	}
	return &AppointmentNotifier{
		email:  email,
		cfg:    cfg,
		logger: logger,
	}
}

// Notify sends req to the studio owner and reports whether it was accepted
// by the email provider. Every failure is logged and reported as false.
func (n *AppointmentNotifier) Notify(ctx context.Context, req booking.AppointmentRequest) bool {
	msg, err := n.buildMessage(req)
	if err != nil {
		n.logger.Error("notify: failed to build appointment email", "error", err)
		return false
	}
	if n.email == nil {
		n.logger.Error("notify: email sender not configured")
		return false
	}
	if err := n.email.Send(ctx, msg); err != nil {
		n.logger.Error("notify: failed to send appointment email", "error", err)
		return false
	}
	return true
}

func (n *AppointmentNotifier) buildMessage(req booking.AppointmentRequest) (EmailMessage, error) {
	if strings.TrimSpace(n.cfg.Recipient) == "" {
		return EmailMessage{}, fmt.Errorf("notify: no recipient configured")
	}
	start, err := ParseDateTime(req.DateTime, n.cfg.Timezone)
	if err != nil {
		return EmailMessage{}, err
	}

	event := NewCalendarEvent(req, start, n.cfg.Duration, n.cfg.Location, n.cfg.Recipient)

	subject := fmt.Sprintf("New appointment request: %s on %s", req.Service, start.Format("02.01.2006 15:04"))
	if n.cfg.StudioName != "" {
		subject = fmt.Sprintf("[%s] %s", n.cfg.StudioName, subject)
	}

	msg := EmailMessage{
		To:      n.cfg.Recipient,
		ToName:  n.cfg.StudioName,
		Subject: subject,
		Body:    booking.FormatSummary(req),
		HTML:    booking.FormatSummaryHTML(req),
		Attachments: []Attachment{{
			Filename:    "appointment.ics",
			ContentType: "text/calendar; charset=utf-8; method=REQUEST",
			Content:     []byte(event.Serialize()),
		}},
	}
	if req.Email != booking.NotAvailable {
		msg.ReplyTo = req.Email
	}
	return msg, nil
}

var _ booking.Notifier = (*AppointmentNotifier)(nil)
