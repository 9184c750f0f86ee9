// Package booking turns a completed conversation into an appointment request
// and hands it to the studio's notifier.
package booking

import (
	"fmt"
	"html"
	"strings"
)

// NotAvailable stands in for any field the conversation did not collect.
const NotAvailable = "not available"

// AppointmentRequest is the immutable payload sent to the studio when a
// conversant confirms their booking details.
type AppointmentRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Service  string `json:"service"`
	DateTime string `json:"date_time"`
}

// NewAppointmentRequest builds a request, substituting NotAvailable for blank fields.
func NewAppointmentRequest(name, email, service, dateTime string) AppointmentRequest {
	return AppointmentRequest{
		Name:     valueOrNA(name),
		Email:    valueOrNA(email),
		Service:  valueOrNA(service),
		DateTime: valueOrNA(dateTime),
	}
}

// FormatSummary renders the request as plain text for the studio owner.
func FormatSummary(req AppointmentRequest) string {
	var b strings.Builder
	b.WriteString("New appointment request:\n\n")
	b.WriteString(fmt.Sprintf("Name: %s\n", valueOrNA(req.Name)))
	b.WriteString(fmt.Sprintf("Email: %s\n", valueOrNA(req.Email)))
	b.WriteString(fmt.Sprintf("Treatment: %s\n", valueOrNA(req.Service)))
	b.WriteString(fmt.Sprintf("Date and time: %s\n\n", valueOrNA(req.DateTime)))
	b.WriteString("Please check availability and confirm the appointment manually.")
	return b.String()
}

// FormatSummaryHTML renders the request as an HTML table for email clients.
func FormatSummaryHTML(req AppointmentRequest) string {
	return fmt.Sprintf(`<div style="font-family:sans-serif;max-width:600px;">
<h2 style="color:#333;">New Appointment Request</h2>
<table style="border-collapse:collapse;width:100%%;">
<tr><td style="padding:6px 12px;font-weight:bold;">Name</td><td style="padding:6px 12px;">%s</td></tr>
<tr><td style="padding:6px 12px;font-weight:bold;">Email</td><td style="padding:6px 12px;"><a href="mailto:%s">%s</a></td></tr>
<tr><td style="padding:6px 12px;font-weight:bold;">Treatment</td><td style="padding:6px 12px;">%s</td></tr>
<tr><td style="padding:6px 12px;font-weight:bold;">Date &amp; time</td><td style="padding:6px 12px;">%s</td></tr>
</table>
<p style="color:#666;font-size:12px;">Please check availability and confirm the appointment manually. A calendar entry is attached.</p>
</div>`,
		html.EscapeString(valueOrNA(req.Name)),
		html.EscapeString(req.Email), html.EscapeString(valueOrNA(req.Email)),
		html.EscapeString(valueOrNA(req.Service)),
		html.EscapeString(valueOrNA(req.DateTime)),
	)
}

func valueOrNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotAvailable
	}
	return s
}
