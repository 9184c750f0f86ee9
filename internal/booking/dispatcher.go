package booking

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/studio-concierge/pkg/logging"
)

// Notifier delivers a confirmed appointment request to the studio. It
// reports delivery as a bool and must not panic.
type Notifier interface {
	Notify(ctx context.Context, req AppointmentRequest) bool
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, req AppointmentRequest) bool

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, req AppointmentRequest) bool {
	return f(ctx, req)
}

// Messages are the conversant-facing replies for each dispatch outcome.
type Messages struct {
	Success string
	Failure string
}

// DefaultMessages returns the standard replies. The failure reply points
// the conversant at the studio phone number when one is known.
func DefaultMessages(phone string) Messages {
	failure := "Sorry, there was a problem sending your request. Please call us directly."
	if phone = strings.TrimSpace(phone); phone != "" {
		failure = fmt.Sprintf("Sorry, there was a problem sending your request. Please call us directly at %s.", phone)
	}
	return Messages{
		Success: "Thank you! Your appointment request has been sent. We will get back to you shortly.",
		Failure: failure,
	}
}

// Result is the outcome of a single dispatch attempt.
type Result struct {
	Delivered bool
	Reply     string
}

// Dispatcher hands appointment requests to a Notifier exactly once and maps
// the outcome to a reply. Failed attempts are not retried; the conversant
// has to confirm again.
type Dispatcher struct {
	notifier Notifier
	messages Messages
	logger   *logging.Logger
}

// NewDispatcher creates a dispatcher. A nil notifier makes every dispatch fail.
func NewDispatcher(notifier Notifier, messages Messages, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	defaults := DefaultMessages("")
	if messages.Success == "" {
		messages.Success = defaults.Success
	}
	if messages.Failure == "" {
		messages.Failure = defaults.Failure
	}
	return &Dispatcher{
		notifier: notifier,
		messages: messages,
		logger:   logger,
	}
}

// Dispatch sends req to the notifier and returns the reply for the conversant.
func (d *Dispatcher) Dispatch(ctx context.Context, req AppointmentRequest) Result {
	if d.notify(ctx, req) {
		d.logger.Info("booking: appointment request delivered", "service", req.Service, "date_time", req.DateTime)
		return Result{Delivered: true, Reply: d.messages.Success}
	}
	d.logger.Warn("booking: appointment request not delivered", "service", req.Service, "date_time", req.DateTime)
	return Result{Delivered: false, Reply: d.messages.Failure}
}

func (d *Dispatcher) notify(ctx context.Context, req AppointmentRequest) (ok bool) {
	if d.notifier == nil {
		d.logger.Error("booking: no notifier configured")
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("booking: notifier panicked", "panic", fmt.Sprint(r))
			ok = false
		}
	}()
	return d.notifier.Notify(ctx, req)
}
