// Package dialog implements the booking conversation: a pure state machine
// that decides the next step for every message, and the engine that applies
// it to stored sessions.
package dialog

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wolfman30/studio-concierge/internal/booking"
	"github.com/wolfman30/studio-concierge/internal/knowledge"
	"github.com/wolfman30/studio-concierge/internal/session"
)

// ErrUnknownState is returned when a session holds a state the machine
// does not handle.
var ErrUnknownState = errors.New("dialog: unknown state")

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[A-Za-z]{2,}$`)

// Effect is a side effect the caller must perform after a transition.
type Effect int

const (
	// EffectNone needs no follow-up.
	EffectNone Effect = iota
	// EffectLogUnanswered asks the caller to record the message as unanswered.
	EffectLogUnanswered
	// EffectDispatch asks the caller to dispatch Outcome.Request and use the
	// dispatcher's reply.
	EffectDispatch
)

func (e Effect) String() string {
	switch e {
	case EffectNone:
		return "none"
	case EffectLogUnanswered:
		return "log_unanswered"
	case EffectDispatch:
		return "dispatch"
	default:
		return fmt.Sprintf("effect(%d)", int(e))
	}
}

// Outcome is the result of one transition.
type Outcome struct {
	Session session.Session
	Reply   string
	Effect  Effect
	Request booking.AppointmentRequest
	// Matched is set when the reply is a knowledge base answer.
	Matched bool
}

// Options tune the machine.
type Options struct {
	// StrictDateTime re-prompts unless the date/time matches DateTimeLayout.
	StrictDateTime bool
}

// Machine computes transitions. It holds only read-only data and is safe
// for concurrent use.
type Machine struct {
	kb   *knowledge.Base
	opts Options
}

// NewMachine creates a machine answering questions from kb.
func NewMachine(kb *knowledge.Base, opts Options) *Machine {
	if kb == nil {
		kb = knowledge.Default()
	}
	return &Machine{kb: kb, opts: opts}
}

// Transition returns the next session, reply and effect for message given
// the current session. It performs no I/O.
func (m *Machine) Transition(sess session.Session, message string) (Outcome, error) {
	text := strings.TrimSpace(message)

	switch sess.State {
	case session.StateInitial:
		return m.initial(sess, text), nil

	case session.StateAwaitingStartConfirmation:
		switch {
		case isAffirmative(text):
			return advance(sess, session.StateAwaitingName, promptName), nil
		case isNegative(text):
			return cancel(), nil
		default:
			return stay(sess, promptYesNo), nil
		}

	case session.StateAwaitingName:
		if text == "" {
			return stay(sess, promptNameRequired), nil
		}
		sess.Name = titleName(text)
		return advance(sess, session.StateAwaitingEmail, promptEmail), nil

	case session.StateAwaitingEmail:
		if !ValidEmail(text) {
			return stay(sess, promptInvalidEmail), nil
		}
		sess.Email = text
		return advance(sess, session.StateAwaitingService, servicePrompt(m.kb.Services())), nil

	case session.StateAwaitingService:
		if text == "" {
			return stay(sess, promptServiceRequired), nil
		}
		if svc, ok := m.kb.CanonicalService(text); ok {
			sess.Service = svc
		} else {
			sess.Service = text
		}
		return advance(sess, session.StateAwaitingDateTime, promptDateTime), nil

	case session.StateAwaitingDateTime:
		if text == "" || (m.opts.StrictDateTime && !ValidDateTime(text)) {
			return stay(sess, promptInvalidDateTime), nil
		}
		sess.DateTime = text
		return advance(sess, session.StateAwaitingConfirmation,
			summaryPrompt(sess.Name, sess.Email, sess.Service, sess.DateTime)), nil

	case session.StateAwaitingConfirmation:
		switch {
		case isAffirmative(text):
			return Outcome{
				Session: session.Session{},
				Effect:  EffectDispatch,
				Request: booking.NewAppointmentRequest(sess.Name, sess.Email, sess.Service, sess.DateTime),
			}, nil
		case isNegative(text):
			return cancel(), nil
		default:
			return stay(sess, promptYesNo), nil
		}
	}

	return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownState, sess.State)
}

func (m *Machine) initial(sess session.Session, text string) Outcome {
	if wantsBooking(text) {
		return advance(sess, session.StateAwaitingStartConfirmation, promptStartBooking)
	}
	if match, ok := m.kb.Match(text); ok {
		return Outcome{Session: sess, Reply: match.Entry.Answer, Matched: true}
	}
	return Outcome{Session: sess, Reply: m.kb.Fallback(), Effect: EffectLogUnanswered}
}

// titleName collapses whitespace and capitalizes each word. Casers are
// stateful, so one is built per call.
func titleName(text string) string {
	return cases.Title(language.Und).String(strings.Join(strings.Fields(text), " "))
}

// ValidEmail reports whether text has the shape local@domain.tld with a
// top-level label of at least two letters.
func ValidEmail(text string) bool {
	return emailPattern.MatchString(strings.TrimSpace(text))
}

// ValidDateTime reports whether text matches DateTimeLayout.
func ValidDateTime(text string) bool {
	_, err := time.Parse(DateTimeLayout, strings.TrimSpace(text))
	return err == nil
}

func advance(sess session.Session, next session.State, reply string) Outcome {
	sess.State = next
	return Outcome{Session: sess, Reply: reply}
}

func stay(sess session.Session, reply string) Outcome {
	return Outcome{Session: sess, Reply: reply}
}

func cancel() Outcome {
	return Outcome{Session: session.Session{}, Reply: ReplyCancelled}
}
