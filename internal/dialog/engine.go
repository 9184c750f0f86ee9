package dialog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/studio-concierge/internal/booking"
	"github.com/wolfman30/studio-concierge/internal/observability/metrics"
	"github.com/wolfman30/studio-concierge/internal/session"
	"github.com/wolfman30/studio-concierge/pkg/logging"
)

var (
	// ErrPanic wraps a panic recovered while computing a reply.
	ErrPanic = errors.New("dialog: panic while computing reply")
	// ErrNoDispatcher is returned when a confirmed booking has nowhere to go.
	ErrNoDispatcher = errors.New("dialog: no dispatcher configured")
)

// Dispatcher hands a confirmed appointment request to the studio.
type Dispatcher interface {
	Dispatch(ctx context.Context, req booking.AppointmentRequest) booking.Result
}

// UnansweredSink records messages the knowledge base could not answer.
type UnansweredSink interface {
	Log(ctx context.Context, message string) error
}

// Engine applies machine transitions to stored sessions. One engine serves
// all conversants; access to a single session is serialized by the store.
type Engine struct {
	sessions   *session.Store
	machine    *Machine
	dispatcher Dispatcher
	unanswered UnansweredSink
	metrics    *metrics.ChatMetrics
	logger     *logging.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithUnansweredSink sets where unmatched questions are recorded.
func WithUnansweredSink(sink UnansweredSink) EngineOption {
	return func(e *Engine) { e.unanswered = sink }
}

// WithMetrics sets the engine metrics.
func WithMetrics(m *metrics.ChatMetrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the engine logger.
func WithLogger(logger *logging.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine. A nil machine uses the built-in knowledge base.
func NewEngine(sessions *session.Store, machine *Machine, dispatcher Dispatcher, opts ...EngineOption) *Engine {
	if sessions == nil {
		sessions = session.NewStore()
	}
	if machine == nil {
		machine = NewMachine(nil, Options{})
	}
	e := &Engine{
		sessions:   sessions,
		machine:    machine,
		dispatcher: dispatcher,
		logger:     logging.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reply processes one message from identity and returns the text to show.
// It never fails: any error resets the session and yields ReplyFailure.
func (e *Engine) Reply(ctx context.Context, identity, message string) string {
	start := time.Now()
	effect := EffectNone

	var reply string
	err := e.sessions.Update(identity, func(sess *session.Session) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", ErrPanic, r)
			}
			if err != nil {
				*sess = session.Session{}
			}
		}()

		e.metrics.ObserveMessage(sess.State.String())

		out, err := e.machine.Transition(*sess, message)
		if err != nil {
			return err
		}
		effect = out.Effect
		reply = out.Reply

		switch out.Effect {
		case EffectLogUnanswered:
			e.metrics.ObserveFAQ(false)
			e.logUnanswered(ctx, message)
		case EffectDispatch:
			if e.dispatcher == nil {
				return ErrNoDispatcher
			}
			res := e.dispatcher.Dispatch(ctx, out.Request)
			e.metrics.ObserveDispatch(res.Delivered)
			reply = res.Reply
		default:
			if out.Matched {
				e.metrics.ObserveFAQ(true)
			}
		}

		if out.Session.State != sess.State {
			e.logger.Debug("dialog: state changed", "identity", identity, "from", sess.State.String(), "to", out.Session.State.String())
		}
		*sess = out.Session
		return nil
	})
	if err != nil {
		e.fail(identity, err)
		reply = ReplyFailure
	}

	e.metrics.ObserveReplyLatency(effect.String(), time.Since(start).Seconds())
	return reply
}

func (e *Engine) fail(identity string, err error) {
	e.metrics.ObserveFailure()
	e.logger.Error("dialog: failed to compute reply, session reset", "identity", identity, "error", err)
}

func (e *Engine) logUnanswered(ctx context.Context, message string) {
	if e.unanswered == nil {
		return
	}
	err := e.unanswered.Log(ctx, message)
	e.metrics.ObserveUnansweredLog(err)
	if err != nil {
		e.logger.Warn("dialog: failed to record unanswered query", "error", err)
	}
}

// Session returns a copy of the current session for identity.
func (e *Engine) Session(identity string) session.Session {
	return e.sessions.GetOrCreate(identity)
}
