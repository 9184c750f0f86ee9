package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for the chat engine.
type ChatMetrics struct {
	messagesTotal   *prometheus.CounterVec
	faqTotal        *prometheus.CounterVec
	dispatchTotal   *prometheus.CounterVec
	failuresTotal   prometheus.Counter
	replyLatency    *prometheus.HistogramVec
	unansweredTotal *prometheus.CounterVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studio",
			Subsystem: "chat",
			Name:      "messages_total",
			Help:      "Inbound chat messages by session state before the transition",
		}, []string{"state"}),
		faqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studio",
			Subsystem: "chat",
			Name:      "faq_lookups_total",
			Help:      "Knowledge base lookups by outcome",
		}, []string{"outcome"}),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studio",
			Subsystem: "booking",
			Name:      "dispatch_total",
			Help:      "Appointment request dispatches by outcome",
		}, []string{"outcome"}),
		failuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "studio",
			Subsystem: "chat",
			Name:      "failures_total",
			Help:      "Messages that ended in the reset-and-apologize path",
		}),
		replyLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "studio",
			Subsystem: "chat",
			Name:      "reply_latency_seconds",
			Help:      "Latency of computing a chat reply",
			Buckets:   prometheus.DefBuckets,
		}, []string{"effect"}),
		unansweredTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "studio",
			Subsystem: "chat",
			Name:      "unanswered_log_total",
			Help:      "Unanswered query sink writes by status",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.messagesTotal, m.faqTotal, m.dispatchTotal, m.failuresTotal, m.replyLatency, m.unansweredTotal)
	return m
}

func (m *ChatMetrics) ObserveMessage(state string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(state).Inc()
}

func (m *ChatMetrics) ObserveFAQ(matched bool) {
	if m == nil {
		return
	}
	m.faqTotal.WithLabelValues(outcomeLabel(matched, "matched", "unmatched")).Inc()
}

func (m *ChatMetrics) ObserveDispatch(delivered bool) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(outcomeLabel(delivered, "delivered", "failed")).Inc()
}

func (m *ChatMetrics) ObserveFailure() {
	if m == nil {
		return
	}
	m.failuresTotal.Inc()
}

func (m *ChatMetrics) ObserveUnansweredLog(err error) {
	if m == nil {
		return
	}
	m.unansweredTotal.WithLabelValues(outcomeLabel(err == nil, "ok", "error")).Inc()
}

func (m *ChatMetrics) ObserveReplyLatency(effect string, seconds float64) {
	if m == nil {
		return
	}
	m.replyLatency.WithLabelValues(effect).Observe(seconds)
}

func outcomeLabel(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
