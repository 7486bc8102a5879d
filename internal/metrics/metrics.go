package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for the behavior core.
type Metrics struct {
	moodChanges       *prometheus.CounterVec
	profileChanges    *prometheus.CounterVec
	eventsEnqueued    *prometheus.CounterVec
	eventsHandled     *prometheus.CounterVec
	queueDepth        prometheus.Gauge
	attentionTriggers *prometheus.CounterVec
	attentionActive   prometheus.Gauge
}

var (
	defaultOnce sync.Once
	shared      *Metrics
)

// Default returns the instance registered with the global registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		shared = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return shared
}

// MustNewMetrics registers the collectors with reg and panics on conflicting
// registrations. Tests should pass a fresh prometheus.NewRegistry().
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		moodChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "droidcore",
			Subsystem: "mood",
			Name:      "changes_total",
			Help:      "Mood changes by resulting mood and cause.",
		}, []string{"mood", "cause"}),
		profileChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "droidcore",
			Subsystem: "profile",
			Name:      "changes_total",
			Help:      "Profile selections by profile and cause.",
		}, []string{"profile", "cause"}),
		eventsEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "droidcore",
			Subsystem: "events",
			Name:      "enqueued_total",
			Help:      "Events appended to the event stack.",
		}, []string{"kind"}),
		eventsHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "droidcore",
			Subsystem: "events",
			Name:      "handled_total",
			Help:      "Events taken off the stack by kind and outcome.",
		}, []string{"kind", "outcome"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "droidcore",
			Subsystem: "events",
			Name:      "queue_depth",
			Help:      "Pending events in the stack.",
		}),
		attentionTriggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "droidcore",
			Subsystem: "attention",
			Name:      "triggers_total",
			Help:      "Attention trigger attempts by outcome.",
		}, []string{"outcome"}),
		attentionActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "droidcore",
			Subsystem: "attention",
			Name:      "active",
			Help:      "1 while an attention session is live.",
		}),
	}
	reg.MustRegister(
		m.moodChanges,
		m.profileChanges,
		m.eventsEnqueued,
		m.eventsHandled,
		m.queueDepth,
		m.attentionTriggers,
		m.attentionActive,
	)
	return m
}

func (m *Metrics) MoodChanged(mood, cause string) {
	if m == nil {
		return
	}
	m.moodChanges.WithLabelValues(mood, cause).Inc()
}

func (m *Metrics) ProfileChanged(profile, cause string) {
	if m == nil {
		return
	}
	m.profileChanges.WithLabelValues(profile, cause).Inc()
}

func (m *Metrics) EventEnqueued(kind string, depth int) {
	if m == nil {
		return
	}
	m.eventsEnqueued.WithLabelValues(kind).Inc()
	m.queueDepth.Set(float64(depth))
}

func (m *Metrics) EventHandled(kind, outcome string, depth int) {
	if m == nil {
		return
	}
	m.eventsHandled.WithLabelValues(kind, outcome).Inc()
	m.queueDepth.Set(float64(depth))
}

func (m *Metrics) QueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

func (m *Metrics) AttentionTrigger(outcome string) {
	if m == nil {
		return
	}
	m.attentionTriggers.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AttentionActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.attentionActive.Set(1)
		return
	}
	m.attentionActive.Set(0)
}
