package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments owned by the monitor
type Metrics struct {
	EventsTotal              *prometheus.CounterVec
	AlertsTotal              *prometheus.CounterVec
	AlertsCoalescedTotal     prometheus.Counter
	DetectorEvaluationsTotal *prometheus.CounterVec
	ListenerPanicsTotal      prometheus.Counter
	SinkFailuresTotal        prometheus.Counter
}

// NewMetrics creates and registers the monitor metrics against the given
// registerer
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kestrel_security_events_total",
				Help: "Total number of security events logged",
			},
			[]string{"type", "risk"},
		),
		AlertsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kestrel_security_alerts_total",
				Help: "Total number of security alerts raised",
			},
			[]string{"severity"},
		),
		AlertsCoalescedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "kestrel_security_alerts_coalesced_total",
				Help: "Alert proposals suppressed because an open alert already covers the condition",
			},
		),
		DetectorEvaluationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kestrel_detector_evaluations_total",
				Help: "Detector evaluations by detector name",
			},
			[]string{"detector"},
		),
		ListenerPanicsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "kestrel_listener_panics_total",
				Help: "Event listener invocations that panicked and were isolated",
			},
		),
		SinkFailuresTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "kestrel_sink_failures_total",
				Help: "Failed deliveries to the notification sink",
			},
		),
	}
}
