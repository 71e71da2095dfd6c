package monitor

import (
	"context"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/kestrelsec/kestrel/pkg/async"
)

// Listener receives every logged event synchronously. A panicking listener
// is isolated and never affects other listeners or the logging call.
type Listener func(event SecurityEvent)

// Sink delivers high-severity events and alerts to an external channel
// (pager, SIEM, chat). Delivery is fire-and-forget: failures are logged
// and discarded.
type Sink interface {
	NotifyAlert(ctx context.Context, alert SecurityAlert) error
	ForwardEvent(ctx context.Context, event SecurityEvent) error
}

const (
	// sinkTimeout bounds a single fire-and-forget sink delivery
	sinkTimeout = 10 * time.Second

	// defaultCoalesceCacheSize bounds the alert fingerprint cache
	defaultCoalesceCacheSize = 1024
)

// openAlertRef tracks the open alert covering a detector fingerprint
type openAlertRef struct {
	alertID   string
	expiresAt time.Time
}

// Monitor is the security event pipeline: it persists events, notifies
// listeners, evaluates anomaly detectors, and manages the alert store.
type Monitor struct {
	store   EventStore
	log     logrus.FieldLogger
	sink    Sink
	metrics *Metrics

	mu           sync.Mutex
	listeners    []Listener
	detectors    []Detector
	alerts       []*SecurityAlert
	alertsByID   map[string]*SecurityAlert
	recentAlerts *lru.Cache[string, openAlertRef]
}

// Option configures a Monitor
type Option func(*Monitor)

// WithSink sets the external notification sink
func WithSink(sink Sink) Option {
	return func(m *Monitor) { m.sink = sink }
}

// WithLogger sets the diagnostic logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(m *Monitor) { m.log = log }
}

// WithMetrics attaches Prometheus instrumentation
func WithMetrics(metrics *Metrics) Option {
	return func(m *Monitor) { m.metrics = metrics }
}

// WithDetectors replaces the built-in detector set
func WithDetectors(detectors ...Detector) Option {
	return func(m *Monitor) { m.detectors = detectors }
}

// WithCoalesceCacheSize sets the capacity of the alert fingerprint cache
func WithCoalesceCacheSize(size int) Option {
	return func(m *Monitor) {
		if size > 0 {
			cache, err := lru.New[string, openAlertRef](size)
			if err == nil {
				m.recentAlerts = cache
			}
		}
	}
}

// NewMonitor creates a Monitor over the given event store. Without options
// it uses the built-in detectors, the package-level logrus logger, no sink
// and no metrics.
func NewMonitor(store EventStore, opts ...Option) *Monitor {
	cache, _ := lru.New[string, openAlertRef](defaultCoalesceCacheSize)

	m := &Monitor{
		store:        store,
		log:          logrus.StandardLogger(),
		detectors:    DefaultDetectors(),
		alertsByID:   make(map[string]*SecurityAlert),
		recentAlerts: cache,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AddListener registers a synchronous event listener
func (m *Monitor) AddListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// RegisterDetector adds an anomaly detector to the evaluation set
func (m *Monitor) RegisterDetector(d Detector) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detectors = append(m.detectors, d)
}

// LogEvent records a security event. It stamps the ID and timestamp when
// absent, persists the event, notifies listeners, runs the detectors, and
// forwards High/Critical events to the sink. The returned event carries
// the assigned ID and timestamp.
func (m *Monitor) LogEvent(ctx context.Context, event SecurityEvent) SecurityEvent {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if err := m.store.Append(ctx, event); err != nil {
		m.log.WithError(err).WithField("event_type", event.Type).
			Error("failed to persist security event")
	}

	if m.metrics != nil {
		m.metrics.EventsTotal.WithLabelValues(string(event.Type), string(event.RiskLevel)).Inc()
	}

	m.mu.Lock()
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	detectors := make([]Detector, len(m.detectors))
	copy(detectors, m.detectors)
	m.mu.Unlock()

	for _, l := range listeners {
		m.notifyListener(l, event)
	}

	for _, d := range detectors {
		if m.metrics != nil {
			m.metrics.DetectorEvaluationsTotal.WithLabelValues(d.Name()).Inc()
		}
		if proposal := d.Evaluate(ctx, event, m.store); proposal != nil {
			m.raiseAlert(proposal)
		}
	}

	if m.sink != nil && event.RiskLevel.Rank() >= RiskHigh.Rank() {
		sink := m.sink
		async.SafeGo(context.Background(), sinkTimeout, "event forwarding", func(ctx context.Context) error {
			if err := sink.ForwardEvent(ctx, event); err != nil {
				m.countSinkFailure()
				return err
			}
			return nil
		})
	}

	return event
}

// notifyListener invokes one listener with panic isolation
func (m *Monitor) notifyListener(l Listener, event SecurityEvent) {
	defer func() {
		if r := recover(); r != nil {
			if m.metrics != nil {
				m.metrics.ListenerPanicsTotal.Inc()
			}
			m.log.WithField("panic", r).Error("security event listener panicked")
		}
	}()
	l(event)
}

// raiseAlert applies coalescing and creates the alert when not suppressed
func (m *Monitor) raiseAlert(p *AlertProposal) *SecurityAlert {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.Fingerprint != "" {
		if ref, ok := m.recentAlerts.Get(p.Fingerprint); ok {
			open, exists := m.alertsByID[ref.alertID]
			if exists && !open.Resolved && time.Now().Before(ref.expiresAt) {
				if m.metrics != nil {
					m.metrics.AlertsCoalescedTotal.Inc()
				}
				return nil
			}
			m.recentAlerts.Remove(p.Fingerprint)
		}
	}

	alert := m.createAlertLocked(p.Severity, p.Title, p.Description, p.Events, p.Tags)

	if p.Fingerprint != "" {
		m.recentAlerts.Add(p.Fingerprint, openAlertRef{
			alertID:   alert.ID,
			expiresAt: time.Now().Add(p.CoalesceWindow),
		})
	}

	return alert
}

// CreateAlert raises an alert directly, bypassing detector coalescing.
// The returned copy is safe to retain.
func (m *Monitor) CreateAlert(severity RiskLevel, title, description string, related []SecurityEvent, tags ...string) SecurityAlert {
	m.mu.Lock()
	alert := m.createAlertLocked(severity, title, description, related, tags)
	m.mu.Unlock()
	return copyAlert(alert)
}

// createAlertLocked builds, stores, and dispatches an alert. Caller holds mu.
func (m *Monitor) createAlertLocked(severity RiskLevel, title, description string, related []SecurityEvent, tags []string) *SecurityAlert {
	alert := &SecurityAlert{
		ID:            uuid.NewString(),
		Timestamp:     time.Now().UTC(),
		Severity:      severity,
		Title:         title,
		Description:   description,
		RelatedEvents: append([]SecurityEvent(nil), related...),
		Tags:          append([]string(nil), tags...),
	}

	m.alerts = append(m.alerts, alert)
	m.alertsByID[alert.ID] = alert

	if m.metrics != nil {
		m.metrics.AlertsTotal.WithLabelValues(string(severity)).Inc()
	}
	m.log.WithFields(logrus.Fields{
		"alert_id": alert.ID,
		"severity": severity,
		"title":    title,
	}).Warn("security alert raised")

	if m.sink != nil {
		sink := m.sink
		notify := copyAlert(alert)
		async.SafeGo(context.Background(), sinkTimeout, "alert notification", func(ctx context.Context) error {
			if err := sink.NotifyAlert(ctx, notify); err != nil {
				m.countSinkFailure()
				return err
			}
			return nil
		})
	}

	return alert
}

func (m *Monitor) countSinkFailure() {
	if m.metrics != nil {
		m.metrics.SinkFailuresTotal.Inc()
	}
}

// ResolveAlert marks an alert resolved. It returns true exactly once per
// alert; unknown or already-resolved alerts return false.
func (m *Monitor) ResolveAlert(alertID, resolvedBy string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	alert, ok := m.alertsByID[alertID]
	if !ok || alert.Resolved {
		return false
	}

	now := time.Now().UTC()
	alert.Resolved = true
	alert.ResolvedBy = resolvedBy
	alert.ResolvedAt = &now

	m.log.WithFields(logrus.Fields{
		"alert_id":    alertID,
		"resolved_by": resolvedBy,
	}).Info("security alert resolved")

	return true
}

// GetEvents returns events matching the filter, newest first
func (m *Monitor) GetEvents(ctx context.Context, filter EventFilter) ([]SecurityEvent, error) {
	return m.store.Query(ctx, filter)
}

// GetEvent returns a single event by ID
func (m *Monitor) GetEvent(ctx context.Context, id string) (*SecurityEvent, error) {
	events, err := m.store.Query(ctx, EventFilter{})
	if err != nil {
		return nil, err
	}
	for i := range events {
		if events[i].ID == id {
			return &events[i], nil
		}
	}
	return nil, nil
}

// GetAlerts returns alerts newest first. A nil resolved filter returns
// all alerts; otherwise only those with the matching resolution state.
func (m *Monitor) GetAlerts(resolved *bool) []SecurityAlert {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]SecurityAlert, 0, len(m.alerts))
	for i := len(m.alerts) - 1; i >= 0; i-- {
		a := m.alerts[i]
		if resolved != nil && a.Resolved != *resolved {
			continue
		}
		out = append(out, copyAlert(a))
	}
	return out
}

// GetSecurityStats summarizes events and alert state within the range
func (m *Monitor) GetSecurityStats(ctx context.Context, tr TimeRange) (SecurityStats, error) {
	filter := EventFilter{}
	if !tr.Start.IsZero() {
		filter.Since = &tr.Start
	}
	if !tr.End.IsZero() {
		filter.Until = &tr.End
	}

	events, err := m.store.Query(ctx, filter)
	if err != nil {
		return SecurityStats{}, err
	}

	stats := SecurityStats{
		TimeRange:    tr,
		TotalEvents:  len(events),
		EventsByType: make(map[EventType]int),
		EventsByRisk: make(map[RiskLevel]int),
	}

	ipCounts := make(map[string]int)
	for _, e := range events {
		stats.EventsByType[e.Type]++
		stats.EventsByRisk[e.RiskLevel]++
		if e.IP != "" {
			ipCounts[e.IP]++
		}
		if e.RiskLevel.Rank() >= RiskHigh.Rank() {
			stats.HighRiskEvents++
		}
		if e.Type.IsSuspicious() {
			stats.SuspiciousEvents++
		}
	}

	stats.TopIPs = topIPs(ipCounts, 10)

	m.mu.Lock()
	for _, a := range m.alerts {
		if !a.Resolved {
			stats.UnresolvedAlerts++
		}
	}
	m.mu.Unlock()

	return stats, nil
}

// topIPs returns the n busiest IPs in descending count order, ties broken
// by IP for stable output
func topIPs(counts map[string]int, n int) []IPCount {
	out := make([]IPCount, 0, len(counts))
	for ip, c := range counts {
		out = append(out, IPCount{IP: ip, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].IP < out[j].IP
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// copyAlert returns a deep enough copy that callers cannot mutate stored
// alert state
func copyAlert(a *SecurityAlert) SecurityAlert {
	out := *a
	out.RelatedEvents = append([]SecurityEvent(nil), a.RelatedEvents...)
	out.Tags = append([]string(nil), a.Tags...)
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		out.ResolvedAt = &t
	}
	return out
}

// privilegedResources marks resources whose access is never routine
var privilegedResources = regexp.MustCompile(`(?i)(admin|billing|credential|secret|token|key|export)`)

// LogAuthEvent records an authentication outcome. Failures are Medium
// risk, successes Low.
func (m *Monitor) LogAuthEvent(ctx context.Context, typ EventType, userID, ip, userAgent string, success bool, details map[string]interface{}) SecurityEvent {
	risk := RiskLow
	if !success {
		risk = RiskMedium
	}
	return m.LogEvent(ctx, SecurityEvent{
		Type:      typ,
		RiskLevel: risk,
		UserID:    userID,
		IP:        ip,
		UserAgent: userAgent,
		Success:   success,
		Details:   details,
	})
}

// LogDataAccess records a data access, grading risk by volume and
// sensitivity: bulk reads and flagged-sensitive access are High, exports
// and privileged resources Medium, everything else Low.
func (m *Monitor) LogDataAccess(ctx context.Context, userID, resource, action, ip, userAgent string, recordCount int, sensitive bool, details map[string]interface{}) SecurityEvent {
	risk := RiskLow
	switch {
	case recordCount > 1000 || sensitive:
		risk = RiskHigh
	case action == "export" || action == "download" || privilegedResources.MatchString(resource):
		risk = RiskMedium
	}
	return m.LogEvent(ctx, SecurityEvent{
		Type:      EventDataAccess,
		RiskLevel: risk,
		UserID:    userID,
		IP:        ip,
		UserAgent: userAgent,
		Resource:  resource,
		Action:    action,
		Success:   true,
		Details:   details,
	})
}

// LogSuspiciousActivity records an abuse signal. Always High risk and
// unsuccessful.
func (m *Monitor) LogSuspiciousActivity(ctx context.Context, typ EventType, userID, ip, userAgent string, details map[string]interface{}) SecurityEvent {
	return m.LogEvent(ctx, SecurityEvent{
		Type:      typ,
		RiskLevel: RiskHigh,
		UserID:    userID,
		IP:        ip,
		UserAgent: userAgent,
		Success:   false,
		Details:   details,
	})
}

// LogAccessDenied records an authorization denial
func (m *Monitor) LogAccessDenied(ctx context.Context, userID, resource, action, ip, userAgent string) SecurityEvent {
	return m.LogEvent(ctx, SecurityEvent{
		Type:      EventAccessDenied,
		RiskLevel: RiskMedium,
		UserID:    userID,
		IP:        ip,
		UserAgent: userAgent,
		Resource:  resource,
		Action:    action,
		Success:   false,
	})
}
