package monitor

import (
	"context"
	"fmt"
	"time"
)

// AlertProposal is what a detector returns when it sees an anomaly. The
// Monitor turns it into a SecurityAlert unless the fingerprint is being
// coalesced.
type AlertProposal struct {
	Severity    RiskLevel
	Title       string
	Description string
	Events      []SecurityEvent
	Tags        []string

	// Fingerprint identifies the underlying condition; proposals with the
	// same fingerprint are coalesced into one open alert. Empty disables
	// coalescing for this proposal.
	Fingerprint string

	// CoalesceWindow bounds how long the fingerprint suppresses duplicates
	CoalesceWindow time.Duration
}

// Detector inspects each logged event and may propose an alert. Evaluate
// runs synchronously inside the logging pipeline, so implementations
// should keep their queries bounded.
type Detector interface {
	Name() string
	Evaluate(ctx context.Context, event SecurityEvent, store EventStore) *AlertProposal
}

// RepeatedAuthFailureDetector raises a High alert when an IP accumulates
// too many failed authentication attempts inside the window.
type RepeatedAuthFailureDetector struct {
	Threshold int
	Window    time.Duration
}

// NewRepeatedAuthFailureDetector returns the detector with production
// defaults: 5 failures within 15 minutes.
func NewRepeatedAuthFailureDetector() *RepeatedAuthFailureDetector {
	return &RepeatedAuthFailureDetector{Threshold: 5, Window: 15 * time.Minute}
}

func (d *RepeatedAuthFailureDetector) Name() string {
	return "repeated-auth-failure"
}

func (d *RepeatedAuthFailureDetector) Evaluate(ctx context.Context, event SecurityEvent, store EventStore) *AlertProposal {
	if !event.Type.IsAuth() || event.Success || event.IP == "" {
		return nil
	}

	since := event.Timestamp.Add(-d.Window)
	failed := false
	history, err := store.Query(ctx, EventFilter{
		Since:   &since,
		IP:      event.IP,
		Success: &failed,
	})
	if err != nil {
		return nil
	}

	count := 0
	var contributing []SecurityEvent
	for _, e := range history {
		if !e.Type.IsAuth() {
			continue
		}
		count++
		if e.ID != event.ID && len(contributing) < 5 {
			contributing = append(contributing, e)
		}
	}
	if count < d.Threshold {
		return nil
	}

	related := append([]SecurityEvent{event}, contributing...)

	return &AlertProposal{
		Severity: RiskHigh,
		Title:    "Repeated authentication failures",
		Description: fmt.Sprintf("%d failed authentication attempts from %s within %s",
			count, event.IP, d.Window),
		Events:         related,
		Tags:           []string{"auth", "brute-force"},
		Fingerprint:    fmt.Sprintf("%s:%s", d.Name(), event.IP),
		CoalesceWindow: d.Window,
	}
}

// BurstDetector raises a Medium alert when an IP produces an abnormal
// volume of events in a short window.
type BurstDetector struct {
	Threshold int
	Window    time.Duration
}

// NewBurstDetector returns the detector with production defaults:
// 100 events within 1 minute.
func NewBurstDetector() *BurstDetector {
	return &BurstDetector{Threshold: 100, Window: time.Minute}
}

func (d *BurstDetector) Name() string {
	return "request-burst"
}

func (d *BurstDetector) Evaluate(ctx context.Context, event SecurityEvent, store EventStore) *AlertProposal {
	if event.IP == "" {
		return nil
	}

	since := event.Timestamp.Add(-d.Window)
	history, err := store.Query(ctx, EventFilter{
		Since: &since,
		IP:    event.IP,
	})
	if err != nil {
		return nil
	}
	if len(history) < d.Threshold {
		return nil
	}

	related := history
	if len(related) > 10 {
		related = related[:10]
	}

	return &AlertProposal{
		Severity: RiskMedium,
		Title:    "Request burst",
		Description: fmt.Sprintf("%d events from %s within %s",
			len(history), event.IP, d.Window),
		Events:         related,
		Tags:           []string{"burst", "abuse"},
		Fingerprint:    fmt.Sprintf("%s:%s", d.Name(), event.IP),
		CoalesceWindow: d.Window,
	}
}

// PrivilegeEscalationDetector raises a Critical alert for every privilege
// escalation event. No coalescing: each occurrence warrants its own alert.
type PrivilegeEscalationDetector struct{}

// NewPrivilegeEscalationDetector returns the detector
func NewPrivilegeEscalationDetector() *PrivilegeEscalationDetector {
	return &PrivilegeEscalationDetector{}
}

func (d *PrivilegeEscalationDetector) Name() string {
	return "privilege-escalation"
}

func (d *PrivilegeEscalationDetector) Evaluate(_ context.Context, event SecurityEvent, _ EventStore) *AlertProposal {
	if event.Type != EventPrivilegeEscalation {
		return nil
	}

	subject := event.UserID
	if subject == "" {
		subject = event.IP
	}

	return &AlertProposal{
		Severity: RiskCritical,
		Title:    "Privilege escalation attempt",
		Description: fmt.Sprintf("privilege escalation attempt by %s on %s",
			subject, event.Resource),
		Events: []SecurityEvent{event},
		Tags:   []string{"privilege-escalation"},
	}
}

// DefaultDetectors returns the built-in detector set with production
// thresholds
func DefaultDetectors() []Detector {
	return []Detector{
		NewRepeatedAuthFailureDetector(),
		NewBurstDetector(),
		NewPrivilegeEscalationDetector(),
	}
}
