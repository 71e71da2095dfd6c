package monitor

import (
	"strings"
	"time"
)

// EventType represents the category of security event
type EventType string

const (
	// Authentication events
	EventAuthLogin          EventType = "auth.login"
	EventAuthLoginFailed    EventType = "auth.login_failed"
	EventAuthLogout         EventType = "auth.logout"
	EventAuthPasswordChange EventType = "auth.password_change"

	// Authorization events
	EventAccessDenied        EventType = "authz.access_denied"
	EventPrivilegeEscalation EventType = "authz.privilege_escalation"

	// Data events
	EventDataAccess EventType = "data.access"

	// Abuse signals
	EventRateLimitExceeded EventType = "ratelimit.exceeded"
	EventSuspiciousRequest EventType = "suspicious.request"

	// Configuration events
	EventConfigChange EventType = "config.change"
)

// IsAuth reports whether the event type belongs to the authentication family
func (t EventType) IsAuth() bool {
	return strings.HasPrefix(string(t), "auth.")
}

// IsSuspicious reports whether the event type is an abuse signal counted in
// the suspicious bucket of security stats
func (t EventType) IsSuspicious() bool {
	return strings.HasPrefix(string(t), "suspicious.") ||
		t == EventRateLimitExceeded ||
		t == EventPrivilegeEscalation
}

// RiskLevel is the coarse severity attached to events and alerts
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// riskRanks orders risk levels; unknown levels rank lowest
var riskRanks = map[RiskLevel]int{
	RiskLow:      1,
	RiskMedium:   2,
	RiskHigh:     3,
	RiskCritical: 4,
}

// Rank returns the ordering of the risk level (0 for unknown)
func (r RiskLevel) Rank() int {
	return riskRanks[r]
}

// SecurityEvent is a single immutable entry in the security log. Once
// logged it is never edited.
type SecurityEvent struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Type      EventType              `json:"type"`
	RiskLevel RiskLevel              `json:"risk_level"`
	UserID    string                 `json:"user_id,omitempty"`
	IP        string                 `json:"ip"`
	UserAgent string                 `json:"user_agent,omitempty"`
	Resource  string                 `json:"resource,omitempty"`
	Action    string                 `json:"action,omitempty"`
	Success   bool                   `json:"success"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// SecurityAlert is a derived, human-actionable record referencing the
// events that triggered it. Mutable only through the one-way
// Open -> Resolved transition.
type SecurityAlert struct {
	ID            string          `json:"id"`
	Timestamp     time.Time       `json:"timestamp"`
	Severity      RiskLevel       `json:"severity"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	RelatedEvents []SecurityEvent `json:"related_events,omitempty"`
	Resolved      bool            `json:"resolved"`
	ResolvedBy    string          `json:"resolved_by,omitempty"`
	ResolvedAt    *time.Time      `json:"resolved_at,omitempty"`
	Tags          []string        `json:"tags,omitempty"`
}

// EventFilter selects events from the log. All provided fields must match;
// zero values mean "any".
type EventFilter struct {
	Since     *time.Time  `json:"since,omitempty"`
	Until     *time.Time  `json:"until,omitempty"`
	Types     []EventType `json:"types,omitempty"`
	UserID    string      `json:"user_id,omitempty"`
	RiskLevel RiskLevel   `json:"risk_level,omitempty"`
	IP        string      `json:"ip,omitempty"`
	Success   *bool       `json:"success,omitempty"`
	// Limit caps the number of returned events; zero means no cap
	Limit int `json:"limit,omitempty"`
}

// Matches reports whether the event satisfies every provided filter field
func (f EventFilter) Matches(e SecurityEvent) bool {
	if f.Since != nil && e.Timestamp.Before(*f.Since) {
		return false
	}
	if f.Until != nil && e.Timestamp.After(*f.Until) {
		return false
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if e.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.RiskLevel != "" && e.RiskLevel != f.RiskLevel {
		return false
	}
	if f.IP != "" && e.IP != f.IP {
		return false
	}
	if f.Success != nil && e.Success != *f.Success {
		return false
	}
	return true
}

// TimeRange bounds a statistics query
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IPCount pairs an IP with its event count
type IPCount struct {
	IP    string `json:"ip"`
	Count int    `json:"count"`
}

// SecurityStats summarizes log activity inside a time range
type SecurityStats struct {
	TimeRange        TimeRange         `json:"time_range"`
	TotalEvents      int               `json:"total_events"`
	EventsByType     map[EventType]int `json:"events_by_type"`
	EventsByRisk     map[RiskLevel]int `json:"events_by_risk"`
	TopIPs           []IPCount         `json:"top_ips"`
	HighRiskEvents   int               `json:"high_risk_events"`
	SuspiciousEvents int               `json:"suspicious_events"`
	UnresolvedAlerts int               `json:"unresolved_alerts"`
}

// ExportFormat selects the serialization used by Export
type ExportFormat string

const (
	ExportFormatJSON   ExportFormat = "json"
	ExportFormatCSV    ExportFormat = "csv"
	ExportFormatNDJSON ExportFormat = "ndjson"
)
