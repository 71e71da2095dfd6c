package ratelimit

import "time"

// Rule configures a sliding-window limit
type Rule struct {
	// Window is the rolling time window requests are counted over
	Window time.Duration `json:"window"`
	// MaxRequests is the max counted requests allowed inside the window
	MaxRequests int `json:"max_requests"`
	// SkipSuccessful counts only failed requests against the limit
	SkipSuccessful bool `json:"skip_successful,omitempty"`
	// SkipFailed counts only successful requests against the limit
	SkipFailed bool `json:"skip_failed,omitempty"`
}

// Category names an independently keyed and configured rule family
type Category string

const (
	CategoryGlobal         Category = "global"
	CategoryAuthentication Category = "auth"
	CategoryUpload         Category = "upload"
	CategorySearch         Category = "search"
	CategoryMessaging      Category = "messaging"
	CategoryCallSetup      Category = "call-setup"
)

// Key namespaces an identifier under the category so distinct categories
// never share counters for the same caller
func (c Category) Key(id string) string {
	return string(c) + ":" + id
}

// Rules maps categories to their configured rules
type Rules map[Category]Rule

// MaxWindow returns the largest configured window, used to bound history
// retention during cleanup sweeps
func (r Rules) MaxWindow() time.Duration {
	var max time.Duration
	for _, rule := range r {
		if rule.Window > max {
			max = rule.Window
		}
	}
	return max
}

// DefaultRules returns the built-in per-category rule set
func DefaultRules() Rules {
	return Rules{
		CategoryGlobal:         {Window: time.Minute, MaxRequests: 100},
		CategoryAuthentication: {Window: 15 * time.Minute, MaxRequests: 5, SkipSuccessful: true},
		CategoryUpload:         {Window: time.Minute, MaxRequests: 10},
		CategorySearch:         {Window: time.Minute, MaxRequests: 30},
		CategoryMessaging:      {Window: time.Minute, MaxRequests: 60},
		CategoryCallSetup:      {Window: time.Minute, MaxRequests: 10},
	}
}

// Result is the outcome of an admission check
type Result struct {
	// Limited reports whether the call was rejected
	Limited bool `json:"limited"`
	// Remaining is the number of further calls the window will admit
	Remaining int `json:"remaining"`
	// ResetTime approximates when the window frees up; see package docs
	ResetTime time.Time `json:"reset_time"`
}

// Stats describes the current state of a key's window for observability
// and response headers
type Stats struct {
	Count       int       `json:"count"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
}

// record is a single request inside a key's rolling history
type record struct {
	ts      time.Time
	success bool
}
