package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoMonitoredStates is returned when a rule set would mark every alert unknown.
	ErrNoMonitoredStates = errors.New("no monitored states configured")
	// ErrInvalidStateCode is returned for monitored states that are not two letters.
	ErrInvalidStateCode = errors.New("invalid state code")
)

// DefaultMonitoredStates are the jurisdictions tracked when none are configured.
var DefaultMonitoredStates = []string{
	"AL", "FL", "GA", "IL", "KS", "LA", "MI", "MO", "MS", "OH", "SC", "WI",
}

// DefaultExclusionTerms are advisory categories irrelevant to delivery
// operations: marine, surf, and abduction alerts.
var DefaultExclusionTerms = []string{
	"Small Craft Advisory",
	"Gale Warning",
	"Gale Watch",
	"Open Water",
	"Child Abduction Emergency",
	"AMBER Alert",
	"High Surf Advisory",
	"High Surf Warning",
	"Rip Current",
	"Heavy Freezing Spray Warning",
	"Spray Warning",
}

// FilterReason explains why an alert was dropped.
type FilterReason string

const (
	ReasonUnknownState FilterReason = "unknown_state"
	ReasonExcludedTerm FilterReason = "excluded_term"
)

// Rules holds the monitored-state set and the title exclusion terms.
// Build it with NewRules; the zero value monitors nothing.
type Rules struct {
	states map[string]struct{}
	terms  []string // lower-cased
}

// NewRules validates and normalizes the filter configuration. State codes
// are upper-cased; blank exclusion terms are ignored since they would match
// every title.
func NewRules(states, exclusionTerms []string) (Rules, error) {
	r := Rules{states: make(map[string]struct{}, len(states))}
	for _, s := range states {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if len(s) != 2 || !isASCIIUpper(s) {
			return Rules{}, fmt.Errorf("%w: %q", ErrInvalidStateCode, s)
		}
		r.states[s] = struct{}{}
	}
	if len(r.states) == 0 {
		return Rules{}, ErrNoMonitoredStates
	}

	for _, t := range exclusionTerms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			r.terms = append(r.terms, t)
		}
	}
	return r, nil
}

// Monitors reports whether code is a monitored state.
func (r Rules) Monitors(code string) bool {
	_, ok := r.states[code]
	return ok
}

// Exclude reports whether the alert should be dropped and why.
func (r Rules) Exclude(a Alert) (FilterReason, bool) {
	if a.State == StateUnknown || !r.Monitors(a.State) {
		return ReasonUnknownState, true
	}
	title := strings.ToLower(a.Title)
	for _, t := range r.terms {
		if strings.Contains(title, t) {
			return ReasonExcludedTerm, true
		}
	}
	return "", false
}

// FilterAlerts returns the alerts not excluded by r, preserving order.
// The input slice is not modified.
func FilterAlerts(alerts []Alert, r Rules) []Alert {
	kept := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		if _, drop := r.Exclude(a); drop {
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

func isASCIIUpper(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
