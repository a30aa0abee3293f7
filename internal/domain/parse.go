package domain

import (
	"strings"
	"time"
)

// section identifies one of the six narrative blocks of an alert summary.
type section int

const (
	sectionNone section = iota
	sectionWhat
	sectionWhere
	sectionWhen
	sectionImpacts
	sectionAdditionalDetails
	sectionInstructions
)

// sectionMarkers maps a line prefix to the section it opens. No marker is a
// prefix of another, so match order does not matter.
var sectionMarkers = []struct {
	prefix  string
	section section
}{
	{"* WHAT", sectionWhat},
	{"* WHERE", sectionWhere},
	{"* WHEN", sectionWhen},
	{"* IMPACTS", sectionImpacts},
	{"* ADDITIONAL DETAILS", sectionAdditionalDetails},
	{"* INSTRUCTIONS", sectionInstructions},
}

// updatedLayouts are the ISO-8601 shapes accepted for the feed's updated
// field, most specific first.
var updatedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseEntry converts a raw feed entry into an Alert. It never fails:
// missing fields become empty strings, an unparsable timestamp keeps only
// its raw form, and a title without a monitored state suffix yields
// StateUnknown.
func ParseEntry(entry RawEntry, rules Rules) Alert {
	title := strings.TrimSpace(entry.Title)

	a := Alert{
		State:      deriveState(title, rules),
		Title:      title,
		UpdatedRaw: entry.Updated,
	}
	if t, ok := parseUpdated(entry.Updated); ok {
		a.Updated = t
	}

	for sec, text := range splitSections(entry.Summary) {
		switch sec {
		case sectionWhat:
			a.What = text
		case sectionWhere:
			a.Where = text
		case sectionWhen:
			a.When = text
		case sectionImpacts:
			a.Impacts = text
		case sectionAdditionalDetails:
			a.AdditionalDetails = text
		case sectionInstructions:
			a.Instructions = text
		}
	}
	return a
}

// deriveState takes the last two characters of the title, e.g.
// "... by NWS Chicago IL" -> "IL".
func deriveState(title string, rules Rules) string {
	if len(title) < 2 {
		return StateUnknown
	}
	code := title[len(title)-2:]
	if !rules.Monitors(code) {
		return StateUnknown
	}
	return code
}

// parseUpdated parses an ISO-8601 timestamp. A trailing "Z" is UTC.
func parseUpdated(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range updatedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// splitSections scans the summary line by line. A marker line opens its
// section seeded with the rest of the line; following non-blank lines are
// appended with a single space until the next marker. Text before the first
// marker is dropped. A repeated marker restarts its section.
func splitSections(summary string) map[section]string {
	out := make(map[section]string, len(sectionMarkers))
	current := sectionNone

	for _, line := range strings.Split(summary, "\n") {
		line = strings.TrimSpace(line)

		if sec, rest, ok := matchMarker(line); ok {
			current = sec
			out[current] = rest
			continue
		}
		if current == sectionNone || line == "" {
			continue
		}
		if out[current] == "" {
			out[current] = line
			continue
		}
		out[current] += " " + line
	}
	return out
}

func matchMarker(line string) (section, string, bool) {
	for _, m := range sectionMarkers {
		if rest, ok := strings.CutPrefix(line, m.prefix); ok {
			return m.section, strings.TrimSpace(rest), true
		}
	}
	return sectionNone, "", false
}
