package domain

import "strings"

// MatchCounty returns the first alert, in input order, whose WHERE text
// contains county case-insensitively. It reports false when county is blank
// or no alert matches.
//
// Matching is a plain substring test, not word-boundary aware: "Lee" matches
// "Leesville". When several alerts name the county only the earliest is
// returned. Both favour recall over precision and downstream reports rely on
// the ordering, so they are kept as documented limitations.
func MatchCounty(county string, alerts []Alert) (Alert, bool) {
	if strings.TrimSpace(county) == "" || len(alerts) == 0 {
		return Alert{}, false
	}
	needle := strings.ToLower(county)
	for _, a := range alerts {
		if a.Where == "" {
			continue
		}
		if strings.Contains(strings.ToLower(a.Where), needle) {
			return a, true
		}
	}
	return Alert{}, false
}

// JoinOrders attaches the first matching alert to each order and drops
// orders without a match. Output follows the order input order; an alert
// matched by several orders is copied onto each of them.
func JoinOrders(orders []Order, alerts []Alert) []MatchedOrder {
	matched := make([]MatchedOrder, 0, len(orders))
	for _, o := range orders {
		a, ok := MatchCounty(o.County, alerts)
		if !ok {
			continue
		}
		matched = append(matched, MatchedOrder{Order: o, Alert: a.Fields()})
	}
	return matched
}
