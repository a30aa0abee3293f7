package domain

import "time"

// StateUnknown marks an alert whose title does not end in a monitored state
// code. Such alerts never survive FilterAlerts.
const StateUnknown = "Unknown"

// RawEntry is one entry of an alert feed before parsing.
type RawEntry struct {
	Title   string `xml:"title" json:"title"`
	Summary string `xml:"summary" json:"summary"`
	Updated string `xml:"updated" json:"updated"`
}

// Alert is a parsed weather advisory.
type Alert struct {
	State      string    `json:"state"`
	Title      string    `json:"title"`
	Updated    time.Time `json:"updated,omitzero"`
	UpdatedRaw string    `json:"updated_raw"`

	What              string `json:"what"`
	Where             string `json:"where"`
	When              string `json:"when"`
	Impacts           string `json:"impacts"`
	AdditionalDetails string `json:"additional_details"`
	Instructions      string `json:"instructions"`
}

// UpdatedLayout renders parsed timestamps as month/day/year time with the
// feed's UTC offset, e.g. "01/05/2025 03:15-06:00".
const UpdatedLayout = "01/02/2006 15:04-07:00"

// UpdatedText returns the display form of the update time. Unparsable feed
// values are returned verbatim.
func (a Alert) UpdatedText() string {
	if a.Updated.IsZero() {
		return a.UpdatedRaw
	}
	return a.Updated.Format(UpdatedLayout)
}

// Fields returns the five descriptive fields carried onto matched orders.
func (a Alert) Fields() AlertFields {
	return AlertFields{
		Title:   a.Title,
		What:    a.What,
		Where:   a.Where,
		When:    a.When,
		Impacts: a.Impacts,
	}
}

// AlertFields is the subset of an Alert attached to a MatchedOrder.
type AlertFields struct {
	Title   string `json:"title"`
	What    string `json:"what"`
	Where   string `json:"where"`
	When    string `json:"when"`
	Impacts string `json:"impacts"`
}
