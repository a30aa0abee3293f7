package domain

// Order is one service/delivery record. JobID is unique within a batch.
type Order struct {
	JobID      string `json:"job_id" db:"job_id"`
	Service    string `json:"service" db:"service"`
	StreetAddr string `json:"street_addr" db:"street_addr"`
	City       string `json:"city" db:"city"`
	State      string `json:"state" db:"state"`
	County     string `json:"county" db:"county"`
	Due        string `json:"due" db:"due"`
	RepDue     string `json:"rep_due" db:"rep_due"`
	Client     string `json:"client" db:"client"`
}

// MatchedOrder is an Order joined with the first alert whose WHERE text
// names the order's county.
type MatchedOrder struct {
	Order
	Alert AlertFields `json:"alert"`
}

// Order column headers, in the order they appear in source files and
// client sheets.
const (
	ColJobID      = "Job Id"
	ColService    = "Service"
	ColStreetAddr = "Street Addr"
	ColCity       = "City"
	ColState      = "State"
	ColCounty     = "County"
	ColDue        = "Due"
	ColRepDue     = "Rep Due"
	ColClient     = "Client"
)

// Alert column headers shared by the summary and client sheets.
const (
	ColTitle             = "Title"
	ColUpdated           = "Updated"
	ColWhat              = "WHAT"
	ColWhere             = "WHERE"
	ColWhen              = "WHEN"
	ColImpacts           = "IMPACTS"
	ColAdditionalDetails = "ADDITIONAL DETAILS"
	ColInstructions      = "INSTRUCTIONS"
)

// OrderColumns lists the order fields in source order.
var OrderColumns = []string{
	ColJobID, ColService, ColStreetAddr, ColCity, ColState,
	ColCounty, ColDue, ColRepDue, ColClient,
}

// row renders the matched order in ClientColumns order.
func (m MatchedOrder) row() []string {
	return []string{
		m.JobID, m.Service, m.StreetAddr, m.City, m.State,
		m.County, m.Due, m.RepDue, m.Client,
		m.Alert.Title, m.Alert.What, m.Alert.Where, m.Alert.When, m.Alert.Impacts,
	}
}
