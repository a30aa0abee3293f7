package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// MaxSheetNameLen is the longest sheet name spreadsheet applications accept.
const MaxSheetNameLen = 31

const (
	// PlaceholderSheetName names the sheet written when no order matched.
	PlaceholderSheetName = "No_Matches"
	// PlaceholderMessage is the single row of the placeholder sheet.
	PlaceholderMessage = "No matching records found"
	// ColMessage is the placeholder sheet's only column.
	ColMessage = "Message"

	unassignedClient = "Unassigned"
	reportNamePrefix = "Weather_Delayed_Orders_"
	summaryPrefix    = "Alert Summary "
	alertReportName  = "weather_alerts_"
	alertSheetName   = "Alerts"
)

// SummaryColumns are the display fields of the alert summary sheet.
var SummaryColumns = []string{
	ColState, ColTitle, ColUpdated, ColWhat, ColWhere, ColWhen, ColImpacts,
}

// AlertColumns are the columns of a stand-alone alert workbook.
var AlertColumns = []string{
	ColState, ColTitle, ColUpdated, ColWhat, ColWhere, ColWhen, ColImpacts,
	ColAdditionalDetails, ColInstructions,
}

// ClientColumns are the columns of each per-client sheet.
var ClientColumns = []string{
	ColJobID, ColService, ColStreetAddr, ColCity, ColState, ColCounty,
	ColDue, ColRepDue, ColClient, ColTitle, ColWhat, ColWhere, ColWhen, ColImpacts,
}

// SheetKind distinguishes the three sheet shapes of a Report.
type SheetKind int

const (
	SheetSummary SheetKind = iota
	SheetClient
	SheetPlaceholder
)

func (k SheetKind) String() string {
	switch k {
	case SheetSummary:
		return "summary"
	case SheetClient:
		return "client"
	case SheetPlaceholder:
		return "placeholder"
	default:
		return fmt.Sprintf("SheetKind(%d)", int(k))
	}
}

// Sheet is one tab of a Report. Every row has len(Columns) cells.
type Sheet struct {
	Name    string
	Kind    SheetKind
	Client  string // set for client sheets only
	Columns []string
	Rows    [][]string
}

// Report is the in-memory multi-sheet output of one run. Sheets are ordered:
// the alert summary, then either client sheets or the placeholder.
type Report struct {
	Name          string
	GeneratedAt   time.Time
	MatchedOrders int
	Sheets        []Sheet
}

// ClientSheets returns the per-client sheets in emission order.
func (r Report) ClientSheets() []Sheet {
	var out []Sheet
	for _, s := range r.Sheets {
		if s.Kind == SheetClient {
			out = append(out, s)
		}
	}
	return out
}

// Delivery is what notifiers receive once a report has been persisted.
type Delivery struct {
	Report       Report
	Path         string
	AlertCount   int
	MatchedCount int
	Matched      []MatchedOrder
}

// BuildReport renders alerts and matched orders into sheets. The summary
// lists every alert it is given; client sheets appear in first-seen client
// order with rows in input order. With no matches a single placeholder sheet
// replaces the client sheets.
func BuildReport(alerts []Alert, matched []MatchedOrder, generatedAt time.Time) Report {
	names := newSheetNamer()

	summary := Sheet{
		Name:    names.assign(summaryPrefix + generatedAt.Format("01-02-2006")),
		Kind:    SheetSummary,
		Columns: SummaryColumns,
		Rows:    make([][]string, 0, len(alerts)),
	}
	for _, a := range alerts {
		summary.Rows = append(summary.Rows, []string{
			a.State, a.Title, a.UpdatedText(), a.What, a.Where, a.When, a.Impacts,
		})
	}

	r := Report{
		Name:          reportNamePrefix + generatedAt.Format("01-02-06"),
		GeneratedAt:   generatedAt,
		MatchedOrders: len(matched),
		Sheets:        []Sheet{summary},
	}

	if len(matched) == 0 {
		r.Sheets = append(r.Sheets, Sheet{
			Name:    names.assign(PlaceholderSheetName),
			Kind:    SheetPlaceholder,
			Columns: []string{ColMessage},
			Rows:    [][]string{{PlaceholderMessage}},
		})
		return r
	}

	for _, g := range groupByClient(matched) {
		s := Sheet{
			Name:    names.assign(clientSheetBase(g.client)),
			Kind:    SheetClient,
			Client:  g.client,
			Columns: ClientColumns,
			Rows:    make([][]string, 0, len(g.orders)),
		}
		for _, m := range g.orders {
			s.Rows = append(s.Rows, m.row())
		}
		r.Sheets = append(r.Sheets, s)
	}
	return r
}

// BuildAlertReport renders a single-sheet alert listing sorted by state and
// then by update time. Alerts with an unparsed time sort after parsed ones
// of the same state. The sheet uses the summary layout.
func BuildAlertReport(alerts []Alert, generatedAt time.Time) Report {
	sorted := slices.Clone(alerts)
	slices.SortStableFunc(sorted, func(a, b Alert) int {
		if c := strings.Compare(a.State, b.State); c != 0 {
			return c
		}
		switch {
		case a.Updated.IsZero() && b.Updated.IsZero():
			return strings.Compare(a.UpdatedRaw, b.UpdatedRaw)
		case a.Updated.IsZero():
			return 1
		case b.Updated.IsZero():
			return -1
		}
		return a.Updated.Compare(b.Updated)
	})

	s := Sheet{
		Name:    alertSheetName,
		Kind:    SheetSummary,
		Columns: AlertColumns,
		Rows:    make([][]string, 0, len(sorted)),
	}
	for _, a := range sorted {
		s.Rows = append(s.Rows, []string{
			a.State, a.Title, a.UpdatedText(), a.What, a.Where, a.When, a.Impacts,
			a.AdditionalDetails, a.Instructions,
		})
	}
	return Report{
		Name:        alertReportName + generatedAt.Format("2006-01-02"),
		GeneratedAt: generatedAt,
		Sheets:      []Sheet{s},
	}
}

type clientGroup struct {
	client string
	orders []MatchedOrder
}

// groupByClient groups by exact client string, keeping first-seen order.
func groupByClient(matched []MatchedOrder) []clientGroup {
	index := make(map[string]int)
	var groups []clientGroup
	for _, m := range matched {
		i, ok := index[m.Client]
		if !ok {
			i = len(groups)
			index[m.Client] = i
			groups = append(groups, clientGroup{client: m.Client})
		}
		groups[i].orders = append(groups[i].orders, m)
	}
	return groups
}

// clientSheetBase maps a client name to an untruncated sheet name free of
// the characters spreadsheet applications reject.
func clientSheetBase(client string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, client)
	name = trimSheetName(name)
	if name == "" {
		return unassignedClient
	}
	return name
}

// trimSheetName drops surrounding spaces and apostrophes; a sheet name may
// not start or end with a single quote.
func trimSheetName(name string) string {
	return strings.TrimFunc(name, func(r rune) bool {
		return r == '\'' || unicode.IsSpace(r)
	})
}

// sheetNamer hands out sheet names that fit MaxSheetNameLen and are unique
// ignoring case. A name already taken gets " (2)", " (3)", ... with the base
// shortened to make room.
type sheetNamer struct {
	taken map[string]struct{}
}

func newSheetNamer() *sheetNamer {
	return &sheetNamer{taken: make(map[string]struct{})}
}

func (n *sheetNamer) assign(base string) string {
	name := fitSheetName(base, MaxSheetNameLen)
	for i := 2; n.isTaken(name); i++ {
		suffix := fmt.Sprintf(" (%d)", i)
		name = fitSheetName(base, MaxSheetNameLen-len(suffix)) + suffix
	}
	n.taken[strings.ToLower(name)] = struct{}{}
	return name
}

func (n *sheetNamer) isTaken(name string) bool {
	_, ok := n.taken[strings.ToLower(name)]
	return ok
}

// fitSheetName truncates base to limit characters and trims whatever the
// cut leaves exposed at either end.
func fitSheetName(base string, limit int) string {
	if name := trimSheetName(truncateRunes(base, limit)); name != "" {
		return name
	}
	return unassignedClient
}

// truncateRunes keeps the first limit characters of s.
func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
