package xlsx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/storm-alert-delays/internal/domain"
)

// ErrMissingColumn is returned when the alert sheet lacks a required header.
var ErrMissingColumn = errors.New("missing required column")

// alertRequired are the headers an alert sheet must carry.
var alertRequired = []string{domain.ColState, domain.ColTitle, domain.ColWhere}

// AlertWorkbook reads alerts from the first sheet of a workbook, such as
// the summary sheet of an earlier report. It implements the pipeline's
// alert provider.
type AlertWorkbook struct {
	path  string
	rules domain.Rules
}

// NewAlertWorkbook creates a reader for the workbook at path. Rows are
// filtered with rules, exactly like feed entries.
func NewAlertWorkbook(path string, rules domain.Rules) *AlertWorkbook {
	return &AlertWorkbook{path: path, rules: rules}
}

// Alerts reads, converts, and filters every data row of the first sheet.
func (w *AlertWorkbook) Alerts(ctx context.Context) ([]domain.Alert, error) {
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("open alert workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("alert workbook %s has no sheets", w.path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", ErrMissingColumn, sheets[0])
	}

	idx := headerIndex(rows[0])
	var missing []string
	for _, col := range alertRequired {
		if _, ok := idx[strings.ToLower(col)]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	alerts := make([]domain.Alert, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a, ok := alertFromRow(row, idx)
		if !ok {
			continue
		}
		alerts = append(alerts, a)
	}
	return domain.FilterAlerts(alerts, w.rules), nil
}

// headerIndex maps lowercased header text to column position; the first
// occurrence of a header wins.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, ok := idx[key]; !ok {
			idx[key] = i
		}
	}
	return idx
}

func alertFromRow(row []string, idx map[string]int) (domain.Alert, bool) {
	get := func(col string) string {
		i, ok := idx[strings.ToLower(col)]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	a := domain.Alert{
		State:             strings.ToUpper(get(domain.ColState)),
		Title:             get(domain.ColTitle),
		UpdatedRaw:        get(domain.ColUpdated),
		What:              get(domain.ColWhat),
		Where:             get(domain.ColWhere),
		When:              get(domain.ColWhen),
		Impacts:           get(domain.ColImpacts),
		AdditionalDetails: get(domain.ColAdditionalDetails),
		Instructions:      get(domain.ColInstructions),
	}
	if a.Title == "" && a.Where == "" {
		return domain.Alert{}, false
	}
	if a.State == "" {
		a.State = domain.StateUnknown
	}
	if t, err := time.Parse(domain.UpdatedLayout, a.UpdatedRaw); err == nil {
		a.Updated = t
	}
	return a, true
}
