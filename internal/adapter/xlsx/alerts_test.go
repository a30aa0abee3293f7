package xlsx

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/storm-alert-delays/internal/domain"
)

func testRules(t *testing.T) domain.Rules {
	t.Helper()
	r, err := domain.NewRules(domain.DefaultMonitoredStates, domain.DefaultExclusionTerms)
	require.NoError(t, err)
	return r
}

func writeRows(t *testing.T, rows [][]string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "alerts.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestAlertWorkbook_RoundTripsSummarySheet(t *testing.T) {
	dir := t.TempDir()
	path, err := NewWriter(dir).WriteReport(context.Background(), sampleReport())
	require.NoError(t, err)

	alerts, err := NewAlertWorkbook(path, testRules(t)).Alerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	a := alerts[0]
	assert.Equal(t, "MS", a.State)
	assert.Equal(t, "Hinds and Rankin Counties.", a.Where)
	assert.Equal(t, "04/26/2025 08:15-05:00", a.UpdatedText())
	assert.True(t, a.Updated.Equal(time.Date(2025, 4, 26, 13, 15, 0, 0, time.UTC)))
}

func TestAlertWorkbook_HeadersCaseInsensitiveAndFiltered(t *testing.T) {
	path := writeRows(t, [][]string{
		{"title", "state", "where", "Additional Details", "Notes"},
		{"Flood Warning by NWS Jackson MS", "ms", "Hinds County", "Roads closed.", "x"},
		{"Small Craft Advisory by NWS Mobile AL", "AL", "Mobile Bay", "", ""},
		{"Red Flag Warning by NWS Tucson AZ", "AZ", "Pima County", "", ""},
		{"", "", "", "", ""},
		{"Heat Advisory by NWS Chicago", "", "Cook County", "", ""},
	})

	alerts, err := NewAlertWorkbook(path, testRules(t)).Alerts(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "MS", alerts[0].State)
	assert.Equal(t, "Roads closed.", alerts[0].AdditionalDetails)
	assert.Empty(t, alerts[0].UpdatedText())
}

func TestAlertWorkbook_MissingColumns(t *testing.T) {
	path := writeRows(t, [][]string{{"Title", "When"}, {"a", "b"}})

	_, err := NewAlertWorkbook(path, testRules(t)).Alerts(context.Background())
	require.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "State, WHERE")
}

func TestAlertWorkbook_MissingFile(t *testing.T) {
	_, err := NewAlertWorkbook(filepath.Join(t.TempDir(), "nope.xlsx"), testRules(t)).Alerts(context.Background())
	require.Error(t, err)
}
