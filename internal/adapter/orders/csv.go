package orders

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/couchcryptid/storm-alert-delays/internal/domain"
)

var (
	// ErrMissingColumn is returned when a required order header is absent.
	ErrMissingColumn = errors.New("missing required column")
	// ErrDuplicateJobID is returned when two rows share a Job Id.
	ErrDuplicateJobID = errors.New("duplicate job id")
)

// CSVSource reads orders from a CSV file with a header row. Headers are
// matched exactly after trimming; extra columns are ignored.
type CSVSource struct {
	path string
}

// NewCSVSource creates a CSVSource for path. The file is read on every call
// to Orders so edits between runs are picked up.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Orders reads the whole file.
func (s *CSVSource) Orders(_ context.Context) ([]domain.Order, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open orders file: %w", err)
	}
	defer f.Close()

	orders, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return orders, nil
}

// ReadCSV parses orders from r. Fully blank rows are skipped.
func ReadCSV(r io.Reader) ([]domain.Order, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var orders []domain.Order
	seen := make(map[string]int)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if blankRecord(rec) {
			continue
		}

		get := func(col string) string {
			i := idx[col]
			if i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		o := domain.Order{
			JobID:      get(domain.ColJobID),
			Service:    get(domain.ColService),
			StreetAddr: get(domain.ColStreetAddr),
			City:       get(domain.ColCity),
			State:      get(domain.ColState),
			County:     get(domain.ColCounty),
			Due:        get(domain.ColDue),
			RepDue:     get(domain.ColRepDue),
			Client:     get(domain.ColClient),
		}
		if first, dup := seen[o.JobID]; dup {
			return nil, fmt.Errorf("line %d: %w %q (first seen on line %d)", line, ErrDuplicateJobID, o.JobID, first)
		}
		seen[o.JobID] = line
		orders = append(orders, o)
	}
	return orders, nil
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, ok := idx[h]; !ok {
			idx[h] = i
		}
	}

	var missing []string
	for _, col := range domain.OrderColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return idx, nil
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
