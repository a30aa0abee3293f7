package xlsx

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/storm-alert-delays/internal/domain"
)

// Column widths, in character units.
const (
	summaryColWidth     = 42
	clientColWidth      = 15
	placeholderColWidth = 30
	maxFitWidth         = 120
	fitPadding          = 2
)

// maxCollisionSuffix bounds the "(n)" search for a free file name.
const maxCollisionSuffix = 1000

// Writer persists reports as xlsx workbooks in a directory.
type Writer struct {
	dir string
}

// NewWriter creates a Writer rooted at dir. The directory is created on
// first write.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// WriteReport renders the report and writes it to <dir>/<Name>.xlsx. An
// existing file is never overwritten; the first free "<Name>(n).xlsx" is
// used instead. It returns the written path.
func (w *Writer) WriteReport(ctx context.Context, report domain.Report) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := Render(report)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	out, path, err := w.create(report.Name)
	if err != nil {
		return "", err
	}

	if _, err := f.WriteTo(out); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("write workbook: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close workbook: %w", err)
	}
	return path, nil
}

// create exclusively opens the first unused report path.
func (w *Writer) create(name string) (*os.File, string, error) {
	for i := 0; i <= maxCollisionSuffix; i++ {
		path := filepath.Join(w.dir, name+".xlsx")
		if i > 0 {
			path = filepath.Join(w.dir, fmt.Sprintf("%s(%d).xlsx", name, i))
		}
		out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("create report file: %w", err)
		}
		return out, path, nil
	}
	return nil, "", fmt.Errorf("no free file name for %s in %s", name, w.dir)
}

// Render builds the in-memory workbook for a report, one worksheet per sheet
// in report order. The caller owns the returned file.
func Render(report domain.Report) (*excelize.File, error) {
	if len(report.Sheets) == 0 {
		return nil, errors.New("report has no sheets")
	}

	f := excelize.NewFile()
	styles, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	for i, s := range report.Sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.Name); err != nil {
				f.Close()
				return nil, fmt.Errorf("rename sheet %q: %w", s.Name, err)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			f.Close()
			return nil, fmt.Errorf("add sheet %q: %w", s.Name, err)
		}
		if err := writeSheet(f, s, styles); err != nil {
			f.Close()
			return nil, fmt.Errorf("sheet %q: %w", s.Name, err)
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

type styles struct {
	header     int
	headerWrap int
	wrap       int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error
	if s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	}); err != nil {
		return s, fmt.Errorf("header style: %w", err)
	}
	if s.headerWrap, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	}); err != nil {
		return s, fmt.Errorf("header style: %w", err)
	}
	if s.wrap, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	}); err != nil {
		return s, fmt.Errorf("wrap style: %w", err)
	}
	return s, nil
}

func writeSheet(f *excelize.File, s domain.Sheet, st styles) error {
	if err := setRow(f, s.Name, 1, s.Columns); err != nil {
		return err
	}
	for i, row := range s.Rows {
		if err := setRow(f, s.Name, i+2, row); err != nil {
			return err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(s.Columns))
	if err != nil {
		return err
	}
	lastCell := fmt.Sprintf("%s%d", lastCol, len(s.Rows)+1)

	switch s.Kind {
	case domain.SheetSummary:
		if err := f.SetColWidth(s.Name, "A", lastCol, summaryColWidth); err != nil {
			return err
		}
		if len(s.Rows) > 0 {
			if err := f.SetCellStyle(s.Name, "A2", lastCell, st.wrap); err != nil {
				return err
			}
		}
		return f.SetCellStyle(s.Name, "A1", lastCol+"1", st.headerWrap)

	case domain.SheetClient:
		for i, col := range s.Columns {
			name, err := excelize.ColumnNumberToName(i + 1)
			if err != nil {
				return err
			}
			width := float64(clientColWidth)
			if col == domain.ColState || col == domain.ColTitle {
				width = fitWidth(s, i)
			}
			if err := f.SetColWidth(s.Name, name, name, width); err != nil {
				return err
			}
		}
		return f.SetCellStyle(s.Name, "A1", lastCol+"1", st.header)

	default:
		if err := f.SetColWidth(s.Name, "A", lastCol, placeholderColWidth); err != nil {
			return err
		}
		return f.SetCellStyle(s.Name, "A1", lastCol+"1", st.header)
	}
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(sheet, cell, &cells)
}

// fitWidth sizes column i to its longest value, header included.
func fitWidth(s domain.Sheet, i int) float64 {
	longest := utf8.RuneCountInString(s.Columns[i])
	for _, row := range s.Rows {
		if i < len(row) {
			longest = max(longest, utf8.RuneCountInString(row[i]))
		}
	}
	return float64(min(longest+fitPadding, maxFitWidth))
}
