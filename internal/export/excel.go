// Package export renders reservation reports as Excel workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"mesa/internal/models"
)

// Writer builds a single-sheet workbook row by row.
type Writer struct {
	file  *excelize.File
	sheet string
	row   int
}

// NewWriter creates a workbook with one named sheet.
func NewWriter(sheet string) (*Writer, error) {
	// Excel caps sheet names at 31 chars.
	if len(sheet) > 31 {
		sheet = sheet[:31]
	}
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", sheet)
	return &Writer{file: f, sheet: sheet, row: 1}, nil
}

// WriteHeader writes a bold header row.
func (w *Writer) WriteHeader(columns []string) error {
	if err := w.writeCells(columns); err != nil {
		return err
	}
	style, err := w.file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, w.row-1)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), w.row-1)
		_ = w.file.SetCellStyle(w.sheet, startCell, endCell, style)
	}
	return nil
}

// WriteRow appends one data row.
func (w *Writer) WriteRow(values []any) error {
	return w.writeCells(values)
}

func (w *Writer) writeCells(values any) error {
	write := func(i int, v any) error {
		cell, err := excelize.CoordinatesToCellName(i+1, w.row)
		if err != nil {
			return err
		}
		return w.file.SetCellValue(w.sheet, cell, v)
	}
	switch vs := values.(type) {
	case []string:
		for i, v := range vs {
			if err := write(i, v); err != nil {
				return err
			}
		}
	case []any:
		for i, v := range vs {
			if err := write(i, v); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unsupported row type %T", values)
	}
	w.row++
	return nil
}

// Save streams the workbook and releases its resources.
func (w *Writer) Save(out io.Writer) error {
	defer w.file.Close()
	return w.file.Write(out)
}

// Reservations renders a business's reservations into a workbook ready to
// stream to the caller.
func Reservations(businessName string, rows []models.Reservation) (*Writer, error) {
	w, err := NewWriter("Reservations")
	if err != nil {
		return nil, err
	}
	if businessName != "" {
		if err := w.WriteRow([]any{businessName}); err != nil {
			return nil, err
		}
	}
	if err := w.WriteHeader([]string{
		"Reference", "Date", "Start", "End", "Duration", "Party", "Resource", "Status", "Notes",
	}); err != nil {
		return nil, err
	}
	for _, r := range rows {
		resource := ""
		if r.ResourceID != nil {
			resource = fmt.Sprintf("%d", *r.ResourceID)
		}
		if err := w.WriteRow([]any{
			r.Reference,
			r.Date,
			r.StartTime.Format("15:04"),
			r.EndTime.Format("15:04"),
			r.Duration.String(),
			r.PartySize,
			resource,
			string(r.Status),
			r.Notes,
		}); err != nil {
			return nil, err
		}
	}
	return w, nil
}
