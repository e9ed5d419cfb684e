// AngelaMos | 2026
// export.go

package admin

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/foxmentors/portal/internal/booking"
)

var exportHeader = []any{
	"ID",
	"Student",
	"Student Email",
	"Status",
	"Mentor",
	"Notes",
	"Version",
	"Created At",
	"Updated At",
}

const exportTimeLayout = "2006-01-02 15:04:05"

// WriteBookingsXLSX renders bookings as a single-sheet workbook.
func WriteBookingsXLSX(w io.Writer, sheet string, bookings []booking.Booking) error {
	f := excelize.NewFile()
	defer func() {
		//nolint:errcheck // in-memory workbook
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i := range bookings {
		b := &bookings[i]

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}

		row := []any{
			b.ID,
			b.StudentName,
			b.StudentEmail,
			string(b.Status),
			b.MentorLabel(),
			b.Notes,
			b.Version,
			b.CreatedAt.UTC().Format(exportTimeLayout),
			b.UpdatedAt.UTC().Format(exportTimeLayout),
		}

		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write booking %d: %w", b.ID, err)
		}
	}

	if err := f.SetColWidth(sheet, "A", "I", 20); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	return nil
}
