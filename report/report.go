// Package report renders customer overviews as an Excel workbook.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/xraph/pandda"
	"github.com/xraph/pandda/renewal"
)

// Sheet names.
const (
	CustomersSheet = "Customers"
	SummarySheet   = "Summary"
)

// CustomerHeader is the first row of the customers sheet.
var CustomerHeader = []any{
	"customer_id",
	"name",
	"phone",
	"email",
	"plan",
	"due_date",
	"days_until_due",
	"window",
	"screens",
	"allocated",
	"value",
	"blocked",
}

// windowOrder is the row order of the summary sheet.
var windowOrder = []renewal.Window{
	renewal.WindowCurrent,
	renewal.WindowDueSoon,
	renewal.WindowOverdue,
	renewal.WindowLongOverdue,
}

// Options tweaks the workbook.
type Options struct {
	// Location renders due dates on this calendar. Nil means UTC.
	Location *time.Location
}

// WriteCustomers writes overviews as a workbook with a customers sheet and
// a per-window summary sheet.
func WriteCustomers(w io.Writer, overviews []*pandda.Overview, opts Options) error {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), CustomersSheet); err != nil {
		return fmt.Errorf("report: rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("report: style: %w", err)
	}

	if err := writeRow(f, CustomersSheet, 1, CustomerHeader); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(CustomerHeader), 1) //nolint:errcheck // constant coordinates
	if err := f.SetCellStyle(CustomersSheet, "A1", last, bold); err != nil {
		return fmt.Errorf("report: header style: %w", err)
	}

	counts := make(map[renewal.Window]int, len(windowOrder))
	for i, ov := range overviews {
		if err := writeRow(f, CustomersSheet, i+2, customerRow(ov, loc)); err != nil {
			return err
		}
		if ov.Subscription != nil {
			counts[ov.Window]++
		}
	}
	if err := f.SetColWidth(CustomersSheet, "B", "D", 28); err != nil {
		return fmt.Errorf("report: column width: %w", err)
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("report: new sheet: %w", err)
	}
	if err := writeRow(f, SummarySheet, 1, []any{"window", "customers"}); err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheet, "A1", "B1", bold); err != nil {
		return fmt.Errorf("report: header style: %w", err)
	}
	for i, win := range windowOrder {
		if err := writeRow(f, SummarySheet, i+2, []any{string(win), counts[win]}); err != nil {
			return err
		}
	}
	if err := writeRow(f, SummarySheet, len(windowOrder)+2, []any{"total", len(overviews)}); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("report: write: %w", err)
	}
	return nil
}

func customerRow(ov *pandda.Overview, loc *time.Location) []any {
	c := ov.Customer
	planName := ""
	if ov.Plan != nil {
		planName = ov.Plan.Name
	}
	row := []any{c.ID.String(), c.Name, c.Phone, c.Email, planName}

	if ov.Subscription == nil {
		return append(row, "", "", "", "", ov.Progress.Allocated, "", c.Blocked)
	}
	sub := ov.Subscription
	return append(row,
		sub.DueDate.In(loc).Format(time.DateOnly),
		ov.DaysUntilDue,
		string(ov.Window),
		sub.Screens,
		ov.Progress.Allocated,
		sub.Value.String(),
		c.Blocked,
	)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("report: cell: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("report: row %d: %w", row, err)
	}
	return nil
}
