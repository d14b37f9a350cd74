package export

import (
	"fmt"
	"io"

	"hrportal/portal-client/internal/models"
	"hrportal/portal-client/internal/visualizer"

	"github.com/xuri/excelize/v2"
)

const SheetName = "Attendance"

var header = []interface{}{"Date", "Status", "Check In", "Check Out", "Gross", "Effective", "Arrival", "Missed Checkout"}

// AttendanceWorkbook writes the attendance log table as an xlsx workbook.
func AttendanceWorkbook(w io.Writer, rows []visualizer.DayView) error {
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	if err := file.SetSheetName(file.GetSheetName(0), SheetName); err != nil {
		return err
	}
	if err := file.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}
	bold, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := file.SetCellStyle(SheetName, "A1", "H1", bold); err != nil {
		return err
	}
	if err := file.SetColWidth(SheetName, "A", "H", 16); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := rowValues(row)
		if err := file.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %s: %w", row.Date, err)
		}
	}
	return file.Write(w)
}

func rowValues(row visualizer.DayView) []interface{} {
	status := row.Label
	if status == "" {
		status = "Present"
	}
	gross, effective, arrival := models.Absent, models.Absent, visualizer.ArrivalUnknown
	if row.Stats != nil {
		gross = row.Stats.Gross
		effective = row.Stats.Effective
		arrival = row.Stats.Arrival
	}
	missed := ""
	if row.MissedCheckout {
		missed = "Yes"
	}
	return []interface{}{row.Date, status, row.CheckIn, row.CheckOut, gross, effective, arrival, missed}
}
