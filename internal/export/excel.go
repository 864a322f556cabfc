// Package export writes effective schedules as spreadsheets.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"medsched/internal/model"
)

// SheetName is the name of the schedule sheet.
const SheetName = "Schedule"

var scheduleColumns = []string{"Date", "Weekday", "Source", "Available", "Start", "End", "Slot (min)", "Breaks"}

// sheetWriter appends rows to one sheet of an in-memory workbook.
type sheetWriter struct {
	file  *excelize.File
	sheet string
	row   int
}

func newSheetWriter(name string) (*sheetWriter, error) {
	// Excel limit
	if len(name) > 31 {
		name = name[:31]
	}
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", name); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	return &sheetWriter{file: f, sheet: name, row: 1}, nil
}

func (w *sheetWriter) writeHeader(columns []string) error {
	if err := w.writeRow(toAny(columns)); err != nil {
		return err
	}
	style, err := w.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, 1)
		endCell, _ := excelize.CoordinatesToCellName(len(columns), 1)
		_ = w.file.SetCellStyle(w.sheet, startCell, endCell, style)
	}
	return w.file.SetPanes(w.sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func (w *sheetWriter) writeRow(values []any) error {
	for i, val := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, w.row)
		if err != nil {
			return err
		}
		if err := w.file.SetCellValue(w.sheet, cell, val); err != nil {
			return err
		}
	}
	w.row++
	return nil
}

func (w *sheetWriter) save(out io.Writer) error {
	_, err := w.file.WriteTo(out)
	return errors.Join(err, w.file.Close())
}

// WriteSchedule writes one row per date. Hours and breaks are omitted on
// days that are not bookable.
func WriteSchedule(out io.Writer, days []model.EffectiveSchedule) error {
	w, err := newSheetWriter(SheetName)
	if err != nil {
		return err
	}
	if err := w.writeHeader(scheduleColumns); err != nil {
		_ = w.file.Close()
		return err
	}
	for _, d := range days {
		if err := w.writeRow(scheduleRow(d)); err != nil {
			_ = w.file.Close()
			return fmt.Errorf("write %s: %w", d.Date, err)
		}
	}
	return w.save(out)
}

func scheduleRow(d model.EffectiveSchedule) []any {
	row := []any{d.Date.String(), d.Date.Weekday().String(), string(d.Source), yesNo(d.IsAvailable)}
	if !d.IsAvailable {
		return row
	}
	breaks := make([]string, 0, len(d.BreakTimes))
	for _, b := range d.BreakTimes {
		breaks = append(breaks, b.String())
	}
	return append(row, d.StartTime.String(), d.EndTime.String(), int(d.SlotDuration), strings.Join(breaks, ", "))
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
