package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Render lays the workbook out as an Office Open XML spreadsheet. The caller
// owns the returned file and must Close it.
func Render(wb *Workbook) (*excelize.File, error) {
	if wb == nil || len(wb.Sheets) == 0 {
		return nil, fmt.Errorf("render: empty workbook")
	}
	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}
	defaultSheet := f.GetSheetName(0)
	for i, s := range wb.Sheets {
		if i == 0 {
			err = f.SetSheetName(defaultSheet, s.Name)
		} else {
			_, err = f.NewSheet(s.Name)
		}
		if err == nil {
			err = writeSheet(f, s, bold)
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("render sheet %s: %w", s.Name, err)
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeSheet(f *excelize.File, s *Sheet, boldStyle int) error {
	header := make([]any, len(s.Columns))
	for i, c := range s.Columns {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(s.Name, col, col, c.Width); err != nil {
			return err
		}
		header[i] = c.Header
	}
	if err := f.SetSheetRow(s.Name, "A1", &header); err != nil {
		return err
	}
	if s.BoldHeader && len(s.Columns) > 0 {
		last, err := excelize.CoordinatesToCellName(len(s.Columns), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(s.Name, "A1", last, boldStyle); err != nil {
			return err
		}
	}
	for i, r := range s.Rows {
		start, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := r.Values()
		if err := f.SetSheetRow(s.Name, start, &values); err != nil {
			return err
		}
	}
	return nil
}
