// Package ingest reads and writes job-form spreadsheets.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"davinci-allocation/internal/domain"

	"github.com/xuri/excelize/v2"
)

// ErrMissingColumn a required job-form column is absent from the header row.
var ErrMissingColumn = errors.New("job form missing required column")

// JobFormHeader column order used when writing job forms.
var JobFormHeader = []string{
	"student_name",
	"student_email",
	"guardian_email",
	"request_email",
	"subjects",
	"start_date",
	"package_hours",
	"session_frequency",
	"student_availability",
	"holiday_schedule",
	"additional_notes",
}

var requiredColumns = []string{"student_name", "student_email"}

const jobFormSheet = "Job Forms"

// JobForm one spreadsheet row. Row is the 1-based sheet row; Err is set when the row could not be parsed.
type JobForm struct {
	Row   int
	Input domain.AllocationInput
	Err   error
}

// ParseSubjects splits on ';' when present, otherwise on ','. Blank entries are dropped.
func ParseSubjects(s string) []string {
	sep := ","
	if strings.Contains(s, ";") {
		sep = ";"
	}
	subjects := []string{}
	for _, part := range strings.Split(s, sep) {
		if p := strings.TrimSpace(part); p != "" {
			subjects = append(subjects, p)
		}
	}
	return subjects
}

// ReadJobFormsFile opens an xlsx file and reads its first sheet.
func ReadJobFormsFile(path string) ([]JobForm, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open job forms %s: %w", path, err)
	}
	defer f.Close()
	return readJobForms(f)
}

// ReadJobForms reads job forms from xlsx content.
func ReadJobForms(r io.Reader) ([]JobForm, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse job forms: %w", err)
	}
	defer f.Close()
	return readJobForms(f)
}

func readJobForms(f *excelize.File) ([]JobForm, error) {
	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("job forms file has no sheets")
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return []JobForm{}, nil
	}

	headerMap := make(map[string]int)
	for i, h := range rows[0] {
		headerMap[normalizeHeader(h)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := headerMap[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	forms := make([]JobForm, 0, len(rows)-1)
	for rowIdx := 1; rowIdx < len(rows); rowIdx++ {
		row := rows[rowIdx]
		cell := func(col string) string {
			i, ok := headerMap[col]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		if isBlank(row) {
			continue
		}

		form := JobForm{Row: rowIdx + 1}
		form.Input = domain.AllocationInput{
			StudentName:         cell("student_name"),
			StudentEmail:        cell("student_email"),
			GuardianEmail:       cell("guardian_email"),
			RequestEmail:        cell("request_email"),
			Subjects:            ParseSubjects(cell("subjects")),
			StartDate:           cell("start_date"),
			SessionFrequency:    cell("session_frequency"),
			StudentAvailability: cell("student_availability"),
			HolidaySchedule:     cell("holiday_schedule"),
			AdditionalNotes:     cell("additional_notes"),
		}
		if v := cell("package_hours"); v != "" {
			hours, err := strconv.ParseFloat(v, 64)
			if err != nil {
				form.Err = fmt.Errorf("row %d: invalid package_hours %q", form.Row, v)
			}
			form.Input.PackageHours = hours
		}
		forms = append(forms, form)
	}
	return forms, nil
}

// WriteJobForms renders inputs as an xlsx workbook with a frozen header row.
func WriteJobForms(inputs []domain.AllocationInput) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(jobFormSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range JobFormHeader {
		if err := setCellValue(f, col+1, 1, header); err != nil {
			f.Close()
			return nil, err
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(JobFormHeader))
	if err := f.SetCellStyle(jobFormSheet, "A1", lastCol+"1", headerStyle); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}
	if err := f.SetColWidth(jobFormSheet, "A", lastCol, 28); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	for i, in := range inputs {
		values := []interface{}{
			in.StudentName,
			in.StudentEmail,
			in.GuardianEmail,
			in.RequestEmail,
			strings.Join(in.Subjects, ", "),
			in.StartDate,
			in.PackageHours,
			in.SessionFrequency,
			in.StudentAvailability,
			in.HolidaySchedule,
			in.AdditionalNotes,
		}
		for col, v := range values {
			if err := setCellValue(f, col+1, i+2, v); err != nil {
				f.Close()
				return nil, err
			}
		}
	}

	if err := f.SetPanes(jobFormSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setCellValue(f *excelize.File, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(jobFormSheet, cell, value); err != nil {
		return fmt.Errorf("failed to set cell %s: %w", cell, err)
	}
	return nil
}

func normalizeHeader(h string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
