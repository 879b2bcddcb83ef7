package util

import (
	"bytes"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// PatientSheetHeader is the recognized column layout for patient spreadsheet
// import and for the downloadable template.
var PatientSheetHeader = []string{"차트번호", "이름", "주민번호", "전화번호"}

const patientSheetName = "환자등록"

// PatientRow is one parsed spreadsheet row. Missing cells come back as empty
// strings, never as an error.
type PatientRow struct {
	ChartNo string
	Name    string
	RRN     string
	Phone   string
}

// GeneratePatientTemplate builds the import template workbook: the
// recognized headers plus a single example row.
func GeneratePatientTemplate() ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo needs the file open, so Close only on error paths.

	index, err := f.NewSheet(patientSheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range PatientSheetHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(patientSheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(patientSheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	// Example row, mirroring the downloadable template end users are given.
	example := []string{"", "", "000000-0", ""}
	for col, v := range example {
		cell, err := excelize.CoordinatesToCellName(col+1, 2)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(patientSheetName, cell, v); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set example cell %s: %w", cell, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParsePatientSheet reads the first sheet of an uploaded workbook and maps
// each data row to a PatientRow by header name. Unknown columns are ignored;
// missing cells map to empty strings.
func ParsePatientSheet(r io.Reader) ([]PatientRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse spreadsheet: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("spreadsheet has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	headerIdx := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		headerIdx[h] = i
	}

	cell := func(row []string, header string) string {
		idx, ok := headerIdx[header]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	parsed := make([]PatientRow, 0, len(rows)-1)
	for _, row := range rows[1:] {
		parsed = append(parsed, PatientRow{
			ChartNo: cell(row, "차트번호"),
			Name:    cell(row, "이름"),
			RRN:     cell(row, "주민번호"),
			Phone:   cell(row, "전화번호"),
		})
	}
	return parsed, nil
}
