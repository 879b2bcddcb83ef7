package util

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestGeneratePatientTemplate(t *testing.T) {
	data, err := GeneratePatientTemplate()
	if err != nil {
		t.Fatalf("GeneratePatientTemplate: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty workbook")
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("template is not a readable workbook: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetName(0); got != "환자등록" {
		t.Errorf("expected sheet 환자등록, got %q", got)
	}

	rows, err := f.GetRows("환자등록")
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) < 1 {
		t.Fatal("expected a header row")
	}
	for i, want := range PatientSheetHeader {
		if i >= len(rows[0]) || rows[0][i] != want {
			t.Errorf("header column %d = %v, want %q", i, rows[0], want)
			break
		}
	}
}

// buildWorkbook assembles an in-memory workbook from a header row and data
// rows, on the first (default) sheet.
func buildWorkbook(t *testing.T, rows [][]string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestParsePatientSheet(t *testing.T) {
	data := buildWorkbook(t, [][]string{
		{"차트번호", "이름", "주민번호", "전화번호"},
		{"1001", "김영희", "900115-2234567", "010-1234-5678"},
		{"1002", "박철수", "850310-1", "010-9999-0000"},
	})

	rows, err := ParsePatientSheet(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ParsePatientSheet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].ChartNo != "1001" || rows[0].Name != "김영희" || rows[0].RRN != "900115-2234567" || rows[0].Phone != "010-1234-5678" {
		t.Errorf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Name != "박철수" {
		t.Errorf("unexpected second row: %+v", rows[1])
	}
}

func TestParsePatientSheetReorderedColumns(t *testing.T) {
	data := buildWorkbook(t, [][]string{
		{"이름", "전화번호", "차트번호", "주민번호"},
		{"김영희", "010-1234-5678", "1001", "900115-2234567"},
	})

	rows, err := ParsePatientSheet(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ParsePatientSheet: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].ChartNo != "1001" || rows[0].RRN != "900115-2234567" {
		t.Errorf("columns not mapped by header name: %+v", rows[0])
	}
}

func TestParsePatientSheetMissingCells(t *testing.T) {
	data := buildWorkbook(t, [][]string{
		{"차트번호", "이름", "주민번호", "전화번호"},
		{"1001", "김영희"},
	})

	rows, err := ParsePatientSheet(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ParsePatientSheet: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].RRN != "" || rows[0].Phone != "" {
		t.Errorf("missing cells should parse as empty strings: %+v", rows[0])
	}
}

func TestParsePatientSheetHeaderOnly(t *testing.T) {
	data := buildWorkbook(t, [][]string{
		{"차트번호", "이름", "주민번호", "전화번호"},
	})

	rows, err := ParsePatientSheet(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ParsePatientSheet: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows for header-only sheet, got %d", len(rows))
	}
}

func TestParsePatientSheetGarbageInput(t *testing.T) {
	if _, err := ParsePatientSheet(bytes.NewReader([]byte("not a workbook"))); err == nil {
		t.Error("expected error for non-workbook input")
	}
}

func TestTemplateRoundTrip(t *testing.T) {
	data, err := GeneratePatientTemplate()
	if err != nil {
		t.Fatalf("GeneratePatientTemplate: %v", err)
	}

	rows, err := ParsePatientSheet(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("template should parse with its own reader: %v", err)
	}
	// The template carries one example row.
	if len(rows) != 1 {
		t.Fatalf("expected 1 example row, got %d", len(rows))
	}
	if rows[0].RRN != "000000-0" {
		t.Errorf("expected example rrn 000000-0, got %q", rows[0].RRN)
	}
}
