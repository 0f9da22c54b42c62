package driver

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/tianxiaolong/pytest-auto-api2/packages/literal"
)

// ExcelAdapter reads the tabular spreadsheet format: a case_common sheet of
// key/value pairs and a test_cases sheet with one header row and one row
// per case. Every cell is text and is coerced through the literal parser.
type ExcelAdapter struct{}

const casesSheet = "test_cases"

func (a *ExcelAdapter) Extensions() []string {
	return []string{".xlsx", ".xls"}
}

// excelDefaults backfills columns the spreadsheet omits, so both source
// formats produce structurally interchangeable records.
var excelDefaults = map[string]any{
	"url":             "",
	"host":            "",
	"method":          "GET",
	"detail":          "",
	"headers":         map[string]any{},
	"requestType":     "json",
	"is_run":          true,
	"data":            nil,
	"dependence_case": false,
	"assert":          map[string]any{"status_code": float64(200)},
}

func (a *ExcelAdapter) Load(path string) (*RawDataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open case file %s: %w", path, err)
	}
	defer f.Close()

	ds := &RawDataset{File: path, Common: make(map[string]any)}

	// The common sheet is optional; historical workbooks omit it.
	if commonRows, err := f.GetRows(commonKey); err == nil {
		for _, row := range commonRows {
			if len(row) < 2 || strings.TrimSpace(row[0]) == "" {
				continue
			}
			ds.Common[strings.TrimSpace(row[0])] = literal.Parse(row[1])
		}
	}

	rows, err := f.GetRows(casesSheet)
	if err != nil {
		return nil, fmt.Errorf("case file %s: missing %s sheet: %w", path, casesSheet, err)
	}
	if len(rows) < 1 {
		return nil, fmt.Errorf("case file %s: %s sheet has no header row", path, casesSheet)
	}

	header := make([]string, len(rows[0]))
	idCol := -1
	for i, name := range rows[0] {
		header[i] = strings.TrimSpace(name)
		if header[i] == "case_id" {
			idCol = i
		}
	}
	if idCol < 0 {
		return nil, fmt.Errorf("case file %s: %s sheet has no case_id column", path, casesSheet)
	}

	for _, row := range rows[1:] {
		if idCol >= len(row) || strings.TrimSpace(row[idCol]) == "" {
			continue
		}
		id := strings.TrimSpace(row[idCol])

		fields := make(map[string]any)
		for i, name := range header {
			if i == idCol || name == "" {
				continue
			}
			if i >= len(row) || strings.TrimSpace(row[i]) == "" {
				fields[name] = nil
				continue
			}
			fields[name] = literal.Parse(strings.TrimSpace(row[i]))
		}

		for name, def := range excelDefaults {
			if v, ok := fields[name]; !ok || v == nil {
				fields[name] = def
			}
		}

		ds.Cases = append(ds.Cases, RawCase{ID: id, Fields: fields})
	}

	return ds, nil
}
