package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// ErrNoSheet is returned when a workbook decodes but carries no usable sheet.
var ErrNoSheet = errors.New("workbook has no readable sheet")

// ReadWorkbook decodes an uploaded spreadsheet into a RawSheet. The file
// format is tried in order: XLSX, legacy XLS, CSV. sheetName selects a sheet
// by name for XLSX files; empty means the first sheet. Decoding is delegated
// entirely to the format libraries; this adapter only flattens their output
// into the 2-D grid the mapping pipeline consumes.
func ReadWorkbook(data []byte, fileName, sheetName string) (RawSheet, error) {
	ext := strings.ToLower(filepath.Ext(fileName))

	if ext == ".csv" {
		return readCSV(data)
	}

	if rows, err := readXLSX(data, sheetName); err == nil {
		return rows, nil
	} else if ext == ".xlsx" {
		return nil, fmt.Errorf("failed to read xlsx: %w", err)
	}

	if rows, err := readXLS(data); err == nil {
		return rows, nil
	} else if ext == ".xls" {
		return nil, fmt.Errorf("failed to read xls: %w", err)
	}

	// Unknown extension: last resort CSV sniff.
	rows, err := readCSV(data)
	if err != nil {
		return nil, fmt.Errorf("unsupported or corrupt spreadsheet %q", fileName)
	}
	return rows, nil
}

func readXLSX(data []byte, sheetName string) (RawSheet, error) {
	xl, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer xl.Close()

	if sheetName == "" {
		sheetName = xl.GetSheetName(0)
	}
	if sheetName == "" {
		return nil, ErrNoSheet
	}
	rows, err := xl.GetRows(sheetName)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoSheet
	}
	return RawSheet(rows), nil
}

func readXLS(data []byte) (RawSheet, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	sh := wb.GetSheet(0)
	if sh == nil {
		return nil, ErrNoSheet
	}
	var rows RawSheet
	for i := 0; i <= int(sh.MaxRow); i++ {
		row := sh.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		var vals []string
		for j := 0; j <= row.LastCol(); j++ {
			vals = append(vals, row.Col(j))
		}
		rows = append(rows, vals)
	}
	if len(rows) == 0 {
		return nil, ErrNoSheet
	}
	return rows, nil
}

func readCSV(data []byte) (RawSheet, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoSheet
	}
	return RawSheet(rows), nil
}
