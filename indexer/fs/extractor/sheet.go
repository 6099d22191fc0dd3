package extractor

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/shakinm/xlsReader/xls"
	"github.com/shakinm/xlsReader/xls/structure"
	"github.com/xuri/excelize/v2"
)

// extractXLSX renders every sheet as "Sheet:" and "Header:" lines followed by one line per row.
func extractXLSX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	var out strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		writeSheet(&out, sheet, rows)
	}
	return out.String(), nil
}

func extractXLS(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	wb, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	var out strings.Builder
	for i := 0; i < wb.GetNumberSheets(); i++ {
		sheet, err := wb.GetSheet(i)
		if err != nil || sheet == nil {
			continue
		}
		var rows [][]string
		for _, row := range sheet.GetRows() {
			rows = append(rows, xlsRowValues(row.GetCols()))
		}
		if len(rows) == 0 {
			continue
		}
		writeSheet(&out, sheet.GetName(), rows)
	}
	return out.String(), nil
}

func writeSheet(out *strings.Builder, sheet string, rows [][]string) {
	header := rows[0]
	out.WriteString("Sheet: ")
	out.WriteString(sheet)
	out.WriteString(".\nHeader: ")
	out.WriteString(strings.Join(header, "\t"))
	out.WriteString(".\n")
	for i := 1; i < len(rows); i++ {
		out.WriteString(rowLine(i+1, len(header), rows[i]))
		out.WriteString(".\n")
	}
}

func rowLine(rowIdx, headerCols int, row []string) string {
	maxCols := headerCols
	if len(row) > maxCols {
		maxCols = len(row)
	}
	var b strings.Builder
	b.WriteString("Row ")
	b.WriteString(strconv.Itoa(rowIdx))
	b.WriteString(": ")
	for col := 0; col < maxCols; col++ {
		if col > 0 {
			b.WriteString("\t")
		}
		if col < len(row) {
			b.WriteString(row[col])
		}
	}
	return b.String()
}

func xlsRowValues(cols []structure.CellData) []string {
	out := make([]string, 0, len(cols))
	for _, col := range cols {
		val := col.GetString()
		if val == "" {
			if num := col.GetFloat64(); num != 0 {
				val = strconv.FormatFloat(num, 'f', -1, 64)
			} else if in := col.GetInt64(); in != 0 {
				val = strconv.FormatInt(in, 10)
			}
		}
		out = append(out, val)
	}
	return out
}
