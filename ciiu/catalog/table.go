package catalog

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	goexcel "github.com/VantageDataChat/GoExcel"
	"github.com/shakinm/xlsReader/xls"
)

// ReadTable loads the rows of a tabular file as strings. For workbooks, sheet
// selects the sheet by name; an empty sheet means the first one.
func ReadTable(path, sheet string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return readXLSX(data, sheet)
	case ".xls":
		return readXLS(data, sheet)
	case ".csv":
		return readCSV(data)
	case ".txt":
		return readLines(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}
}

func readXLSX(data []byte, sheetName string) (rows [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows = nil
			err = fmt.Errorf("xlsx parse error: %v", r)
		}
	}()

	reader := goexcel.NewXLSXReader()
	wb, err := reader.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("xlsx parse error: %w", err)
	}
	names := wb.GetSheetNames()
	if len(names) == 0 {
		return nil, fmt.Errorf("xlsx parse error: workbook has no sheets")
	}
	name := names[0]
	if sheetName != "" {
		name = sheetName
	}
	sheet, err := wb.GetSheetByName(name)
	if err != nil {
		return nil, fmt.Errorf("xlsx sheet %q: %w", name, err)
	}
	it, err := sheet.RowIterator()
	if err != nil {
		return nil, fmt.Errorf("xlsx sheet %q: %w", name, err)
	}
	for _, row := range it {
		var out []string
		for _, cell := range row {
			if cell == nil || cell.IsEmpty() {
				continue
			}
			col := int(cell.Col())
			for len(out) <= col {
				out = append(out, "")
			}
			out[col] = strings.TrimSpace(cell.GetFormattedValue())
		}
		rows = append(rows, out)
	}
	return rows, nil
}

func readXLS(data []byte, sheetName string) (rows [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows = nil
			err = fmt.Errorf("xls parse error: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("xls parse error: %w", err)
	}
	for i := 0; i < wb.GetNumberSheets(); i++ {
		sheet, err := wb.GetSheet(i)
		if err != nil {
			continue
		}
		if sheetName != "" && sheet.GetName() != sheetName {
			continue
		}
		for r := 0; r < sheet.GetNumberRows(); r++ {
			row, err := sheet.GetRow(r)
			if err != nil || row == nil {
				rows = append(rows, nil)
				continue
			}
			cols := row.GetCols()
			out := make([]string, len(cols))
			for c, cell := range cols {
				out[c] = strings.TrimSpace(cell.GetString())
			}
			rows = append(rows, out)
		}
		return rows, nil
	}
	return nil, fmt.Errorf("xls parse error: sheet %q not found", sheetName)
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	if sep := sniffSeparator(data); sep != ',' {
		r.Comma = sep
	}
	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("csv parse error: %w", err)
		}
		rows = append(rows, rec)
	}
}

// sniffSeparator picks ';' over ',' when the header line uses it, which is
// what spreadsheet exports in Spanish locales produce.
func sniffSeparator(data []byte) rune {
	line, _, _ := bytes.Cut(data, []byte("\n"))
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func readLines(data []byte) ([][]string, error) {
	var rows [][]string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		rows = append(rows, []string{strings.TrimSpace(sc.Text())})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}
