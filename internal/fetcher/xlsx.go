// Package fetcher reads input files with company mentions.
package fetcher

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/xl-idp/reference-inn/internal/text"
)

// XLSXOptions controls how an input workbook is read.
type XLSXOptions struct {
	SheetName  string // defaults to first sheet
	SheetIndex int    // used if SheetName is empty
	SkipRows   int    // number of leading rows to skip, e.g. a header
}

// ReadCompanies reads company mentions from the first column of an XLSX
// workbook. Blank cells are dropped and the _x000D_ export artifact is
// stripped.
func ReadCompanies(path string, opts XLSXOptions) ([]string, error) {
	rows, err := ReadXLSX(path, opts)
	if err != nil {
		return nil, err
	}

	var companies []string
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		name := strings.TrimSpace(text.StripCarriageToken(row[0]))
		if name == "" {
			continue
		}
		companies = append(companies, name)
	}
	return companies, nil
}

// ReadXLSX reads an XLSX file and returns all rows as string slices.
func ReadXLSX(path string, opts XLSXOptions) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	for i, row := range sheet.Rows {
		if i < opts.SkipRows {
			continue
		}
		rows = append(rows, rowToStrings(row))
	}
	return rows, nil
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("xlsx: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
