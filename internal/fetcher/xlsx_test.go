package fetcher

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				cell := row.AddCell()
				cell.SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "test.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadCompanies(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"company_name"},
			{`ООО "ГЕРМЕС"`, "ignored column"},
			{""},
			{"ООО_x000D_ Ромашка"},
			{"  ТОО Компания  "},
		},
	})

	companies, err := ReadCompanies(path, XLSXOptions{SkipRows: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{`ООО "ГЕРМЕС"`, "ООО Ромашка", "ТОО Компания"}, companies)
}

func TestReadCompaniesMissingFile(t *testing.T) {
	_, err := ReadCompanies(filepath.Join(t.TempDir(), "nope.xlsx"), XLSXOptions{})
	assert.Error(t, err)
}

func TestReadXLSXSheetSelection(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Data": {
			{"ООО Вектор"},
		},
	})

	rows, err := ReadXLSX(path, XLSXOptions{SheetName: "Data"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ООО Вектор", rows[0][0])

	_, err = ReadXLSX(path, XLSXOptions{SheetName: "Missing"})
	assert.Error(t, err)

	_, err = ReadXLSX(path, XLSXOptions{SheetIndex: 5})
	assert.Error(t, err)
}
