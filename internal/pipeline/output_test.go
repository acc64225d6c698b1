package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xl-idp/reference-inn/internal/ident"
	"github.com/xl-idp/reference-inn/internal/model"
)

func TestCSVWriterAppendsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "companies.csv")
	w, err := NewCSVWriter(path)
	require.NoError(t, err)

	require.NoError(t, w.Write(&model.Row{
		CompanyName: "Romashka LLC",
		CompanyINN:  "9729133245",
		Country:     ident.Russia,
	}))
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, model.CSVHeader(), records[0])
	assert.Equal(t, "Romashka LLC", records[1][0])
	assert.Equal(t, "9729133245", records[1][3])
}

func TestWriteBuckets(t *testing.T) {
	dir := t.TempDir()
	res := &Result{
		Russian: []*model.Row{{CompanyName: "Ромашка", Country: ident.Russia}},
	}
	require.NoError(t, WriteBuckets(dir, "companies.xlsx", res))

	for _, name := range []string{
		"companies.xlsx_russia.json",
		"companies.xlsx_foreign.json",
		"companies.xlsx_unknown.json",
	} {
		payload, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		var rows []map[string]any
		require.NoError(t, json.Unmarshal(payload, &rows))
		if name == "companies.xlsx_russia.json" {
			require.Len(t, rows, 1)
			assert.Equal(t, "Ромашка", rows[0]["company_name"])
		} else {
			assert.Empty(t, rows)
		}
	}
}

func TestSummary(t *testing.T) {
	res := &Result{
		All:        10,
		Unified:    7,
		FTSMissing: 2,
		Unknown:    []*model.Row{{}, {}},
		Errors:     []string{"Acme: lookup failed"},
	}
	got := res.Summary("companies.xlsx", 25)

	assert.Contains(t, got, "Обработан файл companies.xlsx")
	assert.Contains(t, got, "Всего компаний: 10")
	assert.Contains(t, got, "Загружено строк в БД: 25")
	assert.Contains(t, got, "Унифицировано: 7")
	assert.Contains(t, got, "Не унифицировано: 3")
	assert.Contains(t, got, "Без страны: 2")
	assert.Contains(t, got, "Acme: lookup failed")
}
