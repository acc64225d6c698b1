package pipeline

import (
	"fmt"
	"strings"

	"github.com/xl-idp/reference-inn/internal/model"
)

// Result is the outcome of one batch run.
type Result struct {
	RunID     string
	StartedAt string

	// All is the number of input mentions.
	All int
	// Rows holds every candidate row in emission order, the full audit
	// trail behind the bucketed winners.
	Rows []*model.Row

	Russian []*model.Row
	Foreign []*model.Row
	Unknown []*model.Row

	// Unified counts winners that resolved to a canonical name.
	Unified int
	// FTSMissing counts winners the declaration reference never confirmed.
	FTSMissing int

	Errors []string
}

func (p *Pipeline) result(runID, startedAt string, total int) *Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	res := &Result{
		RunID:     runID,
		StartedAt: startedAt,
		All:       total,
		Rows:      p.emitted,
		Russian:   p.russian,
		Foreign:   p.foreign,
		Unknown:   p.unknown,
		Errors:    p.errs,
	}
	for _, rows := range [][]*model.Row{res.Russian, res.Foreign, res.Unknown} {
		for _, row := range rows {
			if row.CompanyNameUnified != "" {
				res.Unified++
			}
			if !row.IsFTSFound {
				res.FTSMissing++
			}
		}
	}
	return res
}

// Summary renders the batch report sent to the operations channel.
func (res *Result) Summary(fileName string, uploaded int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Обработан файл %s\n", fileName)
	fmt.Fprintf(&b, "Всего компаний: %d\n", res.All)
	fmt.Fprintf(&b, "Загружено строк в БД: %d\n", uploaded)
	fmt.Fprintf(&b, "Унифицировано: %d\n", res.Unified)
	fmt.Fprintf(&b, "Не унифицировано: %d\n", res.All-res.Unified)
	fmt.Fprintf(&b, "Не найдено в справочнике ФТС: %d\n", res.FTSMissing)
	fmt.Fprintf(&b, "Без страны: %d\n", len(res.Unknown))
	if len(res.Errors) > 0 {
		fmt.Fprintf(&b, "Ошибки (%d):\n", len(res.Errors))
		for _, e := range res.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
