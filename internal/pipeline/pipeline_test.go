package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xl-idp/reference-inn/internal/cache"
	"github.com/xl-idp/reference-inn/internal/ident"
	"github.com/xl-idp/reference-inn/internal/registry"
	"github.com/xl-idp/reference-inn/internal/resilience"
	"github.com/xl-idp/reference-inn/internal/search"
)

type stubLookup struct {
	country ident.Jurisdiction
	name    string
}

func (s *stubLookup) Jurisdiction() ident.Jurisdiction { return s.country }

func (s *stubLookup) CompanyName(context.Context, string) (string, error) {
	return s.name, nil
}

type stubSearcher struct {
	mu    sync.Mutex
	calls []bool
	fn    func(call int, sentence string, withRussian bool) (*search.Result, error)
}

func (s *stubSearcher) Resolve(_ context.Context, sentence string, withRussian bool) (*search.Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, withRussian)
	call := len(s.calls)
	s.mu.Unlock()
	return s.fn(call, sentence, withRussian)
}

type echoTranslator struct{}

func (echoTranslator) Translate(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
}

func newTestStore(t *testing.T) *cache.Store {
	t.Helper()
	s, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func newTestPipeline(t *testing.T, s searcher, reference map[string]string) (*Pipeline, *cache.Store) {
	t.Helper()
	store := newTestStore(t)
	manager := registry.NewManager(store,
		&stubLookup{country: ident.Russia, name: `ООО "Ромашка"`},
		&stubLookup{country: ident.Kazakhstan, name: "ТОО Береке"},
	)
	p := New(manager, s, echoTranslator{}, store, reference, Options{
		Workers:          2,
		OriginalFileName: "companies.xlsx",
	})
	return p, store
}

func TestRunResolvesSingleMention(t *testing.T) {
	s := &stubSearcher{fn: func(int, string, bool) (*search.Result, error) {
		return &search.Result{
			TaxpayerID: "9729133245",
			Tally:      map[string]int{"9729133245": 2},
			Order:      []string{"9729133245"},
		}, nil
	}}
	p, store := newTestPipeline(t, s, map[string]string{"9729133245": `ООО "РОМАШКА"`})

	res, err := p.Run(context.Background(), []string{"Romashka LLC"})
	require.NoError(t, err)

	require.Len(t, res.Russian, 1)
	assert.Empty(t, res.Foreign)
	assert.Empty(t, res.Unknown)
	require.Len(t, res.Rows, 1)

	winner := res.Russian[0]
	assert.Equal(t, "Romashka LLC", winner.CompanyName)
	assert.Equal(t, "Romashka LLC ИНН", winner.SearchQuery)
	assert.Equal(t, "9729133245", winner.CompanyINN)
	assert.Equal(t, 2, winner.CompanyINNCount)
	assert.Equal(t, 2, winner.SumCountINN)
	assert.Equal(t, 1, winner.CompanyINNMaxRank)
	assert.True(t, winner.IsFTSFound)
	assert.Equal(t, `ООО "РОМАШКА"`, winner.FTSCompanyName)
	assert.Equal(t, 1, winner.CountINNInFTS)
	assert.Equal(t, `ООО "Ромашка"`, winner.CompanyNameUnified)
	assert.Equal(t, ident.Russia, winner.Country)
	assert.Equal(t, 1, res.Unified)

	// Winner is written through to the sentence cache.
	id, country, found, err := store.GetSearch(context.Background(), winner.CompanyNameRus)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "9729133245", id)
	assert.Equal(t, ident.Russia, country)
}

func TestRunEmbeddedIdentifierSkipsSearch(t *testing.T) {
	s := &stubSearcher{fn: func(int, string, bool) (*search.Result, error) {
		return &search.Result{}, nil
	}}
	p, _ := newTestPipeline(t, s, nil)

	res, err := p.Run(context.Background(), []string{`ООО "Ромашка" ИНН 9729133245`})
	require.NoError(t, err)

	// The mention carries a checksum-valid identifier, so the search
	// engine is never consulted.
	assert.Empty(t, s.calls)
	require.Len(t, res.Russian, 1)
	winner := res.Russian[0]
	assert.Equal(t, "9729133245", winner.CompanyINN)
	assert.Equal(t, `ООО "Ромашка"`, winner.CompanyNameUnified)
	assert.Equal(t, ident.Russia, winner.Country)
}

func TestRunConfidenceScoresCanonicalNameAgainstMention(t *testing.T) {
	s := &stubSearcher{fn: func(int, string, bool) (*search.Result, error) {
		return &search.Result{
			TaxpayerID: "9729133245",
			Tally:      map[string]int{"9729133245": 1},
			Order:      []string{"9729133245"},
		}, nil
	}}
	store := newTestStore(t)
	manager := registry.NewManager(store,
		&stubLookup{country: ident.Russia, name: `ООО "РОГА И КОПЫТА"`},
	)
	p := New(manager, s, echoTranslator{}, store, nil, Options{
		Workers:          1,
		OriginalFileName: "companies.xlsx",
	})

	res, err := p.Run(context.Background(), []string{"РОГА И КОПЫТА ТРАНС ЛОГИСТИК МОСКВА"})
	require.NoError(t, err)

	require.Len(t, res.Russian, 1)
	winner := res.Russian[0]
	require.True(t, winner.HasConfidence)
	// The canonical name minus its legal form is an exact substring of the
	// mention, so the partial ratio is a perfect score.
	assert.Equal(t, 100, winner.ConfidenceRate)
}

func TestRunFanOutPrefersReferenceHit(t *testing.T) {
	s := &stubSearcher{fn: func(int, string, bool) (*search.Result, error) {
		return &search.Result{
			TaxpayerID: "9729133245",
			Tally:      map[string]int{"9729133245": 3, "921140000433": 1},
			Order:      []string{"9729133245", "921140000433"},
		}, nil
	}}
	// Only the less frequent Kazakh identifier is confirmed by the
	// declaration reference.
	p, _ := newTestPipeline(t, s, map[string]string{"921140000433": "ТОО БЕРЕКЕ"})

	res, err := p.Run(context.Background(), []string{"Bereke"})
	require.NoError(t, err)

	require.Len(t, res.Rows, 2)
	assert.Equal(t, 1, res.Rows[0].CompanyINNMaxRank)
	assert.Equal(t, 2, res.Rows[1].CompanyINNMaxRank)
	for _, row := range res.Rows {
		assert.Equal(t, 4, row.SumCountINN)
		assert.Equal(t, 1, row.CountINNInFTS)
	}

	require.Len(t, res.Foreign, 1)
	winner := res.Foreign[0]
	assert.Equal(t, "921140000433", winner.CompanyINN)
	assert.True(t, winner.IsFTSFound)
	assert.Equal(t, ident.Kazakhstan, winner.Country)
}

func TestRunFanOutFallsBackToHighestCount(t *testing.T) {
	s := &stubSearcher{fn: func(_ int, _ string, withRussian bool) (*search.Result, error) {
		if !withRussian {
			return &search.Result{}, nil
		}
		return &search.Result{
			TaxpayerID: "9729133245",
			Tally:      map[string]int{"6319160313": 1, "9729133245": 3},
			Order:      []string{"6319160313", "9729133245"},
		}, nil
	}}
	p, _ := newTestPipeline(t, s, nil)

	res, err := p.Run(context.Background(), []string{"Romashka LLC"})
	require.NoError(t, err)

	require.Len(t, res.Russian, 1)
	assert.Equal(t, "9729133245", res.Russian[0].CompanyINN)
	assert.Equal(t, 3, res.Russian[0].CompanyINNCount)
	assert.False(t, res.Russian[0].IsFTSFound)
}

func TestRunCacheHitSkipsFanOut(t *testing.T) {
	s := &stubSearcher{fn: func(int, string, bool) (*search.Result, error) {
		return &search.Result{
			TaxpayerID: "9729133245",
			Country:    ident.Russia,
			FromCache:  true,
		}, nil
	}}
	p, _ := newTestPipeline(t, s, nil)

	res, err := p.Run(context.Background(), []string{"Romashka LLC"})
	require.NoError(t, err)

	require.Len(t, res.Rows, 1)
	require.Len(t, res.Russian, 1)
	winner := res.Russian[0]
	assert.Equal(t, "9729133245", winner.CompanyINN)
	assert.Equal(t, 0, winner.CompanyINNCount)
	assert.Equal(t, `ООО "Ромашка"`, winner.CompanyNameUnified)
}

func TestRunUnknownReprocessedWithoutRussia(t *testing.T) {
	s := &stubSearcher{fn: func(int, string, bool) (*search.Result, error) {
		return &search.Result{}, nil
	}}
	p, _ := newTestPipeline(t, s, nil)

	res, err := p.Run(context.Background(), []string{"Nobody Knows GmbH"})
	require.NoError(t, err)

	// First pass with Russia in scope, then the unknown retry without it.
	require.Equal(t, []bool{true, false}, s.calls)
	require.Len(t, res.Unknown, 1)
	assert.Empty(t, res.Unknown[0].Country)
	assert.Empty(t, res.Unknown[0].CompanyNameUnified)
}

func TestRunTransientFailureGoesToRetryQueue(t *testing.T) {
	s := &stubSearcher{fn: func(call int, _ string, _ bool) (*search.Result, error) {
		if call == 1 {
			return nil, resilience.NewTransientError(errors.New("bad gateway"), 502)
		}
		return &search.Result{
			TaxpayerID: "9729133245",
			Tally:      map[string]int{"9729133245": 1},
			Order:      []string{"9729133245"},
		}, nil
	}}
	p, _ := newTestPipeline(t, s, nil)
	p.opts.RetryDelay = 0

	res, err := p.Run(context.Background(), []string{"Romashka LLC"})
	require.NoError(t, err)

	assert.Len(t, s.calls, 2)
	require.Len(t, res.Russian, 1)
	assert.Empty(t, res.Errors)
}

func TestRunFatalFailureAbortsBatch(t *testing.T) {
	s := &stubSearcher{fn: func(int, string, bool) (*search.Result, error) {
		return nil, resilience.NewFatalError("search balance exhausted", nil)
	}}
	p, _ := newTestPipeline(t, s, nil)

	_, err := p.Run(context.Background(), []string{"Romashka LLC"})
	require.Error(t, err)
	assert.True(t, resilience.IsFatal(err))
}

func TestRunUnexpectedFailureForceEmitsRow(t *testing.T) {
	s := &stubSearcher{fn: func(int, string, bool) (*search.Result, error) {
		return nil, errors.New("malformed response payload")
	}}
	p, _ := newTestPipeline(t, s, nil)
	p.opts.RetryDelay = 0

	res, err := p.Run(context.Background(), []string{"Romashka LLC"})
	require.NoError(t, err)

	// Failed on the main pass and again on the unknown retry pass, emitted
	// unresolved both times; the identical error strings collapse to one.
	assert.Len(t, res.Rows, 2)
	require.Len(t, res.Unknown, 1)
	assert.Empty(t, res.Unknown[0].CompanyINN)
	assert.Len(t, res.Errors, 1)
}
