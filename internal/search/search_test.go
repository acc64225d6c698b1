package search

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xl-idp/reference-inn/internal/cache"
	"github.com/xl-idp/reference-inn/internal/ident"
	"github.com/xl-idp/reference-inn/internal/resilience"
	"github.com/xl-idp/reference-inn/pkg/xmlriver"
)

type stubSearch struct {
	docs  []xmlriver.Doc
	err   error
	calls int
}

func (s *stubSearch) Search(context.Context, string) ([]xmlriver.Doc, error) {
	s.calls++
	return s.docs, s.err
}

func (s *stubSearch) Balance(context.Context) (float64, error) { return 0, nil }

type allJurisdictions struct{}

func (allJurisdictions) Candidates(candidate string, withRussian bool) []ident.Jurisdiction {
	var out []ident.Jurisdiction
	for _, j := range ident.Priority {
		if j == ident.Russia && !withRussian {
			continue
		}
		if ident.IsValid(j, candidate) {
			out = append(out, j)
		}
	}
	return out
}

func newTestCache(t *testing.T) *cache.Store {
	t.Helper()
	s, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func fastResolver(client xmlriver.Client, store *cache.Store) *Resolver {
	r := NewResolver(client, allJurisdictions{}, store)
	r.retry = resilience.RetryConfig{MaxAttempts: 2, Delay: time.Millisecond}
	return r
}

func TestResolveTalliesValidIdentifiers(t *testing.T) {
	client := &stubSearch{docs: []xmlriver.Doc{
		{
			Title:   `ООО "ГЕРМЕС" ИНН 7816734305`,
			Passage: "ИП Иванов ИНН 781118914402, ОГРН 1147847332628",
		},
	}}

	res, err := fastResolver(client, nil).Resolve(context.Background(), "гермес", true)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"781118914402": 1, "7816734305": 1}, res.Tally)
	assert.Equal(t, []string{"781118914402", "7816734305"}, res.Order)
	// Passages are counted before titles, so the passage identifier wins
	// the tie.
	assert.Equal(t, "781118914402", res.TaxpayerID)
	assert.False(t, res.FromCache)
}

func TestResolveHigherCountWins(t *testing.T) {
	client := &stubSearch{docs: []xmlriver.Doc{
		{Title: "ИНН 781118914402", Passage: "ИНН 7816734305"},
		{Title: "ИНН 7816734305"},
	}}

	res, err := fastResolver(client, nil).Resolve(context.Background(), "гермес", true)
	require.NoError(t, err)
	assert.Equal(t, "7816734305", res.TaxpayerID)
	assert.Equal(t, 2, res.Tally["7816734305"])
}

func TestResolveWithoutRussianSkipsRussianIdentifiers(t *testing.T) {
	client := &stubSearch{docs: []xmlriver.Doc{
		{Title: "ИНН 7816734305, БИН 921140000433"},
	}}

	res, err := fastResolver(client, nil).Resolve(context.Background(), "компания", false)
	require.NoError(t, err)
	assert.Equal(t, "921140000433", res.TaxpayerID)
	assert.NotContains(t, res.Tally, "7816734305")
}

func TestResolveEmptyDocs(t *testing.T) {
	res, err := fastResolver(&stubSearch{}, nil).Resolve(context.Background(), "компания", true)
	require.NoError(t, err)
	assert.Empty(t, res.TaxpayerID)
	assert.Empty(t, res.Tally)
}

func TestResolveCacheHitSkipsSearch(t *testing.T) {
	store := newTestCache(t)
	require.NoError(t, store.PutSearch(context.Background(), "гермес", "7816734305", ident.Russia))

	client := &stubSearch{}
	res, err := fastResolver(client, store).Resolve(context.Background(), "гермес", true)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, "7816734305", res.TaxpayerID)
	assert.Equal(t, ident.Russia, res.Country)
	assert.Zero(t, client.calls)
}

func TestResolveFatalSearchErrorPropagates(t *testing.T) {
	client := &stubSearch{err: resilience.NewFatalError("search balance exhausted", eris.New("code 200"))}

	_, err := fastResolver(client, nil).Resolve(context.Background(), "компания", true)
	require.Error(t, err)
	assert.True(t, resilience.IsFatal(err))
	assert.Equal(t, 1, client.calls)
}
