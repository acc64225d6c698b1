// Package search resolves company mentions that carry no usable identifier
// by querying a search engine and tallying checksum-valid identifiers from
// the result snippets.
package search

import (
	"context"

	"go.uber.org/zap"

	"github.com/xl-idp/reference-inn/internal/cache"
	"github.com/xl-idp/reference-inn/internal/ident"
	"github.com/xl-idp/reference-inn/internal/resilience"
	"github.com/xl-idp/reference-inn/internal/text"
	"github.com/xl-idp/reference-inn/pkg/xmlriver"
)

// querySuffix steers the search engine toward requisite listings.
const querySuffix = " ИНН"

// validator reports which jurisdictions accept a candidate identifier.
// The registry manager implements it.
type validator interface {
	Candidates(candidate string, withRussian bool) []ident.Jurisdiction
}

// Result is the outcome of one sentence resolution.
type Result struct {
	// TaxpayerID is the winning identifier, empty when nothing was found.
	TaxpayerID string
	// Tally maps every checksum-valid identifier seen in the snippets to
	// its occurrence count. Empty on a cache hit.
	Tally map[string]int
	// Order lists the tallied identifiers in first-seen order.
	Order []string
	// Country is set on cache hits, where the jurisdiction was stored
	// alongside the identifier.
	Country   ident.Jurisdiction
	FromCache bool
}

// Resolver runs the search fallback. Safe for concurrent use.
type Resolver struct {
	client    xmlriver.Client
	validator validator
	store     *cache.Store
	retry     resilience.RetryConfig
}

// NewResolver builds a resolver. A nil store disables the sentence cache.
func NewResolver(client xmlriver.Client, v validator, store *cache.Store) *Resolver {
	return &Resolver{
		client:    client,
		validator: v,
		store:     store,
		retry:     resilience.LookupRetryConfig(),
	}
}

// Resolve finds the best identifier for a normalized sentence. The sentence
// cache is consulted first; on a miss the search engine is queried and every
// digit run in titles and passages is validated and tallied. Ties keep the
// identifier seen first.
func (r *Resolver) Resolve(ctx context.Context, sentence string, withRussian bool) (*Result, error) {
	if r.store != nil {
		id, country, found, err := r.store.GetSearch(ctx, sentence)
		if err != nil {
			zap.L().Warn("search cache read failed", zap.String("sentence", sentence), zap.Error(err))
		} else if found && id != "" {
			return &Result{TaxpayerID: id, Country: country, FromCache: true}, nil
		}
	}

	cfg := r.retry
	cfg.OnRetry = resilience.RetryLogger("xmlriver", "search")
	docs, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]xmlriver.Doc, error) {
		return r.client.Search(ctx, sentence+querySuffix)
	})
	if err != nil {
		return nil, err
	}

	tally, order := r.tally(docs, withRussian)
	zap.L().Info("search tally",
		zap.String("sentence", sentence),
		zap.Int("candidates", len(order)),
	)

	res := &Result{Tally: tally, Order: order}
	best := 0
	for _, id := range order {
		if tally[id] > best {
			best = tally[id]
			res.TaxpayerID = id
		}
	}
	return res, nil
}

// tally counts checksum-valid identifiers across all docs, passages before
// titles, preserving first-seen order for tie-breaking.
func (r *Resolver) tally(docs []xmlriver.Doc, withRussian bool) (map[string]int, []string) {
	tally := make(map[string]int)
	var order []string
	count := func(runs []string) {
		for _, run := range runs {
			hits := len(r.validator.Candidates(run, withRussian))
			if hits == 0 {
				continue
			}
			if _, seen := tally[run]; !seen {
				order = append(order, run)
			}
			tally[run] += hits
		}
	}
	for _, doc := range docs {
		count(text.DigitRuns(doc.Passage))
		count(text.DigitRuns(doc.Title))
	}
	return tally, order
}
