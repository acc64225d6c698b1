package registry

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/xl-idp/reference-inn/internal/cache"
	"github.com/xl-idp/reference-inn/internal/ident"
	"github.com/xl-idp/reference-inn/internal/model"
	"github.com/xl-idp/reference-inn/internal/resilience"
)

// Manager owns the registered registry clients and answers two questions:
// which jurisdictions accept a candidate identifier, and what canonical
// name each of them resolves it to.
type Manager struct {
	lookups map[ident.Jurisdiction]Lookup
	store   *cache.Store
	retry   resilience.RetryConfig
}

// NewManager builds a manager over the given clients. A nil store disables
// caching.
func NewManager(store *cache.Store, lookups ...Lookup) *Manager {
	m := &Manager{
		lookups: make(map[ident.Jurisdiction]Lookup, len(lookups)),
		store:   store,
		retry:   resilience.LookupRetryConfig(),
	}
	for _, l := range lookups {
		m.lookups[l.Jurisdiction()] = l
	}
	return m
}

// Candidates returns the jurisdictions whose checksum accepts the candidate,
// in fixed priority order, limited to jurisdictions with a registered
// client. withRussian false drops Russia from consideration.
func (m *Manager) Candidates(candidate string, withRussian bool) []ident.Jurisdiction {
	var out []ident.Jurisdiction
	for _, j := range ident.Priority {
		if j == ident.Russia && !withRussian {
			continue
		}
		if _, ok := m.lookups[j]; !ok {
			continue
		}
		if ident.IsValid(j, candidate) {
			out = append(out, j)
		}
	}
	return out
}

// Accepts reports whether any registered jurisdiction validates the
// candidate.
func (m *Manager) Accepts(candidate string, withRussian bool) bool {
	return len(m.Candidates(candidate, withRussian)) > 0
}

// FetchCompanyName returns a lazy iterator over registry answers for the
// identifier, one per candidate jurisdiction. Nothing is fetched until Next
// is called, so a caller that stops at the first non-empty name never pays
// for the remaining lookups.
func (m *Manager) FetchCompanyName(ctx context.Context, taxpayerID string, countries []ident.Jurisdiction) *NameIter {
	return &NameIter{
		ctx:       ctx,
		manager:   m,
		id:        taxpayerID,
		countries: countries,
	}
}

// NameIter walks candidate jurisdictions for one identifier. Lookup
// failures do not stop iteration; they accumulate and surface via Err.
type NameIter struct {
	ctx       context.Context
	manager   *Manager
	id        string
	countries []ident.Jurisdiction
	pos       int
	current   model.Resolution
	errs      []error
}

// Next advances to the next jurisdiction that produced a name. An empty
// answer means the registry has no record under that jurisdiction, so
// iteration moves on. It returns false when all candidates are exhausted.
func (it *NameIter) Next() bool {
	for it.pos < len(it.countries) {
		country := it.countries[it.pos]
		it.pos++

		res, err := it.manager.resolve(it.ctx, it.id, country)
		if err != nil {
			it.errs = append(it.errs, err)
			continue
		}
		if res.Name == "" {
			continue
		}
		it.current = res
		return true
	}
	return false
}

// Item returns the resolution produced by the last successful Next.
func (it *NameIter) Item() model.Resolution {
	return it.current
}

// Err returns the lookup failures accumulated so far, joined.
func (it *NameIter) Err() error {
	return errors.Join(it.errs...)
}

func (m *Manager) resolve(ctx context.Context, taxpayerID string, country ident.Jurisdiction) (model.Resolution, error) {
	if m.store != nil {
		name, found, err := m.store.GetName(ctx, taxpayerID, country)
		if err != nil {
			zap.L().Warn("name cache read failed",
				zap.String("taxpayer_id", taxpayerID),
				zap.String("country", string(country)),
				zap.Error(err),
			)
		} else if found {
			return model.Resolution{Name: name, Country: country, FromCache: true}, nil
		}
	}

	lookup := m.lookups[country]
	cfg := m.retry
	cfg.OnRetry = resilience.RetryLogger(string(country), "company name lookup")
	name, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (string, error) {
		return lookup.CompanyName(ctx, taxpayerID)
	})
	if err != nil {
		return model.Resolution{}, err
	}

	if m.store != nil && name != "" {
		if err := m.store.PutName(ctx, taxpayerID, country, name); err != nil {
			zap.L().Warn("name cache write failed",
				zap.String("taxpayer_id", taxpayerID),
				zap.String("country", string(country)),
				zap.Error(err),
			)
		}
	}
	return model.Resolution{Name: name, Country: country}, nil
}
