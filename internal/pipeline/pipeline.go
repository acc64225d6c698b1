// Package pipeline orchestrates batch resolution: it fans company mentions
// out over a worker pool, runs identifier search and registry resolution
// for each, joins the customs declaration reference, and buckets the
// finished rows for export.
package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xl-idp/reference-inn/internal/cache"
	"github.com/xl-idp/reference-inn/internal/model"
	"github.com/xl-idp/reference-inn/internal/registry"
	"github.com/xl-idp/reference-inn/internal/resilience"
	"github.com/xl-idp/reference-inn/internal/search"
	"github.com/xl-idp/reference-inn/pkg/translate"
)

// searcher resolves a prepared sentence to a taxpayer identifier.
// *search.Resolver implements it; tests substitute a stub.
type searcher interface {
	Resolve(ctx context.Context, sentence string, withRussian bool) (*search.Result, error)
}

var _ searcher = (*search.Resolver)(nil)

// Options tunes a batch run.
type Options struct {
	// Workers bounds concurrent row processing.
	Workers int
	// RetryDelay is the pause before the delayed second pass over rows
	// that failed transiently.
	RetryDelay time.Duration
	// OriginalFileName stamps every output row with its source file.
	OriginalFileName string
	// Sink, when set, receives every candidate row as soon as it is
	// finished, so a crashed run still leaves a usable audit trail.
	Sink RowSink
}

// RowSink receives finished candidate rows incrementally.
type RowSink interface {
	Write(row *model.Row) error
}

// Pipeline resolves one batch of company mentions.
type Pipeline struct {
	manager    *registry.Manager
	searcher   searcher
	translator translate.Translator
	store      *cache.Store
	reference  map[string]string
	opts       Options

	mu      sync.Mutex
	emitted []*model.Row // all candidate rows, audit trail
	russian []*model.Row
	foreign []*model.Row
	unknown []*model.Row
	errs    []string
}

// New builds a pipeline over the given collaborators. reference maps
// identifiers to declared names from the warehouse.
func New(
	manager *registry.Manager,
	s searcher,
	translator translate.Translator,
	store *cache.Store,
	reference map[string]string,
	opts Options,
) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	return &Pipeline{
		manager:    manager,
		searcher:   s,
		translator: translator,
		store:      store,
		reference:  reference,
		opts:       opts,
	}
}

// Run processes all mentions and returns the batch result. Rows that fail
// transiently are retried once after the configured delay; rows that end up
// in the unknown bucket get a second resolution pass with Russia excluded.
func (p *Pipeline) Run(ctx context.Context, companies []string) (*Result, error) {
	runID := uuid.New().String()
	startedAt := time.Now().Format("2006-01-02 15:04:05")
	zap.L().Info("batch started",
		zap.String("run_id", runID),
		zap.String("file", p.opts.OriginalFileName),
		zap.Int("rows", len(companies)),
	)

	rows := p.makeRows(companies, startedAt)
	if err := p.runPasses(ctx, rows, true); err != nil {
		return nil, err
	}

	// Mentions that resolved to no country get one more chance with the
	// Russian registry excluded: they are usually foreign companies whose
	// identifiers collide with Russian checksums.
	p.mu.Lock()
	unknown := p.unknown
	p.unknown = nil
	p.mu.Unlock()
	if len(unknown) > 0 {
		zap.L().Info("reprocessing unknown companies without russia",
			zap.String("run_id", runID),
			zap.Int("rows", len(unknown)),
		)
		names := make([]string, 0, len(unknown))
		for _, row := range unknown {
			names = append(names, row.CompanyName)
		}
		if err := p.runPasses(ctx, p.makeRows(names, startedAt), false); err != nil {
			return nil, err
		}
	}

	res := p.result(runID, startedAt, len(companies))
	zap.L().Info("batch finished",
		zap.String("run_id", runID),
		zap.Int("unified", res.Unified),
		zap.Int("unknown", len(res.Unknown)),
		zap.Int("errors", len(res.Errors)),
	)
	return res, nil
}

func (p *Pipeline) makeRows(companies []string, startedAt string) []*model.Row {
	rows := make([]*model.Row, 0, len(companies))
	for _, name := range companies {
		rows = append(rows, &model.Row{
			CompanyName:        name,
			IsINNFoundAuto:     true,
			OriginalFileName:   p.opts.OriginalFileName,
			OriginalFileParsed: startedAt,
		})
	}
	return rows
}

// runPasses runs the worker-pool pass and then the delayed retry pass over
// whatever it left on the queue.
func (p *Pipeline) runPasses(ctx context.Context, rows []*model.Row, withRussian bool) error {
	retry, err := p.runPool(ctx, rows, withRussian, false)
	if err != nil || len(retry) == 0 {
		return err
	}

	zap.L().Info("delayed retry pass",
		zap.Int("rows", len(retry)),
		zap.Duration("delay", p.opts.RetryDelay),
	)
	select {
	case <-time.After(p.opts.RetryDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	_, err = p.runPool(ctx, retry, withRussian, true)
	return err
}

// runPool processes rows concurrently and returns those that failed with a
// retryable error. On the final attempt such rows are force-emitted instead.
// A fatal failure (exhausted search balance) cancels the whole pool.
func (p *Pipeline) runPool(ctx context.Context, rows []*model.Row, withRussian, finalAttempt bool) ([]*model.Row, error) {
	var (
		mu    sync.Mutex
		retry []*model.Row
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for _, row := range rows {
		row := row
		g.Go(func() error {
			outcome := p.processRow(ctx, row, withRussian, finalAttempt)
			switch outcome.Status {
			case model.StatusRequeued:
				mu.Lock()
				retry = append(retry, row)
				mu.Unlock()
			case model.StatusAbandoned:
				p.recordError(outcome.Err, row.CompanyName)
			}
			if resilience.IsFatal(outcome.Err) {
				return outcome.Err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return retry, nil
}

// processRow resolves one mention end to end and classifies the outcome.
func (p *Pipeline) processRow(ctx context.Context, row *model.Row, withRussian, finalAttempt bool) model.Outcome {
	outcome, err := p.resolveRow(ctx, row, withRussian)
	if err == nil {
		return outcome
	}

	if resilience.IsFatal(err) {
		zap.L().Error("fatal failure, stopping the batch",
			zap.String("company", row.CompanyName),
			zap.Error(err),
		)
		return model.Outcome{Row: row, Status: model.StatusAbandoned, Err: err}
	}

	if resilience.Retryable(err) && !finalAttempt {
		zap.L().Warn("row deferred to retry queue",
			zap.String("company", row.CompanyName),
			zap.Error(err),
		)
		return model.Outcome{Row: row, Status: model.StatusRequeued, Err: err}
	}

	// Force-write the row unresolved so the batch stays complete.
	zap.L().Error("row failed, emitting unresolved",
		zap.String("company", row.CompanyName),
		zap.Error(err),
	)
	p.emit(row)
	p.bucket(row)
	return model.Outcome{Row: row, Status: model.StatusAbandoned, Err: err}
}

func (p *Pipeline) recordError(err error, company string) {
	if err == nil {
		return
	}
	msg := company + ": " + strings.SplitN(err.Error(), "\n", 2)[0]
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, seen := range p.errs {
		if seen == msg {
			return
		}
	}
	p.errs = append(p.errs, msg)
}

func (p *Pipeline) emit(row *model.Row) {
	p.mu.Lock()
	p.emitted = append(p.emitted, row)
	p.mu.Unlock()
	if p.opts.Sink != nil {
		if err := p.opts.Sink.Write(row); err != nil {
			zap.L().Error("row sink write failed",
				zap.String("company", row.CompanyName),
				zap.Error(err),
			)
		}
	}
}

func (p *Pipeline) bucket(row *model.Row) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch model.BucketFor(row.Country) {
	case model.BucketRussian:
		p.russian = append(p.russian, row)
	case model.BucketForeign:
		p.foreign = append(p.foreign, row)
	default:
		p.unknown = append(p.unknown, row)
	}
}

