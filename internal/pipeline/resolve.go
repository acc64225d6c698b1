package pipeline

import (
	"context"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/xl-idp/reference-inn/internal/model"
	"github.com/xl-idp/reference-inn/internal/scorer"
	"github.com/xl-idp/reference-inn/internal/search"
	"github.com/xl-idp/reference-inn/internal/text"
)

// punctToSpace covers characters that confuse the search engine when left
// inside a query.
var punctToSpace = regexp.MustCompile(`[.,!@#$%^&*()\[\]{};?\\|~=_+]`)

const querySign = "/"

// rowCounters tracks per-mention state shared by the candidate rows of a
// single resolution: how many candidates matched the declaration reference
// and the running rank of each candidate.
type rowCounters struct {
	ftsHits int
	rank    int
}

// translateSentence prepares a mention for search. With Russia in scope the
// mention is cleaned of punctuation and quotes and translated into Russian;
// either way plus signs are dropped and whitespace collapsed.
func (p *Pipeline) translateSentence(ctx context.Context, sentence string, withRussian bool) (string, error) {
	if withRussian {
		cleaned := punctToSpace.ReplaceAllString(sentence, " ")
		cleaned = text.NormalizeQuotes(cleaned)
		cleaned = strings.TrimSpace(text.CollapseSpaces(cleaned)) + querySign
		zap.L().Debug("translating mention", zap.String("sentence", cleaned))
		translated, err := p.translator.Translate(ctx, cleaned, "en", "ru")
		if err != nil {
			return "", eris.Wrap(err, "translate mention")
		}
		sentence = strings.NewReplacer(`"`, " ", "«", " ", "»", " ", querySign, " ").
			Replace(translated)
	}
	sentence = strings.ReplaceAll(sentence, "+", " ")
	return strings.TrimSpace(text.CollapseSpaces(sentence)), nil
}

// directIdentifier returns the first checksum-valid identifier embedded in
// the mention text, or an empty string when there is none.
func (p *Pipeline) directIdentifier(sentence string, withRussian bool) string {
	for _, run := range text.DigitRuns(sentence) {
		if p.manager.Accepts(run, withRussian) {
			return run
		}
	}
	return ""
}

// resolveRow runs one mention through identifier extraction or search,
// candidate fan-out, the declaration reference join and winner selection.
// Every candidate row is emitted; only the winner lands in a country bucket.
func (p *Pipeline) resolveRow(ctx context.Context, row *model.Row, withRussian bool) (model.Outcome, error) {
	translated, err := p.translateSentence(ctx, row.CompanyName, withRussian)
	if err != nil {
		return model.Outcome{Row: row, Status: model.StatusRequeued, Err: err}, err
	}
	row.SearchQuery = translated + " ИНН"
	row.CompanyNameRus = translated

	// An identifier embedded in the mention itself wins outright; the
	// search engine is only a fallback for mentions without one.
	var res *search.Result
	if id := p.directIdentifier(row.CompanyName, withRussian); id != "" {
		zap.L().Info("identifier found in mention text",
			zap.String("company", row.CompanyName),
			zap.String("taxpayer_id", id),
		)
		res = &search.Result{TaxpayerID: id}
	} else {
		res, err = p.searcher.Resolve(ctx, translated, withRussian)
		if err != nil {
			return model.Outcome{Row: row, Status: model.StatusRequeued, Err: err}, err
		}
	}

	counters := &rowCounters{rank: 1}
	var candidates []*model.Row
	if res.TaxpayerID != "" {
		sum := 0
		for _, n := range res.Tally {
			sum += n
		}
		for _, id := range res.Order {
			cand := row.Clone()
			p.fillRow(ctx, cand, id, res.Tally[id], sum, counters, true, translated, withRussian)
			candidates = append(candidates, cand)
		}
		if len(candidates) == 0 {
			// Cache hit: the identifier is known but nothing was tallied,
			// so the winner still needs its name and reference join.
			p.fillRow(ctx, row, res.TaxpayerID, 0, sum, counters, true, translated, withRussian)
			candidates = append(candidates, row)
		}
	} else {
		p.fillRow(ctx, row, "", 0, 0, counters, false, translated, withRussian)
	}

	winner := pickWinner(row, candidates, counters.ftsHits)
	p.bucket(winner)

	if !res.FromCache && winner.CompanyINN != "" && winner.Country != "" {
		if err := p.store.PutSearch(ctx, winner.CompanyNameRus, winner.CompanyINN, winner.Country); err != nil {
			zap.L().Warn("sentence cache write failed",
				zap.String("company", winner.CompanyName),
				zap.Error(err),
			)
		}
	}
	return model.Outcome{Row: winner, Status: model.StatusEmitted}, nil
}

// fillRow populates one candidate: joins the declaration reference, ranks
// the candidate, and when warranted resolves the canonical name through the
// registries. Every filled row is emitted.
func (p *Pipeline) fillRow(
	ctx context.Context,
	cand *model.Row,
	taxpayerID string,
	count, sum int,
	counters *rowCounters,
	enforceLookup bool,
	translated string,
	withRussian bool,
) {
	cand.CompanyINN = taxpayerID
	cand.CompanyINNCount = count
	cand.SumCountINN = sum
	cand.IsFTSFound = false
	cand.FTSCompanyName = ""
	if taxpayerID != "" {
		if name, ok := p.reference[taxpayerID]; ok {
			cand.IsFTSFound = true
			cand.FTSCompanyName = name
			counters.ftsHits++
		}
	}
	cand.CompanyINNMaxRank = counters.rank
	counters.rank++

	if !cand.IsFTSFound && !enforceLookup {
		p.emit(cand)
		return
	}

	countries := p.manager.Candidates(taxpayerID, withRussian)
	it := p.manager.FetchCompanyName(ctx, taxpayerID, countries)
	if it.Next() {
		resolution := it.Item()
		cand.IsNameFromCache = resolution.FromCache
		cand.CompanyNameUnified = resolution.Name
		cand.Country = resolution.Country
		cand.ConfidenceRate, cand.HasConfidence = scorer.Confidence(ctx, p.translator, resolution.Name, translated)
	} else if err := it.Err(); err != nil {
		zap.L().Warn("registry lookups failed for candidate",
			zap.String("taxpayer_id", taxpayerID),
			zap.Error(err),
		)
		p.recordError(err, cand.CompanyName)
	}
	p.emit(cand)
}

// pickWinner chooses the row that represents the mention: the first
// candidate confirmed by the declaration reference, else the candidate with
// the highest snippet count, else the bare fallback row. All candidates get
// the final reference hit count first.
func pickWinner(fallback *model.Row, candidates []*model.Row, ftsHits int) *model.Row {
	for _, cand := range candidates {
		cand.CountINNInFTS = ftsHits
	}
	for _, cand := range candidates {
		if cand.IsFTSFound {
			return cand
		}
	}
	winner := fallback
	for _, cand := range candidates {
		if winner == fallback || cand.CompanyINNCount > winner.CompanyINNCount {
			winner = cand
		}
	}
	return winner
}
