package titles

import (
	"context"
	"encoding/json"
	"strings"

	"moviemeta/internal/cachestore"
	"moviemeta/internal/markup"
	"moviemeta/internal/ranking"
	"moviemeta/internal/services"
)

// Outcome is the kind of answer a lookup produced.
type Outcome int

const (
	// OutcomeNoResult means the site reported no matches.
	OutcomeNoResult Outcome = iota
	// OutcomeDirectHit means the search landed on a single title page, which
	// is cached for a later GetDetails call with the same query.
	OutcomeDirectHit
	// OutcomeCandidates means a ranked candidate list was produced.
	OutcomeCandidates
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoResult:
		return "no_result"
	case OutcomeDirectHit:
		return "direct_hit"
	case OutcomeCandidates:
		return "candidates"
	default:
		return "unknown"
	}
}

// MarshalText renders the outcome label in JSON output.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Result is the answer to a lookup.
type Result struct {
	Outcome    Outcome               `json:"outcome"`
	Candidates ranking.CandidateList `json:"candidates,omitempty"`
}

// Lookup resolves a free-text query. Cached outcomes are checked in priority
// order (no match, direct hit, hit list) before the search page is fetched.
// At most one purpose is ever written per query.
func (r *Resolver) Lookup(ctx context.Context, query string) (Result, error) {
	if strings.TrimSpace(query) == "" {
		return Result{}, services.Wrap(services.ErrValidation, component, "lookup", "query must not be empty", nil)
	}
	ctx = services.WithQuery(ctx, query)

	ok, err := r.cached(ctx, query, cachestore.PurposeNoMatch)
	if err != nil {
		return Result{}, err
	}
	if ok {
		return r.resolved(ctx, query, Result{Outcome: OutcomeNoResult}), nil
	}

	ok, err = r.cached(ctx, query, cachestore.PurposeTitlePage)
	if err != nil {
		return Result{}, err
	}
	if ok {
		return r.resolved(ctx, query, Result{Outcome: OutcomeDirectHit}), nil
	}

	ok, err = r.cached(ctx, query, cachestore.PurposeHitList)
	if err != nil {
		return Result{}, err
	}
	if ok {
		list, found, err := r.cachedHitList(ctx, query)
		if err != nil {
			return Result{}, err
		}
		if found {
			return r.resolved(ctx, query, Result{Outcome: OutcomeCandidates, Candidates: list}), nil
		}
	}

	return r.search(ctx, query)
}

func (r *Resolver) cachedHitList(ctx context.Context, query string) (ranking.CandidateList, bool, error) {
	data, found, err := r.read(ctx, query, cachestore.PurposeHitList)
	if err != nil || !found {
		return nil, false, err
	}
	var list ranking.CandidateList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, false, services.Wrap(services.ErrCache, component, "lookup", "decode hit list", err)
	}
	return list, true, nil
}

func (r *Resolver) search(ctx context.Context, query string) (Result, error) {
	url := r.site.SearchURL(query)
	page, err := r.fetch(ctx, query, url)
	if err != nil {
		return Result{}, err
	}

	if markup.IsNoMatch(page) {
		if err := r.write(ctx, query, cachestore.PurposeNoMatch, []byte{}); err != nil {
			return Result{}, err
		}
		return r.resolved(ctx, query, Result{Outcome: OutcomeNoResult}), nil
	}

	sections := markup.SearchSections(page)
	if sections.Empty() {
		if _, ok := markup.TitleID(page); !ok {
			return Result{}, r.parseFailure(ctx, query, url, "lookup", "search page has no result sections and no title id")
		}
		if err := r.write(ctx, query, cachestore.PurposeTitlePage, []byte(page)); err != nil {
			return Result{}, err
		}
		return r.resolved(ctx, query, Result{Outcome: OutcomeDirectHit}), nil
	}

	var popular, exact []ranking.Candidate
	if sections.HasPopular {
		popular = r.candidates(ctx, query, sections.Popular, false)
	}
	if sections.HasExact {
		exact = r.candidates(ctx, query, sections.Exact, true)
	}
	list := ranking.Rank(popular, exact)

	data, err := json.Marshal(list)
	if err != nil {
		return Result{}, services.Wrap(services.ErrCache, component, "lookup", "encode hit list", err)
	}
	if err := r.write(ctx, query, cachestore.PurposeHitList, data); err != nil {
		return Result{}, err
	}
	return r.resolved(ctx, query, Result{Outcome: OutcomeCandidates, Candidates: list}), nil
}

// candidates parses every row of a section. Filtered and malformed rows are
// reported and dropped.
func (r *Resolver) candidates(ctx context.Context, query, section string, exact bool) []ranking.Candidate {
	var rows []markup.Row
	for _, raw := range markup.Rows(section) {
		res := markup.ParseRow(raw)
		if res.Status != markup.RowOK {
			r.emit(ctx, Event{Kind: EventRowSkipped, Query: query, Reason: res.Reason})
			continue
		}
		rows = append(rows, res.Row)
	}
	return ranking.FromRows(rows, exact)
}

func (r *Resolver) resolved(ctx context.Context, query string, res Result) Result {
	r.emit(ctx, Event{Kind: EventResolved, Query: query, Reason: res.Outcome.String(), Count: len(res.Candidates)})
	return res
}
