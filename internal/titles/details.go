package titles

import (
	"context"
	"encoding/json"

	"moviemeta/internal/cachestore"
	"moviemeta/internal/markup"
	"moviemeta/internal/services"
)

// ReleaseDate pairs the page text with the release day as epoch seconds.
type ReleaseDate struct {
	Readable string `json:"readable"`
	Unix     int64  `json:"unix"`
}

// MovieDetails is the structured record assembled from a title page and its
// plot summary. Optional fields are nil or empty when the page lacks them.
type MovieDetails struct {
	TitleID     string       `json:"title_id"`
	Rating      *float64     `json:"rating,omitempty"`
	ReleaseDate *ReleaseDate `json:"release_date,omitempty"`
	Genres      []string     `json:"genres"`
	Tagline     string       `json:"tagline,omitempty"`
	Plot        string       `json:"plot,omitempty"`
}

// GetDetails returns the details record for a title id, or for a query that
// an earlier Lookup resolved as a direct hit. A cached record short-circuits
// everything. Without a cached title page the input must be a title id; the
// page fetched for it is not cached. The record is stored under the input.
func (r *Resolver) GetDetails(ctx context.Context, idOrQuery string) (*MovieDetails, error) {
	ctx = services.WithQuery(ctx, idOrQuery)

	if cached, err := r.cachedDetails(ctx, idOrQuery); err != nil || cached != nil {
		return cached, err
	}

	page, url, err := r.titlePage(ctx, idOrQuery)
	if err != nil {
		return nil, err
	}

	details, err := r.extractDetails(ctx, idOrQuery, url, page)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(details)
	if err != nil {
		return nil, services.Wrap(services.ErrCache, component, "details", "encode details", err)
	}
	if err := r.write(ctx, idOrQuery, cachestore.PurposeDetails, data); err != nil {
		return nil, err
	}
	r.emit(ctx, Event{Kind: EventResolved, Query: idOrQuery, Reason: "details"})
	return details, nil
}

func (r *Resolver) cachedDetails(ctx context.Context, key string) (*MovieDetails, error) {
	ok, err := r.cached(ctx, key, cachestore.PurposeDetails)
	if err != nil || !ok {
		return nil, err
	}
	data, found, err := r.read(ctx, key, cachestore.PurposeDetails)
	if err != nil || !found {
		return nil, err
	}
	var details MovieDetails
	if err := json.Unmarshal(data, &details); err != nil {
		return nil, services.Wrap(services.ErrCache, component, "details", "decode details", err)
	}
	r.emit(ctx, Event{Kind: EventResolved, Query: key, Reason: "details"})
	return &details, nil
}

// titlePage returns the cached direct-hit page for key, or fetches the title
// page when key is a title id. The returned url is empty for cached pages.
func (r *Resolver) titlePage(ctx context.Context, key string) (string, string, error) {
	ok, err := r.cached(ctx, key, cachestore.PurposeTitlePage)
	if err != nil {
		return "", "", err
	}
	if ok {
		data, found, err := r.read(ctx, key, cachestore.PurposeTitlePage)
		if err != nil {
			return "", "", err
		}
		if found {
			return string(data), "", nil
		}
	}
	if !markup.IsTitleID(key) {
		return "", "", services.Wrap(services.ErrValidation, component, "details",
			"not a title id and no cached title page: "+key, nil)
	}
	url := r.site.TitleURL(key)
	page, err := r.fetch(ctx, key, url)
	if err != nil {
		return "", "", err
	}
	return page, url, nil
}

func (r *Resolver) extractDetails(ctx context.Context, key, url, page string) (*MovieDetails, error) {
	titleID, ok := markup.TitleID(page)
	if !ok {
		return nil, r.parseFailure(ctx, key, url, "details", "title page has no title id")
	}

	details := &MovieDetails{TitleID: titleID, Genres: markup.Genres(page)}
	if details.Genres == nil {
		details.Genres = []string{}
	}
	if rating, ok := markup.Rating(page); ok {
		details.Rating = &rating
	}
	if date, ok := markup.ReleaseDateOf(page); ok {
		details.ReleaseDate = &ReleaseDate{Readable: date.Readable, Unix: date.Unix()}
	}
	if tagline, ok := markup.Tagline(page); ok {
		details.Tagline = tagline
	}

	plotPage, err := r.fetch(ctx, key, r.site.PlotURL(titleID))
	if err != nil {
		return nil, err
	}
	if plot, ok := markup.Plot(plotPage); ok {
		details.Plot = plot
	}
	return details, nil
}
