package titles_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"moviemeta/internal/cachestore"
	"moviemeta/internal/fetch"
	"moviemeta/internal/services"
	"moviemeta/internal/testsupport"
	"moviemeta/internal/titles"
)

const baseURL = "http://imdb.test"

const searchPage = `<html><body>
<p><b>Popular Titles</b> (Displaying 2 Results)<table>
<tr><td><a href="/title/tt0113277/">Heat</a> (1995)</td></tr>
<tr><td><a href="/title/tt0116458/">Heat</a> (1996) (TV)</td></tr>
</table> </p>
<p><b>Titles (Exact Matches)</b> (Displaying 3 Results)<table>
<tr><td><a href="/title/tt0068699/">Heat</a> (1972)</td></tr>
<tr><td><a href="/title/tt0160184/">Heat</a> (1998/I)</td></tr>
<tr><td><a href="/title/tt9999999/">Heat</a></td></tr>
</table> </p>
</body></html>`

const titlePage = `<html><head><link rel="canonical" href="http://www.imdb.com/title/tt0113277/" /></head><body>
<div class="info"><h5>User Rating:</h5><b>8.2/10</b></div>
<div class="info"><h5>Release Date:</h5> 15 December 1995 (USA) <a href="/title/tt0113277/releaseinfo">more</a></div>
<div class="info"><h5>Genre:</h5><a href="/Sections/Genres/Action/">Action</a> | <a href="/Sections/Genres/Crime/">Crime</a></div>
<div class="info"><h5>Tagline:</h5> A Los Angeles Crime Saga <a href="/title/tt0113277/taglines">more</a></div>
</body></html>`

const plotPage = `<html><body><p class="plotpar">Hunters and their prey. <i>Written by <a href="/w">someone</a></i></p></body></html>`

const noMatchPage = `<html><body><h1>IMDb Title Search</h1><p>No Matches.</p></body></html>`

type recordingObserver struct {
	mu     sync.Mutex
	events []titles.Event
}

func (o *recordingObserver) Observe(_ context.Context, ev titles.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, ev)
}

func (o *recordingObserver) kinds(kind titles.EventKind) []titles.Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []titles.Event
	for _, ev := range o.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	store    *cachestore.Store
	fetcher  *testsupport.FakeFetcher
	observer *recordingObserver
	resolver *titles.Resolver
	site     fetch.Site
}

func newFixture(t *testing.T, opts ...cachestore.Option) *fixture {
	t.Helper()
	return newFixtureOn(t, testsupport.NewMemoryStore(opts...))
}

func newFixtureOn(t *testing.T, store *cachestore.Store) *fixture {
	t.Helper()
	f := &fixture{
		store:    store,
		fetcher:  testsupport.NewFakeFetcher(),
		observer: &recordingObserver{},
		site:     fetch.NewSite(baseURL),
	}
	f.resolver = titles.NewResolver(f.store, f.fetcher, f.site, titles.WithObserver(f.observer))
	return f
}

func (f *fixture) exists(t *testing.T, query string, purpose cachestore.Purpose) bool {
	t.Helper()
	ok, err := f.store.Exists(context.Background(), query, purpose)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	return ok
}

func TestLookupRanksAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.fetcher.Serve(f.site.SearchURL("heat"), searchPage)
	ctx := context.Background()

	first, err := f.resolver.Lookup(ctx, "heat")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if first.Outcome != titles.OutcomeCandidates {
		t.Fatalf("Outcome = %s", first.Outcome)
	}
	wantIDs := []string{"tt0113277", "tt0160184", "tt0068699"}
	if !reflect.DeepEqual(first.Candidates.IDs(), wantIDs) {
		t.Fatalf("IDs = %v, want %v", first.Candidates.IDs(), wantIDs)
	}
	wantLabels := []string{"Heat (1995)", "Heat (1998)", "Heat (1972)"}
	if !reflect.DeepEqual(first.Candidates.Labels(), wantLabels) {
		t.Fatalf("Labels = %v", first.Candidates.Labels())
	}

	second, err := f.resolver.Lookup(ctx, "heat")
	if err != nil {
		t.Fatalf("second Lookup: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("cached result differs:\n%+v\n%+v", first, second)
	}
	if n := len(f.fetcher.Calls()); n != 1 {
		t.Fatalf("expected 1 fetch, got %d", n)
	}
	if !f.exists(t, "heat", cachestore.PurposeHitList) ||
		f.exists(t, "heat", cachestore.PurposeTitlePage) ||
		f.exists(t, "heat", cachestore.PurposeNoMatch) {
		t.Fatal("expected only the hit list to be cached")
	}

	skipped := f.observer.kinds(titles.EventRowSkipped)
	reasons := make([]string, 0, len(skipped))
	for _, ev := range skipped {
		reasons = append(reasons, ev.Reason)
	}
	if !reflect.DeepEqual(reasons, []string{"tv", "missing_year"}) {
		t.Fatalf("skip reasons = %v", reasons)
	}
}

func TestLookupNoMatchWritesSentinel(t *testing.T) {
	f := newFixture(t)
	f.fetcher.Serve(f.site.SearchURL("qwxzzy"), noMatchPage)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := f.resolver.Lookup(ctx, "qwxzzy")
		if err != nil {
			t.Fatalf("Lookup %d: %v", i, err)
		}
		if res.Outcome != titles.OutcomeNoResult || len(res.Candidates) != 0 {
			t.Fatalf("Lookup %d = %+v", i, res)
		}
	}
	if n := len(f.fetcher.Calls()); n != 1 {
		t.Fatalf("expected 1 fetch, got %d", n)
	}
	if !f.exists(t, "qwxzzy", cachestore.PurposeNoMatch) || f.exists(t, "qwxzzy", cachestore.PurposeHitList) {
		t.Fatal("expected only the no-match sentinel")
	}
}

func TestLookupDirectHitThenDetailsUsesCachedPage(t *testing.T) {
	f := newFixture(t)
	f.fetcher.Serve(f.site.SearchURL("heat 1995"), titlePage)
	f.fetcher.Serve(f.site.PlotURL("tt0113277"), plotPage)
	ctx := context.Background()

	res, err := f.resolver.Lookup(ctx, "heat 1995")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if res.Outcome != titles.OutcomeDirectHit {
		t.Fatalf("Outcome = %s", res.Outcome)
	}
	if !f.exists(t, "heat 1995", cachestore.PurposeTitlePage) || f.exists(t, "heat 1995", cachestore.PurposeHitList) {
		t.Fatal("expected only the title page to be cached")
	}

	again, err := f.resolver.Lookup(ctx, "heat 1995")
	if err != nil || again.Outcome != titles.OutcomeDirectHit {
		t.Fatalf("second Lookup = %+v, %v", again, err)
	}

	details, err := f.resolver.GetDetails(ctx, "heat 1995")
	if err != nil {
		t.Fatalf("GetDetails: %v", err)
	}
	if details.TitleID != "tt0113277" {
		t.Fatalf("TitleID = %q", details.TitleID)
	}
	wantCalls := []string{f.site.SearchURL("heat 1995"), f.site.PlotURL("tt0113277")}
	if !reflect.DeepEqual(f.fetcher.Calls(), wantCalls) {
		t.Fatalf("calls = %v, want %v", f.fetcher.Calls(), wantCalls)
	}
}

func TestLookupFetchFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("connection reset")
	f.fetcher.Fail(f.site.SearchURL("heat"), boom)
	ctx := context.Background()

	_, err := f.resolver.Lookup(ctx, "heat")
	if !errors.Is(err, services.ErrFetch) || !errors.Is(err, boom) {
		t.Fatalf("expected wrapped fetch error, got %v", err)
	}
	stats, err := f.store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total() != 0 {
		t.Fatalf("expected empty cache, got %+v", stats.Entries)
	}
	if len(f.observer.kinds(titles.EventFetchFailed)) != 1 {
		t.Fatal("expected a fetch_failed event")
	}
}

func TestLookupPageWithoutSectionsOrIDIsParseError(t *testing.T) {
	f := newFixture(t)
	f.fetcher.Serve(f.site.SearchURL("heat"), `<html><body>Service Unavailable</body></html>`)

	_, err := f.resolver.Lookup(context.Background(), "heat")
	if !errors.Is(err, services.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	if f.exists(t, "heat", cachestore.PurposeTitlePage) {
		t.Fatal("unexpected title page entry")
	}
}

func TestLookupRejectsEmptyQuery(t *testing.T) {
	f := newFixture(t)
	if _, err := f.resolver.Lookup(context.Background(), "   "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(f.fetcher.Calls()) != 0 {
		t.Fatal("empty query should not fetch")
	}
}

func TestLookupWithDisabledCacheAlwaysFetches(t *testing.T) {
	f := newFixture(t, cachestore.WithEnabled(false))
	f.fetcher.Serve(f.site.SearchURL("heat"), searchPage)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.resolver.Lookup(ctx, "heat"); err != nil {
			t.Fatalf("Lookup %d: %v", i, err)
		}
	}
	if n := len(f.fetcher.Calls()); n != 2 {
		t.Fatalf("expected 2 fetches, got %d", n)
	}
	if len(f.observer.kinds(titles.EventCacheWrite)) != 0 {
		t.Fatal("disabled cache reported a write")
	}
}

func TestGetDetailsByTitleIDRoundTrips(t *testing.T) {
	f := newFixture(t)
	f.fetcher.Serve(f.site.TitleURL("tt0113277"), titlePage)
	f.fetcher.Serve(f.site.PlotURL("tt0113277"), plotPage)
	ctx := context.Background()

	details, err := f.resolver.GetDetails(ctx, "tt0113277")
	if err != nil {
		t.Fatalf("GetDetails: %v", err)
	}
	if details.Rating == nil || *details.Rating != 8.2 {
		t.Fatalf("Rating = %v", details.Rating)
	}
	if details.ReleaseDate == nil || details.ReleaseDate.Readable != "15 December 1995 (USA)" || details.ReleaseDate.Unix != 818985600 {
		t.Fatalf("ReleaseDate = %+v", details.ReleaseDate)
	}
	if !reflect.DeepEqual(details.Genres, []string{"Action", "Crime"}) {
		t.Fatalf("Genres = %v", details.Genres)
	}
	if details.Tagline != "A Los Angeles Crime Saga" || details.Plot != "Hunters and their prey." {
		t.Fatalf("Tagline/Plot = %q / %q", details.Tagline, details.Plot)
	}
	if f.exists(t, "tt0113277", cachestore.PurposeTitlePage) {
		t.Fatal("title page fetched by id must not be cached")
	}

	cached, err := f.resolver.GetDetails(ctx, "tt0113277")
	if err != nil {
		t.Fatalf("cached GetDetails: %v", err)
	}
	if !reflect.DeepEqual(details, cached) {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", details, cached)
	}
	if n := len(f.fetcher.Calls()); n != 2 {
		t.Fatalf("expected 2 fetches, got %d", n)
	}
}

func TestGetDetailsOptionalFieldsAbsent(t *testing.T) {
	f := newFixture(t)
	f.fetcher.Serve(f.site.TitleURL("tt0000001"), `<html><body><a href="/title/tt0000001/">Untitled</a></body></html>`)
	f.fetcher.Serve(f.site.PlotURL("tt0000001"), `<html><body></body></html>`)

	details, err := f.resolver.GetDetails(context.Background(), "tt0000001")
	if err != nil {
		t.Fatalf("GetDetails: %v", err)
	}
	want := &titles.MovieDetails{TitleID: "tt0000001", Genres: []string{}}
	if !reflect.DeepEqual(details, want) {
		t.Fatalf("details = %+v", details)
	}
}

func TestGetDetailsRejectsFreeTextWithoutCachedPage(t *testing.T) {
	f := newFixture(t)
	_, err := f.resolver.GetDetails(context.Background(), "heat")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(f.fetcher.Calls()) != 0 {
		t.Fatal("invalid id should not fetch")
	}
}

func TestGetDetailsMissingTitleIDIsParseError(t *testing.T) {
	f := newFixture(t)
	f.fetcher.Serve(f.site.TitleURL("tt0113277"), `<html><body>maintenance</body></html>`)

	_, err := f.resolver.GetDetails(context.Background(), "tt0113277")
	if !errors.Is(err, services.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
	if len(f.observer.kinds(titles.EventParseFailed)) != 1 {
		t.Fatal("expected a parse_failed event")
	}
}

func TestGetDetailsPlotFetchFailureCachesNothing(t *testing.T) {
	f := newFixture(t)
	f.fetcher.Serve(f.site.TitleURL("tt0113277"), titlePage)

	_, err := f.resolver.GetDetails(context.Background(), "tt0113277")
	if !errors.Is(err, services.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	if f.exists(t, "tt0113277", cachestore.PurposeDetails) {
		t.Fatal("details cached after failed plot fetch")
	}
}

const latin1SearchPage = "<html><body>\n" +
	"<p><b>Popular Titles</b> (Displaying 1 Result)<table>\n" +
	"<tr><td><a href=\"/title/tt0211915/\">Le Fabuleux Destin d'Am\xe9lie Poulain</a> (2001)</td></tr>\n" +
	"</table> </p>\n" +
	"</body></html>"

func TestLatin1PagesSurviveCacheRoundTrip(t *testing.T) {
	f := newFixture(t)
	f.fetcher.Serve(f.site.SearchURL("amelie"), latin1SearchPage)
	f.fetcher.Serve(f.site.TitleURL("tt0113277"), strings.Replace(titlePage, "A Los Angeles Crime Saga", "Caf\xe9 society", 1))
	f.fetcher.Serve(f.site.PlotURL("tt0113277"), plotPage)
	ctx := context.Background()

	fresh, err := f.resolver.Lookup(ctx, "amelie")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	cached, err := f.resolver.Lookup(ctx, "amelie")
	if err != nil {
		t.Fatalf("cached Lookup: %v", err)
	}
	if !reflect.DeepEqual(fresh, cached) {
		t.Fatalf("lookup changed across the cache:\n%+v\n%+v", fresh, cached)
	}
	if len(fresh.Candidates) != 1 || !utf8.ValidString(fresh.Candidates[0].Title) {
		t.Fatalf("candidates = %+v", fresh.Candidates)
	}

	details, err := f.resolver.GetDetails(ctx, "tt0113277")
	if err != nil {
		t.Fatalf("GetDetails: %v", err)
	}
	again, err := f.resolver.GetDetails(ctx, "tt0113277")
	if err != nil {
		t.Fatalf("cached GetDetails: %v", err)
	}
	if !reflect.DeepEqual(details, again) {
		t.Fatalf("details changed across the cache:\n%+v\n%+v", details, again)
	}
	if !utf8.ValidString(details.Tagline) || !strings.HasSuffix(details.Tagline, " society") {
		t.Fatalf("tagline = %q", details.Tagline)
	}
}

// rejectingBackend fails every write and records what was attempted.
type rejectingBackend struct {
	*cachestore.MemoryBackend
	mu   sync.Mutex
	puts []cachestore.EntryKey
}

func (b *rejectingBackend) PutIfAbsent(_ context.Context, key cachestore.EntryKey, _ []byte) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.puts = append(b.puts, key)
	return false, errors.New("disk full")
}

func (b *rejectingBackend) attempted() []cachestore.Purpose {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]cachestore.Purpose, 0, len(b.puts))
	for _, k := range b.puts {
		out = append(out, k.Purpose)
	}
	return out
}

func TestCacheWriteFailureSurfacesAsCacheError(t *testing.T) {
	ctx := context.Background()

	t.Run("lookup", func(t *testing.T) {
		backend := &rejectingBackend{MemoryBackend: cachestore.NewMemoryBackend()}
		f := newFixtureOn(t, cachestore.New(backend, nil))
		f.fetcher.Serve(f.site.SearchURL("heat"), searchPage)

		if _, err := f.resolver.Lookup(ctx, "heat"); !errors.Is(err, services.ErrCache) {
			t.Fatalf("expected ErrCache, got %v", err)
		}
		if got := backend.attempted(); !reflect.DeepEqual(got, []cachestore.Purpose{cachestore.PurposeHitList}) {
			t.Fatalf("write attempts = %v", got)
		}
		if len(f.observer.kinds(titles.EventCacheWrite)) != 0 || len(f.observer.kinds(titles.EventResolved)) != 0 {
			t.Fatal("failed write reported as stored or resolved")
		}
	})

	t.Run("details", func(t *testing.T) {
		backend := &rejectingBackend{MemoryBackend: cachestore.NewMemoryBackend()}
		f := newFixtureOn(t, cachestore.New(backend, nil))
		f.fetcher.Serve(f.site.TitleURL("tt0113277"), titlePage)
		f.fetcher.Serve(f.site.PlotURL("tt0113277"), plotPage)

		if _, err := f.resolver.GetDetails(ctx, "tt0113277"); !errors.Is(err, services.ErrCache) {
			t.Fatalf("expected ErrCache, got %v", err)
		}
		if got := backend.attempted(); !reflect.DeepEqual(got, []cachestore.Purpose{cachestore.PurposeDetails}) {
			t.Fatalf("write attempts = %v", got)
		}
	})
}

func TestCorruptCachedDetailsIsCacheError(t *testing.T) {
	ctx := context.Background()
	backend := cachestore.NewMemoryBackend()
	if _, err := backend.PutIfAbsent(ctx, cachestore.Key("tt0113277", cachestore.PurposeDetails), []byte("not gzip")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	f := newFixtureOn(t, cachestore.New(backend, cachestore.GzipCodec{}))

	if _, err := f.resolver.GetDetails(ctx, "tt0113277"); !errors.Is(err, services.ErrCache) {
		t.Fatalf("expected ErrCache, got %v", err)
	}
	if n := len(f.fetcher.Calls()); n != 0 {
		t.Fatalf("corrupt entry triggered %d fetches", n)
	}
}

// existsBlind hides existing entries from the resolver so it writes over them.
type existsBlind struct {
	*cachestore.Store
}

func (existsBlind) Exists(context.Context, string, cachestore.Purpose) (bool, error) {
	return false, nil
}

func TestCacheWriteEventOnlyWhenCreated(t *testing.T) {
	ctx := context.Background()
	store := testsupport.NewMemoryStore()
	if _, err := store.Write(ctx, "heat", cachestore.PurposeHitList, []byte("[]")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	fetcher := testsupport.NewFakeFetcher()
	site := fetch.NewSite(baseURL)
	fetcher.Serve(site.SearchURL("heat"), searchPage)
	observer := &recordingObserver{}
	resolver := titles.NewResolver(existsBlind{store}, fetcher, site, titles.WithObserver(observer))

	if _, err := resolver.Lookup(ctx, "heat"); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if n := len(observer.kinds(titles.EventCacheWrite)); n != 0 {
		t.Fatalf("cache_write emitted %d times for an entry that already existed", n)
	}
	data, err := store.Read(ctx, "heat", cachestore.PurposeHitList)
	if err != nil || string(data) != "[]" {
		t.Fatalf("seeded entry replaced: %q, %v", data, err)
	}
}
