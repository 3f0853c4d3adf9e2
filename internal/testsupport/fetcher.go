package testsupport

import (
	"context"
	"net/http"
	"sync"

	"moviemeta/internal/fetch"
)

// FakeFetcher serves canned pages by URL and records every request.
// Unknown URLs fail with a 404 fetch error.
type FakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls []string
}

var _ fetch.Fetcher = (*FakeFetcher)(nil)

func NewFakeFetcher() *FakeFetcher {
	return &FakeFetcher{pages: map[string]string{}, errs: map[string]error{}}
}

// Serve registers page as the body for url.
func (f *FakeFetcher) Serve(url, page string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[url] = page
}

// Fail makes requests for url return err.
func (f *FakeFetcher) Fail(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[url] = err
}

func (f *FakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return "", err
	}
	page, ok := f.pages[url]
	if !ok {
		return "", &fetch.Error{URL: url, StatusCode: http.StatusNotFound}
	}
	return page, nil
}

// Calls returns the requested URLs in order.
func (f *FakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
