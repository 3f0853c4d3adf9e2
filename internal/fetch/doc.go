// Package fetch retrieves pages from the remote title database.
//
// HTTPFetcher wraps net/http with a configured user agent, request timeout and
// a golang.org/x/time/rate limiter that spaces consecutive requests. Failures
// are reported as *Error values that match services.ErrFetch.
package fetch
