// Package titles resolves free-text queries and title ids against the remote
// title database.
//
// Resolver.Lookup walks a fixed state machine over the cache (no match,
// direct hit, hit list) before fetching and ranking the search page.
// Resolver.GetDetails assembles a MovieDetails record from a cached or
// fetched title page plus its plot summary. Both report progress to an
// Observer rather than printing.
package titles
