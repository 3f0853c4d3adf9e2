// Package ranking orders search candidates: popular matches before exact
// matches, each block by year descending and title ascending, deduplicated by
// title id.
package ranking
