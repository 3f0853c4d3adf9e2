// Package cachestore implements the write-once page cache used by the lookup
// and details resolvers.
//
// Entries are keyed by md5(query + "." + label) where label names one of four
// mutually exclusive purposes: title, hits, miss and details. Payloads pass
// through a Codec (gzip by default, snappy optionally) before reaching a
// Backend. File, SQLite and Redis backends are provided; a memory backend
// serves tests and throwaway runs.
package cachestore
