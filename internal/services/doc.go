// Package services defines shared utilities consumed by the resolvers, the
// cache store and the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp correlation identifiers and the active query
//     for logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (fetch, validation, parse, cache) with errors.Is.
//
// Use these helpers when wiring new components so error handling and
// observability stay uniform.
package services
