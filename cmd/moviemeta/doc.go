// Command moviemeta looks up movie titles and details from the configured
// title database, caching every fetched page in the purpose-tagged store.
//
// Subcommands:
//
//	moviemeta lookup <query>          rank candidates or report a direct hit
//	moviemeta details <id|query>      rating, release date, genres, tagline, plot
//	moviemeta cache stats|flush       inspect or clear the page cache
//	moviemeta config init|show|validate
package main
