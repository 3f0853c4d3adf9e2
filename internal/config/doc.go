// Package config loads, normalizes, and validates moviemeta configuration.
//
// Values come from repository defaults, then an optional TOML file
// (~/.config/moviemeta/config.toml or ./moviemeta.toml), then MOVIEMETA_*
// environment overrides. Paths are expanded to absolute form. The package also
// embeds the sample configuration written by `moviemeta config init`.
package config
