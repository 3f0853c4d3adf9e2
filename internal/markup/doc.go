// Package markup extracts search results and title fields from title
// database pages.
//
// Every extractor is a pure function over page text built on the
// golang.org/x/net/html tokenizer. Absent fields are reported with ok=false
// and never panic. Search rows report whether they were accepted, filtered
// (TV, video game and video entries) or malformed.
package markup
