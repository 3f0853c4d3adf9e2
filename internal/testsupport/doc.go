// Package testsupport holds shared helpers for package tests: temp-dir
// configs, opened stores and a canned-page fetcher.
package testsupport
