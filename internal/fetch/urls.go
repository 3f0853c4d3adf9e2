package fetch

import (
	"net/url"
	"strings"
)

// Site builds page URLs for the title database.
type Site struct {
	BaseURL string
}

// NewSite trims trailing slashes from base.
func NewSite(base string) Site {
	return Site{BaseURL: strings.TrimRight(strings.TrimSpace(base), "/")}
}

// SearchURL returns the title search page for query.
func (s Site) SearchURL(query string) string {
	return s.BaseURL + "/find?s=tt&q=" + url.QueryEscape(query)
}

// TitleURL returns the main page of a title.
func (s Site) TitleURL(titleID string) string {
	return s.BaseURL + "/title/" + titleID + "/"
}

// PlotURL returns the plot summary page of a title.
func (s Site) PlotURL(titleID string) string {
	return s.BaseURL + "/title/" + titleID + "/plotsummary"
}
