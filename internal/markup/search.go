package markup

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const (
	exactHeading   = "Titles (Exact Matches)"
	popularHeading = "Popular Titles"
	noMatchPhrase  = "No Matches."
)

var (
	rowTitlePattern = regexp.MustCompile(`/title/(tt[0-9]{7})`)
	yearPattern     = regexp.MustCompile(`\(([12][0-9]{3})\)`)
	yearSuffixed    = regexp.MustCompile(`\(([12][0-9]{3})/[A-Z]{1,3}\)`)
)

// Sections holds the raw fragments of the two labelled result blocks of a
// search page.
type Sections struct {
	Exact      string
	Popular    string
	HasExact   bool
	HasPopular bool
}

// Empty reports whether neither block was found.
func (s Sections) Empty() bool {
	return !s.HasExact && !s.HasPopular
}

// IsNoMatch reports whether a search page carries the fixed no-results phrase.
func IsNoMatch(page string) bool {
	return strings.Contains(textOf(tokenize(page)), noMatchPhrase)
}

// SearchSections splits a search page into its exact and popular blocks. A
// block runs from its bold heading to the end of the table that follows it;
// a heading without a closed table is treated as absent.
func SearchSections(page string) Sections {
	toks := tokenize(page)
	var s Sections
	s.Exact, s.HasExact = section(toks, exactHeading)
	s.Popular, s.HasPopular = section(toks, popularHeading)
	return s
}

func section(toks []token, heading string) (string, bool) {
	for i := range toks {
		if !toks[i].isStart("b") {
			continue
		}
		text, end, ok := elementText(toks, i)
		if !ok || text != heading {
			continue
		}
		tableEnd, ok := closingTable(toks, end+1)
		if !ok {
			return "", false
		}
		return rawOf(toks[i : tableEnd+1]), true
	}
	return "", false
}

func closingTable(toks []token, from int) (int, bool) {
	depth := 0
	for j := from; j < len(toks); j++ {
		switch {
		case toks[j].isStart("table"):
			depth++
		case toks[j].isEnd("table") && depth > 0:
			depth--
			if depth == 0 {
				return j, true
			}
		}
	}
	return 0, false
}

// Rows splits a section into its raw <tr> fragments. Nested rows stay inside
// their outer row; a row without a closing tag is dropped.
func Rows(section string) []string {
	toks := tokenize(section)
	var rows []string
	for i := 0; i < len(toks); i++ {
		if !toks[i].isStart("tr") {
			continue
		}
		depth := 0
		for j := i; j < len(toks); j++ {
			if toks[j].isStart("tr") {
				depth++
			} else if toks[j].isEnd("tr") {
				depth--
				if depth == 0 {
					rows = append(rows, rawOf(toks[i:j+1]))
					i = j
					break
				}
			}
		}
	}
	return rows
}

// Row is a parsed search result line.
type Row struct {
	TitleID string
	Title   string
	Year    int
}

// RowStatus classifies the outcome of ParseRow.
type RowStatus int

const (
	RowOK RowStatus = iota
	// RowFiltered marks TV, video game and direct-to-video rows.
	RowFiltered
	// RowMalformed marks rows missing an id, a title or a year.
	RowMalformed
)

func (s RowStatus) String() string {
	switch s {
	case RowOK:
		return "ok"
	case RowFiltered:
		return "filtered"
	case RowMalformed:
		return "malformed"
	default:
		return "RowStatus(" + strconv.Itoa(int(s)) + ")"
	}
}

// RowResult is the outcome of parsing one row. Reason names why a row was
// skipped and is empty for RowOK.
type RowResult struct {
	Row    Row
	Status RowStatus
	Reason string
}

// ParseRow extracts the title id, display title and year from a row. The
// display title is the text of the last anchor linking to the row's title.
func ParseRow(raw string) RowResult {
	toks := tokenize(raw)
	text := textOf(toks)

	switch {
	case strings.Contains(text, "(VG)"):
		return RowResult{Status: RowFiltered, Reason: "video_game"}
	case strings.Contains(text, "TV"):
		return RowResult{Status: RowFiltered, Reason: "tv"}
	case strings.Contains(text, "(V)"):
		return RowResult{Status: RowFiltered, Reason: "video"}
	}

	m := rowTitlePattern.FindStringSubmatch(raw)
	if m == nil {
		return RowResult{Status: RowMalformed, Reason: "missing_id"}
	}
	id := m[1]

	title := ""
	for i := 0; i < len(toks); i++ {
		if !toks[i].isStart("a") || !linksTo(toks[i].attr("href"), id) {
			continue
		}
		if t, end, ok := elementText(toks, i); ok {
			if t != "" {
				title = t
			}
			i = end
		}
	}
	if title == "" {
		return RowResult{Status: RowMalformed, Reason: "missing_title"}
	}

	year, ok := rowYear(text)
	if !ok {
		return RowResult{Status: RowMalformed, Reason: "missing_year"}
	}
	return RowResult{Row: Row{TitleID: id, Title: title, Year: year}, Status: RowOK}
}

func linksTo(href, id string) bool {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return false
	}
	return u.Path == "/title/"+id+"/" || u.Path == "/title/"+id
}

// rowYear prefers a plain (YYYY) and falls back to the (YYYY/I) form.
func rowYear(text string) (int, bool) {
	m := yearPattern.FindStringSubmatch(text)
	if m == nil {
		m = yearSuffixed.FindStringSubmatch(text)
	}
	if m == nil {
		return 0, false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return year, true
}
