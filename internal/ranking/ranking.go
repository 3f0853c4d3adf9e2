package ranking

import (
	"slices"
	"strconv"
	"strings"

	"moviemeta/internal/markup"
)

// Candidate is one search result surfaced to callers.
type Candidate struct {
	TitleID string `json:"title_id"`
	Title   string `json:"title"`
	Year    int    `json:"year"`
	Exact   bool   `json:"exact"`
}

// Label formats the candidate as "Title (Year)".
func (c Candidate) Label() string {
	return c.Title + " (" + strconv.Itoa(c.Year) + ")"
}

// FromRows converts parsed rows of one section into candidates.
func FromRows(rows []markup.Row, exact bool) []Candidate {
	out := make([]Candidate, 0, len(rows))
	for _, r := range rows {
		out = append(out, Candidate{TitleID: r.TitleID, Title: r.Title, Year: r.Year, Exact: exact})
	}
	return out
}

// CandidateList is an ordered sequence of candidates keyed by title id.
type CandidateList []Candidate

// IDs returns the title ids in order.
func (l CandidateList) IDs() []string {
	ids := make([]string, len(l))
	for i, c := range l {
		ids[i] = c.TitleID
	}
	return ids
}

// Labels returns the display labels in order.
func (l CandidateList) Labels() []string {
	labels := make([]string, len(l))
	for i, c := range l {
		labels[i] = c.Label()
	}
	return labels
}

// Get returns the candidate with the given title id.
func (l CandidateList) Get(titleID string) (Candidate, bool) {
	for _, c := range l {
		if c.TitleID == titleID {
			return c, true
		}
	}
	return Candidate{}, false
}

// CompareCandidates orders newer releases first, then titles by byte order,
// then title ids so equal title and year pairs still sort deterministically.
func CompareCandidates(a, b Candidate) int {
	if a.Year != b.Year {
		if a.Year > b.Year {
			return -1
		}
		return 1
	}
	if c := strings.Compare(a.Title, b.Title); c != 0 {
		return c
	}
	return strings.Compare(a.TitleID, b.TitleID)
}

// Rank merges the popular block ahead of the exact block. Each block is
// sorted on its own; a block with a single entry is left untouched. Duplicate
// title ids keep their first position, and the kept entry is marked Exact
// when any copy came from the exact block.
func Rank(popular, exact []Candidate) CandidateList {
	out := make(CandidateList, 0, len(popular)+len(exact))
	seen := make(map[string]int, len(popular)+len(exact))
	for _, block := range [][]Candidate{popular, exact} {
		sorted := slices.Clone(block)
		if len(sorted) > 1 {
			slices.SortStableFunc(sorted, CompareCandidates)
		}
		for _, c := range sorted {
			if idx, dup := seen[c.TitleID]; dup {
				out[idx].Exact = out[idx].Exact || c.Exact
				continue
			}
			seen[c.TitleID] = len(out)
			out = append(out, c)
		}
	}
	return out
}
