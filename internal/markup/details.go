package markup

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	titleIDPattern = regexp.MustCompile(`tt[0-9]{7}`)
	titleIDExact   = regexp.MustCompile(`^tt[0-9]{7}$`)
	ratingPattern  = regexp.MustCompile(`([0-9]{1,2}\.?[0-9]?)/10`)
	genrePath      = regexp.MustCompile(`^/Sections/Genres/[A-Za-z]+/$`)
	genreName      = regexp.MustCompile(`^[A-Za-z]+$`)
)

// IsTitleID reports whether s is exactly a title identifier (tt + 7 digits).
func IsTitleID(s string) bool {
	return titleIDExact.MatchString(s)
}

// TitleID returns the first title identifier appearing anywhere in page.
func TitleID(page string) (string, bool) {
	id := titleIDPattern.FindString(page)
	return id, id != ""
}

// Rating returns the first "N.N/10" score found in the page text. The match is
// not scoped to a page region, so user widgets may shadow the main score.
func Rating(page string) (float64, bool) {
	for _, tok := range tokenize(page) {
		if tok.text == "" {
			continue
		}
		for _, m := range ratingPattern.FindAllStringSubmatch(tok.text, -1) {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil || v < 0 || v > 10 {
				continue
			}
			return v, true
		}
	}
	return 0, false
}

// ReleaseDate is the release date block of a title page.
type ReleaseDate struct {
	// Readable is the block text with markup and the label removed,
	// for example "14 December 1995 (USA)".
	Readable string
	Day      int
	Month    time.Month
	Year     int
}

// Time returns midnight UTC of the release day.
func (d ReleaseDate) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Unix returns the release day as epoch seconds.
func (d ReleaseDate) Unix() int64 {
	return d.Time().Unix()
}

// ParseReleaseDate parses the leading "day month year" words of text.
func ParseReleaseDate(text string) (ReleaseDate, bool) {
	readable := collapse(text)
	fields := strings.Fields(readable)
	if len(fields) < 3 {
		return ReleaseDate{}, false
	}
	day, err := strconv.Atoi(fields[0])
	if err != nil || day < 1 || day > 31 {
		return ReleaseDate{}, false
	}
	month, ok := MonthNumber(fields[1])
	if !ok {
		return ReleaseDate{}, false
	}
	year, err := strconv.Atoi(fields[2])
	if err != nil || year < 1 {
		return ReleaseDate{}, false
	}
	d := ReleaseDate{Readable: readable, Day: day, Month: month, Year: year}
	// 31 February would otherwise normalize into March.
	if d.Time().Day() != day {
		return ReleaseDate{}, false
	}
	return d, true
}

// ReleaseDateOf extracts the text between the "Release Date:" heading and the
// next link.
func ReleaseDateOf(page string) (ReleaseDate, bool) {
	text, ok := headedText(page, "Release Date:")
	if !ok {
		return ReleaseDate{}, false
	}
	return ParseReleaseDate(text)
}

// Genres returns the distinct genre names linked from the page, in page order.
func Genres(page string) []string {
	toks := tokenize(page)
	seen := make(map[string]struct{})
	var out []string
	for i := 0; i < len(toks); i++ {
		if !toks[i].isStart("a") {
			continue
		}
		u, err := url.Parse(toks[i].attr("href"))
		if err != nil || !genrePath.MatchString(u.Path) {
			continue
		}
		name, end, ok := elementText(toks, i)
		if !ok {
			continue
		}
		i = end
		if !genreName.MatchString(name) {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Tagline returns the text after the "Tagline:" heading up to the next link.
func Tagline(page string) (string, bool) {
	text, ok := headedText(page, "Tagline:")
	if !ok || text == "" {
		return "", false
	}
	return text, true
}

// Plot returns the first plotpar paragraph of a plot summary page, up to the
// author credit.
func Plot(page string) (string, bool) {
	toks := tokenize(page)
	for i := range toks {
		if !toks[i].isStart("p") || !toks[i].hasClass("plotpar") {
			continue
		}
		text, ok := textAfter(toks, i, func(t token) bool {
			return t.isStart("i") || t.isEnd("p")
		})
		if ok && text != "" {
			return text, true
		}
	}
	return "", false
}

// headedText finds an <h5> with the given label and returns the text that
// follows it up to the next anchor or the end of the enclosing block.
func headedText(page, label string) (string, bool) {
	toks := tokenize(page)
	end, ok := labelled(toks, "h5", label)
	if !ok {
		return "", false
	}
	return textAfter(toks, end, func(t token) bool {
		return t.isStart("a") || t.isEnd("div") || t.isStart("h5")
	})
}
