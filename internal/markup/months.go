package markup

import (
	"time"

	"golang.org/x/text/cases"
)

var monthNames = func() map[string]time.Month {
	m := make(map[string]time.Month, 24)
	fold := cases.Fold()
	for month := time.January; month <= time.December; month++ {
		name := fold.String(month.String())
		m[name] = month
		m[name[:3]] = month
	}
	return m
}()

// MonthNumber converts an English month name, or its three letter
// abbreviation, to a month regardless of case.
func MonthNumber(name string) (time.Month, bool) {
	month, ok := monthNames[cases.Fold().String(name)]
	return month, ok
}
