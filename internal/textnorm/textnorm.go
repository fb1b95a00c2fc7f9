// Package textnorm normalizes human-entered values found in a brief.
package textnorm

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const isoDate = "2006-01-02"

// dayFirstLayouts cover numeric dates with "." or "-" separators, which
// dateparse reads month first. Month-first layouts follow as the swap retry.
var dayFirstLayouts = []string{
	"2.1.2006",
	"2-1-2006",
	"1.2.2006",
	"1-2-2006",
}

// now supplies the year for dates written without one
var now = time.Now

var epicLine = regexp.MustCompile(`(?im)^[ \t]*epic[ \t]*:[ \t]*(.+)$`)

// NormalizeDate parses raw as a calendar date and returns it as YYYY-MM-DD.
// Ambiguous numeric dates are read day first; a date that is impossible
// that way (e.g. 03/13/2025) is retried month first. Any failure returns
// false. A date without a year gets the current year.
func NormalizeDate(raw string) (date string, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	// dateparse has panicked on malformed input in the past
	defer func() {
		if r := recover(); r != nil {
			date, ok = "", false
		}
	}()

	t, err := parseDayFirst(raw)
	if err != nil {
		t, err = dateparse.ParseAny(raw,
			dateparse.PreferMonthFirst(false),
			dateparse.RetryAmbiguousDateWithSwap(true),
		)
		if err != nil {
			return "", false
		}
	}
	if t.Year() == 0 {
		t = time.Date(now().Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return t.Format(isoDate), true
}

func parseDayFirst(raw string) (time.Time, error) {
	var err error
	for _, layout := range dayFirstLayouts {
		var t time.Time
		if t, err = time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// DetectEpicName returns the content of the first "Epic:" line in text.
func DetectEpicName(text string) (string, bool) {
	m := epicLine.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	name := strings.TrimSpace(m[1])
	if name == "" {
		return "", false
	}
	return name, true
}
