package intake

import (
	"regexp"
	"time"

	"github.com/opsdesk/filetrack/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Date extraction
//
// Scanned documents carry their issue date somewhere in the body text.  Three
// formats occur in practice, tried in a fixed precedence order so a document
// containing several candidates always resolves the same way:
//
//	1. ISO            2026-03-15
//	2. dash-separated 15-03-2026   (day first)
//	3. slash-separated 15/03/2026  (day first)
//
// All candidates of a higher-precedence format are tried before any candidate
// of a lower one.  Day-first interpretation is unconditional; 03-04-2026 is
// the 3rd of April, never March 4th.  Separators may carry surrounding
// whitespace ("15 - 03 - 2026"); candidates are compacted before parsing.
// ─────────────────────────────────────────────────────────────────────────────

var datePatterns = []struct {
	re     *regexp.Regexp
	layout string
}{
	{regexp.MustCompile(`\b\d{4}\s*-\s*\d{2}\s*-\s*\d{2}\b`), "2006-01-02"},
	{regexp.MustCompile(`\b\d{2}\s*-\s*\d{2}\s*-\s*\d{4}\b`), "02-01-2006"},
	{regexp.MustCompile(`\b\d{2}\s*/\s*\d{2}\s*/\s*\d{4}\b`), "02/01/2006"},
}

var dateWhitespace = regexp.MustCompile(`\s+`)

func compactDate(candidate string) string {
	return dateWhitespace.ReplaceAllString(candidate, "")
}

// ExtractDate scans text for the first calendar-valid date, honoring the
// format precedence above.  The result is a midnight-UTC timestamp carrying
// only the calendar date.  Candidates that match a pattern but fail calendar
// validation (2026-02-31, 45/13/2026) are skipped, not fatal: a later
// candidate may still resolve.  ErrCodeDateUnparseable when nothing resolves.
func ExtractDate(text string) (time.Time, error) {
	for _, p := range datePatterns {
		for _, candidate := range p.re.FindAllString(text, -1) {
			d, err := time.ParseInLocation(p.layout, compactDate(candidate), time.UTC)
			if err != nil {
				continue
			}
			return d, nil
		}
	}
	return time.Time{}, errors.New(errors.ErrCodeDateUnparseable, "no parseable date found in document text")
}

// NormalizeDate parses a single date string in any of the three accepted
// formats.  Used for dates arriving through the API rather than extracted
// from document text.
func NormalizeDate(raw string) (time.Time, error) {
	compact := compactDate(raw)
	for _, p := range datePatterns {
		if !p.re.MatchString(raw) {
			continue
		}
		d, err := time.ParseInLocation(p.layout, compact, time.UTC)
		if err != nil {
			continue
		}
		return d, nil
	}
	return time.Time{}, errors.Newf(errors.ErrCodeDateUnparseable, "unparseable date %q", raw)
}
