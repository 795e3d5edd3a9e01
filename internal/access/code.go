// Package access holds the access-code list semantics: entry validation
// for the admin API and the time-windowed PIN validator used on the
// protocol path.
package access

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"keypad-gateway/internal/store"
)

var datetimeRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}$`)

// NormalizeDateTime accepts "YYYY-MM-DD HH:mm", "YYYY-MM-DDTHH:mm" and
// either with trailing seconds, and returns the canonical minute-precision
// form. It does not validate the result.
func NormalizeDateTime(s string) string {
	s = strings.Replace(s, "T", " ", 1)
	if len(s) == len("2006-01-02 15:04:05") && s[16] == ':' {
		s = s[:16]
	}
	return s
}

// NewCode validates and normalizes a candidate entry against the existing
// sequence. It enforces the required fields, the datetime format, real
// calendar values, and the no-duplicate-(code, from, till) invariant.
func NewCode(existing []store.AccessCode, c store.AccessCode) (store.AccessCode, error) {
	c.Code = strings.TrimSpace(c.Code)
	if c.Code == "" || c.From == "" || c.Till == "" {
		return store.AccessCode{}, fmt.Errorf("missing required fields: code, from, till")
	}

	c.From = NormalizeDateTime(c.From)
	c.Till = NormalizeDateTime(c.Till)
	if !datetimeRe.MatchString(c.From) || !datetimeRe.MatchString(c.Till) {
		return store.AccessCode{}, fmt.Errorf(`invalid format: from and till must be "YYYY-MM-DD HH:mm"`)
	}
	for _, v := range []string{c.From, c.Till} {
		if _, err := time.Parse(minuteFormat, v); err != nil {
			return store.AccessCode{}, fmt.Errorf("invalid date value %q", v)
		}
	}

	for _, e := range existing {
		if e.Code == c.Code && e.From == c.From && e.Till == c.Till {
			return store.AccessCode{}, fmt.Errorf("a code with the same PIN and date range already exists")
		}
	}
	return c, nil
}
