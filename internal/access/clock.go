package access

import (
	"fmt"
	"time"
)

// minuteFormat is the fixed-width local datetime form used everywhere in
// the code list. Zero-padded, so lexicographic order equals chronological
// order.
const minuteFormat = "2006-01-02 15:04"

// Clock supplies the current local time at minute precision.
type Clock interface {
	NowLocal() string
}

// LocalClock formats time.Now in a configured timezone.
type LocalClock struct {
	loc *time.Location
}

// NewLocalClock resolves a timezone name ("Europe/Amsterdam", "Local", "").
// Empty means the host's local timezone.
func NewLocalClock(tz string) (*LocalClock, error) {
	if tz == "" {
		tz = "Local"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return &LocalClock{loc: loc}, nil
}

// NowLocal returns the current time as "YYYY-MM-DD HH:mm".
func (c *LocalClock) NowLocal() string {
	return time.Now().In(c.loc).Format(minuteFormat)
}
