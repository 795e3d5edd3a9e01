package access

import (
	"log/slog"

	"keypad-gateway/internal/store"
)

// Status classifies a presented PIN against the code list.
type Status string

const (
	StatusValid    Status = "valid"
	StatusUpcoming Status = "upcoming"
	StatusExpired  Status = "expired"
	StatusUnknown  Status = "unknown"
)

// Result is the outcome of one validation. Computed fresh per call.
type Result struct {
	Valid  bool   `json:"valid"`
	Name   string `json:"name"`
	Status Status `json:"status"`
}

// CodeList is the read side of the access-code store.
type CodeList interface {
	ListCodes() ([]store.AccessCode, error)
}

// Validator classifies PINs against the stored code windows. All
// comparisons are lexicographic on the fixed-width "YYYY-MM-DD HH:mm"
// form; timestamps are already expressed in the configured local timezone
// at write time, so no date arithmetic (and no DST ambiguity) is involved.
type Validator struct {
	codes  CodeList
	clock  Clock
	logger *slog.Logger
}

// NewValidator creates a validator reading snapshots from codes.
func NewValidator(codes CodeList, clock Clock, logger *slog.Logger) *Validator {
	return &Validator{codes: codes, clock: clock, logger: logger}
}

// Validate classifies a presented PIN. A store read failure or an empty
// list rejects every PIN as unknown (fail closed).
func (v *Validator) Validate(code string) Result {
	codes, err := v.codes.ListCodes()
	if err != nil {
		v.logger.Warn("code list unavailable, rejecting PIN", "err", err)
		return Result{Valid: false, Name: "", Status: StatusUnknown}
	}
	if len(codes) == 0 {
		return Result{Valid: false, Name: "", Status: StatusUnknown}
	}

	now := v.clock.NowLocal()

	var matches []store.AccessCode
	for _, c := range codes {
		if c.Code == code {
			matches = append(matches, c)
		}
	}
	if len(matches) == 0 {
		return Result{Valid: false, Name: "", Status: StatusUnknown}
	}

	// First currently-open window wins, in store order.
	for _, m := range matches {
		if m.From <= now && now <= expandTill(m.Till) {
			return Result{Valid: true, Name: m.Name, Status: StatusValid}
		}
	}

	// Not valid now: a future window takes precedence over expired ones.
	for _, m := range matches {
		if now < m.From {
			return Result{Valid: false, Name: m.Name, Status: StatusUpcoming}
		}
	}

	return Result{Valid: false, Name: matches[0].Name, Status: StatusExpired}
}

// expandTill widens a legacy date-only upper bound to the end of that day.
func expandTill(till string) string {
	if len(till) == 10 {
		return till + " 23:59"
	}
	return till
}
