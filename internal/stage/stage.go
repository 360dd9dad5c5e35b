package stage

import (
	"fmt"
	"strings"

	"jobtrail/internal/services"
)

// Stage is the lifecycle position of a tracked job application.
type Stage string

const (
	Applied   Stage = "Applied"
	Interview Stage = "Interview"
	Offer     Stage = "Offer"
	Rejected  Stage = "Rejected"
)

// All returns every stage in display order.
func All() []Stage {
	return []Stage{Applied, Interview, Offer, Rejected}
}

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	switch s {
	case Applied, Interview, Offer, Rejected:
		return true
	default:
		return false
	}
}

// Order returns the merge rank of a non-rejected stage. Rejected has no rank
// because it overrides every other stage.
func (s Stage) Order() int {
	switch s {
	case Applied:
		return 0
	case Interview:
		return 1
	case Offer:
		return 2
	default:
		return -1
	}
}

func (s Stage) String() string {
	return string(s)
}

// Parse converts user input into a Stage, matching case-insensitively.
func Parse(value string) (Stage, error) {
	trimmed := strings.TrimSpace(value)
	for _, s := range All() {
		if strings.EqualFold(trimmed, string(s)) {
			return s, nil
		}
	}
	return "", services.Wrap(services.ErrValidation, "stage", "parse",
		fmt.Sprintf("unknown stage %q (want Applied, Interview, Offer, or Rejected)", value), nil)
}

// Merge resolves an incoming stage signal against the existing stage for the
// same application. Rejected always wins; otherwise only forward progress is
// accepted. The bool reports whether the stage changed.
func Merge(existing, incoming Stage) (Stage, bool) {
	if incoming == Rejected {
		return Rejected, existing != Rejected
	}
	if existing == Rejected {
		return existing, false
	}
	if incoming.Order() > existing.Order() {
		return incoming, true
	}
	return existing, false
}
