package classifier

import (
	"context"
	"strings"

	"jobtrail/internal/stage"
)

// DefaultMinConfidence is the confidence a result needs before the monitor
// merges it into the registry.
const DefaultMinConfidence = 30

// Result is the structured signal extracted from one email. Empty strings
// mean the field was not extracted.
type Result struct {
	CompanyName    string `json:"company_name,omitempty"`
	JobTitle       string `json:"job_title,omitempty"`
	InterviewStage string `json:"interview_stage,omitempty"`
	Confidence     int    `json:"confidence"`
}

// Stage maps the raw interview stage label onto the lifecycle taxonomy.
// Missing, "other" and unrecognized labels count as Applied.
func (r Result) Stage() stage.Stage {
	if s, ok := stage.FromLabel(r.InterviewStage); ok {
		return s
	}
	return stage.Applied
}

// Empty reports whether nothing was extracted.
func (r Result) Empty() bool {
	return r == Result{}
}

// Classifier maps raw email text to a Result. Implementations never return
// errors; failures degrade to the zero Result.
type Classifier interface {
	Classify(ctx context.Context, subject, body, sender string) Result
	Name() string
}

// Actionable reports whether r is complete and confident enough to merge.
func Actionable(r Result, minConfidence int) bool {
	if r.Confidence < minConfidence {
		return false
	}
	return strings.TrimSpace(r.CompanyName) != "" && strings.TrimSpace(r.JobTitle) != ""
}

func clampConfidence(value int) int {
	switch {
	case value < 0:
		return 0
	case value > 100:
		return 100
	default:
		return value
	}
}
