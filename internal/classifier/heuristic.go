package classifier

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"jobtrail/internal/logging"
	"jobtrail/internal/stage"
	"jobtrail/internal/textutil"
)

const (
	heuristicKeywordOnly  = 20
	heuristicFullMatch    = 75
	heuristicProviderName = "heuristic"
)

type keywordClass struct {
	label    string
	keywords []string
}

// Checked in order; the first class with a hit wins.
var keywordClasses = []keywordClass{
	{
		label: stage.LabelOffer,
		keywords: []string{
			"job offer",
			"offer of employment",
			"we are pleased to offer you",
			"employment agreement",
		},
	},
	{
		label: stage.LabelInterview,
		keywords: []string{
			"interview invitation",
			"schedule an interview",
			"we would like to invite you for an interview",
			"next steps",
			"phone screen",
			"technical interview",
			"virtual interview",
		},
	},
	{
		label: stage.LabelRejected,
		keywords: []string{
			"application update",
			"not moving forward",
			"unsuccessful",
			"regret to inform you",
			"position has been filled",
			"we have decided to pursue other candidates",
		},
	},
	{
		label: stage.LabelApplicationReceived,
		keywords: []string{
			"application received",
			"thank you for your application",
			"we have received your application",
			"your application for the position of",
			"confirmation of your application",
		},
	},
}

const (
	captureClass    = `([a-z0-9\s.&'-]+)`
	maxCaptureWords = 6
)

// Captures are greedy, so they are cut at the first sentence break or
// connector phrase.
var captureStops = []string{". ", " for ", " regarding ", " at ", " with ", " has ", " we "}

var (
	companyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`from\s+` + captureClass + `\s+regarding`),
		regexp.MustCompile(`at\s+` + captureClass + `\s+for the position`),
		regexp.MustCompile(`your application to\s+` + captureClass),
		regexp.MustCompile(`from\s+` + captureClass + `\s+team`),
	}
	titlePatterns = []*regexp.Regexp{
		regexp.MustCompile(`for the position of\s+` + captureClass),
		regexp.MustCompile(`your application for\s+` + captureClass),
		regexp.MustCompile(`regarding your application for the\s+` + captureClass + `\s+role`),
	}
	subjectTitlePatterns = []*regexp.Regexp{
		regexp.MustCompile(`application for\s+` + captureClass),
		regexp.MustCompile(`interview for\s+` + captureClass),
	}
)

// Heuristic classifies emails with fixed keyword sets and phrase patterns.
type Heuristic struct {
	logger *slog.Logger
}

// NewHeuristic returns the keyword classifier.
func NewHeuristic(logger *slog.Logger) *Heuristic {
	return &Heuristic{logger: logging.NewComponentLogger(logger, "classifier")}
}

// Name identifies the strategy.
func (h *Heuristic) Name() string {
	return heuristicProviderName
}

// Classify matches keywords in the subject and body, then extracts company
// and title from the body, falling back to the subject for the title.
func (h *Heuristic) Classify(_ context.Context, subject, body, _ string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("heuristic classifier panic", logging.Any("panic", r))
			result = Result{}
		}
	}()

	cleanSubject := textutil.Normalize(subject)
	cleanBody := textutil.Normalize(textutil.HTMLToText(body))

	label := matchKeywords(cleanSubject, cleanBody)
	if label == "" {
		return Result{}
	}
	result = Result{
		InterviewStage: label,
		CompanyName:    firstCapture(companyPatterns, cleanBody),
		JobTitle:       firstCapture(titlePatterns, cleanBody),
	}
	if result.JobTitle == "" {
		result.JobTitle = firstCapture(subjectTitlePatterns, cleanSubject)
	}
	result.Confidence = heuristicKeywordOnly
	if result.CompanyName != "" && result.JobTitle != "" {
		result.Confidence = heuristicFullMatch
	}
	return result
}

func matchKeywords(subject, body string) string {
	for _, class := range keywordClasses {
		for _, keyword := range class.keywords {
			if strings.Contains(subject, keyword) || strings.Contains(body, keyword) {
				return class.label
			}
		}
	}
	return ""
}

func firstCapture(patterns []*regexp.Regexp, text string) string {
	for _, pattern := range patterns {
		match := pattern.FindStringSubmatch(text)
		if len(match) < 2 {
			continue
		}
		if value := textutil.TitleCase(trimCapture(match[1])); value != "" {
			return value
		}
	}
	return ""
}

func trimCapture(capture string) string {
	for _, stop := range captureStops {
		if idx := strings.Index(capture, stop); idx >= 0 {
			capture = capture[:idx]
		}
	}
	words := strings.Fields(textutil.TrimPunctuation(capture))
	if len(words) > maxCaptureWords {
		words = words[:maxCaptureWords]
	}
	return strings.Join(words, " ")
}
