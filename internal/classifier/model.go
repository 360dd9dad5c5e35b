package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"jobtrail/internal/logging"
	"jobtrail/internal/services"
	"jobtrail/internal/services/llm"
	"jobtrail/internal/textutil"
)

const systemPrompt = `You extract job application status from emails. Respond with a single JSON object and nothing else.`

const promptTemplate = `Analyze this email and extract job application information.

Subject: %s
Body: %s
Sender: %s

Extract:
1. Company name
2. Job title or position
3. Interview stage, one of: application_received, phone_screen, technical_interview, behavioral_interview, final_interview, offer, rejected, other
4. Confidence (0-100) in the extraction

Return exactly this JSON shape:
{"company_name": "name or null", "job_title": "title or null", "interview_stage": "stage or null", "confidence": 0}`

// Completer sends a prompt to a text-generation backend and returns the raw
// reply text.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Name() string
}

// ModelOptions bounds model-backed calls.
type ModelOptions struct {
	Timeout      time.Duration
	MaxBodyChars int
}

// Model classifies emails by prompting a language model for a JSON object.
type Model struct {
	completer Completer
	opts      ModelOptions
	logger    *slog.Logger
}

// NewModel wraps completer in the classifier contract.
func NewModel(completer Completer, opts ModelOptions, logger *slog.Logger) *Model {
	return &Model{
		completer: completer,
		opts:      opts,
		logger:    logging.NewComponentLogger(logger, "classifier").With(logging.String("provider", completer.Name())),
	}
}

// Name reports the backing provider.
func (m *Model) Name() string {
	return m.completer.Name()
}

// Close releases the completer when it holds resources.
func (m *Model) Close() error {
	if closer, ok := m.completer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Classify prompts the model and parses its reply. Transport and parse
// failures are logged and produce the zero Result.
func (m *Model) Classify(ctx context.Context, subject, body, sender string) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("model classifier panic", logging.Any("panic", r))
			result = Result{}
		}
	}()

	if m.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.Timeout)
		defer cancel()
	}

	if m.opts.MaxBodyChars > 0 {
		body = textutil.Truncate(body, m.opts.MaxBodyChars)
	}
	prompt := fmt.Sprintf(promptTemplate, strings.TrimSpace(subject), strings.TrimSpace(body), strings.TrimSpace(sender))

	started := time.Now()
	reply, err := m.completer.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		logging.WarnWithContext(m.logger, "classification request failed", "classify_failed",
			logging.Error(services.Wrap(services.ErrClassify, "classifier", "complete", "", err)),
			logging.Duration("elapsed", time.Since(started)),
			logging.String(logging.FieldErrorHint, "check classifier credentials and network"),
			logging.String(logging.FieldImpact, "email skipped for this cycle"),
		)
		return Result{}
	}

	parsed, err := parseReply(reply)
	if err != nil {
		logging.WarnWithContext(m.logger, "classification reply unparseable", "classify_parse_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "email skipped for this cycle"),
		)
		return Result{}
	}
	m.logger.Debug("email classified",
		logging.String("company", parsed.CompanyName),
		logging.String("title", parsed.JobTitle),
		logging.String(logging.FieldStage, parsed.InterviewStage),
		logging.Int("confidence", parsed.Confidence),
	)
	return parsed
}

type modelReply struct {
	CompanyName    *string   `json:"company_name"`
	JobTitle       *string   `json:"job_title"`
	InterviewStage *string   `json:"interview_stage"`
	Confidence     flexScore `json:"confidence"`
}

func parseReply(reply string) (Result, error) {
	var decoded modelReply
	if err := llm.DecodeJSON(reply, &decoded); err != nil {
		return Result{}, services.Wrap(services.ErrClassify, "classifier", "parse", "decode reply", err)
	}
	return Result{
		CompanyName:    cleanValue(decoded.CompanyName),
		JobTitle:       cleanValue(decoded.JobTitle),
		InterviewStage: strings.ToLower(cleanValue(decoded.InterviewStage)),
		Confidence:     clampConfidence(int(decoded.Confidence)),
	}, nil
}

// cleanValue maps null-like model output to the empty string.
func cleanValue(value *string) string {
	if value == nil {
		return ""
	}
	trimmed := strings.TrimSpace(*value)
	switch strings.ToLower(trimmed) {
	case "", "null", "none", "n/a", "unknown":
		return ""
	}
	return trimmed
}

// flexScore accepts confidence as a JSON number or a numeric string.
type flexScore int

func (f *flexScore) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*f = 0
		return nil
	}
	var number float64
	if err := json.Unmarshal(data, &number); err == nil {
		*f = flexScore(number)
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("confidence: %w", err)
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "%")
	if text == "" {
		*f = 0
		return nil
	}
	number, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("confidence %q: %w", text, err)
	}
	*f = flexScore(number)
	return nil
}
