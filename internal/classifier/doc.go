// Package classifier turns raw email text into a job application signal.
//
// Two strategies satisfy the Classifier interface. Heuristic matches fixed
// keyword sets (offer, interview, rejection, application, checked in that
// order) and extracts company and title with phrase patterns. Model prompts a
// language model through a Completer (Gemini, OpenAI-compatible, or
// OpenRouter) for a JSON object.
//
// Neither strategy returns errors: any failure produces the zero Result.
// Whether a Result is merged is decided by the caller via Actionable.
package classifier
