// Package llm provides a small OpenRouter chat client used by the
// model-backed email classifier.
//
// Requests are sent in JSON mode with temperature 0. Responses are returned
// verbatim; DecodeJSON tolerates the markdown fences and surrounding prose
// that some models emit.
//
// The client retries HTTP 408, 429 and 5xx responses, empty completions and
// network timeouts with exponential backoff, honouring Retry-After. Context
// cancellation aborts retries immediately.
package llm
