// Package textutil provides the text normalization helpers used by the email
// classifiers.
//
// The primary use cases are:
//   - Converting HTML email bodies to plain text
//   - Collapsing whitespace and lowercasing text before keyword matching
//   - Title-casing extracted company names and job titles
//   - Truncating bodies before they are embedded in model prompts
package textutil
