package mailbox

import (
	"encoding/base64"
	"strings"

	gmailv1 "google.golang.org/api/gmail/v1"

	"jobtrail/internal/textutil"
)

// extractBody walks a Gmail MIME tree and returns the first text/plain body,
// falling back to the first text/html body rendered as text.
func extractBody(part *gmailv1.MessagePart) string {
	if plain := findPart(part, "text/plain"); plain != "" {
		return plain
	}
	if markup := findPart(part, "text/html"); markup != "" {
		return textutil.HTMLToText(markup)
	}
	// Single-part messages sometimes omit a text mime type.
	if part != nil && part.Body != nil && part.Body.Data != "" && len(part.Parts) == 0 {
		body := decodeBase64URL(part.Body.Data)
		if textutil.LooksLikeHTML(body) {
			return textutil.HTMLToText(body)
		}
		return body
	}
	return ""
}

func findPart(part *gmailv1.MessagePart, mimeType string) string {
	if part == nil {
		return ""
	}
	if strings.EqualFold(part.MimeType, mimeType) && part.Body != nil && part.Body.Data != "" {
		return decodeBase64URL(part.Body.Data)
	}
	for _, sub := range part.Parts {
		if body := findPart(sub, mimeType); body != "" {
			return body
		}
	}
	return ""
}

func header(part *gmailv1.MessagePart, name string) string {
	if part == nil {
		return ""
	}
	for _, h := range part.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// decodeBase64URL accepts padded and unpadded base64url.
func decodeBase64URL(data string) string {
	b, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		b, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
		if err != nil {
			return ""
		}
	}
	return string(b)
}
