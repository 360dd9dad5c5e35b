package textutil

import (
	"strings"

	"golang.org/x/net/html"
)

var blockElements = map[string]struct{}{
	"br": {}, "p": {}, "div": {}, "li": {}, "tr": {}, "td": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"table": {}, "ul": {}, "ol": {}, "section": {}, "article": {},
}

// HTMLToText extracts the visible text of an HTML document. Script and style
// contents are dropped and block elements are separated by spaces. Malformed
// markup degrades to whatever text the tokenizer could recover.
func HTMLToText(markup string) string {
	if !strings.Contains(markup, "<") {
		return CollapseWhitespace(html.UnescapeString(markup))
	}

	tokenizer := html.NewTokenizer(strings.NewReader(markup))
	var b strings.Builder
	skipDepth := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return CollapseWhitespace(b.String())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				skipDepth++
				continue
			}
			if _, ok := blockElements[tag]; ok {
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style") && skipDepth > 0 {
				skipDepth--
				continue
			}
			if _, ok := blockElements[tag]; ok {
				b.WriteByte(' ')
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			b.Write(tokenizer.Text())
			b.WriteByte(' ')
		}
	}
}

// LooksLikeHTML reports whether value appears to contain HTML markup.
func LooksLikeHTML(value string) bool {
	lower := strings.ToLower(value)
	for _, marker := range []string{"<html", "<body", "<div", "<p>", "<p ", "<br", "<table", "<span"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
