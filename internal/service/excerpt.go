package service

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const (
	excerptLimit = 160
	// only the head of a document is scanned for its excerpt
	excerptScanBytes = 64 << 10
)

var textOnly = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}()

// scanHead cuts content to at most excerptScanBytes on a rune boundary,
// dropping a trailing tag the cut left unterminated.
func scanHead(content string) string {
	if len(content) <= excerptScanBytes {
		return content
	}
	cut := excerptScanBytes
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	content = content[:cut]
	if open := strings.LastIndexByte(content, '<'); open > strings.LastIndexByte(content, '>') {
		content = content[:open]
	}
	return content
}

// excerptOf returns the leading visible text of an HTML document.
func excerptOf(content string) string {
	content = scanHead(content)

	plain := html.UnescapeString(textOnly.Sanitize(content))
	plain = strings.Join(strings.Fields(plain), " ")
	if utf8.RuneCountInString(plain) <= excerptLimit {
		return plain
	}

	runes := []rune(plain)
	return strings.TrimSpace(string(runes[:excerptLimit])) + "…"
}
