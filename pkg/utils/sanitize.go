package utils

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxFilenameLength bounds the URL-derived part of an output filename
const DefaultMaxFilenameLength = 100

// urlSeparators are replaced with underscores, in this order, when deriving a filename
var urlSeparators = strings.NewReplacer("://", "_", "/", "_", "?", "_", "&", "_")

// URLFilename derives an output filename from a page URL: separator characters
// ("://", "/", "?", "&") become underscores, the result is truncated to maxLen
// characters and ext is appended.
// Distinct URLs can map to the same name once truncated; callers detect that.
func URLFilename(rawURL string, maxLen int, ext string) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxFilenameLength
	}
	name := urlSeparators.Replace(rawURL)
	if utf8.RuneCountInString(name) > maxLen {
		runes := []rune(name)
		name = string(runes[:maxLen])
	}
	if name == "" {
		name = "untitled"
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return name + ext
}
