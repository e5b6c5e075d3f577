package main

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// formatTime converts seconds to MM:SS format
func formatTime(seconds int64) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// scrollSeparator is inserted between loops of scrolling text
const scrollSeparator = "  •  "

// scrollText returns a scrolling window of text with smooth looping
func scrollText(text string, max int, offset int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}

	fullText := append(runes, []rune(scrollSeparator)...)
	textLen := len(fullText)

	// Wrap offset around
	offset = offset % textLen

	// Build visible window
	var result []rune
	for i := 0; i < max; i++ {
		result = append(result, fullText[(offset+i)%textLen])
	}
	return string(result)
}

// truncateGlyphs shortens text to at most max glyphs, marking the cut
// with "...". A max of 0 or less disables truncation.
func truncateGlyphs(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// capitalize upper-cases the first letter
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// wrapText breaks text into lines of roughly maxLineLength characters at
// word boundaries. Words longer than a line are kept whole.
func wrapText(text string, maxLineLength int) string {
	words := strings.Fields(text)
	var b strings.Builder
	lineLength := 0
	for _, word := range words {
		wordLen := utf8.RuneCountInString(word)
		switch {
		case b.Len() == 0:
			lineLength = wordLen
		case lineLength+wordLen >= maxLineLength:
			b.WriteByte('\n')
			lineLength = wordLen
		default:
			b.WriteByte(' ')
			lineLength += wordLen + 1
		}
		b.WriteString(word)
	}
	return b.String()
}
