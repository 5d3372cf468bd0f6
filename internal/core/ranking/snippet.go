package ranking

import (
	"strings"
	"unicode"
)

const (
	DefaultHalfWidth = 75
	ellipsis         = "..."
)

// Snippet cuts a window of content around the first case-insensitive match of
// query. The window extends halfWidth runes either side of the match center
// and always covers the whole match. An end is marked with "..." only when
// more than len("...") runes were cut there. Without a match the leading
// 2*halfWidth runes are returned.
func Snippet(content, query string, halfWidth int) string {
	if halfWidth <= 0 {
		halfWidth = DefaultHalfWidth
	}

	runes := []rune(content)
	needle := []rune(strings.TrimSpace(query))
	idx := -1
	if len(needle) > 0 {
		idx = indexFold(runes, needle)
	}

	if idx < 0 {
		n := 2 * halfWidth
		if len(runes) <= n {
			return content
		}
		return string(runes[:n]) + ellipsis
	}

	matchEnd := idx + len(needle)
	center := idx + len(needle)/2
	start := max(0, center-halfWidth)
	end := min(len(runes), center+halfWidth+1)
	start = min(start, idx)
	end = max(end, matchEnd)

	var b strings.Builder
	if start > len(ellipsis) {
		b.WriteString(ellipsis)
	}
	b.WriteString(string(runes[start:end]))
	if len(runes)-end > len(ellipsis) {
		b.WriteString(ellipsis)
	}
	return b.String()
}

func indexFold(haystack, needle []rune) int {
	if len(needle) > len(haystack) {
		return -1
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j, r := range needle {
			if unicode.ToLower(haystack[i+j]) != unicode.ToLower(r) {
				continue outer
			}
		}
		return i
	}
	return -1
}
