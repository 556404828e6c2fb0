package answer

import (
	"regexp"
	"strings"
)

// maxLinkWords bounds how many preceding words become link text.
const maxLinkWords = 5

// Alternatives are tried left to right at each position, so an existing
// markdown link is consumed whole before its URL can be seen on its own.
var linkPattern = regexp.MustCompile(
	`(\[[^\]\n]*\]\([^)\s]*\))` + // 1: existing markdown link
		`|(\(\s*)?(\bSources?:\s*)?(\(\s*)?(https?://\S+)` + // 2-4: optional paren, label, paren; 5: URL
		`|(\bSources?:[ \t]*)`, // 6: label with no URL
)

// Linkify rewrites bare citation URLs into markdown links. The up to five
// words preceding a URL on the same line become its display text, falling
// back to the URL itself. A "Source:" label and enclosing parentheses are
// consumed with the URL; labels without a URL are dropped. Sentence
// punctuation and an unbalanced ")" after a URL stay in the text. Existing
// markdown links are left alone.
func Linkify(text string) string {
	matches := linkPattern.FindAllStringSubmatchIndex(text, -1)
	if matches == nil {
		return text
	}

	var b strings.Builder
	b.Grow(len(text) + len(matches)*8)
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		switch {
		case m[2] >= 0:
			b.WriteString(text[last:end])
		case m[10] >= 0:
			url := trimURL(text[m[10]:m[11]])
			end = m[10] + len(url)
			if m[4] >= 0 || m[8] >= 0 {
				end = closeParen(text, end)
			}
			b.WriteString(text[last:start])
			b.WriteString("[")
			b.WriteString(displayText(text[last:start], url))
			b.WriteString("](")
			b.WriteString(url)
			b.WriteString(")")
		case m[12] >= 0:
			b.WriteString(text[last:start])
		}
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

// trimURL drops trailing sentence punctuation and closing parentheses that
// have no opening partner inside the URL.
func trimURL(url string) string {
	for {
		t := strings.TrimRight(url, ".,;:!?")
		if strings.HasSuffix(t, ")") && strings.Count(t, "(") < strings.Count(t, ")") {
			t = t[:len(t)-1]
		}
		if t == url {
			return url
		}
		url = t
	}
}

// closeParen consumes the parenthesis matching one opened before the URL
// when it is the next non-space character after end.
func closeParen(text string, end int) int {
	rest := text[end:]
	if r := strings.TrimLeft(rest, " \t"); strings.HasPrefix(r, ")") {
		return end + (len(rest) - len(r)) + 1
	}
	return end
}

func displayText(preceding, url string) string {
	if i := strings.LastIndexByte(preceding, '\n'); i >= 0 {
		preceding = preceding[i+1:]
	}
	words := strings.Fields(preceding)
	if len(words) > maxLinkWords {
		words = words[len(words)-maxLinkWords:]
	}
	display := strings.Join(words, " ")
	display = strings.NewReplacer("[", "", "]", "", "(", "", ")", "").Replace(display)
	display = strings.Trim(display, " \t.,;:-")
	if display == "" {
		return url
	}
	return display
}

// Format extracts the text of c and linkifies it.
func Format(c Completion) string {
	return Linkify(ExtractText(c))
}
