package answer

import (
	"regexp"
	"strings"
)

// Unavailable is returned when no text can be extracted from a completion.
const Unavailable = "Unable to extract text content from the response."

// Mode selects how text-bearing blocks are combined.
type Mode int

const (
	// JoinAll concatenates the text of every text-bearing block.
	JoinAll Mode = iota

	// FirstOnly returns the text of the first text-bearing block.
	FirstOnly
)

// Extractor pulls answer text out of a completion. The zero value joins all
// blocks with no separator.
type Extractor struct {
	Mode      Mode
	Separator string
}

// text="..." or text='...', honouring backslash escapes inside the quotes.
var serializedTextPattern = regexp.MustCompile(`text=(?:"((?:[^"\\]|\\.)*)"|'((?:[^'\\]|\\.)*)')`)

// ExtractText extracts text with the default Extractor.
func ExtractText(c Completion) string {
	return Extractor{}.Extract(c)
}

// Extract tries, in order, the block sequence, the serialized form and the
// plain string. It returns Unavailable when none applies and never panics.
func (e Extractor) Extract(c Completion) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = Unavailable
		}
	}()

	switch c.Kind {
	case KindStructuredBlocks:
		if s, ok := e.fromBlocks(c.Blocks); ok {
			return s
		}
	case KindSerializedText:
		if s, ok := fromSerialized(c.Text); ok {
			return s
		}
		return c.Text
	case KindPlainText:
		return c.Text
	}
	return Unavailable
}

func (e Extractor) fromBlocks(blocks []Block) (string, bool) {
	var parts []string
	for _, b := range blocks {
		if b.Text == nil {
			continue
		}
		if e.Mode == FirstOnly {
			return *b.Text, true
		}
		parts = append(parts, *b.Text)
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, e.Separator), true
}

func fromSerialized(s string) (string, bool) {
	m := serializedTextPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	payload := m[1]
	if payload == "" && m[2] != "" {
		payload = m[2]
	}
	return unescape(payload), true
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '"', '\'', '\\':
			b.WriteByte(s[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
