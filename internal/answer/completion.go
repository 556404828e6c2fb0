// Package answer extracts display text from completion results and rewrites
// citation URLs into markdown links.
package answer

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Kind identifies the shape of a completion result.
type Kind int

const (
	// KindUnrecognized is a result that matches no known shape.
	KindUnrecognized Kind = iota

	// KindStructuredBlocks is an ordered sequence of content blocks.
	KindStructuredBlocks

	// KindSerializedText is a string holding a printed representation of a
	// block sequence, e.g. `[TextBlock(text="...", type='text')]`.
	KindSerializedText

	// KindPlainText is a string that is already the answer.
	KindPlainText
)

func (k Kind) String() string {
	switch k {
	case KindStructuredBlocks:
		return "structured_blocks"
	case KindSerializedText:
		return "serialized_text"
	case KindPlainText:
		return "plain_text"
	default:
		return "unrecognized"
	}
}

// Block is one content block of a structured completion. Text is nil when
// the block carries no text field (tool use, images and the like).
type Block struct {
	Type string
	Text *string
}

// TextBlock returns a text-bearing block.
func TextBlock(text string) Block {
	return Block{Type: "text", Text: &text}
}

// Completion is a raw completion result. Only the fields relevant to Kind
// are set.
type Completion struct {
	Kind   Kind
	Blocks []Block
	Text   string
}

// serializedMarkers are the tokens that identify a printed block sequence.
var serializedMarkers = []string{"TextBlock(", "ContentBlock("}

// FromBlocks wraps a block sequence.
func FromBlocks(blocks []Block) Completion {
	return Completion{Kind: KindStructuredBlocks, Blocks: blocks}
}

// FromString classifies s as serialized text when it carries a block marker
// and a quoted text field, and as plain text otherwise.
func FromString(s string) Completion {
	if looksSerialized(s) {
		return Completion{Kind: KindSerializedText, Text: s}
	}
	return Completion{Kind: KindPlainText, Text: s}
}

// Unrecognized returns a completion that matches no known shape.
func Unrecognized() Completion {
	return Completion{Kind: KindUnrecognized}
}

// FromJSON classifies a raw provider response body. A "content" array, or a
// top-level array, becomes a block sequence; a JSON string (top-level or in
// "content") goes through FromString; anything else is unrecognized.
func FromJSON(data []byte) Completion {
	if !gjson.ValidBytes(data) {
		return Unrecognized()
	}
	root := gjson.ParseBytes(data)

	switch {
	case root.Type == gjson.String:
		return FromString(root.String())
	case root.IsArray():
		return FromBlocks(blocksFrom(root))
	case root.IsObject():
		content := root.Get("content")
		switch {
		case content.IsArray():
			return FromBlocks(blocksFrom(content))
		case content.Type == gjson.String:
			return FromString(content.String())
		}
	}
	return Unrecognized()
}

func blocksFrom(arr gjson.Result) []Block {
	var blocks []Block
	arr.ForEach(func(_, item gjson.Result) bool {
		b := Block{Type: item.Get("type").String()}
		if t := item.Get("text"); item.IsObject() && t.Type == gjson.String {
			text := t.String()
			b.Text = &text
		}
		blocks = append(blocks, b)
		return true
	})
	return blocks
}

func looksSerialized(s string) bool {
	for _, m := range serializedMarkers {
		if strings.Contains(s, m) {
			return serializedTextPattern.MatchString(s)
		}
	}
	return false
}
