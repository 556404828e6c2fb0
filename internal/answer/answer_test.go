package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromString(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Kind
	}{
		{"plain", "The board supports the bill.", KindPlainText},
		{"serialized double quotes", `[TextBlock(text="Hello", type='text')]`, KindSerializedText},
		{"serialized single quotes", `[ContentBlock(text='Hi', type='text')]`, KindSerializedText},
		{"marker without text field", "TextBlock(type='text')", KindPlainText},
		{"text field without marker", `text="looks structured"`, KindPlainText},
		{"empty", "", KindPlainText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := FromString(tt.in)
			assert.Equal(t, tt.want, c.Kind)
			assert.Equal(t, tt.in, c.Text)
		})
	}
}

func TestFromJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		kind Kind
		want string
	}{
		{
			name: "messages response",
			in:   `{"id":"msg_1","content":[{"type":"text","text":"Hello "},{"type":"tool_use","id":"t"},{"type":"text","text":"world"}]}`,
			kind: KindStructuredBlocks,
			want: "Hello world",
		},
		{
			name: "top-level block array",
			in:   `[{"type":"text","text":"only"}]`,
			kind: KindStructuredBlocks,
			want: "only",
		},
		{
			name: "json string",
			in:   `"just words"`,
			kind: KindPlainText,
			want: "just words",
		},
		{
			name: "content string",
			in:   `{"content":"[TextBlock(text=\"inner\", type='text')]"}`,
			kind: KindSerializedText,
			want: "inner",
		},
		{
			name: "object without content",
			in:   `{"error":{"type":"overloaded_error"}}`,
			kind: KindUnrecognized,
			want: Unavailable,
		},
		{
			name: "blocks without text",
			in:   `{"content":[{"type":"image"},{"type":"text","text":42}]}`,
			kind: KindStructuredBlocks,
			want: Unavailable,
		},
		{
			name: "number",
			in:   `17`,
			kind: KindUnrecognized,
			want: Unavailable,
		},
		{
			name: "invalid json",
			in:   `{"content": [`,
			kind: KindUnrecognized,
			want: Unavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := FromJSON([]byte(tt.in))
			assert.Equal(t, tt.kind, c.Kind)
			assert.Equal(t, tt.want, ExtractText(c))
		})
	}
}

func TestExtractText_Blocks(t *testing.T) {
	blocks := []Block{
		{Type: "tool_use"},
		TextBlock("First paragraph."),
		{Type: "image"},
		TextBlock("Second paragraph."),
	}
	c := FromBlocks(blocks)

	assert.Equal(t, "First paragraph.Second paragraph.", ExtractText(c))
	assert.Equal(t, "First paragraph.\n\nSecond paragraph.", Extractor{Separator: "\n\n"}.Extract(c))
	assert.Equal(t, "First paragraph.", Extractor{Mode: FirstOnly}.Extract(c))
}

func TestExtractText_EmptyTextBlockCounts(t *testing.T) {
	assert.Equal(t, "", ExtractText(FromBlocks([]Block{TextBlock("")})))
}

func TestExtractText_Serialized(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "escaped quotes",
			in:   `[TextBlock(text="He said \"no\" twice", type='text')]`,
			want: `He said "no" twice`,
		},
		{
			name: "single quoted with newline escape",
			in:   `[TextBlock(text='It\'s here.\nNext line', type='text')]`,
			want: "It's here.\nNext line",
		},
		{
			name: "first payload wins",
			in:   `[TextBlock(text="one", type='text'), TextBlock(text="two", type='text')]`,
			want: "one",
		},
		{
			name: "escaped backslash before closing quote",
			in:   `[TextBlock(text="path C:\\", type='text')]`,
			want: `path C:\`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := FromString(tt.in)
			assert.Equal(t, KindSerializedText, c.Kind)
			assert.Equal(t, tt.want, ExtractText(c))
		})
	}
}

func TestExtractText_PlainStringUnchanged(t *testing.T) {
	for _, s := range []string{"", "  spaced  ", "Source: http://x/1", "text=\"no marker\""} {
		assert.Equal(t, s, ExtractText(FromString(s)))
	}
}

func TestExtractText_Unrecognized(t *testing.T) {
	assert.Equal(t, Unavailable, ExtractText(Unrecognized()))
	assert.Equal(t, Unavailable, ExtractText(FromBlocks(nil)))
	assert.Equal(t, Unavailable, ExtractText(FromBlocks([]Block{{Type: "image"}})))
	assert.Equal(t, Unavailable, ExtractText(Completion{Kind: Kind(99)}))
}

func TestExtractText_SerializedWithoutPayloadFallsBackToPlain(t *testing.T) {
	c := Completion{Kind: KindSerializedText, Text: "TextBlock(type='text')"}
	assert.Equal(t, "TextBlock(type='text')", ExtractText(c))
}

func TestLinkify_Scenario(t *testing.T) {
	got := Linkify("See Source: http://example.com/a for details")
	assert.Contains(t, got, "[See](http://example.com/a)")
	assert.NotContains(t, got, "Source:")
	assert.Equal(t, "See [See](http://example.com/a) for details", got)
}

func TestLinkify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "no urls",
			in:   "Nothing to link here.",
			want: "Nothing to link here.",
		},
		{
			name: "five word window",
			in:   "The board argued that the tax plan fails http://x/1",
			want: "The board argued that the tax plan fails [that the tax plan fails](http://x/1)",
		},
		{
			name: "url with no preceding words",
			in:   "https://x/2 is the source",
			want: "[https://x/2](https://x/2) is the source",
		},
		{
			name: "parenthesized label",
			in:   "Congress must act (Source: https://x/3).",
			want: "Congress must act [Congress must act](https://x/3).",
		},
		{
			name: "parentheses with inner spaces",
			in:   "Budget talks ( http://x/4 ) stalled",
			want: "Budget talks [Budget talks](http://x/4) stalled",
		},
		{
			name: "window stops at line break",
			in:   "First line words\nSource: http://x/5",
			want: "First line words\n[http://x/5](http://x/5)",
		},
		{
			name: "bare label dropped",
			in:   "Source: unknown editorial",
			want: "unknown editorial",
		},
		{
			name: "existing markdown link untouched",
			in:   "Read [the piece](http://x/6) today",
			want: "Read [the piece](http://x/6) today",
		},
		{
			name: "two citations",
			in:   "Schools need funding Source: http://x/7 and roads too Source: http://x/8",
			want: "Schools need funding [Schools need funding](http://x/7) and roads too [and roads too](http://x/8)",
		},
		{
			name: "punctuation trimmed from display",
			in:   "As argued here, http://x/9",
			want: "As argued here, [As argued here](http://x/9)",
		},
		{
			name: "label inside a word is kept",
			in:   "OpenSource: tools are free",
			want: "OpenSource: tools are free",
		},
		{
			name: "label inside a word before url",
			in:   "Try OpenSource: http://x/10",
			want: "Try OpenSource: [Try OpenSource](http://x/10)",
		},
		{
			name: "sentence punctuation stays outside url",
			in:   "See Source: http://example.com/a.",
			want: "See [See](http://example.com/a).",
		},
		{
			name: "parenthesis before words not in display",
			in:   "Read (see http://a.com/x) now",
			want: "Read (see [Read see](http://a.com/x)) now",
		},
		{
			name: "balanced parentheses kept in url",
			in:   "Details http://x/wiki/Tax_(policy) here",
			want: "Details [Details](http://x/wiki/Tax_(policy)) here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Linkify(tt.in))
		})
	}
}

func TestLinkify_Idempotent(t *testing.T) {
	inputs := []string{
		"See Source: http://example.com/a for details",
		"Congress must act (Source: https://x/3).",
		"Plain prose with no links.",
	}
	for _, in := range inputs {
		once := Linkify(in)
		assert.Equal(t, once, Linkify(once), "input %q", in)
	}
}

func TestFormat(t *testing.T) {
	c := FromBlocks([]Block{TextBlock("Taxes should fall. Source: http://x/1")})
	assert.Equal(t, "Taxes should fall. [Taxes should fall](http://x/1)", Format(c))
	assert.Equal(t, Unavailable, Format(Unrecognized()))
}
