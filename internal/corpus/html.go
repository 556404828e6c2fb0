package corpus

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText strips markup from editorial bodies that were exported as HTML.
// Text that does not look like HTML is returned as is.
func PlainText(s string) string {
	if !looksLikeHTML(s) {
		return s
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	doc.Find("script, style, noscript, figure, aside").Remove()

	var paragraphs []string
	doc.Find("p, h1, h2, h3, h4, li, blockquote").Each(func(_ int, sel *goquery.Selection) {
		if sel.ParentsFiltered("p, li, blockquote").Length() > 0 {
			return
		}
		if text := collapseSpace(sel.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	if len(paragraphs) == 0 {
		return collapseSpace(doc.Text())
	}
	return strings.Join(paragraphs, "\n\n")
}

func looksLikeHTML(s string) bool {
	lower := strings.ToLower(s)
	for _, tag := range []string{"<p", "<div", "<br", "<html", "<body", "<span", "<h2"} {
		if strings.Contains(lower, tag) {
			return true
		}
	}
	return false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
