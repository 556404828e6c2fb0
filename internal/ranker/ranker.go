// Package ranker selects the editorials most relevant to a question.
//
// The default scoring is bag-of-words overlap: the number of distinct query
// tokens that also occur in the document's title or body. It ignores term
// frequency and document length, so it works as a coarse recall filter
// rather than a ranking model. Equal scores keep corpus order, which makes
// repeated queries against an unchanged corpus return identical shortlists.
package ranker

import (
	"regexp"
	"sort"
	"strings"

	"github.com/knoguchi/editorialbot/internal/corpus"
)

// wordPattern matches maximal runs of letters, digits and underscore.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Candidate is a document paired with its overlap score.
type Candidate struct {
	Document corpus.Document
	Score    int
}

// Tokenize lower-cases text and returns the set of its word tokens.
func Tokenize(text string) map[string]struct{} {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// overlap counts members of a that are also in b.
func overlap(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}

// Score returns every document with its overlap score against query, sorted
// by score descending and corpus order ascending.
func Score(query string, docs []corpus.Document) []Candidate {
	queryTokens := Tokenize(query)

	candidates := make([]Candidate, len(docs))
	for i, doc := range docs {
		score := 0
		if len(queryTokens) > 0 {
			score = overlap(queryTokens, Tokenize(doc.Text()))
		}
		candidates[i] = Candidate{Document: doc, Score: score}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

// Rank returns up to topK documents from docs, best first. It never fails:
// an empty corpus yields an empty shortlist and a query without tokens
// yields the first topK documents in their original order.
func Rank(query string, docs []corpus.Document, topK int) []corpus.Document {
	if topK <= 0 || len(docs) == 0 {
		return []corpus.Document{}
	}

	candidates := Score(query, docs)
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	shortlist := make([]corpus.Document, len(candidates))
	for i, c := range candidates {
		shortlist[i] = c.Document
	}
	return shortlist
}
