package corpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// ErrInvalidCorpus is returned when corpus data is not a recognised JSON shape.
var ErrInvalidCorpus = errors.New("invalid corpus data")

// Parse decodes editorial records from JSON. It accepts either a top-level
// array of records or an object with an "editorials" array. Records without
// a title or text are dropped. HTML bodies are reduced to plain text.
func Parse(data []byte) ([]Document, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidCorpus)
	}

	root := gjson.ParseBytes(data)
	list := root
	if !root.IsArray() {
		list = root.Get("editorials")
		if !list.IsArray() {
			return nil, fmt.Errorf("%w: expected an array or an \"editorials\" field", ErrInvalidCorpus)
		}
	}

	docs := make([]Document, 0, len(list.Array()))
	list.ForEach(func(_, rec gjson.Result) bool {
		if !rec.IsObject() {
			return true
		}
		doc := Document{
			Title:    strings.TrimSpace(rec.Get("title").String()),
			FullText: strings.TrimSpace(rec.Get("full_text").String()),
			URL:      strings.TrimSpace(rec.Get("url").String()),
		}
		// Older exports used "content" for the body.
		if doc.FullText == "" {
			doc.FullText = strings.TrimSpace(rec.Get("content").String())
		}
		if doc.Title == "" && doc.FullText == "" {
			return true
		}
		doc.FullText = PlainText(doc.FullText)
		docs = append(docs, doc)
		return true
	})

	return docs, nil
}

// FileSource reads a JSON corpus from disk.
type FileSource struct {
	Path string
}

// Name implements Source.
func (s FileSource) Name() string { return "file:" + s.Path }

// Load implements Source.
func (s FileSource) Load(_ context.Context) ([]Document, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus file: %w", err)
	}
	return Parse(data)
}

// HTTPSource fetches a JSON corpus from a URL.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// NewHTTPSource creates an HTTPSource with a bounded client timeout.
func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{
		URL:    url,
		Client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Name implements Source.
func (s *HTTPSource) Name() string { return s.URL }

// Load implements Source.
func (s *HTTPSource) Load(ctx context.Context) ([]Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch corpus: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("corpus fetch failed (status %d): %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus body: %w", err)
	}
	return Parse(data)
}
