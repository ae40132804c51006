// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package arxiv

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/pdiddy/slr-engine/pkg/types"
)

// Page is one parsed response from the arXiv API.
type Page struct {
	Records []types.Record

	// TotalResults is the backend-reported result count for the query, or
	// len(Records) when the feed omits it.
	TotalResults int

	// TotalReported is false when TotalResults is the fallback.
	TotalReported bool
}

// FeedParser turns an arXiv Atom response body into a Page. GofeedParser and
// XMLParser produce identical output for the same input.
type FeedParser interface {
	Parse(r io.Reader) (Page, error)
}

// NewParser returns the parser registered under name: "gofeed" (the
// default) or "xml".
func NewParser(name string) (FeedParser, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "gofeed":
		return GofeedParser{}, nil
	case "xml":
		return XMLParser{}, nil
	default:
		return nil, fmt.Errorf("unknown feed parser %q (want gofeed or xml)", name)
	}
}

// rawEntry is the parser-independent view of one Atom entry.
type rawEntry struct {
	ID        string
	Title     string
	Summary   string
	Published string
	Updated   string
	Authors   []string
	Category  string
	Link      string
}

var spaceRe = regexp.MustCompile(`\s+`)

func collapse(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// record normalizes a raw entry into the uniform Record shape.
func (e rawEntry) record() types.Record {
	r := types.Record{
		Title:     collapse(e.Title),
		Summary:   collapse(e.Summary),
		Published: strings.TrimSpace(e.Published),
		Updated:   strings.TrimSpace(e.Updated),
		Authors:   []string{},
		Category:  strings.TrimSpace(e.Category),
		Link:      strings.TrimSpace(e.Link),
	}
	for _, a := range e.Authors {
		if a = collapse(a); a != "" {
			r.Authors = append(r.Authors, a)
		}
	}
	r.ID = recordID(strings.TrimSpace(e.ID), r.Title, r.Published)
	return r
}

// recordID prefers the arXiv identifier, then the raw entry id, then a
// deterministic placeholder derived from title and publication date.
func recordID(entryID, title, published string) string {
	if id := extractArxivID(entryID); id != "" {
		return id
	}
	if entryID != "" {
		return entryID
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("arxiv:"+title+"|"+published)).String()
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}

// buildPage assembles a Page from parsed entries. arXiv reports query
// errors as a single entry whose id points at /api/errors; that entry is
// returned as an error instead of a record.
func buildPage(entries []rawEntry, totalText string) (Page, error) {
	p := Page{Records: make([]types.Record, 0, len(entries))}
	for _, e := range entries {
		if strings.Contains(e.ID, "/api/errors") {
			return Page{}, fmt.Errorf("arXiv API error: %s", collapse(e.Summary))
		}
		p.Records = append(p.Records, e.record())
	}
	if n, err := strconv.Atoi(strings.TrimSpace(totalText)); err == nil && n >= 0 {
		p.TotalResults = n
		p.TotalReported = true
	} else {
		p.TotalResults = len(p.Records)
	}
	return p, nil
}
