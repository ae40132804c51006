// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package arxiv

import (
	"fmt"
	"io"

	"github.com/mmcdole/gofeed/atom"
	ext "github.com/mmcdole/gofeed/extensions"
)

// GofeedParser parses the feed with the gofeed Atom parser. arXiv-specific
// elements (opensearch:totalResults, arxiv:primary_category) arrive as
// extensions and are looked up by local name under any prefix.
type GofeedParser struct{}

// Parse decodes an arXiv Atom response.
func (GofeedParser) Parse(r io.Reader) (Page, error) {
	fp := &atom.Parser{}
	feed, err := fp.Parse(r)
	if err != nil {
		return Page{}, fmt.Errorf("parsing arXiv response: %w", err)
	}

	total := ""
	if x, ok := findExtension(feed.Extensions, "totalResults"); ok {
		total = x.Value
	}

	entries := make([]rawEntry, 0, len(feed.Entries))
	for _, fe := range feed.Entries {
		if fe == nil {
			continue
		}
		e := rawEntry{
			ID:        fe.ID,
			Title:     fe.Title,
			Summary:   fe.Summary,
			Published: fe.Published,
			Updated:   fe.Updated,
		}
		for _, a := range fe.Authors {
			if a != nil {
				e.Authors = append(e.Authors, a.Name)
			}
		}
		for _, l := range fe.Links {
			if l != nil && l.Rel == "alternate" {
				e.Link = l.Href
				break
			}
		}
		if x, ok := findExtension(fe.Extensions, "primary_category"); ok {
			e.Category = x.Attrs["term"]
		}
		entries = append(entries, e)
	}
	return buildPage(entries, total)
}

func findExtension(exts ext.Extensions, name string) (ext.Extension, bool) {
	for _, byName := range exts {
		if list := byName[name]; len(list) > 0 {
			return list[0], true
		}
	}
	return ext.Extension{}, false
}
