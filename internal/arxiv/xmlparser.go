// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package arxiv

import (
	"encoding/xml"
	"fmt"
	"io"
)

// XMLParser walks the Atom feed with encoding/xml. It needs no dependency
// beyond the standard library.
type XMLParser struct{}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	TotalResults string       `xml:"totalResults"`
	Entries      []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID              string        `xml:"id"`
	Title           string        `xml:"title"`
	Summary         string        `xml:"summary"`
	Published       string        `xml:"published"`
	Updated         string        `xml:"updated"`
	Authors         []arxivAuthor `xml:"author"`
	PrimaryCategory struct {
		Term string `xml:"term,attr"`
	} `xml:"primary_category"`
	Links []arxivLink `xml:"link"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

// Parse decodes an arXiv Atom response.
func (XMLParser) Parse(r io.Reader) (Page, error) {
	var feed arxivFeed
	if err := xml.NewDecoder(r).Decode(&feed); err != nil {
		return Page{}, fmt.Errorf("parsing arXiv response: %w", err)
	}

	entries := make([]rawEntry, 0, len(feed.Entries))
	for _, fe := range feed.Entries {
		e := rawEntry{
			ID:        fe.ID,
			Title:     fe.Title,
			Summary:   fe.Summary,
			Published: fe.Published,
			Updated:   fe.Updated,
			Category:  fe.PrimaryCategory.Term,
		}
		for _, a := range fe.Authors {
			e.Authors = append(e.Authors, a.Name)
		}
		for _, l := range fe.Links {
			if l.Rel == "alternate" {
				e.Link = l.Href
				break
			}
		}
		entries = append(entries, e)
	}
	return buildPage(entries, feed.TotalResults)
}
