// Package codec converts between wire payloads and domain records.
//
// It is the one piece of the API with real rules in it:
//
//	payload (map[string]any) ──Bind──▶ *model.Snippet ──Project──▶ SnippetRepresentation
//
// Bind validates and coerces an inbound payload (see bind.go). Project
// renders a stored record for output, adding the owner's username and,
// when a LinkBuilder is configured, absolute links. RenderHighlight hands a
// record to the syntax highlighter.
//
// Nothing in this package touches the store or HTTP. Every function is a
// pure transformation, so handlers can call it from any goroutine.
package codec

import (
	"github.com/sakif/snippet-api/internal/model"
)

// LinkBuilder produces absolute URLs for resources. *links.Builder
// satisfies it.
type LinkBuilder interface {
	SnippetURL(id int64) string
	SnippetHighlightURL(id int64) string
	UserURL(id int64) string
}

// Highlighter renders code for display. *highlight.Chroma satisfies it.
type Highlighter interface {
	Render(code, language, style string, linenos bool) (string, error)
}

// SnippetRepresentation is the outbound shape of a snippet.
// URL and Highlight are only present in the link-bearing variant.
type SnippetRepresentation struct {
	URL       string  `json:"url,omitempty"`
	ID        int64   `json:"id"`
	Highlight string  `json:"highlight,omitempty"`
	Owner     *string `json:"owner"`
	Title     string  `json:"title"`
	Code      string  `json:"code"`
	Linenos   bool    `json:"linenos"`
	Language  string  `json:"language"`
	Style     string  `json:"style"`
}

// UserRepresentation is the outbound shape of a user. Snippets holds
// snippet ids ([]int64) in the plain variant and snippet URLs ([]string)
// in the link-bearing variant.
type UserRepresentation struct {
	URL      string `json:"url,omitempty"`
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Snippets any    `json:"snippets"`
}

// Codec projects records for output. The zero value (and New(nil))
// produces the plain variant with no links.
type Codec struct {
	links LinkBuilder
}

// New returns a Codec that adds links built by lb. Pass nil for the plain
// representation.
func New(lb LinkBuilder) *Codec {
	return &Codec{links: lb}
}

// Hyperlinked reports whether projections carry links.
func (c *Codec) Hyperlinked() bool {
	return c.links != nil
}

// Project renders s for output.
func (c *Codec) Project(s *model.Snippet) SnippetRepresentation {
	rep := SnippetRepresentation{
		ID:       s.ID,
		Title:    s.Title,
		Code:     s.Code,
		Linenos:  s.Linenos,
		Language: s.Language,
		Style:    s.Style,
	}
	if s.HasOwner() {
		owner := s.OwnerName
		rep.Owner = &owner
	}
	if c.links != nil {
		rep.URL = c.links.SnippetURL(s.ID)
		rep.Highlight = c.links.SnippetHighlightURL(s.ID)
	}
	return rep
}

// ProjectList renders each snippet in order. It never returns nil, so an
// empty list encodes as [] rather than null.
func (c *Codec) ProjectList(snippets []*model.Snippet) []SnippetRepresentation {
	out := make([]SnippetRepresentation, 0, len(snippets))
	for _, s := range snippets {
		out = append(out, c.Project(s))
	}
	return out
}

// ProjectUser renders u together with the ids of the snippets it owns.
func (c *Codec) ProjectUser(u *model.User, snippetIDs []int64) UserRepresentation {
	rep := UserRepresentation{
		ID:       u.ID,
		Username: u.Username,
	}

	if c.links == nil {
		ids := make([]int64, len(snippetIDs))
		copy(ids, snippetIDs)
		rep.Snippets = ids
		return rep
	}

	rep.URL = c.links.UserURL(u.ID)
	urls := make([]string, 0, len(snippetIDs))
	for _, id := range snippetIDs {
		urls = append(urls, c.links.SnippetURL(id))
	}
	rep.Snippets = urls
	return rep
}

// RenderHighlight returns h's rendering of s unchanged.
func RenderHighlight(h Highlighter, s *model.Snippet) (string, error) {
	return h.Render(s.Code, s.Language, s.Style, s.Linenos)
}
