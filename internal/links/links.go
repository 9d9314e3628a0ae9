// Package links builds absolute resource URLs for the link-bearing
// representations (the "url", "highlight" and user "snippets" fields).
//
// URLs are produced by expanding RFC 6570 URI templates. The base
// ("https://api.example.com") is either configured or taken from the
// incoming request, so the same stored snippet renders with whatever host
// the client used to reach us.
package links

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/jtacoma/uritemplates"
)

// Templates used for every link. {+base} is a reserved expansion so the
// scheme separator and slashes in the base survive unescaped.
const (
	SnippetListTemplate      = "{+base}/snippets/"
	SnippetDetailTemplate    = "{+base}/snippets/{id}/"
	SnippetHighlightTemplate = "{+base}/snippets/{id}/highlight/"
	UserListTemplate         = "{+base}/users/"
	UserDetailTemplate       = "{+base}/users/{id}/"
)

var (
	snippetList      = mustParse(SnippetListTemplate)
	snippetDetail    = mustParse(SnippetDetailTemplate)
	snippetHighlight = mustParse(SnippetHighlightTemplate)
	userList         = mustParse(UserListTemplate)
	userDetail       = mustParse(UserDetailTemplate)
)

func mustParse(template string) *uritemplates.UriTemplate {
	tmpl, err := uritemplates.Parse(template)
	if err != nil {
		panic(fmt.Sprintf("links: parsing %q: %v", template, err))
	}
	return tmpl
}

// Builder expands link templates against a fixed base URL.
// The zero value is not usable; call New or FromRequest.
type Builder struct {
	base string
}

// New returns a Builder for base. A trailing slash on base is dropped so
// templates never produce "//".
func New(base string) *Builder {
	return &Builder{base: strings.TrimRight(base, "/")}
}

// FromRequest returns a Builder whose base is override when set, and
// otherwise the scheme and host the request arrived on. X-Forwarded-Proto
// is honoured for deployments behind a TLS-terminating proxy.
func FromRequest(r *http.Request, override string) *Builder {
	if override != "" {
		return New(override)
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	return New(fmt.Sprintf("%s://%s", scheme, r.Host))
}

// Base returns the base URL links are built against.
func (b *Builder) Base() string {
	return b.base
}

func (b *Builder) SnippetList() string {
	return b.expand(snippetList, nil)
}

func (b *Builder) SnippetURL(id int64) string {
	return b.expand(snippetDetail, map[string]interface{}{"id": strconv.FormatInt(id, 10)})
}

func (b *Builder) SnippetHighlightURL(id int64) string {
	return b.expand(snippetHighlight, map[string]interface{}{"id": strconv.FormatInt(id, 10)})
}

func (b *Builder) UserList() string {
	return b.expand(userList, nil)
}

func (b *Builder) UserURL(id int64) string {
	return b.expand(userDetail, map[string]interface{}{"id": strconv.FormatInt(id, 10)})
}

// expand fills in the template. The templates are package constants that
// only take the base and a decimal id, so expansion cannot fail at runtime;
// an error here is a programming mistake.
func (b *Builder) expand(tmpl *uritemplates.UriTemplate, vars map[string]interface{}) string {
	if vars == nil {
		vars = make(map[string]interface{}, 1)
	}
	vars["base"] = b.base
	out, err := tmpl.Expand(vars)
	if err != nil {
		panic(fmt.Sprintf("links: expanding %v: %v", vars, err))
	}
	return out
}
