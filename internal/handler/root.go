package handler

import (
	"net/http"

	"github.com/sakif/snippet-api/internal/links"
)

// APIRoot is the body of GET /.
type APIRoot struct {
	Snippets string `json:"snippets"`
	Users    string `json:"users"`
}

// HandleRoot lists the collection URLs. Links are always absolute, built
// from BaseURL or the request's host.
//
// HTTP: GET /
func (rep Representation) HandleRoot(w http.ResponseWriter, r *http.Request) {
	lb := links.FromRequest(r, rep.BaseURL)
	writeJSON(w, http.StatusOK, APIRoot{
		Snippets: lb.SnippetList(),
		Users:    lb.UserList(),
	})
}
