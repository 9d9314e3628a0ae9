package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/snippet-api/internal/auth"
	"github.com/sakif/snippet-api/internal/model"
)

// CAPABILITIES:
// The snippet endpoints are built from six small interfaces, one per
// operation. SnippetHandler registers a route only for the capabilities it
// was given, so a read-only deployment is just a SnippetCapabilities with
// Lister, Retriever and Highlighter set. *service.SnippetService implements
// all six.

type Lister interface {
	List(ctx context.Context, caller *model.Identity) ([]*model.Snippet, error)
}

type Creator interface {
	Create(ctx context.Context, caller *model.Identity, payload map[string]any) (*model.Snippet, error)
}

type Retriever interface {
	Get(ctx context.Context, caller *model.Identity, id int64) (*model.Snippet, error)
}

type Updater interface {
	Update(ctx context.Context, caller *model.Identity, id int64, payload map[string]any, partial bool) (*model.Snippet, error)
}

type Deleter interface {
	Delete(ctx context.Context, caller *model.Identity, id int64) error
}

type Highlighter interface {
	Highlight(ctx context.Context, caller *model.Identity, id int64) (string, error)
}

// SnippetCapabilities lists what the snippet endpoints can do. Nil fields
// are not routed.
type SnippetCapabilities struct {
	Lister      Lister
	Creator     Creator
	Retriever   Retriever
	Updater     Updater
	Deleter     Deleter
	Highlighter Highlighter
}

// FullSnippetBackend is satisfied by a type offering every capability.
type FullSnippetBackend interface {
	Lister
	Creator
	Retriever
	Updater
	Deleter
	Highlighter
}

// AllCapabilities fills every capability from one backend.
func AllCapabilities(b FullSnippetBackend) SnippetCapabilities {
	return SnippetCapabilities{
		Lister:      b,
		Creator:     b,
		Retriever:   b,
		Updater:     b,
		Deleter:     b,
		Highlighter: b,
	}
}

// SnippetHandler serves /snippets/.
type SnippetHandler struct {
	caps   SnippetCapabilities
	rep    Representation
	logger *slog.Logger
}

func NewSnippetHandler(caps SnippetCapabilities, rep Representation, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{caps: caps, rep: rep, logger: logger}
}

// Routes mounts the handler's endpoints on r:
//
//	GET    /                 list
//	POST   /                 create
//	GET    /{id}/            retrieve
//	PUT    /{id}/            full update
//	PATCH  /{id}/            partial update
//	DELETE /{id}/            delete
//	GET    /{id}/highlight/  highlighted HTML
//
// Paths are registered without trailing slashes; the router strips them.
func (h *SnippetHandler) Routes(r chi.Router) {
	r.MethodNotAllowed(methodNotAllowed)

	if h.caps.Lister != nil {
		r.Get("/", h.HandleList)
	}
	if h.caps.Creator != nil {
		r.Post("/", h.HandleCreate)
	}
	r.Route("/{id}", func(r chi.Router) {
		r.MethodNotAllowed(methodNotAllowed)
		if h.caps.Retriever != nil {
			r.Get("/", h.HandleGet)
		}
		if h.caps.Updater != nil {
			r.Put("/", h.HandleUpdate)
			r.Patch("/", h.HandlePartialUpdate)
		}
		if h.caps.Deleter != nil {
			r.Delete("/", h.HandleDelete)
		}
		if h.caps.Highlighter != nil {
			r.Get("/highlight", h.HandleHighlight)
		}
	})
}

// HandleList returns every snippet.
//
// HTTP: GET /snippets/
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	snippets, err := h.caps.Lister.List(r.Context(), auth.IdentityFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.rep.codecFor(r).ProjectList(snippets))
}

// HandleCreate stores a new snippet.
//
// HTTP: POST /snippets/
// REQUEST BODY: {"code": "print('hi')", "title": "", "linenos": false, "language": "python", "style": "friendly"}
// Only code is required.
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	payload, err := decodePayload(w, r)
	if err != nil {
		h.logger.Warn("invalid snippet JSON", slog.String("error", err.Error()))
		writeParseError(w, err.Error())
		return
	}

	snippet, err := h.caps.Creator.Create(r.Context(), auth.IdentityFromContext(r.Context()), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	c := h.rep.codecFor(r)
	rep := c.Project(snippet)
	if c.Hyperlinked() {
		w.Header().Set("Location", rep.URL)
	}
	writeJSON(w, http.StatusCreated, rep)
}

// HandleGet returns one snippet.
//
// HTTP: GET /snippets/{id}/
func (h *SnippetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		notFound(w)
		return
	}

	snippet, err := h.caps.Retriever.Get(r.Context(), auth.IdentityFromContext(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.rep.codecFor(r).Project(snippet))
}

// HandleUpdate replaces a snippet; absent fields reset to their defaults.
//
// HTTP: PUT /snippets/{id}/
func (h *SnippetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

// HandlePartialUpdate changes only the fields present in the body.
//
// HTTP: PATCH /snippets/{id}/
func (h *SnippetHandler) HandlePartialUpdate(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

func (h *SnippetHandler) update(w http.ResponseWriter, r *http.Request, partial bool) {
	id, ok := pathID(r)
	if !ok {
		notFound(w)
		return
	}

	payload, err := decodePayload(w, r)
	if err != nil {
		h.logger.Warn("invalid snippet JSON", slog.Int64("id", id), slog.String("error", err.Error()))
		writeParseError(w, err.Error())
		return
	}

	snippet, err := h.caps.Updater.Update(r.Context(), auth.IdentityFromContext(r.Context()), id, payload, partial)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.rep.codecFor(r).Project(snippet))
}

// HandleDelete removes a snippet.
//
// HTTP: DELETE /snippets/{id}/ → 204 No Content
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		notFound(w)
		return
	}

	if err := h.caps.Deleter.Delete(r.Context(), auth.IdentityFromContext(r.Context()), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleHighlight returns the snippet as a standalone highlighted HTML page.
//
// HTTP: GET /snippets/{id}/highlight/
func (h *SnippetHandler) HandleHighlight(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		notFound(w)
		return
	}

	html, err := h.caps.Highlighter.Highlight(r.Context(), auth.IdentityFromContext(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(html)); err != nil {
		h.logger.Error("failed to write highlight", slog.Int64("id", id), slog.String("error", err.Error()))
	}
}
