package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/snippet-api/internal/codec"
	"github.com/sakif/snippet-api/internal/service"
)

// UserDirectory is the read-only view of users the API exposes.
// *service.UserService implements it.
type UserDirectory interface {
	List(ctx context.Context) ([]service.UserDetail, error)
	Get(ctx context.Context, id int64) (*service.UserDetail, error)
}

// UserHandler serves /users/. Users are created through the createuser
// command or GitHub login, never through this resource.
type UserHandler struct {
	users  UserDirectory
	rep    Representation
	logger *slog.Logger
}

func NewUserHandler(users UserDirectory, rep Representation, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, rep: rep, logger: logger}
}

func (h *UserHandler) Routes(r chi.Router) {
	r.MethodNotAllowed(methodNotAllowed)
	r.Get("/", h.HandleList)
	r.Route("/{id}", func(r chi.Router) {
		r.MethodNotAllowed(methodNotAllowed)
		r.Get("/", h.HandleGet)
	})
}

// HandleList returns every user with the snippets they own.
//
// HTTP: GET /users/
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	details, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	c := h.rep.codecFor(r)
	out := make([]codec.UserRepresentation, 0, len(details))
	for _, d := range details {
		out = append(out, c.ProjectUser(d.User, d.SnippetIDs))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGet returns one user.
//
// HTTP: GET /users/{id}/
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		notFound(w)
		return
	}

	d, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.rep.codecFor(r).ProjectUser(d.User, d.SnippetIDs))
}
