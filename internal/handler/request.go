package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/snippet-api/internal/codec"
	"github.com/sakif/snippet-api/internal/links"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 1 << 20

var (
	errNotObject  = errors.New("JSON body must be an object.")
	errTrailing   = errors.New("JSON body must contain a single object.")
	errBodyTooBig = errors.New("Request body too large.")
)

// decodePayload reads the request body as a JSON object. An empty body is
// an empty object, so a create without a body reports the missing required
// fields rather than a parse error.
//
// The payload stays a map[string]any: the codec needs to tell an absent
// field from a null or empty one, which decoding into a struct would lose.
func decodePayload(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(body)

	var raw any
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, errBodyTooBig
		}
		return nil, err
	}
	if dec.More() {
		return nil, errTrailing
	}

	payload, ok := raw.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return payload, nil
}

// pathID parses the {id} URL parameter. Only positive integers are ids.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Representation decides how records are projected for one request.
type Representation struct {
	// Hyperlinked adds url/highlight links and renders user snippets as URLs.
	Hyperlinked bool
	// BaseURL overrides the scheme://host links are built against. Empty
	// means use the request's own.
	BaseURL string
}

// codecFor returns the codec for r. The nil passed for the plain variant
// is an untyped nil: a nil *links.Builder stored in the interface would
// count as a link builder.
func (rep Representation) codecFor(r *http.Request) *codec.Codec {
	if !rep.Hyperlinked {
		return codec.New(nil)
	}
	return codec.New(links.FromRequest(r, rep.BaseURL))
}
