package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/sakif/snippet-api/internal/apperror"
	"github.com/sakif/snippet-api/internal/model"
	"github.com/sakif/snippet-api/internal/repository"
)

// =========================================================================
// FAKE REPOSITORIES
// =========================================================================
//
// In-memory implementations of the repository interfaces. They store
// copies, so a service that mutates a record after saving it cannot
// accidentally change what the "database" holds.

type fakeSnippetRepo struct {
	snippets map[int64]*model.Snippet
	users    map[int64]string // owner id → username, for OwnerName
	nextID   int64

	// set to simulate a database failure
	listErr error
}

var _ repository.SnippetRepository = (*fakeSnippetRepo)(nil)

func newFakeSnippetRepo() *fakeSnippetRepo {
	return &fakeSnippetRepo{
		snippets: make(map[int64]*model.Snippet),
		users:    make(map[int64]string),
	}
}

func (f *fakeSnippetRepo) Create(_ context.Context, s *model.Snippet) error {
	f.nextID++
	s.ID = f.nextID
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	if s.OwnerID != nil {
		s.OwnerName = f.users[*s.OwnerID]
	}
	stored := *s
	f.snippets[s.ID] = &stored
	return nil
}

func (f *fakeSnippetRepo) GetByID(_ context.Context, id int64) (*model.Snippet, error) {
	s, ok := f.snippets[id]
	if !ok {
		return nil, apperror.NotFound("snippet", strconv.FormatInt(id, 10))
	}
	out := *s
	return &out, nil
}

func (f *fakeSnippetRepo) List(_ context.Context) ([]*model.Snippet, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*model.Snippet, 0, len(f.snippets))
	for _, s := range f.snippets {
		c := *s
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeSnippetRepo) Update(_ context.Context, s *model.Snippet) error {
	old, ok := f.snippets[s.ID]
	if !ok {
		return apperror.NotFound("snippet", strconv.FormatInt(s.ID, 10))
	}
	stored := *s
	stored.OwnerID = old.OwnerID // owner is immutable in the real store too
	stored.UpdatedAt = time.Now()
	f.snippets[s.ID] = &stored
	return nil
}

func (f *fakeSnippetRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.snippets[id]; !ok {
		return apperror.NotFound("snippet", strconv.FormatInt(id, 10))
	}
	delete(f.snippets, id)
	return nil
}

func (f *fakeSnippetRepo) ListIDsByOwner(_ context.Context, ownerID int64) ([]int64, error) {
	ids := make([]int64, 0)
	for id, s := range f.snippets {
		if s.OwnedBy(ownerID) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// put stores s as-is, for arranging test state.
func (f *fakeSnippetRepo) put(s model.Snippet) *model.Snippet {
	if s.ID > f.nextID {
		f.nextID = s.ID
	}
	f.snippets[s.ID] = &s
	out := s
	return &out
}

type fakeUserRepo struct {
	users  map[int64]*model.User
	nextID int64

	upsertErr error
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	for _, existing := range f.users {
		if existing.Username == u.Username {
			return apperror.Conflict("user", u.Username)
		}
	}
	f.nextID++
	u.ID = f.nextID
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	stored := *u
	f.users[u.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	out := *u
	return &out, nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeUserRepo) Upsert(ctx context.Context, u *model.User) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	for _, existing := range f.users {
		if existing.GitHubID != nil && u.GitHubID != nil && *existing.GitHubID == *u.GitHubID {
			existing.Username = u.Username
			existing.Email = u.Email
			existing.AvatarURL = u.AvatarURL
			*u = *existing
			return nil
		}
	}
	return f.Create(ctx, u)
}

func (f *fakeUserRepo) List(_ context.Context) ([]*model.User, error) {
	out := make([]*model.User, 0, len(f.users))
	for _, u := range f.users {
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// fakeHighlighter wraps the code in a marker instead of running chroma.
type fakeHighlighter struct {
	err error
}

func (h fakeHighlighter) Render(code, language, style string, linenos bool) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "<pre data-lang=\"" + language + "\" data-style=\"" + style + "\">" + code + "</pre>", nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
