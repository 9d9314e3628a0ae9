package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippet-api/internal/apperror"
	"github.com/sakif/snippet-api/internal/model"
	"github.com/sakif/snippet-api/internal/permission"
)

var (
	alice = &model.Identity{UserID: 1, Username: "alice"}
	bob   = &model.Identity{UserID: 2, Username: "bob"}
)

func newTestSnippetService(t *testing.T, mode permission.Mode) (*SnippetService, *fakeSnippetRepo) {
	t.Helper()
	repo := newFakeSnippetRepo()
	repo.users[alice.UserID] = alice.Username
	repo.users[bob.UserID] = bob.Username
	return NewSnippetService(repo, mode, fakeHighlighter{}, discardLogger()), repo
}

// aliceSnippet stores a snippet owned by alice and returns it.
func aliceSnippet(repo *fakeSnippetRepo) *model.Snippet {
	owner := alice.UserID
	return repo.put(model.Snippet{
		ID:        10,
		Title:     "mine",
		Code:      "print('alice')",
		Language:  "python",
		Style:     "friendly",
		OwnerID:   &owner,
		OwnerName: alice.Username,
	})
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreate_OwnedModeAssignsCaller(t *testing.T) {
	svc, repo := newTestSnippetService(t, permission.ModeOwned)

	got, err := svc.Create(context.Background(), alice, map[string]any{"code": "x = 1"})
	require.NoError(t, err)

	require.NotNil(t, got.OwnerID)
	assert.Equal(t, alice.UserID, *got.OwnerID)
	assert.Equal(t, "alice", got.OwnerName)
	assert.NotZero(t, got.ID)

	stored, err := repo.GetByID(context.Background(), got.ID)
	require.NoError(t, err)
	assert.Equal(t, "python", stored.Language)
	assert.Equal(t, "friendly", stored.Style)
}

func TestCreate_OwnedModeRejectsAnonymous(t *testing.T) {
	svc, repo := newTestSnippetService(t, permission.ModeOwned)

	_, err := svc.Create(context.Background(), nil, map[string]any{"code": "x"})

	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	assert.Empty(t, repo.snippets)
}

func TestCreate_PermissionCheckedBeforeValidation(t *testing.T) {
	svc, _ := newTestSnippetService(t, permission.ModeOwned)

	// invalid payload AND anonymous caller: the caller problem wins
	_, err := svc.Create(context.Background(), nil, map[string]any{"language": "klingon"})

	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	assert.NotErrorIs(t, err, apperror.ErrValidation)
}

func TestCreate_OpenModeLeavesOwnerNull(t *testing.T) {
	svc, _ := newTestSnippetService(t, permission.ModeOpen)

	for _, caller := range []*model.Identity{nil, alice} {
		got, err := svc.Create(context.Background(), caller, map[string]any{"code": "x"})
		require.NoError(t, err)
		assert.Nil(t, got.OwnerID)
		assert.Empty(t, got.OwnerName)
	}
}

func TestCreate_PayloadOwnerIsIgnored(t *testing.T) {
	svc, _ := newTestSnippetService(t, permission.ModeOwned)

	got, err := svc.Create(context.Background(), alice, map[string]any{"code": "x", "owner": "bob"})
	require.NoError(t, err)
	assert.Equal(t, "alice", got.OwnerName)
}

func TestCreate_ValidationErrorStoresNothing(t *testing.T) {
	svc, repo := newTestSnippetService(t, permission.ModeOwned)

	_, err := svc.Create(context.Background(), alice, map[string]any{"title": "no code"})

	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.Empty(t, repo.snippets)
}

// =========================================================================
// READ TESTS
// =========================================================================

func TestList_AnonymousAllowed(t *testing.T) {
	svc, repo := newTestSnippetService(t, permission.ModeOwned)
	aliceSnippet(repo)

	got, err := svc.List(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestList_RepositoryError(t *testing.T) {
	svc, repo := newTestSnippetService(t, permission.ModeOwned)
	repo.listErr = errors.New("disk on fire")

	_, err := svc.List(context.Background(), nil)
	assert.ErrorContains(t, err, "disk on fire")
}

func TestGet_NotFound(t *testing.T) {
	svc, _ := newTestSnippetService(t, permission.ModeOwned)

	_, err := svc.Get(context.Background(), nil, 404)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestUpdate_Permissions(t *testing.T) {
	tests := []struct {
		name    string
		mode    permission.Mode
		caller  *model.Identity
		wantErr error
	}{
		{"owner", permission.ModeOwned, alice, nil},
		{"stranger", permission.ModeOwned, bob, apperror.ErrForbidden},
		{"anonymous", permission.ModeOwned, nil, apperror.ErrUnauthorized},
		{"anonymous in open mode", permission.ModeOpen, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestSnippetService(t, tt.mode)
			s := aliceSnippet(repo)

			_, err := svc.Update(context.Background(), tt.caller, s.ID, map[string]any{"title": "changed"}, true)

			stored, _ := repo.GetByID(context.Background(), s.ID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, "mine", stored.Title)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "changed", stored.Title)
		})
	}
}

func TestUpdate_NotFoundBeforePermission(t *testing.T) {
	svc, _ := newTestSnippetService(t, permission.ModeOwned)

	_, err := svc.Update(context.Background(), nil, 999, map[string]any{}, true)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdate_PermissionBeforeValidation(t *testing.T) {
	svc, repo := newTestSnippetService(t, permission.ModeOwned)
	s := aliceSnippet(repo)

	_, err := svc.Update(context.Background(), bob, s.ID, map[string]any{"code": ""}, false)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestUpdate_PartialKeepsOtherFields(t *testing.T) {
	svc, repo := newTestSnippetService(t, permission.ModeOwned)
	s := aliceSnippet(repo)

	got, err := svc.Update(context.Background(), alice, s.ID, map[string]any{"linenos": true}, true)
	require.NoError(t, err)

	assert.True(t, got.Linenos)
	assert.Equal(t, "mine", got.Title)
	assert.Equal(t, "print('alice')", got.Code)
	assert.Equal(t, "alice", got.OwnerName)
}

func TestUpdate_FullRequiresCode(t *testing.T) {
	svc, repo := newTestSnippetService(t, permission.ModeOwned)
	s := aliceSnippet(repo)

	_, err := svc.Update(context.Background(), alice, s.ID, map[string]any{"title": "t"}, false)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "code")
}

func TestUpdate_InvalidChoiceKeepsStoredRecord(t *testing.T) {
	svc, repo := newTestSnippetService(t, permission.ModeOwned)
	s := aliceSnippet(repo)

	_, err := svc.Update(context.Background(), alice, s.ID, map[string]any{"style": "nope"}, true)
	require.ErrorIs(t, err, apperror.ErrInvalidChoice)

	stored, _ := repo.GetByID(context.Background(), s.ID)
	assert.Equal(t, "friendly", stored.Style)
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestDelete_Owner(t *testing.T) {
	svc, repo := newTestSnippetService(t, permission.ModeOwned)
	s := aliceSnippet(repo)

	require.NoError(t, svc.Delete(context.Background(), alice, s.ID))

	_, err := svc.Get(context.Background(), nil, s.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDelete_Stranger(t *testing.T) {
	svc, repo := newTestSnippetService(t, permission.ModeOwned)
	s := aliceSnippet(repo)

	err := svc.Delete(context.Background(), bob, s.ID)

	assert.ErrorIs(t, err, apperror.ErrForbidden)
	assert.Contains(t, repo.snippets, s.ID)
}

func TestDelete_NotFound(t *testing.T) {
	svc, _ := newTestSnippetService(t, permission.ModeOwned)

	err := svc.Delete(context.Background(), alice, 31337)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// =========================================================================
// HIGHLIGHT TESTS
// =========================================================================

func TestHighlight_UsesCurrentStoredFields(t *testing.T) {
	svc, repo := newTestSnippetService(t, permission.ModeOwned)
	s := aliceSnippet(repo)

	before, err := svc.Highlight(context.Background(), nil, s.ID)
	require.NoError(t, err)
	assert.Contains(t, before, `data-style="friendly"`)

	_, err = svc.Update(context.Background(), alice, s.ID, map[string]any{"style": "monokai"}, true)
	require.NoError(t, err)

	after, err := svc.Highlight(context.Background(), nil, s.ID)
	require.NoError(t, err)
	assert.Contains(t, after, `data-style="monokai"`)
}

func TestHighlight_RendererFailure(t *testing.T) {
	repo := newFakeSnippetRepo()
	svc := NewSnippetService(repo, permission.ModeOpen, fakeHighlighter{err: errors.New("lexer exploded")}, discardLogger())
	s := repo.put(model.Snippet{ID: 1, Code: "x", Language: "python", Style: "friendly"})

	_, err := svc.Highlight(context.Background(), nil, s.ID)
	assert.ErrorContains(t, err, "lexer exploded")
}

func TestHighlight_NotFound(t *testing.T) {
	svc, _ := newTestSnippetService(t, permission.ModeOpen)

	_, err := svc.Highlight(context.Background(), nil, 5)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
