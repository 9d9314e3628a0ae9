package repository

import (
	"context"

	"github.com/sakif/snippet-api/internal/model"
)

type SnippetRepository interface {
	Create(ctx context.Context, snippet *model.Snippet) error
	GetByID(ctx context.Context, id int64) (*model.Snippet, error)
	List(ctx context.Context) ([]*model.Snippet, error)
	Update(ctx context.Context, snippet *model.Snippet) error
	Delete(ctx context.Context, id int64) error
	// ListIDsByOwner returns the ids of every snippet owned by ownerID, ascending.
	ListIDsByOwner(ctx context.Context, ownerID int64) ([]int64, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// Upsert inserts or refreshes a GitHub user, keyed by GitHubID.
	Upsert(ctx context.Context, user *model.User) error
	List(ctx context.Context) ([]*model.User, error)
}
