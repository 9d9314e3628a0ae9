package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/snippet-api/internal/model"
	"github.com/sakif/snippet-api/internal/repository"
)

// UserDetail is a user together with the ids of the snippets they own.
type UserDetail struct {
	User       *model.User
	SnippetIDs []int64
}

// UserService serves the read-only user endpoints.
type UserService struct {
	users    repository.UserRepository
	snippets repository.SnippetRepository
	logger   *slog.Logger
}

func NewUserService(users repository.UserRepository, snippets repository.SnippetRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, snippets: snippets, logger: logger}
}

// List returns every user with their snippet ids, in user id order.
func (s *UserService) List(ctx context.Context) ([]UserDetail, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		s.logger.Error("failed to list users", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing users: %w", err)
	}

	out := make([]UserDetail, 0, len(users))
	for _, u := range users {
		ids, err := s.snippets.ListIDsByOwner(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("listing snippets of user %d: %w", u.ID, err)
		}
		out = append(out, UserDetail{User: u, SnippetIDs: ids})
	}
	return out, nil
}

// Get returns one user with their snippet ids.
func (s *UserService) Get(ctx context.Context, id int64) (*UserDetail, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	ids, err := s.snippets.ListIDsByOwner(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("listing snippets of user %d: %w", u.ID, err)
	}
	return &UserDetail{User: u, SnippetIDs: ids}, nil
}
