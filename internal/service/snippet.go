// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces permissions, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services take repository interfaces, not *sqlite.DB, so the tests in
// this package run against in-memory fakes.
//
// ORDER OF CHECKS FOR A SNIPPET MUTATION:
//
//	1. load the snippet            → apperror.ErrNotFound     (404)
//	2. ask the permission policy   → ErrUnauthorized (401) / ErrForbidden (403)
//	3. bind the payload            → apperror.ErrValidation   (400)
//	4. write
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/snippet-api/internal/apperror"
	"github.com/sakif/snippet-api/internal/codec"
	"github.com/sakif/snippet-api/internal/model"
	"github.com/sakif/snippet-api/internal/permission"
	"github.com/sakif/snippet-api/internal/repository"
)

// SnippetService handles business logic for code snippets.
type SnippetService struct {
	repo        repository.SnippetRepository
	mode        permission.Mode
	policy      permission.Policy
	highlighter codec.Highlighter
	logger      *slog.Logger
}

// NewSnippetService creates a SnippetService enforcing the given access mode.
func NewSnippetService(
	repo repository.SnippetRepository,
	mode permission.Mode,
	highlighter codec.Highlighter,
	logger *slog.Logger,
) *SnippetService {
	return &SnippetService{
		repo:        repo,
		mode:        mode,
		policy:      mode.Policy(),
		highlighter: highlighter,
		logger:      logger,
	}
}

// Mode reports the access mode this service enforces.
func (s *SnippetService) Mode() permission.Mode {
	return s.mode
}

// List returns every snippet, oldest first.
func (s *SnippetService) List(ctx context.Context, caller *model.Identity) ([]*model.Snippet, error) {
	if err := s.policy(caller, nil, permission.Read); err != nil {
		return nil, err
	}

	snippets, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list snippets", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing snippets: %w", err)
	}
	return snippets, nil
}

// Create validates payload and stores a new snippet. In owned mode the
// caller becomes its owner; in open mode it has none.
func (s *SnippetService) Create(ctx context.Context, caller *model.Identity, payload map[string]any) (*model.Snippet, error) {
	if err := s.policy(caller, nil, permission.Create); err != nil {
		return nil, err
	}

	snippet, err := codec.Bind(payload, nil, false)
	if err != nil {
		return nil, err
	}

	if s.mode.AssignsOwner() {
		if caller == nil {
			// the owned policy rejects anonymous creates above
			return nil, apperror.Unauthorized("Authentication credentials were not provided.")
		}
		ownerID := caller.UserID
		snippet.OwnerID = &ownerID
		snippet.OwnerName = caller.Username
	}

	if err := s.repo.Create(ctx, snippet); err != nil {
		s.logger.Error("failed to create snippet", slog.String("error", err.Error()))
		return nil, fmt.Errorf("creating snippet: %w", err)
	}

	s.logger.Info("snippet created",
		slog.Int64("id", snippet.ID),
		slog.String("owner", snippet.OwnerName),
	)
	return snippet, nil
}

// Get retrieves a snippet by id.
func (s *SnippetService) Get(ctx context.Context, caller *model.Identity, id int64) (*model.Snippet, error) {
	return s.load(ctx, caller, id, permission.Read)
}

// Update applies payload to the snippet. partial selects PATCH semantics
// (absent fields keep their value) over PUT (absent fields reset).
func (s *SnippetService) Update(ctx context.Context, caller *model.Identity, id int64, payload map[string]any, partial bool) (*model.Snippet, error) {
	existing, err := s.load(ctx, caller, id, permission.Update)
	if err != nil {
		return nil, err
	}

	updated, err := codec.Bind(payload, existing, partial)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, updated); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// deleted between load and write
			return nil, err
		}
		s.logger.Error("failed to update snippet",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating snippet: %w", err)
	}

	s.logger.Info("snippet updated", slog.Int64("id", id), slog.Bool("partial", partial))
	return updated, nil
}

// Delete removes the snippet.
func (s *SnippetService) Delete(ctx context.Context, caller *model.Identity, id int64) error {
	if _, err := s.load(ctx, caller, id, permission.Delete); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		s.logger.Error("failed to delete snippet",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("deleting snippet: %w", err)
	}

	s.logger.Info("snippet deleted", slog.Int64("id", id))
	return nil
}

// Highlight returns the snippet rendered as a standalone HTML document.
// The rendering is computed from the stored fields on every call.
func (s *SnippetService) Highlight(ctx context.Context, caller *model.Identity, id int64) (string, error) {
	snippet, err := s.load(ctx, caller, id, permission.Read)
	if err != nil {
		return "", err
	}

	html, err := codec.RenderHighlight(s.highlighter, snippet)
	if err != nil {
		s.logger.Error("failed to highlight snippet",
			slog.Int64("id", id),
			slog.String("language", snippet.Language),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("highlighting snippet %d: %w", id, err)
	}
	return html, nil
}

// load fetches the snippet and checks op against it.
func (s *SnippetService) load(ctx context.Context, caller *model.Identity, id int64, op permission.Operation) (*model.Snippet, error) {
	snippet, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy(caller, snippet, op); err != nil {
		s.logger.Debug("permission denied",
			slog.Int64("id", id),
			slog.String("op", op.String()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return snippet, nil
}
