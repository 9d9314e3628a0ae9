package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sakif/snippet-api/internal/apperror"
	"github.com/sakif/snippet-api/internal/model"
	"github.com/sakif/snippet-api/internal/repository"
)

var _ repository.SnippetRepository = (*DB)(nil)

// selectSnippet reads a snippet together with its owner's username.
// LEFT JOIN because ownerless snippets (open access mode) have owner_id NULL.
const selectSnippet = `
	SELECT s.id, s.title, s.code, s.linenos, s.language, s.style,
	       s.owner_id, u.username, s.created_at, s.updated_at
	FROM snippets s
	LEFT JOIN users u ON u.id = s.owner_id`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnippet(row rowScanner) (*model.Snippet, error) {
	var (
		s         model.Snippet
		ownerID   sql.NullInt64
		ownerName sql.NullString
	)
	if err := row.Scan(
		&s.ID, &s.Title, &s.Code, &s.Linenos, &s.Language, &s.Style,
		&ownerID, &ownerName, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if ownerID.Valid {
		id := ownerID.Int64
		s.OwnerID = &id
		s.OwnerName = ownerName.String
	}
	return &s, nil
}

// Create inserts a new snippet. On success the snippet carries its
// database-assigned ID and timestamps.
func (db *DB) Create(ctx context.Context, snippet *model.Snippet) error {
	now := time.Now().UTC()

	var ownerID sql.NullInt64
	if snippet.OwnerID != nil {
		ownerID = sql.NullInt64{Int64: *snippet.OwnerID, Valid: true}
	}

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO snippets (title, code, linenos, language, style, owner_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snippet.Title,
		snippet.Code,
		snippet.Linenos,
		snippet.Language,
		snippet.Style,
		ownerID,
		now,
		now,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("user", strconv.FormatInt(ownerID.Int64, 10))
		}
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading snippet id: %w", err)
	}

	snippet.ID = id
	snippet.CreatedAt = now
	snippet.UpdatedAt = now

	if snippet.OwnerID != nil && snippet.OwnerName == "" {
		owner, err := db.users.GetByID(ctx, *snippet.OwnerID)
		if err != nil {
			return fmt.Errorf("sqlite: resolving snippet owner: %w", err)
		}
		snippet.OwnerName = owner.Username
	}
	return nil
}

// GetByID retrieves a single snippet. Returns apperror.ErrNotFound when no
// snippet has that id.
func (db *DB) GetByID(ctx context.Context, id int64) (*model.Snippet, error) {
	s, err := scanSnippet(db.conn.QueryRowContext(ctx, selectSnippet+` WHERE s.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("snippet", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("sqlite: getting snippet %d: %w", id, err)
	}
	return s, nil
}

// List returns every snippet in ascending id order, which is also creation order.
func (db *DB) List(ctx context.Context) ([]*model.Snippet, error) {
	rows, err := db.conn.QueryContext(ctx, selectSnippet+` ORDER BY s.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing snippets: %w", err)
	}
	defer rows.Close()

	snippets := make([]*model.Snippet, 0)
	for rows.Next() {
		s, err := scanSnippet(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning snippet row: %w", err)
		}
		snippets = append(snippets, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snippets: %w", err)
	}
	return snippets, nil
}

// Update overwrites the editable fields of an existing snippet.
// id, owner and created_at are immutable and never written here.
func (db *DB) Update(ctx context.Context, snippet *model.Snippet) error {
	now := time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE snippets
		 SET title = ?, code = ?, linenos = ?, language = ?, style = ?, updated_at = ?
		 WHERE id = ?`,
		snippet.Title,
		snippet.Code,
		snippet.Linenos,
		snippet.Language,
		snippet.Style,
		now,
		snippet.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating snippet %d: %w", snippet.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("snippet", strconv.FormatInt(snippet.ID, 10))
	}

	snippet.UpdatedAt = now
	return nil
}

// Delete removes a snippet by id.
func (db *DB) Delete(ctx context.Context, id int64) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM snippets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting snippet %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("snippet", strconv.FormatInt(id, 10))
	}
	return nil
}

func (db *DB) ListIDsByOwner(ctx context.Context, ownerID int64) ([]int64, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id FROM snippets WHERE owner_id = ? ORDER BY id ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing snippets of user %d: %w", ownerID, err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning snippet id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snippet ids: %w", err)
	}
	return ids, nil
}
