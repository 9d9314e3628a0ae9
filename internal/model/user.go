package model

import "time"

// User represents a registered user account.
//
// Users come from two places: local accounts created with the createuser
// command (PasswordHash set) and GitHub logins (GitHubID set). A user may
// have both. Username is unique across the table either way; for GitHub
// users it is their GitHub login.
//
// WHY GitHubID *int64?
// Local accounts have no GitHub identity. A nil pointer maps to SQL NULL,
// which keeps the UNIQUE constraint on github_id satisfied for every local
// user (NULLs never collide in SQLite's UNIQUE indexes).
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	GitHubID     *int64    `json:"githubId,omitempty"`
	Email        string    `json:"email,omitempty"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Identity is the authenticated caller of a request. A nil *Identity means
// the caller is anonymous.
type Identity struct {
	UserID   int64
	Username string
}
