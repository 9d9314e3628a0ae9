// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Snippet represents a stored code snippet.
//
// Snippet carries no json tags: the wire shape is produced by the codec
// package (codec.Project), which decides which fields are exposed and how
// the owner and links are rendered.
//
// OWNER:
// OwnerID is nil for snippets created through the ownerless access mode.
// OwnerName is not stored on the snippets row; the repository fills it in
// by joining users so the codec can render the owner's username.
//
// There is no highlighted field. The HTML rendering is derived from Code,
// Language, Style and Linenos every time it is requested.
type Snippet struct {
	ID        int64
	Title     string
	Code      string
	Linenos   bool
	Language  string
	Style     string
	OwnerID   *int64
	OwnerName string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasOwner reports whether the snippet was created by an authenticated user.
func (s *Snippet) HasOwner() bool {
	return s.OwnerID != nil
}

// OwnedBy reports whether userID owns the snippet.
func (s *Snippet) OwnedBy(userID int64) bool {
	return s.OwnerID != nil && *s.OwnerID == userID
}
