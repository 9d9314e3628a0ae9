// Package permission decides whether a caller may perform an operation on
// a snippet.
//
// A Policy is a plain function. Policies compose with All, which allows an
// operation only when every policy does, so the "owned" access mode is just
//
//	All(AuthenticatedOrReadOnly, OwnerOrReadOnly)
//
// Denials come back as apperror values: ErrUnauthorized when the caller is
// anonymous and needed an identity, ErrForbidden when the caller is known
// but not allowed.
package permission

import (
	"fmt"
	"strings"

	"github.com/sakif/snippet-api/internal/apperror"
	"github.com/sakif/snippet-api/internal/model"
)

// Operation is what the caller wants to do.
type Operation int

const (
	Read Operation = iota
	Create
	Update
	Delete
)

func (op Operation) String() string {
	switch op {
	case Read:
		return "read"
	case Create:
		return "create"
	case Update:
		return "update"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

// Safe reports whether op leaves state unchanged.
func (op Operation) Safe() bool {
	return op == Read
}

const (
	msgNotAuthenticated = "Authentication credentials were not provided."
	msgDenied           = "You do not have permission to perform this action."
)

// Policy returns nil to allow the operation. caller is nil for anonymous
// requests; target is nil for collection-level operations (list, create).
type Policy func(caller *model.Identity, target *model.Snippet, op Operation) error

// AllowAny allows everything.
func AllowAny(*model.Identity, *model.Snippet, Operation) error {
	return nil
}

// AuthenticatedOrReadOnly allows reads from anyone and mutations only from
// an authenticated caller.
func AuthenticatedOrReadOnly(caller *model.Identity, _ *model.Snippet, op Operation) error {
	if op.Safe() || caller != nil {
		return nil
	}
	return apperror.Unauthorized(msgNotAuthenticated)
}

// OwnerOrReadOnly allows reads from anyone and mutations of an existing
// snippet only from its owner. Collection-level operations are not its
// concern and pass through.
func OwnerOrReadOnly(caller *model.Identity, target *model.Snippet, op Operation) error {
	if op.Safe() || target == nil {
		return nil
	}
	if caller == nil {
		return apperror.Unauthorized(msgNotAuthenticated)
	}
	if !target.OwnedBy(caller.UserID) {
		return apperror.Forbidden(msgDenied)
	}
	return nil
}

// All combines policies; the first denial wins.
func All(policies ...Policy) Policy {
	return func(caller *model.Identity, target *model.Snippet, op Operation) error {
		for _, p := range policies {
			if err := p(caller, target, op); err != nil {
				return err
			}
		}
		return nil
	}
}

// Mode selects how snippet creation and mutation are policed.
type Mode string

const (
	// ModeOpen lets anyone do anything. Snippets are created without an owner.
	ModeOpen Mode = "open"
	// ModeOwned requires a caller for mutations, restricts changes to the
	// owner and records the caller as owner on create.
	ModeOwned Mode = "owned"
)

// ParseMode accepts "open" or "owned", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeOpen, ModeOwned:
		return m, nil
	default:
		return "", fmt.Errorf("permission: unknown access mode %q (want %q or %q)", s, ModeOpen, ModeOwned)
	}
}

// Policy returns the policy enforced in this mode.
func (m Mode) Policy() Policy {
	if m == ModeOpen {
		return AllowAny
	}
	return All(AuthenticatedOrReadOnly, OwnerOrReadOnly)
}

// AssignsOwner reports whether new snippets are owned by their creator.
func (m Mode) AssignsOwner() bool {
	return m != ModeOpen
}
