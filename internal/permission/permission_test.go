package permission

import (
	"errors"
	"testing"

	"github.com/sakif/snippet-api/internal/apperror"
	"github.com/sakif/snippet-api/internal/model"
)

func ownedBy(id int64) *model.Snippet {
	return &model.Snippet{ID: 1, OwnerID: &id}
}

func TestPolicies(t *testing.T) {
	alice := &model.Identity{UserID: 1, Username: "alice"}
	bob := &model.Identity{UserID: 2, Username: "bob"}
	owned := All(AuthenticatedOrReadOnly, OwnerOrReadOnly)

	tests := []struct {
		name    string
		policy  Policy
		caller  *model.Identity
		target  *model.Snippet
		op      Operation
		wantErr error // nil means allowed
	}{
		{"allow any lets anonymous delete", AllowAny, nil, ownedBy(1), Delete, nil},

		{"anonymous may read", AuthenticatedOrReadOnly, nil, nil, Read, nil},
		{"anonymous may not create", AuthenticatedOrReadOnly, nil, nil, Create, apperror.ErrUnauthorized},
		{"authenticated may create", AuthenticatedOrReadOnly, alice, nil, Create, nil},

		{"owner may update", OwnerOrReadOnly, alice, ownedBy(1), Update, nil},
		{"non-owner may not update", OwnerOrReadOnly, bob, ownedBy(1), Update, apperror.ErrForbidden},
		{"non-owner may read", OwnerOrReadOnly, bob, ownedBy(1), Read, nil},
		{"nobody owns an ownerless snippet", OwnerOrReadOnly, alice, &model.Snippet{ID: 5}, Delete, apperror.ErrForbidden},
		{"owner check skips collection ops", OwnerOrReadOnly, nil, nil, Create, nil},

		{"owned mode: anonymous delete is unauthorized", owned, nil, ownedBy(1), Delete, apperror.ErrUnauthorized},
		{"owned mode: stranger delete is forbidden", owned, bob, ownedBy(1), Delete, apperror.ErrForbidden},
		{"owned mode: owner delete allowed", owned, alice, ownedBy(1), Delete, nil},
		{"owned mode: anonymous list allowed", owned, nil, nil, Read, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy(tt.caller, tt.target, tt.op)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected allow, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestOperationString(t *testing.T) {
	if Update.String() != "update" {
		t.Errorf("Update.String() = %q", Update.String())
	}
	if !Read.Safe() || Delete.Safe() {
		t.Error("only Read should be safe")
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"open", ModeOpen, false},
		{"owned", ModeOwned, false},
		{" OWNED ", ModeOwned, false},
		{"", "", true},
		{"closed", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestModePolicy(t *testing.T) {
	stranger := &model.Identity{UserID: 2, Username: "bob"}

	if err := ModeOpen.Policy()(nil, ownedBy(1), Delete); err != nil {
		t.Errorf("open mode denied anonymous delete: %v", err)
	}
	if err := ModeOwned.Policy()(stranger, ownedBy(1), Delete); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("owned mode stranger delete error = %v, want ErrForbidden", err)
	}
	if ModeOpen.AssignsOwner() || !ModeOwned.AssignsOwner() {
		t.Error("only owned mode assigns an owner")
	}
}
