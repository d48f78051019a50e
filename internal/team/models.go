// Package team manages workspace memberships and invitations. Every
// operation is scoped to the account resolved from the request host;
// membership and invitation ids from other workspaces read as missing.
package team

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tryequipped/equipped/internal/authz"
)

var (
	// ErrMemberNotFound is returned when a membership id does not exist
	// in this workspace
	ErrMemberNotFound = errors.New("member not found")

	// ErrUserNotFound is returned when no user exists for an email
	ErrUserNotFound = errors.New("user not found")

	// ErrAlreadyMember is returned when a grant or accept targets a user
	// who already holds a membership
	ErrAlreadyMember = errors.New("user is already a member")

	// ErrSelfAction is returned when an actor targets their own
	// membership
	ErrSelfAction = errors.New("cannot change your own membership")

	// ErrLastOwner is returned when a change would leave the workspace
	// with no owner
	ErrLastOwner = errors.New("workspace must keep at least one owner")

	// ErrRoleNotAllowed is returned when the actor's role cannot grant
	// or modify the role in question
	ErrRoleNotAllowed = errors.New("your role cannot grant that role")

	// ErrInvalidRole is returned for an unknown role name
	ErrInvalidRole = errors.New("invalid role")

	// ErrInviteNotFound is returned when an invitation id does not exist
	// in this workspace
	ErrInviteNotFound = errors.New("invitation not found")

	// ErrInviteNotActive is returned when an invitation has already been
	// accepted, declined, or revoked
	ErrInviteNotActive = errors.New("invitation is no longer active")

	// ErrInviteExpired is returned when a pending invitation is past its
	// expiry
	ErrInviteExpired = errors.New("invitation has expired")

	// ErrEmailMismatch is returned when a user tries to act on an
	// invitation sent to a different address
	ErrEmailMismatch = errors.New("invitation was sent to a different email")
)

// Invitation statuses. Expiry is not a status: a pending invitation
// past expires_at stays pending in storage and is reported expired at
// read time.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusDeclined = "declined"
	StatusRevoked  = "revoked"
)

// Member is one membership row joined with its user.
type Member struct {
	MembershipID uuid.UUID  `json:"membership_id"`
	UserID       string     `json:"user_id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Role         authz.Role `json:"role"`
	JoinedAt     time.Time  `json:"joined_at"`
}

// Invitation is one invitation row.
type Invitation struct {
	ID        uuid.UUID  `json:"id"`
	AccountID uuid.UUID  `json:"-"`
	Email     string     `json:"email"`
	Role      authz.Role `json:"role"`
	Status    string     `json:"status"`
	InvitedBy *string    `json:"invited_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// InvitationListItem is a pending invitation annotated for display.
// Expired is computed at read time; the stored status stays pending.
type InvitationListItem struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	Role           authz.Role `json:"role"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	Expired        bool       `json:"expired"`
	InvitedByEmail *string    `json:"invited_by_email,omitempty"`
}
