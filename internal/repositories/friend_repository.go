package repositories

import (
	"context"

	"github.com/mediashare/backend/internal/models"
)

// FriendRepository defines the relationship store: a single-edge friendship
// model with atomic state transitions.
//
// Invariant: for any unordered pair of users, zero or one edge exists at any
// time, in at most one direction.
type FriendRepository interface {
	// SendRequest creates a pending edge from initiator to target. An existing
	// edge in either direction yields ErrConflict, except an opposite-direction
	// pending edge, which is resolved as an implicit accept. Self-friending
	// yields ErrInvalidArgument.
	SendRequest(ctx context.Context, initiator, target string) (models.FriendEdge, error)

	// Accept flips the pending edge (initiator, recipient) to accepted. A
	// missing or already-accepted edge yields ErrNotFound; a pending edge the
	// caller initiated themselves yields ErrForbidden.
	Accept(ctx context.Context, recipient, initiator string) (models.FriendEdge, error)

	// Remove deletes the edge between the two users in whichever direction it
	// exists. ErrNotFound when no edge exists; callers wanting idempotence
	// treat that as success.
	Remove(ctx context.Context, userA, userB string) error

	// ListAccepted returns the user's accepted friends, most recent edge first.
	ListAccepted(ctx context.Context, userID string) ([]models.Friend, error)

	// ListPending returns users with a pending request *to* userID, most
	// recent first. Requests the user sent themselves are not included.
	ListPending(ctx context.Context, userID string) ([]models.Friend, error)
}
