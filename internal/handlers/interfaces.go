package handlers

import (
	"context"
	"io"

	"github.com/mediashare/backend/internal/media"
	"github.com/mediashare/backend/internal/models"
)

// UserStore captures the persistence operations required by the auth handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	Delete(ctx context.Context, id string) error
}

// SessionManager issues, refreshes, and validates authentication tokens.
type SessionManager interface {
	Issue(ctx context.Context, userID, level string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Validate(ctx context.Context, accessToken string) (models.Identity, error)
}

// FriendStore captures the relationship-store operations required by the
// friend handlers.
type FriendStore interface {
	SendRequest(ctx context.Context, initiator, target string) (models.FriendEdge, error)
	Accept(ctx context.Context, recipient, initiator string) (models.FriendEdge, error)
	Remove(ctx context.Context, userA, userB string) error
	ListAccepted(ctx context.Context, userID string) ([]models.Friend, error)
	ListPending(ctx context.Context, userID string) ([]models.Friend, error)
}

// MediaStore captures persistence for media metadata workflows.
type MediaStore interface {
	Create(ctx context.Context, item models.MediaItem) error
	FindByID(ctx context.Context, id string) (models.MediaItem, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.MediaItem, error)
	ListFeed(ctx context.Context, userID string) ([]models.MediaItem, error)
	ListByTag(ctx context.Context, tagName string) ([]models.MediaItem, error)
	UpdateDetails(ctx context.Context, id, title, description string) error
	AddLike(ctx context.Context, mediaID, userID string) error
	RemoveLike(ctx context.Context, mediaID, userID string) error
	CountLikes(ctx context.Context, mediaID string) (int64, error)
	AttachTag(ctx context.Context, mediaID, tagName string) error
}

// MediaDeleter runs the cross-store deletion saga.
type MediaDeleter interface {
	DeleteMedia(ctx context.Context, id, actor, level string) (media.Outcome, error)
}

// BlobStore persists uploaded binaries.
type BlobStore interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}
