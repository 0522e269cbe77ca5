package repositories

import (
	"context"

	"github.com/mediashare/backend/internal/models"
)

// MediaRepository defines data access for media item metadata and its
// dependent rows (likes, comments, ratings, tag associations).
type MediaRepository interface {
	Create(ctx context.Context, item models.MediaItem) error
	FindByID(ctx context.Context, id string) (models.MediaItem, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.MediaItem, error)
	ListFeed(ctx context.Context, userID string) ([]models.MediaItem, error)
	UpdateDetails(ctx context.Context, id, title, description string) error

	// DeleteCascade removes the dependent rows for the item and then the item
	// itself, constrained by both id and owner, inside a single transaction.
	// If the final delete affects zero rows the transaction is rolled back and
	// ErrNotFound returned. Once DeleteCascade returns nil the relational
	// state is committed and final.
	DeleteCascade(ctx context.Context, id, ownerID string) error

	AddLike(ctx context.Context, mediaID, userID string) error
	RemoveLike(ctx context.Context, mediaID, userID string) error
	CountLikes(ctx context.Context, mediaID string) (int64, error)
	AttachTag(ctx context.Context, mediaID, tagName string) error
	ListByTag(ctx context.Context, tagName string) ([]models.MediaItem, error)
}
