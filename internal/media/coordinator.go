package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mediashare/backend/internal/logging"
	"github.com/mediashare/backend/internal/models"
	"github.com/mediashare/backend/internal/repositories"
	"github.com/mediashare/backend/internal/storage"
)

// MediaStore captures the persistence operations the coordinator needs.
type MediaStore interface {
	FindByID(ctx context.Context, id string) (models.MediaItem, error)
	DeleteCascade(ctx context.Context, id, ownerID string) error
}

// ObjectRemover deletes a stored blob by key. Implementations report an
// absent key as storage.ErrObjectNotFound rather than a hard failure.
type ObjectRemover interface {
	Delete(ctx context.Context, key string) error
}

// OrphanQueue accepts blob keys whose remote deletion failed after the local
// rows were already committed away.
type OrphanQueue interface {
	Enqueue(ctx context.Context, key string) error
}

// CoordinatorConfig controls the deletion saga's compensation behaviour.
type CoordinatorConfig struct {
	// PublicBaseURL is stripped from stored filenames before they are used as
	// object-store keys. Rows written by older deployments carry absolute
	// URLs in the filename column.
	PublicBaseURL string
	// CompensateTimeout bounds the remote blob delete after commit.
	CompensateTimeout time.Duration
}

// Coordinator orchestrates media removal across the relational store and the
// object store. No distributed transaction exists between the two: the
// relational delete is a local transaction, and the blob delete afterwards is
// a forward-only compensating action. Once the transaction commits, the
// relational state is final regardless of what the object store does.
type Coordinator struct {
	store   MediaStore
	objects ObjectRemover
	orphans OrphanQueue
	logger  *slog.Logger

	baseURL           string
	compensateTimeout time.Duration
}

// NewCoordinator constructs a deletion saga coordinator. The orphan queue is
// optional; when present, keys left behind by a partial deletion are handed
// to it for background reconciliation.
func NewCoordinator(store MediaStore, objects ObjectRemover, orphans OrphanQueue, cfg CoordinatorConfig, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CompensateTimeout <= 0 {
		cfg.CompensateTimeout = 30 * time.Second
	}

	return &Coordinator{
		store:             store,
		objects:           objects,
		orphans:           orphans,
		logger:            logger,
		baseURL:           strings.TrimSuffix(cfg.PublicBaseURL, "/"),
		compensateTimeout: cfg.CompensateTimeout,
	}
}

// DeleteMedia removes the media item's relational rows and then its stored
// blob and thumbnail.
//
// An admin level substitutes the item's owner as the effective actor, so
// admins may delete any item; an ordinary user may only delete their own.
// The returned outcome is the caller's contract: OutcomePartial means the
// rows are gone but the blob may be orphaned, and must never be treated as a
// rollback or masked as success. The error carries detail for the partial
// and aborted outcomes.
func (c *Coordinator) DeleteMedia(ctx context.Context, id, actor, level string) (Outcome, error) {
	ctx, span := logging.StartSpan(ctx, "media.delete")
	defer span.End()

	// Cheap pre-check read; no transaction is opened for missing items.
	item, err := c.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return OutcomeNotFound, nil
		}
		return OutcomeAborted, fmt.Errorf("fetch media item: %w", err)
	}

	effective := actor
	if strings.EqualFold(level, models.LevelAdmin) {
		effective = item.OwnerID
	}
	if effective != item.OwnerID {
		return OutcomeForbidden, nil
	}

	if err := c.store.DeleteCascade(ctx, id, effective); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// Lost a race with a concurrent delete, or ownership changed
			// since the pre-check. Either way nothing was committed.
			return OutcomeNotFound, nil
		}
		return OutcomeAborted, fmt.Errorf("delete media rows: %w", err)
	}

	// The transaction has committed: the relational state is final and the
	// blob delete below must run even if the caller has already gone away.
	return c.compensate(ctx, id, item.Filename)
}

func (c *Coordinator) compensate(ctx context.Context, id, filename string) (Outcome, error) {
	key := c.objectKey(filename)

	compCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.compensateTimeout)
	defer cancel()

	var (
		orphaned []string
		lastErr  error
	)
	for _, k := range []string{key, thumbnailKey(key)} {
		err := c.objects.Delete(compCtx, k)
		if err == nil || errors.Is(err, storage.ErrObjectNotFound) {
			continue
		}
		orphaned = append(orphaned, k)
		lastErr = err
	}

	if len(orphaned) == 0 {
		return OutcomeCompleted, nil
	}

	c.logger.Error("media rows deleted but blob removal failed; blobs may be orphaned",
		"mediaId", id, "keys", orphaned, "error", lastErr)

	if c.orphans != nil {
		for _, k := range orphaned {
			if err := c.orphans.Enqueue(compCtx, k); err != nil {
				c.logger.Error("queue orphaned blob for reconciliation", "key", k, "error", err)
			}
		}
	}

	return OutcomePartial, fmt.Errorf("remove blob %s: %w", orphaned[0], lastErr)
}

// objectKey strips the public base-URL prefix from a stored filename,
// yielding the storage-relative key.
func (c *Coordinator) objectKey(filename string) string {
	if c.baseURL != "" {
		filename = strings.TrimPrefix(filename, c.baseURL)
	}
	return strings.TrimLeft(filename, "/")
}

func thumbnailKey(key string) string {
	return key + "-thumb.png"
}
