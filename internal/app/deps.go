package app

import (
	"context"
	"time"

	"github.com/mediashare/backend/internal/auth"
	"github.com/mediashare/backend/internal/config"
	"github.com/mediashare/backend/internal/db"
	"github.com/mediashare/backend/internal/handlers"
	"github.com/mediashare/backend/internal/media"
	"github.com/mediashare/backend/internal/middleware"
	"github.com/mediashare/backend/internal/repositories"
	"github.com/mediashare/backend/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup drains the orphan reconciler.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, func(context.Context) error, error) {
	blobs, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}

	mediaRepo := repositories.NewPostgresMediaRepository(pool)
	sessionStore := repositories.NewPostgresSessionStore(pool)

	reconciler := media.NewReconciler(blobs, media.ReconcilerConfig{
		QueueSize:  cfg.Reconciler.QueueSize,
		Workers:    cfg.Reconciler.Workers,
		RetryDelay: cfg.Reconciler.RetryDelay,
	}, nil)

	coordinator := media.NewCoordinator(mediaRepo, blobs, reconciler, media.CoordinatorConfig{
		PublicBaseURL: cfg.ObjectStore.PublicBaseURL,
	}, nil)

	deps := handlers.Dependencies{
		Users:         repositories.NewPostgresUserRepository(pool),
		Sessions:      auth.NewManager(cfg.AccessTokenTTL, cfg.RefreshTokenTTL, sessionStore),
		Friends:       repositories.NewPostgresFriendRepository(pool),
		Media:         mediaRepo,
		MediaDeleter:  coordinator,
		Blobs:         blobs,
		LoginLimiter:  middleware.NewIPRateLimiter(10, time.Minute, 5, 10*time.Minute),
		UploadLimiter: middleware.NewIPRateLimiter(30, time.Minute, 10, 10*time.Minute),
		PublicBaseURL: cfg.ObjectStore.PublicBaseURL,
	}

	return deps, reconciler.Shutdown, nil
}
