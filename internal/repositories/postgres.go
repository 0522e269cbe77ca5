package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mediashare/backend/internal/db"
	"github.com/mediashare/backend/internal/models"
)

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	level := user.Level
	if level == "" {
		level = models.LevelUser
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, password_hash, level, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, user.ID, user.Username, user.Email, user.Password, level, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, username, email, password_hash, level, created_at, updated_at
        FROM users
        WHERE email = $1
    `, email)

	return scanUser(row, "email")
}

// FindByID fetches a user by their identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, username, email, password_hash, level, created_at, updated_at
        FROM users
        WHERE id = $1
    `, id)

	return scanUser(row, "id")
}

func scanUser(row pgx.Row, by string) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.Level, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by %s: %w", by, err)
	}
	return user, nil
}

// Update modifies an existing user record.
func (r *PostgresUserRepository) Update(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET username = $2, email = $3, password_hash = $4, updated_at = $5
        WHERE id = $1
    `, user.ID, user.Username, user.Email, user.Password, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("update user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a user account together with everything the account owns:
// rows the user authored on other media, the dependent rows of the user's own
// media, the media items, and finally the user. Friend edges and sessions are
// removed by foreign-key cascade. Runs in a single transaction.
func (r *PostgresUserRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin user delete: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	statements := []string{
		`DELETE FROM comments WHERE user_id = $1`,
		`DELETE FROM likes WHERE user_id = $1`,
		`DELETE FROM ratings WHERE user_id = $1`,
		`DELETE FROM comments WHERE media_id IN (SELECT id FROM media_items WHERE owner_id = $1)`,
		`DELETE FROM likes WHERE media_id IN (SELECT id FROM media_items WHERE owner_id = $1)`,
		`DELETE FROM ratings WHERE media_id IN (SELECT id FROM media_items WHERE owner_id = $1)`,
		`DELETE FROM media_item_tags WHERE media_id IN (SELECT id FROM media_items WHERE owner_id = $1)`,
		`DELETE FROM media_items WHERE owner_id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt, id); err != nil {
			return fmt.Errorf("cascade user delete: %w", err)
		}
	}

	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit user delete: %w", err)
	}

	return nil
}

// PostgresMediaRepository provides PostgreSQL-backed persistence for media
// item metadata and its dependent rows.
type PostgresMediaRepository struct {
	pool db.Pool
}

// NewPostgresMediaRepository constructs a media repository backed by PostgreSQL.
func NewPostgresMediaRepository(pool db.Pool) *PostgresMediaRepository {
	return &PostgresMediaRepository{pool: pool}
}

// Create stores a new media item record.
func (r *PostgresMediaRepository) Create(ctx context.Context, item models.MediaItem) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO media_items (id, owner_id, filename, media_type, title, description, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, item.ID, item.OwnerID, item.Filename, item.MediaType, item.Title, item.Description, item.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert media item: %w", err)
	}

	return nil
}

// FindByID fetches a media item by its identifier.
func (r *PostgresMediaRepository) FindByID(ctx context.Context, id string) (models.MediaItem, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.MediaItem{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, owner_id, filename, media_type, title, description, created_at
        FROM media_items
        WHERE id = $1
    `, id)

	var item models.MediaItem
	if err := row.Scan(&item.ID, &item.OwnerID, &item.Filename, &item.MediaType, &item.Title, &item.Description, &item.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.MediaItem{}, ErrNotFound
		}
		return models.MediaItem{}, fmt.Errorf("select media item: %w", err)
	}

	return item, nil
}

// ListByOwner returns the media items owned by the provided user.
func (r *PostgresMediaRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.MediaItem, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, owner_id, filename, media_type, title, description, created_at
        FROM media_items
        WHERE owner_id = $1
        ORDER BY created_at DESC
    `, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query media by owner: %w", err)
	}
	defer rows.Close()

	return collectMediaItems(rows)
}

// ListFeed returns a reverse chronological feed of the user's own media and
// media owned by accepted friends.
func (r *PostgresMediaRepository) ListFeed(ctx context.Context, userID string) ([]models.MediaItem, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        WITH accepted_friends AS (
            SELECT
                CASE
                    WHEN fe.user_a = $1 THEN fe.user_b
                    ELSE fe.user_a
                END AS friend_id
            FROM friend_edges fe
            WHERE fe.status = 'accepted'
              AND (fe.user_a = $1 OR fe.user_b = $1)
        )
        SELECT id, owner_id, filename, media_type, title, description, created_at
        FROM media_items
        WHERE owner_id = $1 OR owner_id IN (SELECT friend_id FROM accepted_friends)
        ORDER BY created_at DESC
        LIMIT 100
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query media feed: %w", err)
	}
	defer rows.Close()

	return collectMediaItems(rows)
}

func collectMediaItems(rows pgx.Rows) ([]models.MediaItem, error) {
	var items []models.MediaItem
	for rows.Next() {
		var item models.MediaItem
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.Filename, &item.MediaType, &item.Title, &item.Description, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan media item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate media items: %w", err)
	}

	return items, nil
}

// UpdateDetails modifies the caller-editable fields of a media item.
func (r *PostgresMediaRepository) UpdateDetails(ctx context.Context, id, title, description string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE media_items
        SET title = $2, description = $3
        WHERE id = $1
    `, id, title, description)
	if err != nil {
		return fmt.Errorf("update media item: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteCascade removes the item's dependent rows and then the item itself,
// constrained by both id and owner, inside one transaction. The owner
// constraint guards against ownership changing between the caller's pre-check
// and this transaction; under two concurrent deletes of the same id exactly
// one transaction observes an affected row, the other gets ErrNotFound.
func (r *PostgresMediaRepository) DeleteCascade(ctx context.Context, id, ownerID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin media delete: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	statements := []string{
		`DELETE FROM likes WHERE media_id = $1`,
		`DELETE FROM comments WHERE media_id = $1`,
		`DELETE FROM ratings WHERE media_id = $1`,
		`DELETE FROM media_item_tags WHERE media_id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt, id); err != nil {
			return fmt.Errorf("cascade media delete: %w", err)
		}
	}

	tag, err := tx.Exec(ctx, `
        DELETE FROM media_items
        WHERE id = $1 AND owner_id = $2
    `, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete media item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit media delete: %w", err)
	}

	return nil
}

// AddLike records a like for the media item. Liking twice yields ErrConflict.
func (r *PostgresMediaRepository) AddLike(ctx context.Context, mediaID, userID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        INSERT INTO likes (media_id, user_id)
        VALUES ($1, $2)
        ON CONFLICT (media_id, user_id) DO NOTHING
    `, mediaID, userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("insert like: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrConflict
	}

	return nil
}

// RemoveLike deletes the user's like for the media item.
func (r *PostgresMediaRepository) RemoveLike(ctx context.Context, mediaID, userID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM likes
        WHERE media_id = $1 AND user_id = $2
    `, mediaID, userID)
	if err != nil {
		return fmt.Errorf("delete like: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// CountLikes returns the number of likes recorded for the media item.
func (r *PostgresMediaRepository) CountLikes(ctx context.Context, mediaID string) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var count int64
	row := conn.QueryRow(ctx, `SELECT COUNT(*) FROM likes WHERE media_id = $1`, mediaID)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}

	return count, nil
}

// AttachTag upserts the named tag and associates it with the media item in
// one transaction. Attaching the same tag twice is a no-op.
func (r *PostgresMediaRepository) AttachTag(ctx context.Context, mediaID, tagName string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tag attach: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var tagID string
	row := tx.QueryRow(ctx, `
        INSERT INTO tags (id, tag_name)
        VALUES ($1, $2)
        ON CONFLICT (tag_name) DO UPDATE SET tag_name = EXCLUDED.tag_name
        RETURNING id
    `, uuid.NewString(), tagName)
	if err := row.Scan(&tagID); err != nil {
		return fmt.Errorf("upsert tag: %w", err)
	}

	if _, err := tx.Exec(ctx, `
        INSERT INTO media_item_tags (media_id, tag_id)
        VALUES ($1, $2)
        ON CONFLICT (media_id, tag_id) DO NOTHING
    `, mediaID, tagID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("attach tag: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tag attach: %w", err)
	}

	return nil
}

// ListByTag returns media items carrying the named tag, newest first.
func (r *PostgresMediaRepository) ListByTag(ctx context.Context, tagName string) ([]models.MediaItem, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT m.id, m.owner_id, m.filename, m.media_type, m.title, m.description, m.created_at
        FROM media_items m
        JOIN media_item_tags mt ON mt.media_id = m.id
        JOIN tags t ON t.id = mt.tag_id
        WHERE t.tag_name = $1
        ORDER BY m.created_at DESC
        LIMIT 100
    `, tagName)
	if err != nil {
		return nil, fmt.Errorf("query media by tag: %w", err)
	}
	defer rows.Close()

	return collectMediaItems(rows)
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ MediaRepository = (*PostgresMediaRepository)(nil)
