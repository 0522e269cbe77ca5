package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mediashare/backend/internal/db"
	"github.com/mediashare/backend/internal/models"
)

// PostgresFriendRepository provides PostgreSQL-backed persistence for the
// friendship edge table. A friendship between two users is exactly one row;
// the column order records who initiated the request. A unique expression
// index over the unordered pair backs the zero-or-one-edge invariant, and
// every state transition runs under a row lock on the existing edge.
type PostgresFriendRepository struct {
	pool db.Pool

	// trySend is the single-attempt request path; tests substitute it to
	// exercise SendRequest's race handling.
	trySend func(ctx context.Context, initiator, target string) (models.FriendEdge, error)
}

// NewPostgresFriendRepository constructs a friend repository backed by PostgreSQL.
func NewPostgresFriendRepository(pool db.Pool) *PostgresFriendRepository {
	r := &PostgresFriendRepository{pool: pool}
	r.trySend = r.trySendRequest
	return r
}

// SendRequest creates a pending edge from initiator to target.
//
// When the target has already sent the initiator a still-pending request, the
// two requests are mutual and this call resolves as an implicit accept of the
// existing edge instead of inserting a contradictory second row. Two truly
// simultaneous mutual requests race on the unordered-pair unique index; the
// loser retries once and lands on the implicit-accept path.
func (r *PostgresFriendRepository) SendRequest(ctx context.Context, initiator, target string) (models.FriendEdge, error) {
	if initiator == target {
		return models.FriendEdge{}, ErrInvalidArgument
	}

	for attempt := 0; attempt < 2; attempt++ {
		edge, err := r.trySend(ctx, initiator, target)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				if attempt == 0 {
					continue
				}
				// Lost the pair race twice in a row; either way an edge
				// for this pair now exists.
				return models.FriendEdge{}, ErrConflict
			}
			return models.FriendEdge{}, err
		}
		return edge, nil
	}

	return models.FriendEdge{}, ErrConflict
}

func (r *PostgresFriendRepository) trySendRequest(ctx context.Context, initiator, target string) (models.FriendEdge, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.FriendEdge{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return models.FriendEdge{}, fmt.Errorf("begin friend request: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	existing, err := lockEdge(ctx, tx, initiator, target)
	switch {
	case err == nil:
		if existing.UserA == initiator || existing.Status == models.FriendStatusAccepted {
			return models.FriendEdge{}, ErrConflict
		}
		// Mutual pending request: resolve as an implicit accept.
		accepted, err := flipAccepted(ctx, tx, existing.UserA, existing.UserB)
		if err != nil {
			return models.FriendEdge{}, err
		}
		if err := tx.Commit(ctx); err != nil {
			return models.FriendEdge{}, fmt.Errorf("commit implicit accept: %w", err)
		}
		return accepted, nil
	case errors.Is(err, ErrNotFound):
		// No edge in either direction; fall through to insert.
	default:
		return models.FriendEdge{}, err
	}

	edge := models.FriendEdge{
		UserA:     initiator,
		UserB:     target,
		Status:    models.FriendStatusPending,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := tx.Exec(ctx, `
        INSERT INTO friend_edges (user_a, user_b, status, created_at)
        VALUES ($1, $2, $3, $4)
    `, edge.UserA, edge.UserB, edge.Status, edge.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return models.FriendEdge{}, err
			case "23503":
				return models.FriendEdge{}, ErrNotFound
			}
		}
		return models.FriendEdge{}, fmt.Errorf("insert friend edge: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.FriendEdge{}, err
		}
		return models.FriendEdge{}, fmt.Errorf("commit friend request: %w", err)
	}

	return edge, nil
}

// Accept flips the pending edge (initiator, recipient) to accepted. Only the
// recipient of the pending edge may accept it; the initiator attempting to
// accept their own request gets ErrForbidden. A missing or already-accepted
// edge yields ErrNotFound, so callers can tell "already accepted" apart from
// "never requested".
func (r *PostgresFriendRepository) Accept(ctx context.Context, recipient, initiator string) (models.FriendEdge, error) {
	if recipient == initiator {
		return models.FriendEdge{}, ErrInvalidArgument
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.FriendEdge{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return models.FriendEdge{}, fmt.Errorf("begin accept: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	existing, err := lockEdge(ctx, tx, recipient, initiator)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.FriendEdge{}, ErrNotFound
		}
		return models.FriendEdge{}, err
	}

	if existing.Status != models.FriendStatusPending {
		return models.FriendEdge{}, ErrNotFound
	}
	if existing.UserA != initiator || existing.UserB != recipient {
		// The pending edge runs the other way: the caller sent this request
		// and cannot accept it themselves.
		return models.FriendEdge{}, ErrForbidden
	}

	accepted, err := flipAccepted(ctx, tx, existing.UserA, existing.UserB)
	if err != nil {
		return models.FriendEdge{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return models.FriendEdge{}, fmt.Errorf("commit accept: %w", err)
	}

	return accepted, nil
}

// Remove deletes the edge between the two users in whichever direction it
// exists. ErrNotFound signals that no edge existed; callers needing
// idempotent removal treat that as success.
func (r *PostgresFriendRepository) Remove(ctx context.Context, userA, userB string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM friend_edges
        WHERE (user_a = $1 AND user_b = $2)
           OR (user_a = $2 AND user_b = $1)
    `, userA, userB)
	if err != nil {
		return fmt.Errorf("delete friend edge: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListAccepted returns the user's accepted friends, most recent edge first.
func (r *PostgresFriendRepository) ListAccepted(ctx context.Context, userID string) ([]models.Friend, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT u.id, u.username, u.email, fe.created_at
        FROM friend_edges fe
        JOIN users u ON u.id = CASE WHEN fe.user_a = $1 THEN fe.user_b ELSE fe.user_a END
        WHERE (fe.user_a = $1 OR fe.user_b = $1)
          AND fe.status = 'accepted'
        ORDER BY fe.created_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query accepted friends: %w", err)
	}
	defer rows.Close()

	return collectFriends(rows)
}

// ListPending returns users with a pending request to userID, most recent
// first. Requests the user sent themselves are not pending incoming and are
// excluded by keying on the recipient column.
func (r *PostgresFriendRepository) ListPending(ctx context.Context, userID string) ([]models.Friend, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT u.id, u.username, u.email, fe.created_at
        FROM friend_edges fe
        JOIN users u ON u.id = fe.user_a
        WHERE fe.user_b = $1
          AND fe.status = 'pending'
        ORDER BY fe.created_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query pending friends: %w", err)
	}
	defer rows.Close()

	return collectFriends(rows)
}

func collectFriends(rows pgx.Rows) ([]models.Friend, error) {
	var friends []models.Friend
	for rows.Next() {
		var f models.Friend
		if err := rows.Scan(&f.UserID, &f.Username, &f.Email, &f.Since); err != nil {
			return nil, fmt.Errorf("scan friend: %w", err)
		}
		friends = append(friends, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate friends: %w", err)
	}

	return friends, nil
}

// lockEdge fetches and row-locks the edge between the two users regardless of
// direction, so concurrent transitions on the same pair serialize.
func lockEdge(ctx context.Context, tx pgx.Tx, userA, userB string) (models.FriendEdge, error) {
	row := tx.QueryRow(ctx, `
        SELECT user_a, user_b, status, created_at
        FROM friend_edges
        WHERE (user_a = $1 AND user_b = $2)
           OR (user_a = $2 AND user_b = $1)
        FOR UPDATE
    `, userA, userB)

	var edge models.FriendEdge
	if err := row.Scan(&edge.UserA, &edge.UserB, &edge.Status, &edge.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.FriendEdge{}, ErrNotFound
		}
		return models.FriendEdge{}, fmt.Errorf("lock friend edge: %w", err)
	}

	return edge, nil
}

func flipAccepted(ctx context.Context, tx pgx.Tx, userA, userB string) (models.FriendEdge, error) {
	row := tx.QueryRow(ctx, `
        UPDATE friend_edges
        SET status = 'accepted'
        WHERE user_a = $1 AND user_b = $2 AND status = 'pending'
        RETURNING user_a, user_b, status, created_at
    `, userA, userB)

	var edge models.FriendEdge
	if err := row.Scan(&edge.UserA, &edge.UserB, &edge.Status, &edge.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.FriendEdge{}, ErrNotFound
		}
		return models.FriendEdge{}, fmt.Errorf("accept friend edge: %w", err)
	}

	return edge, nil
}

var _ FriendRepository = (*PostgresFriendRepository)(nil)
