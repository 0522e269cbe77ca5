package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mediashare/backend/internal/models"
)

func TestSendRequestRetriesPairRaceOnce(t *testing.T) {
	want := models.FriendEdge{UserA: "alice", UserB: "bob", Status: models.FriendStatusAccepted}

	calls := 0
	repo := &PostgresFriendRepository{}
	repo.trySend = func(context.Context, string, string) (models.FriendEdge, error) {
		calls++
		if calls == 1 {
			return models.FriendEdge{}, &pgconn.PgError{Code: "23505"}
		}
		return want, nil
	}

	edge, err := repo.SendRequest(context.Background(), "alice", "bob")
	if err != nil {
		t.Fatalf("send request: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected one retry after a unique violation, got %d calls", calls)
	}
	if edge != want {
		t.Fatalf("unexpected edge %+v", edge)
	}
}

func TestSendRequestMapsRepeatedPairRaceToConflict(t *testing.T) {
	calls := 0
	repo := &PostgresFriendRepository{}
	repo.trySend = func(context.Context, string, string) (models.FriendEdge, error) {
		calls++
		return models.FriendEdge{}, &pgconn.PgError{Code: "23505"}
	}

	_, err := repo.SendRequest(context.Background(), "alice", "bob")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict after repeated unique violations, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected exactly two attempts, got %d", calls)
	}
}
