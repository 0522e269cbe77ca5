package models

import "time"

// User represents an account within the MediaShare platform.
type User struct {
	ID        string
	Username  string
	Email     string
	Password  string
	Level     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// User levels. Admins may act on other users' media (moderation).
const (
	LevelUser  = "user"
	LevelAdmin = "admin"
)

// Friend edge statuses.
const (
	FriendStatusPending  = "pending"
	FriendStatusAccepted = "accepted"
)

// FriendEdge is the single row representing a friendship between two users.
// UserA initiated the request; direction is metadata only. For any unordered
// pair of users at most one edge exists, in at most one direction.
type FriendEdge struct {
	UserA     string
	UserB     string
	Status    string
	CreatedAt time.Time
}

// Friend is a directory entry returned by the friend listing queries.
type Friend struct {
	UserID   string
	Username string
	Email    string
	Since    time.Time
}

// MediaItem stores metadata for an uploaded media object. Filename is the
// storage-relative key; public URLs are composed at the response boundary.
type MediaItem struct {
	ID          string
	OwnerID     string
	Filename    string
	MediaType   string
	Title       string
	Description string
	CreatedAt   time.Time
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Identity is the resolved caller behind a bearer token.
type Identity struct {
	UserID string
	Level  string
}
