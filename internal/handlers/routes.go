package handlers

import "net/http"

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	auth := AuthHandler{Users: deps.Users, Sessions: deps.Sessions, Limiter: deps.LoginLimiter}
	friends := FriendHandler{Friends: deps.Friends, Sessions: deps.Sessions}
	media := MediaHandler{Media: deps.Media, Deleter: deps.MediaDeleter, Sessions: deps.Sessions, BaseURL: deps.PublicBaseURL}
	uploads := UploadHandler{Blobs: deps.Blobs, Sessions: deps.Sessions, Limiter: deps.UploadLimiter}

	mux.HandleFunc("/healthz", health.Handle)
	mux.HandleFunc("/api/v1/auth/login", auth.Login)
	mux.HandleFunc("/api/v1/auth/signup", auth.SignUp)
	mux.HandleFunc("/api/v1/auth/refresh", auth.Refresh)
	mux.HandleFunc("/api/v1/users", auth.DeleteAccount)
	mux.HandleFunc("/api/v1/friends", friends.List)
	mux.HandleFunc("/api/v1/friends/pending", friends.Pending)
	mux.HandleFunc("/api/v1/friends/invite", friends.Invite)
	mux.HandleFunc("/api/v1/friends/respond", friends.Respond)
	mux.HandleFunc("/api/v1/friends/remove", friends.Remove)
	mux.HandleFunc("/api/v1/media", media.Handle)
	mux.HandleFunc("/api/v1/media/mine", media.Mine)
	mux.HandleFunc("/api/v1/media/feed", media.Feed)
	mux.HandleFunc("/api/v1/media/like", media.Like)
	mux.HandleFunc("/api/v1/media/tag", media.Tag)
	mux.HandleFunc("/api/v1/files", uploads.Upload)
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         UserStore
	Sessions      SessionManager
	Friends       FriendStore
	Media         MediaStore
	MediaDeleter  MediaDeleter
	Blobs         BlobStore
	LoginLimiter  RateLimiter
	UploadLimiter RateLimiter
	PublicBaseURL string
}
