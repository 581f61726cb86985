package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"ideafeed/internal/auth"
	"ideafeed/internal/blob"
	"ideafeed/internal/feed"
	"ideafeed/internal/metrics"
	"ideafeed/internal/models"
	"ideafeed/internal/realtime"
	"ideafeed/internal/store"
)

const maxUploadSize = 5 << 20

type Handler struct {
	store    *store.Store
	sessions *auth.Manager
	blobs    blob.Store
	col      *feed.Collection
	hub      *realtime.Hub
	validate *validator.Validate
	log      *zap.Logger
}

func New(st *store.Store, sessions *auth.Manager, blobs blob.Store, col *feed.Collection, hub *realtime.Hub, log *zap.Logger) *Handler {
	return &Handler{
		store:    st,
		sessions: sessions,
		blobs:    blobs,
		col:      col,
		hub:      hub,
		validate: validator.New(),
		log:      log,
	}
}

// Routes registers every endpoint on mux. avatarDir is served as static
// files under /static/avatars/.
func (h *Handler) Routes(mux *http.ServeMux, avatarDir string) {
	fs := http.FileServer(http.Dir(avatarDir))
	mux.Handle("GET /static/avatars/", http.StripPrefix("/static/avatars/", fs))

	h.handle(mux, "POST /api/signup", h.Signup)
	h.handle(mux, "POST /api/login", h.Login)
	h.handle(mux, "POST /api/logout", h.Logout)
	h.handle(mux, "GET /api/me", h.RequireAuth(h.Me))

	h.handle(mux, "GET /api/ideas", h.ListIdeas)
	h.handle(mux, "POST /api/ideas", h.RequireAuth(h.CreateIdea))
	h.handle(mux, "GET /api/ideas/{id}", h.IdeaByID)

	h.handle(mux, "GET /api/ideas/{id}/like", h.RequireAuth(h.HasLiked))
	h.handle(mux, "PUT /api/ideas/{id}/like", h.RequireAuth(h.Like))
	h.handle(mux, "DELETE /api/ideas/{id}/like", h.RequireAuth(h.Unlike))

	h.handle(mux, "GET /api/ideas/{id}/comments", h.Comments)
	h.handle(mux, "POST /api/ideas/{id}/comments", h.RequireAuth(h.CreateComment))

	h.handle(mux, "POST /api/ideas/{id}/click", h.RequireAuth(h.Click))

	h.handle(mux, "GET /api/trending", h.Trending)
	h.handle(mux, "GET /api/stream", h.Stream)

	h.handle(mux, "GET /healthz", h.Health)
	mux.Handle("GET /metrics", promhttp.Handler())
}

func (h *Handler) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := h.sessions.CurrentUserID(r); !ok {
			h.error(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	}
}

// -------- Auth

type signupRequest struct {
	Email      string `validate:"required,email"`
	Password   string `validate:"required,min=6"`
	Name       string `validate:"required"`
	Username   string `validate:"required,min=2,max=32"`
	Profession string `validate:"max=100"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	req := signupRequest{
		Email:      strings.TrimSpace(r.FormValue("email")),
		Password:   r.FormValue("password"),
		Name:       strings.TrimSpace(r.FormValue("name")),
		Username:   strings.TrimSpace(r.FormValue("username")),
		Profession: strings.TrimSpace(r.FormValue("profession")),
	}
	if err := h.validate.Struct(req); err != nil {
		h.error(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		h.error(w, http.StatusInternalServerError, "could not hash password")
		return
	}
	user := models.User{
		Email:        req.Email,
		Username:     req.Username,
		Name:         req.Name,
		Profession:   req.Profession,
		PasswordHash: hash,
	}
	err = h.store.CreateUser(r.Context(), &user)
	switch {
	case errors.Is(err, store.ErrEmailTaken), errors.Is(err, store.ErrUsernameTaken):
		h.error(w, http.StatusConflict, "email or username already taken")
		return
	case err != nil:
		h.storeError(w, r, err)
		return
	}

	if file, header, err := r.FormFile("avatar"); err == nil {
		defer file.Close()
		name := user.ID + strings.ToLower(path.Ext(header.Filename))
		url, err := h.blobs.Put(r.Context(), name, file)
		if err != nil {
			h.log.Error("avatar upload failed", zap.String("user", user.ID), zap.Error(err))
		} else if err := h.store.SetAvatarURL(r.Context(), user.ID, url); err != nil {
			h.log.Error("avatar url update failed", zap.String("user", user.ID), zap.Error(err))
		} else {
			user.AvatarURL = url
		}
	}

	if err := h.sessions.Create(w, user.ID); err != nil {
		h.error(w, http.StatusInternalServerError, "could not create session")
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.error(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.store.UserByEmail(r.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !CheckPassword(req.Password, user.PasswordHash)) {
		h.error(w, http.StatusUnauthorized, "wrong email or password")
		return
	}
	if err != nil {
		h.storeError(w, r, err)
		return
	}

	if err := h.sessions.Create(w, user.ID); err != nil {
		h.error(w, http.StatusInternalServerError, "could not create session")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	uid, _ := h.sessions.CurrentUserID(r)
	user, err := h.store.UserByID(r.Context(), uid)
	if errors.Is(err, store.ErrNotFound) {
		h.error(w, http.StatusUnauthorized, "unknown user")
		return
	}
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// -------- Ideas

type createIdeaRequest struct {
	Headline    string   `json:"headline" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Tags        []string `json:"tags" validate:"max=10,dive,max=40"`
}

func (h *Handler) CreateIdea(w http.ResponseWriter, r *http.Request) {
	uid, _ := h.sessions.CurrentUserID(r)

	var req createIdeaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Headline = strings.TrimSpace(req.Headline)
	if err := h.validate.Struct(req); err != nil {
		h.error(w, http.StatusBadRequest, err.Error())
		return
	}

	idea := models.Idea{
		Headline:    req.Headline,
		Description: req.Description,
		Tags:        req.Tags,
		AuthorID:    uid,
	}
	if err := h.store.CreateIdea(r.Context(), &idea); err != nil {
		h.storeError(w, r, err)
		return
	}
	metrics.IdeasCreated.Inc()
	writeJSON(w, http.StatusCreated, idea)
}

// ListIdeas serves the feed. ?q= filters by search; ?mine=1 and ?liked=1
// narrow to the caller's own or liked ideas and require authentication.
// The plain feed and its search run over the loaded snapshot, not the
// database, matching how the trending view sees the world.
func (h *Handler) ListIdeas(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	uid, logged := h.sessions.CurrentUserID(r)

	var (
		ideas []models.Idea
		err   error
	)
	switch {
	case r.URL.Query().Get("mine") == "1":
		if !logged {
			h.error(w, http.StatusUnauthorized, "authentication required")
			return
		}
		ideas, err = h.store.IdeasByAuthor(r.Context(), uid)
	case r.URL.Query().Get("liked") == "1":
		if !logged {
			h.error(w, http.StatusUnauthorized, "authentication required")
			return
		}
		ideas, err = h.store.LikedIdeas(r.Context(), uid)
	default:
		ideas = h.col.Snapshot()
	}
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feed.Search(ideas, q))
}

func (h *Handler) IdeaByID(w http.ResponseWriter, r *http.Request) {
	idea, err := h.store.IdeaByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		h.error(w, http.StatusNotFound, "idea not found")
		return
	}
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, idea)
}

func (h *Handler) Trending(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.col.Trending(time.Now()))
}

// -------- Likes

func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	uid, _ := h.sessions.CurrentUserID(r)
	err := h.store.Like(r.Context(), uid, r.PathValue("id"))
	switch {
	case errors.Is(err, store.ErrAlreadyLiked):
		h.error(w, http.StatusConflict, "already liked")
		return
	case errors.Is(err, store.ErrNotFound):
		h.error(w, http.StatusNotFound, "idea not found")
		return
	case err != nil:
		h.storeError(w, r, err)
		return
	}
	metrics.Likes.WithLabelValues("like").Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Unlike(w http.ResponseWriter, r *http.Request) {
	uid, _ := h.sessions.CurrentUserID(r)
	err := h.store.Unlike(r.Context(), uid, r.PathValue("id"))
	switch {
	case errors.Is(err, store.ErrNotLiked):
		h.error(w, http.StatusConflict, "not liked")
		return
	case err != nil:
		h.storeError(w, r, err)
		return
	}
	metrics.Likes.WithLabelValues("unlike").Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HasLiked(w http.ResponseWriter, r *http.Request) {
	uid, _ := h.sessions.CurrentUserID(r)
	liked, err := h.store.HasLiked(r.Context(), uid, r.PathValue("id"))
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"liked": liked})
}

// -------- Comments

type createCommentRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}

func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	uid, _ := h.sessions.CurrentUserID(r)

	var req createCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if err := h.validate.Struct(req); err != nil {
		h.error(w, http.StatusBadRequest, "empty comments are not allowed")
		return
	}

	comment := models.Comment{
		IdeaID:   r.PathValue("id"),
		AuthorID: uid,
		Content:  req.Content,
	}
	err := h.store.CreateComment(r.Context(), &comment)
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.error(w, http.StatusNotFound, "idea not found")
		return
	case err != nil:
		h.storeError(w, r, err)
		return
	}
	metrics.CommentsCreated.Inc()
	writeJSON(w, http.StatusCreated, comment)
}

func (h *Handler) Comments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.store.CommentsByIdea(r.Context(), r.PathValue("id"))
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// -------- Clicks

func (h *Handler) Click(w http.ResponseWriter, r *http.Request) {
	uid, _ := h.sessions.CurrentUserID(r)
	err := h.store.RecordClick(r.Context(), r.PathValue("id"), uid)
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.error(w, http.StatusNotFound, "idea not found")
		return
	case err != nil:
		h.storeError(w, r, err)
		return
	}
	metrics.ClicksRecorded.Inc()
	w.WriteHeader(http.StatusNoContent)
}

// -------- Realtime

// Stream delivers the feed as server-sent events: one snapshot event on
// connect, then one per change, each carrying the entire current idea set.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.error(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	sub := h.hub.Subscribe()
	if sub == nil {
		h.error(w, http.StatusServiceUnavailable, "shutting down")
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if err := writeSnapshotEvent(w, h.col.Snapshot()); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case snapshot, open := <-sub.Updates():
			if !open {
				return
			}
			if err := writeSnapshotEvent(w, snapshot); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSnapshotEvent(w http.ResponseWriter, snapshot []models.Idea) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	_, err = w.Write([]byte("event: snapshot\ndata: " + string(data) + "\n\n"))
	return err
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// -------- Helpers

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) error(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// storeError logs a store failure and surfaces it as a transient error. It
// never takes the process down; the feed keeps serving the last good
// snapshot.
func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Error("store error", zap.String("path", r.URL.Path), zap.Error(err))
	h.error(w, http.StatusInternalServerError, "temporary storage error, try again")
}

// --- password helpers (bcrypt) ---
func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}
func CheckPassword(pw, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
