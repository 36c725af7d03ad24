package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/inkpost/apiserver/internal/services"
	"github.com/inkpost/apiserver/types"
)

// PostHandler provides HTTP handlers for posts.
type PostHandler struct {
	postService *services.PostService
	logger      *slog.Logger
}

// NewPostHandler constructs a PostHandler with the provided service.
func NewPostHandler(postService *services.PostService, logger *slog.Logger) *PostHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostHandler{postService: postService, logger: logger}
}

// PostRouter registers post routes on the given router. authMiddleware guards
// every route that creates, edits, removes or lists the caller's own posts.
func PostRouter(
	r chi.Router,
	postService *services.PostService,
	authMiddleware func(http.Handler) http.Handler,
	logger *slog.Logger,
) {
	handler := NewPostHandler(postService, logger)

	r.Get("/list", handler.ListPosts)
	r.Get("/details/{postID}", handler.GetPost)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/create", handler.CreatePost)
		r.Put("/update/{postID}", handler.UpdatePost)
		r.Delete("/remove/{postID}", handler.DeletePost)
		r.Get("/user-posts", handler.ListUserPosts)
	})
}

type CreatePostRequest struct {
	Title   string `json:"title" validate:"required,max=300"`
	Content string `json:"content" validate:"required"`
}

type UpdatePostRequest struct {
	Title   string `json:"title" validate:"max=300"`
	Content string `json:"content"`
}

func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	page, err := h.postService.List(r.Context(), queryInt(r, "page"), queryInt(r, "limit"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Posts fetched successfully",
		Meta:    &page.Meta,
		Data:    nonNilPosts(page.Posts),
	})
}

func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := parsePostID(w, r)
	if !ok {
		return
	}

	post, err := h.postService.Details(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: post})
}

func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req CreatePostRequest
	if err := decodeJSON(w, r, &req, "Please fill all the fields"); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	post, err := h.postService.Create(r.Context(), identity.UserID, req.Title, req.Content)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, Response{Success: true, Message: "Post created", Data: post})
}

func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, ok := parsePostID(w, r)
	if !ok {
		return
	}

	var req UpdatePostRequest
	if err := decodeJSON(w, r, &req, "Please fill all the fields"); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	post, err := h.postService.Update(r.Context(), identity.UserID, id, services.PostUpdate{
		Title:   req.Title,
		Content: req.Content,
	})
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Post updated", Data: post})
}

func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, ok := parsePostID(w, r)
	if !ok {
		return
	}

	if err := h.postService.Delete(r.Context(), identity.UserID, id); err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Post deleted successfully"})
}

func (h *PostHandler) ListUserPosts(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	page, err := h.postService.ListByAuthor(r.Context(), identity.UserID, queryInt(r, "page"), queryInt(r, "limit"))
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Meta:    &page.Meta,
		Data:    nonNilPosts(page.Posts),
	})
}

func (h *PostHandler) identity(w http.ResponseWriter, r *http.Request) (types.Identity, bool) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return types.Identity{}, false
	}
	return identity, true
}

// parsePostID reads the post id path parameter. A malformed id cannot match
// any post, so it is answered as not found.
func parsePostID(w http.ResponseWriter, r *http.Request) (types.PostID, bool) {
	id, err := types.ParsePostID(chi.URLParam(r, "postID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Post not found")
		return types.PostID{}, false
	}
	return id, true
}

func nonNilPosts(posts []types.Post) []types.Post {
	if posts == nil {
		return []types.Post{}
	}
	return posts
}
