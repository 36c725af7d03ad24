package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/inkpost/apiserver/internal/store"
	"github.com/inkpost/apiserver/types"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	List(ctx context.Context, filter store.PostFilter, offset, limit int) ([]types.Post, error)
	Count(ctx context.Context, filter store.PostFilter) (int, error)
	Get(ctx context.Context, id types.PostID) (types.Post, error)
	Create(ctx context.Context, post types.Post) (types.Post, error)
	Update(ctx context.Context, post types.Post) (types.Post, error)
	Delete(ctx context.Context, id types.PostID) error
}

// EventPublisher delivers post lifecycle events to a broker.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// PageMeta describes a window over an ordered collection.
type PageMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// PostPage is one page of posts plus its metadata.
type PostPage struct {
	Posts []types.Post
	Meta  PageMeta
}

// PostUpdate holds the fields of an edit. Empty or whitespace-only fields keep
// their stored value.
type PostUpdate struct {
	Title   string
	Content string
}

// PostService implements post use-cases and enforces ownership.
type PostService struct {
	repo    PostRepository
	events  EventPublisher
	channel string
	logger  *slog.Logger
	now     func() time.Time
}

// NewPostService constructs a PostService. events may be nil, in which case
// no lifecycle events are published.
func NewPostService(repo PostRepository, events EventPublisher, channel string, logger *slog.Logger) *PostService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostService{
		repo:    repo,
		events:  events,
		channel: channel,
		logger:  logger,
		now:     time.Now,
	}
}

// NormalizePage applies the listing defaults: a missing or non-positive page
// or limit takes its default, and limit is capped. page is capped so that the
// window offset (page-1)*limit stays representable.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if page > math.MaxInt/limit {
		page = math.MaxInt / limit
	}
	return page, limit
}

// List returns all posts, newest first.
func (s *PostService) List(ctx context.Context, page, limit int) (PostPage, error) {
	return s.list(ctx, store.PostFilter{}, page, limit)
}

// ListByAuthor returns the posts owned by authorID, newest first.
func (s *PostService) ListByAuthor(ctx context.Context, authorID types.UserID, page, limit int) (PostPage, error) {
	if authorID.IsZero() {
		return PostPage{}, newError(ErrUnauthorized, "Unauthorized, please check your login first")
	}
	return s.list(ctx, store.PostFilter{AuthorID: authorID}, page, limit)
}

func (s *PostService) list(ctx context.Context, filter store.PostFilter, page, limit int) (PostPage, error) {
	page, limit = NormalizePage(page, limit)
	offset := (page - 1) * limit

	var (
		posts []types.Post
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		posts, err = s.repo.List(gctx, filter, offset, limit)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.Count(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return PostPage{}, fmt.Errorf("list posts: %w", err)
	}

	return PostPage{
		Posts: posts,
		Meta: PageMeta{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
	}, nil
}

// Details returns a single post with its author resolved.
func (s *PostService) Details(ctx context.Context, id types.PostID) (types.Post, error) {
	post, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Post{}, newError(ErrNotFound, "Post not found")
		}
		return types.Post{}, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

// Create stores a new post owned by authorID.
func (s *PostService) Create(ctx context.Context, authorID types.UserID, title, content string) (types.Post, error) {
	if authorID.IsZero() {
		return types.Post{}, newError(ErrUnauthorized, "Unauthorized, please check your login first")
	}
	if strings.TrimSpace(title) == "" || strings.TrimSpace(content) == "" {
		return types.Post{}, newError(ErrValidation, "Please fill all the fields")
	}

	post, err := s.repo.Create(ctx, types.Post{
		Title:    title,
		Content:  content,
		AuthorID: authorID,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Post{}, newError(ErrNotFound, "Author not found")
		}
		return types.Post{}, fmt.Errorf("create post: %w", err)
	}

	s.publish(ctx, types.PostCreated, post)
	return post, nil
}

// Update edits a post owned by authorID. Blank fields in the update keep the
// stored value, so a post cannot be cleared through this call.
func (s *PostService) Update(ctx context.Context, authorID types.UserID, id types.PostID, in PostUpdate) (types.Post, error) {
	post, err := s.owned(ctx, authorID, id)
	if err != nil {
		return types.Post{}, err
	}

	if strings.TrimSpace(in.Title) != "" {
		post.Title = in.Title
	}
	if strings.TrimSpace(in.Content) != "" {
		post.Content = in.Content
	}

	updated, err := s.repo.Update(ctx, post)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Post{}, newError(ErrNotFound, "Post not found")
		}
		return types.Post{}, fmt.Errorf("update post: %w", err)
	}

	s.publish(ctx, types.PostUpdated, updated)
	return updated, nil
}

// Delete permanently removes a post owned by authorID.
func (s *PostService) Delete(ctx context.Context, authorID types.UserID, id types.PostID) error {
	post, err := s.owned(ctx, authorID, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return newError(ErrNotFound, "Post not found")
		}
		return fmt.Errorf("delete post: %w", err)
	}

	s.publish(ctx, types.PostDeleted, post)
	return nil
}

// owned loads a post and checks that authorID owns it.
func (s *PostService) owned(ctx context.Context, authorID types.UserID, id types.PostID) (types.Post, error) {
	if authorID.IsZero() {
		return types.Post{}, newError(ErrUnauthorized, "Unauthorized, please check your login first")
	}
	post, err := s.Details(ctx, id)
	if err != nil {
		return types.Post{}, err
	}
	if post.AuthorID != authorID {
		return types.Post{}, newError(ErrForbidden, "You can only modify your own posts")
	}
	return post, nil
}

func (s *PostService) publish(ctx context.Context, eventType types.PostEventType, post types.Post) {
	if s.events == nil {
		return
	}

	event := types.PostEvent{
		Type:       eventType,
		PostID:     post.ID,
		AuthorID:   post.AuthorID,
		OccurredAt: s.now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode post event", slog.Any("error", err))
		return
	}

	attrs := map[string]string{"type": string(eventType)}
	if _, err := s.events.Publish(ctx, s.channel, data, attrs); err != nil {
		s.logger.WarnContext(ctx, "failed to publish post event",
			slog.String("type", string(eventType)),
			slog.String("post_id", post.ID.String()),
			slog.Any("error", err),
		)
	}
}
