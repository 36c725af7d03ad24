package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/inkpost/apiserver/types"
)

// PostFilter narrows post listings. The zero value matches every post.
type PostFilter struct {
	AuthorID types.UserID
}

func (f PostFilter) authorArg() any {
	if f.AuthorID.IsZero() {
		return nil
	}
	return f.AuthorID
}

// PostRepository handles persistence for posts.
type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{db: db}
}

const postSelect = `
		SELECT p.id, p.title, p.content, p.author_id, u.name, u.email, p.created_at, p.updated_at
		FROM posts p
		JOIN users u ON u.id = p.author_id`

// List returns a window of posts, newest first, with authors resolved.
func (r *PostRepository) List(ctx context.Context, filter PostFilter, offset, limit int) ([]types.Post, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 10
	}

	const query = postSelect + `
		WHERE ($1::uuid IS NULL OR p.author_id = $1::uuid)
		ORDER BY p.created_at DESC, p.id DESC
		OFFSET $2 LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, filter.authorArg(), offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]types.Post, 0, limit)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}

// Count returns the number of posts matching the filter.
func (r *PostRepository) Count(ctx context.Context, filter PostFilter) (int, error) {
	const query = `
		SELECT COUNT(1)
		FROM posts
		WHERE ($1::uuid IS NULL OR author_id = $1::uuid)`
	var total int
	if err := r.db.QueryRowContext(ctx, query, filter.authorArg()).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *PostRepository) Get(ctx context.Context, id types.PostID) (types.Post, error) {
	const query = postSelect + `
		WHERE p.id = $1`
	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Post{}, ErrNotFound
		}
		return types.Post{}, err
	}
	return post, nil
}

// Create inserts a post. An author that does not exist yields ErrNotFound.
func (r *PostRepository) Create(ctx context.Context, post types.Post) (types.Post, error) {
	now := time.Now().UTC()
	if post.ID.IsZero() {
		post.ID = types.NewPostID()
	}
	post.CreatedAt = now
	post.UpdatedAt = now

	const query = `
		INSERT INTO posts (id, title, content, author_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		post.ID,
		post.Title,
		post.Content,
		post.AuthorID,
		post.CreatedAt,
		post.UpdatedAt,
	)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return types.Post{}, ErrNotFound
		}
		return types.Post{}, err
	}
	return r.Get(ctx, post.ID)
}

// Update overwrites the title and content of an existing post.
func (r *PostRepository) Update(ctx context.Context, post types.Post) (types.Post, error) {
	post.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE posts
		SET title = $1,
			content = $2,
			updated_at = $3
		WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, post.Title, post.Content, post.UpdatedAt, post.ID)
	if err != nil {
		return types.Post{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Post{}, err
	}
	if affected == 0 {
		return types.Post{}, ErrNotFound
	}
	return r.Get(ctx, post.ID)
}

func (r *PostRepository) Delete(ctx context.Context, id types.PostID) error {
	const query = `DELETE FROM posts WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (types.Post, error) {
	var post types.Post
	err := row.Scan(
		&post.ID,
		&post.Title,
		&post.Content,
		&post.AuthorID,
		&post.Author.Name,
		&post.Author.Email,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return types.Post{}, err
	}
	post.Author.ID = post.AuthorID
	return post, nil
}
