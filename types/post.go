package types

import "time"

// Post is a blog entry owned by exactly one user.
//
// The JSON form keeps the field names the web client was built against:
// the id is "_id" and the author is populated under "author_id".
type Post struct {
	// ID is the unique identifier of the post.
	ID PostID `json:"_id" db:"id"`

	// Title is the non-empty headline of the post.
	Title string `json:"title" db:"title"`

	// Content is the post body. It may contain markup and is stored verbatim.
	Content string `json:"content" db:"content"`

	// AuthorID references the owning user.
	AuthorID UserID `json:"-" db:"author_id"`

	// Author is the owning user's public profile, resolved on read.
	Author Author `json:"author_id"`

	// CreatedAt is the creation timestamp and the default sort key.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent edit.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Author is the public view of a post's owner.
type Author struct {
	ID    UserID `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
