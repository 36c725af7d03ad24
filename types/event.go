package types

import "time"

// PostEventType names a post lifecycle transition.
type PostEventType string

// Supported post event types.
const (
	PostCreated PostEventType = "post.created"
	PostUpdated PostEventType = "post.updated"
	PostDeleted PostEventType = "post.deleted"
)

// PostEvent is published to the message broker after a post changes.
type PostEvent struct {
	Type       PostEventType `json:"type"`
	PostID     PostID        `json:"post_id"`
	AuthorID   UserID        `json:"author_id"`
	OccurredAt time.Time     `json:"occurred_at"`
}
