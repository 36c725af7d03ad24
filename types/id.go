package types

import (
	"database/sql/driver"

	"github.com/google/uuid"
)

// UserID uniquely identifies a user account.
type UserID uuid.UUID

// NewUserID generates a random UserID.
func NewUserID() UserID {
	return UserID(uuid.New())
}

// ParseUserID parses the canonical string form of a UserID.
func ParseUserID(s string) (UserID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(id), nil
}

func (id UserID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether the id was never assigned.
func (id UserID) IsZero() bool {
	return id == UserID{}
}

func (id UserID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

func (id *UserID) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(data)
}

func (id *UserID) Scan(src any) error {
	return (*uuid.UUID)(id).Scan(src)
}

func (id UserID) Value() (driver.Value, error) {
	return uuid.UUID(id).Value()
}

// PostID uniquely identifies a post.
type PostID uuid.UUID

// NewPostID generates a random PostID.
func NewPostID() PostID {
	return PostID(uuid.New())
}

// ParsePostID parses the canonical string form of a PostID.
func ParsePostID(s string) (PostID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return PostID{}, err
	}
	return PostID(id), nil
}

func (id PostID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether the id was never assigned.
func (id PostID) IsZero() bool {
	return id == PostID{}
}

func (id PostID) MarshalText() ([]byte, error) {
	return uuid.UUID(id).MarshalText()
}

func (id *PostID) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(data)
}

func (id *PostID) Scan(src any) error {
	return (*uuid.UUID)(id).Scan(src)
}

func (id PostID) Value() (driver.Value, error) {
	return uuid.UUID(id).Value()
}
