package store

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/inkpost/apiserver/types"
)

const (
	userKeyPrefix      = "user:"
	userEmailKeyPrefix = "user-email:"
	postKeyPrefix      = "post:"
)

// Badger is an embedded document store used for local development and tests.
// Users and posts are stored as JSON values under prefixed keys.
type Badger struct {
	db *badger.DB
}

// OpenBadger opens a badger database in dir. An empty dir keeps all data in memory.
func OpenBadger(dir string) (*Badger, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithNumVersionsToKeep(1)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Badger{db: db}, nil
}

// Close flushes and closes the database.
func (b *Badger) Close() error {
	return b.db.Close()
}

// Users returns the user repository backed by this database.
func (b *Badger) Users() *BadgerUserRepository {
	return &BadgerUserRepository{db: b.db}
}

// Posts returns the post repository backed by this database.
func (b *Badger) Posts() *BadgerPostRepository {
	return &BadgerPostRepository{db: b.db}
}

type userDocument struct {
	ID           types.UserID `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"password_hash"`
	Token        string       `json:"token"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

type postDocument struct {
	ID        types.PostID `json:"id"`
	Title     string       `json:"title"`
	Content   string       `json:"content"`
	AuthorID  types.UserID `json:"author_id"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func userKey(id types.UserID) []byte {
	return []byte(userKeyPrefix + id.String())
}

func userEmailKey(email string) []byte {
	return []byte(userEmailKeyPrefix + email)
}

func postKey(id types.PostID) []byte {
	return []byte(postKeyPrefix + id.String())
}

// getJSON decodes the value stored at key into dst.
func getJSON(txn *badger.Txn, key []byte, dst any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, dst)
	})
}

func setJSON(txn *badger.Txn, key []byte, src any) error {
	data, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
