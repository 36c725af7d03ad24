package store

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/inkpost/apiserver/types"
)

// BadgerUserRepository implements user persistence on badger.
// Email uniqueness is kept by a secondary key pointing at the user id.
type BadgerUserRepository struct {
	db *badger.DB
}

func (r *BadgerUserRepository) GetByID(ctx context.Context, id types.UserID) (types.User, error) {
	var doc userDocument
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, userKey(id), &doc)
	})
	if err != nil {
		return types.User{}, err
	}
	return doc.user(), nil
}

func (r *BadgerUserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	var doc userDocument
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userEmailKey(email))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		id, err := types.ParseUserID(string(raw))
		if err != nil {
			return err
		}
		return getJSON(txn, userKey(id), &doc)
	})
	if err != nil {
		return types.User{}, err
	}
	return doc.user(), nil
}

// Create stores a new user. A taken email yields ErrDuplicate.
func (r *BadgerUserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now().UTC()
	if user.ID.IsZero() {
		user.ID = types.NewUserID()
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	err := r.db.Update(func(txn *badger.Txn) error {
		taken, err := exists(txn, userEmailKey(user.Email))
		if err != nil {
			return err
		}
		if taken {
			return ErrDuplicate
		}
		if err := txn.Set(userEmailKey(user.Email), []byte(user.ID.String())); err != nil {
			return err
		}
		return setJSON(txn, userKey(user.ID), newUserDocument(user))
	})
	if errors.Is(err, badger.ErrConflict) {
		// A concurrent registration touched the same email key first.
		return types.User{}, ErrDuplicate
	}
	if err != nil {
		return types.User{}, err
	}
	return user, nil
}

// UpdateToken records the most recently issued token for a user.
func (r *BadgerUserRepository) UpdateToken(ctx context.Context, id types.UserID, token string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		var doc userDocument
		if err := getJSON(txn, userKey(id), &doc); err != nil {
			return err
		}
		doc.Token = token
		doc.UpdatedAt = time.Now().UTC()
		return setJSON(txn, userKey(id), doc)
	})
}

func newUserDocument(user types.User) userDocument {
	return userDocument{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Token:        user.Token,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func (d userDocument) user() types.User {
	return types.User{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Token:        d.Token,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}
