package store

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/inkpost/apiserver/types"
)

// BadgerPostRepository implements post persistence on badger.
// Listing scans the post prefix and orders in memory.
type BadgerPostRepository struct {
	db *badger.DB
}

// List returns a window of posts, newest first, with authors resolved.
func (r *BadgerPostRepository) List(ctx context.Context, filter PostFilter, offset, limit int) ([]types.Post, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 10
	}

	var posts []types.Post
	err := r.db.View(func(txn *badger.Txn) error {
		docs, err := scanPosts(txn, filter)
		if err != nil {
			return err
		}
		sort.Slice(docs, func(i, j int) bool {
			if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
				return docs[i].CreatedAt.After(docs[j].CreatedAt)
			}
			return bytes.Compare(docs[i].ID[:], docs[j].ID[:]) > 0
		})

		if offset >= len(docs) {
			posts = []types.Post{}
			return nil
		}
		end := offset + limit
		if end > len(docs) {
			end = len(docs)
		}

		posts = make([]types.Post, 0, end-offset)
		authors := make(map[types.UserID]types.Author)
		for _, doc := range docs[offset:end] {
			post, err := resolveAuthor(txn, doc, authors)
			if err != nil {
				return err
			}
			posts = append(posts, post)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// Count returns the number of posts matching the filter.
func (r *BadgerPostRepository) Count(ctx context.Context, filter PostFilter) (int, error) {
	var total int
	err := r.db.View(func(txn *badger.Txn) error {
		docs, err := scanPosts(txn, filter)
		if err != nil {
			return err
		}
		total = len(docs)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *BadgerPostRepository) Get(ctx context.Context, id types.PostID) (types.Post, error) {
	var post types.Post
	err := r.db.View(func(txn *badger.Txn) error {
		var doc postDocument
		if err := getJSON(txn, postKey(id), &doc); err != nil {
			return err
		}
		var err error
		post, err = resolveAuthor(txn, doc, nil)
		return err
	})
	if err != nil {
		return types.Post{}, err
	}
	return post, nil
}

// Create stores a post. An author that does not exist yields ErrNotFound.
func (r *BadgerPostRepository) Create(ctx context.Context, post types.Post) (types.Post, error) {
	now := time.Now().UTC()
	if post.ID.IsZero() {
		post.ID = types.NewPostID()
	}
	post.CreatedAt = now
	post.UpdatedAt = now

	err := r.db.Update(func(txn *badger.Txn) error {
		ok, err := exists(txn, userKey(post.AuthorID))
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		return setJSON(txn, postKey(post.ID), newPostDocument(post))
	})
	if err != nil {
		return types.Post{}, err
	}
	return r.Get(ctx, post.ID)
}

// Update overwrites the title and content of an existing post.
func (r *BadgerPostRepository) Update(ctx context.Context, post types.Post) (types.Post, error) {
	err := r.db.Update(func(txn *badger.Txn) error {
		var doc postDocument
		if err := getJSON(txn, postKey(post.ID), &doc); err != nil {
			return err
		}
		doc.Title = post.Title
		doc.Content = post.Content
		doc.UpdatedAt = time.Now().UTC()
		return setJSON(txn, postKey(post.ID), doc)
	})
	if err != nil {
		return types.Post{}, err
	}
	return r.Get(ctx, post.ID)
}

func (r *BadgerPostRepository) Delete(ctx context.Context, id types.PostID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		ok, err := exists(txn, postKey(id))
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		return txn.Delete(postKey(id))
	})
}

func scanPosts(txn *badger.Txn, filter PostFilter) ([]postDocument, error) {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	var docs []postDocument
	prefix := []byte(postKeyPrefix)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var doc postDocument
		err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
		if err != nil {
			return nil, err
		}
		if !filter.AuthorID.IsZero() && doc.AuthorID != filter.AuthorID {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// resolveAuthor joins a post document with its owner's public fields.
// cache may be nil.
func resolveAuthor(txn *badger.Txn, doc postDocument, cache map[types.UserID]types.Author) (types.Post, error) {
	author, ok := cache[doc.AuthorID]
	if !ok {
		var user userDocument
		if err := getJSON(txn, userKey(doc.AuthorID), &user); err != nil {
			return types.Post{}, err
		}
		author = types.Author{ID: user.ID, Name: user.Name, Email: user.Email}
		if cache != nil {
			cache[doc.AuthorID] = author
		}
	}
	return types.Post{
		ID:        doc.ID,
		Title:     doc.Title,
		Content:   doc.Content,
		AuthorID:  doc.AuthorID,
		Author:    author,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func newPostDocument(post types.Post) postDocument {
	return postDocument{
		ID:        post.ID,
		Title:     post.Title,
		Content:   post.Content,
		AuthorID:  post.AuthorID,
		CreatedAt: post.CreatedAt,
		UpdatedAt: post.UpdatedAt,
	}
}
