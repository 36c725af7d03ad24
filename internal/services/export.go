package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/inkpost/apiserver/internal/store"
	"github.com/inkpost/apiserver/types"
)

const (
	exportPageSize = 100
	exportPrefix   = "exports/"
)

// ObjectStore is the subset of object storage the exporter writes to.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Bucket() string
}

// ExportService writes JSON snapshots of every post to object storage.
type ExportService struct {
	posts   PostRepository
	objects ObjectStore
	now     func() time.Time
}

func NewExportService(posts PostRepository, objects ObjectStore) *ExportService {
	return &ExportService{posts: posts, objects: objects, now: time.Now}
}

// ExportResult identifies an uploaded snapshot.
type ExportResult struct {
	Bucket string
	Key    string
	Count  int
}

type postSnapshot struct {
	ExportedAt time.Time    `json:"exported_at"`
	Total      int          `json:"total"`
	Posts      []types.Post `json:"posts"`
}

// Export pages through all posts, newest first, and uploads them as one JSON
// document under exports/.
func (s *ExportService) Export(ctx context.Context) (ExportResult, error) {
	exportedAt := s.now().UTC()

	posts := make([]types.Post, 0, exportPageSize)
	for offset := 0; ; offset += exportPageSize {
		batch, err := s.posts.List(ctx, store.PostFilter{}, offset, exportPageSize)
		if err != nil {
			return ExportResult{}, fmt.Errorf("list posts: %w", err)
		}
		posts = append(posts, batch...)
		if len(batch) < exportPageSize {
			break
		}
	}

	data, err := json.Marshal(postSnapshot{
		ExportedAt: exportedAt,
		Total:      len(posts),
		Posts:      posts,
	})
	if err != nil {
		return ExportResult{}, fmt.Errorf("encode snapshot: %w", err)
	}

	key := fmt.Sprintf("%sposts-%d.json", exportPrefix, exportedAt.Unix())
	if err := s.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return ExportResult{}, fmt.Errorf("upload snapshot: %w", err)
	}

	return ExportResult{Bucket: s.objects.Bucket(), Key: key, Count: len(posts)}, nil
}

// Open returns a reader for a snapshot previously written by Export.
func (s *ExportService) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	key = strings.TrimSpace(key)
	if !strings.HasPrefix(key, exportPrefix) {
		key = exportPrefix + key
	}
	return s.objects.Get(ctx, key)
}
