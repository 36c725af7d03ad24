package server

import (
	"context"
	"fmt"

	"github.com/inkpost/apiserver/config"
	"github.com/inkpost/apiserver/internal/db"
	"github.com/inkpost/apiserver/internal/services"
	"github.com/inkpost/apiserver/internal/store"
)

// Repositories bundles the user and post stores of one backend.
type Repositories struct {
	Users services.UserRepository
	Posts services.PostRepository
	close func() error
}

// Close releases the backend connection.
func (r Repositories) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

// OpenRepositories opens the store backend selected by cfg.StoreBackend.
func OpenRepositories(ctx context.Context, cfg config.Config) (Repositories, error) {
	switch cfg.StoreBackend {
	case config.StoreBadger:
		bdb, err := store.OpenBadger(cfg.Badger.Dir)
		if err != nil {
			return Repositories{}, fmt.Errorf("open badger: %w", err)
		}
		return Repositories{Users: bdb.Users(), Posts: bdb.Posts(), close: bdb.Close}, nil
	case config.StorePostgres, "":
		dbConn, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return Repositories{}, err
		}
		return Repositories{
			Users: store.NewUserRepository(dbConn),
			Posts: store.NewPostRepository(dbConn),
			close: dbConn.Close,
		}, nil
	default:
		return Repositories{}, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}
}
