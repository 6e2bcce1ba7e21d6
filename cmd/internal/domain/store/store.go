package store

import (
	"context"
	"fmt"

	"notekeeper/cmd/internal/domain/entity"
	"notekeeper/cmd/internal/domain/mongodb"
	mongorepo "notekeeper/cmd/internal/domain/mongodb/repository"
	"notekeeper/cmd/internal/domain/sqldb"
	sqlrepo "notekeeper/cmd/internal/domain/sqldb/repository"

	"github.com/labstack/gommon/log"
)

const DriverMongo = "mongo"

// NoteRepository is implemented by every backend. Lookups that match no
// (id, owner) pair return a nil note and a nil error.
type NoteRepository interface {
	FindAllByOwner(ctx context.Context, ownerID string) ([]*entity.Note, error)
	Create(ctx context.Context, note *entity.Note) error
	UpdateOwned(ctx context.Context, id, ownerID string, patch *entity.NotePatch) (*entity.Note, error)
	DeleteOwned(ctx context.Context, id, ownerID string) (*entity.Note, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type Config struct {
	Driver        string
	URL           string
	MongoDatabase string
}

// Open connects the configured backend. It is meant to be called once at
// startup; the returned repository is shared by every request.
func Open(ctx context.Context, cfg *Config) (NoteRepository, error) {
	switch cfg.Driver {
	case sqldb.DriverSQLite, sqldb.DriverMySQL:
		db, err := sqldb.Init(cfg.Driver, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("opening %s store: %w", cfg.Driver, err)
		}
		log.Infof("%s note store ready", cfg.Driver)
		return sqlrepo.NewNoteRepository(db), nil

	case DriverMongo:
		_, coll, err := mongodb.Init(ctx, cfg.URL, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("opening mongo store: %w", err)
		}
		log.Infof("mongo note store ready (database %s)", cfg.MongoDatabase)
		return mongorepo.NewNoteRepository(coll), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
