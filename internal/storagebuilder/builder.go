package storagebuilder

import (
	"context"
	"fmt"
	"time"

	"github.com/moklem/tv-herren-bereich/internal/storage"
	memorystorage "github.com/moklem/tv-herren-bereich/internal/storage/memory"
	mongostorage "github.com/moklem/tv-herren-bereich/internal/storage/mongo"
	sqlstorage "github.com/moklem/tv-herren-bereich/internal/storage/sql"
)

const (
	TypeMemory = "memory"
	TypeSQL    = "sql"
	TypeMongo  = "mongo"

	connectTimeout = 15 * time.Second
)

type Config struct {
	StorageType string
	Database    sqlstorage.Config
	Mongo       mongostorage.Config
}

func New(config Config) (storage.Storage, error) {
	switch config.StorageType {
	case TypeMemory:
		return memorystorage.New(), nil
	case TypeSQL:
		s := sqlstorage.New(config.Database)
		if err := connect(s); err != nil {
			return nil, fmt.Errorf("failed to connect to database %s %s:%d: %w",
				config.Database.Driver, config.Database.Host, config.Database.Port, err)
		}
		return s, nil
	case TypeMongo:
		s := mongostorage.New(config.Mongo)
		if err := connect(s); err != nil {
			return nil, fmt.Errorf("failed to connect to mongo database %s: %w", config.Mongo.Database, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage type %s", config.StorageType)
	}
}

func connect(s storage.Storage) error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return s.Connect(ctx)
}
