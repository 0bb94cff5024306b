package main

import (
	"errors"
	"fmt"

	"github.com/moklem/tv-herren-bereich/internal/config"
	mongostorage "github.com/moklem/tv-herren-bereich/internal/storage/mongo"
	sqlstorage "github.com/moklem/tv-herren-bereich/internal/storage/sql"
	"github.com/moklem/tv-herren-bereich/internal/storagebuilder"
)

type Config struct {
	StorageType string `env:"EVENTS_STORAGE_TYPE,required,notEmpty"`
	DBDriver    string `env:"EVENTS_DB_DRIVER" envDefault:"postgres"`
	DBHost      string `env:"EVENTS_DB_HOST" envDefault:"127.0.0.1"`
	DBPort      int    `env:"EVENTS_DB_PORT" envDefault:"5432"`
	DBName      string `env:"EVENTS_DB_NAME" envDefault:"events"`
	DBUser      string `env:"EVENTS_DB_USER"`
	DBPassword  string `env:"EVENTS_DB_PASSWORD"`
	MongoURI    string `env:"EVENTS_MONGO_URI" envDefault:"mongodb://127.0.0.1:27017"`
	MongoDB     string `env:"EVENTS_MONGO_DATABASE" envDefault:"events"`
	LogLevel    string `env:"EVENTS_LOG_LEVEL" envDefault:"WARN"`
}

var errNotPersistent = errors.New("storage is not persistent")

func NewConfig() (Config, error) {
	var c Config
	if err := config.FromEnv(&c); err != nil {
		return c, err
	}
	if c.StorageType == storagebuilder.TypeMemory {
		return c, fmt.Errorf("storage type %q: %w", c.StorageType, errNotPersistent)
	}
	return c, nil
}

func (c Config) storage() storagebuilder.Config {
	return storagebuilder.Config{
		StorageType: c.StorageType,
		Database: sqlstorage.Config{
			Driver:   c.DBDriver,
			Host:     c.DBHost,
			Port:     c.DBPort,
			Database: c.DBName,
			Username: c.DBUser,
			Password: c.DBPassword,
		},
		Mongo: mongostorage.Config{URI: c.MongoURI, Database: c.MongoDB},
	}
}
