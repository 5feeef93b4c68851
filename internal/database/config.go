package database

import (
	"fmt"

	"github.com/mitchellh/go-homedir"
)

const (
	SQLITE   = "sqlite3"
	POSTGRES = "postgres"

	SqliteConnectionParams   = "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	PostgresConnectionString = "host=%s user=%s password=%s dbname=%s port=%s sslmode=disable"
)

// DatabaseConfig is a subset of the configuration focusing solely
// on database connection items. The file-backed sqlite store is used unless
// the dialect is set to postgres.
type DatabaseConfig struct {
	Dialect  string `yaml:"dialect" env:"DB_DIALECT" env-default:"sqlite3"`
	Path     string `yaml:"path" env:"DB_PATH" env-default:"~/Downloads/YouTube/youtube_library.db"`
	User     string `yaml:"username" env:"DB_USERNAME"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	Name     string `yaml:"name" env:"DB_NAME" env-default:"MNEMO_DB"`
	Host     string `yaml:"host" env:"DB_HOST" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"DB_PORT" env-default:"5432"`
}

// dsn returns the driver name and data source name for this configuration.
func (config DatabaseConfig) dsn() (string, string, error) {
	switch config.Dialect {
	case SQLITE, "":
		path, err := config.SqlitePath()
		if err != nil {
			return "", "", err
		}

		return SQLITE, path + SqliteConnectionParams, nil
	case POSTGRES:
		return POSTGRES, fmt.Sprintf(PostgresConnectionString, config.Host, config.User, config.Password, config.Name, config.Port), nil
	}

	return "", "", fmt.Errorf("database dialect '%s' is not supported", config.Dialect)
}

// SqlitePath returns the path of the sqlite database file with any
// leading '~' expanded to the users home directory.
func (config DatabaseConfig) SqlitePath() (string, error) {
	path, err := homedir.Expand(config.Path)
	if err != nil {
		return "", fmt.Errorf("failed to expand database path '%s': %w", config.Path, err)
	}

	return path, nil
}
