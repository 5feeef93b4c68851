package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hbomb79/Mnemo/internal/api"
	"github.com/hbomb79/Mnemo/internal/database"
	"github.com/hbomb79/Mnemo/internal/download"
	"github.com/hbomb79/Mnemo/internal/frames"
	"github.com/hbomb79/Mnemo/pkg/logger"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/mitchellh/go-homedir"
)

const (
	MNEMO_USER_DIR_SUFFIX = "mnemo"
	CONFIG_FILE_NAME      = "config.yaml"
)

// MnemoConfig is the struct used to contain the
// various user config supplied by file, or
// by environment variables.
type MnemoConfig struct {
	Database database.DatabaseConfig `yaml:"database"`
	Download download.Config         `yaml:"download"`
	Frames   frames.Config           `yaml:"frames"`
	RestAPI  api.RestConfig          `yaml:"api"`
	LogLevel string                  `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
}

// LoadConfig reads the YAML configuration at the path provided, with environment
// variables taking precedence. If the path is empty, the default config path is
// used; a default config file which does not exist is not an error, and the config
// is populated using only the environment and defaults.
func LoadConfig(configPath string) (*MnemoConfig, error) {
	config := &MnemoConfig{}
	if configPath == "" {
		configPath = DefaultConfigPath()
		if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
			if err := cleanenv.ReadEnv(config); err != nil {
				return nil, fmt.Errorf("failed to load configuration from environment: %w", err)
			}

			return config, config.expandPaths()
		}
	}

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, err
	}

	return config, config.expandPaths()
}

// Loads a configuration file formatted in YAML in to a
// MnemoConfig struct
func (config *MnemoConfig) LoadFromFile(configPath string) error {
	path, err := homedir.Expand(configPath)
	if err != nil {
		return fmt.Errorf("failed to expand config path '%s': %w", configPath, err)
	}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return fmt.Errorf("failed to load configuration from '%s': %w", path, err)
	}

	return nil
}

// ApplyLogLevel sets the minimum logging level to the level named in the config.
func (config *MnemoConfig) ApplyLogLevel() error {
	level, err := logger.ParseLevel(config.LogLevel)
	if err != nil {
		return err
	}

	logger.SetMinLoggingLevel(level.Level())
	return nil
}

func (config *MnemoConfig) expandPaths() error {
	for _, path := range []*string{&config.Download.DestinationDir, &config.Frames.OutputDir} {
		expanded, err := homedir.Expand(*path)
		if err != nil {
			return fmt.Errorf("failed to expand path '%s': %w", *path, err)
		}

		*path = expanded
	}

	return nil
}

// DefaultConfigPath returns the path of the config file used when none
// is specified. If the user config directory cannot be derived, a path
// relative to the working directory is returned.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return CONFIG_FILE_NAME
	}

	return filepath.Join(dir, MNEMO_USER_DIR_SUFFIX, CONFIG_FILE_NAME)
}
