package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"files-kraken/core/backup"
	"files-kraken/core/database"
	"files-kraken/core/docstore"
	"files-kraken/core/logger"
	"files-kraken/core/monitor"
	"files-kraken/core/server"
	"files-kraken/core/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileName is the optional YAML config file looked up next to .env.
const FileName = "files-kraken.yaml"

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Schemas is the path of the schema definition file.
	Schemas string `mapstructure:"schemas" default:"schemas.yaml"`
	// Watch holds configuration for the monitored directory.
	Watch monitor.Config `mapstructure:"watch"`
	// Docstore selects where records are persisted.
	Docstore docstore.Config `mapstructure:"docstore"`
	// Backup selects where watcher snapshots are kept.
	Backup backup.Config `mapstructure:"backup"`
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the object storage (e.g., S3, Minio).
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the SQL docstore backend.
	Database database.Config `mapstructure:"database"`
}

// LoadConfig loads configuration from the YAML file, the .env file and environment variables,
// in increasing order of precedence.
func LoadConfig(path string) (*Config, error) {
	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(filepath.Join(path, ".env"))

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	configFile := filepath.Join(path, FileName)
	if _, err := os.Stat(configFile); err == nil {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	// Map environment variables to nested keys (e.g. WATCH_ROOT -> watch.root)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		// Build the key
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
