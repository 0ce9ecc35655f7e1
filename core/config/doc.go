// Package config provides configuration management for files-kraken.
//
// It utilizes Viper for loading configuration from an optional files-kraken.yaml,
// a .env file and environment variables. Defaults come from the `default` struct
// tags of every section.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Watch: monitored root, directory and file filters, intervals
//   - Docstore: record backend (memory, sql, consul)
//   - Backup: snapshot backend (file, object, none)
//   - Database: SQL connection details for the sql backend
//   - Storage: S3/MinIO credentials and bucket settings
//   - Server: catalog API port, API key and cache lifetime
//   - Log: Logging level, format and optional file
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Watch.Root)
package config
