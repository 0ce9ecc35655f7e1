package docstore

import (
	"fmt"

	"files-kraken/core/database"
)

// Open returns the backend named by cfg.Backend.
// The sql backend connects with dbCfg and migrates its table.
func Open(cfg Config, dbCfg database.Config) (Store, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(), nil
	case "sql", "":
		db, err := database.Connect(dbCfg)
		if err != nil {
			return nil, err
		}
		store := NewSQLStore(db)
		if err := store.Migrate(); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	case "consul":
		return NewConsulStore(cfg.Consul)
	default:
		return nil, fmt.Errorf("unknown docstore backend %q", cfg.Backend)
	}
}
