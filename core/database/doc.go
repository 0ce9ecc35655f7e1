// Package database handles database connections and schema inspection.
//
// It wraps GORM to open MySQL, PostgreSQL or SQLite connections from the application's
// configuration. The document store's SQL backend is the main consumer.
//
// # Schema Inspection
//
// TableColumns lists a table's columns for every supported dialect. RequireColumns builds on it;
// the SQL document store calls it after migration to verify the blueprints table.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	err = database.RequireColumns(db, "blueprints", "schema_name", "id", "body")
package database
