package database

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Column is one table column. Name and Type are lowercased.
type Column struct {
	Name string
	Type string
}

// TableColumns returns the columns of table in declaration order.
// A missing table yields no columns on sqlite and postgres.
func TableColumns(db *gorm.DB, table string) ([]Column, error) {
	var (
		columns []Column
		err     error
	)
	switch db.Dialector.Name() {
	case "sqlite":
		// PRAGMA table_info exposes name and type columns directly
		err = db.Raw(fmt.Sprintf("PRAGMA table_info('%s')", table)).Scan(&columns).Error
	case "postgres":
		err = db.Raw(`SELECT column_name AS name, data_type AS type FROM information_schema.columns WHERE table_name = ? ORDER BY ordinal_position`, table).
			Scan(&columns).Error
	default:
		var shown []struct {
			Field string
			Type  string
		}
		err = db.Raw(fmt.Sprintf("SHOW COLUMNS FROM `%s`", table)).Scan(&shown).Error
		for _, c := range shown {
			columns = append(columns, Column{Name: c.Field, Type: c.Type})
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get columns for table %s: %w", table, err)
	}

	for i := range columns {
		columns[i].Name = strings.ToLower(columns[i].Name)
		columns[i].Type = strings.ToLower(columns[i].Type)
	}
	return columns, nil
}

// RequireColumns fails unless table has every named column.
func RequireColumns(db *gorm.DB, table string, names ...string) error {
	columns, err := TableColumns(db, table)
	if err != nil {
		return err
	}
	found := make(map[string]bool, len(columns))
	for _, c := range columns {
		found[c.Name] = true
	}
	for _, name := range names {
		if !found[strings.ToLower(name)] {
			return fmt.Errorf("table %s is missing column %s", table, name)
		}
	}
	return nil
}
