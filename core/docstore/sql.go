package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"files-kraken/core/database"

	jsoniter "github.com/json-iterator/go"
	"gorm.io/gorm"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TableName is the table holding every document.
const TableName = "blueprints"

// row is one stored document. The body keeps the whole document as JSON.
type row struct {
	SchemaName string    `gorm:"column:schema_name;primaryKey;size:191"`
	ID         string    `gorm:"column:id;primaryKey;size:191"`
	Body       string    `gorm:"column:body;type:text"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (row) TableName() string { return TableName }

// SQLStore keeps documents in a relational database through GORM.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore wraps an open connection. Call Migrate before first use on a fresh database.
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Migrate creates the documents table and verifies its columns.
func (s *SQLStore) Migrate() error {
	if err := s.db.AutoMigrate(&row{}); err != nil {
		return fmt.Errorf("failed to migrate %s: %w", TableName, err)
	}
	return database.RequireColumns(s.db, TableName, "schema_name", "id", "body")
}

func (s *SQLStore) find(ctx context.Context, schema, id string) (*row, error) {
	var r row
	err := s.db.WithContext(ctx).
		Where("schema_name = ? AND id = ?", schema, id).
		Take(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s/%s: %w", schema, id, err)
	}
	return &r, nil
}

func decodeBody(r *row) (Document, error) {
	var doc Document
	if err := json.Unmarshal([]byte(r.Body), &doc); err != nil {
		return nil, fmt.Errorf("corrupt document %s/%s: %w", r.SchemaName, r.ID, err)
	}
	if doc == nil {
		doc = Document{}
	}
	doc[KeySchema] = r.SchemaName
	doc[KeyID] = r.ID
	return doc, nil
}

// Add implements Store.
func (s *SQLStore) Add(ctx context.Context, schema string, doc Document) error {
	id := doc.ID()
	if id == "" {
		return fmt.Errorf("document for %s has no id", schema)
	}
	existing, err := s.find(ctx, schema, id)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%s/%s: %w", schema, id, ErrExists)
	}

	stored := doc.Clone()
	stored[KeySchema] = schema
	body, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", schema, id, err)
	}
	r := row{SchemaName: schema, ID: id, Body: string(body), UpdatedAt: time.Now()}
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return fmt.Errorf("failed to insert %s/%s: %w", schema, id, err)
	}
	return nil
}

// AddBatch inserts many new documents of one schema in a single transaction.
func (s *SQLStore) AddBatch(ctx context.Context, schema string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]row, 0, len(docs))
	for _, doc := range docs {
		id := doc.ID()
		if id == "" {
			return fmt.Errorf("document for %s has no id", schema)
		}
		stored := doc.Clone()
		stored[KeySchema] = schema
		body, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("failed to encode %s/%s: %w", schema, id, err)
		}
		rows = append(rows, row{SchemaName: schema, ID: id, Body: string(body), UpdatedAt: now})
	}
	if err := s.db.WithContext(ctx).CreateInBatches(rows, 100).Error; err != nil {
		return fmt.Errorf("failed to insert %d %s documents: %w", len(rows), schema, err)
	}
	return nil
}

// Get implements Store.
func (s *SQLStore) Get(ctx context.Context, schema, id string) (Document, error) {
	r, err := s.find(ctx, schema, id)
	if err != nil || r == nil {
		return nil, err
	}
	return decodeBody(r)
}

// Update implements Store.
func (s *SQLStore) Update(ctx context.Context, schema, id string, fields Document) error {
	r, err := s.find(ctx, schema, id)
	if err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("%s/%s: %w", schema, id, ErrNotFound)
	}
	doc, err := decodeBody(r)
	if err != nil {
		return err
	}
	for k, v := range fields {
		if k == KeySchema || k == KeyID {
			continue
		}
		doc[k] = v
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", schema, id, err)
	}
	err = s.db.WithContext(ctx).Model(&row{}).
		Where("schema_name = ? AND id = ?", schema, id).
		Updates(map[string]any{"body": string(body), "updated_at": time.Now()}).Error
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", schema, id, err)
	}
	return nil
}

// List implements Store.
func (s *SQLStore) List(ctx context.Context, schema string) ([]Document, error) {
	var rows []row
	err := s.db.WithContext(ctx).
		Where("schema_name = ?", schema).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", schema, err)
	}
	out := make([]Document, 0, len(rows))
	for i := range rows {
		doc, err := decodeBody(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// Close implements Store.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
