package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"files-kraken/core/blueprint"
	"files-kraken/core/docstore"

	"go.uber.org/zap"
)

// ErrUnknownSchema is returned for a schema that is not registered.
var ErrUnknownSchema = errors.New("unknown schema")

// Service reads records from the document store.
type Service struct {
	store    docstore.Store
	registry *blueprint.Registry
	cache    *cacheStore
	logger   *zap.Logger
}

// NewService creates a catalog service. A zero ttl disables listing caching.
func NewService(store docstore.Store, registry *blueprint.Registry, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		registry: registry,
		cache:    newCacheStore(ttl),
		logger:   logger,
	}
}

// Schemas returns the registered schema names in registration order.
func (s *Service) Schemas() []string {
	schemas := s.registry.Schemas()
	names := make([]string, len(schemas))
	for i, schema := range schemas {
		names[i] = schema.Name
	}
	return names
}

func (s *Service) check(schema string) error {
	if _, ok := s.registry.Get(schema); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSchema, schema)
	}
	return nil
}

// List returns every record of schema ordered by id.
func (s *Service) List(ctx context.Context, schema string) ([]docstore.Document, error) {
	if err := s.check(schema); err != nil {
		return nil, err
	}
	return s.cache.getOrBuild(ctx, schema, func(ctx context.Context) ([]docstore.Document, error) {
		s.logger.Debug("Loading catalog listing", zap.String("schema", schema))
		return s.store.List(ctx, schema)
	})
}

// Get returns one record. A missing record yields docstore.ErrNotFound.
func (s *Service) Get(ctx context.Context, schema, id string) (docstore.Document, error) {
	if err := s.check(schema); err != nil {
		return nil, err
	}
	doc, err := s.store.Get(ctx, schema, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%s/%s: %w", schema, id, docstore.ErrNotFound)
	}
	return doc, nil
}

// Invalidate drops the cached listing of schema, or all listings when schema is empty.
func (s *Service) Invalidate(schema string) {
	s.cache.invalidate(schema)
}
