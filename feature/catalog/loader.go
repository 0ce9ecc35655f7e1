package catalog

import (
	"files-kraken/core/blueprint"
	"files-kraken/core/docstore"
	"files-kraken/core/metrics"
	"files-kraken/core/server"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates a new catalog feature.
func NewFeature(store docstore.Store, registry *blueprint.Registry, cfg server.Config, m *metrics.Metrics, logger *zap.Logger) *Feature {
	svc := NewService(store, registry, cfg.CacheTTL, logger)
	return &Feature{service: svc, handler: NewHandler(svc, m)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "catalog"
}

// IsEnabled reports whether the store has schemas to serve.
func (f *Feature) IsEnabled() bool {
	return len(f.service.registry.Schemas()) > 0
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

// Service returns the feature's catalog service.
func (f *Feature) Service() *Service {
	return f.service
}
