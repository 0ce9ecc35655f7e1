package catalog

import (
	"errors"

	"files-kraken/core/docstore"
	"files-kraken/core/logger"
	"files-kraken/core/metrics"
	"files-kraken/core/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the catalog.
type Handler struct {
	service *Service
	metrics *metrics.Metrics
}

// NewHandler creates a new HTTP handler. A nil m serves the default registry on /metrics.
func NewHandler(service *Service, m *metrics.Metrics) *Handler {
	return &Handler{service: service, metrics: m}
}

// RegisterRoutes registers the catalog routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/catalog")
	group.Get("/", h.HandleSchemas)
	group.Get("/:schema", h.HandleList)
	group.Get("/:schema/:id", h.HandleGet)
	app.Get("/metrics", adaptor.HTTPHandler(h.metrics.Handler()))
}

// HandleSchemas lists the registered schemas.
func (h *Handler) HandleSchemas(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"schemas": h.service.Schemas()})
}

// HandleList returns every record of a schema.
func (h *Handler) HandleList(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	schema := c.Params("schema")

	if utils.ToBool(c.Query("fresh")) {
		h.service.Invalidate(schema)
	}

	docs, err := h.service.List(c.Context(), schema)
	if err != nil {
		return h.fail(c, l, err)
	}

	total := len(docs)
	if limit := utils.ToInt(c.Query("limit")); limit > 0 && limit < total {
		docs = docs[:limit]
	}

	return c.JSON(fiber.Map{
		"schema":  schema,
		"total":   total,
		"records": docs,
	})
}

// HandleGet returns one record.
func (h *Handler) HandleGet(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	doc, err := h.service.Get(c.Context(), c.Params("schema"), c.Params("id"))
	if err != nil {
		return h.fail(c, l, err)
	}
	return c.JSON(doc)
}

func (h *Handler) fail(c *fiber.Ctx, l *zap.Logger, err error) error {
	switch {
	case errors.Is(err, ErrUnknownSchema), errors.Is(err, docstore.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		l.Error("Catalog read failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
