package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/NotSleepp/possbien-sub001/internal/application/sales"
	"github.com/NotSleepp/possbien-sub001/internal/application/serialization"
	"github.com/NotSleepp/possbien-sub001/internal/domain/entity"
	"github.com/NotSleepp/possbien-sub001/internal/infrastructure/cache"
	"github.com/NotSleepp/possbien-sub001/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Finalizer      *sales.SaleFinalizer
	Registry       *serialization.Registry
	Idempotency    cache.IdempotencyStore
	IdempotencyTTL time.Duration
	JWTSecret      string
	Logger         *logger.Logger
	Metrics        fiber.Handler // opcional: /metrics
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Idempotency == nil {
		deps.Idempotency = cache.NoopIdempotencyStore{}
	}
	if deps.IdempotencyTTL <= 0 {
		deps.IdempotencyTTL = 24 * time.Hour
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if deps.Metrics != nil {
		app.Get("/metrics", deps.Metrics)
	}

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	// Ventas
	ventas := protected.Group("/ventas")
	saleHandler := NewSaleHandler(deps.Finalizer, deps.Logger)
	ventas.Post("/", Idempotency(deps.Idempotency, deps.IdempotencyTTL, deps.Logger), saleHandler.Create)
	ventas.Get("/", saleHandler.List)
	ventas.Get("/:id", saleHandler.GetByID)

	// Serializaciones: lectura para todos, configuración solo admin
	series := protected.Group("/serializaciones")
	serialHandler := NewSerializationHandler(deps.Registry, deps.Logger)
	adminOnly := RequireRole(entity.RoleAdmin)
	series.Get("/", serialHandler.List)
	series.Post("/", adminOnly, serialHandler.Create)
	series.Put("/default", adminOnly, serialHandler.SetDefault)
	series.Get("/:id", serialHandler.GetByID)
	series.Put("/:id", adminOnly, serialHandler.Update)
}
