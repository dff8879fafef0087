package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/NotSleepp/possbien-sub001/internal/application/dto"
	"github.com/NotSleepp/possbien-sub001/internal/infrastructure/cache"
	"github.com/NotSleepp/possbien-sub001/pkg/logger"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
)

// Idempotency devuelve un middleware que evita cerrar dos veces la misma venta cuando el POS
// reintenta. Debe usarse DESPUÉS de AuthMiddleware (la llave se aísla por empresa).
//
// Comportamiento:
//   - Sin header → la petición pasa sin control.
//   - Llave ya completada → se responde el cuerpo guardado con 201 y Idempotent-Replayed: true.
//   - Llave en curso → 409 SOLICITUD_EN_CURSO.
//   - Llave nueva → se ejecuta el handler; solo una respuesta 201 queda guardada, cualquier
//     otra libera la llave para permitir el reintento.
//   - Fallo del almacén de llaves → la petición pasa sin control y se registra.
func Idempotency(store cache.IdempotencyStore, ttl time.Duration, log *logger.Logger) fiber.Handler {
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("idempotency")
	return func(c *fiber.Ctx) error {
		raw := c.Get(HeaderIdempotencyKey)
		if raw == "" || store == nil {
			return c.Next()
		}
		if len(raw) > 128 {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Code:    "VALIDATION",
				Message: "Idempotency-Key admite hasta 128 caracteres",
			})
		}
		key := GetCompanyID(c) + ":" + raw

		state, payload, err := store.Claim(c.Context(), key, ttl)
		if err != nil {
			log.Warn().Err(err).Msg("almacén de idempotencia no disponible, se continúa sin control")
			return c.Next()
		}
		switch state {
		case cache.IdempotencyDone:
			c.Set(HeaderReplayed, "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Status(fiber.StatusCreated).Send(payload)
		case cache.IdempotencyPending:
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Code:    "SOLICITUD_EN_CURSO",
				Message: "ya hay una venta en curso con la misma Idempotency-Key",
			})
		}

		nextErr := c.Next()
		// el contexto de fasthttp puede terminar con la petición; el cierre de la llave no debe perderse
		ctx := context.Background()
		if nextErr == nil && c.Response().StatusCode() == fiber.StatusCreated {
			body := append([]byte(nil), c.Response().Body()...)
			if err := store.Complete(ctx, key, body, ttl); err != nil {
				log.Error().Err(err).Str("key", raw).Msg("no se pudo guardar la respuesta idempotente")
			}
			return nil
		}
		if err := store.Release(ctx, key); err != nil {
			log.Error().Err(err).Str("key", raw).Msg("no se pudo liberar la llave idempotente")
		}
		return nextErr
	}
}
