package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/NotSleepp/possbien-sub001/internal/application/dto"
	"github.com/NotSleepp/possbien-sub001/internal/domain"
	"github.com/NotSleepp/possbien-sub001/pkg/logger"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

// El orden importa: los errores de venta envuelven la causa con ErrPersistenceFailed
// y ese debe ganar sobre la causa original.
var errorMappings = []errorMapping{
	{domain.ErrPersistenceFailed, fiber.StatusServiceUnavailable, "VENTA_NO_REGISTRADA"},
	{domain.ErrSeriesExhausted, fiber.StatusConflict, "SERIE_AGOTADA"},
	{domain.ErrNoDefaultSeriesConfigured, fiber.StatusUnprocessableEntity, "SIN_SERIE_POR_DEFECTO"},
	{domain.ErrRangeNotFound, fiber.StatusNotFound, "RANGO_NO_ENCONTRADO"},
	{domain.ErrInvalidRange, fiber.StatusUnprocessableEntity, "RANGO_INVALIDO"},
	{domain.ErrDuplicateSeries, fiber.StatusConflict, "SERIE_DUPLICADA"},
	{domain.ErrEmptyCart, fiber.StatusBadRequest, "CARRITO_VACIO"},
	{domain.ErrInvalidCartLine, fiber.StatusBadRequest, "LINEA_INVALIDA"},
	{domain.ErrInvalidDiscount, fiber.StatusBadRequest, "DESCUENTO_INVALIDO"},
	{domain.ErrDiscountExceedsTotal, fiber.StatusUnprocessableEntity, "DESCUENTO_EXCEDE_TOTAL"},
	{domain.ErrAuthorizationRequired, fiber.StatusForbidden, "AUTORIZACION_REQUERIDA"},
	{domain.ErrAuthorizationDenied, fiber.StatusForbidden, "AUTORIZACION_DENEGADA"},
	{domain.ErrInvalidPayment, fiber.StatusBadRequest, "PAGO_INVALIDO"},
	{domain.ErrInsufficientCashReceived, fiber.StatusUnprocessableEntity, "EFECTIVO_INSUFICIENTE"},
	{domain.ErrOverpaymentNotAllowedExceptFinalCash, fiber.StatusUnprocessableEntity, "SOBREPAGO_NO_PERMITIDO"},
	{domain.ErrPaymentsDoNotCoverTotal, fiber.StatusUnprocessableEntity, "PAGOS_INSUFICIENTES"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
}

// writeError traduce un error de aplicación a la respuesta JSON correspondiente.
// Los errores sin clasificar se registran y se responden con un mensaje genérico.
func writeError(c *fiber.Ctx, log *logger.Logger, err error) error {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return c.Status(m.status).JSON(dto.ErrorResponse{
				Code:      m.code,
				Message:   err.Error(),
				Retryable: domain.IsRetryable(err) || m.err == domain.ErrPersistenceFailed,
			})
		}
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("error no controlado")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Code:      "INTERNAL",
		Message:   "error interno, intente de nuevo",
		Retryable: true,
	})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "company_id requerido"})
}
