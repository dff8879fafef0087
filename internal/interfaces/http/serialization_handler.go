package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/NotSleepp/possbien-sub001/internal/application/dto"
	"github.com/NotSleepp/possbien-sub001/internal/application/serialization"
	"github.com/NotSleepp/possbien-sub001/internal/domain/repository"
	"github.com/NotSleepp/possbien-sub001/pkg/logger"
)

// SerializationHandler administra los rangos de numeración por sucursal.
type SerializationHandler struct {
	registry *serialization.Registry
	log      *logger.Logger
}

// NewSerializationHandler construye el handler.
func NewSerializationHandler(registry *serialization.Registry, log *logger.Logger) *SerializationHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &SerializationHandler{registry: registry, log: log.Component("serialization_handler")}
}

// List godoc
// @Summary      Listar series de una sucursal
// @Tags         serializaciones
// @Security     Bearer
// @Produce      json
// @Param        idSucursal  query  string  true  "Sucursal"
// @Success      200  {object}  dto.SerializationListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/serializaciones [get]
func (h *SerializationHandler) List(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.registry.ListRanges(c.Context(), companyID, c.Query("idSucursal"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener serie por ID
// @Tags         serializaciones
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del rango"
// @Success      200  {object}  dto.SerializationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/serializaciones/{id} [get]
func (h *SerializationHandler) GetByID(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	out, err := h.registry.GetRange(c.Context(), companyID, c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// Create godoc
// @Summary      Crear serie
// @Tags         serializaciones
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateSerializationRequest  true  "Rango de numeración"
// @Success      201   {object}  dto.SerializationResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/serializaciones [post]
func (h *SerializationHandler) Create(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.CreateSerializationRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.registry.CreateRange(c.Context(), companyID, in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Update godoc
// @Summary      Ampliar o ajustar el número final de una serie
// @Tags         serializaciones
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                           true  "ID del rango"
// @Param        body  body  dto.UpdateSerializationRequest  true  "Nuevo número final"
// @Success      200   {object}  dto.SerializationResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/serializaciones/{id} [put]
func (h *SerializationHandler) Update(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.UpdateSerializationRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.registry.UpdateRange(c.Context(), companyID, c.Params("id"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// SetDefault godoc
// @Summary      Marcar serie por defecto
// @Description  Deja exactamente una serie por defecto para la sucursal y tipo de comprobante.
// @Tags         serializaciones
// @Security     Bearer
// @Accept       json
// @Param        body  body  dto.SetDefaultSerializationRequest  true  "Serie"
// @Success      204
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/serializaciones/default [put]
func (h *SerializationHandler) SetDefault(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.SetDefaultSerializationRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	key := repository.RangeKey{CompanyID: companyID, BranchID: in.BranchID, DocumentTypeID: in.DocumentTypeID}
	if err := h.registry.SetDefault(c.Context(), key, in.Series); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
