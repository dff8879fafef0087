package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/NotSleepp/possbien-sub001/internal/application/dto"
	"github.com/NotSleepp/possbien-sub001/internal/application/sales"
	"github.com/NotSleepp/possbien-sub001/pkg/logger"
)

// SaleHandler maneja el cierre y la consulta de ventas (protegido).
type SaleHandler struct {
	finalizer *sales.SaleFinalizer
	log       *logger.Logger
}

// NewSaleHandler construye el handler.
func NewSaleHandler(finalizer *sales.SaleFinalizer, log *logger.Logger) *SaleHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &SaleHandler{finalizer: finalizer, log: log.Component("sale_handler")}
}

// Create godoc
// @Summary      Cerrar venta
// @Description  Calcula totales, valida descuento y pagos, asigna el número de comprobante y guarda la venta en una sola operación.
// @Tags         ventas
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                 false  "Llave de idempotencia del POS"
// @Param        body             body    dto.CloseSaleRequest  true   "Carrito, descuento y pagos"
// @Success      201   {object}  dto.SaleResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/ventas [post]
func (h *SaleHandler) Create(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	var in dto.CloseSaleRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.finalizer.Close(c.Context(), companyID, GetUserID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener venta por ID
// @Tags         ventas
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la venta"
// @Success      200  {object}  dto.SaleResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ventas/{id} [get]
func (h *SaleHandler) GetByID(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	out, err := h.finalizer.GetSale(c.Context(), companyID, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar ventas
// @Tags         ventas
// @Security     Bearer
// @Produce      json
// @Param        idSucursal  query  string  false  "Sucursal"
// @Param        limit       query  int     false  "Límite"  default(20)
// @Param        offset      query  int     false  "Offset"  default(0)
// @Success      200         {object}  dto.SaleListResponse
// @Router       /api/ventas [get]
func (h *SaleHandler) List(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return unauthorized(c)
	}
	page := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	if page.Limit > 100 {
		page.Limit = 100
	}
	out, err := h.finalizer.ListSales(c.Context(), companyID, c.Query("idSucursal"), page)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(out)
}
