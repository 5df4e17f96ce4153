package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/ledger"
)

// LedgerHandler registros, resumen de saldos y bitácora de cada categoría.
type LedgerHandler struct {
	svc *ledger.Service
}

// NewLedgerHandler construye el handler.
func NewLedgerHandler(svc *ledger.Service) *LedgerHandler {
	return &LedgerHandler{svc: svc}
}

// List godoc
// @Summary      Listar registros
// @Tags         ledger
// @Produce      json
// @Param        category  path   string  true   "Categoría"
// @Param        limit     query  int     false  "Límite"  default(20)
// @Param        offset    query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.RecordListResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ledger/{category}/records [get]
func (h *LedgerHandler) List(c *fiber.Ctx) error {
	out, err := h.svc.List(c.UserContext(), GetCategory(c), pageFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Create godoc
// @Summary      Crear registro
// @Description  Si el saldo inicial viene vacío se arrastra del registro anterior de la misma clave.
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Param        category   path    string                    true   "Categoría"
// @Param        X-User-ID  header  string                    false  "UUID del usuario"
// @Param        body       body    dto.CreateRecordRequest   true   "Campos del registro"
// @Success      201  {object}  dto.RecordResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/ledger/{category}/records [post]
func (h *LedgerHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateRecordRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if len(in.Fields) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "fields es requerido"})
	}
	out, err := h.svc.Create(c.UserContext(), GetCategory(c), GetUserID(c), in.Fields)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Update godoc
// @Summary      Editar un campo en línea
// @Description  El saldo derivado se recalcula con los componentes actuales. Los campos de clave y el saldo derivado no son editables.
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Param        category   path    string                  true   "Categoría"
// @Param        id         path    string                  true   "ID del registro"
// @Param        X-User-ID  header  string                  false  "UUID del usuario"
// @Param        body       body    dto.UpdateFieldRequest  true   "Campo y valor"
// @Success      200  {object}  dto.RecordResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ledger/{category}/records/{id} [patch]
func (h *LedgerHandler) Update(c *fiber.Ctx) error {
	var in dto.UpdateFieldRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if strings.TrimSpace(in.Field) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "field es requerido"})
	}
	out, err := h.svc.UpdateField(c.UserContext(), GetCategory(c), paramID(c), GetUserID(c), in.Field, in.Value)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Overview godoc
// @Summary      Resumen de saldos por clave
// @Tags         ledger
// @Produce      json
// @Param        category  path  string  true  "Categoría"
// @Success      200  {object}  dto.OverviewResponse
// @Router       /api/ledger/{category}/overview [get]
func (h *LedgerHandler) Overview(c *fiber.Ctx) error {
	out, err := h.svc.Overview(c.UserContext(), GetCategory(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// OverviewPDF godoc
// @Summary      Resumen de saldos en PDF
// @Tags         ledger
// @Produce      application/pdf
// @Param        category  path  string  true  "Categoría"
// @Success      200  {file}    binary
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/ledger/{category}/overview.pdf [get]
func (h *LedgerHandler) OverviewPDF(c *fiber.Ctx) error {
	pdf, filename, err := h.svc.OverviewPDF(c.UserContext(), GetCategory(c))
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+filename+`"`)
	return c.Send(pdf)
}

// Activity godoc
// @Summary      Bitácora de la categoría
// @Tags         ledger
// @Produce      json
// @Param        category  path   string  true   "Categoría"
// @Param        limit     query  int     false  "Límite"  default(20)
// @Param        offset    query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.ActivityLogListResponse
// @Router       /api/ledger/{category}/activity [get]
func (h *LedgerHandler) Activity(c *fiber.Ctx) error {
	out, err := h.svc.Activity(c.UserContext(), GetCategory(c), pageFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}
