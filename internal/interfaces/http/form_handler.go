package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/ledger"
)

// FormHandler formularios de alta con arrastre del lado servidor.
// El cliente envía lo que el usuario escribe y consulta el estado hasta que Loading sea false.
type FormHandler struct {
	uc *ledger.FormUseCase
}

// NewFormHandler construye el handler.
func NewFormHandler(uc *ledger.FormUseCase) *FormHandler {
	return &FormHandler{uc: uc}
}

// Open godoc
// @Summary      Abrir formulario
// @Tags         forms
// @Produce      json
// @Param        category  path  string  true  "Categoría"
// @Success      201  {object}  dto.FormResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/forms/{category} [post]
func (h *FormHandler) Open(c *fiber.Ctx) error {
	out, err := h.uc.Open(GetCategory(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Get godoc
// @Summary      Estado del formulario
// @Tags         forms
// @Produce      json
// @Param        id  path  string  true  "ID del formulario"
// @Success      200  {object}  dto.FormResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/forms/{id} [get]
func (h *FormHandler) Get(c *fiber.Ctx) error {
	out, err := h.uc.Get(paramID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// SetFields godoc
// @Summary      Escribir campos del formulario
// @Description  Cambiar un campo de la clave programa la consulta del saldo anterior.
// @Tags         forms
// @Accept       json
// @Produce      json
// @Param        id    path  string                true  "ID del formulario"
// @Param        body  body  dto.SetFieldsRequest  true  "Campos"
// @Success      200  {object}  dto.FormResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/forms/{id}/fields [patch]
func (h *FormHandler) SetFields(c *fiber.Ctx) error {
	var in dto.SetFieldsRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.SetFields(paramID(c), in.Fields)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Submit godoc
// @Summary      Enviar formulario
// @Description  Crea el registro con los valores actuales. Si falla, el formulario queda abierto.
// @Tags         forms
// @Produce      json
// @Param        id         path    string  true   "ID del formulario"
// @Param        X-User-ID  header  string  false  "UUID del usuario"
// @Success      201  {object}  dto.RecordResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/forms/{id}/submit [post]
func (h *FormHandler) Submit(c *fiber.Ctx) error {
	out, err := h.uc.Submit(c.UserContext(), paramID(c), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Discard godoc
// @Summary      Descartar formulario
// @Tags         forms
// @Param        id  path  string  true  "ID del formulario"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/forms/{id} [delete]
func (h *FormHandler) Discard(c *fiber.Ctx) error {
	if err := h.uc.Discard(paramID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
