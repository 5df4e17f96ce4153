package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/carry"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// CarryHandler expone el arrastre de saldos para clientes que manejan su propio formulario.
type CarryHandler struct {
	resolver carry.OpeningResolver
	calc     *carry.Calculator
}

// NewCarryHandler construye el handler.
func NewCarryHandler(resolver carry.OpeningResolver, calc *carry.Calculator) *CarryHandler {
	return &CarryHandler{resolver: resolver, calc: calc}
}

// Opening godoc
// @Summary      Saldo inicial arrastrado para una clave
// @Description  Devuelve el saldo de cierre del registro anterior de la clave. Con clave incompleta, sin historial o con el store caído responde source "none" y saldo 0.
// @Tags         carry
// @Produce      json
// @Param        category  path   string  true   "kits_inventory | games_inventory | blazer_inventory | daily_expenses"
// @Param        name      query  string  false  "item_name, game_details o expense_category"
// @Param        gender    query  string  false  "Solo blazers"
// @Param        size      query  string  false  "Solo blazers"
// @Success      200  {object}  dto.OpeningResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/carry/{category}/opening [get]
func (h *CarryHandler) Opening(c *fiber.Ctx) error {
	category := GetCategory(c)
	key := entity.NewCategoryKey(category, queryCopy(c, "name"), queryCopy(c, "gender"), queryCopy(c, "size"))
	res := h.resolver.ResolveOpening(c.UserContext(), key)
	return c.JSON(dto.OpeningResponse{
		Category: string(category),
		Key:      key.Values(),
		Field:    category.Fields().Opening,
		Opening:  res.Opening,
		Source:   string(res.Source),
	})
}

// Closing godoc
// @Summary      Calcular saldo derivado
// @Description  Los valores no numéricos cuentan como 0. En blazers el resultado es added - sent.
// @Tags         carry
// @Accept       json
// @Produce      json
// @Param        category  path  string              true  "Categoría"
// @Param        body      body  dto.ClosingRequest  true  "Componentes del saldo"
// @Success      200  {object}  dto.ClosingResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/carry/{category}/closing [post]
func (h *CarryHandler) Closing(c *fiber.Ctx) error {
	category := GetCategory(c)
	var in dto.ClosingRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	closing, err := h.calc.ComputeClosing(category, in.Opening, in.Addition, in.Removal)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ClosingResponse{
		Category: string(category),
		Field:    category.Fields().Closing,
		Closing:  closing,
	})
}
