package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Locals keys para UserID y categoría en Fiber.
const (
	LocalUserID   = "user_id"
	LocalCategory = "category"
)

// HeaderUserID cabecera con el usuario que opera. La autenticación queda fuera del servicio.
const HeaderUserID = "X-User-ID"

// UserMiddleware lee el usuario de X-User-ID y lo deja en c.Locals.
// Sin cabecera el registro se guarda sin autor; con un valor que no es UUID responde 400.
func UserMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := strings.TrimSpace(c.Get(HeaderUserID))
		if raw == "" {
			return c.Next()
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_USER", Message: HeaderUserID + " debe ser un UUID"})
		}
		c.Locals(LocalUserID, id.String())
		return c.Next()
	}
}

// RequireCategory valida el parámetro :category de la ruta y lo deja en c.Locals.
//
// Comportamiento:
//   - 404 Not Found → la categoría no es kits_inventory, games_inventory, blazer_inventory ni daily_expenses.
func RequireCategory() fiber.Handler {
	return func(c *fiber.Ctx) error {
		category, ok := entity.ParseCategory(c.Params("category"))
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Code:    "UNKNOWN_CATEGORY",
				Message: "categoría '" + c.Params("category") + "' desconocida",
			})
		}
		c.Locals(LocalCategory, category)
		return c.Next()
	}
}

// GetUserID devuelve el UserID del contexto ("" si no vino cabecera).
func GetUserID(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalUserID).(string)
	return s
}

// GetCategory devuelve la categoría validada por RequireCategory.
func GetCategory(c *fiber.Ctx) entity.Category {
	v, _ := c.Locals(LocalCategory).(entity.Category)
	return v
}
