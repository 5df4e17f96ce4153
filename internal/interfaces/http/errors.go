package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

// respondError traduce errores de dominio a ErrorResponse con su código HTTP.
func respondError(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrUnknownCategory):
		status, code = fiber.StatusNotFound, "UNKNOWN_CATEGORY"
	case errors.Is(err, domain.ErrIncompleteKey):
		status, code = fiber.StatusBadRequest, "INCOMPLETE_KEY"
	case errors.Is(err, domain.ErrNegativeQuantity):
		status, code = fiber.StatusBadRequest, "NEGATIVE_QUANTITY"
	case errors.Is(err, domain.ErrImmutableField):
		status, code = fiber.StatusBadRequest, "IMMUTABLE_FIELD"
	case errors.Is(err, domain.ErrDuplicate):
		status, code = fiber.StatusConflict, "DUPLICATE"
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrNonNumeric):
		status, code = fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, ledger.ErrReportUnavailable):
		status, code = fiber.StatusServiceUnavailable, "REPORT_UNAVAILABLE"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

// pageFrom lee limit/offset del query; DefaultPage aplica el límite por defecto y el tope.
func pageFrom(c *fiber.Ctx) dto.PageRequest {
	p := dto.PageRequest{Limit: c.QueryInt("limit", 0), Offset: c.QueryInt("offset", 0)}
	p.DefaultPage()
	return p
}

// paramID copia el parámetro :id. Los strings de fiber apuntan al buffer de la petición y el
// ID termina en la bitácora, que se escribe en segundo plano.
func paramID(c *fiber.Ctx) string {
	return utils.CopyString(c.Params("id"))
}

// queryCopy copia un parámetro de query que sobrevive a la petición (clave de arrastre compartida).
func queryCopy(c *fiber.Ctx, key string) string {
	return utils.CopyString(c.Query(key))
}
