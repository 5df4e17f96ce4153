package carry

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/balance"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Calculator calcula saldos derivados a partir de valores crudos de formulario.
// Los valores no numéricos se convierten en 0 con advertencia; nunca se propaga NaN.
type Calculator struct {
	log *logger.Logger
}

// NewCalculator construye el calculador.
func NewCalculator(log *logger.Logger) *Calculator {
	return &Calculator{log: log.Named("carry.calculator")}
}

// Coerce convierte el valor de un campo en decimal; si no es numérico registra la advertencia y usa 0.
func (c *Calculator) Coerce(category entity.Category, field string, raw any) decimal.Decimal {
	v, err := balance.Coerce(raw)
	if err != nil {
		c.log.Warn().Err(err).
			Str("category", string(category)).
			Str("field", field).
			Msg("valor no numérico, se usa 0")
	}
	return v
}

// ComputeClosing calcula el saldo derivado de la categoría con los componentes crudos.
func (c *Calculator) ComputeClosing(category entity.Category, opening, addition, removal any) (decimal.Decimal, error) {
	f := category.Fields()
	return balance.ComputeClosing(category,
		c.Coerce(category, f.Opening, opening),
		c.Coerce(category, f.Addition, addition),
		c.Coerce(category, f.Removal, removal),
	)
}
