package balance

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// Coerce convierte un valor crudo de formulario o JSON en decimal.
// nil y cadena vacía son 0 sin error. Cualquier valor no numérico (texto, NaN, ±Inf, bool)
// devuelve 0 junto con ErrNonNumeric para que el llamador registre la advertencia.
func Coerce(raw any) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return v, nil
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero, nil
		}
		return *v, nil
	case string:
		return coerceString(v)
	case json.Number:
		return coerceString(v.String())
	case float64:
		return coerceFloat(v)
	case float32:
		return coerceFloat(float64(v))
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	}
	return decimal.Zero, fmt.Errorf("%w: tipo %T", domain.ErrNonNumeric, raw)
}

func coerceString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", domain.ErrNonNumeric, s)
	}
	return d, nil
}

func coerceFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrNonNumeric, f)
	}
	return decimal.NewFromFloat(f), nil
}
