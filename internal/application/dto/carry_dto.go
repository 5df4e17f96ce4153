package dto

import "github.com/shopspring/decimal"

// OpeningResponse saldo inicial resuelto para una clave.
type OpeningResponse struct {
	Category string            `json:"category"`
	Key      map[string]string `json:"key"`
	Field    string            `json:"field"`
	Opening  decimal.Decimal   `json:"opening"`
	Source   string            `json:"source"` // carried | none
}

// ClosingRequest componentes crudos del formulario; los no numéricos cuentan como 0.
type ClosingRequest struct {
	Opening  any `json:"opening"`
	Addition any `json:"addition"`
	Removal  any `json:"removal"`
}

// ClosingResponse saldo derivado.
type ClosingResponse struct {
	Category string          `json:"category"`
	Field    string          `json:"field"`
	Closing  decimal.Decimal `json:"closing"`
}
