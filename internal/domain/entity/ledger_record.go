package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerRecord registro de un período para una clave de categoría (kits, juegos, blazers o gastos).
// El saldo de cierre no se guarda aquí: siempre se deriva de Opening, Addition y Removal.
type LedgerRecord struct {
	ID        string
	Key       CategoryKey
	Date      *time.Time
	Opening   decimal.Decimal // opening_balance / previous_stock / in_office_stock / previous_month_overspend
	Addition  decimal.Decimal // addins / adding / added / fixed_amount
	Removal   decimal.Decimal // takeouts / sent / sent / expenses
	Notes     string          // remarks o sent_by
	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy string // UserID
}

// Category atajo a la categoría de la clave.
func (r *LedgerRecord) Category() Category {
	return r.Key.Category
}

// Quantity cantidad con signo del registro (positivo recibido, negativo enviado). Usado por blazers.
func (r *LedgerRecord) Quantity() decimal.Decimal {
	return r.Addition.Sub(r.Removal)
}

// KeyTotal acumulado de entradas y salidas de una clave sobre todo su historial.
type KeyTotal struct {
	Key      CategoryKey
	Addition decimal.Decimal
	Removal  decimal.Decimal
	Records  int
}
