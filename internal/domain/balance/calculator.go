// Package balance contiene el cálculo de saldos derivados (servicio de dominio puro, sin I/O).
package balance

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ComputeClosing calcula el saldo derivado de un registro según su categoría.
//
//	kits:    opening_balance + addins - takeouts
//	juegos:  previous_stock + adding - sent
//	gastos:  fixed_amount + previous_month_overspend - expenses
//	blazers: added - sent (aporte del registro; el stock en oficina es AggregateHistory)
func ComputeClosing(c entity.Category, opening, addition, removal decimal.Decimal) (decimal.Decimal, error) {
	switch c {
	case entity.CategoryKit, entity.CategoryGame, entity.CategoryExpense:
		return opening.Add(addition).Sub(removal), nil
	case entity.CategoryBlazer:
		return addition.Sub(removal), nil
	}
	return decimal.Zero, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, c)
}

// RecordClosing aplica ComputeClosing sobre un registro.
func RecordClosing(r *entity.LedgerRecord) (decimal.Decimal, error) {
	return ComputeClosing(r.Category(), r.Opening, r.Addition, r.Removal)
}

// AggregateHistory stock en oficina de blazers: Σ(added - sent) sobre todo el historial de la clave.
func AggregateHistory(records []*entity.LedgerRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		if r == nil {
			continue
		}
		total = total.Add(r.Addition).Sub(r.Removal)
	}
	return total
}

// CarryOpening convierte un saldo de cierre en el saldo inicial del siguiente registro.
// Las categorías de stock se recortan en 0; gastos arrastra el sobregasto tal cual.
func CarryOpening(c entity.Category, closing decimal.Decimal) decimal.Decimal {
	if c.IsStock() && closing.IsNegative() {
		return decimal.Zero
	}
	return closing
}

// SplitQuantity separa una cantidad con signo en (entradas, salidas).
func SplitQuantity(q decimal.Decimal) (added, sent decimal.Decimal) {
	switch {
	case q.IsPositive():
		return q, decimal.Zero
	case q.IsNegative():
		return decimal.Zero, q.Abs()
	}
	return decimal.Zero, decimal.Zero
}
