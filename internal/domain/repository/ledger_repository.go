package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// LedgerRepository define el puerto de persistencia de registros con saldo arrastrable (DIP).
// Todas las consultas por clave ordenan por created_at.
type LedgerRepository interface {
	// Latest devuelve el registro más reciente de la clave, o nil si no hay historial.
	Latest(ctx context.Context, key entity.CategoryKey) (*entity.LedgerRecord, error)
	// History devuelve todo el historial de la clave en orden cronológico ascendente.
	History(ctx context.Context, key entity.CategoryKey) ([]*entity.LedgerRecord, error)

	Create(ctx context.Context, record *entity.LedgerRecord) error
	GetByID(ctx context.Context, category entity.Category, id string) (*entity.LedgerRecord, error)
	// GetForUpdate obtiene el registro bloqueando la fila (SELECT FOR UPDATE donde aplique).
	GetForUpdate(ctx context.Context, category entity.Category, id string) (*entity.LedgerRecord, error)
	Update(ctx context.Context, record *entity.LedgerRecord) error
	List(ctx context.Context, category entity.Category, limit, offset int) ([]*entity.LedgerRecord, error)

	// LatestPerKey devuelve el último registro de cada clave de la categoría.
	LatestPerKey(ctx context.Context, category entity.Category) ([]*entity.LedgerRecord, error)
	// TotalsPerKey acumula entradas y salidas de cada clave sobre todo el historial.
	TotalsPerKey(ctx context.Context, category entity.Category) ([]entity.KeyTotal, error)
}
