package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRunner serializa las transacciones sobre el LedgerStore y deshace los cambios si fn falla.
type TxRunner struct {
	mu    sync.Mutex
	store *LedgerStore
}

// NewTxRunner crea el runner para el store.
func NewTxRunner(store *LedgerStore) *TxRunner {
	return &TxRunner{store: store}
}

// Run ejecuta fn en exclusión mutua. Si fn devuelve error se restaura el estado previo.
func (r *TxRunner) Run(ctx context.Context, fn func(repo repository.LedgerRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	rows, seq := r.store.snapshot()
	if err := fn(r.store); err != nil {
		r.store.restore(rows, seq)
		return err
	}
	return nil
}
