// Package carry implementa el arrastre automático de saldos: resolución del saldo inicial de un
// registro nuevo a partir del historial de su clave, y la sesión de formulario que lo dispara.
package carry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/balance"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Source origen del saldo inicial resuelto.
type Source string

const (
	SourceCarried Source = "carried" // arrastrado del registro anterior
	SourceNone    Source = "none"    // sin historial, clave incompleta o store no disponible
)

// DefaultLookupTimeout tope de la consulta al store si no se configura otro.
const DefaultLookupTimeout = 5 * time.Second

// OpeningResult resultado de ResolveOpening.
type OpeningResult struct {
	Opening decimal.Decimal
	Source  Source
}

func noValue() OpeningResult {
	return OpeningResult{Opening: decimal.Zero, Source: SourceNone}
}

// OpeningResolver contrato que consume la sesión de formulario y el servicio de registros.
type OpeningResolver interface {
	ResolveOpening(ctx context.Context, key entity.CategoryKey) OpeningResult
}

// variant estrategia de arrastre de una categoría.
type variant interface {
	closing(ctx context.Context, repo repository.LedgerRepository, key entity.CategoryKey) (closing decimal.Decimal, found bool, err error)
}

// singleStep: saldo del último registro (opening + addition - removal). Kits, juegos y gastos.
type singleStep struct{}

func (singleStep) closing(ctx context.Context, repo repository.LedgerRepository, key entity.CategoryKey) (decimal.Decimal, bool, error) {
	latest, err := repo.Latest(ctx, key)
	if err != nil {
		return decimal.Zero, false, err
	}
	if latest == nil {
		return decimal.Zero, false, nil
	}
	// Se recalcula desde los componentes; el cierre persistido puede estar desactualizado.
	c, err := balance.RecordClosing(latest)
	if err != nil {
		return decimal.Zero, false, err
	}
	return c, true, nil
}

// historyAggregate: Σ(added - sent) sobre todo el historial. Blazers.
type historyAggregate struct{}

func (historyAggregate) closing(ctx context.Context, repo repository.LedgerRepository, key entity.CategoryKey) (decimal.Decimal, bool, error) {
	history, err := repo.History(ctx, key)
	if err != nil {
		return decimal.Zero, false, err
	}
	if len(history) == 0 {
		return decimal.Zero, false, nil
	}
	return balance.AggregateHistory(history), true, nil
}

func variantFor(c entity.Category) (variant, error) {
	switch c {
	case entity.CategoryKit, entity.CategoryGame, entity.CategoryExpense:
		return singleStep{}, nil
	case entity.CategoryBlazer:
		return historyAggregate{}, nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, c)
}

// Resolver resuelve el saldo inicial de un registro nuevo. Las consultas simultáneas
// de la misma clave se agrupan en una sola (singleflight).
type Resolver struct {
	repo    repository.LedgerRepository
	log     *logger.Logger
	timeout time.Duration
	group   singleflight.Group
}

var _ OpeningResolver = (*Resolver)(nil)

// NewResolver construye el resolver. timeout <= 0 usa DefaultLookupTimeout.
func NewResolver(repo repository.LedgerRepository, log *logger.Logger, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	return &Resolver{repo: repo, log: log.Named("carry.resolver"), timeout: timeout}
}

// ResolveOpening devuelve el saldo a sembrar en el campo inicial de un registro nuevo.
// Nunca devuelve error: clave incompleta, store caído o timeout producen Source "none".
func (r *Resolver) ResolveOpening(ctx context.Context, key entity.CategoryKey) OpeningResult {
	v, err := variantFor(key.Category)
	if err != nil {
		r.log.Warn().Err(err).Msg("arrastre: categoría sin estrategia")
		return noValue()
	}
	if !key.Complete() {
		r.log.Debug().Str("category", string(key.Category)).Msg("arrastre: clave incompleta, sin consulta")
		return noValue()
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// La consulta compartida no depende del contexto de quien la inició: si ese llamador se
	// cancela, los demás que esperan la misma clave siguen recibiendo el resultado.
	shared := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key.String(), func() (any, error) {
		qctx, qcancel := context.WithTimeout(shared, r.timeout)
		defer qcancel()
		c, found, err := v.closing(qctx, r.repo, key)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, nil
		}
		return c, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			r.logUnavailable(key, res.Err)
			return noValue()
		}
		if res.Val == nil {
			r.log.Debug().Str("key", key.String()).Msg("arrastre: sin registro previo")
			return noValue()
		}
		closing := res.Val.(decimal.Decimal)
		return OpeningResult{
			Opening: balance.CarryOpening(key.Category, closing),
			Source:  SourceCarried,
		}
	case <-ctx.Done():
		r.logUnavailable(key, ctx.Err())
		return noValue()
	}
}

func (r *Resolver) logUnavailable(key entity.CategoryKey, err error) {
	ev := r.log.Warn().Err(err).Str("key", key.String())
	if errors.Is(err, context.DeadlineExceeded) {
		ev = ev.Dur("timeout", r.timeout)
	}
	ev.Msg("arrastre: store no disponible, se continúa sin saldo previo")
}
