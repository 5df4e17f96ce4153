package carry_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/carry"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func seed(t *testing.T, s *memory.LedgerStore, key entity.CategoryKey, opening, add, rem int64, at time.Time) {
	t.Helper()
	require.NoError(t, s.Create(context.Background(), &entity.LedgerRecord{
		Key: key, Opening: d(opening), Addition: d(add), Removal: d(rem), CreatedAt: at,
	}))
}

// failingRepo falla o se bloquea en todas las consultas por clave.
type failingRepo struct {
	repository.LedgerRepository
	block bool
	calls atomic.Int32
}

func (f *failingRepo) Latest(ctx context.Context, _ entity.CategoryKey) (*entity.LedgerRecord, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return nil, assert.AnError
}

func (f *failingRepo) History(ctx context.Context, key entity.CategoryKey) ([]*entity.LedgerRecord, error) {
	if _, err := f.Latest(ctx, key); err != nil {
		return nil, err
	}
	return nil, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenarios por categoría
// ──────────────────────────────────────────────────────────────────────────────

func TestResolveOpening_Escenarios(t *testing.T) {
	s := memory.NewLedgerStore()
	pencils := entity.NewCategoryKey(entity.CategoryKit, "Pencils", "", "")
	chess := entity.NewCategoryKey(entity.CategoryGame, "Chess", "", "")
	maleL := entity.NewCategoryKey(entity.CategoryBlazer, "", "Male", "M-L")
	stationery := entity.NewCategoryKey(entity.CategoryExpense, "Stationery", "", "")

	seed(t, s, pencils, 0, 40, 0, t0)
	seed(t, s, pencils, 10, 5, 3, t0.Add(time.Hour))
	seed(t, s, chess, 4, 0, 10, t0)
	seed(t, s, maleL, 0, 20, 0, t0)
	seed(t, s, maleL, 20, 0, 5, t0.Add(time.Minute))
	seed(t, s, maleL, 15, 3, 0, t0.Add(2*time.Minute))
	seed(t, s, stationery, 0, 1000, 1200, t0)

	r := carry.NewResolver(s, logger.Nop(), time.Second)
	ctx := context.Background()

	cases := []struct {
		name   string
		key    entity.CategoryKey
		want   int64
		source carry.Source
	}{
		{"kit toma el último registro", pencils, 12, carry.SourceCarried},
		{"juego negativo se recorta", chess, 0, carry.SourceCarried},
		{"blazer suma todo el historial", maleL, 18, carry.SourceCarried},
		{"gasto arrastra el sobregasto", stationery, -200, carry.SourceCarried},
		{"sin historial", entity.NewCategoryKey(entity.CategoryKit, "NewWidget", "", ""), 0, carry.SourceNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := r.ResolveOpening(ctx, tc.key)
			assert.Equal(t, tc.source, res.Source)
			assert.True(t, d(tc.want).Equal(res.Opening), "esperado %d, obtenido %s", tc.want, res.Opening)
		})
	}
}

func TestResolveOpening_SinHistorialEnTodasLasCategorias(t *testing.T) {
	r := carry.NewResolver(memory.NewLedgerStore(), logger.Nop(), time.Second)
	keys := []entity.CategoryKey{
		entity.NewCategoryKey(entity.CategoryKit, "A", "", ""),
		entity.NewCategoryKey(entity.CategoryGame, "B", "", ""),
		entity.NewCategoryKey(entity.CategoryBlazer, "", "Female", "F-S"),
		entity.NewCategoryKey(entity.CategoryExpense, "C", "", ""),
	}
	for _, k := range keys {
		res := r.ResolveOpening(context.Background(), k)
		assert.Equal(t, carry.SourceNone, res.Source, k.String())
		assert.True(t, res.Opening.IsZero(), k.String())
	}
}

// Para un último registro con cierre negativo las categorías de stock nunca arrastran negativo.
func TestResolveOpening_RecorteCeroEnStock(t *testing.T) {
	s := memory.NewLedgerStore()
	keys := []entity.CategoryKey{
		entity.NewCategoryKey(entity.CategoryKit, "Glue", "", ""),
		entity.NewCategoryKey(entity.CategoryGame, "Ludo", "", ""),
		entity.NewCategoryKey(entity.CategoryBlazer, "", "Female", "F-M"),
	}
	for _, k := range keys {
		seed(t, s, k, 2, 1, 9, t0)
	}
	r := carry.NewResolver(s, logger.Nop(), time.Second)
	for _, k := range keys {
		res := r.ResolveOpening(context.Background(), k)
		assert.Equal(t, carry.SourceCarried, res.Source, k.String())
		assert.True(t, res.Opening.IsZero(), "%s: %s", k, res.Opening)
	}
}

func TestResolveOpening_ClaveIncompletaNoConsulta(t *testing.T) {
	repo := &failingRepo{}
	r := carry.NewResolver(repo, logger.Nop(), time.Second)

	res := r.ResolveOpening(context.Background(), entity.NewCategoryKey(entity.CategoryBlazer, "", "Male", ""))
	assert.Equal(t, carry.SourceNone, res.Source)
	res = r.ResolveOpening(context.Background(), entity.NewCategoryKey(entity.CategoryKit, "  ", "", ""))
	assert.Equal(t, carry.SourceNone, res.Source)
	assert.Zero(t, repo.calls.Load())
}

func TestResolveOpening_StoreNoDisponible(t *testing.T) {
	r := carry.NewResolver(&failingRepo{}, logger.Nop(), time.Second)
	res := r.ResolveOpening(context.Background(), entity.NewCategoryKey(entity.CategoryGame, "Chess", "", ""))
	assert.Equal(t, carry.SourceNone, res.Source)
	assert.True(t, res.Opening.IsZero())
}

func TestResolveOpening_Timeout(t *testing.T) {
	repo := &failingRepo{block: true}
	r := carry.NewResolver(repo, logger.Nop(), 30*time.Millisecond)

	start := time.Now()
	res := r.ResolveOpening(context.Background(), entity.NewCategoryKey(entity.CategoryBlazer, "", "Male", "M-L"))
	assert.Equal(t, carry.SourceNone, res.Source)
	assert.Less(t, time.Since(start), time.Second)
	assert.EqualValues(t, 1, repo.calls.Load())
}

// ──────────────────────────────────────────────────────────────────────────────
// Consultas compartidas
// ──────────────────────────────────────────────────────────────────────────────

// gatedRepo retiene Latest hasta que se libera release.
type gatedRepo struct {
	repository.LedgerRepository
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (g *gatedRepo) Latest(ctx context.Context, key entity.CategoryKey) (*entity.LedgerRecord, error) {
	if g.calls.Add(1) == 1 {
		close(g.entered)
	}
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.LedgerRepository.Latest(ctx, key)
}

func TestResolveOpening_CancelarAlPrimeroNoAfectaAlResto(t *testing.T) {
	s := memory.NewLedgerStore()
	pencils := entity.NewCategoryKey(entity.CategoryKit, "Pencils", "", "")
	seed(t, s, pencils, 10, 5, 3, t0)
	repo := &gatedRepo{LedgerRepository: s, entered: make(chan struct{}), release: make(chan struct{})}
	r := carry.NewResolver(repo, logger.Nop(), time.Second)

	ctxA, cancelA := context.WithCancel(context.Background())
	resA := make(chan carry.OpeningResult, 1)
	go func() { resA <- r.ResolveOpening(ctxA, pencils) }()
	<-repo.entered

	resB := make(chan carry.OpeningResult, 1)
	go func() { resB <- r.ResolveOpening(context.Background(), pencils) }()
	time.Sleep(20 * time.Millisecond) // B se une a la consulta en vuelo

	cancelA()
	select {
	case res := <-resA:
		assert.Equal(t, carry.SourceNone, res.Source, "A se canceló")
	case <-time.After(time.Second):
		t.Fatal("A no respetó su cancelación")
	}

	close(repo.release)
	select {
	case res := <-resB:
		assert.Equal(t, carry.SourceCarried, res.Source)
		assert.Equal(t, "12", res.Opening.String())
	case <-time.After(time.Second):
		t.Fatal("B no recibió resultado")
	}
	assert.EqualValues(t, 1, repo.calls.Load(), "una sola consulta para la misma clave")
}

func TestResolveOpening_LlamadasSimultaneasComparten(t *testing.T) {
	s := memory.NewLedgerStore()
	chess := entity.NewCategoryKey(entity.CategoryGame, "Chess", "", "")
	seed(t, s, chess, 4, 2, 1, t0)
	repo := &gatedRepo{LedgerRepository: s, entered: make(chan struct{}), release: make(chan struct{})}
	r := carry.NewResolver(repo, logger.Nop(), time.Second)

	const n = 5
	results := make(chan carry.OpeningResult, n)
	for i := 0; i < n; i++ {
		go func() { results <- r.ResolveOpening(context.Background(), chess) }()
	}
	<-repo.entered
	time.Sleep(20 * time.Millisecond)
	close(repo.release)

	for i := 0; i < n; i++ {
		res := <-results
		assert.Equal(t, carry.SourceCarried, res.Source)
		assert.Equal(t, "5", res.Opening.String())
	}
}
