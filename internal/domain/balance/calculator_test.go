package balance_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/balance"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// ──────────────────────────────────────────────────────────────────────────────
// ComputeClosing
// ──────────────────────────────────────────────────────────────────────────────

func TestComputeClosing_PorCategoria(t *testing.T) {
	cases := []struct {
		name     string
		category entity.Category
		opening  int64
		addition int64
		removal  int64
		want     int64
	}{
		{"kit lápices", entity.CategoryKit, 10, 5, 3, 12},
		{"juego ajedrez negativo", entity.CategoryGame, 4, 0, 10, -6},
		{"gasto papelería sobregasto", entity.CategoryExpense, 0, 1000, 1200, -200},
		{"gasto con superávit previo", entity.CategoryExpense, 150, 1000, 900, 250},
		{"blazer aporte del registro", entity.CategoryBlazer, 18, 3, 0, 3},
		{"blazer envío", entity.CategoryBlazer, 18, 0, 5, -5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := balance.ComputeClosing(tc.category, d(tc.opening), d(tc.addition), d(tc.removal))
			require.NoError(t, err)
			assert.True(t, d(tc.want).Equal(got), "esperado %d, obtenido %s", tc.want, got)
		})
	}
}

// TestComputeClosing_Idempotente: misma entrada, mismo resultado (función pura).
func TestComputeClosing_Idempotente(t *testing.T) {
	for _, c := range entity.Categories() {
		a, errA := balance.ComputeClosing(c, d(7), d(2), d(4))
		b, errB := balance.ComputeClosing(c, d(7), d(2), d(4))
		require.NoError(t, errA)
		require.NoError(t, errB)
		assert.True(t, a.Equal(b), "categoría %s", c)
	}
}

func TestComputeClosing_CategoriaDesconocida(t *testing.T) {
	_, err := balance.ComputeClosing(entity.Category("courier_tracking"), d(1), d(1), d(1))
	assert.ErrorIs(t, err, domain.ErrUnknownCategory)
}

// ──────────────────────────────────────────────────────────────────────────────
// AggregateHistory / CarryOpening / SplitQuantity
// ──────────────────────────────────────────────────────────────────────────────

// Historial blazer (Male, L): [+20, -5, +3] → stock 18.
func TestAggregateHistory_Blazer(t *testing.T) {
	key := entity.NewCategoryKey(entity.CategoryBlazer, "", "Male", "M-L")
	history := []*entity.LedgerRecord{
		{Key: key, Addition: d(20)},
		{Key: key, Removal: d(5)},
		nil,
		{Key: key, Addition: d(3)},
	}
	assert.True(t, d(18).Equal(balance.AggregateHistory(history)))
	assert.True(t, decimal.Zero.Equal(balance.AggregateHistory(nil)))
}

func TestCarryOpening_RecortaSoloStock(t *testing.T) {
	assert.True(t, decimal.Zero.Equal(balance.CarryOpening(entity.CategoryKit, d(-3))))
	assert.True(t, decimal.Zero.Equal(balance.CarryOpening(entity.CategoryGame, d(-6))))
	assert.True(t, decimal.Zero.Equal(balance.CarryOpening(entity.CategoryBlazer, d(-1))))
	assert.True(t, d(-200).Equal(balance.CarryOpening(entity.CategoryExpense, d(-200))),
		"el sobregasto se arrastra sin recorte")
	assert.True(t, d(12).Equal(balance.CarryOpening(entity.CategoryKit, d(12))))
}

func TestSplitQuantity(t *testing.T) {
	added, sent := balance.SplitQuantity(d(7))
	assert.True(t, d(7).Equal(added))
	assert.True(t, sent.IsZero())

	added, sent = balance.SplitQuantity(d(-4))
	assert.True(t, added.IsZero())
	assert.True(t, d(4).Equal(sent))

	added, sent = balance.SplitQuantity(decimal.Zero)
	assert.True(t, added.IsZero())
	assert.True(t, sent.IsZero())
}

// ──────────────────────────────────────────────────────────────────────────────
// Coerce
// ──────────────────────────────────────────────────────────────────────────────

func TestCoerce_ValoresValidos(t *testing.T) {
	cases := map[string]struct {
		raw  any
		want string
	}{
		"nil":          {nil, "0"},
		"vacío":        {"  ", "0"},
		"texto":        {" 12.5 ", "12.5"},
		"negativo":     {"-200", "-200"},
		"float":        {float64(3.25), "3.25"},
		"int":          {42, "42"},
		"json.Number":  {json.Number("8"), "8"},
		"decimal":      {d(9), "9"},
		"puntero nil":  {(*decimal.Decimal)(nil), "0"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := balance.Coerce(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.String())
		})
	}
}

// Nunca se propaga NaN: el valor se convierte en 0 con ErrNonNumeric.
func TestCoerce_NoNumericoFallaACero(t *testing.T) {
	for _, raw := range []any{"abc", "-", math.NaN(), math.Inf(1), true, []int{1}} {
		got, err := balance.Coerce(raw)
		assert.ErrorIs(t, err, domain.ErrNonNumeric, "valor %v", raw)
		assert.True(t, got.IsZero(), "valor %v", raw)
	}
}
