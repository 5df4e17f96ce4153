package entity_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

func TestParseCategory(t *testing.T) {
	c, ok := entity.ParseCategory(" kits_inventory ")
	assert.True(t, ok)
	assert.Equal(t, entity.CategoryKit, c)

	_, ok = entity.ParseCategory("courier_tracking")
	assert.False(t, ok)
}

// fasthttp reutiliza el buffer de la petición: la categoría no puede compartir memoria con la entrada.
func TestParseCategory_NoRetieneElBufferDeEntrada(t *testing.T) {
	buf := []byte("games_inventory")
	c, ok := entity.ParseCategory(unsafe.String(&buf[0], len(buf)))
	require.True(t, ok)

	copy(buf, "xxxxxxxxxxxxxxx")
	assert.Equal(t, entity.CategoryGame, c)
	assert.Equal(t, "games_inventory", string(c))
}

func TestCategoryKey_CompleteYTrigger(t *testing.T) {
	blazer := entity.NewCategoryKey(entity.CategoryBlazer, "", " Male ", "M-L")
	assert.True(t, blazer.Complete())
	assert.Equal(t, "Male-M-L", blazer.Trigger())

	soloGenero := entity.NewCategoryKey(entity.CategoryBlazer, "", "Female", "")
	assert.False(t, soloGenero.Complete())
	assert.Empty(t, soloGenero.Trigger())

	kit := entity.NewCategoryKey(entity.CategoryKit, "  Pencils", "", "")
	assert.Equal(t, "Pencils", kit.Trigger())
	assert.Equal(t, "kits_inventory:Pencils", kit.String())

	vacio := entity.NewCategoryKey(entity.CategoryExpense, "   ", "", "")
	assert.False(t, vacio.Complete())
}

// "Lápiz" con acento combinado y precompuesto deben caer en la misma clave.
func TestNormalizeKeyPart_NFC(t *testing.T) {
	precompuesto := "L\u00e1piz"
	combinado := "La\u0301piz"
	assert.NotEqual(t, precompuesto, combinado)
	assert.Equal(t, entity.NormalizeKeyPart(precompuesto), entity.NormalizeKeyPart(combinado))
}

func TestKeyFromValues(t *testing.T) {
	k := entity.KeyFromValues(entity.CategoryGame, map[string]string{"game_details": "Chess", "sent": "3"})
	assert.Equal(t, "Chess", k.Name)
	assert.Equal(t, map[string]string{"game_details": "Chess"}, k.Values())

	b := entity.KeyFromValues(entity.CategoryBlazer, map[string]string{"gender": "Female", "size": "F-S"})
	assert.Equal(t, "Female-F-S", b.Trigger())
	assert.Equal(t, map[string]string{"gender": "Female", "size": "F-S"}, b.Values())
}

func TestFieldSet_ClavesYReinicios(t *testing.T) {
	f := entity.CategoryBlazer.Fields()
	assert.True(t, f.IsKeyField("gender"))
	assert.True(t, f.IsKeyField("size"))
	assert.False(t, f.IsKeyField("quantity"))
	assert.Contains(t, f.Resets, "quantity")

	assert.Equal(t, "previous_month_overspend", entity.CategoryExpense.Fields().Opening)
	assert.True(t, entity.CategoryKit.IsStock())
	assert.False(t, entity.CategoryExpense.IsStock())
}
