package entity

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Category identifica el módulo (tabla) de un registro con saldo arrastrable.
type Category string

// Categorías soportadas por el motor de arrastre.
const (
	CategoryKit     Category = "kits_inventory"
	CategoryGame    Category = "games_inventory"
	CategoryBlazer  Category = "blazer_inventory"
	CategoryExpense Category = "daily_expenses"
)

// Categories devuelve todas las categorías en orden estable.
func Categories() []Category {
	return []Category{CategoryKit, CategoryGame, CategoryBlazer, CategoryExpense}
}

// ParseCategory convierte el nombre de tabla en Category. Devuelve siempre la constante del
// paquete, nunca el string recibido: los parámetros de ruta de fiber apuntan a un buffer reutilizado.
func ParseCategory(s string) (Category, bool) {
	switch strings.TrimSpace(s) {
	case string(CategoryKit):
		return CategoryKit, true
	case string(CategoryGame):
		return CategoryGame, true
	case string(CategoryBlazer):
		return CategoryBlazer, true
	case string(CategoryExpense):
		return CategoryExpense, true
	}
	return "", false
}

// DisplayName nombre legible del módulo (bitácora, reportes).
func (c Category) DisplayName() string {
	switch c {
	case CategoryKit:
		return "Kits Inventory"
	case CategoryGame:
		return "Games Inventory"
	case CategoryBlazer:
		return "Blazer Inventory"
	case CategoryExpense:
		return "Daily Expenses"
	}
	return string(c)
}

// IsStock indica si la categoría lleva existencias físicas (el saldo arrastrado nunca es negativo).
// Gastos diarios queda fuera: un sobregasto negativo sí se arrastra.
func (c Category) IsStock() bool {
	return c == CategoryKit || c == CategoryGame || c == CategoryBlazer
}

// FieldSet nombres de campo (columnas del formulario) de cada componente del saldo.
type FieldSet struct {
	Key      []string // campos que definen la clave de arrastre
	Opening  string   // saldo inicial arrastrado
	Addition string   // entradas del período
	Removal  string   // salidas del período
	Closing  string   // saldo derivado (solo lectura)
	Notes    string   // texto libre
	Date     string   // fecha del registro ("" si la tabla no la tiene)
	Resets   []string // campos que un arrastre deja en 0 para el nuevo registro
}

// Campos del formulario de blazers fuera del esquema común.
const (
	FieldBlazerQuantity = "quantity"
	FieldGender         = "gender"
	FieldSize           = "size"
)

// Fields devuelve el FieldSet de la categoría.
func (c Category) Fields() FieldSet {
	switch c {
	case CategoryKit:
		return FieldSet{
			Key: []string{"item_name"}, Opening: "opening_balance", Addition: "addins", Removal: "takeouts",
			Closing: "closing_balance", Notes: "remarks", Date: "date",
			Resets: []string{"addins", "takeouts"},
		}
	case CategoryGame:
		return FieldSet{
			Key: []string{"game_details"}, Opening: "previous_stock", Addition: "adding", Removal: "sent",
			Closing: "in_stock", Notes: "sent_by",
			Resets: []string{"adding", "sent"},
		}
	case CategoryBlazer:
		return FieldSet{
			Key: []string{FieldGender, FieldSize}, Opening: "in_office_stock", Addition: "added", Removal: "sent",
			Closing: "current_stock", Notes: "remarks",
			Resets: []string{FieldBlazerQuantity, "added", "sent"},
		}
	case CategoryExpense:
		return FieldSet{
			Key: []string{"expense_category"}, Opening: "previous_month_overspend", Addition: "fixed_amount",
			Removal: "expenses", Closing: "remaining_balance", Notes: "remarks", Date: "date",
			Resets: []string{"fixed_amount", "expenses"},
		}
	}
	return FieldSet{}
}

// IsKeyField indica si el campo forma parte de la clave de arrastre.
func (f FieldSet) IsKeyField(name string) bool {
	for _, k := range f.Key {
		if k == name {
			return true
		}
	}
	return false
}

// CategoryKey clave que acota la búsqueda del "registro anterior".
// Name aplica a kits/juegos/gastos; Gender+Size a blazers.
type CategoryKey struct {
	Category Category
	Name     string
	Gender   string
	Size     string
}

// NewCategoryKey construye la clave normalizando cada componente.
func NewCategoryKey(c Category, name, gender, size string) CategoryKey {
	return CategoryKey{
		Category: c,
		Name:     NormalizeKeyPart(name),
		Gender:   NormalizeKeyPart(gender),
		Size:     NormalizeKeyPart(size),
	}
}

// KeyFromValues arma la clave a partir de valores de formulario.
func KeyFromValues(c Category, values map[string]string) CategoryKey {
	if c == CategoryBlazer {
		return NewCategoryKey(c, "", values[FieldGender], values[FieldSize])
	}
	f := c.Fields()
	if len(f.Key) == 0 {
		return CategoryKey{Category: c}
	}
	return NewCategoryKey(c, values[f.Key[0]], "", "")
}

// NormalizeKeyPart recorta espacios y normaliza a NFC para que "Lápiz" escrito con
// acento combinado y precompuesto caiga en la misma clave.
func NormalizeKeyPart(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Complete indica si todos los componentes requeridos están presentes.
func (k CategoryKey) Complete() bool {
	switch k.Category {
	case CategoryBlazer:
		return k.Gender != "" && k.Size != ""
	case CategoryKit, CategoryGame, CategoryExpense:
		return k.Name != ""
	}
	return false
}

// Trigger valor compuesto que dispara el arrastre ("" si la clave está incompleta).
func (k CategoryKey) Trigger() string {
	if !k.Complete() {
		return ""
	}
	if k.Category == CategoryBlazer {
		return k.Gender + "-" + k.Size
	}
	return k.Name
}

// Values devuelve los componentes de la clave indexados por nombre de campo.
func (k CategoryKey) Values() map[string]string {
	if k.Category == CategoryBlazer {
		return map[string]string{FieldGender: k.Gender, FieldSize: k.Size}
	}
	f := k.Category.Fields()
	if len(f.Key) == 0 {
		return map[string]string{}
	}
	return map[string]string{f.Key[0]: k.Name}
}

// String representación estable para logs y singleflight.
func (k CategoryKey) String() string {
	return string(k.Category) + ":" + k.Trigger()
}
