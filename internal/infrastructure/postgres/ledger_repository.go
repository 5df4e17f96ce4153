package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/balance"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

// tableDef columnas de cada tabla de módulo.
type tableDef struct {
	table    string
	keyCols  []string
	opening  string
	addition string
	removal  string
	derived  string // columna con el saldo derivado, se reescribe en cada escritura
	notes    string
	date     string // "" si la tabla no tiene fecha
}

var tables = map[entity.Category]tableDef{
	entity.CategoryKit: {
		table: "kits_inventory", keyCols: []string{"item_name"},
		opening: "opening_balance", addition: "addins", removal: "takeouts",
		derived: "closing_balance", notes: "remarks", date: "date",
	},
	entity.CategoryGame: {
		table: "games_inventory", keyCols: []string{"game_details"},
		opening: "previous_stock", addition: "adding", removal: "sent",
		derived: "in_stock", notes: "sent_by",
	},
	entity.CategoryBlazer: {
		table: "blazer_inventory", keyCols: []string{"gender", "size"},
		opening: "in_office_stock", addition: "added", removal: "sent",
		derived: "quantity", notes: "remarks",
	},
	entity.CategoryExpense: {
		table: "daily_expenses", keyCols: []string{"expense_category"},
		opening: "previous_month_overspend", addition: "fixed_amount", removal: "expenses",
		derived: "remaining_balance", notes: "remarks", date: "date",
	},
}

func defFor(c entity.Category) (tableDef, error) {
	s, ok := tables[c]
	if !ok {
		return tableDef{}, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, c)
	}
	return s, nil
}

// selectCols columnas en el orden que espera scan.
func (s tableDef) selectCols() string {
	cols := []string{"id::text"}
	for _, k := range s.keyCols {
		cols = append(cols, fmt.Sprintf("btrim(COALESCE(%s::text, ''))", k))
	}
	cols = append(cols,
		fmt.Sprintf("COALESCE(%s, 0)::numeric", s.opening),
		fmt.Sprintf("COALESCE(%s, 0)::numeric", s.addition),
		fmt.Sprintf("COALESCE(%s, 0)::numeric", s.removal),
		fmt.Sprintf("COALESCE(%s, '')", s.notes),
	)
	if s.date != "" {
		cols = append(cols, s.date+"::timestamptz")
	}
	cols = append(cols,
		"COALESCE(user_id::text, '')",
		"COALESCE(created_at, 'epoch'::timestamptz)",
		"COALESCE(updated_at, created_at, 'epoch'::timestamptz)",
	)
	return strings.Join(cols, ", ")
}

// keyWhere condición de igualdad sobre las columnas de clave a partir de $start.
func (s tableDef) keyWhere(start int) string {
	conds := make([]string, len(s.keyCols))
	for i, k := range s.keyCols {
		conds[i] = fmt.Sprintf("btrim(%s::text) = $%d", k, start+i)
	}
	return strings.Join(conds, " AND ")
}

func (s tableDef) keyArgs(key entity.CategoryKey) []any {
	if key.Category == entity.CategoryBlazer {
		return []any{key.Gender, key.Size}
	}
	return []any{key.Name}
}

func (s tableDef) keyFrom(c entity.Category, parts []string) entity.CategoryKey {
	if c == entity.CategoryBlazer {
		return entity.NewCategoryKey(c, "", parts[0], parts[1])
	}
	return entity.NewCategoryKey(c, parts[0], "", "")
}

func (s tableDef) scan(c entity.Category, row pgx.Row) (*entity.LedgerRecord, error) {
	var (
		rec  entity.LedgerRecord
		date *time.Time
	)
	parts := make([]string, len(s.keyCols))
	dest := []any{&rec.ID}
	for i := range parts {
		dest = append(dest, &parts[i])
	}
	dest = append(dest, &rec.Opening, &rec.Addition, &rec.Removal, &rec.Notes)
	if s.date != "" {
		dest = append(dest, &date)
	}
	dest = append(dest, &rec.CreatedBy, &rec.CreatedAt, &rec.UpdatedAt)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	rec.Key = s.keyFrom(c, parts)
	rec.Date = date
	return &rec, nil
}

// derivedValue saldo derivado que se persiste junto al registro.
func derivedValue(rec *entity.LedgerRecord) (decimal.Decimal, error) {
	if rec.Category() == entity.CategoryBlazer {
		return rec.Quantity(), nil
	}
	return balance.RecordClosing(rec)
}

// LedgerRepo implementación de LedgerRepository sobre las tablas de módulo (usable con pool o tx).
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

func (r *LedgerRepo) queryOne(ctx context.Context, c entity.Category, op, query string, args ...any) (*entity.LedgerRecord, error) {
	s, err := defFor(c)
	if err != nil {
		return nil, err
	}
	rec, err := s.scan(c, r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

func (r *LedgerRepo) queryMany(ctx context.Context, c entity.Category, op, query string, args ...any) ([]*entity.LedgerRecord, error) {
	s, err := defFor(c)
	if err != nil {
		return nil, err
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	var list []*entity.LedgerRecord
	for rows.Next() {
		rec, err := s.scan(c, rows)
		if err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		list = append(list, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return list, nil
}

// Latest último registro de la clave por created_at.
func (r *LedgerRepo) Latest(ctx context.Context, key entity.CategoryKey) (*entity.LedgerRecord, error) {
	s, err := defFor(key.Category)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s
		ORDER BY created_at DESC NULLS LAST, id DESC
		LIMIT 1`, s.selectCols(), s.table, s.keyWhere(1))
	return r.queryOne(ctx, key.Category, "latest "+s.table, query, s.keyArgs(key)...)
}

// History historial completo de la clave en orden cronológico.
func (r *LedgerRepo) History(ctx context.Context, key entity.CategoryKey) ([]*entity.LedgerRecord, error) {
	s, err := defFor(key.Category)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s
		ORDER BY created_at ASC NULLS FIRST, id ASC`, s.selectCols(), s.table, s.keyWhere(1))
	return r.queryMany(ctx, key.Category, "history "+s.table, query, s.keyArgs(key)...)
}

// Create inserta el registro con su saldo derivado; asigna ID y timestamps.
func (r *LedgerRepo) Create(ctx context.Context, rec *entity.LedgerRecord) error {
	c := rec.Category()
	s, err := defFor(c)
	if err != nil {
		return err
	}
	derived, err := derivedValue(rec)
	if err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	cols := append([]string{"id"}, s.keyCols...)
	args := append([]any{rec.ID}, s.keyArgs(rec.Key)...)
	cols = append(cols, s.opening, s.addition, s.removal, s.derived, s.notes)
	args = append(args, rec.Opening, rec.Addition, rec.Removal, derived, rec.Notes)
	if s.date != "" {
		cols = append(cols, s.date)
		args = append(args, rec.Date)
	}
	cols = append(cols, "user_id")
	args = append(args, nullableUUID(rec.CreatedBy))

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, created_at, updated_at)
		VALUES (%s, now(), now())
		RETURNING created_at, updated_at`,
		s.table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	if err := r.q.QueryRow(ctx, query, args...).Scan(&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return translateError("create "+s.table, err)
	}
	return nil
}

// GetByID obtiene un registro por ID o nil si no existe.
func (r *LedgerRepo) GetByID(ctx context.Context, c entity.Category, id string) (*entity.LedgerRecord, error) {
	return r.get(ctx, c, id, "")
}

// GetForUpdate obtiene el registro y bloquea la fila (SELECT FOR UPDATE). Usar dentro de TxRunner.Run.
func (r *LedgerRepo) GetForUpdate(ctx context.Context, c entity.Category, id string) (*entity.LedgerRecord, error) {
	return r.get(ctx, c, id, "FOR UPDATE")
}

func (r *LedgerRepo) get(ctx context.Context, c entity.Category, id, lock string) (*entity.LedgerRecord, error) {
	s, err := defFor(c)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 %s`, s.selectCols(), s.table, lock)
	return r.queryOne(ctx, c, "get "+s.table, query, id)
}

// Update reescribe los componentes editables y el saldo derivado.
func (r *LedgerRepo) Update(ctx context.Context, rec *entity.LedgerRecord) error {
	s, err := defFor(rec.Category())
	if err != nil {
		return err
	}
	derived, err := derivedValue(rec)
	if err != nil {
		return err
	}
	sets := []string{
		s.opening + " = $2", s.addition + " = $3", s.removal + " = $4",
		s.derived + " = $5", s.notes + " = $6",
	}
	args := []any{rec.ID, rec.Opening, rec.Addition, rec.Removal, derived, rec.Notes}
	if s.date != "" {
		sets = append(sets, s.date+" = $7")
		args = append(args, rec.Date)
	}
	query := fmt.Sprintf(`UPDATE %s SET %s, updated_at = now() WHERE id = $1 RETURNING updated_at`,
		s.table, strings.Join(sets, ", "))
	if err := r.q.QueryRow(ctx, query, args...).Scan(&rec.UpdatedAt); err != nil {
		return translateError("update "+s.table, err)
	}
	return nil
}

// List página de la categoría, el más reciente primero.
func (r *LedgerRepo) List(ctx context.Context, c entity.Category, limit, offset int) ([]*entity.LedgerRecord, error) {
	s, err := defFor(c)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		ORDER BY created_at DESC NULLS LAST, id DESC
		LIMIT $1 OFFSET $2`, s.selectCols(), s.table)
	return r.queryMany(ctx, c, "list "+s.table, query, limit, offset)
}

// LatestPerKey último registro de cada clave (DISTINCT ON).
func (r *LedgerRepo) LatestPerKey(ctx context.Context, c entity.Category) ([]*entity.LedgerRecord, error) {
	s, err := defFor(c)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(s.keyCols))
	for i, k := range s.keyCols {
		keys[i] = fmt.Sprintf("btrim(%s::text)", k)
	}
	query := fmt.Sprintf(`
		SELECT DISTINCT ON (%[1]s) %[2]s FROM %[3]s
		WHERE %[4]s
		ORDER BY %[1]s, created_at DESC NULLS LAST, id DESC`,
		strings.Join(keys, ", "), s.selectCols(), s.table, nonEmptyKeys(keys))
	return r.queryMany(ctx, c, "latest per key "+s.table, query)
}

// TotalsPerKey suma entradas y salidas de cada clave.
func (r *LedgerRepo) TotalsPerKey(ctx context.Context, c entity.Category) ([]entity.KeyTotal, error) {
	s, err := defFor(c)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(s.keyCols))
	for i, k := range s.keyCols {
		keys[i] = fmt.Sprintf("btrim(%s::text)", k)
	}
	query := fmt.Sprintf(`
		SELECT %[1]s, COALESCE(SUM(%[2]s), 0)::numeric, COALESCE(SUM(%[3]s), 0)::numeric, COUNT(*)
		FROM %[4]s
		WHERE %[5]s
		GROUP BY %[1]s
		ORDER BY %[1]s`,
		strings.Join(keys, ", "), s.addition, s.removal, s.table, nonEmptyKeys(keys))
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("totals %s: %w", s.table, err)
	}
	defer rows.Close()

	var list []entity.KeyTotal
	for rows.Next() {
		var (
			t     entity.KeyTotal
			parts = make([]string, len(s.keyCols))
			dest  []any
		)
		for i := range parts {
			dest = append(dest, &parts[i])
		}
		dest = append(dest, &t.Addition, &t.Removal, &t.Records)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("totals %s scan: %w", s.table, err)
		}
		t.Key = s.keyFrom(c, parts)
		list = append(list, t)
	}
	return list, rows.Err()
}

func nonEmptyKeys(exprs []string) string {
	conds := make([]string, len(exprs))
	for i, e := range exprs {
		conds[i] = fmt.Sprintf("COALESCE(%s, '') <> ''", e)
	}
	return strings.Join(conds, " AND ")
}

func nullableUUID(id string) any {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	return id
}
