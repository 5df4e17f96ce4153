// Package sqlite implementa el almacenamiento local de registros y bitácora sobre SQLite
// (modernc.org/sqlite, sin cgo). Los decimales se guardan como TEXT para no perder precisión.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/balance"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// timeLayout ancho fijo para que el orden lexicográfico coincida con el cronológico.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const dateLayout = "2006-01-02"

// querier común a *sql.DB y *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open abre (o crea) la base y aplica las migraciones.
func Open(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Un solo escritor: evita SQLITE_BUSY entre la transacción de edición y las lecturas.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	return db, nil
}

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

// LedgerRepo registros de todas las categorías en la tabla ledger_records.
type LedgerRepo struct {
	q querier
}

// NewLedgerRepository construye el repositorio (db o tx).
func NewLedgerRepository(q querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

const selectCols = `id, category, key_name, gender, size, opening, addition, removal, notes,
	record_date, created_by, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*entity.LedgerRecord, error) {
	var (
		rec                          entity.LedgerRecord
		category, name, gender, size string
		opening, addition, removal   string
		date                         sql.NullString
		createdAt, updatedAt         string
	)
	if err := row.Scan(&rec.ID, &category, &name, &gender, &size, &opening, &addition, &removal,
		&rec.Notes, &date, &rec.CreatedBy, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	rec.Key = entity.NewCategoryKey(entity.Category(category), name, gender, size)
	var err error
	if rec.Opening, err = decimal.NewFromString(opening); err != nil {
		return nil, fmt.Errorf("opening %s: %w", rec.ID, err)
	}
	if rec.Addition, err = decimal.NewFromString(addition); err != nil {
		return nil, fmt.Errorf("addition %s: %w", rec.ID, err)
	}
	if rec.Removal, err = decimal.NewFromString(removal); err != nil {
		return nil, fmt.Errorf("removal %s: %w", rec.ID, err)
	}
	if date.Valid && date.String != "" {
		d, err := time.Parse(dateLayout, date.String)
		if err != nil {
			return nil, fmt.Errorf("record_date %s: %w", rec.ID, err)
		}
		rec.Date = &d
	}
	if rec.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("created_at %s: %w", rec.ID, err)
	}
	if rec.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("updated_at %s: %w", rec.ID, err)
	}
	return &rec, nil
}

func (r *LedgerRepo) queryOne(ctx context.Context, op, query string, args ...any) (*entity.LedgerRecord, error) {
	rec, err := scanRecord(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rec, nil
}

func (r *LedgerRepo) queryMany(ctx context.Context, op, query string, args ...any) ([]*entity.LedgerRecord, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	var list []*entity.LedgerRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
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

func keyArgs(k entity.CategoryKey) []any {
	return []any{string(k.Category), k.Name, k.Gender, k.Size}
}

const keyWhere = `category = ? AND key_name = ? AND gender = ? AND size = ?`

func (r *LedgerRepo) Latest(ctx context.Context, key entity.CategoryKey) (*entity.LedgerRecord, error) {
	return r.queryOne(ctx, "latest",
		`SELECT `+selectCols+` FROM ledger_records WHERE `+keyWhere+`
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`, keyArgs(key)...)
}

func (r *LedgerRepo) History(ctx context.Context, key entity.CategoryKey) ([]*entity.LedgerRecord, error) {
	return r.queryMany(ctx, "history",
		`SELECT `+selectCols+` FROM ledger_records WHERE `+keyWhere+`
		 ORDER BY created_at ASC, rowid ASC`, keyArgs(key)...)
}

func closingOf(rec *entity.LedgerRecord) (string, error) {
	if rec.Category() == entity.CategoryBlazer {
		return rec.Quantity().String(), nil
	}
	c, err := balance.RecordClosing(rec)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}

func dateArg(d *time.Time) any {
	if d == nil {
		return nil
	}
	return d.Format(dateLayout)
}

func (r *LedgerRepo) Create(ctx context.Context, rec *entity.LedgerRecord) error {
	closing, err := closingOf(rec)
	if err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO ledger_records (id, category, key_name, gender, size, opening, addition, removal,
			closing, notes, record_date, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Category()), rec.Key.Name, rec.Key.Gender, rec.Key.Size,
		rec.Opening.String(), rec.Addition.String(), rec.Removal.String(), closing,
		rec.Notes, dateArg(rec.Date), rec.CreatedBy,
		rec.CreatedAt.UTC().Format(timeLayout), rec.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("create ledger record: %w", err)
	}
	return nil
}

func (r *LedgerRepo) GetByID(ctx context.Context, c entity.Category, id string) (*entity.LedgerRecord, error) {
	return r.queryOne(ctx, "get",
		`SELECT `+selectCols+` FROM ledger_records WHERE id = ? AND category = ?`, id, string(c))
}

// GetForUpdate SQLite bloquea la base completa al escribir; con una sola conexión abierta
// la transacción de TxRunner ya es exclusiva.
func (r *LedgerRepo) GetForUpdate(ctx context.Context, c entity.Category, id string) (*entity.LedgerRecord, error) {
	return r.GetByID(ctx, c, id)
}

func (r *LedgerRepo) Update(ctx context.Context, rec *entity.LedgerRecord) error {
	closing, err := closingOf(rec)
	if err != nil {
		return err
	}
	rec.UpdatedAt = time.Now().UTC()
	res, err := r.q.ExecContext(ctx, `
		UPDATE ledger_records
		SET opening = ?, addition = ?, removal = ?, closing = ?, notes = ?, record_date = ?, updated_at = ?
		WHERE id = ? AND category = ?`,
		rec.Opening.String(), rec.Addition.String(), rec.Removal.String(), closing,
		rec.Notes, dateArg(rec.Date), rec.UpdatedAt.Format(timeLayout),
		rec.ID, string(rec.Category()),
	)
	if err != nil {
		return fmt.Errorf("update ledger record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *LedgerRepo) List(ctx context.Context, c entity.Category, limit, offset int) ([]*entity.LedgerRecord, error) {
	return r.queryMany(ctx, "list",
		`SELECT `+selectCols+` FROM ledger_records WHERE category = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`, string(c), limit, offset)
}

func (r *LedgerRepo) LatestPerKey(ctx context.Context, c entity.Category) ([]*entity.LedgerRecord, error) {
	return r.queryMany(ctx, "latest per key", `
		SELECT `+selectCols+` FROM (
			SELECT *, ROW_NUMBER() OVER (
				PARTITION BY key_name, gender, size ORDER BY created_at DESC, rowid DESC
			) AS rn
			FROM ledger_records WHERE category = ?
		) WHERE rn = 1
		ORDER BY key_name, gender, size`, string(c))
}

// TotalsPerKey suma en Go: SUM sobre TEXT en SQLite pasa por coma flotante.
func (r *LedgerRepo) TotalsPerKey(ctx context.Context, c entity.Category) ([]entity.KeyTotal, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT key_name, gender, size, addition, removal FROM ledger_records
		WHERE category = ? ORDER BY key_name, gender, size`, string(c))
	if err != nil {
		return nil, fmt.Errorf("totals: %w", err)
	}
	defer rows.Close()

	var (
		list []entity.KeyTotal
		cur  *entity.KeyTotal
	)
	for rows.Next() {
		var name, gender, size, addition, removal string
		if err := rows.Scan(&name, &gender, &size, &addition, &removal); err != nil {
			return nil, fmt.Errorf("totals scan: %w", err)
		}
		add, err := decimal.NewFromString(addition)
		if err != nil {
			return nil, fmt.Errorf("totals addition: %w", err)
		}
		rem, err := decimal.NewFromString(removal)
		if err != nil {
			return nil, fmt.Errorf("totals removal: %w", err)
		}
		key := entity.NewCategoryKey(c, name, gender, size)
		if cur == nil || cur.Key != key {
			list = append(list, entity.KeyTotal{Key: key})
			cur = &list[len(list)-1]
		}
		cur.Addition = cur.Addition.Add(add)
		cur.Removal = cur.Removal.Add(rem)
		cur.Records++
	}
	return list, rows.Err()
}

// TxRunner transacciones sobre la base SQLite.
type TxRunner struct {
	db *sql.DB
}

// NewTxRunner construye el runner.
func NewTxRunner(db *sql.DB) *TxRunner {
	return &TxRunner{db: db}
}

// Run ejecuta fn dentro de una transacción y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(repo repository.LedgerRepository) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(NewLedgerRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
