// Package memory implementa los puertos de persistencia en memoria (driver "memory" y tests).
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

type row struct {
	seq    int64
	record entity.LedgerRecord
}

// LedgerStore implementa repository.LedgerRepository sobre un slice protegido por mutex.
type LedgerStore struct {
	mu   sync.Mutex
	seq  int64
	rows []row
	now  func() time.Time
}

var _ repository.LedgerRepository = (*LedgerStore)(nil)

// NewLedgerStore crea un store vacío.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{now: time.Now}
}

func sameKey(a, b entity.CategoryKey) bool {
	return a.Category == b.Category && a.Name == b.Name && a.Gender == b.Gender && a.Size == b.Size
}

func clone(r entity.LedgerRecord) *entity.LedgerRecord {
	if r.Date != nil {
		d := *r.Date
		r.Date = &d
	}
	return &r
}

// before orden cronológico: created_at y, en empate, orden de inserción.
func before(a, b row) bool {
	if !a.record.CreatedAt.Equal(b.record.CreatedAt) {
		return a.record.CreatedAt.Before(b.record.CreatedAt)
	}
	return a.seq < b.seq
}

func (s *LedgerStore) byKey(key entity.CategoryKey) []row {
	var out []row
	for _, r := range s.rows {
		if sameKey(r.record.Key, key) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return before(out[i], out[j]) })
	return out
}

func (s *LedgerStore) Latest(ctx context.Context, key entity.CategoryKey) (*entity.LedgerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.byKey(key)
	if len(rows) == 0 {
		return nil, nil
	}
	return clone(rows[len(rows)-1].record), nil
}

func (s *LedgerStore) History(ctx context.Context, key entity.CategoryKey) ([]*entity.LedgerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.byKey(key)
	out := make([]*entity.LedgerRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, clone(r.record))
	}
	return out, nil
}

func (s *LedgerStore) Create(ctx context.Context, record *entity.LedgerRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := s.now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	s.seq++
	s.rows = append(s.rows, row{seq: s.seq, record: *clone(*record)})
	return nil
}

func (s *LedgerStore) GetByID(ctx context.Context, category entity.Category, id string) (*entity.LedgerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.record.ID == id && r.record.Key.Category == category {
			return clone(r.record), nil
		}
	}
	return nil, nil
}

// GetForUpdate en memoria equivale a GetByID; el TxRunner serializa las transacciones.
func (s *LedgerStore) GetForUpdate(ctx context.Context, category entity.Category, id string) (*entity.LedgerRecord, error) {
	return s.GetByID(ctx, category, id)
}

func (s *LedgerStore) Update(ctx context.Context, record *entity.LedgerRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.rows {
		if r.record.ID == record.ID && r.record.Key.Category == record.Key.Category {
			record.CreatedAt = r.record.CreatedAt
			record.UpdatedAt = s.now()
			s.rows[i].record = *clone(*record)
			return nil
		}
	}
	return fmt.Errorf("update %s/%s: %w", record.Key.Category, record.ID, domain.ErrNotFound)
}

// List pagina la categoría del más reciente al más antiguo.
func (s *LedgerStore) List(ctx context.Context, category entity.Category, limit, offset int) ([]*entity.LedgerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []row
	for _, r := range s.rows {
		if r.record.Key.Category == category {
			rows = append(rows, r)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return before(rows[j], rows[i]) })
	if offset >= len(rows) {
		return []*entity.LedgerRecord{}, nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	out := make([]*entity.LedgerRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, clone(r.record))
	}
	return out, nil
}

func (s *LedgerStore) LatestPerKey(ctx context.Context, category entity.Category) ([]*entity.LedgerRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	latest := make(map[entity.CategoryKey]row)
	for _, r := range s.rows {
		if r.record.Key.Category != category {
			continue
		}
		if cur, ok := latest[r.record.Key]; !ok || before(cur, r) {
			latest[r.record.Key] = r
		}
	}
	out := make([]*entity.LedgerRecord, 0, len(latest))
	for _, r := range latest {
		out = append(out, clone(r.record))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out, nil
}

func (s *LedgerStore) TotalsPerKey(ctx context.Context, category entity.Category) ([]entity.KeyTotal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	totals := make(map[entity.CategoryKey]*entity.KeyTotal)
	for _, r := range s.rows {
		if r.record.Key.Category != category {
			continue
		}
		t, ok := totals[r.record.Key]
		if !ok {
			t = &entity.KeyTotal{Key: r.record.Key}
			totals[r.record.Key] = t
		}
		t.Addition = t.Addition.Add(r.record.Addition)
		t.Removal = t.Removal.Add(r.record.Removal)
		t.Records++
	}
	out := make([]entity.KeyTotal, 0, len(totals))
	for _, t := range totals {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out, nil
}

// snapshot y restore permiten al TxRunner deshacer una transacción fallida.
func (s *LedgerStore) snapshot() ([]row, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]row(nil), s.rows...), s.seq
}

func (s *LedgerStore) restore(rows []row, seq int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = rows
	s.seq = seq
}
