package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// ActivityLogStore bitácora en memoria.
type ActivityLogStore struct {
	mu   sync.Mutex
	logs []entity.ActivityLog
}

var _ repository.ActivityLogRepository = (*ActivityLogStore)(nil)

// NewActivityLogStore crea la bitácora vacía.
func NewActivityLogStore() *ActivityLogStore {
	return &ActivityLogStore{}
}

func (s *ActivityLogStore) Create(_ context.Context, log *entity.ActivityLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	s.logs = append(s.logs, *log)
	return nil
}

// ListByCategory devuelve las entradas de la categoría, la más reciente primero.
func (s *ActivityLogStore) ListByCategory(_ context.Context, category entity.Category, limit, offset int) ([]*entity.ActivityLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.ActivityLog
	for i := len(s.logs) - 1; i >= 0; i-- {
		if s.logs[i].Category != category {
			continue
		}
		if offset > 0 {
			offset--
			continue
		}
		l := s.logs[i]
		out = append(out, &l)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// All devuelve una copia de todas las entradas en orden de inserción.
func (s *ActivityLogStore) All() []entity.ActivityLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.ActivityLog(nil), s.logs...)
}
