package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ActivityLogRepository puerto de persistencia de la bitácora de actividad.
type ActivityLogRepository interface {
	Create(ctx context.Context, log *entity.ActivityLog) error
	ListByCategory(ctx context.Context, category entity.Category, limit, offset int) ([]*entity.ActivityLog, error)
}
