package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.ActivityLogRepository = (*ActivityLogRepo)(nil)

// activityData contenido de la columna data (jsonb) de activity_logs.
type activityData struct {
	ModuleName   string         `json:"module_name"`
	Action       string         `json:"action"`
	Summary      string         `json:"summary"`
	RecordID     string         `json:"record_id,omitempty"`
	RecordData   map[string]any `json:"record_data,omitempty"`
	ErrorDetails map[string]any `json:"error_details,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// ActivityLogRepo bitácora sobre la tabla activity_logs (module_type + data jsonb).
type ActivityLogRepo struct {
	q Querier
}

// NewActivityLogRepository construye el adaptador. Pasar pool o tx (Querier).
func NewActivityLogRepository(q Querier) *ActivityLogRepo {
	return &ActivityLogRepo{q: q}
}

// Create inserta la entrada.
func (r *ActivityLogRepo) Create(ctx context.Context, l *entity.ActivityLog) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	data, err := json.Marshal(activityData{
		ModuleName:   l.Category.DisplayName(),
		Action:       l.Action,
		Summary:      l.Summary,
		RecordID:     l.RecordID,
		RecordData:   l.RecordData,
		ErrorDetails: l.ErrorDetails,
		Timestamp:    l.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal activity log: %w", err)
	}
	query := `
		INSERT INTO activity_logs (id, user_id, module_type, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4::jsonb, $5, $5)`
	if _, err := r.q.Exec(ctx, query, l.ID, nullableUUID(l.UserID), string(l.Category), string(data), l.CreatedAt); err != nil {
		return translateError("create activity log", err)
	}
	return nil
}

// ListByCategory entradas del módulo, la más reciente primero.
func (r *ActivityLogRepo) ListByCategory(ctx context.Context, c entity.Category, limit, offset int) ([]*entity.ActivityLog, error) {
	query := `
		SELECT id::text, COALESCE(user_id::text, ''), module_type, data, created_at
		FROM activity_logs
		WHERE module_type = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, string(c), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list activity logs: %w", err)
	}
	defer rows.Close()

	var list []*entity.ActivityLog
	for rows.Next() {
		var (
			l      entity.ActivityLog
			module string
			raw    []byte
		)
		if err := rows.Scan(&l.ID, &l.UserID, &module, &raw, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity log: %w", err)
		}
		var data activityData
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("unmarshal activity log %s: %w", l.ID, err)
		}
		l.Category = entity.Category(module)
		l.Action = data.Action
		l.Summary = data.Summary
		l.RecordID = data.RecordID
		l.RecordData = data.RecordData
		l.ErrorDetails = data.ErrorDetails
		list = append(list, &l)
	}
	return list, rows.Err()
}
