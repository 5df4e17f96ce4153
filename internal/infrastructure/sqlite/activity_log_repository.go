package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.ActivityLogRepository = (*ActivityLogRepo)(nil)

// ActivityLogRepo bitácora en la tabla activity_logs.
type ActivityLogRepo struct {
	q querier
}

// NewActivityLogRepository construye el repositorio.
func NewActivityLogRepository(q querier) *ActivityLogRepo {
	return &ActivityLogRepo{q: q}
}

func marshalMap(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func unmarshalMap(s sql.NullString) (map[string]any, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s.String), &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *ActivityLogRepo) Create(ctx context.Context, l *entity.ActivityLog) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	data, err := marshalMap(l.RecordData)
	if err != nil {
		return fmt.Errorf("marshal record_data: %w", err)
	}
	details, err := marshalMap(l.ErrorDetails)
	if err != nil {
		return fmt.Errorf("marshal error_details: %w", err)
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO activity_logs (id, user_id, category, action, record_id, summary, record_data, error_details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.UserID, string(l.Category), l.Action, l.RecordID, l.Summary, data, details,
		l.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("create activity log: %w", err)
	}
	return nil
}

func (r *ActivityLogRepo) ListByCategory(ctx context.Context, c entity.Category, limit, offset int) ([]*entity.ActivityLog, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, user_id, category, action, record_id, summary, record_data, error_details, created_at
		FROM activity_logs WHERE category = ?
		ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`, string(c), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list activity logs: %w", err)
	}
	defer rows.Close()

	var list []*entity.ActivityLog
	for rows.Next() {
		var (
			l                entity.ActivityLog
			category, at     string
			data, errDetails sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.UserID, &category, &l.Action, &l.RecordID, &l.Summary, &data, &errDetails, &at); err != nil {
			return nil, fmt.Errorf("scan activity log: %w", err)
		}
		l.Category = entity.Category(category)
		if l.RecordData, err = unmarshalMap(data); err != nil {
			return nil, fmt.Errorf("record_data %s: %w", l.ID, err)
		}
		if l.ErrorDetails, err = unmarshalMap(errDetails); err != nil {
			return nil, fmt.Errorf("error_details %s: %w", l.ID, err)
		}
		if l.CreatedAt, err = time.Parse(timeLayout, at); err != nil {
			return nil, fmt.Errorf("created_at %s: %w", l.ID, err)
		}
		list = append(list, &l)
	}
	return list, rows.Err()
}
