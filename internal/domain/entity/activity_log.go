package entity

import "time"

// Acciones registradas en la bitácora.
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
)

// ActivityLog entrada de la bitácora de actividad (tabla activity_logs).
type ActivityLog struct {
	ID           string
	UserID       string
	Category     Category
	Action       string // CREATE_SUCCESS, UPDATE_ERROR, ...
	RecordID     string
	Summary      string
	RecordData   map[string]any
	ErrorDetails map[string]any
	CreatedAt    time.Time
}
