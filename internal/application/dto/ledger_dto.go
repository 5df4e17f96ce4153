package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateRecordRequest alta de un registro. Fields usa los nombres de columna de la categoría
// (item_name, opening_balance, addins, ...). Si falta el saldo inicial se arrastra del registro anterior.
type CreateRecordRequest struct {
	Fields map[string]any `json:"fields"`
}

// UpdateFieldRequest edición en línea de un campo.
type UpdateFieldRequest struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// RecordResponse registro con su saldo derivado.
// Closing solo viaja en kits/juegos/gastos; Quantity solo en blazers.
type RecordResponse struct {
	ID        string            `json:"id"`
	Category  string            `json:"category"`
	Key       map[string]string `json:"key"`
	Date      string            `json:"date,omitempty"`
	Opening   decimal.Decimal   `json:"opening"`
	Addition  decimal.Decimal   `json:"addition"`
	Removal   decimal.Decimal   `json:"removal"`
	Closing   *decimal.Decimal  `json:"closing,omitempty"`
	Quantity  *decimal.Decimal  `json:"quantity,omitempty"`
	Notes     string            `json:"notes,omitempty"`
	Fields    map[string]any    `json:"fields"`
	CreatedBy string            `json:"created_by,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// RecordListResponse página de registros.
type RecordListResponse struct {
	Items []RecordResponse `json:"items"`
	Page  PageResponse     `json:"page"`
}

// BalanceRow saldo actual de una clave.
type BalanceRow struct {
	Key         map[string]string `json:"key"`
	Label       string            `json:"label"`
	Balance     decimal.Decimal   `json:"balance"`
	LowStock    bool              `json:"low_stock"`
	Records     int               `json:"records,omitempty"`
	LastUpdated *time.Time        `json:"last_updated,omitempty"`
}

// OverviewResponse resumen de saldos de una categoría.
type OverviewResponse struct {
	Category      string          `json:"category"`
	DisplayName   string          `json:"display_name"`
	Threshold     int             `json:"low_stock_threshold"`
	Rows          []BalanceRow    `json:"rows"`
	Total         decimal.Decimal `json:"total"`
	LowStockCount int             `json:"low_stock_count"`
	GeneratedAt   time.Time       `json:"generated_at"`
}

// ActivityLogResponse entrada de la bitácora.
type ActivityLogResponse struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id,omitempty"`
	ModuleName   string         `json:"module_name"`
	Action       string         `json:"action"`
	RecordID     string         `json:"record_id,omitempty"`
	Summary      string         `json:"summary"`
	RecordData   map[string]any `json:"record_data,omitempty"`
	ErrorDetails map[string]any `json:"error_details,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// ActivityLogListResponse página de la bitácora.
type ActivityLogListResponse struct {
	Items []ActivityLogResponse `json:"items"`
	Page  PageResponse          `json:"page"`
}
