package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain/balance"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

const dateLayout = "2006-01-02"

// fieldsOf valores del registro con los nombres de columna de su categoría.
func fieldsOf(rec *entity.LedgerRecord) map[string]any {
	c := rec.Category()
	f := c.Fields()
	out := make(map[string]any, 8)
	for k, v := range rec.Key.Values() {
		out[k] = v
	}
	out[f.Opening] = rec.Opening.String()
	out[f.Addition] = rec.Addition.String()
	out[f.Removal] = rec.Removal.String()
	if c == entity.CategoryBlazer {
		out[entity.FieldBlazerQuantity] = rec.Quantity().String()
	} else if closing, err := balance.RecordClosing(rec); err == nil {
		out[f.Closing] = closing.String()
	}
	if f.Notes != "" && rec.Notes != "" {
		out[f.Notes] = rec.Notes
	}
	if f.Date != "" && rec.Date != nil {
		out[f.Date] = rec.Date.Format(dateLayout)
	}
	return out
}

func toRecordResponse(rec *entity.LedgerRecord) dto.RecordResponse {
	resp := dto.RecordResponse{
		ID:        rec.ID,
		Category:  string(rec.Category()),
		Key:       rec.Key.Values(),
		Opening:   rec.Opening,
		Addition:  rec.Addition,
		Removal:   rec.Removal,
		Notes:     rec.Notes,
		Fields:    fieldsOf(rec),
		CreatedBy: rec.CreatedBy,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	if rec.Date != nil {
		resp.Date = rec.Date.Format(dateLayout)
	}
	if rec.Category() == entity.CategoryBlazer {
		q := rec.Quantity()
		resp.Quantity = &q
	} else if closing, err := balance.RecordClosing(rec); err == nil {
		resp.Closing = &closing
	}
	return resp
}

func toActivityLogResponse(l *entity.ActivityLog) dto.ActivityLogResponse {
	return dto.ActivityLogResponse{
		ID:           l.ID,
		UserID:       l.UserID,
		ModuleName:   l.Category.DisplayName(),
		Action:       l.Action,
		RecordID:     l.RecordID,
		Summary:      l.Summary,
		RecordData:   l.RecordData,
		ErrorDetails: l.ErrorDetails,
		CreatedAt:    l.CreatedAt,
	}
}

func sumBalances(rows []dto.BalanceRow) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Balance)
	}
	return total
}
