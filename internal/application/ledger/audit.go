package ledger

import (
	"fmt"
	"strings"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Acciones de la bitácora: <ACCIÓN>_SUCCESS / <ACCIÓN>_ERROR.
var (
	actionCreateSuccess = entity.ActionCreate + "_SUCCESS"
	actionCreateError   = entity.ActionCreate + "_ERROR"
	actionUpdateSuccess = entity.ActionUpdate + "_SUCCESS"
	actionUpdateError   = entity.ActionUpdate + "_ERROR"
)

// displaySize quita el prefijo de género de la talla ("M-L" → "L").
func displaySize(size string) string {
	size = strings.Replace(size, "F-", "", 1)
	return strings.Replace(size, "M-", "", 1)
}

func dateLabel(rec *entity.LedgerRecord) string {
	if rec.Date != nil {
		return rec.Date.Format(dateLayout)
	}
	if !rec.CreatedAt.IsZero() {
		return rec.CreatedAt.Format(dateLayout)
	}
	return "-"
}

// createSummary resumen legible de un alta exitosa.
func createSummary(rec *entity.LedgerRecord) string {
	switch rec.Category() {
	case entity.CategoryKit:
		return fmt.Sprintf("Added kit %q on %s (Opening: %s, Add-ins: %s, Take-outs: %s)",
			rec.Key.Name, dateLabel(rec), rec.Opening, rec.Addition, rec.Removal)
	case entity.CategoryGame:
		return fmt.Sprintf("Added game %q on %s (Prev: %s, Adding: %s, Sent: %s)",
			rec.Key.Name, dateLabel(rec), rec.Opening, rec.Addition, rec.Removal)
	case entity.CategoryBlazer:
		q := rec.Quantity()
		verb := "Sent"
		if q.IsPositive() {
			verb = "Added"
		}
		return fmt.Sprintf("%s %s %s %s blazers", verb, q.Abs(), rec.Key.Gender, displaySize(rec.Key.Size))
	case entity.CategoryExpense:
		return fmt.Sprintf("Expense entry for %q on %s (Expenses: ₹%s, Fixed: ₹%s)",
			rec.Key.Name, dateLabel(rec), rec.Removal, rec.Addition)
	}
	return "Record Added Successfully"
}

// failureSummary resumen de un alta rechazada por el store.
func failureSummary(c entity.Category, fields map[string]any) string {
	if c == entity.CategoryBlazer {
		gender, size := stringValue(fields[entity.FieldGender]), stringValue(fields[entity.FieldSize])
		qty := stringValue(fields[entity.FieldBlazerQuantity])
		if gender != "" && size != "" && qty != "" {
			return fmt.Sprintf("Failed to add %s %s - %s Blazers", qty, gender, displaySize(size))
		}
	}
	return "Record Addition Failed"
}

func updateSummary(field, before, after string) string {
	return fmt.Sprintf("Updated %s from %s to %s", field, before, after)
}

func errorDetails(err error) map[string]any {
	return map[string]any{"message": err.Error()}
}
