// Package ledger contiene los casos de uso sobre los registros con saldo arrastrable:
// alta con arrastre automático, edición en línea, listados, resumen de saldos y bitácora.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/carry"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/balance"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// DefaultLowStockThreshold saldo a partir del cual una clave se marca con stock bajo.
const DefaultLowStockThreshold = 5

const auditTimeout = 5 * time.Second

// ErrReportUnavailable no hay generador de PDF configurado.
var ErrReportUnavailable = errors.New("generador de reportes no configurado")

// Deps dependencias del servicio. Audit, Activity y Report son opcionales.
type Deps struct {
	Repo     repository.LedgerRepository
	Tx       TxRunner
	Resolver carry.OpeningResolver
	Audit    AuditSink
	Activity repository.ActivityLogRepository
	Report   ReportGenerator
	Log      *logger.Logger

	LowStockThreshold int
}

// Service casos de uso sobre registros de kits, juegos, blazers y gastos.
type Service struct {
	repo     repository.LedgerRepository
	tx       TxRunner
	resolver carry.OpeningResolver
	calc     *carry.Calculator
	audit    AuditSink
	activity repository.ActivityLogRepository
	report   ReportGenerator
	log      *logger.Logger

	lowStock int
	now      func() time.Time
	wg       sync.WaitGroup
}

// NewService construye el servicio.
func NewService(d Deps) *Service {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	threshold := d.LowStockThreshold
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	return &Service{
		repo:     d.Repo,
		tx:       d.Tx,
		resolver: d.Resolver,
		calc:     carry.NewCalculator(log),
		audit:    d.Audit,
		activity: d.Activity,
		report:   d.Report,
		log:      log.Named("ledger"),
		lowStock: threshold,
		now:      time.Now,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Alta
// ──────────────────────────────────────────────────────────────────────────────

// Create registra un nuevo período para la clave indicada en fields.
//
// Si el saldo inicial no viene informado se arrastra del registro anterior (o 0 si no hay).
// Los valores no numéricos cuentan como 0. En blazers "quantity" con signo se separa en added/sent.
// El alta se audita como CREATE_SUCCESS o CREATE_ERROR sin esperar a la bitácora.
func (s *Service) Create(ctx context.Context, category entity.Category, userID string, fields map[string]any) (*dto.RecordResponse, error) {
	f := category.Fields()
	if len(f.Key) == 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, category)
	}
	keyValues := make(map[string]string, len(f.Key))
	for _, k := range f.Key {
		keyValues[k] = stringValue(fields[k])
	}
	key := entity.KeyFromValues(category, keyValues)
	if !key.Complete() {
		return nil, fmt.Errorf("%w: %s", domain.ErrIncompleteKey, strings.Join(f.Key, ", "))
	}

	rec := &entity.LedgerRecord{
		Key:       key,
		Notes:     strings.TrimSpace(stringValue(fields[f.Notes])),
		CreatedBy: userID,
	}

	if category == entity.CategoryBlazer && !isBlank(fields[entity.FieldBlazerQuantity]) {
		rec.Addition, rec.Removal = balance.SplitQuantity(s.calc.Coerce(category, entity.FieldBlazerQuantity, fields[entity.FieldBlazerQuantity]))
	} else {
		rec.Addition = s.calc.Coerce(category, f.Addition, fields[f.Addition])
		rec.Removal = s.calc.Coerce(category, f.Removal, fields[f.Removal])
	}
	if rec.Addition.IsNegative() || rec.Removal.IsNegative() {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrNegativeQuantity, f.Addition, f.Removal)
	}

	if isBlank(fields[f.Opening]) {
		res := s.resolver.ResolveOpening(ctx, key)
		rec.Opening = res.Opening
	} else {
		rec.Opening = s.calc.Coerce(category, f.Opening, fields[f.Opening])
	}
	if category.IsStock() && rec.Opening.IsNegative() {
		return nil, fmt.Errorf("%w: %s", domain.ErrNegativeQuantity, f.Opening)
	}

	if f.Date != "" {
		date, err := parseDate(fields[f.Date], s.now())
		if err != nil {
			return nil, err
		}
		rec.Date = &date
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		s.record(ctx, entity.ActivityLog{
			UserID:       userID,
			Category:     category,
			Action:       actionCreateError,
			Summary:      failureSummary(category, fields),
			RecordData:   fields,
			ErrorDetails: errorDetails(err),
		})
		return nil, fmt.Errorf("crear registro %s: %w", key, err)
	}

	s.log.Info().
		Str("category", string(category)).
		Str("key", key.String()).
		Str("record_id", rec.ID).
		Msg("registro creado")
	s.record(ctx, entity.ActivityLog{
		UserID:     userID,
		Category:   category,
		Action:     actionCreateSuccess,
		RecordID:   rec.ID,
		Summary:    createSummary(rec),
		RecordData: fieldsOf(rec),
	})

	resp := toRecordResponse(rec)
	return &resp, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Edición en línea
// ──────────────────────────────────────────────────────────────────────────────

// UpdateField edita un componente del registro dentro de una transacción con bloqueo de fila.
// Los campos de clave y el saldo derivado no son editables; a diferencia del alta, un valor
// no numérico se rechaza. El saldo de cierre se vuelve a derivar.
func (s *Service) UpdateField(ctx context.Context, category entity.Category, id, userID, field string, raw any) (*dto.RecordResponse, error) {
	f := category.Fields()
	if len(f.Key) == 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, category)
	}
	if f.IsKeyField(field) || field == f.Closing {
		return nil, fmt.Errorf("%w: %s", domain.ErrImmutableField, field)
	}

	apply, err := s.fieldSetter(category, field, raw)
	if err != nil {
		return nil, err
	}

	var (
		updated *entity.LedgerRecord
		before  any
	)
	err = s.tx.Run(ctx, func(repo repository.LedgerRepository) error {
		rec, err := repo.GetForUpdate(ctx, category, id)
		if err != nil {
			return fmt.Errorf("obtener registro: %w", err)
		}
		if rec == nil {
			return domain.ErrNotFound
		}
		before = fieldsOf(rec)[field]
		if err := apply(rec); err != nil {
			return err
		}
		if err := repo.Update(ctx, rec); err != nil {
			return fmt.Errorf("actualizar registro: %w", err)
		}
		updated = rec
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.record(ctx, entity.ActivityLog{
				UserID:       userID,
				Category:     category,
				Action:       actionUpdateError,
				RecordID:     id,
				Summary:      "Record Update Failed",
				RecordData:   map[string]any{"field": field, "value": raw},
				ErrorDetails: errorDetails(err),
			})
		}
		return nil, err
	}

	after := fieldsOf(updated)
	s.record(ctx, entity.ActivityLog{
		UserID:     userID,
		Category:   category,
		Action:     actionUpdateSuccess,
		RecordID:   id,
		Summary:    updateSummary(field, fmt.Sprint(before), fmt.Sprint(after[field])),
		RecordData: after,
	})
	resp := toRecordResponse(updated)
	return &resp, nil
}

// fieldSetter valida el valor y devuelve la mutación a aplicar sobre el registro bloqueado.
func (s *Service) fieldSetter(category entity.Category, field string, raw any) (func(*entity.LedgerRecord) error, error) {
	f := category.Fields()
	if field == f.Notes && f.Notes != "" {
		notes := strings.TrimSpace(stringValue(raw))
		return func(r *entity.LedgerRecord) error { r.Notes = notes; return nil }, nil
	}
	if field == f.Date && f.Date != "" {
		date, err := parseDate(raw, s.now())
		if err != nil {
			return nil, err
		}
		return func(r *entity.LedgerRecord) error { r.Date = &date; return nil }, nil
	}

	v, err := balance.Coerce(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, field, err)
	}

	switch field {
	case f.Opening:
		if category.IsStock() && v.IsNegative() {
			return nil, fmt.Errorf("%w: %s", domain.ErrNegativeQuantity, field)
		}
		return func(r *entity.LedgerRecord) error { r.Opening = v; return nil }, nil
	case f.Addition, f.Removal:
		if v.IsNegative() {
			return nil, fmt.Errorf("%w: %s", domain.ErrNegativeQuantity, field)
		}
		if field == f.Addition {
			return func(r *entity.LedgerRecord) error { r.Addition = v; return nil }, nil
		}
		return func(r *entity.LedgerRecord) error { r.Removal = v; return nil }, nil
	}
	if category == entity.CategoryBlazer && field == entity.FieldBlazerQuantity {
		added, sent := balance.SplitQuantity(v)
		return func(r *entity.LedgerRecord) error {
			r.Addition, r.Removal = added, sent
			return nil
		}, nil
	}
	return nil, fmt.Errorf("%w: campo %q desconocido", domain.ErrInvalidInput, field)
}

// ──────────────────────────────────────────────────────────────────────────────
// Consultas
// ──────────────────────────────────────────────────────────────────────────────

// List devuelve una página de registros, el más reciente primero.
func (s *Service) List(ctx context.Context, category entity.Category, page dto.PageRequest) (*dto.RecordListResponse, error) {
	if _, ok := entity.ParseCategory(string(category)); !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, category)
	}
	page.DefaultPage()
	recs, err := s.repo.List(ctx, category, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("listar %s: %w", category, err)
	}
	items := make([]dto.RecordResponse, 0, len(recs))
	for _, r := range recs {
		items = append(items, toRecordResponse(r))
	}
	return &dto.RecordListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}, nil
}

// Overview saldo actual por clave. Blazers suman todo el historial; el resto toma el último registro.
// Las categorías de stock marcan las claves con saldo <= umbral.
func (s *Service) Overview(ctx context.Context, category entity.Category) (*dto.OverviewResponse, error) {
	var rows []dto.BalanceRow
	switch category {
	case entity.CategoryBlazer:
		totals, err := s.repo.TotalsPerKey(ctx, category)
		if err != nil {
			return nil, fmt.Errorf("totales %s: %w", category, err)
		}
		for _, t := range totals {
			rows = append(rows, s.balanceRow(t.Key, t.Addition.Sub(t.Removal), t.Records, nil))
		}
	case entity.CategoryKit, entity.CategoryGame, entity.CategoryExpense:
		latest, err := s.repo.LatestPerKey(ctx, category)
		if err != nil {
			return nil, fmt.Errorf("últimos registros %s: %w", category, err)
		}
		for _, r := range latest {
			closing, err := balance.RecordClosing(r)
			if err != nil {
				return nil, err
			}
			updated := r.UpdatedAt
			rows = append(rows, s.balanceRow(r.Key, closing, 0, &updated))
		}
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, category)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Label < rows[j].Label })
	low := 0
	for _, r := range rows {
		if r.LowStock {
			low++
		}
	}
	if rows == nil {
		rows = []dto.BalanceRow{}
	}
	return &dto.OverviewResponse{
		Category:      string(category),
		DisplayName:   category.DisplayName(),
		Threshold:     s.lowStock,
		Rows:          rows,
		Total:         sumBalances(rows),
		LowStockCount: low,
		GeneratedAt:   s.now(),
	}, nil
}

func (s *Service) balanceRow(key entity.CategoryKey, bal decimal.Decimal, records int, updated *time.Time) dto.BalanceRow {
	label := key.Name
	if key.Category == entity.CategoryBlazer {
		label = key.Gender + " " + displaySize(key.Size)
	}
	return dto.BalanceRow{
		Key:         key.Values(),
		Label:       label,
		Balance:     bal,
		LowStock:    key.Category.IsStock() && bal.LessThanOrEqual(decimal.NewFromInt(int64(s.lowStock))),
		Records:     records,
		LastUpdated: updated,
	}
}

// OverviewPDF genera el PDF del resumen de saldos.
func (s *Service) OverviewPDF(ctx context.Context, category entity.Category) ([]byte, string, error) {
	if s.report == nil {
		return nil, "", ErrReportUnavailable
	}
	ov, err := s.Overview(ctx, category)
	if err != nil {
		return nil, "", err
	}
	pdf, err := s.report.GenerateOverviewPDF(ctx, ov)
	if err != nil {
		return nil, "", fmt.Errorf("pdf resumen %s: %w", category, err)
	}
	filename := fmt.Sprintf("%s_overview_%s.pdf", category, ov.GeneratedAt.Format(dateLayout))
	return pdf, filename, nil
}

// Activity página de la bitácora de la categoría.
func (s *Service) Activity(ctx context.Context, category entity.Category, page dto.PageRequest) (*dto.ActivityLogListResponse, error) {
	if _, ok := entity.ParseCategory(string(category)); !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, category)
	}
	page.DefaultPage()
	items := []dto.ActivityLogResponse{}
	if s.activity != nil {
		logs, err := s.activity.ListByCategory(ctx, category, page.Limit, page.Offset)
		if err != nil {
			return nil, fmt.Errorf("bitácora %s: %w", category, err)
		}
		for _, l := range logs {
			items = append(items, toActivityLogResponse(l))
		}
	}
	return &dto.ActivityLogListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Bitácora
// ──────────────────────────────────────────────────────────────────────────────

// record envía la entrada a la bitácora en segundo plano; el fallo solo se registra en el log.
func (s *Service) record(ctx context.Context, entry entity.ActivityLog) {
	if s.audit == nil {
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
		defer cancel()
		if err := s.audit.Record(ctx, entry); err != nil {
			s.log.Warn().Err(err).
				Str("category", string(entry.Category)).
				Str("action", entry.Action).
				Str("record_id", entry.RecordID).
				Msg("bitácora: no se pudo registrar la actividad")
		}
	}()
}

// Wait espera a que terminen las escrituras pendientes de la bitácora.
func (s *Service) Wait() {
	s.wg.Wait()
}

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

func stringValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func isBlank(v any) bool {
	return strings.TrimSpace(stringValue(v)) == ""
}

// parseDate acepta YYYY-MM-DD o RFC 3339; vacío es la fecha de hoy.
func parseDate(v any, now time.Time) (time.Time, error) {
	s := strings.TrimSpace(stringValue(v))
	if s == "" {
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: fecha %q", domain.ErrInvalidInput, s)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}
