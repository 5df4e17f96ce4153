package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/carry"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/stock-ledger/internal/infrastructure/pdf"
	apphttp "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const testUserID = "00000000-0000-0000-0000-000000000001"

// buildTestApp construye la API completa sobre el store en memoria.
func buildTestApp(t *testing.T, withPDF bool) *fiber.App {
	t.Helper()
	log := logger.Nop()
	store := memory.NewLedgerStore()
	logs := memory.NewActivityLogStore()
	resolver := carry.NewResolver(store, log, time.Second)
	deps := ledger.Deps{
		Repo:     store,
		Tx:       memory.NewTxRunner(store),
		Resolver: resolver,
		Audit:    ledger.NewRepositorySink(logs),
		Activity: logs,
		Log:      log,
	}
	if withPDF {
		deps.Report = infrapdf.NewMarotoOverviewGenerator()
	}
	svc := ledger.NewService(deps)
	registry := carry.NewRegistry(resolver, log, 20*time.Millisecond)
	t.Cleanup(registry.CloseAll)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Ledger:     svc,
		Forms:      ledger.NewFormUseCase(registry, svc),
		Resolver:   resolver,
		Calculator: carry.NewCalculator(log),
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apphttp.HeaderUserID, testUserID)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

// ──────────────────────────────────────────────────────────────────────────────
// Registros
// ──────────────────────────────────────────────────────────────────────────────

func TestLedger_CrearArrastraYLista(t *testing.T) {
	app := buildTestApp(t, false)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/ledger/kits_inventory/records", dto.CreateRecordRequest{
		Fields: map[string]any{"item_name": "Pencils", "opening_balance": "10", "addins": "5", "takeouts": "3"},
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	time.Sleep(2 * time.Millisecond)

	resp, body := doJSON(t, app, http.MethodPost, "/api/ledger/kits_inventory/records", dto.CreateRecordRequest{
		Fields: map[string]any{"item_name": "Pencils", "addins": "1"},
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	rec := decode[dto.RecordResponse](t, body)
	assert.Equal(t, "12", rec.Opening.String())
	require.NotNil(t, rec.Closing)
	assert.Equal(t, "13", rec.Closing.String())
	assert.Equal(t, testUserID, rec.CreatedBy)

	resp, body = doJSON(t, app, http.MethodGet, "/api/ledger/kits_inventory/records?limit=1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	list := decode[dto.RecordListResponse](t, body)
	require.Len(t, list.Items, 1)
	assert.Equal(t, rec.ID, list.Items[0].ID, "el más reciente primero")
}

func TestLedger_Errores(t *testing.T) {
	app := buildTestApp(t, false)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"categoría desconocida", http.MethodGet, "/api/ledger/courier/records", nil, fiber.StatusNotFound, "UNKNOWN_CATEGORY"},
		{"clave incompleta", http.MethodPost, "/api/ledger/blazer_inventory/records",
			dto.CreateRecordRequest{Fields: map[string]any{"gender": "Male", "quantity": "3"}}, fiber.StatusBadRequest, "INCOMPLETE_KEY"},
		{"sin campos", http.MethodPost, "/api/ledger/kits_inventory/records",
			dto.CreateRecordRequest{}, fiber.StatusBadRequest, "VALIDATION"},
		{"registro inexistente", http.MethodPatch, "/api/ledger/kits_inventory/records/00000000-0000-0000-0000-00000000ffff",
			dto.UpdateFieldRequest{Field: "addins", Value: "1"}, fiber.StatusNotFound, "NOT_FOUND"},
		{"pdf sin generador", http.MethodGet, "/api/ledger/kits_inventory/overview.pdf", nil, fiber.StatusServiceUnavailable, "REPORT_UNAVAILABLE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, app, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
			assert.Equal(t, tt.code, decode[dto.ErrorResponse](t, body).Code)
		})
	}
}

func TestLedger_UsuarioInvalido(t *testing.T) {
	app := buildTestApp(t, false)
	req := httptest.NewRequest(http.MethodGet, "/api/ledger/kits_inventory/records", nil)
	req.Header.Set(apphttp.HeaderUserID, "no-es-uuid")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestLedger_EdicionEnLineaRecalcula(t *testing.T) {
	app := buildTestApp(t, false)
	_, body := doJSON(t, app, http.MethodPost, "/api/ledger/games_inventory/records", dto.CreateRecordRequest{
		Fields: map[string]any{"game_details": "Chess", "previous_stock": "4", "adding": "2", "sent": "1"},
	})
	rec := decode[dto.RecordResponse](t, body)

	resp, body := doJSON(t, app, http.MethodPatch, "/api/ledger/games_inventory/records/"+rec.ID,
		dto.UpdateFieldRequest{Field: "sent", Value: "3"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	updated := decode[dto.RecordResponse](t, body)
	require.NotNil(t, updated.Closing)
	assert.Equal(t, "3", updated.Closing.String())

	resp, body = doJSON(t, app, http.MethodPatch, "/api/ledger/games_inventory/records/"+rec.ID,
		dto.UpdateFieldRequest{Field: "game_details", Value: "Go"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "IMMUTABLE_FIELD", decode[dto.ErrorResponse](t, body).Code)
}

func TestLedger_ResumenYPDF(t *testing.T) {
	app := buildTestApp(t, true)
	for _, q := range []string{"10", "-2"} {
		resp, body := doJSON(t, app, http.MethodPost, "/api/ledger/blazer_inventory/records", dto.CreateRecordRequest{
			Fields: map[string]any{"gender": "Male", "size": "M-40", "quantity": q},
		})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	}

	resp, body := doJSON(t, app, http.MethodGet, "/api/ledger/blazer_inventory/overview", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	ov := decode[dto.OverviewResponse](t, body)
	require.Len(t, ov.Rows, 1)
	assert.Equal(t, "8", ov.Rows[0].Balance.String())

	resp, body = doJSON(t, app, http.MethodGet, "/api/ledger/blazer_inventory/overview.pdf", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get(fiber.HeaderContentType))
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))
}

func TestLedger_Bitacora(t *testing.T) {
	app := buildTestApp(t, false)
	doJSON(t, app, http.MethodPost, "/api/ledger/daily_expenses/records", dto.CreateRecordRequest{
		Fields: map[string]any{"expense_category": "Food", "fixed_amount": "100", "expenses": "40"},
	})
	assert.Eventually(t, func() bool {
		_, body := doJSON(t, app, http.MethodGet, "/api/ledger/daily_expenses/activity", nil)
		list := decode[dto.ActivityLogListResponse](t, body)
		return len(list.Items) == 1 && list.Items[0].Action == "CREATE_SUCCESS"
	}, time.Second, 10*time.Millisecond)
}

// ──────────────────────────────────────────────────────────────────────────────
// Arrastre
// ──────────────────────────────────────────────────────────────────────────────

func TestCarry_OpeningYClosing(t *testing.T) {
	app := buildTestApp(t, false)

	resp, body := doJSON(t, app, http.MethodGet, "/api/carry/kits_inventory/opening?name=Pencils", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	op := decode[dto.OpeningResponse](t, body)
	assert.Equal(t, "none", op.Source)
	assert.True(t, op.Opening.IsZero())
	assert.Equal(t, "opening_balance", op.Field)

	doJSON(t, app, http.MethodPost, "/api/ledger/kits_inventory/records", dto.CreateRecordRequest{
		Fields: map[string]any{"item_name": "Pencils", "opening_balance": "7", "addins": "3"},
	})
	_, body = doJSON(t, app, http.MethodGet, "/api/carry/kits_inventory/opening?name=Pencils", nil)
	op = decode[dto.OpeningResponse](t, body)
	assert.Equal(t, "carried", op.Source)
	assert.Equal(t, "10", op.Opening.String())

	resp, body = doJSON(t, app, http.MethodPost, "/api/carry/games_inventory/closing",
		map[string]any{"opening": "5", "addition": "abc", "removal": 2})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	cl := decode[dto.ClosingResponse](t, body)
	assert.Equal(t, "3", cl.Closing.String())
	assert.Equal(t, "in_stock", cl.Field)
}

// ──────────────────────────────────────────────────────────────────────────────
// Formularios
// ──────────────────────────────────────────────────────────────────────────────

func TestForms_CicloCompleto(t *testing.T) {
	app := buildTestApp(t, false)
	doJSON(t, app, http.MethodPost, "/api/ledger/kits_inventory/records", dto.CreateRecordRequest{
		Fields: map[string]any{"item_name": "Erasers", "opening_balance": "4", "addins": "2"},
	})
	time.Sleep(2 * time.Millisecond)

	resp, body := doJSON(t, app, http.MethodPost, "/api/forms/kits_inventory", nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	form := decode[dto.FormResponse](t, body)

	resp, _ = doJSON(t, app, http.MethodPatch, "/api/forms/"+form.ID+"/fields",
		dto.SetFieldsRequest{Fields: map[string]string{"item_name": "Erasers"}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool {
		_, body := doJSON(t, app, http.MethodGet, "/api/forms/"+form.ID, nil)
		st := decode[dto.FormResponse](t, body)
		return !st.Loading && st.Source == "carried" && st.Values["opening_balance"] == "6"
	}, time.Second, 10*time.Millisecond)

	resp, body = doJSON(t, app, http.MethodPost, "/api/forms/"+form.ID+"/submit", nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	rec := decode[dto.RecordResponse](t, body)
	assert.Equal(t, "6", rec.Opening.String())

	resp, _ = doJSON(t, app, http.MethodGet, "/api/forms/"+form.ID, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode, "el envío exitoso cierra el formulario")
}

func TestForms_Descartar(t *testing.T) {
	app := buildTestApp(t, false)
	_, body := doJSON(t, app, http.MethodPost, "/api/forms/blazer_inventory", nil)
	form := decode[dto.FormResponse](t, body)

	resp, _ := doJSON(t, app, http.MethodDelete, "/api/forms/"+form.ID, nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	resp, _ = doJSON(t, app, http.MethodDelete, "/api/forms/"+form.ID, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Estado entre peticiones
// ──────────────────────────────────────────────────────────────────────────────

// churn lanza peticiones ajenas para que fasthttp reutilice sus buffers.
func churn(t *testing.T, app *fiber.App) {
	t.Helper()
	for _, path := range []string{
		"/api/carry/daily_expenses/opening?name=xxxxxxxxxxxxxxxxxxxxxxxx",
		"/api/ledger/blazer_inventory/records?limit=5&offset=0",
		"/api/forms/zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz",
		"/api/ledger/daily_expenses/records",
	} {
		doJSON(t, app, http.MethodGet, path, nil)
	}
}

func TestForms_ArrastreEntrePeticiones(t *testing.T) {
	app := buildTestApp(t, false)

	resp, body := doJSON(t, app, http.MethodPost, "/api/forms/games_inventory", nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	form := decode[dto.FormResponse](t, body)
	churn(t, app)

	resp, body = doJSON(t, app, http.MethodPost, "/api/ledger/games_inventory/records", dto.CreateRecordRequest{
		Fields: map[string]any{"game_details": "Chess", "opening_balance": "8", "addins": "2", "takeouts": "1"},
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	churn(t, app)

	resp, _ = doJSON(t, app, http.MethodPatch, "/api/forms/"+form.ID+"/fields",
		dto.SetFieldsRequest{Fields: map[string]string{"game_details": "Chess"}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	churn(t, app)

	require.Eventually(t, func() bool {
		_, body := doJSON(t, app, http.MethodGet, "/api/forms/"+form.ID, nil)
		st := decode[dto.FormResponse](t, body)
		return !st.Loading && st.Source == "carried" && st.Values["opening_balance"] == "9"
	}, time.Second, 10*time.Millisecond)

	_, body = doJSON(t, app, http.MethodGet, "/api/forms/"+form.ID, nil)
	assert.Equal(t, "games_inventory", decode[dto.FormResponse](t, body).Category)
}

func TestCarry_OpeningTrasOtrasPeticiones(t *testing.T) {
	app := buildTestApp(t, false)

	doJSON(t, app, http.MethodPost, "/api/ledger/blazer_inventory/records", dto.CreateRecordRequest{
		Fields: map[string]any{"gender": "Female", "size": "S", "in_office_stock": "0", "added": "6", "sent": "2"},
	})
	churn(t, app)
	doJSON(t, app, http.MethodPost, "/api/ledger/kits_inventory/records", dto.CreateRecordRequest{
		Fields: map[string]any{"item_name": "Glue", "opening_balance": "2", "addins": "1"},
	})
	churn(t, app)

	_, body := doJSON(t, app, http.MethodGet, "/api/carry/kits_inventory/opening?name=Glue", nil)
	op := decode[dto.OpeningResponse](t, body)
	assert.Equal(t, "carried", op.Source)
	assert.Equal(t, "3", op.Opening.String())

	_, body = doJSON(t, app, http.MethodGet, "/api/carry/blazer_inventory/opening?gender=Female&size=S", nil)
	op = decode[dto.OpeningResponse](t, body)
	assert.Equal(t, "carried", op.Source)
	assert.Equal(t, "4", op.Opening.String())
}
