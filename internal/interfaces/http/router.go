package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/carry"
	"github.com/jhoicas/stock-ledger/internal/application/ledger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger     *ledger.Service
	Forms      *ledger.FormUseCase
	Resolver   carry.OpeningResolver
	Calculator *carry.Calculator
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", UserMiddleware())

	// Arrastre sin estado
	carryGroup := api.Group("/carry/:category", RequireCategory())
	carryHandler := NewCarryHandler(deps.Resolver, deps.Calculator)
	carryGroup.Get("/opening", carryHandler.Opening)
	carryGroup.Post("/closing", carryHandler.Closing)

	// Registros, resumen y bitácora
	ledgerGroup := api.Group("/ledger/:category", RequireCategory())
	ledgerHandler := NewLedgerHandler(deps.Ledger)
	ledgerGroup.Get("/records", ledgerHandler.List)
	ledgerGroup.Post("/records", ledgerHandler.Create)
	ledgerGroup.Patch("/records/:id", ledgerHandler.Update)
	ledgerGroup.Get("/overview", ledgerHandler.Overview)
	ledgerGroup.Get("/overview.pdf", ledgerHandler.OverviewPDF)
	ledgerGroup.Get("/activity", ledgerHandler.Activity)

	// Formularios con arrastre del lado servidor
	forms := api.Group("/forms")
	formHandler := NewFormHandler(deps.Forms)
	forms.Post("/:category", RequireCategory(), formHandler.Open)
	forms.Get("/:id", formHandler.Get)
	forms.Patch("/:id/fields", formHandler.SetFields)
	forms.Post("/:id/submit", formHandler.Submit)
	forms.Delete("/:id", formHandler.Discard)
}
