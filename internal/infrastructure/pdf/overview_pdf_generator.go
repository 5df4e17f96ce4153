// Package pdf genera el reporte PDF del resumen de saldos de una categoría.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Módulo                    │  Fecha de generación   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Clave | Registros | Saldo | Estado                  │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Saldo total / Claves con stock bajo               │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/ledger"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorAlert   = &props.Color{Red: 178, Green: 34, Blue: 34}
)

// ── Generator ─────────────────────────────────────────────────────────────────

var _ ledger.ReportGenerator = (*MarotoOverviewGenerator)(nil)

// MarotoOverviewGenerator implementa ledger.ReportGenerator usando Maroto v2.
type MarotoOverviewGenerator struct{}

// NewMarotoOverviewGenerator construye el generador.
func NewMarotoOverviewGenerator() *MarotoOverviewGenerator { return &MarotoOverviewGenerator{} }

// GenerateOverviewPDF genera el PDF y devuelve sus bytes.
func (g *MarotoOverviewGenerator) GenerateOverviewPDF(_ context.Context, ov *dto.OverviewResponse) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(ov.DisplayName+" - Stock Overview", true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(ov))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	m.AddRows(tableHeaderRow())
	if len(ov.Rows) == 0 {
		m.AddRows(row.New(8).Add(col.New(12).Add(
			text.New("Sin registros", props.Text{Size: 8, Align: align.Center, Top: 2, Color: colorGray}),
		)))
	}
	for _, r := range tableRows(ov) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(ov))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(ov *dto.OverviewResponse) core.Row {
	return row.New(16).Add(
		col.New(8).Add(
			text.New(ov.DisplayName, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Stock overview", props.Text{Size: 9, Top: 9, Color: colorGray}),
		),
		col.New(4).Add(
			text.New("Generado: "+ov.GeneratedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 2, Color: colorGray,
			}),
			text.New(fmt.Sprintf("Umbral stock bajo: %d", ov.Threshold), props.Text{
				Size: 8, Align: align.Right, Top: 8, Color: colorGray,
			}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Clave", 6, align.Left),
		h("Registros", 2, align.Center),
		h("Saldo", 2, align.Right),
		h("Estado", 2, align.Center),
	)
}

func tableRows(ov *dto.OverviewResponse) []core.Row {
	result := make([]core.Row, 0, len(ov.Rows))
	for _, r := range ov.Rows {
		status, color := "OK", colorGray
		if r.LowStock {
			status, color = "STOCK BAJO", colorAlert
		}
		records := "-"
		if r.Records > 0 {
			records = fmt.Sprint(r.Records)
		}
		result = append(result, row.New(7).Add(
			col.New(6).Add(text.New(r.Label, props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1})),
			col.New(2).Add(text.New(records, props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(formatNumber(r.Balance), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New(status, props.Text{Size: 7, Align: align.Center, Top: 1, Color: color})),
		))
	}
	return result
}

func totalsRow(ov *dto.OverviewResponse) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 1, Color: colorPrimary})
	}
	return row.New(14).Add(
		col.New(4),
		col.New(4).Add(label("Saldo total:"), label("Claves con stock bajo:")),
		col.New(2).Add(value(formatNumber(ov.Total)), value(fmt.Sprint(ov.LowStockCount))),
		col.New(2),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

// formatNumber agrupa miles con punto y conserva signo y decimales. Ej: -1234.5 → "-1.234,5".
func formatNumber(d decimal.Decimal) string {
	s := d.Abs().String()
	intPart, frac, _ := strings.Cut(s, ".")
	out := groupThousands(intPart)
	if frac != "" {
		out += "," + frac
	}
	if d.IsNegative() {
		out = "-" + out
	}
	return out
}

// groupThousands inserta puntos de miles en un string numérico sin signo.
// Ej: "25000" → "25.000", "1000000" → "1.000.000"
func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return string(buf)
}
