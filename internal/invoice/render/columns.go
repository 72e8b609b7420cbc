package render

import (
	"strconv"

	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/gstinvoice/internal/invoice/domain"
	"github.com/smallbiznis/gstinvoice/internal/providers/pdf/layout"
	taxdomain "github.com/smallbiznis/gstinvoice/internal/tax/domain"
	"github.com/smallbiznis/gstinvoice/pkg/money"
)

var two = decimal.NewFromInt(2)

type column struct {
	layout.Column
	value func(i int, line invoicedomain.LineItem) string
}

func amount(v decimal.Decimal) string { return money.FormatINR(v, "") }

func halfRate(line invoicedomain.LineItem) string {
	return money.FormatRate(line.GSTRate.Div(two))
}

// columnsFor picks the item columns for an invoice. HSN/SAC is printed on
// tax invoices only and tax columns only for the regime in force; the
// amount column is always present. Description takes the remaining width.
func columnsFor(inv invoicedomain.CanonicalInvoice) []column {
	cols := []column{
		{layout.Column{Title: "#", Span: 2, Align: layout.AlignCenter}, func(i int, _ invoicedomain.LineItem) string {
			return strconv.Itoa(i + 1)
		}},
		{layout.Column{Title: "Description", Align: layout.AlignLeft}, func(_ int, l invoicedomain.LineItem) string {
			return l.Description
		}},
	}

	if inv.Type == invoicedomain.TypeTaxInvoice {
		title := "HSN/SAC"
		if inv.Kind == invoicedomain.KindPlatformFee {
			title = "SAC"
		}
		cols = append(cols, column{layout.Column{Title: title, Span: 4, Align: layout.AlignCenter}, func(_ int, l invoicedomain.LineItem) string {
			return l.Classification
		}})
	}

	if inv.Kind == invoicedomain.KindOrder {
		cols = append(cols,
			column{layout.Column{Title: "Qty", Span: 2, Align: layout.AlignRight}, func(_ int, l invoicedomain.LineItem) string {
				return strconv.FormatInt(l.Quantity, 10)
			}},
			column{layout.Column{Title: "Rate", Span: 5, Align: layout.AlignRight}, func(_ int, l invoicedomain.LineItem) string {
				return amount(l.UnitPrice)
			}},
		)
	}

	switch inv.Regime {
	case taxdomain.RegimeCGSTSGST:
		cols = append(cols,
			column{layout.Column{Title: "Taxable Value", Span: 5, Align: layout.AlignRight}, func(_ int, l invoicedomain.LineItem) string {
				return amount(l.TaxableValue)
			}},
			column{layout.Column{Title: "CGST %", Span: 3, Align: layout.AlignRight}, func(_ int, l invoicedomain.LineItem) string {
				return halfRate(l)
			}},
			column{layout.Column{Title: "CGST", Span: 4, Align: layout.AlignRight}, func(_ int, l invoicedomain.LineItem) string {
				return amount(l.CGST)
			}},
			column{layout.Column{Title: "SGST %", Span: 3, Align: layout.AlignRight}, func(_ int, l invoicedomain.LineItem) string {
				return halfRate(l)
			}},
			column{layout.Column{Title: "SGST", Span: 4, Align: layout.AlignRight}, func(_ int, l invoicedomain.LineItem) string {
				return amount(l.SGST)
			}},
		)
	case taxdomain.RegimeIGST:
		cols = append(cols,
			column{layout.Column{Title: "Taxable Value", Span: 5, Align: layout.AlignRight}, func(_ int, l invoicedomain.LineItem) string {
				return amount(l.TaxableValue)
			}},
			column{layout.Column{Title: "IGST %", Span: 3, Align: layout.AlignRight}, func(_ int, l invoicedomain.LineItem) string {
				return money.FormatRate(l.GSTRate)
			}},
			column{layout.Column{Title: "IGST", Span: 5, Align: layout.AlignRight}, func(_ int, l invoicedomain.LineItem) string {
				return amount(l.IGST)
			}},
		)
	}

	cols = append(cols, column{layout.Column{Title: "Amount", Span: 5, Align: layout.AlignRight}, func(_ int, l invoicedomain.LineItem) string {
		return amount(l.Total)
	}})

	used := 0
	for _, c := range cols {
		used += c.Span
	}
	cols[1].Span = layout.GridSize - used
	return cols
}

func table(inv invoicedomain.CanonicalInvoice, emptyText string) layout.Table {
	cols := columnsFor(inv)
	t := layout.Table{Columns: make([]layout.Column, len(cols))}
	for i, c := range cols {
		t.Columns[i] = c.Column
	}
	for i, line := range inv.LineItems {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = c.value(i, line)
		}
		t.Rows = append(t.Rows, row)
	}
	if len(t.Rows) == 0 && emptyText != "" {
		row := make([]string, len(cols))
		row[1] = emptyText
		t.Rows = append(t.Rows, row)
	}
	return t
}
