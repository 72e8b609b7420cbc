package render

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/gstinvoice/internal/invoice/domain"
	"github.com/smallbiznis/gstinvoice/internal/providers/pdf/layout"
	taxdomain "github.com/smallbiznis/gstinvoice/internal/tax/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleInvoice(regime taxdomain.Regime) invoicedomain.CanonicalInvoice {
	split := taxdomain.ZeroSplit()
	switch regime {
	case taxdomain.RegimeCGSTSGST:
		split.CGST, split.SGST = dec("90"), dec("90")
	case taxdomain.RegimeIGST:
		split.IGST = dec("180")
	}
	line := invoicedomain.NewLineItem(dec("1000"), split)
	line.Description = "Cotton Kurta"
	line.Classification = "6211"
	line.Quantity = 2
	line.UnitPrice = dec("500")
	line.GSTRate = dec("18")

	typ := invoicedomain.TypeTaxInvoice
	if regime == taxdomain.RegimeNone {
		typ = invoicedomain.TypeBillOfSupply
		line.GSTRate = decimal.Zero
	}
	lines := []invoicedomain.LineItem{line}
	return invoicedomain.CanonicalInvoice{
		Kind:          invoicedomain.KindOrder,
		Number:        "MRC-000045",
		IssuedAt:      time.Date(2024, 3, 31, 20, 0, 0, 0, time.UTC),
		Type:          typ,
		OrderRef:      "1045",
		Seller:        invoicedomain.Party{Name: "Mehta Retail", GSTIN: "27ABCDE1234F1Z5", Address: "12 MG Road, Pune, 411001", State: "Maharashtra", StateCode: "27"},
		Buyer:         invoicedomain.Party{Name: "Asha Rao", Address: "4 Residency Road, Bengaluru"},
		PlaceOfSupply: "Karnataka (29)",
		Regime:        regime,
		LineItems:     lines,
		Totals:        invoicedomain.SumTotals(lines),
		Charges:       &invoicedomain.Charges{Shipping: decimal.Zero, Discount: decimal.Zero, AmountPayable: dec("1180")},
		Currency:      invoicedomain.Currency,
	}
}

func titlesOf(doc layout.Document) []string {
	out := make([]string, 0, len(doc.Table.Columns))
	for _, c := range doc.Table.Columns {
		out = append(out, c.Title)
	}
	return out
}

func spanOf(doc layout.Document) int {
	n := 0
	for _, c := range doc.Table.Columns {
		n += c.Span
	}
	return n
}

func panelText(b layout.Block) []string {
	var out []string
	for _, p := range b.Panels {
		for _, l := range p.Lines {
			out = append(out, l.Value)
		}
	}
	return out
}

func TestOrderDocument_IntraStateColumns(t *testing.T) {
	doc := OrderDocument(sampleInvoice(taxdomain.RegimeCGSTSGST), Options{CurrencySymbol: "Rs."})

	assert.Equal(t, layout.EngineFPDF, doc.Engine)
	assert.Equal(t, []string{"#", "Description", "HSN/SAC", "Qty", "Rate", "Taxable Value", "CGST %", "CGST", "SGST %", "SGST", "Amount"}, titlesOf(doc))
	assert.Equal(t, layout.GridSize, spanOf(doc))
	require.Len(t, doc.Table.Rows, 1)
	assert.Equal(t, []string{"1", "Cotton Kurta", "6211", "2", "500.00", "1,000.00", "9%", "90.00", "9%", "90.00", "1,180.00"}, doc.Table.Rows[0])

	totals := panelText(doc.Totals)
	assert.Contains(t, totals, "CGST")
	assert.Contains(t, totals, "SGST")
	assert.NotContains(t, totals, "IGST")
	assert.Contains(t, totals, "Rs. 1,180.00")
	assert.Contains(t, panelText(doc.Header), "TAX INVOICE")
	assert.Empty(t, doc.Watermark)
}

func TestOrderDocument_InterStateColumns(t *testing.T) {
	doc := OrderDocument(sampleInvoice(taxdomain.RegimeIGST), Options{})

	assert.Equal(t, []string{"#", "Description", "HSN/SAC", "Qty", "Rate", "Taxable Value", "IGST %", "IGST", "Amount"}, titlesOf(doc))
	assert.Equal(t, layout.GridSize, spanOf(doc))
	assert.Equal(t, "18%", doc.Table.Rows[0][6])
	assert.Equal(t, "180.00", doc.Table.Rows[0][7])
	assert.Contains(t, panelText(doc.Meta), "Place of Supply: Karnataka (29)")
}

func TestOrderDocument_BillOfSupply(t *testing.T) {
	doc := OrderDocument(sampleInvoice(taxdomain.RegimeNone), Options{})

	assert.Equal(t, []string{"#", "Description", "Qty", "Rate", "Amount"}, titlesOf(doc))
	assert.Equal(t, layout.GridSize, spanOf(doc))
	assert.Contains(t, panelText(doc.Header), "BILL OF SUPPLY")
	assert.NotContains(t, panelText(doc.Totals), "CGST")
	assert.NotEmpty(t, panelText(doc.Notes))
}

func TestOrderDocument_CancelledAndShipTo(t *testing.T) {
	inv := sampleInvoice(taxdomain.RegimeIGST)
	inv.Cancelled = true
	inv.ShipTo = &invoicedomain.Party{Name: "Asha Rao", Address: "9 Church St, Bengaluru"}
	inv.Charges.Discount = dec("100")

	doc := OrderDocument(inv, Options{})
	assert.Equal(t, WatermarkCancelled, doc.Watermark)
	assert.Contains(t, doc.Footer, cancelledNotice)
	assert.Contains(t, doc.Footer, systemNotice)
	require.Len(t, doc.Parties.Panels, 2)
	assert.Equal(t, "Ship To", doc.Parties.Panels[1].Lines[0].Value)
	assert.Contains(t, panelText(doc.Totals), "Less: Discount")
	assert.Contains(t, panelText(doc.Totals), "-100.00")
}

func TestOrderDocument_DatesUseLocation(t *testing.T) {
	inv := sampleInvoice(taxdomain.RegimeIGST)
	ist := time.FixedZone("IST", 5*3600+1800)

	assert.Contains(t, panelText(OrderDocument(inv, Options{}).Meta), "Invoice Date: 31 Mar 2024")
	assert.Contains(t, panelText(OrderDocument(inv, Options{Location: ist}).Meta), "Invoice Date: 01 Apr 2024")
}

func TestBillingDocument(t *testing.T) {
	inv := sampleInvoice(taxdomain.RegimeIGST)
	inv.Kind = invoicedomain.KindPlatformFee
	inv.Charges = nil
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	inv.PeriodStart, inv.PeriodEnd = &from, &to

	doc := Document(inv, Options{})
	assert.Equal(t, layout.EngineMaroto, doc.Engine)
	assert.Equal(t, []string{"#", "Description", "SAC", "Taxable Value", "IGST %", "IGST", "Amount"}, titlesOf(doc))
	assert.Equal(t, layout.GridSize, spanOf(doc))
	assert.Contains(t, panelText(doc.Meta), "Billing Period: 01 Mar 2024 to 31 Mar 2024")
	assert.Contains(t, panelText(doc.Totals), "Grand Total")
	assert.Equal(t, "Billed To", doc.Parties.Panels[0].Lines[0].Value)

	inv.LineItems = nil
	inv.Totals = invoicedomain.ZeroTotals()
	empty := BillingDocument(inv, Options{})
	require.Len(t, empty.Table.Rows, 1)
	assert.Equal(t, "No platform fees in this period", empty.Table.Rows[0][1])
}

func TestOrderDocument_Paginates(t *testing.T) {
	inv := sampleInvoice(taxdomain.RegimeCGSTSGST)
	for i := 0; i < 90; i++ {
		inv.LineItems = append(inv.LineItems, inv.LineItems[0])
	}
	inv.Totals = invoicedomain.SumTotals(inv.LineItems)

	plan, err := layout.Paginate(OrderDocument(inv, Options{}), layout.A4())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, plan.PageCount(), 2)
	assert.Len(t, plan.RowOrder(), 91)
}
