// Package render composes canonical invoices into layout documents. It
// decides what is printed; providers/pdf decides where.
package render

import (
	"strings"
	"time"

	invoicedomain "github.com/smallbiznis/gstinvoice/internal/invoice/domain"
	"github.com/smallbiznis/gstinvoice/internal/providers/pdf/layout"
	taxdomain "github.com/smallbiznis/gstinvoice/internal/tax/domain"
	"github.com/smallbiznis/gstinvoice/pkg/money"
)

const (
	WatermarkCancelled = "CANCELLED"

	systemNotice    = "This is a system generated document and does not require a signature."
	cancelledNotice = "This invoice has been cancelled and is not valid for payment or tax credit."
	dateLayout      = "02 Jan 2006"
)

type Options struct {
	CurrencySymbol string
	Location       *time.Location
}

func (o Options) loc() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

// Document composes either kind of invoice.
func Document(inv invoicedomain.CanonicalInvoice, opts Options) layout.Document {
	if inv.Kind == invoicedomain.KindPlatformFee {
		return BillingDocument(inv, opts)
	}
	return OrderDocument(inv, opts)
}

// OrderDocument composes a customer invoice for an order.
func OrderDocument(inv invoicedomain.CanonicalInvoice, opts Options) layout.Document {
	doc := base(inv, opts)
	doc.Engine = layout.EngineFPDF

	meta := []layout.Text{
		{Value: "Invoice No: " + inv.Number, Bold: true},
		{Value: "Invoice Date: " + inv.IssuedAt.In(opts.loc()).Format(dateLayout)},
	}
	if inv.OrderRef != "" {
		meta = append(meta, layout.Text{Value: "Order Ref: " + inv.OrderRef})
	}
	if inv.OrderDate != nil {
		meta = append(meta, layout.Text{Value: "Order Date: " + inv.OrderDate.In(opts.loc()).Format(dateLayout)})
	}
	doc.Meta = metaBlock(inv, meta)

	parties := []layout.Panel{{Span: 24, Lines: partyLines("Bill To", inv.Buyer)}}
	if inv.ShipTo != nil {
		parties = append(parties, layout.Panel{Offset: 24, Span: 24, Lines: partyLines("Ship To", *inv.ShipTo)})
	}
	doc.Parties = layout.Block{Kind: layout.BlockParties, Panels: parties}
	doc.Table = table(inv, "")
	return doc
}

// BillingDocument composes the platform-fee invoice issued to a merchant.
func BillingDocument(inv invoicedomain.CanonicalInvoice, opts Options) layout.Document {
	doc := base(inv, opts)
	doc.Engine = layout.EngineMaroto

	meta := []layout.Text{
		{Value: "Invoice No: " + inv.Number, Bold: true},
		{Value: "Invoice Date: " + inv.IssuedAt.In(opts.loc()).Format(dateLayout)},
	}
	if inv.PeriodStart != nil && inv.PeriodEnd != nil {
		meta = append(meta, layout.Text{Value: "Billing Period: " +
			inv.PeriodStart.In(opts.loc()).Format(dateLayout) + " to " +
			inv.PeriodEnd.In(opts.loc()).Format(dateLayout)})
	}
	doc.Meta = metaBlock(inv, meta)
	doc.Parties = layout.Block{Kind: layout.BlockParties, Panels: []layout.Panel{
		{Span: 24, Lines: partyLines("Billed To", inv.Buyer)},
	}}
	doc.Table = table(inv, "No platform fees in this period")
	return doc
}

func base(inv invoicedomain.CanonicalInvoice, opts Options) layout.Document {
	doc := layout.Document{
		Title:  "Invoice " + inv.Number,
		Author: inv.Seller.Name,
		Header: headerBlock(inv),
		Totals: totalsBlock(inv, opts.CurrencySymbol),
		Notes:  notesBlock(inv),
		Footer: []string{systemNotice},
	}
	if inv.Cancelled {
		doc.Watermark = WatermarkCancelled
		doc.Footer = append(doc.Footer, cancelledNotice)
	}
	return doc
}

// Badge is the document title printed in the header.
func Badge(t invoicedomain.Type) string {
	switch t {
	case invoicedomain.TypeTaxInvoice:
		return "TAX INVOICE"
	case invoicedomain.TypeBillOfSupply:
		return "BILL OF SUPPLY"
	default:
		return "INVOICE"
	}
}

func headerBlock(inv invoicedomain.CanonicalInvoice) layout.Block {
	seller := inv.Seller
	left := []layout.Text{{Value: seller.Name, Bold: true, Size: 13}}
	if seller.LegalName != "" && !strings.EqualFold(seller.LegalName, seller.Name) {
		left = append(left, layout.Text{Value: seller.LegalName})
	}
	if seller.Address != "" {
		left = append(left, layout.Text{Value: seller.Address})
	}
	if seller.GSTIN != "" {
		left = append(left, layout.Text{Value: "GSTIN: " + seller.GSTIN})
	}
	if s := stateLabel(seller); s != "" {
		left = append(left, layout.Text{Value: "State: " + s})
	}
	if c := contact(seller); c != "" {
		left = append(left, layout.Text{Value: c})
	}

	right := []layout.Text{{Value: Badge(inv.Type), Bold: true, Size: 14, Align: layout.AlignRight}}
	if inv.Type == invoicedomain.TypeTaxInvoice {
		right = append(right, layout.Text{Value: "Original for Recipient", Size: 6.5, Align: layout.AlignRight})
	}
	if inv.Cancelled {
		right = append(right, layout.Text{Value: "Status: Cancelled", Bold: true, Align: layout.AlignRight})
	}

	return layout.Block{Kind: layout.BlockHeader, Panels: []layout.Panel{
		{Span: 30, Lines: left},
		{Offset: 30, Span: 18, Lines: right},
	}}
}

func metaBlock(inv invoicedomain.CanonicalInvoice, left []layout.Text) layout.Block {
	right := []layout.Text{
		{Value: "Place of Supply: " + inv.PlaceOfSupply},
		{Value: "Tax: " + regimeLabel(inv.Regime)},
		{Value: "Currency: " + inv.Currency},
	}
	return layout.Block{Kind: layout.BlockMeta, Panels: []layout.Panel{
		{Span: 24, Border: true, Lines: left},
		{Offset: 24, Span: 24, Border: true, Lines: right},
	}}
}

func regimeLabel(r taxdomain.Regime) string {
	switch r {
	case taxdomain.RegimeCGSTSGST:
		return "CGST + SGST (intra-state)"
	case taxdomain.RegimeIGST:
		return "IGST (inter-state)"
	default:
		return "Not applicable"
	}
}

func partyLines(title string, p invoicedomain.Party) []layout.Text {
	lines := []layout.Text{{Value: title, Bold: true, Size: 8.5}}
	if p.Name != "" {
		lines = append(lines, layout.Text{Value: p.Name, Bold: true})
	}
	if p.Address != "" {
		lines = append(lines, layout.Text{Value: p.Address})
	}
	if p.GSTIN != "" {
		lines = append(lines, layout.Text{Value: "GSTIN: " + p.GSTIN})
	}
	if s := stateLabel(p); s != "" {
		lines = append(lines, layout.Text{Value: "State: " + s})
	}
	if c := contact(p); c != "" {
		lines = append(lines, layout.Text{Value: c})
	}
	return lines
}

func stateLabel(p invoicedomain.Party) string {
	switch {
	case p.StateCode != "" && p.State != "":
		return p.State + " (" + p.StateCode + ")"
	case p.State != "":
		return p.State
	default:
		return p.StateCode
	}
}

func contact(p invoicedomain.Party) string {
	parts := make([]string, 0, 2)
	if p.Email != "" {
		parts = append(parts, p.Email)
	}
	if p.Phone != "" {
		parts = append(parts, p.Phone)
	}
	return strings.Join(parts, " | ")
}

func totalsBlock(inv invoicedomain.CanonicalInvoice, symbol string) layout.Block {
	var labels, values []layout.Text
	add := func(label, value string, emphasis bool) {
		size := 0.0
		if emphasis {
			size = 9
		}
		labels = append(labels, layout.Text{Value: label, Bold: emphasis, Size: size})
		values = append(values, layout.Text{Value: value, Bold: emphasis, Size: size, Align: layout.AlignRight})
	}

	t := inv.Totals
	add("Taxable Value", money.FormatINR(t.TaxableValue, symbol), false)
	switch inv.Regime {
	case taxdomain.RegimeCGSTSGST:
		add("CGST", money.FormatINR(t.CGST, symbol), false)
		add("SGST", money.FormatINR(t.SGST, symbol), false)
	case taxdomain.RegimeIGST:
		add("IGST", money.FormatINR(t.IGST, symbol), false)
	}

	if c := inv.Charges; c != nil {
		add("Invoice Total", money.FormatINR(t.GrandTotal, symbol), false)
		if c.Discount.IsPositive() {
			add("Less: Discount", money.FormatINR(c.Discount.Neg(), symbol), false)
		}
		if c.Shipping.IsPositive() {
			add("Shipping", money.FormatINR(c.Shipping, symbol), false)
		}
		add("Amount Payable", money.FormatINR(c.AmountPayable, symbol), true)
	} else {
		add("Grand Total", money.FormatINR(t.GrandTotal, symbol), true)
	}

	return layout.Block{Kind: layout.BlockTotals, Panels: []layout.Panel{
		{Offset: 26, Span: 12, Border: true, Lines: labels},
		{Offset: 38, Span: 10, Border: true, Lines: values},
	}}
}

func notesBlock(inv invoicedomain.CanonicalInvoice) layout.Block {
	var lines []layout.Text
	if inv.Type == invoicedomain.TypeBillOfSupply {
		lines = append(lines, layout.Text{Value: "Supplier is not registered under GST. No tax is charged on this bill of supply."})
	}
	if c := inv.Charges; c != nil && (c.Discount.IsPositive() || c.Shipping.IsPositive()) {
		lines = append(lines, layout.Text{Value: "Shipping and discount are taken from the order and are not part of the taxable value."})
	}
	if inv.Kind == invoicedomain.KindPlatformFee {
		lines = append(lines, layout.Text{Value: "Fees are listed per order; fees not linked to an order are grouped per day."})
	}
	if len(lines) == 0 {
		return layout.Block{}
	}
	return layout.Block{Kind: layout.BlockNotes, Panels: []layout.Panel{{Span: layout.GridSize, Lines: lines}}}
}
