package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/gstinvoice/internal/invoice/domain"
	taxdomain "github.com/smallbiznis/gstinvoice/internal/tax/domain"
	taxservice "github.com/smallbiznis/gstinvoice/internal/tax/service"
	"github.com/smallbiznis/gstinvoice/pkg/money"
)

var gstinRe = regexp.MustCompile(`^[0-9]{2}[A-Z0-9]{13}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// BuilderOptions carries the policy values the builders need.
type BuilderOptions struct {
	// DefaultGSTRate applies to items without their own rate. Nil means
	// the statutory 18%; zero is a valid configured rate.
	DefaultGSTRate *decimal.Decimal
	Location       *time.Location
}

func (o BuilderOptions) rate() decimal.Decimal {
	if o.DefaultGSTRate == nil {
		return taxdomain.DefaultGSTRate
	}
	return *o.DefaultGSTRate
}

// ValidateOrderInput rejects requests that cannot produce a lawful invoice.
// It runs before any number is allocated.
func ValidateOrderInput(req invoicedomain.OrderInvoiceRequest) error {
	var errs invoicedomain.ValidationErrors
	collectStructErrors(&errs, req)

	for i, item := range req.Order.Items {
		if item.GSTRate != nil && item.GSTRate.IsNegative() {
			errs.Add(fmt.Sprintf("order.items[%d].gst_rate", i), "gte", "must not be negative")
		}
	}

	validateProfile(&errs, "seller", req.Seller, true)
	if req.Buyer != nil {
		validateProfile(&errs, "buyer", *req.Buyer, false)
	}
	return errs.Err()
}

// ValidateBillingInput checks a platform-fee invoice request.
func ValidateBillingInput(req invoicedomain.BillingInvoiceRequest) error {
	var errs invoicedomain.ValidationErrors
	if strings.TrimSpace(req.MerchantID) == "" {
		errs.Add("merchant_id", "required", "is required")
	}
	if req.From.IsZero() || req.To.IsZero() {
		errs.Add("period", "required", "from and to are required")
	} else if req.From.After(req.To) {
		errs.Add("period", "range", "from must not be after to")
	}
	if req.GSTRate != nil && req.GSTRate.IsNegative() {
		errs.Add("gst_rate", "gte", "must not be negative")
	}
	collectStructErrors(&errs, req.Supplier)
	collectStructErrors(&errs, req.Recipient)
	validateProfile(&errs, "supplier", req.Supplier, true)
	validateProfile(&errs, "recipient", req.Recipient, false)
	return errs.Err()
}

func validateProfile(errs *invoicedomain.ValidationErrors, field string, p invoicedomain.TaxProfile, seller bool) {
	gstin := strings.ToUpper(strings.TrimSpace(p.GSTIN))
	if gstin != "" && !gstinRe.MatchString(gstin) {
		errs.Add(field+".gstin", "gstin", "is not a valid GSTIN")
	}
	if !seller || !p.Registered {
		return
	}
	if gstin == "" {
		errs.Add(field+".gstin", "required", "is required for a registered seller")
	}
	if _, ok := taxdomain.NormalizeState(ProfileState(p)); !ok {
		errs.Add(field+".address.state", "state", "must be a known GST state or state code")
	}
}

func collectStructErrors(errs *invoicedomain.ValidationErrors, v any) {
	err := validate.Struct(v)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs.Add("", "invalid", err.Error())
		return
	}
	for _, fe := range fieldErrs {
		field := fe.Namespace()
		if idx := strings.Index(field, "."); idx >= 0 {
			field = field[idx+1:]
		}
		errs.Add(field, fe.Tag(), messageFor(fe))
	}
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "min":
		return "must contain at least " + fe.Param() + " entries"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "email":
		return "must be a valid email address"
	case "alphanum":
		return "must contain only letters and digits"
	default:
		return "is invalid"
	}
}

// ProfileState is the state a profile is registered in: the address state,
// else the state embedded in the GSTIN.
func ProfileState(p invoicedomain.TaxProfile) string {
	if key := p.Address.StateKey(); key != "" {
		return key
	}
	if code, ok := taxdomain.StateFromGSTIN(p.GSTIN); ok {
		return code
	}
	return ""
}

// BuildOrderInvoice turns an order into the canonical customer invoice.
// It is a pure function of its inputs; prices come from the order's own
// snapshot, never from the live catalog.
func BuildOrderInvoice(req invoicedomain.OrderInvoiceRequest, alloc invoicedomain.Allocation, opts BuilderOptions) (invoicedomain.CanonicalInvoice, error) {
	order := req.Order
	billing := order.BillingAddressOrDefault()
	shipping := order.ShippingAddressOrDefault()

	sellerState := ProfileState(req.Seller)
	buyerState := shipping.StateKey()
	if buyerState == "" && req.Buyer != nil {
		buyerState = ProfileState(*req.Buyer)
	}

	jurisdiction := taxservice.ResolveCustomer(req.Seller.Registered, sellerState, buyerState)
	invType := invoicedomain.TypeFor(req.Seller.Registered)
	orderID := order.ID

	lines := make([]invoicedomain.LineItem, 0, len(order.Items))
	for i, item := range order.Items {
		unitPrice := money.Round2(money.FromMinor(item.UnitPriceMinor))
		taxable := money.Round2(unitPrice.Mul(decimal.NewFromInt(item.Quantity)))

		rate := opts.rate()
		if item.GSTRate != nil {
			rate = *item.GSTRate
		}
		if jurisdiction.Regime == taxdomain.RegimeNone {
			rate = decimal.Zero
		}

		split, err := taxservice.SplitTax(jurisdiction.Regime, taxable, rate)
		if err != nil {
			return invoicedomain.CanonicalInvoice{}, fmt.Errorf("item %d: %w", i, err)
		}

		line := invoicedomain.NewLineItem(taxable, split)
		line.CorrelationID = &orderID
		line.OrderRef = order.Reference()
		line.Description = itemDescription(item)
		line.Classification = strings.TrimSpace(item.HSNCode)
		line.Quantity = item.Quantity
		line.UnitPrice = unitPrice
		line.GSTRate = rate
		line.Regime = jurisdiction.Regime
		lines = append(lines, line)
	}

	inv := invoicedomain.CanonicalInvoice{
		Kind:          invoicedomain.KindOrder,
		Number:        alloc.Number,
		IssuedAt:      alloc.IssuedAt,
		Type:          invType,
		Cancelled:     order.Cancelled,
		OrderRef:      order.Reference(),
		Seller:        partyFromProfile(req.Seller),
		Buyer:         buyerParty(order, req.Buyer, billing),
		PlaceOfSupply: taxservice.PlaceOfSupply(buyerState, sellerState),
		Regime:        jurisdiction.Regime,
		LineItems:     lines,
		Totals:        invoicedomain.SumTotals(lines),
		Charges: &invoicedomain.Charges{
			Shipping:      money.FromMinor(order.ShippingMinor),
			Discount:      money.FromMinor(order.DiscountMinor),
			AmountPayable: money.FromMinor(order.TotalMinor),
		},
		Currency: invoicedomain.Currency,
	}
	if !order.PlacedAt.IsZero() {
		placed := order.PlacedAt
		inv.OrderDate = &placed
	}
	if order.ShippingAddress != nil && order.BillingAddress != nil && !shipping.Equal(billing) {
		shipTo := addressParty(shipping, lo.CoalesceOrEmpty(shipping.Name, order.CustomerName))
		inv.ShipTo = &shipTo
	}
	return inv, nil
}

// BuildBillingInvoice turns a platform-fee summary into the canonical
// invoice the platform issues to the merchant.
func BuildBillingInvoice(req invoicedomain.BillingInvoiceRequest, summary invoicedomain.BillingSummary, alloc invoicedomain.Allocation) invoicedomain.CanonicalInvoice {
	regime := summary.Regime
	lines := summary.LineItems
	if !req.Supplier.Registered {
		regime = taxdomain.RegimeNone
		lines = lo.Map(lines, func(line invoicedomain.LineItem, _ int) invoicedomain.LineItem {
			untaxed := invoicedomain.NewLineItem(line.TaxableValue, taxdomain.ZeroSplit())
			untaxed.CorrelationID = line.CorrelationID
			untaxed.OrderRef = line.OrderRef
			untaxed.Description = line.Description
			untaxed.Classification = line.Classification
			untaxed.Quantity = line.Quantity
			untaxed.UnitPrice = line.UnitPrice
			untaxed.GSTRate = decimal.Zero
			untaxed.Regime = taxdomain.RegimeNone
			return untaxed
		})
	}

	from, to := req.From, req.To
	return invoicedomain.CanonicalInvoice{
		Kind:          invoicedomain.KindPlatformFee,
		Number:        alloc.Number,
		IssuedAt:      alloc.IssuedAt,
		Type:          invoicedomain.TypeFor(req.Supplier.Registered),
		OrderRef:      req.OrderRef(),
		PeriodStart:   &from,
		PeriodEnd:     &to,
		Seller:        partyFromProfile(req.Supplier),
		Buyer:         partyFromProfile(req.Recipient),
		PlaceOfSupply: taxservice.PlaceOfSupply(ProfileState(req.Recipient), ProfileState(req.Supplier)),
		Regime:        regime,
		LineItems:     lines,
		Totals:        invoicedomain.SumTotals(lines),
		Currency:      invoicedomain.Currency,
	}
}

func itemDescription(item invoicedomain.OrderItem) string {
	name := strings.TrimSpace(item.Name)
	if sku := strings.TrimSpace(item.SKU); sku != "" {
		return name + " (" + sku + ")"
	}
	return name
}

func partyFromProfile(p invoicedomain.TaxProfile) invoicedomain.Party {
	party := addressParty(p.Address, p.DisplayName())
	party.LegalName = strings.TrimSpace(p.LegalName)
	party.GSTIN = strings.ToUpper(strings.TrimSpace(p.GSTIN))
	party.Email = strings.TrimSpace(p.Email)
	party.Phone = lo.CoalesceOrEmpty(strings.TrimSpace(p.Phone), strings.TrimSpace(p.Address.Phone))
	party.Registered = p.Registered
	if party.StateCode == "" {
		if code, ok := taxdomain.StateFromGSTIN(party.GSTIN); ok {
			party.StateCode = code
			party.State = taxdomain.StateName(code)
		}
	}
	return party
}

func buyerParty(order invoicedomain.Order, profile *invoicedomain.TaxProfile, billing invoicedomain.Address) invoicedomain.Party {
	if profile != nil {
		party := partyFromProfile(*profile)
		if party.Address == "" {
			withBilling := addressParty(billing, party.Name)
			party.Address = withBilling.Address
			party.AddressLines = withBilling.AddressLines
			if party.StateCode == "" {
				party.State = withBilling.State
				party.StateCode = withBilling.StateCode
			}
		}
		party.Name = lo.CoalesceOrEmpty(party.Name, strings.TrimSpace(order.CustomerName), strings.TrimSpace(billing.Name))
		party.Email = lo.CoalesceOrEmpty(party.Email, strings.TrimSpace(order.CustomerEmail))
		party.Phone = lo.CoalesceOrEmpty(party.Phone, strings.TrimSpace(order.CustomerPhone))
		return party
	}

	party := addressParty(billing, lo.CoalesceOrEmpty(strings.TrimSpace(order.CustomerName), strings.TrimSpace(billing.Name)))
	party.Email = strings.TrimSpace(order.CustomerEmail)
	party.Phone = lo.CoalesceOrEmpty(strings.TrimSpace(order.CustomerPhone), strings.TrimSpace(billing.Phone))
	return party
}

func addressParty(addr invoicedomain.Address, name string) invoicedomain.Party {
	party := invoicedomain.Party{
		Name:         strings.TrimSpace(name),
		Address:      addr.Join(),
		AddressLines: addr.Parts(),
		State:        strings.TrimSpace(addr.State),
	}
	if code, ok := taxdomain.NormalizeState(addr.StateKey()); ok {
		party.StateCode = code
		party.State = taxdomain.StateName(code)
	}
	return party
}
