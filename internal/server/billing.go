package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/gstinvoice/internal/invoice/domain"
)

type billingRequest struct {
	From      string                   `json:"from"`
	To        string                   `json:"to"`
	Supplier  invoicedomain.TaxProfile `json:"supplier"`
	Recipient invoicedomain.TaxProfile `json:"recipient"`
	GSTRate   *decimal.Decimal         `json:"gst_rate,omitempty"`
}

func (s *Server) bindBillingRequest(c *gin.Context) (invoicedomain.BillingInvoiceRequest, bool) {
	var body billingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return invoicedomain.BillingInvoiceRequest{}, false
	}

	from, err := parseTime(body.From, false)
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_time", "from must be a date or RFC3339 timestamp"))
		return invoicedomain.BillingInvoiceRequest{}, false
	}
	to, err := parseTime(body.To, true)
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_time", "to must be a date or RFC3339 timestamp"))
		return invoicedomain.BillingInvoiceRequest{}, false
	}

	return invoicedomain.BillingInvoiceRequest{
		MerchantID: c.GetString(contextMerchantKey),
		From:       from,
		To:         to,
		Supplier:   body.Supplier,
		Recipient:  body.Recipient,
		GSTRate:    body.GSTRate,
	}, true
}

func (s *Server) SummarizeBilling(c *gin.Context) {
	req, ok := s.bindBillingRequest(c)
	if !ok {
		return
	}

	summary, err := s.invoiceSvc.SummarizeBilling(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (s *Server) GenerateBillingInvoice(c *gin.Context) {
	req, ok := s.bindBillingRequest(c)
	if !ok {
		return
	}

	release, ok := s.guardRender(c, req.MerchantID, req.OrderRef())
	if !ok {
		return
	}
	defer release()

	doc, err := s.invoiceSvc.GenerateBillingInvoice(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	writePDF(c, doc)
}
