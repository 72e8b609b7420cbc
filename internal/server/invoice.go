package server

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/gstinvoice/internal/invoice/domain"
)

const contentTypePDF = "application/pdf"

func (s *Server) GenerateOrderInvoice(c *gin.Context) {
	var req invoicedomain.OrderInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	release, ok := s.guardRender(c, req.Order.MerchantID, req.Order.ID)
	if !ok {
		return
	}
	defer release()

	doc, err := s.invoiceSvc.GenerateOrderInvoice(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	writePDF(c, doc)
}

func (s *Server) PreviewOrderInvoice(c *gin.Context) {
	var req invoicedomain.OrderInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	inv, err := s.invoiceSvc.PreviewOrderInvoice(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": inv})
}

func (s *Server) LookupInvoiceNumber(c *gin.Context) {
	orderRef := strings.TrimSpace(c.Param("order_ref"))
	if orderRef == "" {
		AbortWithError(c, newValidationError("order_ref", "required", "order_ref is required"))
		return
	}

	alloc, err := s.invoiceSvc.Lookup(c.Request.Context(), c.GetString(contextMerchantKey), orderRef)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": alloc})
}

// guardRender applies the merchant's render budget and holds the document
// lock for the rest of the request.
func (s *Server) guardRender(c *gin.Context, merchantID, documentRef string) (func(), bool) {
	ctx := c.Request.Context()
	res, err := s.limiter.AllowMerchant(ctx, merchantID)
	if err != nil {
		if res != nil && res.RetryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
		}
		AbortWithError(c, err)
		return nil, false
	}

	release, err := s.limiter.Acquire(ctx, merchantID, documentRef)
	if err != nil {
		AbortWithError(c, err)
		return nil, false
	}
	return release, true
}

func writePDF(c *gin.Context, doc invoicedomain.InvoiceDocument) {
	c.Header(HeaderInvoiceNumber, doc.Invoice.Number)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	c.Data(http.StatusOK, contentTypePDF, doc.PDF)
}
