package server

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	HeaderInvoiceNumber = "X-Invoice-Number"
	contextMerchantKey  = "merchant_id"
)

// MerchantContext requires a merchant in the path and exposes it to handlers.
func MerchantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		merchantID := strings.TrimSpace(c.Param("merchant_id"))
		if merchantID == "" {
			AbortWithError(c, newValidationError("merchant_id", "required", "merchant_id is required"))
			return
		}

		c.Set(contextMerchantKey, merchantID)
		c.Next()
	}
}
