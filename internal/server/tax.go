package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	taxdomain "github.com/smallbiznis/gstinvoice/internal/tax/domain"
	taxservice "github.com/smallbiznis/gstinvoice/internal/tax/service"
)

type taxQuoteRequest struct {
	SupplierState  string           `json:"supplier_state"`
	RecipientState string           `json:"recipient_state"`
	Registered     *bool            `json:"seller_registered,omitempty"`
	Taxable        decimal.Decimal  `json:"taxable"`
	Rate           *decimal.Decimal `json:"rate,omitempty"`
	// Regime skips state resolution, e.g. to re-quote a stored invoice line.
	Regime string `json:"regime,omitempty"`
}

type taxQuoteResponse struct {
	Jurisdiction  taxdomain.Jurisdiction `json:"jurisdiction"`
	PlaceOfSupply string                 `json:"place_of_supply"`
	Rate          decimal.Decimal        `json:"rate"`
	Split         taxdomain.Split        `json:"split"`
	TaxTotal      decimal.Decimal        `json:"tax_total"`
}

// QuoteTax resolves the regime between two states and splits the tax on
// one taxable amount. A registered seller is assumed when unspecified.
func (s *Server) QuoteTax(c *gin.Context) {
	var req taxQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	registered := req.Registered == nil || *req.Registered
	rate := taxdomain.DefaultGSTRate
	if req.Rate != nil {
		rate = *req.Rate
	}

	j := s.taxResolver.ResolveCustomer(registered, req.SupplierState, req.RecipientState)
	if strings.TrimSpace(req.Regime) != "" {
		regime, err := taxdomain.ParseRegime(req.Regime)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		j.Regime = regime
	}
	split, err := s.taxResolver.SplitTax(j.Regime, req.Taxable, rate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": taxQuoteResponse{
		Jurisdiction:  j,
		PlaceOfSupply: taxservice.PlaceOfSupply(req.RecipientState, req.SupplierState),
		Rate:          rate,
		Split:         split,
		TaxTotal:      split.Total(),
	}})
}
