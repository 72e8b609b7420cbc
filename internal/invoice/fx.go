package invoice

import (
	invoicedomain "github.com/smallbiznis/gstinvoice/internal/invoice/domain"
	"github.com/smallbiznis/gstinvoice/internal/invoice/repository"
	"github.com/smallbiznis/gstinvoice/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(
		fx.Annotate(service.NewAllocator, fx.As(new(invoicedomain.Allocator))),
	),
	fx.Provide(service.NewService),
)
