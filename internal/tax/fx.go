package tax

import (
	"github.com/smallbiznis/gstinvoice/internal/tax/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tax.resolver",
	fx.Provide(service.NewResolver),
)
