package ledger

import (
	"github.com/smallbiznis/gstinvoice/internal/ledger/repository"
	"github.com/smallbiznis/gstinvoice/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.aggregator",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewAggregator),
)
