package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gstinvoice/internal/clock"
	"github.com/smallbiznis/gstinvoice/internal/config"
	"github.com/smallbiznis/gstinvoice/internal/invoice"
	"github.com/smallbiznis/gstinvoice/internal/ledger"
	"github.com/smallbiznis/gstinvoice/internal/migration"
	"github.com/smallbiznis/gstinvoice/internal/observability"
	"github.com/smallbiznis/gstinvoice/internal/providers/pdf"
	"github.com/smallbiznis/gstinvoice/internal/server"
	"github.com/smallbiznis/gstinvoice/internal/tax"
	"github.com/smallbiznis/gstinvoice/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional Domains
		tax.Module,
		ledger.Module,
		pdf.Module,
		invoice.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
