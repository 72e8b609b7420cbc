package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/gstinvoice/internal/config"
	invoicedomain "github.com/smallbiznis/gstinvoice/internal/invoice/domain"
	"github.com/smallbiznis/gstinvoice/internal/observability"
	obsmiddleware "github.com/smallbiznis/gstinvoice/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/gstinvoice/internal/observability/metrics"
	obstracing "github.com/smallbiznis/gstinvoice/internal/observability/tracing"
	"github.com/smallbiznis/gstinvoice/internal/ratelimit"
	taxdomain "github.com/smallbiznis/gstinvoice/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	ratelimit.Module,
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	invoiceSvc  invoicedomain.Service
	taxResolver taxdomain.Resolver
	limiter     *ratelimit.RenderLimiter
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	InvoiceSvc  invoicedomain.Service
	TaxResolver taxdomain.Resolver
	Limiter     *ratelimit.RenderLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		invoiceSvc:  p.InvoiceSvc,
		taxResolver: p.TaxResolver,
		limiter:     p.Limiter,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	// -------- Order Invoices --------
	invoices := v1.Group("/invoices")
	{
		invoices.POST("/orders", s.GenerateOrderInvoice)
		invoices.POST("/orders/preview", s.PreviewOrderInvoice)
		invoices.GET("/merchants/:merchant_id/orders/:order_ref", MerchantContext(), s.LookupInvoiceNumber)
	}

	// -------- Tax --------
	v1.POST("/tax/quote", s.QuoteTax)

	// -------- Platform Fee Billing --------
	billing := v1.Group("/billing/merchants/:merchant_id", MerchantContext())
	{
		billing.POST("/summary", s.SummarizeBilling)
		billing.POST("/invoice", s.GenerateBillingInvoice)
	}
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
