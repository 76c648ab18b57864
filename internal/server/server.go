package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/docrender/internal/config"
	"github.com/smallbiznis/docrender/internal/document/domain"
	"github.com/smallbiznis/docrender/internal/media"
	"github.com/smallbiznis/docrender/internal/observability"
	obslogger "github.com/smallbiznis/docrender/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/docrender/internal/observability/metrics"
	obstracing "github.com/smallbiznis/docrender/internal/observability/tracing"
	"github.com/smallbiznis/docrender/internal/ratelimit"
	"github.com/smallbiznis/docrender/internal/source"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(provideOrderSource, provideOrderLocker, provideClientLimiter),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// OrderSource loads render inputs for a stored order.
type OrderSource interface {
	Enabled() bool
	LoadInvoiceRequest(ctx context.Context, orderID int64) (domain.InvoiceRequest, error)
	LoadWarrantyRequest(ctx context.Context, orderID int64) (domain.WarrantyRequest, error)
}

// OrderLocker serializes builds of the same document for one order.
type OrderLocker interface {
	TryLockOrder(ctx context.Context, kind string, orderID int64) (string, bool, error)
	ReleaseOrder(ctx context.Context, kind string, orderID int64, token string) error
}

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
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
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func provideOrderSource(s *source.Store) OrderSource { return s }

func provideOrderLocker(l *ratelimit.RenderLimiter) OrderLocker { return l }

func provideClientLimiter(l *ratelimit.RenderLimiter) ratelimit.ClientLimiter { return l }

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine  *gin.Engine
	log     *zap.Logger
	docs    domain.Service
	orders  OrderSource
	locker  OrderLocker
	limiter ratelimit.ClientLimiter
	media   *media.Store
	metrics *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin     *gin.Engine
	Log     *zap.Logger
	Docs    domain.Service
	Orders  OrderSource
	Locker  OrderLocker
	Limiter ratelimit.ClientLimiter
	Media   *media.Store
	Metrics *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		engine:  p.Gin,
		log:     log.Named("http.server"),
		docs:    p.Docs,
		orders:  p.Orders,
		locker:  p.Locker,
		limiter: p.Limiter,
		media:   p.Media,
		metrics: p.Metrics,
	}

	s.registerRenderRoutes()
	s.registerOrderRoutes()
	s.registerMediaRoutes()
	s.registerFallback()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRenderRoutes() {
	v1 := s.engine.Group("/v1", ratelimit.GinMiddleware(s.limiter, s.metrics, s.log))

	v1.POST("/invoices/render", DocumentKind(domain.DocumentKindInvoice), s.RenderInvoice)
	v1.POST("/warranties/render", DocumentKind(domain.DocumentKindWarranty), s.RenderWarranty)
}

func (s *Server) registerOrderRoutes() {
	orders := s.engine.Group("/v1/orders", ratelimit.GinMiddleware(s.limiter, s.metrics, s.log))

	orders.POST("/:id/invoice", DocumentKind(domain.DocumentKindInvoice), s.RenderOrderInvoice)
	orders.POST("/:id/warranty", DocumentKind(domain.DocumentKindWarranty), s.RenderOrderWarranty)
}

func (s *Server) registerMediaRoutes() {
	if s.media == nil {
		return
	}
	s.engine.GET(s.media.PublicPrefix()+"/*filepath", s.ServeMedia)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
