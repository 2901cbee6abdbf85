package http

import (
	"context"
	"errors"
	"fmt"
	gohttp "net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/swap-engine/internal/aggregator"
	"github.com/hxuan190/swap-engine/internal/config"
	"github.com/hxuan190/swap-engine/internal/http/httputil"
	"github.com/hxuan190/swap-engine/internal/http/middlewares"
)

const (
	API_VERSION  = "v1"
	HTTP_SERVICE = "http-service"
)

type HTTPService struct {
	container.BaseDIInstance

	swapAPI     SwapAPI
	rateLimiter *middlewares.RateLimiter
	server      *gohttp.Server
	conf        *config.GeneralConfig

	handlers []httputil.IHttpHandler
}

func (svc *HTTPService) ID() string {
	return HTTP_SERVICE
}

func (svc *HTTPService) Start() error {
	svc.server = &gohttp.Server{
		Addr:    svc.conf.HTTPHost + ":" + svc.conf.HTTPPort,
		Handler: newRouter(svc.rateLimiter, svc.handlers),
	}
	log.Info().Str("host", svc.conf.HTTPHost).Str("port", svc.conf.HTTPPort).Msg("http server started")

	if err := svc.server.ListenAndServe(); err != nil && err != gohttp.ErrServerClosed {
		return err
	}

	return nil
}

func (svc *HTTPService) Configure(c container.IContainer) error {
	conf, ok := c.GetConfig(config.GENERAL_CONFIG_KEY).(*config.GeneralConfig)
	if !ok || conf == nil {
		return errors.New("invalid server config")
	}
	svc.conf = conf

	svc.swapAPI = c.Instance(aggregator.SWAP_SERVICE).(*aggregator.Service)
	svc.rateLimiter = middlewares.NewRateLimiter(10, 20)
	svc.handlers = newHandlers(svc.swapAPI)
	return nil
}

func (svc *HTTPService) Stop() error {
	if svc.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := svc.server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to stop http server")
		return err
	}
	log.Info().Msg("http server stopped gracefully")
	return nil
}

func newHandlers(api SwapAPI) []httputil.IHttpHandler {
	return []httputil.IHttpHandler{
		NewQuoteHandler(api),
		NewSwapHandler(api),
		NewExecutionHandler(api),
		NewTokenHandler(api),
	}
}

func newRouter(rateLimiter *middlewares.RateLimiter, handlers []httputil.IHttpHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	corsConf := cors.DefaultConfig()
	corsConf.AllowAllOrigins = true
	corsConf.AddAllowHeaders("Authorization")
	r.Use(cors.New(corsConf))

	r.Use(middlewares.MetricsMiddleware())
	if rateLimiter != nil {
		r.Use(rateLimiter.RateLimitMiddleware())
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(gohttp.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("api")
	pub := api.Group(API_VERSION)
	priv := api.Group(API_VERSION)
	admin := api.Group(fmt.Sprintf("%s/admin", API_VERSION))

	for _, h := range handlers {
		h.SetRoutes(pub.Group(h.Root()), priv.Group(h.Root()), admin.Group(h.Root()))
	}
	return r
}
