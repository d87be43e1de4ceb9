package api

import (
	"github.com/gin-gonic/gin"

	"github.com/rekat/price-server/api/handler"
	"github.com/rekat/price-server/api/middleware"
	"github.com/rekat/price-server/config"
	"github.com/rekat/price-server/extractor"
	"github.com/rekat/price-server/fetcher"
	"github.com/rekat/price-server/observability"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → RequestID → Logger → CORS
func NewRouter(cfg config.ServerConfig, f fetcher.Fetcher, ex extractor.Extractor, m *observability.Metrics) *gin.Engine {
	gin.SetMode(cfg.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())

	r.GET("/", handler.Health())
	r.GET("/metrics", gin.WrapH(m.Handler()))

	api := r.Group("/api")
	api.GET("/price", handler.Price(f, ex, m))

	return r
}
