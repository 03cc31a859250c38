package server

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"

	"github.com/adilzh/filedrop/internal/config"
	"github.com/adilzh/filedrop/internal/file"
	"github.com/adilzh/filedrop/internal/identity"
	"github.com/adilzh/filedrop/internal/logger"
	"github.com/adilzh/filedrop/internal/metrics"
)

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config      config.Config
	DB          *pgxpool.Pool
	ObjectStore *minio.Client
	Identity    *identity.Service
	Files       *file.Service
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware())

	metrics.InitMetrics()
	router.Use(metrics.Middleware())

	registerHealthRoutes(router, deps)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	api := router.Group("/v1")
	if deps.Identity != nil {
		identity.RegisterRoutes(api, deps.Identity)

		protected := api.Group("/")
		protected.Use(identity.AuthMiddleware(deps.Identity))

		if deps.Files != nil {
			file.RegisterRoutes(api, protected, deps.Files, deps.Config.Public.BaseURL)
		}
	}

	return router
}
