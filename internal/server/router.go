package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oceanobs/sst-server/internal/query"
	"github.com/oceanobs/sst-server/pkg/config"
)

// SetupRouter creates and configures the Gin router.
func SetupRouter(service *query.Service, cfg config.HTTPServerConfig) *gin.Engine {
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	router.Use(cors.New(corsConfig))

	handler := NewHandler(service)

	temporal := router.Group("/temporal")
	temporal.GET("/temperatures", handler.GetTemperatures)
	temporal.GET("/anomalies", handler.GetAnomalies)
	temporal.GET("/heatwaves", handler.GetHeatwaves)
	temporal.GET("/availability", handler.GetAvailability)
	temporal.GET("/stats/summary", handler.GetSummary)
	temporal.POST("/cache/clear", handler.ClearCache)

	router.GET("/healthz", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
