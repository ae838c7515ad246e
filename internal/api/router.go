// Package api provides the HTTP surface of the catalog service. It parses
// requests into typed inputs, hands them to the application handlers, and
// streams fragment sequences back to the client as they are produced.
package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Dest0re/backend-school2022/internal/application/handlers"
)

// Deps holds the application handlers the routes dispatch to.
type Deps struct {
	Nodes  *handlers.NodeHandler
	Sales  *handlers.SalesHandler
	Import *handlers.ImportHandler
	Logger *slog.Logger
}

// NewRouter builds the gin engine with all routes and middleware attached.
func NewRouter(deps Deps) *gin.Engine {
	registry := prometheus.NewRegistry()
	metrics := newMetrics(registry)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(deps.Logger))
	router.Use(metrics.middleware())

	router.POST("/imports", HandleImports(deps.Import))
	router.DELETE("/delete/:id", HandleDelete(deps.Import))
	router.GET("/nodes/:id", HandleGetNode(deps.Nodes))
	router.GET("/node/:id/statistic", HandleNodeStatistic(deps.Nodes))
	router.GET("/sales", HandleSales(deps.Sales))

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return router
}
