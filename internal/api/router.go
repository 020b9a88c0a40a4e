// Package api registers the pivot HTTP routes.
package api

import (
	"io"

	_ "go-retail-pivot/docs"
	"go-retail-pivot/internal/api/handler"
	"go-retail-pivot/internal/pivot"
	"go-retail-pivot/pkg/router"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter builds a router with every pivot route, /metrics for m and the
// swagger UI.
func NewRouter(h *handler.Handler, m *pivot.Metrics, accessLog io.Writer) *router.Router {
	r := router.New(accessLog)
	RegisterRoutes(r, h)
	if m != nil {
		r.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
	}
	r.GET("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	return r
}

func RegisterRoutes(r *router.Router, h *handler.Handler) {
	r.GET("/api/v1/catalog", h.GetCatalog)
	r.POST("/api/v1/pivot", h.Pivot)

	r.POST("/api/v1/views", h.CreateView)
	r.GET("/api/v1/views", h.ListViews)
	r.GET("/api/v1/views/{id}", h.GetView)
	r.PUT("/api/v1/views/{id}", h.UpdateView)
	r.DELETE("/api/v1/views/{id}", h.DeleteView)

	r.GET("/api/v1/views/{id}/rows", h.GetViewRows)
	r.POST("/api/v1/views/{id}/expand", h.ExpandNode)
	r.POST("/api/v1/views/{id}/collapse", h.CollapseNode)
	r.POST("/api/v1/views/{id}/expand-all", h.ExpandAll)
	r.POST("/api/v1/views/{id}/collapse-all", h.CollapseAll)

	r.GET("/api/v1/views/{id}/export", h.ExportView)
	r.POST("/api/v1/views/{id}/export", h.SaveExport)
	r.GET("/api/v1/download/{id}/{file}", h.Download)
}
