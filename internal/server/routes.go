package server

import (
	"net/http"

	"marketplace/internal/handler"
	"marketplace/internal/metrics"

	"github.com/labstack/echo/v4"
)

// Handlers は Echo に載せるハンドラ一式
type Handlers struct {
	Products *handler.ProductHandler
	Ledger   *handler.LedgerHandler
}

func RegisterRoutes(e *echo.Echo, h Handlers, m *metrics.Metrics, writeGuards ...echo.MiddlewareFunc) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}

	h.Products.RegisterRoutes(e, writeGuards...)
	h.Ledger.RegisterRoutes(e)
}
