package middleware

import (
	"time"

	"marketplace/internal/metrics"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestID は X-Request-ID を引き継ぐか、なければ UUID を振る
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Set(CtxRequestIDKey, id)
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			return next(c)
		}
	}
}

// AccessLog はリクエスト1件ごとにログとメトリクスを残す
func AccessLog(logger *zap.Logger, m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				//echo のエラーハンドラにステータスを決めさせる
				c.Error(err)
			}

			status := c.Response().Status
			elapsed := time.Since(start)
			endpoint := c.Path()
			if endpoint == "" {
				endpoint = "unmatched"
			}
			if m != nil {
				m.RecordRequest(c.Request().Method, endpoint, status, elapsed)
			}

			requestID, _ := c.Get(CtxRequestIDKey).(string)
			logger.Info("http request",
				zap.String("request_id", requestID),
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", status),
				zap.Duration("latency", elapsed))
			return nil
		}
	}
}
