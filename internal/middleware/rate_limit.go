package middleware

import (
	"net/http"
	"strings"
	"time"

	"marketplace/internal/ratelimit"

	"github.com/labstack/echo/v4"
)

// identity ごと（なければ接続元IP）に書き込みリクエストを制限する。AuthJWT の後に置く。
// どちらも取れないリクエストは制限しない。
func RateLimit(limiter *ratelimit.MapLimiter, now func() time.Time) echo.MiddlewareFunc {
	if now == nil {
		now = time.Now
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := ratelimit.Key{IP: strings.TrimSpace(c.RealIP())}
			if identity, ok := IdentityFrom(c); ok {
				key.Identity = strings.TrimSpace(identity)
			}
			if key.Identity == "" && key.IP == "" {
				return next(c)
			}

			if !limiter.Allow(key, now()) {
				return c.JSON(http.StatusTooManyRequests, errorJSON("rate limited"))
			}
			return next(c)
		}
	}
}
