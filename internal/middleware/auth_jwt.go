package middleware

import (
	"net/http"
	"strings"

	"marketplace/internal/auth"

	"github.com/labstack/echo/v4"
)

const (
	CtxIdentityKey  = "identity"   // string
	CtxRequestIDKey = "request_id" // string
)

// bearerAuth用のJWT検証ミドルウェア。sub を呼び出し元の identity として context に置く。
func AuthJWT(tokens *auth.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//Authorizationヘッダを取得
			authz := c.Request().Header.Get("Authorization")
			if authz == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//Bearer形式か確認してtokenを抜く
			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			rawToken := strings.TrimSpace(parts[1])
			if rawToken == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//JWTをパースして検証する
			identity, err := tokens.Parse(rawToken)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//contextへ保存
			c.Set(CtxIdentityKey, identity)

			return next(c)
		}
	}
}

// IdentityFrom は AuthJWT が置いた identity を取り出す
func IdentityFrom(c echo.Context) (string, bool) {
	v, ok := c.Get(CtxIdentityKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}
