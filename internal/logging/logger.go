package logging

import (
	"go.uber.org/zap"
)

// New は GO_ENV に応じた zap.Logger を返す。prod は JSON、それ以外は開発用の読みやすい形式。
func New(goEnv string) (*zap.Logger, error) {
	if goEnv == "prod" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
