package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

// 決済残高の約束。
type AccountRepository interface {
	// 残高に amount を加算する（口座がなければ作る）
	Credit(ctx context.Context, identity string, amount int64) error

	FindByIdentity(ctx context.Context, identity string) (model.Account, error)
}
