package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

// 台帳全体のカウンタ（productCount）の約束。
type LedgerStateRepository interface {
	// Lock は台帳行を取得し、トランザクション終了まで他の更新を待たせる。
	Lock(ctx context.Context) (model.LedgerState, error)

	// productCount を 1 増やし、増やした後の値を返す。
	IncrementProductCount(ctx context.Context) (int64, error)

	ProductCount(ctx context.Context) (int64, error)
}
