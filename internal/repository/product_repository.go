package repository

import (
	"context"
	"errors"

	"marketplace/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 一覧検索
type ProductListQuery struct {
	Page      int
	Limit     int
	Owner     string
	Purchased *bool
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (model.Product, error)
	List(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	// 所有者を移し purchased=true にする
	MarkPurchased(ctx context.Context, id int64, buyer string) error
	// 行ごと削除する（ソフトデリートではない）
	Delete(ctx context.Context, id int64) error
}
