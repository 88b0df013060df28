package repository

import (
	"context"

	"marketplace/internal/domain/model"
)

// イベントログの絞り込み条件。
type EventFilter struct {
	ProductID *int64
	Type      *model.EventType
	AfterSeq  int64
	Limit     int
}

// イベントログ（追記のみ）の約束。
type EventRepository interface {
	// 1件追記して、採番済みの行を返す
	Append(ctx context.Context, e model.ProductEvent) (model.ProductEvent, error)

	// seq 昇順で返す
	List(ctx context.Context, filter EventFilter) ([]model.ProductEvent, error)
}
