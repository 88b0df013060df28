package repository

import (
	"context"
	"errors"

	"marketplace/internal/domain/model"
	"marketplace/internal/infra/db"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LedgerStateGormRepository struct {
	db *gorm.DB
}

func NewLedgerStateGormRepository(db *gorm.DB) *LedgerStateGormRepository {
	return &LedgerStateGormRepository{db: db}
}

func (r *LedgerStateGormRepository) conn(ctx context.Context) *gorm.DB {
	return db.Conn(ctx, r.db)
}

// SELECT ... FOR UPDATE で台帳行をロックする。行がなければ作る
func (r *LedgerStateGormRepository) Lock(ctx context.Context) (model.LedgerState, error) {
	var state model.LedgerState
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&state, model.LedgerStateID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		state = model.LedgerState{ID: model.LedgerStateID}
		if err := r.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&state).Error; err != nil {
			return model.LedgerState{}, err
		}
		err = r.conn(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&state, model.LedgerStateID).Error
	}
	if err != nil {
		return model.LedgerState{}, err
	}
	return state, nil
}

func (r *LedgerStateGormRepository) IncrementProductCount(ctx context.Context) (int64, error) {
	if _, err := r.Lock(ctx); err != nil {
		return 0, err
	}

	res := r.conn(ctx).Model(&model.LedgerState{}).
		Where("id = ?", model.LedgerStateID).
		Update("product_count", gorm.Expr("product_count + 1"))
	if res.Error != nil {
		return 0, res.Error
	}

	return r.ProductCount(ctx)
}

func (r *LedgerStateGormRepository) ProductCount(ctx context.Context) (int64, error) {
	var state model.LedgerState
	err := r.conn(ctx).First(&state, model.LedgerStateID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return state.ProductCount, nil
}
