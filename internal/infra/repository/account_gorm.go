package repository

import (
	"context"
	"errors"

	"marketplace/internal/domain/model"
	"marketplace/internal/infra/db"
	repo "marketplace/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountGormRepository struct {
	db *gorm.DB
}

func NewAccountGormRepository(db *gorm.DB) *AccountGormRepository {
	return &AccountGormRepository{db: db}
}

// 残高に加算。口座がなければ amount で作る（upsert）
func (r *AccountGormRepository) Credit(ctx context.Context, identity string, amount int64) error {
	acc := model.Account{Identity: identity, Balance: amount}
	return db.Conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "identity"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"balance":    gorm.Expr("accounts.balance + ?", amount),
				"updated_at": gorm.Expr("now()"),
			}),
		}).
		Create(&acc).Error
}

func (r *AccountGormRepository) FindByIdentity(ctx context.Context, identity string) (model.Account, error) {
	var acc model.Account
	err := db.Conn(ctx, r.db).Where("identity = ?", identity).First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Account{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Account{}, err
	}
	return acc, nil
}
