package repository

import (
	"context"

	"marketplace/internal/infra/db"
	repo "marketplace/internal/repository"

	"gorm.io/gorm"
)

// Repos は TxRepos を満たす。トランザクション外の読み取りにも使う
type Repos struct {
	products repo.ProductRepository
	ledger   repo.LedgerStateRepository
	events   repo.EventRepository
	accounts repo.AccountRepository
}

func NewRepos(db *gorm.DB) *Repos {
	return &Repos{
		products: NewProductGormRepository(db),
		ledger:   NewLedgerStateGormRepository(db),
		events:   NewEventGormRepository(db),
		accounts: NewAccountGormRepository(db),
	}
}

func (r *Repos) Products() repo.ProductRepository   { return r.products }
func (r *Repos) Ledger() repo.LedgerStateRepository { return r.ledger }
func (r *Repos) Events() repo.EventRepository       { return r.events }
func (r *Repos) Accounts() repo.AccountRepository   { return r.accounts }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(ctx context.Context, r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す。ctxにもtxを載せて、外から渡された repo も同じtxを使う
		return fn(db.WithTx(ctx, tx), NewRepos(tx))
	})
}
