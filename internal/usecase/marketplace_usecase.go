package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"go.uber.org/zap"
)

// 決済（出品者への送金）。失敗したら購入全体をロールバックする。
type Settlement interface {
	Transfer(ctx context.Context, to string, amount int64) error
}

// 入力検証の約束（実装は validator パッケージ）
type ProductValidator interface {
	ValidateCreate(name string, price int64) error
	ValidateIdentity(identity string) error
}

// UUID 等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

// 台帳操作の結果を記録する（実装は metrics パッケージ）
type Observer interface {
	ObserveLedgerOperation(op string, code string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveLedgerOperation(string, string, time.Duration) {}

const (
	OpCreateProduct   = "create_product"
	OpPurchaseProduct = "purchase_product"
	OpRemoveProduct   = "remove_product"
)

// MarketplaceUsecase is the product ledger. Mutations are serialized by mu
// and each one runs in a single storage transaction, so an operation either
// applies its state change, event and transfer together or none of them.
type MarketplaceUsecase struct {
	name       string
	repos      repo.TxRepos
	tx         repo.TransactionManager
	settlement Settlement
	validator  ProductValidator
	idGen      IDGenerator
	clock      Clock
	logger     *zap.Logger
	observer   Observer

	mu sync.RWMutex
}

// DI
func NewMarketplaceUsecase(
	name string,
	repos repo.TxRepos,
	tx repo.TransactionManager,
	settlement Settlement,
	validator ProductValidator,
	idGen IDGenerator,
	clock Clock,
	logger *zap.Logger,
	observer Observer,
) *MarketplaceUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &MarketplaceUsecase{
		name:       name,
		repos:      repos,
		tx:         tx,
		settlement: settlement,
		validator:  validator,
		idGen:      idGen,
		clock:      clock,
		logger:     logger,
		observer:   observer,
	}
}

// Name は固定のマーケット名
func (u *MarketplaceUsecase) Name() string {
	return u.name
}

func (u *MarketplaceUsecase) ProductCount(ctx context.Context) (int64, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	n, err := u.repos.Ledger().ProductCount(ctx)
	if err != nil {
		return 0, reject(ErrInternal, "", err)
	}
	return n, nil
}

// Product は id の商品を返す。存在しなければゼロ値（エラーではない）
func (u *MarketplaceUsecase) Product(ctx context.Context, id int64) (model.Product, error) {
	if id <= 0 {
		return model.Product{}, nil
	}

	u.mu.RLock()
	defer u.mu.RUnlock()

	p, err := u.repos.Products().FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, nil
	}
	if err != nil {
		return model.Product{}, reject(ErrInternal, "", err)
	}
	return p, nil
}

// GET /products の入力
type ListProductsInput struct {
	Page      int
	Limit     int
	Owner     string
	Purchased *bool
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *MarketplaceUsecase) ListProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, reject(ErrInvalidInput, "invalid page", nil)
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, reject(ErrInvalidInput, "invalid limit", nil)
	}

	u.mu.RLock()
	defer u.mu.RUnlock()

	items, total, err := u.repos.Products().List(ctx, repo.ProductListQuery{
		Page:      in.Page,
		Limit:     in.Limit,
		Owner:     in.Owner,
		Purchased: in.Purchased,
	})
	if err != nil {
		return ProductListOutput{}, reject(ErrInternal, "", err)
	}

	return ProductListOutput{
		Items: items,
		Total: total,
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

// GET /events の入力
type ListEventsInput struct {
	ProductID *int64
	Type      string
	AfterSeq  int64
	Limit     int
}

func (u *MarketplaceUsecase) Events(ctx context.Context, in ListEventsInput) ([]model.ProductEvent, error) {
	if in.AfterSeq < 0 {
		return nil, reject(ErrInvalidInput, "after must be >= 0", nil)
	}
	if in.Limit < 0 || in.Limit > 200 {
		return nil, reject(ErrInvalidInput, "invalid limit", nil)
	}

	filter := repo.EventFilter{
		ProductID: in.ProductID,
		AfterSeq:  in.AfterSeq,
		Limit:     in.Limit,
	}
	if in.Type != "" {
		t := model.EventType(in.Type)
		if !t.Valid() {
			return nil, reject(ErrInvalidInput, "invalid event type", nil)
		}
		filter.Type = &t
	}

	u.mu.RLock()
	defer u.mu.RUnlock()

	events, err := u.repos.Events().List(ctx, filter)
	if err != nil {
		return nil, reject(ErrInternal, "", err)
	}
	return events, nil
}

// Balance は identity の決済残高。口座がなければ 0
func (u *MarketplaceUsecase) Balance(ctx context.Context, identity string) (int64, error) {
	if err := u.validator.ValidateIdentity(identity); err != nil {
		return 0, reject(ErrInvalidInput, err.Error(), nil)
	}

	u.mu.RLock()
	defer u.mu.RUnlock()

	acc, err := u.repos.Accounts().FindByIdentity(ctx, identity)
	if errors.Is(err, repo.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, reject(ErrInternal, "", err)
	}
	return acc.Balance, nil
}

type CreateProductInput struct {
	Name  string
	Price int64
}

// CreateProduct lists a new product owned by caller and returns its
// ProductCreated event. The id is the incremented productCount.
func (u *MarketplaceUsecase) CreateProduct(ctx context.Context, caller string, in CreateProductInput) (ev model.ProductEvent, err error) {
	start := u.clock.Now()
	defer func() { u.finish(OpCreateProduct, caller, ev.ProductID, start, err) }()

	if err := u.validator.ValidateIdentity(caller); err != nil {
		return model.ProductEvent{}, reject(ErrInvalidInput, err.Error(), nil)
	}
	if err := u.validator.ValidateCreate(in.Name, in.Price); err != nil {
		return model.ProductEvent{}, reject(ErrInvalidInput, err.Error(), nil)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	err = u.tx.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		id, err := r.Ledger().IncrementProductCount(ctx)
		if err != nil {
			return reject(ErrInternal, "", err)
		}

		now := u.clock.Now()
		p, err := r.Products().Create(ctx, model.Product{
			ID:        id,
			Name:      in.Name,
			Price:     in.Price,
			Owner:     caller,
			Purchased: false,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return reject(ErrInternal, "", err)
		}

		ev, err = r.Events().Append(ctx, u.newEvent(model.EventProductCreated, p, now))
		if err != nil {
			return reject(ErrInternal, "", err)
		}
		return nil
	})
	if err != nil {
		return model.ProductEvent{}, asLedgerError(err)
	}
	return ev, nil
}

// PurchaseProduct transfers product id to caller for exactly its price and
// forwards the payment to the seller. Checks run in this order: not found,
// payment mismatch, self purchase, already purchased.
func (u *MarketplaceUsecase) PurchaseProduct(ctx context.Context, caller string, id int64, payment int64) (ev model.ProductEvent, err error) {
	start := u.clock.Now()
	defer func() { u.finish(OpPurchaseProduct, caller, id, start, err) }()

	if err := u.validator.ValidateIdentity(caller); err != nil {
		return model.ProductEvent{}, reject(ErrInvalidInput, err.Error(), nil)
	}
	if id <= 0 {
		return model.ProductEvent{}, reject(ErrProductNotFound, "", nil)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	err = u.tx.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		if _, err := r.Ledger().Lock(ctx); err != nil {
			return reject(ErrInternal, "", err)
		}

		p, err := r.Products().FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return reject(ErrProductNotFound, "", nil)
		}
		if err != nil {
			return reject(ErrInternal, "", err)
		}

		if payment != p.Price {
			return reject(ErrInsufficientPayment, "", nil)
		}
		if caller == p.Owner {
			return reject(ErrSelfPurchaseForbidden, "", nil)
		}
		if p.Purchased {
			return reject(ErrAlreadyPurchased, "", nil)
		}

		seller := p.Owner
		if err := r.Products().MarkPurchased(ctx, id, caller); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return reject(ErrAlreadyPurchased, "", nil)
			}
			return reject(ErrInternal, "", err)
		}
		p.Owner = caller
		p.Purchased = true

		ev, err = r.Events().Append(ctx, u.newEvent(model.EventProductPurchased, p, u.clock.Now()))
		if err != nil {
			return reject(ErrInternal, "", err)
		}

		//最後に送金。失敗したら上の更新ごとロールバック
		if err := u.settlement.Transfer(ctx, seller, payment); err != nil {
			return reject(ErrPaymentTransferFailed, "", err)
		}
		return nil
	})
	if err != nil {
		return model.ProductEvent{}, asLedgerError(err)
	}
	return ev, nil
}

// RemoveProduct deletes product id. Only the current owner may remove it;
// the purchased flag is not consulted.
func (u *MarketplaceUsecase) RemoveProduct(ctx context.Context, caller string, id int64) (ev model.ProductEvent, err error) {
	start := u.clock.Now()
	defer func() { u.finish(OpRemoveProduct, caller, id, start, err) }()

	if err := u.validator.ValidateIdentity(caller); err != nil {
		return model.ProductEvent{}, reject(ErrInvalidInput, err.Error(), nil)
	}
	if id <= 0 {
		return model.ProductEvent{}, reject(ErrProductNotFound, "", nil)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	err = u.tx.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		if _, err := r.Ledger().Lock(ctx); err != nil {
			return reject(ErrInternal, "", err)
		}

		p, err := r.Products().FindByID(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return reject(ErrProductNotFound, "", nil)
		}
		if err != nil {
			return reject(ErrInternal, "", err)
		}

		if caller != p.Owner {
			return reject(ErrNotOwner, "", nil)
		}

		if err := r.Products().Delete(ctx, id); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return reject(ErrProductNotFound, "", nil)
			}
			return reject(ErrInternal, "", err)
		}

		ev, err = r.Events().Append(ctx, model.ProductEvent{
			EventID:   u.idGen.NewID(),
			Type:      model.EventProductRemoved,
			ProductID: id,
			Removed:   true,
			CreatedAt: u.clock.Now(),
		})
		if err != nil {
			return reject(ErrInternal, "", err)
		}
		return nil
	})
	if err != nil {
		return model.ProductEvent{}, asLedgerError(err)
	}
	return ev, nil
}

func (u *MarketplaceUsecase) newEvent(t model.EventType, p model.Product, at time.Time) model.ProductEvent {
	return model.ProductEvent{
		EventID:   u.idGen.NewID(),
		Type:      t,
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Owner:     p.Owner,
		Purchased: p.Purchased,
		CreatedAt: at,
	}
}

// finish はログとメトリクスをまとめて記録する
func (u *MarketplaceUsecase) finish(op string, caller string, productID int64, start time.Time, err error) {
	code := codeOf(err)
	u.observer.ObserveLedgerOperation(op, code, u.clock.Now().Sub(start))

	fields := []zap.Field{
		zap.String("op", op),
		zap.String("caller", caller),
		zap.Int64("product_id", productID),
		zap.String("code", code),
	}
	switch {
	case err == nil:
		u.logger.Info("ledger operation applied", fields...)
	case code == string(CodeInternal) || code == string(CodePaymentTransferFailed):
		u.logger.Error("ledger operation failed", append(fields, zap.Error(err))...)
	default:
		u.logger.Warn("ledger operation rejected", fields...)
	}
}

// WithinTx から返ったエラーを LedgerError にそろえる（ctx のキャンセル等）
func asLedgerError(err error) error {
	if _, ok := AsLedgerError(err); ok {
		return err
	}
	return reject(ErrInternal, "", err)
}
