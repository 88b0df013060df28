// Package memory keeps the whole ledger in process memory. It implements the
// repository contracts and a TransactionManager that replays an undo log of
// the touched entries when the transaction callback fails.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"
)

type Store struct {
	txMu sync.Mutex   // WithinTx 同士を直列化
	mu   sync.RWMutex // データ本体

	products     map[int64]model.Product
	productCount int64
	events       []model.ProductEvent
	nextSeq      int64
	accounts     map[string]model.Account

	// 実行中のトランザクションの undo ログ。トランザクション外では nil
	undo *undoLog

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		products: make(map[int64]model.Product),
		accounts: make(map[string]model.Account),
		nextSeq:  1,
		now:      time.Now,
	}
}

// undoLog はトランザクション中に触ったキーの変更前の値だけを持つ。
// 値が nil のエントリは「変更前は存在しなかった」を表す。
type undoLog struct {
	products     map[int64]*model.Product
	accounts     map[string]*model.Account
	productCount int64
	eventsLen    int
	nextSeq      int64
}

// s.mu を保持した状態で呼ぶ
func (s *Store) touchProduct(id int64) {
	if s.undo == nil {
		return
	}
	if _, seen := s.undo.products[id]; seen {
		return
	}
	if p, ok := s.products[id]; ok {
		s.undo.products[id] = &p
		return
	}
	s.undo.products[id] = nil
}

// s.mu を保持した状態で呼ぶ
func (s *Store) touchAccount(identity string) {
	if s.undo == nil {
		return
	}
	if _, seen := s.undo.accounts[identity]; seen {
		return
	}
	if acc, ok := s.accounts[identity]; ok {
		s.undo.accounts[identity] = &acc
		return
	}
	s.undo.accounts[identity] = nil
}

func (s *Store) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.undo = &undoLog{
		products:     make(map[int64]*model.Product),
		accounts:     make(map[string]*model.Account),
		productCount: s.productCount,
		eventsLen:    len(s.events),
		nextSeq:      s.nextSeq,
	}
}

// finish は rollback なら undo ログを適用し、どちらの場合もログを捨てる
func (s *Store) finish(rollback bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.undo
	s.undo = nil
	if !rollback || u == nil {
		return
	}

	for id, prev := range u.products {
		if prev == nil {
			delete(s.products, id)
			continue
		}
		s.products[id] = *prev
	}
	for identity, prev := range u.accounts {
		if prev == nil {
			delete(s.accounts, identity)
			continue
		}
		s.accounts[identity] = *prev
	}
	s.productCount = u.productCount
	s.events = s.events[:u.eventsLen]
	s.nextSeq = u.nextSeq
}

func (s *Store) Products() repo.ProductRepository   { return productRepository{s} }
func (s *Store) Ledger() repo.LedgerStateRepository { return ledgerRepository{s} }
func (s *Store) Events() repo.EventRepository       { return eventRepository{s} }
func (s *Store) Accounts() repo.AccountRepository   { return accountRepository{s} }

// WithinTx runs fn with the store locked against other transactions and
// undoes every change fn made when it returns an error or panics.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r repo.TxRepos) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.begin()
	defer func() {
		if p := recover(); p != nil {
			s.finish(true)
			panic(p)
		}
		s.finish(err != nil)
	}()

	return fn(ctx, s)
}

type productRepository struct{ s *Store }

func (r productRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (r productRepository) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := make([]model.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		if q.Owner != "" && p.Owner != q.Owner {
			continue
		}
		if q.Purchased != nil && p.Purchased != *q.Purchased {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := int64(len(matched))
	offset := (q.Page - 1) * q.Limit
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []model.Product{}, total, nil
	}
	end := offset + q.Limit
	if q.Limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (r productRepository) Create(ctx context.Context, p model.Product) (model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.products[p.ID]; exists {
		return model.Product{}, errDuplicateID
	}
	r.s.touchProduct(p.ID)
	now := r.s.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	r.s.products[p.ID] = p
	return p, nil
}

func (r productRepository) MarkPurchased(ctx context.Context, id int64, buyer string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok || p.Purchased {
		return repo.ErrNotFound
	}
	r.s.touchProduct(id)
	p.Owner = buyer
	p.Purchased = true
	p.UpdatedAt = r.s.now()
	r.s.products[id] = p
	return nil
}

func (r productRepository) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[id]; !ok {
		return repo.ErrNotFound
	}
	r.s.touchProduct(id)
	delete(r.s.products, id)
	return nil
}

type ledgerRepository struct{ s *Store }

// WithinTx が既に排他しているので、ここでは現在値を返すだけ
func (r ledgerRepository) Lock(ctx context.Context) (model.LedgerState, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return model.LedgerState{ID: model.LedgerStateID, ProductCount: r.s.productCount}, nil
}

func (r ledgerRepository) IncrementProductCount(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.productCount++
	return r.s.productCount, nil
}

func (r ledgerRepository) ProductCount(ctx context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.productCount, nil
}

type eventRepository struct{ s *Store }

func (r eventRepository) Append(ctx context.Context, e model.ProductEvent) (model.ProductEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e.Seq = r.s.nextSeq
	r.s.nextSeq++
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.s.now()
	}
	r.s.events = append(r.s.events, e)
	return e, nil
}

func (r eventRepository) List(ctx context.Context, filter repo.EventFilter) ([]model.ProductEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	out := make([]model.ProductEvent, 0)
	for _, e := range r.s.events {
		if e.Seq <= filter.AfterSeq {
			continue
		}
		if filter.ProductID != nil && e.ProductID != *filter.ProductID {
			continue
		}
		if filter.Type != nil && e.Type != *filter.Type {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type accountRepository struct{ s *Store }

func (r accountRepository) Credit(ctx context.Context, identity string, amount int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	acc := r.s.accounts[identity]
	if amount > 0 && acc.Balance > math.MaxInt64-amount {
		return errBalanceOverflow
	}
	r.s.touchAccount(identity)
	acc.Identity = identity
	acc.Balance += amount
	acc.UpdatedAt = r.s.now()
	r.s.accounts[identity] = acc
	return nil
}

func (r accountRepository) FindByIdentity(ctx context.Context, identity string) (model.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	acc, ok := r.s.accounts[identity]
	if !ok {
		return model.Account{}, repo.ErrNotFound
	}
	return acc, nil
}
