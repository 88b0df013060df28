package memory

import (
	"context"
	"errors"
	"math"
	"testing"

	"marketplace/internal/domain/model"
	repo "marketplace/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_WithinTx_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	err := s.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		id, err := r.Ledger().IncrementProductCount(ctx)
		if err != nil {
			return err
		}
		_, err = r.Products().Create(ctx, model.Product{ID: id, Name: "iPad", Price: 5, Owner: "a"})
		return err
	})
	require.NoError(t, err)

	n, err := s.Ledger().ProductCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	p, err := s.Products().FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "iPad", p.Name)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestStore_WithinTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		_, _ = r.Ledger().IncrementProductCount(ctx)
		_, _ = r.Products().Create(ctx, model.Product{ID: 1, Name: "iPad", Price: 5, Owner: "a"})
		_, _ = r.Events().Append(ctx, model.ProductEvent{EventID: "e1", Type: model.EventProductCreated, ProductID: 1})
		_ = r.Accounts().Credit(ctx, "a", 10)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, _ := s.Ledger().ProductCount(ctx)
	assert.Equal(t, int64(0), n)

	_, err = s.Products().FindByID(ctx, 1)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	events, err := s.Events().List(ctx, repo.EventFilter{})
	require.NoError(t, err)
	assert.Empty(t, events)

	_, err = s.Accounts().FindByIdentity(ctx, "a")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	// seq も巻き戻る
	ev, err := s.Events().Append(ctx, model.ProductEvent{EventID: "e2", Type: model.EventProductCreated, ProductID: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), ev.Seq)
}

func TestStore_WithinTx_RestoresTouchedEntries(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	// トランザクション外で下地を作る
	for id := int64(1); id <= 3; id++ {
		_, err := s.Products().Create(ctx, model.Product{ID: id, Name: "p", Price: 10, Owner: "seller"})
		require.NoError(t, err)
	}
	require.NoError(t, s.Accounts().Credit(ctx, "seller", 100))
	_, err := s.Events().Append(ctx, model.ProductEvent{EventID: "e1", Type: model.EventProductCreated, ProductID: 1})
	require.NoError(t, err)

	err = s.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		require.NoError(t, r.Products().MarkPurchased(ctx, 1, "buyer"))
		require.NoError(t, r.Products().Delete(ctx, 2))
		_, err := r.Products().Create(ctx, model.Product{ID: 4, Name: "new", Price: 1, Owner: "seller"})
		require.NoError(t, err)
		require.NoError(t, r.Accounts().Credit(ctx, "seller", 10))
		require.NoError(t, r.Accounts().Credit(ctx, "seller", 10))
		require.NoError(t, r.Accounts().Credit(ctx, "other", 5))
		_, err = r.Events().Append(ctx, model.ProductEvent{EventID: "e2", Type: model.EventProductPurchased, ProductID: 1})
		require.NoError(t, err)
		return errors.New("abort")
	})
	require.Error(t, err)

	p, err := s.Products().FindByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "seller", p.Owner)
	assert.False(t, p.Purchased)

	_, err = s.Products().FindByID(ctx, 2)
	assert.NoError(t, err)
	_, err = s.Products().FindByID(ctx, 4)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	acc, err := s.Accounts().FindByIdentity(ctx, "seller")
	require.NoError(t, err)
	assert.Equal(t, int64(100), acc.Balance)
	_, err = s.Accounts().FindByIdentity(ctx, "other")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	events, err := s.Events().List(ctx, repo.EventFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "e1", events[0].EventID)

	// 成功したトランザクションのあとは undo ログが残らない
	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		return r.Products().MarkPurchased(ctx, 3, "buyer")
	}))
	assert.Nil(t, s.undo)
	p, err = s.Products().FindByID(ctx, 3)
	require.NoError(t, err)
	assert.True(t, p.Purchased)
}

func TestStore_WithinTx_RollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	assert.Panics(t, func() {
		_ = s.WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
			_, _ = r.Ledger().IncrementProductCount(ctx)
			panic("kaboom")
		})
	})

	n, _ := s.Ledger().ProductCount(ctx)
	assert.Equal(t, int64(0), n)
}

func TestStore_WithinTx_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewStore().WithinTx(ctx, func(ctx context.Context, r repo.TxRepos) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestStore_Products(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	products := s.Products()

	for i, owner := range []string{"a", "b", "a"} {
		_, err := products.Create(ctx, model.Product{ID: int64(i + 1), Name: "p", Price: 1, Owner: owner})
		require.NoError(t, err)
	}

	_, err := products.Create(ctx, model.Product{ID: 1, Name: "dup", Price: 1, Owner: "a"})
	assert.ErrorIs(t, err, errDuplicateID)

	require.NoError(t, products.MarkPurchased(ctx, 2, "c"))
	assert.ErrorIs(t, products.MarkPurchased(ctx, 2, "d"), repo.ErrNotFound)
	assert.ErrorIs(t, products.MarkPurchased(ctx, 9, "d"), repo.ErrNotFound)

	p, err := products.FindByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "c", p.Owner)
	assert.True(t, p.Purchased)

	items, total, err := products.List(ctx, repo.ProductListQuery{Page: 1, Limit: 10, Owner: "a"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, items, 2)
	assert.Equal(t, int64(1), items[0].ID)
	assert.Equal(t, int64(3), items[1].ID)

	items, total, err = products.List(ctx, repo.ProductListQuery{Page: 3, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, items, 1)
	assert.Equal(t, int64(3), items[0].ID)

	items, _, err = products.List(ctx, repo.ProductListQuery{Page: 5, Limit: 1})
	require.NoError(t, err)
	assert.Empty(t, items)

	require.NoError(t, products.Delete(ctx, 1))
	assert.ErrorIs(t, products.Delete(ctx, 1), repo.ErrNotFound)
}

func TestStore_Events_Filter(t *testing.T) {
	ctx := context.Background()
	events := NewStore().Events()

	kinds := []model.EventType{model.EventProductCreated, model.EventProductCreated, model.EventProductPurchased}
	for i, k := range kinds {
		_, err := events.Append(ctx, model.ProductEvent{EventID: string(rune('a' + i)), Type: k, ProductID: int64(i%2 + 1)})
		require.NoError(t, err)
	}

	all, err := events.List(ctx, repo.EventFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{all[0].Seq, all[1].Seq, all[2].Seq})

	pid := int64(1)
	byProduct, err := events.List(ctx, repo.EventFilter{ProductID: &pid})
	require.NoError(t, err)
	assert.Len(t, byProduct, 2)

	typ := model.EventProductPurchased
	byType, err := events.List(ctx, repo.EventFilter{Type: &typ})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, int64(3), byType[0].Seq)

	page, err := events.List(ctx, repo.EventFilter{AfterSeq: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(2), page[0].Seq)
}

func TestStore_Accounts_Credit(t *testing.T) {
	ctx := context.Background()
	accounts := NewStore().Accounts()

	require.NoError(t, accounts.Credit(ctx, "s", 10))
	require.NoError(t, accounts.Credit(ctx, "s", 5))

	acc, err := accounts.FindByIdentity(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, int64(15), acc.Balance)

	assert.ErrorIs(t, accounts.Credit(ctx, "s", math.MaxInt64), errBalanceOverflow)
	acc, _ = accounts.FindByIdentity(ctx, "s")
	assert.Equal(t, int64(15), acc.Balance)
}
