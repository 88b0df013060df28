package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"marketplace/internal/domain/model"
	"marketplace/internal/infra/db"
	infraRepo "marketplace/internal/infra/repository"
	"marketplace/internal/settlement"
	"marketplace/internal/usecase"
	"marketplace/internal/validator"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// TEST_DATABASE_DSN が無ければスキップ（docker compose の postgres を想定）
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	return dsn
}

type uuidGen struct{}

func (uuidGen) NewID() string { return uuid.NewString() }

type sysClock struct{}

func (sysClock) Now() time.Time { return time.Now() }

type failingSettlement struct{}

func (failingSettlement) Transfer(ctx context.Context, to string, amount int64) error {
	return errors.New("recipient rejected")
}

func openGorm(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := testDSN(t)

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	// 毎回まっさらにする
	require.NoError(t, gdb.Exec("TRUNCATE products, product_events, accounts RESTART IDENTITY").Error)
	require.NoError(t, gdb.Exec("UPDATE ledger_states SET product_count = 0 WHERE id = ?", model.LedgerStateID).Error)

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

// 検証は gorm を通さず pgx の database/sql で直接見る
func openRaw(t *testing.T) *sql.DB {
	t.Helper()
	raw, err := sql.Open("pgx", testDSN(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return raw
}

func newPostgresLedger(gdb *gorm.DB, s usecase.Settlement) *usecase.MarketplaceUsecase {
	repos := infraRepo.NewRepos(gdb)
	if s == nil {
		s = settlement.NewAccountSettlement(repos.Accounts())
	}
	return usecase.NewMarketplaceUsecase(
		"Dapp University Marketplace",
		repos,
		infraRepo.NewTxManagerGorm(gdb),
		s,
		validator.NewProductValidator(),
		uuidGen{}, sysClock{}, nil, nil,
	)
}

func TestPostgres_CreatePurchaseRemove(t *testing.T) {
	ctx := context.Background()
	gdb := openGorm(t)
	raw := openRaw(t)
	uc := newPostgresLedger(gdb, nil)

	_, err := uc.CreateProduct(ctx, "0xseller", usecase.CreateProductInput{Name: "iPad", Price: 500})
	require.NoError(t, err)
	created, err := uc.CreateProduct(ctx, "0xseller", usecase.CreateProductInput{Name: "iPhone", Price: 1000})
	require.NoError(t, err)
	assert.Equal(t, int64(2), created.ProductID)

	_, err = uc.PurchaseProduct(ctx, "0xbuyer", 2, 1000)
	require.NoError(t, err)

	var owner string
	var purchased bool
	require.NoError(t, raw.QueryRowContext(ctx, "SELECT owner, purchased FROM products WHERE id = $1", 2).Scan(&owner, &purchased))
	assert.Equal(t, "0xbuyer", owner)
	assert.True(t, purchased)

	var balance int64
	require.NoError(t, raw.QueryRowContext(ctx, "SELECT balance FROM accounts WHERE identity = $1", "0xseller").Scan(&balance))
	assert.Equal(t, int64(1000), balance)

	_, err = uc.RemoveProduct(ctx, "0xseller", 1)
	require.NoError(t, err)

	var count int64
	require.NoError(t, raw.QueryRowContext(ctx, "SELECT product_count FROM ledger_states WHERE id = $1", model.LedgerStateID).Scan(&count))
	assert.Equal(t, int64(2), count)

	rows, err := raw.QueryContext(ctx, "SELECT type FROM product_events ORDER BY seq")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()
	var types []string
	for rows.Next() {
		var typ string
		require.NoError(t, rows.Scan(&typ))
		types = append(types, typ)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"ProductCreated", "ProductCreated", "ProductPurchased", "ProductRemoved"}, types)

	p, err := uc.Product(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, p.ID)
}

func TestPostgres_TransferFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	gdb := openGorm(t)
	raw := openRaw(t)

	ok := newPostgresLedger(gdb, nil)
	_, err := ok.CreateProduct(ctx, "0xseller", usecase.CreateProductInput{Name: "iPhone", Price: 1000})
	require.NoError(t, err)

	failing := newPostgresLedger(gdb, failingSettlement{})
	_, err = failing.PurchaseProduct(ctx, "0xbuyer", 1, 1000)
	assert.ErrorIs(t, err, usecase.ErrPaymentTransferFailed)

	var owner string
	var purchased bool
	require.NoError(t, raw.QueryRowContext(ctx, "SELECT owner, purchased FROM products WHERE id = 1").Scan(&owner, &purchased))
	assert.Equal(t, "0xseller", owner)
	assert.False(t, purchased)

	var events int
	require.NoError(t, raw.QueryRowContext(ctx, "SELECT count(*) FROM product_events").Scan(&events))
	assert.Equal(t, 1, events)
}

// 別プロセス相当の usecase 2つから同時に買っても、成功は1件だけ
func TestPostgres_ConcurrentPurchaseSingleWinner(t *testing.T) {
	ctx := context.Background()
	gdb := openGorm(t)
	raw := openRaw(t)

	seed := newPostgresLedger(gdb, nil)
	_, err := seed.CreateProduct(ctx, "0xseller", usecase.CreateProductInput{Name: "iPhone", Price: 1000})
	require.NoError(t, err)

	const buyers = 8
	var wg sync.WaitGroup
	results := make(chan error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uc := newPostgresLedger(gdb, nil)
			_, err := uc.PurchaseProduct(ctx, "0xbuyer"+string(rune('a'+i)), 1, 1000)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, usecase.ErrAlreadyPurchased)
	}
	assert.Equal(t, 1, wins)

	var balance int64
	require.NoError(t, raw.QueryRowContext(ctx, "SELECT balance FROM accounts WHERE identity = $1", "0xseller").Scan(&balance))
	assert.Equal(t, int64(1000), balance)
}
