package db

import (
	"context"
	"fmt"

	"marketplace/internal/config"
	"marketplace/internal/domain/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
func Connect(cfg config.Config, logger *zap.Logger) (*gorm.DB, error) {
	level := gormlogger.Warn
	if cfg.GoEnv == "prod" {
		level = gormlogger.Error
	}

	gdb, err := gorm.Open(postgres.Open(cfg.PostgresDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	logger.Info("connected to postgres",
		zap.String("host", cfg.PostgresHost),
		zap.String("db", cfg.PostgresDB))
	return gdb, nil
}

// Migrate はテーブルを作成し、台帳行（id=1）を用意する。
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&model.Product{},
		&model.LedgerState{},
		&model.ProductEvent{},
		&model.Account{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	state := model.LedgerState{ID: model.LedgerStateID}
	if err := gdb.FirstOrCreate(&state, model.LedgerState{ID: model.LedgerStateID}).Error; err != nil {
		return fmt.Errorf("seed ledger state: %w", err)
	}
	return nil
}

type txKey struct{}

// WithTx はトランザクションを ctx に載せる。
func WithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// Conn は ctx にトランザクションがあればそれを、なければ fallback を返す。
func Conn(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return fallback.WithContext(ctx)
}
