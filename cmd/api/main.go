package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace/internal/auth"
	"marketplace/internal/config"
	"marketplace/internal/handler"
	"marketplace/internal/infra/db"
	"marketplace/internal/infra/memory"
	infraRepo "marketplace/internal/infra/repository"
	"marketplace/internal/logging"
	"marketplace/internal/metrics"
	"marketplace/internal/middleware"
	"marketplace/internal/ratelimit"
	repo "marketplace/internal/repository"
	"marketplace/internal/server"
	"marketplace/internal/settlement"
	"marketplace/internal/usecase"
	"marketplace/internal/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

func main() {
	issueFor := flag.String("issue-token", "", "print a bearer token for the given identity and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if *issueFor != "" {
		tok, exp, err := tokens.Issue(*issueFor, time.Now())
		if err != nil {
			fmt.Fprintln(os.Stderr, "issue token:", err)
			os.Exit(1)
		}
		fmt.Printf("%s\n# expires %s\n", tok, exp.Format(time.RFC3339))
		return
	}

	logger, err := logging.New(cfg.GoEnv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, tokens, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, tokens *auth.TokenService, logger *zap.Logger) error {
	//ストレージ（memory / postgres）
	var (
		repos repo.TxRepos
		tx    repo.TransactionManager
	)
	switch cfg.Storage {
	case config.StoragePostgres:
		gormDB, err := db.Connect(cfg, logger)
		if err != nil {
			return err
		}
		if err := db.Migrate(gormDB); err != nil {
			return err
		}
		repos = infraRepo.NewRepos(gormDB)
		tx = infraRepo.NewTxManagerGorm(gormDB)
	default:
		store := memory.NewStore()
		repos = store
		tx = store
		logger.Warn("using in-memory storage; ledger is lost on restart")
	}

	m := metrics.New()

	//Usecase生成
	uc := usecase.NewMarketplaceUsecase(
		cfg.MarketplaceName,
		repos,
		tx,
		settlement.NewAccountSettlement(repos.Accounts()),
		validator.NewProductValidator(),
		&uuidGenerator{},
		&realClock{},
		logger,
		m,
	)

	//Handler生成
	handlers := server.Handlers{
		Products: handler.NewProductHandler(uc),
		Ledger:   handler.NewLedgerHandler(uc),
	}

	limiter := ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute)
	e := server.New(handlers, logger, m,
		middleware.AuthJWT(tokens),
		middleware.RateLimit(limiter, time.Now),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("marketplace starting",
		zap.String("name", cfg.MarketplaceName),
		zap.String("storage", cfg.Storage),
		zap.String("env", cfg.GoEnv))

	//Server起動
	return server.Start(ctx, e, cfg.Addr(), logger)
}
