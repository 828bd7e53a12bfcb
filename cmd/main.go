package main

import (
	"context"

	"github.com/hellofresh/health-go/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/avelikov/quorum-vault/internal/api"
	"github.com/avelikov/quorum-vault/internal/config"
	"github.com/avelikov/quorum-vault/internal/db"
	"github.com/avelikov/quorum-vault/internal/repository"
	"github.com/avelikov/quorum-vault/internal/service"
	"github.com/avelikov/quorum-vault/internal/shardverifier"
	"github.com/avelikov/quorum-vault/pkg/logger"
)

func main() {
	log, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("starting application")

	cfg := config.Load()

	pool, err := db.NewPool(context.Background(), cfg.PostgreSQL.DSN())
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	log.Info("database connection established")

	transactor := db.NewPgxTransactor(pool)

	teamRepo := repository.NewPgxTeamRepository(pool)
	memberRepo := repository.NewPgxMemberRepository(pool)
	txRepo := repository.NewPgxTransactionRepository(pool)

	verifier := shardverifier.NewHTTPVerifier(cfg.ShardVerifier.BaseURL, cfg.ShardVerifier.Timeout)

	teams := service.NewTeamService(transactor).
		WithTeamRepo(teamRepo).
		WithMemberRepo(memberRepo)
	txs := service.NewTransactionService(transactor).
		WithTeamRepo(teamRepo).
		WithMemberRepo(memberRepo).
		WithTransactionRepo(txRepo)
	approvals := service.NewApprovalService(transactor).
		WithTransactionRepo(txRepo).
		WithMemberRepo(memberRepo).
		WithVerifier(verifier)

	checker := api.MustNewHealthChecker(health.Config{
		Name: "postgres",
		Check: func(ctx context.Context) error {
			return pool.Ping(ctx)
		},
	})

	e := echo.New()

	handler := api.NewHandler(log).
		WithTeamService(teams).
		WithTransactionService(txs).
		WithApprovalService(approvals).
		WithHealthChecker(checker)

	handler.RegisterRoutes(e)

	log.Info("server starting", zap.String("addr", cfg.Server.Addr()))
	if err = e.Start(cfg.Server.Addr()); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
