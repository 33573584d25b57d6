package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/MrJamesThe3rd/numrent/internal/account"
	"github.com/MrJamesThe3rd/numrent/internal/auth"
	"github.com/MrJamesThe3rd/numrent/internal/config"
	"github.com/MrJamesThe3rd/numrent/internal/database"
	"github.com/MrJamesThe3rd/numrent/internal/dispute"
	"github.com/MrJamesThe3rd/numrent/internal/escrow"
	"github.com/MrJamesThe3rd/numrent/internal/funding"
	numrentHttp "github.com/MrJamesThe3rd/numrent/internal/http"
	accountHandler "github.com/MrJamesThe3rd/numrent/internal/http/account"
	adminHandler "github.com/MrJamesThe3rd/numrent/internal/http/admin"
	"github.com/MrJamesThe3rd/numrent/internal/export"
	disputeHandler "github.com/MrJamesThe3rd/numrent/internal/http/dispute"
	exportHandler "github.com/MrJamesThe3rd/numrent/internal/http/export"
	fundingHandler "github.com/MrJamesThe3rd/numrent/internal/http/funding"
	authmw "github.com/MrJamesThe3rd/numrent/internal/http/middleware"
	listingHandler "github.com/MrJamesThe3rd/numrent/internal/http/listing"
	purchaseHandler "github.com/MrJamesThe3rd/numrent/internal/http/purchase"
	reviewHandler "github.com/MrJamesThe3rd/numrent/internal/http/review"
	sessionHandler "github.com/MrJamesThe3rd/numrent/internal/http/session"
	"github.com/MrJamesThe3rd/numrent/internal/importer"
	"github.com/MrJamesThe3rd/numrent/internal/ledger"
	"github.com/MrJamesThe3rd/numrent/internal/ledger/memstore"
	ledgerStore "github.com/MrJamesThe3rd/numrent/internal/ledger/store"
	"github.com/MrJamesThe3rd/numrent/internal/listing"
	"github.com/MrJamesThe3rd/numrent/internal/money"
	"github.com/MrJamesThe3rd/numrent/internal/notify"
	"github.com/MrJamesThe3rd/numrent/internal/payment/cryptobot"
	"github.com/MrJamesThe3rd/numrent/internal/review"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.App.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).With("app", cfg.App.Name)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	limits, err := fundingLimits(cfg)
	if err != nil {
		return err
	}

	var base notify.Notifier = notify.NewLog(logger)
	if cfg.Telegram.BotToken != "" {
		base = notify.NewTelegram(cfg.Telegram.BaseURL, cfg.Telegram.BotToken)
	}

	notifier := notify.NewAsync(base, 10*time.Second, logger)
	defer notifier.Wait()

	if cfg.Payment.CryptoBotToken == "" {
		logger.Warn("CRYPTOBOT_TOKEN is not set, deposits and withdrawals will fail")
	}

	gateway := cryptobot.New(cryptobot.Config{
		BaseURL:     cfg.Payment.CryptoBotBaseURL,
		Token:       cfg.Payment.CryptoBotToken,
		Asset:       cfg.Payment.Asset,
		Description: cfg.App.Name + " balance top-up",
	})

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Telegram.AdminIDs)

	var (
		accountService = account.NewService(store, logger)
		listingService = listing.NewService(store, logger).WithPageSize(cfg.Market.PageSize)
		escrowService  = escrow.NewService(store, notifier, logger)
		disputeService = dispute.NewService(store, escrowService, notifier, cfg.Telegram.AdminIDs, logger)
		reviewService  = review.NewService(store, notifier, cfg.Market.ReviewWindow, logger)
		fundingService = funding.NewService(store, accountService, gateway, notifier, limits, logger)
		importService  = importer.NewService()
	)

	router := numrentHttp.New(issuer, cfg.CORS.AllowedOrigins, numrentHttp.Handlers{
		Session:   sessionHandler.NewHandler(issuer, accountService, cfg.Telegram.BotToken, cfg.Auth.LoginMaxAge),
		Accounts:  accountHandler.NewHandler(accountService, reviewService),
		Listings:  listingHandler.NewHandler(listingService, importService, escrowService),
		Purchases: purchaseHandler.NewHandler(escrowService, disputeService, reviewService),
		Disputes:  disputeHandler.NewHandler(disputeService, escrowService),
		Reviews:   reviewHandler.NewHandler(reviewService),
		Funding:   fundingHandler.NewHandler(fundingService, cfg.Payment.CryptoBotToken),
		Export:    exportHandler.NewHandler(export.NewService(escrowService)),
		Admin:     adminHandler.NewHandler(accountService, escrowService),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           authmw.ReadTimeout(cfg.Server.Timeout)(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		escrow.NewSweeper(escrowService, cfg.Market.SweepInterval, logger).Run(ctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("starting server", "addr", srv.Addr, "store", cfg.Store.Kind)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ledger.Store, func(), error) {
	if cfg.Store.Kind == config.StoreMemory {
		logger.Warn("using the in-memory store, data is lost on exit")
		return memstore.New(), func() {}, nil
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return ledgerStore.New(db), func() { db.Close() }, nil
}

func fundingLimits(cfg *config.Config) (funding.Limits, error) {
	minDeposit, err := money.ParsePositive(cfg.Payment.MinDeposit)
	if err != nil {
		return funding.Limits{}, fmt.Errorf("PAYMENT_MIN_DEPOSIT: %w", err)
	}

	minWithdrawal, err := money.ParsePositive(cfg.Payment.MinWithdrawal)
	if err != nil {
		return funding.Limits{}, fmt.Errorf("PAYMENT_MIN_WITHDRAWAL: %w", err)
	}

	return funding.Limits{MinDeposit: minDeposit, MinWithdrawal: minWithdrawal}, nil
}
