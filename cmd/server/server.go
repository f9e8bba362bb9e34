package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"linked-go/config"
	"linked-go/internal/auth"
	"linked-go/internal/game"
	awsinfra "linked-go/internal/infrastructure/aws"
	"linked-go/internal/logging"
	"linked-go/internal/notify"
	"linked-go/internal/puzzle"
	"linked-go/internal/store"
)

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, tokens *auth.Service) error {
	var clients *awsinfra.Clients
	if cfg.PuzzleBucket != "" || cfg.PushFunction != "" {
		var err error
		clients, err = awsinfra.NewClients(ctx, cfg.AWSRegion)
		if err != nil {
			return err
		}
	}

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := seedPairs(ctx, st, cfg); err != nil {
		return err
	}

	var catalog puzzle.Catalog
	if cfg.PuzzleBucket != "" {
		catalog = puzzle.NewS3Catalog(clients.S3, cfg.PuzzleBucket, cfg.PuzzlePrefix)
		logger.Info("serving puzzles from s3", "bucket", cfg.PuzzleBucket, "prefix", cfg.PuzzlePrefix)
	} else {
		catalog = puzzle.NewDirCatalog(cfg.PuzzleDir)
		logger.Info("serving puzzles from disk", "dir", cfg.PuzzleDir)
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	service := game.NewGameService(st, catalog, game.Options{
		Scoring:       game.Scoring{LetterPoints: cfg.LetterPoints, WordBonus: cfg.WordBonus},
		HintAllowance: cfg.HintAllowance,
		Cooldown: game.CooldownGate{
			Window:        cfg.CooldownWindow,
			MidnightReset: cfg.CooldownMidnightReset,
			Location:      loc,
		},
		Dealer: game.SampleDealer{Size: cfg.RackSize},
		Logger: logger,
	})

	hub := notify.NewHub(service, logger)
	notifier, err := buildNotifier(cfg, clients, hub, logger)
	if err != nil {
		return err
	}
	go notify.NewRelay(service, notifier, notify.DefaultRelayTimeout, logger).Run(ctx)

	router := httprouter.New()
	game.NewHandler(service, logger).Routes(router)
	router.Handler(http.MethodGet, "/matches/:matchID/notifications", hub)
	router.HandlerFunc(http.MethodGet, "/me", auth.NewHandler(tokens).Me)
	router.HandlerFunc(http.MethodGet, "/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           logging.Middleware(logger, tokens.Middleware(router)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "environment", cfg.Environment, "database", cfg.DatabaseDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (game.Store, func(), error) {
	if cfg.DatabaseDriver == store.DriverMemory {
		logger.Warn("using in-memory store; matches are lost on restart")
		return store.NewMemory(), func() {}, nil
	}

	db, err := store.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(db); err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Info("database ready", "driver", cfg.DatabaseDriver)
	return store.NewSQL(db), func() { db.Close() }, nil
}

// seedPairs creates any configured pair the store does not know yet.
func seedPairs(ctx context.Context, pairs game.PairStore, cfg *config.Config) error {
	seeds, err := cfg.PairSeeds()
	if err != nil {
		return err
	}
	for _, seed := range seeds {
		_, err := pairs.GetPair(ctx, seed.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, game.ErrPairNotFound) {
			return fmt.Errorf("failed to look up pair %s: %w", seed.ID, err)
		}
		pair := &game.Pair{ID: seed.ID, PlayerA: seed.PlayerA, PlayerB: seed.PlayerB, CreatedAt: time.Now().UTC()}
		if err := pairs.CreatePair(ctx, pair); err != nil {
			return fmt.Errorf("failed to create pair %s: %w", seed.ID, err)
		}
	}
	return nil
}

func buildNotifier(cfg *config.Config, clients *awsinfra.Clients, hub *notify.Hub, logger *slog.Logger) (notify.Notifier, error) {
	notifiers := notify.Multi{hub}

	if cfg.PushFunction != "" {
		notifiers = append(notifiers, notify.NewLambdaNotifier(clients.Lambda, cfg.PushFunction))
		logger.Info("push notifications enabled", "function", cfg.PushFunction)
	}

	if cfg.SMTPHost != "" {
		sender, err := notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
		})
		if err != nil {
			return nil, err
		}
		emails, err := cfg.EmailAddresses()
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, notify.NewMailer(sender, notify.StaticAddressBook(emails), cfg.MailFrom, logger))
		logger.Info("turn emails enabled", "smtp_host", cfg.SMTPHost, "recipients", len(emails))
	}

	return notifiers, nil
}
