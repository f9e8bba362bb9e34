package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"linked-go/config"
	awsinfra "linked-go/internal/infrastructure/aws"
	"linked-go/internal/infrastructure/aws/dynamodb"
	"linked-go/internal/logging"
	"linked-go/internal/matchsync"
	"linked-go/internal/snapshot"
)

func main() {
	_ = godotenv.Load()

	pairID := flag.String("pair", "", "pair id to play in")
	playerID := flag.String("player", "", "your player id")
	lastMatch := flag.String("last", "", "print the saved snapshot of this match id and exit")
	flag.Parse()

	if *playerID == "" || (*pairID == "" && *lastMatch == "") {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snapshots, err := openSnapshots(ctx, cfg)
	if err != nil {
		logger.Error("failed to open snapshot store", "error", err)
		os.Exit(1)
	}

	if *lastMatch != "" {
		if err := printSnapshot(ctx, snapshots, *lastMatch, *playerID); err != nil {
			logger.Error("failed to load snapshot", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := play(ctx, cfg, snapshots, logger, *pairID, *playerID); err != nil {
		logger.Error("client exited", "error", err)
		os.Exit(1)
	}
}

// openSnapshots prefers DynamoDB, then a local directory. Without either the
// client keeps no snapshots.
func openSnapshots(ctx context.Context, cfg *config.Config) (snapshot.Store, error) {
	switch {
	case cfg.SnapshotTable != "":
		clients, err := awsinfra.NewClients(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, err
		}
		if err := dynamodb.NewSchemaService(clients.DynamoDB).CreateTables(ctx, cfg.SnapshotTable); err != nil {
			return nil, err
		}
		return snapshot.NewDynamoStore(clients.DynamoDB, cfg.SnapshotTable), nil
	case cfg.SnapshotDir != "":
		return snapshot.NewDirStore(cfg.SnapshotDir), nil
	default:
		return nil, nil
	}
}

func printSnapshot(ctx context.Context, snapshots snapshot.Store, matchID, playerID string) error {
	if snapshots == nil {
		return errors.New("no snapshot store configured")
	}
	snap, err := snapshots.Load(ctx, matchID, playerID)
	if err != nil {
		return err
	}
	fmt.Printf("saved %s\n", snap.SavedAt.Local().Format("2006-01-02 15:04:05"))
	render(os.Stdout, snap.Match, nil, playerID)
	return nil
}

func play(ctx context.Context, cfg *config.Config, snapshots snapshot.Store, logger *slog.Logger, pairID, playerID string) error {
	api := matchsync.NewHTTPTransport(cfg.ServerURL, cfg.AccessToken, &http.Client{})
	client, err := matchsync.Open(ctx, api, pairID, playerID, matchsync.Options{
		Interval:    cfg.PollInterval,
		MaxInterval: cfg.PollMaxInterval,
		Timeout:     cfg.RequestTimeout,
		Snapshots:   snapshots,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	notices, unsubscribe := client.Subscribe()
	defer unsubscribe()
	client.Start(ctx)
	defer client.Stop()

	go func() {
		for n := range notices {
			fmt.Printf("\n>> your turn in match %s\n", n.MatchID)
		}
	}()

	sh := &shell{client: client, out: os.Stdout}
	sh.exec(ctx, "show")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok || sh.exec(ctx, line) {
				return nil
			}
		}
	}
}
