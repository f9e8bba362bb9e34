package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"linked-go/config"
	"linked-go/internal/auth"
	"linked-go/internal/logging"
)

func main() {
	_ = godotenv.Load()

	issueToken := flag.String("issue-token", "", "print an access token for the given player id and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.Environment, cfg.LogLevel)
	tokens := auth.NewService([]byte(cfg.JWTSecret), cfg.JWTExpiration)

	if *issueToken != "" {
		token, err := tokens.IssueToken(*issueToken)
		if err != nil {
			logger.Error("failed to issue token", "error", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, tokens); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}
