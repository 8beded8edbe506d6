// Command timeline builds one artist timeline and prints it as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MintFaced/timeline/internal/app"
	"github.com/MintFaced/timeline/internal/config"
	"github.com/MintFaced/timeline/internal/domain"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	chain := flag.String("chain", cfg.DefaultChain, "Chain id")
	address := flag.String("address", "", "Wallet address or resolvable name")
	contracts := flag.String("contracts", "", "Comma-separated contract addresses")
	artist := flag.String("artist", "", "Display label for the subject")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall deadline")
	verbose := flag.Bool("v", false, "Log pipeline progress to stderr")

	flag.Parse()

	logger := log.New(os.Stderr, "[timeline] ", log.LstdFlags)

	if *address == "" && *contracts == "" {
		logger.Fatal("--address or --contracts is required")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	q := domain.Query{
		Chain:     *chain,
		Address:   strings.TrimSpace(*address),
		Contracts: splitList(*contracts),
		Artist:    *artist,
	}

	var pipelineLogger *log.Logger
	if *verbose {
		pipelineLogger = logger
	}
	if err := run(os.Stdout, cfg, q, *timeout, pipelineLogger); err != nil {
		logger.Fatal(err)
	}
}

// run builds one timeline and writes it to out. The archive connection is
// closed before it returns.
func run(out io.Writer, cfg *config.Config, q domain.Query, timeout time.Duration, logger *log.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	defer cancelTimeout()

	svc, cleanup, err := app.NewService(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	defer cleanup()

	result, err := svc.Build(ctx, q)
	if err != nil {
		return fmt.Errorf("build timeline: %w", err)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
