package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/vaultfolio/vaultfolio/internal/api"
	"github.com/vaultfolio/vaultfolio/internal/config"
	"github.com/vaultfolio/vaultfolio/internal/credentials"
	"github.com/vaultfolio/vaultfolio/internal/custody"
	"github.com/vaultfolio/vaultfolio/internal/domain"
	"github.com/vaultfolio/vaultfolio/internal/market"
	"github.com/vaultfolio/vaultfolio/internal/report"
	"github.com/vaultfolio/vaultfolio/internal/store"
	"github.com/vaultfolio/vaultfolio/internal/worker"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "vaultfolio",
		Usage: "custody portfolio reporting service",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API and background price refresh",
				Action: runServe,
			},
			{
				Name:  "issue-link-code",
				Usage: "mint a one-time code binding a vault account to an identity",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "workspace", Required: true, Usage: "workspace id (primary or secondary)"},
					&cli.StringFlag{Name: "account", Required: true, Usage: "vault account id"},
				},
				Action: runIssueLinkCode,
			},
			{
				Name:  "list-accounts",
				Usage: "page through vault accounts in one workspace",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "workspace", Required: true, Usage: "workspace id (primary or secondary)"},
					&cli.IntFlag{Name: "page-size", Value: 50, Usage: "accounts per page"},
				},
				Action: runListAccounts,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runServe(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	migrationsSub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("creating migrations sub-fs: %w", err)
	}
	if err := store.RunMigrations(ctx, pool, migrationsSub); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	linkRepo := store.NewPgLinkRepository(pool)
	overrideRepo := store.NewPgOverrideRepository(pool)

	// Custody clients, one per workspace. Disabled workspaces keep a client
	// so reports can name them in diagnostics.
	creds := credentials.Resolve(cfg.Workspaces)
	clients := make(map[domain.Workspace]report.CustodyClient, len(creds))
	for ws, wc := range creds {
		clients[ws] = custody.NewClient(wc)
	}

	marketSvc := market.NewService(market.NewClient(cfg.MarketDataURL))
	reportSvc := report.NewService(clients, marketSvc, overrideRepo, cfg.FetchConcurrency)

	priceWorker := worker.NewPriceWorker(marketSvc, overrideRepo, cfg.PriceRefreshInterval)
	go priceWorker.Run(ctx)

	if cfg.AdminAPIKey == "" {
		slog.Warn("ADMIN_API_KEY not set, override endpoint is unprotected")
	}

	handler := api.NewHandler(reportSvc, linkRepo, overrideRepo)
	srv := api.NewServer(cfg.HTTPPort, handler, cfg.AdminAPIKey)

	go func() {
		slog.Info("HTTP server listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

func runIssueLinkCode(c *cli.Context) error {
	ws, err := parseWorkspace(c.String("workspace"))
	if err != nil {
		return err
	}

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	pool, err := store.Connect(c.Context, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	code, err := store.NewPgLinkRepository(pool).IssueLinkCode(
		c.Context, ws, c.String("account"), cfg.LinkCodeTTL)
	if err != nil {
		return err
	}

	fmt.Printf("link code: %s (valid for %s)\n", code, cfg.LinkCodeTTL)
	return nil
}

func runListAccounts(c *cli.Context) error {
	ws, err := parseWorkspace(c.String("workspace"))
	if err != nil {
		return err
	}

	cfg := config.Load()
	var client *custody.Client
	for _, wc := range cfg.Workspaces {
		if wc.ID != ws {
			continue
		}
		resolved, err := credentials.ResolveWorkspace(wc)
		if err != nil {
			return fmt.Errorf("resolving %s credentials: %w", ws, err)
		}
		client = custody.NewClient(resolved)
	}
	if client == nil || !client.Enabled() {
		return fmt.Errorf("workspace %s is not configured", ws)
	}

	cursor := ""
	for {
		page, err := client.ListVaultAccounts(c.Context, c.Int("page-size"), cursor)
		if err != nil {
			return err
		}
		for _, account := range page.Accounts {
			fmt.Printf("%s\t%s\t%d assets\n", account.ID, account.Name, len(account.Assets))
		}
		if page.Next == "" {
			return nil
		}
		cursor = page.Next
	}
}

func parseWorkspace(s string) (domain.Workspace, error) {
	for _, ws := range domain.Workspaces {
		if string(ws) == s {
			return ws, nil
		}
	}
	return "", fmt.Errorf("unknown workspace %q", s)
}
