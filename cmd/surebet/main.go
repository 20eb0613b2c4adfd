package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alejandrodnm/surebet/config"
	"github.com/alejandrodnm/surebet/internal/adapters/notify"
	"github.com/alejandrodnm/surebet/internal/adapters/scanapi"
	"github.com/alejandrodnm/surebet/internal/adapters/storage"
	"github.com/alejandrodnm/surebet/internal/catalog"
	"github.com/alejandrodnm/surebet/internal/domain"
	"github.com/alejandrodnm/surebet/internal/orchestrator"
	"github.com/alejandrodnm/surebet/internal/ports"
	"github.com/alejandrodnm/surebet/internal/web"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	serve := flag.Bool("serve", false, "start the local web API for the UI")
	sport := flag.String("sport", "", "scan a single sport by key (e.g. basketball_nba)")
	all := flag.Bool("all", false, "scan every active sport from the catalog")
	bookmakersCSV := flag.String("bookmakers", "", "comma-separated bookmaker keys (min 2)")
	props := flag.Bool("props", false, "include player prop markets")
	stake := flag.Float64("stake", 0, "bankroll for the stake breakdown (overrides config)")
	table := flag.Bool("table", false, "print the full opportunity table")
	validate := flag.Bool("validate", false, "print the per-outcome payout check for top opportunities")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	if *stake <= 0 {
		*stake = cfg.Scanner.DefaultStake
	}
	if !*props {
		*props = cfg.Scanner.IncludeProps
	}

	client := scanapi.NewClient(cfg.API.ScanBase)

	var cache ports.CatalogCache
	if cfg.Cache.DSN != "" {
		store, err := storage.NewCatalogStore(cfg.Cache.DSN)
		if err != nil {
			slog.Error("failed to open catalog cache", "err", err, "dsn", cfg.Cache.DSN)
			os.Exit(1)
		}
		defer store.Close()
		cache = store
	}
	catalogs := catalog.New(client, cache, cfg.SportsTTL(), cfg.BookmakersTTL())

	console := notify.NewConsole(*stake, *table, *validate)

	orchCfg := orchestrator.Config{
		OnSubScanError: orchestrator.SubScanPolicy(cfg.Scanner.OnSubScanError),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *serve {
		runServer(ctx, cfg, orchCfg, client, catalogs, console)
		return
	}

	bookmakers := splitCSV(*bookmakersCSV)

	switch {
	case *sport != "":
		if len(bookmakers) < 2 {
			slog.Error("at least 2 bookmakers are required", "got", len(bookmakers))
			os.Exit(1)
		}
		orch := orchestrator.New(orchCfg, client, console)
		if err := orch.ScanSingleSport(ctx, *sport, bookmakers, *props); err != nil {
			os.Exit(1)
		}

	case *all:
		if len(bookmakers) < 2 {
			slog.Error("at least 2 bookmakers are required", "got", len(bookmakers))
			os.Exit(1)
		}
		cat, err := catalogs.Sports(ctx)
		if err != nil {
			slog.Error("failed to fetch sports catalog", "err", err)
			os.Exit(1)
		}
		orch := orchestrator.New(orchCfg, client, console)
		if err := orch.ScanMultipleSports(ctx, activeSports(cat.Sports), bookmakers, *props); err != nil {
			os.Exit(1)
		}

	default:
		printCatalogs(ctx, catalogs)
	}
}

// runServer arranca el API local y el hub websocket hasta SIGINT/SIGTERM.
func runServer(ctx context.Context, cfg *config.Config, orchCfg orchestrator.Config, client *scanapi.Client, catalogs *catalog.Service, console *notify.Console) {
	hub := web.NewHub(func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, allowed := range cfg.Server.AllowedOrigins {
			if origin == allowed {
				return true
			}
		}
		return false
	})
	defer hub.Close()

	orch := orchestrator.New(orchCfg, client, console, hub)
	server := web.NewServer(orch, catalogs, hub)

	httpSrv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.Router(cfg.Server.AllowedOrigins),
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		_ = httpSrv.Shutdown(context.Background())
	}()

	slog.Info("surebet API listening", "addr", cfg.Server.Addr, "scan_base", cfg.API.ScanBase)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
	slog.Info("surebet stopped cleanly")
}

// printCatalogs lista deportes y casas disponibles para construir el
// comando de escaneo.
func printCatalogs(ctx context.Context, catalogs *catalog.Service) {
	cat, err := catalogs.Sports(ctx)
	if err != nil {
		slog.Error("failed to fetch sports catalog", "err", err)
		os.Exit(1)
	}
	bms, err := catalogs.Bookmakers(ctx)
	if err != nil {
		slog.Error("failed to fetch bookmakers catalog", "err", err)
		os.Exit(1)
	}

	fmt.Printf("sports (%d, credits left: %s):\n", len(cat.Sports), cat.RemainingCredits)
	for _, sp := range cat.Sports {
		fmt.Printf("  %-32s %s / %s\n", sp.Key, sp.Group, sp.Title)
	}
	fmt.Printf("\nbookmakers (%d):\n", len(bms))
	for _, bm := range bms {
		fmt.Printf("  %-20s %s\n", bm.Key, bm.Name)
	}
	fmt.Println("\nrun with -sport <key> -bookmakers a,b or -all -bookmakers a,b")
}

// activeSports filtra el catálogo a deportes activos.
func activeSports(sports []domain.Sport) []domain.Sport {
	out := make([]domain.Sport, 0, len(sports))
	for _, sp := range sports {
		if sp.Active {
			out = append(out, sp)
		}
	}
	return out
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
