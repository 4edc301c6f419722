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

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/geospawn/internal/api"
	"github.com/udisondev/geospawn/internal/config"
	"github.com/udisondev/geospawn/internal/db"
	"github.com/udisondev/geospawn/internal/model"
	"github.com/udisondev/geospawn/internal/pokeapi"
	"github.com/udisondev/geospawn/internal/session"
	"github.com/udisondev/geospawn/internal/spawn"
)

const (
	ConfigPath      = "config/geospawn.yaml"
	shutdownTimeout = 10 * time.Second
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load config first to determine log level
	cfgPath := ConfigPath
	if p := os.Getenv("GEOSPAWN_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	slog.Info("geospawn starting",
		"log_level", cfg.LogLevel,
		"addr", cfg.Addr(),
		"pokeapi", cfg.PokeAPI.BaseURL,
		"database", cfg.Database.Enabled)

	var (
		species pokeapi.SpeciesStore = pokeapi.NewMemoryStore()
		catches session.CatchStore   = session.NewMemoryCatches()
	)
	if cfg.Database.Enabled {
		database, err := db.New(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()
		slog.Info("database connected")

		if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		slog.Info("database migrations applied")

		species = db.NewSpeciesRepository(database.Pool())
		catches = db.NewCatchRepository(database.Pool())
	}

	client := pokeapi.NewClient(cfg.PokeAPI.BaseURL, cfg.PokeAPI.Timeout)
	lookup := pokeapi.NewCachedLookup(client, species)

	sessions := session.NewManager(sessionConfig(cfg), lookup, catches)
	defer sessions.CloseAll()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewRouter(sessions, client),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting session reaper", "interval", cfg.Session.ReapInterval)
		if err := sessions.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("session reaper: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("starting http server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		slog.Info("http server stopped")
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("closing sessions", "open", sessions.Count())
	return nil
}

// sessionConfig maps the file config onto session and scheduler parameters.
func sessionConfig(cfg config.GeoSpawn) session.Config {
	return session.Config{
		Spawn: spawn.Config{
			WarmUp:        cfg.Spawn.WarmUp,
			Interval:      cfg.Spawn.Interval,
			MaxPopulation: cfg.Spawn.MaxPopulation,
			Spread:        cfg.Spawn.Spread,
			CatalogMin:    cfg.Spawn.CatalogMin,
			CatalogMax:    cfg.Spawn.CatalogMax,
		},
		MinDistance:  cfg.Location.MinDistance,
		Fallback:     model.NewLocationFix(cfg.Location.FallbackLatitude, cfg.Location.FallbackLongitude),
		IdleTimeout:  cfg.Session.IdleTimeout,
		ReapInterval: cfg.Session.ReapInterval,
		CatchRadius:  cfg.Session.CatchRadius,
	}
}
