package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/hattown/internal/area"
	"github.com/vovakirdan/hattown/internal/broker"
	"github.com/vovakirdan/hattown/internal/config"
	"github.com/vovakirdan/hattown/internal/profile"
	"github.com/vovakirdan/hattown/internal/session"
	"github.com/vovakirdan/hattown/internal/storage"
	"github.com/vovakirdan/hattown/internal/transport/ws"
)

var (
	flagAddr       string
	flagProfileURL string
	flagSeed       int64
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the hattown websocket server",
	Long: `Start the websocket server hosting the configured areas.

Clients connect to /ws?player=<name>, subscribe to areas, and send
commands. Every authoritative change is pushed to subscribers as a full
area snapshot.

Settlement:
  - If --profile-url (or HATTOWN_PROFILE_URL) is set, purchases and trades
    settle against that profile service before session state changes.
  - Without it, sessions run but nothing is charged or swapped.

Examples:
  hattownd serve
  hattownd serve --addr :9000
  hattownd serve --profile-url http://localhost:8081 --db ./history.db`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", ":8080", "HTTP listen address (host:port)")
	serveCmd.Flags().StringVar(&flagProfileURL, "profile-url", "", "Profile service base URL (empty = HATTOWN_PROFILE_URL)")
	serveCmd.Flags().Int64Var(&flagSeed, "seed", 0, "RNG seed for pack drops (0 = random based on time)")
}

func runServe(_ *cobra.Command, _ []string) {
	// Optional .env for local development; a missing file is fine.
	_ = godotenv.Load()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "hattownd",
	})

	cfg, err := config.Load(flagConfigPath)
	if err != nil {
		logger.Fatal("cannot load world config", "error", err)
	}

	// History is best effort: the server still runs without it.
	var store *storage.Store
	if flagDBPath != "" {
		store, err = storage.Open(flagDBPath)
		if err != nil {
			logger.Warn("session history disabled", "error", err)
			store = nil
		} else {
			defer store.Close()
		}
	}

	profileURL := flagProfileURL
	if profileURL == "" {
		profileURL = os.Getenv("HATTOWN_PROFILE_URL")
	}
	var settler area.Settler
	if profileURL != "" {
		settler = profile.NewClient(profileURL, logger)
		logger.Info("settling against profile service", "url", profileURL)
	} else {
		logger.Warn("no profile service configured, purchases and trades will not settle")
	}

	b := broker.New()
	registry := area.NewRegistry()
	defer registry.Close()

	for _, ac := range cfg.Areas {
		a := area.New(areaConfig(ac, cfg.Packs), b, logger)
		if settler != nil {
			a.SetSettler(settler)
		}
		if store != nil {
			a.SetResultSaver(store)
		}
		if err := registry.Register(a); err != nil {
			logger.Fatal("cannot register area", "area", ac.ID, "error", err)
		}
		logger.Info("area registered", "area", ac.ID, "kind", ac.Kind)
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewHandler(registry, b, logger))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              flagAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", flagAddr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", "error", err)
		}
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}
}

// areaConfig maps one declared area plus the shared pack catalog into the
// runtime area configuration.
func areaConfig(ac config.AreaConfig, packs []config.PackConfig) area.Config {
	cfg := area.Config{
		ID:   ac.ID,
		Seed: flagSeed,
	}
	switch ac.Kind {
	case "TRADE":
		cfg.Kind = session.KindTrade
	default:
		cfg.Kind = session.KindPurchase
		for _, p := range packs {
			pack := area.Pack{Name: p.Name, Price: p.Price}
			for _, d := range p.Drops {
				pack.Drops = append(pack.Drops, area.Drop{Hat: d.Hat, Weight: d.Weight})
			}
			cfg.Packs = append(cfg.Packs, pack)
		}
	}
	return cfg
}
