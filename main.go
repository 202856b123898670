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
	"syscall"

	"golang.org/x/sync/errgroup"

	"whatupb-gate/auditlog"
	"whatupb-gate/captcha"
	"whatupb-gate/config"
	"whatupb-gate/moderation"
	"whatupb-gate/policy"
	"whatupb-gate/ratelimit"
	"whatupb-gate/server"
	"whatupb-gate/store"
)

var version = "dev"

func buildPipeline(cfg *config.Config, st store.MessageStore, sink auditlog.Sink, dryRun bool) *policy.Pipeline {
	blocklist := moderation.NewBlocklist()

	var detector *moderation.LanguageDetector
	if cfg.Moderation.Perspective.DetectLanguage {
		detector = moderation.NewLanguageDetector()
	}
	scorer := moderation.NewPerspectiveClient(&cfg.Moderation.Perspective, detector)
	moderator := moderation.NewModerator(blocklist, scorer)

	verifier := captcha.NewVerifier(&cfg.Captcha)
	limiter := ratelimit.NewLimiter(&cfg.RateLimit, nil, nil)

	gates := []policy.Gate{
		policy.NewParamsGate(),
		policy.NewCaptchaGate(verifier),
		policy.NewIdentityGate(cfg.Identity.HashSalt),
		policy.NewRateLimitGate(limiter),
		policy.NewModerationGate(moderator),
	}

	return policy.NewPipeline(cfg, gates, st, sink, dryRun)
}

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	configPath := flag.String("config", "./config.toml", "Path to the configuration file.")
	useDefaults := flag.Bool("use-defaults", false, "Run with internal defaults if the config file is missing.")
	validateConfig := flag.Bool("validate", false, "Validate the configuration file and exit.")
	dryRun := flag.Bool("dry-run", false, "Log what would be rejected without actually rejecting it.")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}
	if *validateConfig {
		if _, _, err := config.Load(*configPath, false); err != nil {
			fmt.Fprintf(os.Stderr, "Configuration is INVALID: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Configuration is VALID.")
		return
	}
	if err := runApp(*configPath, *useDefaults, *dryRun); err != nil {
		fmt.Fprintf(os.Stderr, "Application run failed: %v\n", err)
		os.Exit(1)
	}
}

func runApp(configPath string, useDefaults, dryRun bool) error {
	cfg, defaultsUsed, err := config.Load(configPath, useDefaults)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.Level.ToSlogLevel()}))
	slog.SetDefault(logger)
	if dryRun {
		slog.Warn("Admission gate is running in DRY-RUN mode.")
	}
	slog.Info("Admission gate starting up",
		"version", version, "config_path", configPath, "using_defaults", defaultsUsed)

	db, err := store.Open(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	st := store.NewBadgerStore(db, cfg.DB.SenderHourlyCap)
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("Failed to close message store", "error", err)
		}
	}()

	for _, recipientID := range cfg.DB.SeedRecipients {
		if err := st.AddRecipient(context.Background(), recipientID); err != nil {
			return fmt.Errorf("failed to seed recipient %q: %w", recipientID, err)
		}
	}

	sink := auditlog.NewBadgerSink(db, &cfg.Audit)
	defer sink.Close() // drain before the shared db closes

	srv := server.New(buildPipeline(cfg, st, sink, dryRun), cfg.Identity.HeaderOrder)

	httpSrv := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The store and sink survive reloads; only the gates are rebuilt.
	onReload := func(newCfg *config.Config) {
		slog.Info("Reloading admission pipeline with new configuration...")
		srv.Swap(buildPipeline(newCfg, st, sink, dryRun), newCfg.Identity.HeaderOrder)
		slog.Info("Admission pipeline reloaded successfully.")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Listening for submissions", "addr", cfg.Server.ListenAddr)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		config.StartWatcher(gctx, configPath, onReload, 0)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Received shutdown signal, shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
