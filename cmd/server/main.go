package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geowarn/geowarn/internal/channel"
	"github.com/geowarn/geowarn/internal/config"
	"github.com/geowarn/geowarn/internal/dispatch"
	"github.com/geowarn/geowarn/internal/escalation"
	"github.com/geowarn/geowarn/internal/web"
)

func main() {
	// --- 1. Load Config ---
	cfgMgr, err := config.NewManager("config.json")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := cfgMgr.Get()

	// --- 2. Setup Logger ---
	setupLogger(cfg.System.LogLevel)
	slog.Info("starting geowarn", "bind", cfg.System.BindAddress)
	if cfg.Auth.APITokenHash == "" {
		slog.Warn("api auth disabled: no token hash configured")
	}

	// --- 3. Channel Adapters & Dispatcher ---
	registry := channel.BuildRegistry(
		channel.NewEmailAdapter(
			cfg.Channels.Email.Host,
			cfg.Channels.Email.Port,
			cfg.Channels.Email.Username,
			cfg.Channels.Email.Password,
			cfg.Channels.Email.From,
			cfg.Channels.Email.RatePerMinute,
		),
		channel.NewSMSAdapter(
			cfg.Channels.SMS.GatewayURL,
			cfg.Channels.SMS.APIKey,
			cfg.Channels.SMS.From,
			cfg.Channels.SMS.RatePerMinute,
		),
		channel.NewWebhookAdapter(
			time.Duration(cfg.Channels.Webhook.TimeoutSeconds)*time.Second,
			cfg.Channels.Webhook.RatePerMinute,
		),
	)
	dispatcher := dispatch.New(registry, cfg.System.DispatchWorkers)
	prefs := dispatch.NewPreferenceStore()

	// --- 4. Escalation Manager & Scheduler ---
	policies := escalation.NewPolicyRegistry(escalation.TimeoutOverrides(cfg), escalation.AutoEscalateOverrides(cfg))
	directory := escalation.DirectoryFromConfig(cfg)
	store := escalation.NewStore()
	manager := escalation.NewManager(policies, directory, store, dispatcher, prefs)

	scheduler := escalation.NewScheduler(manager, cfgMgr)
	scheduler.Start()

	// --- 5. HTTP Server ---
	stopCh := make(chan struct{})
	router := web.NewRouter(cfgMgr, manager, dispatcher, prefs)
	currentAddr := cfg.System.BindAddress
	srv := &http.Server{
		Addr:    currentAddr,
		Handler: router,
	}

	go func() {
		slog.Info("geowarn is running", "address", currentAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// --- 6. Watch for bind address changes ---
	bindChange := cfgMgr.Subscribe()
	go func() {
		for {
			select {
			case <-stopCh:
				return
			case <-bindChange:
				newCfg := cfgMgr.Get()
				if newCfg.System.BindAddress != currentAddr {
					slog.Info("bind address changed, restarting listener",
						"old", currentAddr, "new", newCfg.System.BindAddress)
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					srv.Shutdown(ctx)
					cancel()
					currentAddr = newCfg.System.BindAddress
					srv = &http.Server{
						Addr:    currentAddr,
						Handler: router,
					}
					go func() {
						slog.Info("geowarn is running", "address", currentAddr)
						if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
							slog.Error("server error", "error", err)
						}
					}()
				}
			}
		}
	}()

	// --- 7. Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("received shutdown signal", "signal", sig)

	close(stopCh)
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}

	slog.Info("geowarn stopped gracefully")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))
}
