package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"droidcore/internal/actionlog"
	"droidcore/internal/attention"
	"droidcore/internal/cinematic"
	"droidcore/internal/config"
	"droidcore/internal/db"
	"droidcore/internal/eventstack"
	"droidcore/internal/httpapi"
	"droidcore/internal/metrics"
	"droidcore/internal/mood"
	"droidcore/internal/mqtt"
	"droidcore/internal/orchestrator"
	"droidcore/internal/perception"
	"droidcore/internal/profile"
	"droidcore/internal/sequence"
	"droidcore/internal/terminals"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	registry := profile.DefaultRegistry()
	names := make([]string, 0, len(registry))
	for _, p := range registry {
		names = append(names, p.Name)
	}
	cfg, err := config.LoadBehaviorServerConfig(names)
	if err != nil {
		logger.Error("load config failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store *db.Store
	if cfg.DBDSN != "" {
		store, err = db.New(ctx, cfg.DBDSN)
		if err != nil {
			logger.Error("connect db failed", "error", err)
			os.Exit(1)
		}
		defer store.Close()

		if err := store.Migrate(ctx); err != nil {
			logger.Error("migrate db failed", "error", err)
			os.Exit(1)
		}
	}

	m := metrics.Default()
	terminalRegistry := terminals.NewRegistry(cfg.TerminalTTL)
	hub := mqtt.NewHub(mqtt.HubConfig{
		BrokerURL:   cfg.MQTTBrokerURL,
		ClientID:    cfg.MQTTClientID,
		Username:    cfg.MQTTUsername,
		Password:    cfg.MQTTPassword,
		TopicPrefix: cfg.MQTTTopicPrefix,
		RobotID:     cfg.RobotID,
	}, terminalRegistry, logger)

	moodCfg := mood.DefaultConfig()
	moodCfg.TickInterval = cfg.MoodTick
	moods := mood.NewManager(moodCfg, hub, m, logger)

	profiles, err := profile.NewManager(profile.Config{Profiles: registry, Default: cfg.DefaultProfile}, hub, m, logger)
	if err != nil {
		logger.Error("init profiles failed", "error", err)
		os.Exit(1)
	}

	cinematics := cinematic.NewDispatcher(cinematic.DefaultCatalog(), profiles, hub, logger)
	events := eventstack.NewManager(eventstack.Config{Pace: cfg.EventPace, IdlePoll: cfg.EventIdlePoll}, profiles, moods, cinematics, m, logger)
	attentionLayer := attention.NewLayer(attention.Config{Hold: cfg.AttentionHold}, profiles, moods, hub, m, logger)
	detector := perception.NewDetector(perception.Config{
		Cooldown:      cfg.PerceptionCooldown,
		MinConfidence: cfg.PerceptionMinConf,
		Labels:        cfg.PerceptionLabels,
	}, attentionLayer, logger)

	var actionStore actionlog.Store
	if store != nil {
		actionStore = store
	}
	actions := actionlog.New(cfg.RecentActionsLimit, actionStore, logger)
	if err := actions.Load(ctx); err != nil {
		logger.Warn("load recent actions failed", "error", err)
	}

	svc := orchestrator.New(orchestrator.Deps{
		Moods:      moods,
		Profiles:   profiles,
		Events:     events,
		Attention:  attentionLayer,
		Cinematics: cinematics,
		Detector:   detector,
		Sequences:  sequence.NewLoader(cfg.SequencesDir),
		Actions:    actions,
		Terminals:  terminalRegistry,
	}, logger)

	if err := hub.Start(ctx, svc); err != nil {
		logger.Error("start mqtt hub failed", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(svc, promhttp.Handler(), logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Run(gctx)
	})
	g.Go(func() error {
		svc.RunHeartbeat(gctx, hub, cfg.HeartbeatInterval)
		return nil
	})
	g.Go(func() error {
		logger.Info("behavior server started", "addr", cfg.HTTPAddr, "robot_id", cfg.RobotID, "profile", profiles.Name())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("behavior server exited", "error", err)
		os.Exit(1)
	}
}
