package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Application
	"github.com/dreschagin/node-health-monitor/internal/application/port"
	"github.com/dreschagin/node-health-monitor/internal/application/usecase"

	// Infrastructure
	"github.com/dreschagin/node-health-monitor/internal/infrastructure/collector"
	"github.com/dreschagin/node-health-monitor/internal/infrastructure/cooldown"
	"github.com/dreschagin/node-health-monitor/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/node-health-monitor/internal/infrastructure/notifier"
	"github.com/dreschagin/node-health-monitor/internal/infrastructure/observability/cloudwatch"
	remediationInfra "github.com/dreschagin/node-health-monitor/internal/infrastructure/remediation"

	// Interfaces
	httpInterface "github.com/dreschagin/node-health-monitor/internal/interfaces/http"
	"github.com/dreschagin/node-health-monitor/internal/interfaces/http/handler"
	"github.com/dreschagin/node-health-monitor/internal/interfaces/http/middleware"

	// Shared
	"github.com/dreschagin/node-health-monitor/pkg/config"
	"github.com/dreschagin/node-health-monitor/pkg/logger"
	"github.com/dreschagin/node-health-monitor/pkg/metrics"
)

func main() {
	// 1. Загружаем конфигурацию процесса
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Инициализируем logger
	log := logger.New(cfg.LogLevel)
	log.Info("Starting Node Health Monitor")

	// 3. Загружаем fleet-конфигурацию (узлы, пороги, нотификаторы)
	fleet, err := config.LoadFleet(cfg.FleetPath)
	if err != nil {
		log.Error("Failed to load fleet config", err, "path", cfg.FleetPath)
		os.Exit(1)
	}
	for _, warning := range fleet.Warnings() {
		log.Warn("Fleet config warning", "detail", warning)
	}
	log.Info("Fleet config loaded",
		"path", cfg.FleetPath,
		"nodes", len(fleet.Nodes),
		"enabled", len(fleet.EnabledNodes()))

	// 4. Dependency Injection - Infrastructure Layer

	// Cooldown store: Redis для нескольких инстансов, иначе in-memory
	var cooldownStore port.CooldownStore
	if cfg.Redis.Enabled {
		redisStore, err := cooldown.NewRedisStore(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Error("Failed to connect to Redis", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		cooldownStore = redisStore
		log.Info("Redis cooldown store connected", "host", cfg.Redis.Host)
	} else {
		cooldownStore = cooldown.NewMemoryStore()
	}

	// Нотификаторы из fleet-конфигурации
	notifiers := notifier.Build(fleet.Notifiers)
	if cfg.NATS.Enabled {
		natsNotifier, err := notifier.NewNATSNotifier(cfg.NATS.URL, cfg.NATS.SubjectPrefix, log)
		if err != nil {
			log.Error("Failed to connect to NATS", err)
			os.Exit(1)
		}
		defer natsNotifier.Close()
		notifiers = append(notifiers, natsNotifier)
	}
	log.Info("Notifiers configured", "count", len(notifiers))

	// CloudWatch exporter (опционально)
	var exporter port.MetricsExporter
	if cfg.CloudWatch.Enabled {
		cwExporter, err := cloudwatch.NewExporter(context.Background(), cloudwatch.ExporterConfig{
			Namespace:       cfg.CloudWatch.Namespace,
			Region:          cfg.CloudWatch.Region,
			Endpoint:        cfg.CloudWatch.Endpoint,
			AccessKeyID:     cfg.CloudWatch.AccessKeyID,
			SecretAccessKey: cfg.CloudWatch.SecretAccessKey,
		})
		if err != nil {
			log.Error("Failed to initialize CloudWatch exporter", err)
			os.Exit(1)
		}
		exporter = cwExporter
		log.Info("CloudWatch exporter enabled", "namespace", cfg.CloudWatch.Namespace)
	}

	// WebSocket Hub
	hub := websocket.NewHub(log)

	// Prometheus self-metrics
	selfMetrics := metrics.New()

	// 5. Dependency Injection - Application Layer (Use Cases)

	dispatcher := usecase.NewAlertDispatcher(
		cooldownStore,
		notifiers,
		fleet.AlertCooldown(),
		log,
		selfMetrics,
	)

	executor := remediationInfra.NewExecutor(fleet.Remediate.DryRun, log)

	checkClusterUC := usecase.NewCheckClusterUseCase(
		fleet,
		collector.New,
		dispatcher,
		executor,
		hub,
		exporter,
		log,
		selfMetrics,
	)

	// 6. Dependency Injection - Interfaces Layer (HTTP Handlers)

	authConfig := middleware.AuthConfig{
		Enabled:     cfg.Security.AuthEnabled,
		BearerToken: cfg.Security.AuthToken,
	}

	healthAPIHandler := handler.NewHealthAPIHandler(checkClusterUC, log)
	websocketHandler := handler.NewWebSocketHandler(hub, checkClusterUC, cfg.Security.AllowedOrigins, authConfig, log)

	router := httpInterface.NewRouter(
		healthAPIHandler,
		websocketHandler,
		cfg.Security,
		cfg.RateLimit,
		selfMetrics,
		log,
	)

	// 7. Запускаем фоновые процессы

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Запускаем WebSocket hub
	go hub.Run()

	// Запускаем цикл проверок кластера
	go func() {
		interval := fleet.CheckInterval()
		log.Info("Cluster check loop started", "interval", interval.String())

		// Первый проход сразу, не дожидаясь тика
		if _, err := checkClusterUC.Execute(ctx); err != nil {
			log.Error("Cluster check failed", err)
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := checkClusterUC.Execute(ctx); err != nil {
					log.Error("Cluster check failed", err)
				}
			case <-ctx.Done():
				log.Info("Cluster check loop stopped")
				return
			}
		}
	}()

	// 8. Настраиваем HTTP сервер

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", err)
			os.Exit(1)
		}
	}()

	// 9. Ожидаем сигнал для graceful shutdown

	<-sigChan
	log.Info("Shutdown signal received, starting graceful shutdown...")

	// Останавливаем цикл проверок
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", err)
	}

	log.Info("Server stopped gracefully")
}
