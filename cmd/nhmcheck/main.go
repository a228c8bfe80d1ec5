// nhmcheck выполняет разовую проверку кластера из командной строки.
// В отличие от сервера не поднимает HTTP API и не шлет уведомления:
// результат печатается в stdout, код выхода отражает статус кластера.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dreschagin/node-health-monitor/internal/application/dto"
	"github.com/dreschagin/node-health-monitor/internal/application/usecase"
	"github.com/dreschagin/node-health-monitor/internal/domain/health"
	"github.com/dreschagin/node-health-monitor/internal/infrastructure/collector"
	"github.com/dreschagin/node-health-monitor/pkg/config"
	"github.com/dreschagin/node-health-monitor/pkg/logger"
)

// Коды выхода совпадают с семантикой мониторинговых утилит:
// 0 — кластер здоров, 1 — есть критичные узлы, 2 — есть предупреждения.
const (
	exitOK       = 0
	exitCritical = 1
	exitWarning  = 2
)

func main() {
	var (
		configPath = flag.String("config", "", "path to the fleet config file (default: nhm.yaml, nhm.yml, config.yaml)")
		outputJSON = flag.Bool("json", false, "print the full cluster snapshot as JSON")
		watch      = flag.Bool("watch", false, "re-run the check continuously")
		interval   = flag.Duration("interval", 30*time.Second, "interval between checks in watch mode")
		logLevel   = flag.String("log-level", "warn", "log level (debug, info, warn, error)")
	)
	flag.Parse()

	log := logger.New(*logLevel)

	fleet, err := loadFleet(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nhmcheck: %v\n", err)
		os.Exit(exitCritical)
	}
	for _, warning := range fleet.Warnings() {
		log.Warn("Fleet config warning", "detail", warning)
	}

	uc := usecase.NewCheckClusterUseCase(fleet, collector.New, nil, nil, nil, nil, log, nil)

	if *watch {
		runWatch(uc, *interval, *outputJSON)
		return
	}

	cluster, err := uc.Execute(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "nhmcheck: %v\n", err)
		os.Exit(exitCritical)
	}

	printCluster(os.Stdout, cluster, *outputJSON)
	os.Exit(exitCode(cluster.Status()))
}

// loadFleet ищет конфигурацию по явному пути или в стандартных местах.
func loadFleet(path string) (*config.FleetConfig, error) {
	if path != "" {
		return config.LoadFleet(path)
	}

	for _, candidate := range []string{"nhm.yaml", "nhm.yml", "config.yaml"} {
		if _, err := os.Stat(candidate); err == nil {
			return config.LoadFleet(candidate)
		}
	}

	return nil, fmt.Errorf("no configuration file found (tried nhm.yaml, nhm.yml, config.yaml); use -config")
}

func runWatch(uc *usecase.CheckClusterUseCase, interval time.Duration, asJSON bool) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fmt.Printf("Watching cluster health (interval: %s, Ctrl+C to stop)\n\n", interval)

	for {
		cluster, err := uc.Execute(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "nhmcheck: %v\n", err)
		} else {
			printCluster(os.Stdout, cluster, asJSON)
		}

		select {
		case <-ticker.C:
			fmt.Println()
		case <-sigChan:
			fmt.Println("\nStopped watching.")
			return
		}
	}
}

func printCluster(w io.Writer, cluster *health.ClusterHealth, asJSON bool) {
	if asJSON {
		data, err := json.MarshalIndent(dto.FromClusterHealth(cluster), "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "nhmcheck: marshal: %v\n", err)
			return
		}
		fmt.Fprintln(w, string(data))
		return
	}

	printSummary(w, cluster)
	printTable(w, cluster)
}

func printSummary(w io.Writer, cluster *health.ClusterHealth) {
	fmt.Fprintf(w, "Overall status: %s\n", cluster.Status())
	fmt.Fprintf(w, "Nodes: %d total, %d healthy, %d warning, %d critical\n",
		len(cluster.Nodes), cluster.HealthyCount(), cluster.WarningCount(), cluster.CriticalCount())
	fmt.Fprintf(w, "Last check: %s\n", cluster.Timestamp.Format("2006-01-02 15:04:05"))

	alerts := cluster.AllAlerts()
	if len(alerts) > 0 {
		fmt.Fprintf(w, "\nAlerts (%d):\n", len(alerts))
		shown := alerts
		if len(shown) > 5 {
			shown = shown[:5]
		}
		for _, alert := range shown {
			fmt.Fprintf(w, "  - [%s] %s\n", alert.Node, alert.Message)
		}
		if len(alerts) > 5 {
			fmt.Fprintf(w, "  ... and %d more\n", len(alerts)-5)
		}
	}
	fmt.Fprintln(w)
}

func printTable(w io.Writer, cluster *health.ClusterHealth) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tSTATUS\tMEMORY\tDISK\tLOAD\tSERVICES\tPLATFORM")

	for _, node := range cluster.Nodes {
		if !node.Reachable {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\t-\t%s\n",
				node.Name, statusLabel(node.Status()), node.Platform)
			continue
		}

		fmt.Fprintf(tw, "%s\t%s\t%.1f%%\t%.1f%%\t%.2f\t%s\t%s\n",
			node.Name,
			statusLabel(node.Status()),
			node.MemoryPercent,
			node.DiskPercent,
			node.LoadAverage[0],
			servicesLabel(node.Services),
			node.Platform,
		)
	}

	tw.Flush()
}

func statusLabel(status health.HealthStatus) string {
	return strings.ToUpper(status.String())
}

func servicesLabel(services []health.ServiceStatus) string {
	if len(services) == 0 {
		return "-"
	}
	running := 0
	for _, svc := range services {
		if svc.Running {
			running++
		}
	}
	return fmt.Sprintf("%d/%d", running, len(services))
}

func exitCode(status health.HealthStatus) int {
	switch status {
	case health.StatusCritical, health.StatusUnreachable:
		return exitCritical
	case health.StatusWarning:
		return exitWarning
	default:
		return exitOK
	}
}
