// Command fleetcron is the agent binary: no args runs the main loop;
// reload/refresh and reload-config/rc insert fleet-wide commands and exit.
// Grounded on the teacher's cmd/scheduler/main.go wiring shape (config
// load, logger, signal context, db connect, metrics/health registration,
// background tasks, graceful shutdown) plus spf13/cobra for subcommands.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/kpopdotlink/fleetcron/config"
	"github.com/kpopdotlink/fleetcron/internal/adminhttp"
	"github.com/kpopdotlink/fleetcron/internal/agent"
	"github.com/kpopdotlink/fleetcron/internal/capath"
	"github.com/kpopdotlink/fleetcron/internal/domain"
	"github.com/kpopdotlink/fleetcron/internal/health"
	"github.com/kpopdotlink/fleetcron/internal/httpstep"
	fleetlog "github.com/kpopdotlink/fleetcron/internal/log"
	"github.com/kpopdotlink/fleetcron/internal/lockfile"
	"github.com/kpopdotlink/fleetcron/internal/machineid"
	"github.com/kpopdotlink/fleetcron/internal/metrics"
	"github.com/kpopdotlink/fleetcron/internal/store/mongodb"
	"github.com/kpopdotlink/fleetcron/internal/watcher"
)

// exit codes per spec.md §6.
const (
	exitOK             = 0
	exitConfigError    = 1
	exitNoAvailableSlot = 2
)

func fleetcronDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".fleetcron")
}

func main() {
	root := &cobra.Command{
		Use:   "fleetcron",
		Short: "Leaderless distributed cron agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent()
		},
	}

	root.AddCommand(
		newReloadCmd("reload", "refresh", domain.CommandReloadJobs),
		newReloadCmd("reload-config", "rc", domain.CommandReloadConfig),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfigError)
	}
}

func newReloadCmd(use, alias string, cmdType domain.CommandType) *cobra.Command {
	return &cobra.Command{
		Use:     use + " [target]",
		Aliases: []string{alias},
		Short:   fmt.Sprintf("insert a fleet-wide %s command", cmdType),
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := domain.TargetAll
			if len(args) == 1 {
				target = args[0]
			}
			return insertCommand(cmdType, target)
		},
	}
}

func insertCommand(cmdType domain.CommandType, target string) error {
	cfg, err := config.Load()
	if err != nil {
		os.Exit(exitConfigError)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongodb.Connect(ctx, cfg.MongoURI)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(exitConfigError)
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.DBName)
	if _, err := db.Collection("commands").InsertOne(ctx, domain.Command{
		Type:      cmdType,
		Target:    target,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return fmt.Errorf("insert command: %w", err)
	}

	fmt.Printf("inserted %s for target %q\n", cmdType, target)
	return nil
}

func runAgent() error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(exitConfigError)
	}

	logger := fleetlog.New(cfg.Env, os.Stdout)

	dir := fleetcronDir()
	lock, err := lockfile.Acquire(filepath.Join(dir, "agent.lock"))
	if err != nil {
		logger.Error("another agent instance is already running on this machine", "error", err)
		os.Exit(exitConfigError)
	}
	defer lock.Release()

	machineID, err := machineid.Load(dir)
	if err != nil {
		logger.Error("load machine id", "error", err)
		os.Exit(exitConfigError)
	}
	hostname, _ := os.Hostname()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := mongodb.Connect(ctx, cfg.MongoURI)
	if err != nil {
		logger.Error("connect mongo", "error", err)
		os.Exit(exitConfigError)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.DBName)
	gateway := mongodb.New(db, cfg.OrderField, logger)
	if err := gateway.EnsureIndexes(ctx); err != nil {
		logger.Error("ensure indexes", "error", err)
		os.Exit(exitConfigError)
	}

	metrics.Register()
	metrics.AgentStartTime.Set(float64(time.Now().Unix()))
	checker := health.NewChecker(mongodb.Pinger{Client: client}, logger, prometheus.DefaultRegisterer)

	tlsConfig, err := capath.Resolve(cfg.CAFile)
	if err != nil {
		logger.Error("resolve ca bundle", "error", err)
		os.Exit(exitConfigError)
	}
	runner := httpstep.NewRunner(tlsConfig, cfg.CAFile, logger)

	cfgStore := config.NewStore(cfg)
	ag := agent.New(cfgStore, gateway, runner, machineID, hostname, logger)

	if _, err := gateway.EnsureMachine(ctx, machineID, hostname); err != nil {
		logger.Error("ensure machine", "error", err)
		os.Exit(exitConfigError)
	}
	if exitEarlyOnFullFleet(ctx, gateway, machineID, cfg.MaxActiveMachines(), logger) {
		os.Exit(exitNoAvailableSlot)
	}

	watch := watcher.New(gateway, machineID, ag.JobIndex(), ag, logger)
	go watch.Run(ctx)

	adminSrv := adminServer(cfg.AdminAddr, logger, checker)
	go func() {
		logger.Info("admin http server started", "addr", cfg.AdminAddr)
		if err := adminSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("admin http server", "error", err)
		}
	}()

	err = ag.Run(ctx)

	stop()
	metrics.AgentShutdownsTotal.Inc()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutErr := adminSrv.Shutdown(shutdownCtx); shutErr != nil {
		logger.Error("admin http server shutdown", "error", shutErr)
	}

	logger.Info("agent shut down")
	if err != nil {
		return err
	}
	return nil
}

// exitEarlyOnFullFleet refuses to start when this machine's fleet position
// already exceeds the configured cap, mirroring the original agent's "no
// available slot" exit rather than spinning idle forever (spec §6).
func exitEarlyOnFullFleet(ctx context.Context, gateway interface {
	ListMachinesSorted(ctx context.Context) ([]domain.Machine, error)
}, machineID string, cap int, logger *slog.Logger) bool {
	if cap <= 0 {
		return false
	}
	machines, err := gateway.ListMachinesSorted(ctx)
	if err != nil {
		return false
	}
	position, _, ok := domain.SortedMachines(machines).PositionOf(machineID)
	if !ok || position <= cap {
		return false
	}
	logger.Error("no available slot: fleet position exceeds cap", "position", position, "cap", cap)
	return true
}

func adminServer(addr string, logger *slog.Logger, checker *health.Checker) *http.Server {
	return &http.Server{
		Addr:    addr,
		Handler: adminhttp.NewRouter(logger, checker),
	}
}
