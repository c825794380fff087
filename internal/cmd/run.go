package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"jordanella.com/reward-pinger/internal/accounts"
	"jordanella.com/reward-pinger/internal/api"
	"jordanella.com/reward-pinger/internal/bot"
	"jordanella.com/reward-pinger/internal/config"
	"jordanella.com/reward-pinger/internal/database"
	"jordanella.com/reward-pinger/internal/events"
	"jordanella.com/reward-pinger/internal/lock"
	"jordanella.com/reward-pinger/internal/logging"
	"jordanella.com/reward-pinger/internal/monitor"
	"jordanella.com/reward-pinger/internal/notify"
	"jordanella.com/reward-pinger/internal/ping"
	"jordanella.com/reward-pinger/internal/rewards"
	"jordanella.com/reward-pinger/internal/ui"
)

var runCycles int

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the activation, reward and ping loop until interrupted",
	Long: `Run the main loop until interrupted.

Accounts are activated once at startup. Each cycle then refreshes every
profile, claims eligible rewards and runs a window of ping rounds.
Ctrl-C cancels in-flight work and waits for the shutdown grace period.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runPinger(ctx, cfg, cmd.OutOrStdout())
	},
}

func init() {
	runCmd.Flags().IntVar(&runCycles, "cycles", 0, "stop after this many cycles (0 runs until interrupted)")
}

func runPinger(ctx context.Context, cfg *config.Config, out io.Writer) error {
	logFile, err := setupLogging(cfg, out)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger := logging.NewLogger("main")
	defer logger.Sync()

	instanceLock, err := lock.Acquire(cfg.LockFile, 0)
	if err != nil {
		return err
	}
	defer instanceLock.Unlock()

	mgr, err := loadAccounts(cfg)
	if err != nil {
		return err
	}

	endpoints, err := cfg.Endpoints()
	if err != nil {
		return err
	}
	client, err := api.NewClient(cfg.ClientOptions())
	if err != nil {
		return err
	}
	service := api.NewService(client, endpoints)

	bus := events.NewEventBus(256)
	defer bus.Stop()

	eventLog, err := logging.NewEventLogger(bus, cfg.Logging.Dir)
	if err != nil {
		return err
	}
	defer eventLog.Close()

	finishRun, err := startJournal(cfg, bus, mgr.Count())
	if err != nil {
		return err
	}

	if cfg.Telegram.Enabled() {
		tg, err := notify.NewTelegramBot(cfg.Telegram.Token)
		if err != nil {
			logger.Error("Telegram notifications disabled", err)
		} else {
			notifier := notify.NewTelegram(tg, cfg.Telegram.ChatID, bus)
			defer notifier.Close()
		}
	}

	health := monitor.NewHealthChecker(bus).
		WithStuckTimeout(cfg.Ping.RoundInterval + cfg.Transport.Timeout*time.Duration(cfg.Transport.MaxRetries+1) + time.Minute).
		WithUnhealthyCallback(func(reason string, err error) {
			logger.WarnWithContext(err.Error(), map[string]interface{}{"reason": reason})
			bus.Publish(events.NewErrorEvent("monitor", err, map[string]interface{}{"reason": reason}))
		})
	health.Start()
	defer health.Stop()

	activator := bot.NewActivator(service, cfg.Ping.Concurrency, bus)
	engine := rewards.NewEngine(service, rewards.DefaultCatalog(), bus)
	profiles := bot.NewProfileSyncer(service, engine, nil, bus)
	scheduler := ping.NewScheduler(service, ping.Options{
		URLs:        endpoints.Ping,
		MinInterval: cfg.Ping.MinInterval,
		Concurrency: cfg.Ping.Concurrency,
	}, bus)

	var activation bot.ActivationStage
	if cfg.Features.ActivateAccounts {
		activation = activator
	}
	orchestrator := bot.NewOrchestrator(mgr.All(), activation, profiles, scheduler, bot.Options{
		ActivateAccounts: cfg.Features.ActivateAccounts,
		DailyClaim:       cfg.Features.DailyClaim,
		CycleDelay:       cfg.Ping.CycleDelay,
		PingWindow:       cfg.Ping.Window,
		RoundInterval:    cfg.Ping.RoundInterval,
		Concurrency:      cfg.Ping.Concurrency,
		MaxCycles:        runCycles,
	}, bus).OnWindow(func(cycle int, accts []*accounts.Account, report ping.WindowReport) {
		fmt.Fprint(out, ui.RenderSummary(cycle, accts, report, time.Now()))
	})

	logger.Info(fmt.Sprintf("Starting with %d accounts against %s", mgr.Count(), cfg.API.BaseURL))
	runErr := bot.RunUntilCancelled(ctx, cfg.ShutdownGrace, orchestrator.Run)

	status := database.RunStatusCompleted
	switch {
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, bot.ErrGraceExceeded):
		status = database.RunStatusInterrupted
	case runErr != nil:
		status = database.RunStatusFailed
	}
	// Drain the bus before the journal closes
	bus.Stop()
	finishRun(status)

	if status == database.RunStatusInterrupted {
		logger.Info("Stopped")
		return nil
	}
	return runErr
}

// setupLogging applies the configured level and tees output into a log file
func setupLogging(cfg *config.Config, out io.Writer) (*os.File, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	if cfg.Logging.Dir == "" {
		logging.Configure(level, out)
		return nil, nil
	}

	if err := os.MkdirAll(cfg.Logging.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	name := fmt.Sprintf("pinger_%s.log", time.Now().Format("2006-01-02_15-04-05"))
	file, err := os.OpenFile(filepath.Join(cfg.Logging.Dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	logging.Configure(level, out, file)
	return file, nil
}

// startJournal opens the journal and records bus events under a new run.
// The returned function finishes the run and closes the journal. With no
// journal path configured it does nothing.
func startJournal(cfg *config.Config, bus *events.DefaultEventBus, accountCount int) (func(database.RunStatus), error) {
	if cfg.Journal.Path == "" {
		return func(database.RunStatus) {}, nil
	}

	db, err := database.Open(cfg.Journal.Path)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	runID, err := db.StartRun(accountCount)
	if err != nil {
		db.Close()
		return nil, err
	}
	recorder := database.NewRecorder(db, runID, bus)

	logger := logging.NewLogger("journal")
	return func(status database.RunStatus) {
		recorder.Close()
		if err := db.FinishRun(runID, status); err != nil {
			logger.Error("Failed to finish run", err)
		}
		if n := recorder.Failures(); n > 0 {
			logger.Warn(fmt.Sprintf("%d events could not be journaled", n))
		}
		db.Close()
	}, nil
}
