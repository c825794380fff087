package bot

import (
	"context"
	"fmt"
	"time"

	"jordanella.com/reward-pinger/internal/accounts"
	"jordanella.com/reward-pinger/internal/events"
	"jordanella.com/reward-pinger/internal/logging"
	"jordanella.com/reward-pinger/internal/ping"
	"jordanella.com/reward-pinger/internal/taskgroup"
	"jordanella.com/reward-pinger/internal/timeutil"
)

// Options controls the main loop
type Options struct {
	ActivateAccounts bool
	DailyClaim       bool
	// CycleDelay is the pause before the profile pass and before pinging
	CycleDelay    time.Duration
	PingWindow    time.Duration
	RoundInterval time.Duration
	// Concurrency caps in-flight accounts per batch; 0 is unlimited
	Concurrency int
	// MaxCycles stops the loop after this many cycles; 0 runs forever
	MaxCycles int
}

// ProfileStage is the per-cycle profile and reward pass
type ProfileStage interface {
	BeginCycle()
	Sync(ctx context.Context, acct *accounts.Account) error
}

// ActivationStage runs once at startup
type ActivationStage interface {
	Activate(ctx context.Context, accts []*accounts.Account) []ActivationResult
}

// PingStage runs one bounded ping window
type PingStage interface {
	RunWindow(ctx context.Context, accts []*accounts.Account, window, roundInterval time.Duration) (ping.WindowReport, error)
}

// WindowHook is called after every ping window
type WindowHook func(cycle int, accts []*accounts.Account, report ping.WindowReport)

// Orchestrator drives the fleet: activation once, then endless cycles of
// profile sync and ping windows.
type Orchestrator struct {
	accounts  []*accounts.Account
	activator ActivationStage
	profiles  ProfileStage
	pinger    PingStage
	opts      Options
	events    events.Publisher
	logger    *logging.Logger
	onWindow  WindowHook

	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator wires the stages together. activator and profiles may
// be nil when the matching feature is disabled.
func NewOrchestrator(accts []*accounts.Account, activator ActivationStage, profiles ProfileStage, pinger PingStage, opts Options, publisher events.Publisher) *Orchestrator {
	return &Orchestrator{
		accounts:  accts,
		activator: activator,
		profiles:  profiles,
		pinger:    pinger,
		opts:      opts,
		events:    events.OrDiscard(publisher),
		logger:    logging.NewLogger("orchestrator"),
		sleep:     timeutil.Sleep,
	}
}

// OnWindow registers a hook called after every ping window
func (o *Orchestrator) OnWindow(hook WindowHook) *Orchestrator {
	o.onWindow = hook
	return o
}

// Run executes the main loop until ctx is cancelled or MaxCycles is
// reached. Unexpected errors inside a cycle are logged and the loop
// continues.
func (o *Orchestrator) Run(ctx context.Context) error {
	if o.opts.ActivateAccounts && o.activator != nil {
		results := o.activator.Activate(ctx, o.accounts)
		connected := 0
		for _, r := range results {
			if r.Status == accounts.StatusConnected {
				connected++
			}
		}
		o.logger.Info(fmt.Sprintf("Activation finished: %d/%d connected", connected, len(results)))
	}

	for cycle := 1; ; cycle++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if o.opts.MaxCycles > 0 && cycle > o.opts.MaxCycles {
			return nil
		}

		if err := o.runCycle(ctx, cycle); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.logger.ErrorWithContext("Unexpected error in main loop", err, map[string]interface{}{"cycle": cycle})
			o.events.Publish(events.NewErrorEvent("orchestrator", err, map[string]interface{}{"cycle": cycle}))
			if err := o.sleep(ctx, o.opts.CycleDelay); err != nil {
				return err
			}
		}
	}
}

func (o *Orchestrator) runCycle(ctx context.Context, cycle int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle %d panicked: %v", cycle, r)
		}
	}()

	o.events.Publish(events.NewCycleEvent(events.EventTypeCycleStarted, cycle, len(o.accounts)))

	if o.opts.DailyClaim && o.profiles != nil {
		o.profiles.BeginCycle()
		o.logger.Info("Loading account details and checking rewards")
		if err := o.sleep(ctx, o.opts.CycleDelay); err != nil {
			return err
		}
		o.syncProfiles(ctx)
	}

	o.logger.Info("Preparing ping requests")
	if err := o.sleep(ctx, o.opts.CycleDelay); err != nil {
		return err
	}

	report, err := o.pinger.RunWindow(ctx, o.accounts, o.opts.PingWindow, o.opts.RoundInterval)
	if o.onWindow != nil {
		o.onWindow(cycle, o.accounts, report)
	}
	if err != nil {
		return err
	}

	o.events.Publish(events.NewCycleEvent(events.EventTypeCycleCompleted, cycle, len(o.accounts)))
	return nil
}

func (o *Orchestrator) syncProfiles(ctx context.Context) {
	results := taskgroup.Each(ctx, o.accounts, o.opts.Concurrency, func(ctx context.Context, acct *accounts.Account) error {
		return o.profiles.Sync(ctx, acct)
	})
	for i, err := range results {
		if err != nil && ctx.Err() == nil {
			o.logger.ForAccount(o.accounts[i].Index).Error("Failed to process account", err)
		}
	}
	if n := results.Failed(); n > 0 {
		o.logger.Warn(fmt.Sprintf("Profile pass finished with %d/%d failures", n, len(results)))
	}
}
