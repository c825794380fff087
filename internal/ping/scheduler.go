package ping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jordanella.com/reward-pinger/internal/accounts"
	"jordanella.com/reward-pinger/internal/api"
	"jordanella.com/reward-pinger/internal/events"
	"jordanella.com/reward-pinger/internal/logging"
	"jordanella.com/reward-pinger/internal/taskgroup"
	"jordanella.com/reward-pinger/internal/timeutil"
)

// ErrMissingPingStats means an account reached the scheduler without
// its stats record.
var ErrMissingPingStats = errors.New("account has no ping stats")

// Outcome is the result of one account's ping attempt
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeCooldown
	OutcomeSuccess
	OutcomeFailure
	OutcomeNoResponse
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCooldown:
		return "cooldown"
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failed"
	case OutcomeNoResponse:
		return "no_response"
	default:
		return "skipped"
	}
}

// Sender is the slice of the API the scheduler uses
type Sender interface {
	Ping(ctx context.Context, url string, id api.Identity, payload api.PingPayload) (*api.Response, error)
}

// Options configures the scheduler
type Options struct {
	// URLs are tried in order until one succeeds
	URLs []string
	// MinInterval is the per-account cooldown between attempts
	MinInterval time.Duration
	// Concurrency caps in-flight accounts per round; 0 is unlimited
	Concurrency int
}

// RoundReport counts outcomes of one round
type RoundReport struct {
	Accounts  int
	Succeeded int
	Failed    int
	Cooldown  int
	Skipped   int
}

func (r *RoundReport) add(o Outcome) {
	switch o {
	case OutcomeSuccess:
		r.Succeeded++
	case OutcomeFailure, OutcomeNoResponse:
		r.Failed++
	case OutcomeCooldown:
		r.Cooldown++
	default:
		r.Skipped++
	}
}

// WindowReport summarises a ping window
type WindowReport struct {
	Rounds []RoundReport
	Start  time.Time
	End    time.Time
}

// Scheduler runs bounded windows of concurrent ping rounds
type Scheduler struct {
	sender Sender
	opts   Options
	events events.Publisher
	logger *logging.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewScheduler creates a ping scheduler
func NewScheduler(sender Sender, opts Options, publisher events.Publisher) *Scheduler {
	return &Scheduler{
		sender: sender,
		opts:   opts,
		events: events.OrDiscard(publisher),
		logger: logging.NewLogger("ping"),
		now:    time.Now,
		sleep:  timeutil.Sleep,
	}
}

// RunWindow repeats ping rounds while less than window has elapsed since
// it started, sleeping roundInterval after every round. A zero window runs
// no rounds. It returns early only when ctx is cancelled.
func (s *Scheduler) RunWindow(ctx context.Context, accts []*accounts.Account, window, roundInterval time.Duration) (WindowReport, error) {
	report := WindowReport{Start: s.now()}

	for s.now().Sub(report.Start) < window {
		if err := ctx.Err(); err != nil {
			report.End = s.now()
			return report, err
		}

		report.Rounds = append(report.Rounds, s.RunRound(ctx, accts))

		s.logger.Info(fmt.Sprintf("Sleeping %s before next ping round", roundInterval))
		if err := s.sleep(ctx, roundInterval); err != nil {
			report.End = s.now()
			return report, err
		}
	}

	report.End = s.now()
	return report, nil
}

// RunRound pings every account once, concurrently. A failing or panicking
// account never affects the others.
func (s *Scheduler) RunRound(ctx context.Context, accts []*accounts.Account) RoundReport {
	outcomes := make([]Outcome, len(accts))
	results := taskgroup.Run(ctx, len(accts), s.opts.Concurrency, func(ctx context.Context, i int) error {
		o, err := s.PingAccount(ctx, accts[i])
		outcomes[i] = o
		return err
	})

	report := RoundReport{Accounts: len(accts)}
	for i, err := range results {
		if err != nil {
			if ctx.Err() == nil {
				s.logger.ForAccount(accts[i].Index).Error("Ping task failed", err)
			}
			outcomes[i] = OutcomeSkipped
		}
		report.add(outcomes[i])
	}
	return report
}

// PingAccount runs one ping attempt for one account: cooldown check, then
// the endpoint list in order until a response classifies as success.
func (s *Scheduler) PingAccount(ctx context.Context, acct *accounts.Account) (Outcome, error) {
	log := s.logger.ForAccount(acct.Index)

	stats := acct.PingStats
	if stats == nil {
		return OutcomeSkipped, ErrMissingPingStats
	}

	now := s.now()
	if !stats.LastPingTime.IsZero() && now.Sub(stats.LastPingTime) < s.opts.MinInterval {
		log.Warn(fmt.Sprintf("Pinged %s ago, waiting for cooldown", now.Sub(stats.LastPingTime).Truncate(time.Second)))
		return OutcomeCooldown, nil
	}
	stats.LastPingTime = now

	outcome := OutcomeNoResponse
	for _, url := range s.opts.URLs {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		payload := api.PingPayload{
			ID:        acct.Profile.UID.String(),
			BrowserID: acct.BrowserID,
			Timestamp: now.Unix(),
			Version:   acct.ClientVersion,
		}
		resp, err := s.sender.Ping(ctx, url, acct, payload)
		if err != nil || resp == nil {
			log.With("url", url).Warn(fmt.Sprintf("No response from ping endpoint: %v", err))
			continue
		}

		success, data, err := classify(resp)
		if err != nil {
			log.With("url", url).Error("Malformed ping response", err)
			outcome = OutcomeFailure
			continue
		}

		stats.Record(success)
		if data.Version != "" {
			acct.ClientVersion = data.Version
		}
		s.events.Publish(events.NewPingEvent(acct.Index, success, url, stats.Score, data.IPScore.Float()))

		if success {
			acct.LastPingStatus = OutcomeSuccess.String()
			log.InfoWithContext("Ping successful", map[string]interface{}{
				"ip_score": data.IPScore.String(),
				"proxy":    acct.ProxyLabel(),
				"score":    stats.Score,
			})
			return OutcomeSuccess, nil
		}

		outcome = OutcomeFailure
		log.WarnWithContext("Ping failed", map[string]interface{}{
			"code":  codeOf(resp),
			"msg":   resp.Msg,
			"score": stats.Score,
		})
	}

	acct.LastPingStatus = outcome.String()
	return outcome, nil
}

// classify treats code 0 as success. Absent or null data scores as an
// empty payload; data that is not an object is malformed.
func classify(resp *api.Response) (bool, api.PingData, error) {
	if !resp.HasData() {
		return resp.CodeIs(0), api.PingData{}, nil
	}
	data, err := api.DecodeData[api.PingData](resp)
	if err != nil {
		return false, api.PingData{}, err
	}
	return resp.CodeIs(0), data, nil
}

func codeOf(resp *api.Response) interface{} {
	if resp.Code == nil {
		return nil
	}
	return *resp.Code
}
