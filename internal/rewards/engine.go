package rewards

import (
	"context"
	"fmt"
	"time"

	"jordanella.com/reward-pinger/internal/accounts"
	"jordanella.com/reward-pinger/internal/api"
	"jordanella.com/reward-pinger/internal/events"
	"jordanella.com/reward-pinger/internal/logging"
)

// Action is what the engine decided to do with one mission
type Action int

const (
	ActionSkipUnknown Action = iota
	ActionSkipChain
	ActionNotEligible
	ActionClaim
	ActionAlreadyClaimed
	ActionLocked
	ActionTransitioning
	ActionCooldown
	ActionWaiting
	ActionMarkCompleted
	ActionUnhandled
)

func (a Action) String() string {
	switch a {
	case ActionSkipUnknown:
		return "skip_unknown"
	case ActionSkipChain:
		return "skip_chain"
	case ActionNotEligible:
		return "not_eligible"
	case ActionClaim:
		return "claim"
	case ActionAlreadyClaimed:
		return "already_claimed"
	case ActionLocked:
		return "locked"
	case ActionTransitioning:
		return "transitioning"
	case ActionCooldown:
		return "cooldown"
	case ActionWaiting:
		return "waiting"
	case ActionMarkCompleted:
		return "mark_completed"
	default:
		return "unhandled"
	}
}

// Decision is the outcome of evaluating one mission
type Decision struct {
	Mission api.Mission
	Reward  Reward
	Action  Action
	// Wait is the remaining time reported for cooldown/waiting states
	Wait time.Duration
}

// Decide evaluates one mission against the catalog and the account's
// claimed set. It does not mutate anything. A reward in the claimed set
// is never claimed again, whatever the server reports.
func Decide(catalog *Catalog, acct *accounts.Account, m api.Mission) Decision {
	d := Decision{Mission: m}

	entry, ok := catalog.Lookup(m.ID.String())
	if !ok {
		d.Action = ActionSkipUnknown
		return d
	}
	d.Reward = entry

	if entry.Requires != "" && !acct.HasClaimed(entry.Requires) {
		d.Action = ActionSkipChain
		return d
	}

	if entry.ProgressBased && m.CurrentProcess < m.TargetProcess {
		d.Action = ActionNotEligible
		return d
	}

	switch m.Status {
	case api.MissionAvailable:
		d.Action = ActionClaim
		if acct.HasClaimed(entry.Name) {
			d.Action = ActionAlreadyClaimed
		}
	case api.MissionLock:
		switch {
		case m.CurrentProcess < m.TargetProcess:
			d.Action = ActionLocked
		case m.CurrentProcess == m.TargetProcess:
			d.Action = ActionTransitioning
		default:
			d.Action = ActionCooldown
			d.Wait = m.RemainingWait()
		}
	case api.MissionSoon, api.MissionPending, api.MissionWaiting:
		d.Action = ActionWaiting
		d.Wait = m.RemainingWait()
	case api.MissionCompleted:
		d.Action = ActionMarkCompleted
	default:
		d.Action = ActionUnhandled
	}
	return d
}

// MissionClient is the slice of the API the engine uses
type MissionClient interface {
	Missions(ctx context.Context, id api.Identity) ([]api.Mission, error)
	CompleteMission(ctx context.Context, id api.Identity, missionID string) (api.ClaimResult, error)
}

// Summary reports one reward pass for one account
type Summary struct {
	Decisions    []Decision
	Claimed      []string
	Failed       []string
	EarnedPoints float64
}

// Engine walks the mission list and claims eligible rewards
type Engine struct {
	client  MissionClient
	catalog *Catalog
	events  events.Publisher
	logger  *logging.Logger
	now     func() time.Time
}

// NewEngine creates a reward engine
func NewEngine(client MissionClient, catalog *Catalog, publisher events.Publisher) *Engine {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Engine{
		client:  client,
		catalog: catalog,
		events:  events.OrDiscard(publisher),
		logger:  logging.NewLogger("rewards"),
		now:     time.Now,
	}
}

// EvaluateAndClaim fetches the account's missions and processes them
func (e *Engine) EvaluateAndClaim(ctx context.Context, acct *accounts.Account) (Summary, error) {
	missions, err := e.client.Missions(ctx, acct)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to fetch missions: %w", err)
	}

	log := e.logger.ForAccount(acct.Index)
	if len(missions) == 0 {
		log.Info("No missions for this account")
		return Summary{}, nil
	}

	log.Info("Checking rewards")
	return e.Process(ctx, acct, missions), nil
}

// Process evaluates missions in list order. A reward claimed earlier in
// the list unlocks its successors later in the same pass.
func (e *Engine) Process(ctx context.Context, acct *accounts.Account, missions []api.Mission) Summary {
	var summary Summary
	log := e.logger.ForAccount(acct.Index)

	for _, m := range missions {
		if ctx.Err() != nil {
			break
		}

		d := Decide(e.catalog, acct, m)
		summary.Decisions = append(summary.Decisions, d)
		rlog := log.With("reward", d.Reward.Name)

		switch d.Action {
		case ActionSkipUnknown, ActionSkipChain:
			continue
		case ActionNotEligible:
			rlog.Info(fmt.Sprintf("Not enough progress: %d/%d", m.CurrentProcess, m.TargetProcess))
		case ActionAlreadyClaimed:
			rlog.Debug("Already claimed")
		case ActionClaim:
			rlog.Info("Reward available")
			points, err := e.claim(ctx, acct, d.Reward)
			if err != nil {
				rlog.Error("Failed to claim reward", err)
				summary.Failed = append(summary.Failed, d.Reward.Name)
				continue
			}
			rlog.Info(fmt.Sprintf("Reward claimed: %s points", api.FlexNumber(points)))
			summary.Claimed = append(summary.Claimed, d.Reward.Name)
			summary.EarnedPoints += points
		case ActionLocked:
			rlog.Info(fmt.Sprintf("Locked: %d/%d", m.CurrentProcess, m.TargetProcess))
		case ActionTransitioning:
			rlog.Info("Progress complete, waiting for unlock")
		case ActionCooldown:
			rlog.Info(fmt.Sprintf("Cooling down, %s remaining", d.Wait))
		case ActionWaiting:
			rlog.Info(fmt.Sprintf("%s, %s remaining", m.Status, d.Wait))
		case ActionMarkCompleted:
			rlog.Debug("Already completed")
			acct.MarkClaimed(d.Reward.Name, time.Time{})
		default:
			rlog.WarnWithContext("Unhandled reward status", map[string]interface{}{"status": m.Status})
		}
	}
	return summary
}

func (e *Engine) claim(ctx context.Context, acct *accounts.Account, reward Reward) (float64, error) {
	result, err := e.client.CompleteMission(ctx, acct, reward.MissionID)
	if err != nil {
		e.events.Publish(events.NewRewardClaimFailedEvent(acct.Index, reward.MissionID, reward.Name, err))
		return 0, err
	}

	points := result.EarnedPoints.Float()
	acct.MarkClaimed(reward.Name, e.now())
	e.events.Publish(events.NewRewardClaimedEvent(acct.Index, reward.MissionID, reward.Name, points))
	return points, nil
}
