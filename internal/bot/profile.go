package bot

import (
	"context"
	"fmt"
	"strings"

	"jordanella.com/reward-pinger/internal/accounts"
	"jordanella.com/reward-pinger/internal/api"
	"jordanella.com/reward-pinger/internal/events"
	"jordanella.com/reward-pinger/internal/logging"
	"jordanella.com/reward-pinger/internal/rewards"
)

// ProfileClient is the slice of the API the profile stage uses
type ProfileClient interface {
	Session(ctx context.Context, id api.Identity) (api.Profile, *api.Response, error)
	EarnInfo(ctx context.Context, id api.Identity) (api.EarnInfo, error)
}

// RewardPass runs the reward engine for one account
type RewardPass interface {
	EvaluateAndClaim(ctx context.Context, acct *accounts.Account) (rewards.Summary, error)
}

// ProfileSyncer refreshes an account's profile and, when the account has
// a uid, shows its earnings and runs the reward pass.
type ProfileSyncer struct {
	client  ProfileClient
	rewards RewardPass
	seen    *TokenSet
	events  events.Publisher
	logger  *logging.Logger
}

// NewProfileSyncer creates a profile stage. rewardPass may be nil.
func NewProfileSyncer(client ProfileClient, rewardPass RewardPass, seen *TokenSet, publisher events.Publisher) *ProfileSyncer {
	if seen == nil {
		seen = NewTokenSet()
	}
	return &ProfileSyncer{
		client:  client,
		rewards: rewardPass,
		seen:    seen,
		events:  events.OrDiscard(publisher),
		logger:  logging.NewLogger("profile"),
	}
}

// BeginCycle forgets which tokens were processed in the previous cycle
func (p *ProfileSyncer) BeginCycle() {
	p.seen.Clear()
}

// Sync runs the profile stage for one account. A failed session fetch
// leaves the account untouched; an expired session is only reported.
func (p *ProfileSyncer) Sync(ctx context.Context, acct *accounts.Account) error {
	log := p.logger.ForAccount(acct.Index)

	if !p.seen.MarkIfNew(acct.Token) {
		log.Debug("Token already processed this cycle, skipping")
		return nil
	}

	log.Info(fmt.Sprintf("Fetching profile with token %s", accounts.MaskToken(acct.Token)))
	profile, resp, err := p.client.Session(ctx, acct)
	if err != nil {
		p.events.Publish(events.NewProfileSyncFailedEvent(acct.Index, err))
		if sessionExpired(resp) {
			log.Warn("Session expired, token needs renewal")
			p.events.Publish(events.NewSessionExpiredEvent(acct.Index, resp.Msg))
		}
		return fmt.Errorf("session for token %s: %w", accounts.MaskToken(acct.Token), err)
	}

	acct.Profile = profile
	displayProfile(log, profile)
	p.events.Publish(events.NewProfileSyncedEvent(acct.Index, profile.Name, profile.UID.String()))

	if profile.UID == "" {
		return nil
	}

	if info, err := p.client.EarnInfo(ctx, acct); err != nil {
		log.Error("Failed to fetch earning info", err)
	} else {
		displayEarnings(log, info)
	}

	if p.rewards == nil {
		return nil
	}
	summary, err := p.rewards.EvaluateAndClaim(ctx, acct)
	if err != nil {
		return fmt.Errorf("reward pass: %w", err)
	}
	if len(summary.Claimed) > 0 {
		log.Info(fmt.Sprintf("Claimed %s", strings.Join(summary.Claimed, ", ")))
	}
	return nil
}

func sessionExpired(resp *api.Response) bool {
	if resp == nil {
		return false
	}
	if resp.CodeIs(401) {
		return true
	}
	msg := strings.ToLower(resp.Msg)
	return strings.Contains(msg, "expired") || strings.Contains(msg, "unauthorized")
}

func displayProfile(log *logging.ContextLogger, profile api.Profile) {
	log.InfoWithContext("Account info", map[string]interface{}{
		"name":                 profile.Name,
		"email":                profile.Email,
		"referral_link":        profile.ReferralLink,
		"state":                profile.State,
		"network_earning_rate": profile.NetworkEarningRate.String(),
	})
}

func displayEarnings(log *logging.ContextLogger, info api.EarnInfo) {
	log.InfoWithContext(fmt.Sprintf("%s earnings", info.SeasonName), map[string]interface{}{
		"total_earning": info.TotalEarning.String(),
		"today_earning": info.TodayEarning.String(),
		"current_point": info.CurrentPoint.String(),
		"pending_point": info.PendingPoint.String(),
	})
}
