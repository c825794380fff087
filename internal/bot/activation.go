package bot

import (
	"context"
	"strings"

	"jordanella.com/reward-pinger/internal/accounts"
	"jordanella.com/reward-pinger/internal/api"
	"jordanella.com/reward-pinger/internal/events"
	"jordanella.com/reward-pinger/internal/logging"
	"jordanella.com/reward-pinger/internal/taskgroup"
)

// codeAlreadyActivated is returned by the activation endpoint for an
// account that was activated before
const codeAlreadyActivated = 5

// Activation is the slice of the API the activator uses
type Activation interface {
	Activate(ctx context.Context, id api.Identity) (*api.Response, error)
}

// ActivationResult reports what happened to one account
type ActivationResult struct {
	Index  int
	Status accounts.ConnectionStatus
	Reason string
	Err    error
}

// Activator performs the one-time activation call for every account
type Activator struct {
	client      Activation
	concurrency int
	events      events.Publisher
	logger      *logging.Logger
}

// NewActivator creates an activator
func NewActivator(client Activation, concurrency int, publisher events.Publisher) *Activator {
	return &Activator{
		client:      client,
		concurrency: concurrency,
		events:      events.OrDiscard(publisher),
		logger:      logging.NewLogger("activation"),
	}
}

// Activate calls the activation endpoint once per account, concurrently,
// and updates each account's status. There are no retries at this layer.
func (a *Activator) Activate(ctx context.Context, accts []*accounts.Account) []ActivationResult {
	results := make([]ActivationResult, len(accts))

	errs := taskgroup.Run(ctx, len(accts), a.concurrency, func(ctx context.Context, i int) error {
		results[i] = a.activateOne(ctx, accts[i])
		return nil
	})
	for i, err := range errs {
		if err != nil {
			a.logger.ForAccount(accts[i].Index).Error("Activation task failed", err)
			results[i] = ActivationResult{Index: accts[i].Index, Status: accts[i].Status, Err: err}
		}
	}
	return results
}

func (a *Activator) activateOne(ctx context.Context, acct *accounts.Account) ActivationResult {
	log := a.logger.ForAccount(acct.Index)
	result := ActivationResult{Index: acct.Index}

	resp, err := a.client.Activate(ctx, acct)
	switch {
	case err != nil:
		acct.Status = accounts.StatusNone
		result.Err = err
		result.Reason = "transport error"
		log.Error("Failed to activate account", err)

	case resp != nil && resp.CodeIs(codeAlreadyActivated) && strings.Contains(strings.ToLower(resp.Msg), "already activated"):
		acct.Status = accounts.StatusConnected
		result.Reason = "already activated"
		log.Debug("Account already activated")

	case resp != nil && resp.Success && resp.DataIsTrue():
		acct.Status = accounts.StatusConnected
		result.Reason = "activated"
		log.Info("Account activated")

	default:
		result.Reason = "unrecognised response"
		if resp != nil {
			result.Reason = resp.Msg
		}
		log.Warn("Activation response not recognised, status unchanged")
	}

	result.Status = acct.Status
	a.events.Publish(events.NewAccountActivatedEvent(acct.Index, acct.Status == accounts.StatusConnected, result.Reason))
	return result
}
