package rewards

import (
	"context"
	"errors"
	"testing"
	"time"

	"jordanella.com/reward-pinger/internal/accounts"
	"jordanella.com/reward-pinger/internal/api"
)

type fakeClient struct {
	missions []api.Mission
	claims   []string
	failIDs  map[string]bool
}

func (f *fakeClient) Missions(ctx context.Context, id api.Identity) ([]api.Mission, error) {
	return f.missions, nil
}

func (f *fakeClient) CompleteMission(ctx context.Context, id api.Identity, missionID string) (api.ClaimResult, error) {
	f.claims = append(f.claims, missionID)
	if f.failIDs[missionID] {
		return api.ClaimResult{}, &api.RejectedError{Msg: "not allowed"}
	}
	return api.ClaimResult{EarnedPoints: 100}, nil
}

func mission(id string, status api.MissionStatus, cur, target int) api.Mission {
	return api.Mission{ID: api.FlexString(id), Status: status, CurrentProcess: cur, TargetProcess: target}
}

func newEngine(client *fakeClient, now time.Time) *Engine {
	e := NewEngine(client, DefaultCatalog(), nil)
	e.now = func() time.Time { return now }
	return e
}

func TestChainGatingRequiresPredecessor(t *testing.T) {
	client := &fakeClient{missions: []api.Mission{mission("16", api.MissionAvailable, 0, 1)}}
	acct := accounts.New("tok", 1, nil)

	summary, err := newEngine(client, time.Now()).EvaluateAndClaim(context.Background(), acct)
	if err != nil {
		t.Fatalf("EvaluateAndClaim failed: %v", err)
	}

	if len(client.claims) != 0 {
		t.Errorf("14天 must not be claimed before 7天, claims=%v", client.claims)
	}
	if summary.Decisions[0].Action != ActionSkipChain {
		t.Errorf("Expected skip_chain, got %s", summary.Decisions[0].Action)
	}
	if acct.HasClaimed("14天") {
		t.Error("14天 should not be marked claimed")
	}
}

func TestChainUnlocksWithinOnePass(t *testing.T) {
	client := &fakeClient{missions: []api.Mission{
		mission("15", api.MissionAvailable, 0, 1),
		mission("16", api.MissionAvailable, 0, 1),
	}}
	acct := accounts.New("tok", 1, nil)

	summary, err := newEngine(client, time.Now()).EvaluateAndClaim(context.Background(), acct)
	if err != nil {
		t.Fatalf("EvaluateAndClaim failed: %v", err)
	}

	if len(client.claims) != 2 || client.claims[0] != "15" || client.claims[1] != "16" {
		t.Fatalf("Expected claims [15 16], got %v", client.claims)
	}
	if !acct.HasClaimed("7天") || !acct.HasClaimed("14天") {
		t.Errorf("Expected both tiers claimed, got %v", acct.ClaimedList())
	}
	if summary.EarnedPoints != 200 {
		t.Errorf("Expected 200 earned points, got %v", summary.EarnedPoints)
	}
}

func TestChainOrderMatters(t *testing.T) {
	client := &fakeClient{missions: []api.Mission{
		mission("16", api.MissionAvailable, 0, 1),
		mission("15", api.MissionAvailable, 0, 1),
	}}
	acct := accounts.New("tok", 1, nil)

	if _, err := newEngine(client, time.Now()).EvaluateAndClaim(context.Background(), acct); err != nil {
		t.Fatalf("EvaluateAndClaim failed: %v", err)
	}
	if len(client.claims) != 1 || client.claims[0] != "15" {
		t.Errorf("Only 7天 should be claimed when 14天 comes first, got %v", client.claims)
	}
}

func TestProgressBasedHourly(t *testing.T) {
	acct := accounts.New("tok", 1, nil)
	catalog := DefaultCatalog()

	d := Decide(catalog, acct, mission("19", api.MissionAvailable, 0, 1))
	if d.Action != ActionNotEligible {
		t.Errorf("Expected not_eligible at 0/1, got %s", d.Action)
	}

	d = Decide(catalog, acct, mission("19", api.MissionAvailable, 1, 1))
	if d.Action != ActionClaim {
		t.Errorf("Expected claim at 1/1, got %s", d.Action)
	}
}

func TestDecideStatuses(t *testing.T) {
	acct := accounts.New("tok", 1, nil)
	catalog := DefaultCatalog()

	lock := mission("1", api.MissionLock, 2, 1)
	lock.RemainTime = 90_000

	tests := []struct {
		name string
		m    api.Mission
		want Action
	}{
		{"unknown id", mission("99", api.MissionAvailable, 0, 1), ActionSkipUnknown},
		{"lock below target", mission("1", api.MissionLock, 0, 1), ActionLocked},
		{"lock at target", mission("1", api.MissionLock, 1, 1), ActionTransitioning},
		{"lock above target", lock, ActionCooldown},
		{"soon", mission("1", api.MissionSoon, 0, 1), ActionWaiting},
		{"pending", mission("1", api.MissionPending, 0, 1), ActionWaiting},
		{"waiting", mission("1", api.MissionWaiting, 0, 1), ActionWaiting},
		{"completed", mission("1", api.MissionCompleted, 1, 1), ActionMarkCompleted},
		{"odd status", mission("1", "EXPIRED", 0, 1), ActionUnhandled},
	}

	for _, tt := range tests {
		d := Decide(catalog, acct, tt.m)
		if d.Action != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, d.Action)
		}
	}

	if d := Decide(catalog, acct, lock); d.Wait != 90*time.Second {
		t.Errorf("Expected 1m30s cooldown, got %s", d.Wait)
	}
}

func TestCompletedMarksClaimedIdempotently(t *testing.T) {
	client := &fakeClient{missions: []api.Mission{mission("15", api.MissionCompleted, 1, 1)}}
	acct := accounts.New("tok", 1, nil)
	engine := newEngine(client, time.Now())

	for i := 0; i < 2; i++ {
		if _, err := engine.EvaluateAndClaim(context.Background(), acct); err != nil {
			t.Fatalf("EvaluateAndClaim failed: %v", err)
		}
	}

	if len(acct.ClaimedRewards) != 1 || !acct.HasClaimed("7天") {
		t.Errorf("Expected exactly one claimed entry, got %v", acct.ClaimedList())
	}
	if len(client.claims) != 0 {
		t.Errorf("COMPLETED must not trigger a claim call, got %v", client.claims)
	}
}

func TestNoDuplicateClaims(t *testing.T) {
	client := &fakeClient{missions: []api.Mission{
		mission("1", api.MissionAvailable, 0, 1),
		mission("15", api.MissionAvailable, 0, 1),
	}}
	acct := accounts.New("tok", 1, nil)
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	engine := newEngine(client, now)

	for i := 0; i < 2; i++ {
		if _, err := engine.EvaluateAndClaim(context.Background(), acct); err != nil {
			t.Fatalf("EvaluateAndClaim failed: %v", err)
		}
	}
	if len(client.claims) != 2 {
		t.Fatalf("Expected 2 claim calls across two passes, got %v", client.claims)
	}

	// Elapsed time does not make a claimed reward claimable again.
	engine.now = func() time.Time { return now.Add(25 * time.Hour) }
	if _, err := engine.EvaluateAndClaim(context.Background(), acct); err != nil {
		t.Fatalf("EvaluateAndClaim failed: %v", err)
	}
	if len(client.claims) != 2 {
		t.Errorf("Claimed rewards must not be claimed again, got %v", client.claims)
	}
}

func TestCompletedThenAvailableIsNotClaimed(t *testing.T) {
	for _, id := range []string{"1", "19", "15"} {
		client := &fakeClient{missions: []api.Mission{mission(id, api.MissionCompleted, 1, 1)}}
		acct := accounts.New("tok", 1, nil)
		engine := newEngine(client, time.Now())

		if _, err := engine.EvaluateAndClaim(context.Background(), acct); err != nil {
			t.Fatalf("EvaluateAndClaim failed: %v", err)
		}

		client.missions = []api.Mission{mission(id, api.MissionAvailable, 1, 1)}
		summary, err := engine.EvaluateAndClaim(context.Background(), acct)
		if err != nil {
			t.Fatalf("EvaluateAndClaim failed: %v", err)
		}
		if len(client.claims) != 0 {
			t.Errorf("Mission %s: completed reward was claimed again, claims=%v", id, client.claims)
		}
		if summary.Decisions[0].Action != ActionAlreadyClaimed {
			t.Errorf("Mission %s: expected already_claimed, got %s", id, summary.Decisions[0].Action)
		}
	}
}

func TestClaimFailureDoesNotMark(t *testing.T) {
	client := &fakeClient{
		missions: []api.Mission{mission("15", api.MissionAvailable, 0, 1), mission("16", api.MissionAvailable, 0, 1)},
		failIDs:  map[string]bool{"15": true},
	}
	acct := accounts.New("tok", 1, nil)

	summary, err := newEngine(client, time.Now()).EvaluateAndClaim(context.Background(), acct)
	if err != nil {
		t.Fatalf("EvaluateAndClaim failed: %v", err)
	}

	if acct.HasClaimed("7天") {
		t.Error("Failed claim must not be marked")
	}
	if len(client.claims) != 1 {
		t.Errorf("Failed claim must not be retried or unlock 14天, got %v", client.claims)
	}
	if len(summary.Failed) != 1 {
		t.Errorf("Expected one failed claim, got %v", summary.Failed)
	}
}

type errClient struct{ fakeClient }

func (e *errClient) Missions(ctx context.Context, id api.Identity) ([]api.Mission, error) {
	return nil, errors.New("mission endpoint down")
}

func TestMissionFetchError(t *testing.T) {
	acct := accounts.New("tok", 1, nil)
	engine := NewEngine(&errClient{}, nil, nil)

	if _, err := engine.EvaluateAndClaim(context.Background(), acct); err == nil {
		t.Error("Expected error when mission list cannot be fetched")
	}
	if len(acct.ClaimedRewards) != 0 {
		t.Error("No state should change on fetch failure")
	}
}
