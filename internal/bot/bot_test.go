package bot

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"jordanella.com/reward-pinger/internal/accounts"
	"jordanella.com/reward-pinger/internal/api"
	"jordanella.com/reward-pinger/internal/events"
	"jordanella.com/reward-pinger/internal/ping"
	"jordanella.com/reward-pinger/internal/rewards"
)

func intPtr(v int) *int {
	return &v
}

type fakeActivation struct {
	reply func(index int) (*api.Response, error)
}

func (f *fakeActivation) Activate(ctx context.Context, id api.Identity) (*api.Response, error) {
	return f.reply(id.AccountIndex())
}

func TestActivationOutcomes(t *testing.T) {
	client := &fakeActivation{reply: func(index int) (*api.Response, error) {
		switch index {
		case 1:
			return api.NewResponse(false, 5, nil, "Account already activated"), nil
		case 2:
			return api.NewResponse(true, 0, true, ""), nil
		case 3:
			return nil, errors.New("connection refused")
		default:
			return api.NewResponse(false, 9, nil, "maintenance"), nil
		}
	}}

	accts := []*accounts.Account{
		accounts.New("a", 1, nil),
		accounts.New("b", 2, nil),
		accounts.New("c", 3, nil),
		accounts.New("d", 4, nil),
	}
	accts[2].Status = accounts.StatusConnected
	accts[3].Status = accounts.StatusConnected

	results := NewActivator(client, 2, nil).Activate(context.Background(), accts)
	if len(results) != 4 {
		t.Fatalf("Expected 4 results, got %d", len(results))
	}

	tests := []struct {
		index int
		want  accounts.ConnectionStatus
	}{
		{1, accounts.StatusConnected},
		{2, accounts.StatusConnected},
		{3, accounts.StatusNone},
		{4, accounts.StatusConnected}, // unrecognised response leaves status alone
	}
	for _, tt := range tests {
		if got := accts[tt.index-1].Status; got != tt.want {
			t.Errorf("account %d: status = %v, want %v", tt.index, got, tt.want)
		}
	}
	if results[2].Err == nil {
		t.Error("Expected transport error to be reported for account 3")
	}
}

func TestTokenSetMarksOnce(t *testing.T) {
	set := NewTokenSet()

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if set.MarkIfNew("same") {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("Expected exactly one winner, got %d", wins)
	}
	set.Clear()
	if set.Len() != 0 || !set.MarkIfNew("same") {
		t.Error("Clear should forget previously seen tokens")
	}
}

type fakeProfileClient struct {
	mu       sync.Mutex
	sessions int
	earns    int
	profile  api.Profile
	resp     *api.Response
	err      error
}

func (f *fakeProfileClient) Session(ctx context.Context, id api.Identity) (api.Profile, *api.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions++
	return f.profile, f.resp, f.err
}

func (f *fakeProfileClient) EarnInfo(ctx context.Context, id api.Identity) (api.EarnInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.earns++
	return api.EarnInfo{SeasonName: "Season 1"}, nil
}

type fakeRewardPass struct {
	calls int32
}

func (f *fakeRewardPass) EvaluateAndClaim(ctx context.Context, acct *accounts.Account) (rewards.Summary, error) {
	atomic.AddInt32(&f.calls, 1)
	return rewards.Summary{Claimed: []string{"每日签到"}}, nil
}

func TestProfileSyncDedupsTokens(t *testing.T) {
	client := &fakeProfileClient{profile: api.Profile{UID: "42", Name: "alice"}}
	pass := &fakeRewardPass{}
	syncer := NewProfileSyncer(client, pass, nil, nil)

	a := accounts.New("shared", 1, nil)
	b := accounts.New("shared", 2, nil)

	syncer.BeginCycle()
	for _, acct := range []*accounts.Account{a, b} {
		if err := syncer.Sync(context.Background(), acct); err != nil {
			t.Fatalf("Sync failed: %v", err)
		}
	}

	if client.sessions != 1 {
		t.Errorf("Expected one session fetch for a shared token, got %d", client.sessions)
	}
	if pass.calls != 1 {
		t.Errorf("Expected one reward pass, got %d", pass.calls)
	}
	if b.Profile.Name != "" {
		t.Error("Second account with the same token should be skipped")
	}

	syncer.BeginCycle()
	if err := syncer.Sync(context.Background(), b); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if client.sessions != 2 {
		t.Errorf("Token should be processed again in a new cycle, sessions=%d", client.sessions)
	}
}

func TestProfileSyncWithoutUIDSkipsRewards(t *testing.T) {
	client := &fakeProfileClient{profile: api.Profile{Name: "nouid"}}
	pass := &fakeRewardPass{}
	acct := accounts.New("tok", 1, nil)

	if err := NewProfileSyncer(client, pass, nil, nil).Sync(context.Background(), acct); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if acct.Profile.Name != "nouid" {
		t.Errorf("Profile should be stored, got %+v", acct.Profile)
	}
	if client.earns != 0 || pass.calls != 0 {
		t.Errorf("Earnings and rewards must not run without a uid (earns=%d rewards=%d)", client.earns, pass.calls)
	}
}

func TestProfileSyncFailureLeavesAccount(t *testing.T) {
	client := &fakeProfileClient{resp: api.NewResponse(false, 500, nil, "internal"), err: &api.RejectedError{Code: intPtr(500), Msg: "internal"}}
	acct := accounts.New("tok", 1, nil)
	acct.Status = accounts.StatusConnected
	acct.Profile = api.Profile{UID: "1", Name: "before"}
	acct.Retries = 1

	if err := NewProfileSyncer(client, &fakeRewardPass{}, nil, nil).Sync(context.Background(), acct); err == nil {
		t.Fatal("Expected an error from a failed session fetch")
	}

	if acct.Profile.Name != "before" || acct.Status != accounts.StatusConnected || acct.Retries != 1 {
		t.Errorf("Account should be unchanged after failure: %+v", acct)
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(event events.Event) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *recordingPublisher) count(t events.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func TestProfileSyncExpiredSessionIsReportedOnly(t *testing.T) {
	tests := []struct {
		name string
		resp *api.Response
	}{
		{"code 401", api.NewResponse(false, 401, nil, "denied")},
		{"expired message", api.NewResponse(false, 3, nil, "Token Expired")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeProfileClient{resp: tt.resp, err: &api.RejectedError{Code: tt.resp.Code, Msg: tt.resp.Msg}}
			pub := &recordingPublisher{}
			acct := accounts.New("tok", 1, nil)
			acct.Status = accounts.StatusConnected
			acct.Profile = api.Profile{UID: "1", Name: "before"}
			acct.Retries = 0

			if err := NewProfileSyncer(client, nil, nil, pub).Sync(context.Background(), acct); err == nil {
				t.Fatal("Expected an error from an expired session")
			}

			if acct.Status != accounts.StatusConnected || acct.Profile.UID != "1" || acct.Profile.Name != "before" || acct.Retries != 0 {
				t.Errorf("Expired session must not mutate the account: %+v", acct)
			}
			if n := pub.count(events.EventTypeAccountSessionExpired); n != 1 {
				t.Errorf("Expected one session expired event, got %d", n)
			}
		})
	}
}

type fakeProfiles struct {
	begins int32
	syncs  int32
	fail   func(acct *accounts.Account) error
}

func (f *fakeProfiles) BeginCycle() { atomic.AddInt32(&f.begins, 1) }

func (f *fakeProfiles) Sync(ctx context.Context, acct *accounts.Account) error {
	atomic.AddInt32(&f.syncs, 1)
	if f.fail != nil {
		return f.fail(acct)
	}
	return nil
}

type fakePinger struct {
	windows int32
	run     func(ctx context.Context) error
}

func (f *fakePinger) RunWindow(ctx context.Context, accts []*accounts.Account, window, roundInterval time.Duration) (ping.WindowReport, error) {
	atomic.AddInt32(&f.windows, 1)
	if f.run != nil {
		if err := f.run(ctx); err != nil {
			return ping.WindowReport{}, err
		}
	}
	return ping.WindowReport{Rounds: []ping.RoundReport{{}}}, nil
}

func noSleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

func TestOrchestratorRunsCycles(t *testing.T) {
	accts := []*accounts.Account{accounts.New("a", 1, nil), accounts.New("b", 2, nil)}
	profiles := &fakeProfiles{fail: func(acct *accounts.Account) error {
		if acct.Index == 1 {
			return errors.New("boom")
		}
		return nil
	}}
	pinger := &fakePinger{}

	var hooked []int
	o := NewOrchestrator(accts, nil, profiles, pinger, Options{DailyClaim: true, MaxCycles: 3}, nil)
	o.sleep = noSleep
	o.OnWindow(func(cycle int, _ []*accounts.Account, _ ping.WindowReport) {
		hooked = append(hooked, cycle)
	})

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if profiles.begins != 3 || profiles.syncs != 6 {
		t.Errorf("Expected 3 cycles of 2 syncs, got begins=%d syncs=%d", profiles.begins, profiles.syncs)
	}
	if pinger.windows != 3 {
		t.Errorf("Expected 3 ping windows, got %d", pinger.windows)
	}
	if len(hooked) != 3 || hooked[2] != 3 {
		t.Errorf("Window hook calls = %v", hooked)
	}
}

func TestOrchestratorSkipsProfilesWhenDailyClaimOff(t *testing.T) {
	profiles := &fakeProfiles{}
	o := NewOrchestrator([]*accounts.Account{accounts.New("a", 1, nil)}, nil, profiles, &fakePinger{}, Options{MaxCycles: 1}, nil)
	o.sleep = noSleep

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if profiles.begins != 0 || profiles.syncs != 0 {
		t.Errorf("Profile stage should not run, begins=%d syncs=%d", profiles.begins, profiles.syncs)
	}
}

func TestOrchestratorSurvivesPanickingCycle(t *testing.T) {
	var n int32
	pinger := &fakePinger{run: func(ctx context.Context) error {
		if atomic.AddInt32(&n, 1) == 1 {
			panic("window exploded")
		}
		return nil
	}}
	o := NewOrchestrator([]*accounts.Account{accounts.New("a", 1, nil)}, nil, nil, pinger, Options{MaxCycles: 2}, nil)
	o.sleep = noSleep

	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if pinger.windows != 2 {
		t.Errorf("Loop should continue after a panic, windows=%d", pinger.windows)
	}
}

func TestOrchestratorStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pinger := &fakePinger{run: func(ctx context.Context) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	}}
	o := NewOrchestrator([]*accounts.Account{accounts.New("a", 1, nil)}, nil, nil, pinger, Options{}, nil)
	o.sleep = noSleep

	err := o.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if pinger.windows != 1 {
		t.Errorf("Expected a single window before cancel, got %d", pinger.windows)
	}
}

func TestRunUntilCancelledWaitsForCleanup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})

	errCh := make(chan error, 1)
	go func() {
		errCh <- RunUntilCancelled(ctx, time.Second, func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		})
	}()

	<-started
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunUntilCancelled did not return")
	}
}

func TestRunUntilCancelledGraceExceeded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	release := make(chan struct{})
	defer close(release)

	err := RunUntilCancelled(ctx, 20*time.Millisecond, func(ctx context.Context) error {
		<-release
		return nil
	})
	if !errors.Is(err, ErrGraceExceeded) {
		t.Errorf("Expected ErrGraceExceeded, got %v", err)
	}
}
