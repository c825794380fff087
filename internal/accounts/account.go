package accounts

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"jordanella.com/reward-pinger/internal/api"
)

// ConnectionStatus is the activation state of an account
type ConnectionStatus string

const (
	StatusNone      ConnectionStatus = "NONE"
	StatusConnected ConnectionStatus = "CONNECTED"
)

// DefaultRetries is the retry budget restored by Reset
const DefaultRetries = 3

// PingStats tracks keep-alive results for one account
type PingStats struct {
	PingCount       int
	SuccessfulPings int
	Score           int
	LastPingTime    time.Time // zero until the first attempt
	StartTime       time.Time
}

// Score deltas applied per classified ping
const (
	ScoreOnSuccess = 10
	ScoreOnFailure = -5
)

// Record applies one classified ping outcome
func (s *PingStats) Record(success bool) {
	s.PingCount++
	if success {
		s.SuccessfulPings++
		s.Score += ScoreOnSuccess
		return
	}
	s.Score += ScoreOnFailure
}

// SuccessRate returns successful pings as a percentage of all pings
func (s *PingStats) SuccessRate() float64 {
	if s.PingCount == 0 {
		return 0
	}
	return float64(s.SuccessfulPings) / float64(s.PingCount) * 100
}

// Account is the in-memory state of one fleet member. It is mutated only
// by the task handling it in the current batch.
type Account struct {
	Token string
	Index int
	Proxy *url.URL

	Status  ConnectionStatus
	Profile api.Profile

	// ClaimedRewards maps reward keys to the time this process claimed
	// them; a zero time means the server reported it already completed.
	ClaimedRewards map[string]time.Time

	PingStats      *PingStats
	Retries        int
	BrowserID      string
	ClientVersion  string
	LastPingStatus string
}

// New creates an account at its initial state
func New(token string, index int, proxy *url.URL) *Account {
	return &Account{
		Token:          token,
		Index:          index,
		Proxy:          proxy,
		Status:         StatusNone,
		ClaimedRewards: make(map[string]time.Time),
		PingStats:      &PingStats{StartTime: time.Now()},
		Retries:        DefaultRetries,
		BrowserID:      uuid.NewString(),
		ClientVersion:  api.DefaultClientVersion,
		LastPingStatus: "Waiting...",
	}
}

// AuthToken implements api.Identity
func (a *Account) AuthToken() string {
	return a.Token
}

// ProxyURL implements api.Identity
func (a *Account) ProxyURL() string {
	if a.Proxy == nil {
		return ""
	}
	return a.Proxy.String()
}

// AccountIndex implements api.Identity
func (a *Account) AccountIndex() int {
	return a.Index
}

// ProxyLabel identifies the route for logs without exposing credentials
func (a *Account) ProxyLabel() string {
	if a.Proxy == nil {
		return "direct"
	}
	return a.Proxy.Host
}

// RewardKey normalises a reward display name into a claimed-set key
func RewardKey(name string) string {
	return strings.ReplaceAll(name, " ", "-")
}

// MarkClaimed adds a reward to the claimed set. Re-adding only refreshes
// the claim time when at is later than the stored one.
func (a *Account) MarkClaimed(name string, at time.Time) {
	if a.ClaimedRewards == nil {
		a.ClaimedRewards = make(map[string]time.Time)
	}
	key := RewardKey(name)
	if prev, ok := a.ClaimedRewards[key]; ok && !at.After(prev) {
		return
	}
	a.ClaimedRewards[key] = at
}

// HasClaimed reports whether the reward is in the claimed set
func (a *Account) HasClaimed(name string) bool {
	_, ok := a.ClaimedRewards[RewardKey(name)]
	return ok
}

// ClaimedAt returns when this process claimed the reward
func (a *Account) ClaimedAt(name string) (time.Time, bool) {
	at, ok := a.ClaimedRewards[RewardKey(name)]
	return at, ok
}

// ClaimedList returns the claimed reward keys in sorted order
func (a *Account) ClaimedList() []string {
	keys := make([]string, 0, len(a.ClaimedRewards))
	for k := range a.ClaimedRewards {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Reset clears connection and profile state and restores the retry
// budget. Token, index, proxy, browser id, ping stats and claimed
// rewards are kept.
func (a *Account) Reset() {
	a.Status = StatusNone
	a.Profile = api.Profile{}
	a.Retries = DefaultRetries
}
