package database

import (
	"database/sql"
	"time"
)

// RunStatus is the final state of a run
type RunStatus string

const (
	RunStatusRunning     RunStatus = "running"
	RunStatusCompleted   RunStatus = "completed"
	RunStatusInterrupted RunStatus = "interrupted"
	RunStatusFailed      RunStatus = "failed"
)

// Run is one process run of the pinger
type Run struct {
	ID         int64        `db:"id"`
	StartedAt  time.Time    `db:"started_at"`
	FinishedAt sql.NullTime `db:"finished_at"`
	Accounts   int          `db:"accounts"`
	Cycles     int          `db:"cycles"`
	Status     RunStatus    `db:"status"`
}

// PingEntry is one ping outcome
type PingEntry struct {
	RunID        int64
	AccountIndex int
	Success      bool
	Endpoint     string
	Score        int
	IPScore      float64
	PingedAt     time.Time
}

// RewardClaim is one claim attempt
type RewardClaim struct {
	RunID        int64
	AccountIndex int
	MissionID    string
	Reward       string
	Success      bool
	EarnedPoints float64
	ErrorMessage string
	ClaimedAt    time.Time
}

// AccountEvent is any other journaled event. AccountIndex is zero for
// fleet-wide events.
type AccountEvent struct {
	RunID        int64
	AccountIndex int
	EventType    string
	Detail       string
	OccurredAt   time.Time
}

// AccountTotals aggregates the journal for one account index
type AccountTotals struct {
	AccountIndex    int
	Pings           int64
	SuccessfulPings int64
	Claims          int64
	EarnedPoints    float64
	LastPingAt      sql.NullTime
}
