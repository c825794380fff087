package database

import (
	"database/sql"
	"fmt"
	"time"
)

// StartRun creates a run row and returns its ID
func (db *DB) StartRun(accounts int) (int64, error) {
	var runID int64
	err := db.ExecTx(func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			INSERT INTO runs (started_at, accounts, status)
			VALUES (?, ?, 'running')
		`, time.Now(), accounts)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		runID, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return runID, nil
}

// IncrementCycles bumps the cycle counter of a run
func (db *DB) IncrementCycles(runID int64) error {
	_, err := db.conn.Exec(`UPDATE runs SET cycles = cycles + 1 WHERE id = ?`, runID)
	return err
}

// FinishRun records the end of a run
func (db *DB) FinishRun(runID int64, status RunStatus) error {
	_, err := db.conn.Exec(`
		UPDATE runs
		SET finished_at = ?,
			status = ?
		WHERE id = ?
	`, time.Now(), string(status), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run %d: %w", runID, err)
	}
	return nil
}

// GetRun retrieves a run by ID
func (db *DB) GetRun(runID int64) (*Run, error) {
	run := &Run{}
	var status string
	err := db.conn.QueryRow(`
		SELECT id, started_at, finished_at, accounts, cycles, status
		FROM runs
		WHERE id = ?
	`, runID).Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Accounts, &run.Cycles, &status)
	if err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	return run, nil
}

// RecordPing appends a ping outcome
func (db *DB) RecordPing(entry PingEntry) error {
	_, err := db.conn.Exec(`
		INSERT INTO ping_log (
			run_id, account_index, success, endpoint, score, ip_score, pinged_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.RunID, entry.AccountIndex, entry.Success, entry.Endpoint,
		entry.Score, entry.IPScore, entry.PingedAt)
	if err != nil {
		return fmt.Errorf("failed to insert ping: %w", err)
	}
	return nil
}

// RecordRewardClaim appends a claim attempt
func (db *DB) RecordRewardClaim(claim RewardClaim) error {
	var errMsg *string
	if claim.ErrorMessage != "" {
		errMsg = &claim.ErrorMessage
	}

	_, err := db.conn.Exec(`
		INSERT INTO reward_claims (
			run_id, account_index, mission_id, reward, success,
			earned_points, error_message, claimed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, claim.RunID, claim.AccountIndex, claim.MissionID, claim.Reward, claim.Success,
		claim.EarnedPoints, errMsg, claim.ClaimedAt)
	if err != nil {
		return fmt.Errorf("failed to insert reward claim: %w", err)
	}
	return nil
}

// RecordAccountEvent appends any other event
func (db *DB) RecordAccountEvent(event AccountEvent) error {
	var index *int
	if event.AccountIndex > 0 {
		index = &event.AccountIndex
	}

	_, err := db.conn.Exec(`
		INSERT INTO account_events (run_id, account_index, event_type, detail, occurred_at)
		VALUES (?, ?, ?, ?, ?)
	`, event.RunID, index, event.EventType, event.Detail, event.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to insert account event: %w", err)
	}
	return nil
}

// GetAccountTotals aggregates pings and successful claims per account index
func (db *DB) GetAccountTotals() ([]*AccountTotals, error) {
	rows, err := db.conn.Query(`
		SELECT
			p.account_index,
			p.pings,
			p.successful,
			COALESCE(c.claims, 0),
			COALESCE(c.earned, 0),
			p.last_ping
		FROM (
			SELECT account_index,
				COUNT(*) AS pings,
				SUM(CASE WHEN success THEN 1 ELSE 0 END) AS successful,
				MAX(pinged_at) AS last_ping
			FROM ping_log
			GROUP BY account_index
		) p
		LEFT JOIN (
			SELECT account_index,
				COUNT(*) AS claims,
				SUM(earned_points) AS earned
			FROM reward_claims
			WHERE success
			GROUP BY account_index
		) c ON c.account_index = p.account_index
		ORDER BY p.account_index
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []*AccountTotals
	for rows.Next() {
		t := &AccountTotals{}
		var lastPing sql.NullString
		if err := rows.Scan(&t.AccountIndex, &t.Pings, &t.SuccessfulPings, &t.Claims, &t.EarnedPoints, &lastPing); err != nil {
			return nil, err
		}
		if lastPing.Valid {
			if ts, err := parseSQLiteTime(lastPing.String); err == nil {
				t.LastPingAt = sql.NullTime{Time: ts, Valid: true}
			}
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// sqliteTimeFormats are the layouts go-sqlite3 writes time.Time values in
var sqliteTimeFormats = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// parseSQLiteTime parses aggregate results, which lose the column's
// DATETIME type and come back as plain strings
func parseSQLiteTime(s string) (time.Time, error) {
	for _, layout := range sqliteTimeFormats {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}
