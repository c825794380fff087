package database

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"jordanella.com/reward-pinger/internal/events"
	"jordanella.com/reward-pinger/internal/logging"
)

// EventSource is the part of the bus the recorder needs
type EventSource interface {
	Subscribe(eventType events.EventType, handler events.EventHandler) events.SubscriptionID
	Unsubscribe(id events.SubscriptionID)
}

// Recorder writes bus events into the journal under one run. The journal
// is write-only; nothing reads it back into account state.
type Recorder struct {
	db     *DB
	runID  int64
	source EventSource
	subs   []events.SubscriptionID
	logger *logging.Logger

	failures atomic.Int64
}

// NewRecorder subscribes to every event type and records under runID
func NewRecorder(db *DB, runID int64, source EventSource) *Recorder {
	r := &Recorder{
		db:     db,
		runID:  runID,
		source: source,
		logger: logging.NewLogger("journal"),
	}
	for _, eventType := range events.AllEventTypes {
		r.subs = append(r.subs, source.Subscribe(eventType, r.Handle))
	}
	return r
}

// Failures returns how many events could not be written
func (r *Recorder) Failures() int64 {
	return r.failures.Load()
}

// Handle journals a single event
func (r *Recorder) Handle(event events.Event) {
	var err error
	index := intField(event.Data, "account")

	switch event.Type {
	case events.EventTypePingSucceeded, events.EventTypePingFailed:
		err = r.db.RecordPing(PingEntry{
			RunID:        r.runID,
			AccountIndex: index,
			Success:      event.Type == events.EventTypePingSucceeded,
			Endpoint:     stringField(event.Data, "endpoint"),
			Score:        intField(event.Data, "score"),
			IPScore:      floatField(event.Data, "ip_score"),
			PingedAt:     event.Timestamp,
		})

	case events.EventTypeRewardClaimed, events.EventTypeRewardClaimFailed:
		err = r.db.RecordRewardClaim(RewardClaim{
			RunID:        r.runID,
			AccountIndex: index,
			MissionID:    stringField(event.Data, "mission_id"),
			Reward:       stringField(event.Data, "reward"),
			Success:      event.Type == events.EventTypeRewardClaimed,
			EarnedPoints: floatField(event.Data, "earned_points"),
			ErrorMessage: stringField(event.Data, "error"),
			ClaimedAt:    event.Timestamp,
		})

	case events.EventTypeCycleCompleted:
		err = r.db.IncrementCycles(r.runID)

	case events.EventTypeCycleStarted:
		// cycle counts come from completions

	default:
		err = r.db.RecordAccountEvent(AccountEvent{
			RunID:        r.runID,
			AccountIndex: index,
			EventType:    string(event.Type),
			Detail:       detail(event.Data),
			OccurredAt:   event.Timestamp,
		})
	}

	if err != nil {
		r.failures.Add(1)
		r.logger.ErrorWithContext("Failed to journal event", err, map[string]interface{}{
			"event": string(event.Type),
		})
	}
}

// Close unsubscribes from the bus
func (r *Recorder) Close() {
	for _, id := range r.subs {
		r.source.Unsubscribe(id)
	}
	r.subs = nil
}

func intField(data map[string]interface{}, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func floatField(data map[string]interface{}, key string) float64 {
	switch v := data[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func stringField(data map[string]interface{}, key string) string {
	if s, ok := data[key].(string); ok {
		return s
	}
	return ""
}

// detail flattens event data into "k=v" pairs, sorted, without the
// account index which has its own column
func detail(data map[string]interface{}) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		if k != "account" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, data[k]))
	}
	return strings.Join(parts, " ")
}
