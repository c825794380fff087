package events

import "time"

// EventType represents different types of events in the system
type EventType string

const (
	// Account lifecycle events
	EventTypeAccountActivated      EventType = "account.activated"
	EventTypeAccountActivationMiss EventType = "account.activation_failed"
	EventTypeProfileSynced         EventType = "profile.synced"
	EventTypeProfileSyncFailed     EventType = "profile.sync_failed"
	EventTypeAccountSessionExpired EventType = "account.session_expired"

	// Reward events
	EventTypeRewardClaimed     EventType = "reward.claimed"
	EventTypeRewardClaimFailed EventType = "reward.claim_failed"

	// Ping events
	EventTypePingSucceeded EventType = "ping.succeeded"
	EventTypePingFailed    EventType = "ping.failed"

	// Orchestration events
	EventTypeCycleStarted   EventType = "cycle.started"
	EventTypeCycleCompleted EventType = "cycle.completed"

	// Error events
	EventTypeError EventType = "error"
)

// AllEventTypes lists every event type the system emits
var AllEventTypes = []EventType{
	EventTypeAccountActivated,
	EventTypeAccountActivationMiss,
	EventTypeProfileSynced,
	EventTypeProfileSyncFailed,
	EventTypeAccountSessionExpired,
	EventTypeRewardClaimed,
	EventTypeRewardClaimFailed,
	EventTypePingSucceeded,
	EventTypePingFailed,
	EventTypeCycleStarted,
	EventTypeCycleCompleted,
	EventTypeError,
}

// Event represents a system event with metadata
type Event struct {
	Type      EventType              // Type of event
	Source    string                 // Component that emitted event (e.g., "ping", "rewards")
	Timestamp time.Time              // When the event occurred
	Data      map[string]interface{} // Event-specific data
}

// EventHandler is a function that processes an event
type EventHandler func(Event)

// SubscriptionID uniquely identifies a subscription
type SubscriptionID int64

// Publisher is the side of the bus the engine components see
type Publisher interface {
	Publish(event Event)
}

// EventBus defines the interface for event pub/sub
type EventBus interface {
	Publisher

	// Subscribe registers a handler for a specific event type
	Subscribe(eventType EventType, handler EventHandler) SubscriptionID

	// Unsubscribe removes a subscription by ID
	Unsubscribe(id SubscriptionID)

	// Stop stops the event bus, drains queued events and waits for handlers
	Stop()
}

type discard struct{}

func (discard) Publish(Event) {}

// Discard is a Publisher that drops every event
var Discard Publisher = discard{}

// OrDiscard returns p, or Discard when p is nil
func OrDiscard(p Publisher) Publisher {
	if p == nil {
		return Discard
	}
	return p
}

// Helper functions to create common events

// NewAccountActivatedEvent creates an activation outcome event
func NewAccountActivatedEvent(index int, connected bool, reason string) Event {
	eventType := EventTypeAccountActivated
	if !connected {
		eventType = EventTypeAccountActivationMiss
	}
	return Event{
		Type:      eventType,
		Source:    "activation",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"account": index,
			"reason":  reason,
		},
	}
}

// NewProfileSyncedEvent creates a profile sync event
func NewProfileSyncedEvent(index int, name string, uid string) Event {
	return Event{
		Type:      EventTypeProfileSynced,
		Source:    "profile",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"account": index,
			"name":    name,
			"uid":     uid,
		},
	}
}

// NewProfileSyncFailedEvent creates a profile sync failure event
func NewProfileSyncFailedEvent(index int, err error) Event {
	return Event{
		Type:      EventTypeProfileSyncFailed,
		Source:    "profile",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"account": index,
			"error":   errString(err),
		},
	}
}

// NewSessionExpiredEvent creates an event for an account whose session
// was rejected as expired or unauthorised
func NewSessionExpiredEvent(index int, reason string) Event {
	return Event{
		Type:      EventTypeAccountSessionExpired,
		Source:    "profile",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"account": index,
			"reason":  reason,
		},
	}
}

// NewRewardClaimedEvent creates a reward claimed event
func NewRewardClaimedEvent(index int, missionID, reward string, earnedPoints float64) Event {
	return Event{
		Type:      EventTypeRewardClaimed,
		Source:    "rewards",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"account":       index,
			"mission_id":    missionID,
			"reward":        reward,
			"earned_points": earnedPoints,
		},
	}
}

// NewRewardClaimFailedEvent creates a reward claim failure event
func NewRewardClaimFailedEvent(index int, missionID, reward string, err error) Event {
	return Event{
		Type:      EventTypeRewardClaimFailed,
		Source:    "rewards",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"account":    index,
			"mission_id": missionID,
			"reward":     reward,
			"error":      errString(err),
		},
	}
}

// NewPingEvent creates a ping outcome event
func NewPingEvent(index int, success bool, endpoint string, score int, ipScore float64) Event {
	eventType := EventTypePingSucceeded
	if !success {
		eventType = EventTypePingFailed
	}
	return Event{
		Type:      eventType,
		Source:    "ping",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"account":  index,
			"endpoint": endpoint,
			"score":    score,
			"ip_score": ipScore,
		},
	}
}

// NewCycleEvent creates a cycle started/completed event
func NewCycleEvent(eventType EventType, cycle int, accounts int) Event {
	return Event{
		Type:      eventType,
		Source:    "orchestrator",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"cycle":    cycle,
			"accounts": accounts,
		},
	}
}

// NewErrorEvent creates an error event
func NewErrorEvent(source string, err error, context map[string]interface{}) Event {
	data := map[string]interface{}{
		"error": errString(err),
	}
	for k, v := range context {
		data[k] = v
	}
	return Event{
		Type:      EventTypeError,
		Source:    source,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
