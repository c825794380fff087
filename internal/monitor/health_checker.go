package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"jordanella.com/reward-pinger/internal/events"
)

// UnhealthyCallback is called when the fleet looks unhealthy
type UnhealthyCallback func(reason string, err error)

// Reasons passed to UnhealthyCallback
const (
	ReasonStalled      = "fleet_stalled"
	ReasonPingsFailing = "pings_failing"
)

// EventSource is the part of the bus the health checker needs
type EventSource interface {
	Subscribe(eventType events.EventType, handler events.EventHandler) events.SubscriptionID
	Unsubscribe(id events.SubscriptionID)
}

// HealthChecker watches the event stream. It reports a stall when no
// account event arrives for stuckTimeout on stuckThreshold consecutive
// checks, and a failing fleet when failureThreshold pings in a row fail
// across all accounts.
type HealthChecker struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	source EventSource
	subs   []events.SubscriptionID

	lastActivityTime    time.Time
	stuckCount          int
	stuckThreshold      int
	stuckTimeout        time.Duration
	checkInterval       time.Duration
	consecutiveFailures int
	failureThreshold    int
	onUnhealthy         UnhealthyCallback
	now                 func() time.Time
	mu                  sync.Mutex
}

// NewHealthChecker creates a health checker fed by source
func NewHealthChecker(source EventSource) *HealthChecker {
	ctx, cancel := context.WithCancel(context.Background())
	return &HealthChecker{
		ctx:              ctx,
		cancel:           cancel,
		source:           source,
		lastActivityTime: time.Now(),
		stuckThreshold:   3,
		stuckTimeout:     5 * time.Minute,
		checkInterval:    time.Minute,
		failureThreshold: 50,
		now:              time.Now,
	}
}

// WithUnhealthyCallback sets the callback for unhealthy events
func (hc *HealthChecker) WithUnhealthyCallback(callback UnhealthyCallback) *HealthChecker {
	hc.onUnhealthy = callback
	return hc
}

// WithCheckInterval sets how often stall detection runs
func (hc *HealthChecker) WithCheckInterval(interval time.Duration) *HealthChecker {
	hc.checkInterval = interval
	return hc
}

// WithStuckTimeout sets how long without activity counts as a stalled check
func (hc *HealthChecker) WithStuckTimeout(timeout time.Duration) *HealthChecker {
	hc.stuckTimeout = timeout
	return hc
}

// WithFailureThreshold sets how many consecutive failed pings are tolerated
func (hc *HealthChecker) WithFailureThreshold(n int) *HealthChecker {
	hc.failureThreshold = n
	return hc
}

// Start subscribes to the bus and begins stall monitoring
func (hc *HealthChecker) Start() {
	for _, eventType := range events.AllEventTypes {
		if eventType == events.EventTypeError {
			continue
		}
		hc.subs = append(hc.subs, hc.source.Subscribe(eventType, hc.handleEvent))
	}

	hc.wg.Add(1)
	go hc.monitorStuck()
}

// Stop stops health monitoring
func (hc *HealthChecker) Stop() {
	hc.cancel()
	hc.wg.Wait()
	for _, id := range hc.subs {
		hc.source.Unsubscribe(id)
	}
	hc.subs = nil
}

// RecordActivity records fleet activity to prevent stall detection
func (hc *HealthChecker) RecordActivity() {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.lastActivityTime = hc.now()
	hc.stuckCount = 0
}

func (hc *HealthChecker) handleEvent(event events.Event) {
	hc.RecordActivity()

	switch event.Type {
	case events.EventTypePingSucceeded:
		hc.mu.Lock()
		hc.consecutiveFailures = 0
		hc.mu.Unlock()

	case events.EventTypePingFailed:
		hc.mu.Lock()
		hc.consecutiveFailures++
		tripped := hc.failureThreshold > 0 && hc.consecutiveFailures >= hc.failureThreshold
		n := hc.consecutiveFailures
		if tripped {
			hc.consecutiveFailures = 0
		}
		hc.mu.Unlock()

		if tripped && hc.onUnhealthy != nil {
			hc.onUnhealthy(ReasonPingsFailing, fmt.Errorf("%d consecutive ping failures across the fleet", n))
		}
	}
}

func (hc *HealthChecker) monitorStuck() {
	defer hc.wg.Done()

	ticker := time.NewTicker(hc.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-hc.ctx.Done():
			return
		case <-ticker.C:
			hc.checkIfStuck()
		}
	}
}

func (hc *HealthChecker) checkIfStuck() {
	hc.mu.Lock()
	timeSinceActivity := hc.now().Sub(hc.lastActivityTime)

	var report error
	if timeSinceActivity > hc.stuckTimeout {
		hc.stuckCount++
		if hc.stuckCount >= hc.stuckThreshold {
			report = fmt.Errorf("no activity for %v", timeSinceActivity.Round(time.Second))
			hc.stuckCount = 0
		}
	} else {
		hc.stuckCount = 0
	}
	hc.mu.Unlock()

	if report != nil && hc.onUnhealthy != nil {
		hc.onUnhealthy(ReasonStalled, report)
	}
}
