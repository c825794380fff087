package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"jordanella.com/reward-pinger/internal/events"
)

// EventSource is the part of the bus the event logger needs
type EventSource interface {
	Subscribe(eventType events.EventType, handler events.EventHandler) events.SubscriptionID
	Unsubscribe(id events.SubscriptionID)
}

// EventLogger subscribes to the event bus and writes every event to a file
type EventLogger struct {
	logger  *Logger
	source  EventSource
	subs    []events.SubscriptionID
	logFile *os.File
}

// NewEventLogger creates an event logger writing to logDir/events_<timestamp>.log
func NewEventLogger(source EventSource, logDir string) (*EventLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(logDir, fmt.Sprintf("events_%s.log", timestamp))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	logger := NewWriterLogger("events", logFile).SetMinLevel(LogLevelInfo)

	el := &EventLogger{
		logger:  logger,
		source:  source,
		logFile: logFile,
	}
	for _, eventType := range events.AllEventTypes {
		el.subs = append(el.subs, source.Subscribe(eventType, el.handleEvent))
	}

	return el, nil
}

// Path returns the event log file path
func (el *EventLogger) Path() string {
	return el.logFile.Name()
}

func (el *EventLogger) handleEvent(event events.Event) {
	context := map[string]interface{}{
		"source": event.Source,
	}
	for k, v := range event.Data {
		context[k] = v
	}

	el.logger.InfoWithContext(string(event.Type), context)
}

// Close unsubscribes and closes the log file
func (el *EventLogger) Close() error {
	for _, id := range el.subs {
		el.source.Unsubscribe(id)
	}
	el.subs = nil
	_ = el.logger.Sync()
	return el.logFile.Close()
}
