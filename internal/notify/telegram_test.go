package notify

import (
	"errors"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"jordanella.com/reward-pinger/internal/events"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, f.err
}

func TestTelegramForwardsSelectedEvents(t *testing.T) {
	bus := events.NewEventBus(8)
	sender := &fakeSender{}
	notifier := NewTelegram(sender, 777, bus)

	bus.Publish(events.NewRewardClaimedEvent(3, "1", "每日签到", 25))
	bus.Publish(events.NewPingEvent(3, true, "u", 10, 1))
	bus.Publish(events.NewCycleEvent(events.EventTypeCycleCompleted, 2, 5))
	bus.Stop()
	notifier.Close()

	if len(sender.sent) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(sender.sent))
	}
	for _, msg := range sender.sent {
		if msg.ChatID != 777 {
			t.Errorf("Message sent to chat %d", msg.ChatID)
		}
	}
}

func TestTelegramSendFailureIsContained(t *testing.T) {
	bus := events.NewEventBus(4)
	sender := &fakeSender{err: errors.New("rate limited")}
	notifier := NewTelegram(sender, 1, bus)

	bus.Publish(events.NewCycleEvent(events.EventTypeCycleCompleted, 1, 1))
	bus.Stop()
	notifier.Close()

	if bus.HandlerPanics() != 0 {
		t.Error("Send errors must not panic the handler")
	}
}

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		name  string
		event events.Event
		want  string
	}{
		{"claim with points", events.NewRewardClaimedEvent(3, "1", "每日签到", 25), "Account 03 claimed 每日签到 (+25 points)"},
		{"claim without points", events.NewRewardClaimedEvent(12, "15", "7天", 0), "Account 12 claimed 7天"},
		{"cycle", events.NewCycleEvent(events.EventTypeCycleCompleted, 4, 9), "Cycle 4 finished for 9 accounts"},
		{"ignored", events.NewPingEvent(1, true, "u", 10, 0), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatEvent(tt.event)
			if tt.want == "" {
				if got != "" {
					t.Errorf("Expected no text, got %q", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("FormatEvent() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}
