package notify

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"jordanella.com/reward-pinger/internal/events"
	"jordanella.com/reward-pinger/internal/logging"
)

// Sender is the part of tgbotapi.BotAPI the notifier uses
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// EventSource is the part of the bus the notifier needs
type EventSource interface {
	Subscribe(eventType events.EventType, handler events.EventHandler) events.SubscriptionID
	Unsubscribe(id events.SubscriptionID)
}

// Telegram forwards claimed rewards and finished cycles to a chat
type Telegram struct {
	sender Sender
	chatID int64
	source EventSource
	subs   []events.SubscriptionID
	logger *logging.Logger
}

// NewTelegramBot authorises token against the Bot API
func NewTelegramBot(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to authorise telegram bot: %w", err)
	}
	api.Debug = false
	return api, nil
}

// NewTelegram subscribes a notifier to the bus
func NewTelegram(sender Sender, chatID int64, source EventSource) *Telegram {
	t := &Telegram{
		sender: sender,
		chatID: chatID,
		source: source,
		logger: logging.NewLogger("telegram"),
	}
	t.subs = append(t.subs,
		source.Subscribe(events.EventTypeRewardClaimed, t.handle),
		source.Subscribe(events.EventTypeCycleCompleted, t.handle),
	)
	return t
}

func (t *Telegram) handle(event events.Event) {
	text := FormatEvent(event)
	if text == "" {
		return
	}

	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := t.sender.Send(msg); err != nil {
		t.logger.ErrorWithContext("Failed to send notification", err, map[string]interface{}{
			"event": string(event.Type),
		})
	}
}

// FormatEvent renders the notification text for an event, or "" when the
// event is not announced
func FormatEvent(event events.Event) string {
	switch event.Type {
	case events.EventTypeRewardClaimed:
		var b strings.Builder
		fmt.Fprintf(&b, "🎁 Account %02v claimed %v", event.Data["account"], event.Data["reward"])
		if pts, ok := event.Data["earned_points"].(float64); ok && pts > 0 {
			fmt.Fprintf(&b, " (+%g points)", pts)
		}
		return b.String()

	case events.EventTypeCycleCompleted:
		return fmt.Sprintf("✅ Cycle %v finished for %v accounts", event.Data["cycle"], event.Data["accounts"])
	}
	return ""
}

// Close unsubscribes from the bus
func (t *Telegram) Close() {
	for _, id := range t.subs {
		t.source.Unsubscribe(id)
	}
	t.subs = nil
}
