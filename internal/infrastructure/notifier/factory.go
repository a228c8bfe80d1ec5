package notifier

import (
	"github.com/dreschagin/node-health-monitor/internal/application/port"
	"github.com/dreschagin/node-health-monitor/pkg/config"
)

// Build creates notifiers for every channel configured in the fleet file.
// An empty configuration yields an empty slice, which the dispatcher
// treats as "log only".
func Build(cfg config.NotifiersConfig) []port.Notifier {
	var notifiers []port.Notifier
	if cfg.Slack != nil && cfg.Slack.WebhookURL != "" {
		notifiers = append(notifiers, NewSlackNotifier(*cfg.Slack))
	}
	if cfg.Telegram != nil && cfg.Telegram.BotToken != "" {
		notifiers = append(notifiers, NewTelegramNotifier(*cfg.Telegram))
	}
	if cfg.Webhook != nil && cfg.Webhook.URL != "" {
		notifiers = append(notifiers, NewWebhookNotifier(*cfg.Webhook))
	}
	return notifiers
}
