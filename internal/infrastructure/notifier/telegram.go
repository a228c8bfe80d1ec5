package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dreschagin/node-health-monitor/internal/domain/health"
	"github.com/dreschagin/node-health-monitor/pkg/config"
)

// TelegramNotifier sends alerts through the Telegram bot API.
type TelegramNotifier struct {
	chatID  string
	apiBase string
	client  *http.Client
}

// NewTelegramNotifier creates a Telegram notifier from configuration.
func NewTelegramNotifier(cfg config.TelegramConfig) *TelegramNotifier {
	return &TelegramNotifier{
		chatID:  cfg.ChatID,
		apiBase: "https://api.telegram.org/bot" + cfg.BotToken,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *TelegramNotifier) Name() string { return "telegram" }

// SendAlert sends a Markdown-formatted alert message.
func (n *TelegramNotifier) SendAlert(ctx context.Context, nodeName, message string, node *health.NodeHealth) error {
	return n.sendMessage(ctx, formatTelegramAlert(nodeName, message, node))
}

// SendRecovery sends a recovery notification.
func (n *TelegramNotifier) SendRecovery(ctx context.Context, nodeName, message string) error {
	return n.sendMessage(ctx, fmt.Sprintf("✅ *%s* - %s", nodeName, message))
}

func (n *TelegramNotifier) sendMessage(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{
		"chat_id":    n.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.apiBase+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}
	return nil
}

func formatTelegramAlert(nodeName, message string, node *health.NodeHealth) string {
	lines := []string{
		fmt.Sprintf("%s *%s*", telegramEmoji(node.Status()), nodeName),
		fmt.Sprintf("_%s_", message),
		"",
		"📊 *Metrics:*",
		fmt.Sprintf("  • Memory: `%.1f%%`", node.MemoryPercent),
		fmt.Sprintf("  • Disk: `%.1f%%`", node.DiskPercent),
		fmt.Sprintf("  • Load: `%.2f`", node.LoadAverage[0]),
	}

	if len(node.Services) > 0 {
		lines = append(lines, "", "🔧 *Services:*")
		for _, svc := range node.Services {
			icon := "❌"
			if svc.Running {
				icon = "✅"
			}
			lines = append(lines, fmt.Sprintf("  • %s: %s", svc.Name, icon))
		}
	}

	return strings.Join(lines, "\n")
}

func telegramEmoji(status health.HealthStatus) string {
	switch status {
	case health.StatusHealthy:
		return "✅"
	case health.StatusWarning:
		return "⚠️"
	case health.StatusCritical:
		return "🔴"
	case health.StatusUnreachable:
		return "❌"
	default:
		return "❓"
	}
}
