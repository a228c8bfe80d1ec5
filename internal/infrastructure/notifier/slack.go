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

// SlackNotifier sends alerts to a Slack incoming webhook.
type SlackNotifier struct {
	webhookURL string
	channel    string
	client     *http.Client
}

// NewSlackNotifier creates a Slack notifier from configuration.
func NewSlackNotifier(cfg config.SlackConfig) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: cfg.WebhookURL,
		channel:    cfg.Channel,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *SlackNotifier) Name() string { return "slack" }

type slackPayload struct {
	Text        string            `json:"text"`
	Channel     string            `json:"channel,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title,omitempty"`
	Text   string       `json:"text"`
	Fields []slackField `json:"fields,omitempty"`
	Footer string       `json:"footer,omitempty"`
	TS     int64        `json:"ts,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// SendAlert posts an alert message with a metrics attachment.
func (n *SlackNotifier) SendAlert(ctx context.Context, nodeName, message string, node *health.NodeHealth) error {
	status := node.Status()

	fields := []slackField{
		{Title: "Memory", Value: fmt.Sprintf("%.1f%%", node.MemoryPercent), Short: true},
		{Title: "Disk", Value: fmt.Sprintf("%.1f%%", node.DiskPercent), Short: true},
		{Title: "Load", Value: fmt.Sprintf("%.2f", node.LoadAverage[0]), Short: true},
		{Title: "Platform", Value: node.Platform, Short: true},
	}
	if len(node.Services) > 0 {
		var parts []string
		for _, svc := range node.Services {
			mark := "✗"
			if svc.Running {
				mark = "✓"
			}
			parts = append(parts, fmt.Sprintf("%s (%s)", svc.Name, mark))
		}
		fields = append(fields, slackField{Title: "Services", Value: strings.Join(parts, ", ")})
	}

	payload := slackPayload{
		Text:    fmt.Sprintf("🚨 Alert: %s", nodeName),
		Channel: n.channel,
		Attachments: []slackAttachment{{
			Color:  slackColor(status),
			Title:  fmt.Sprintf("%s - %s", nodeName, strings.ToUpper(status.String())),
			Text:   message,
			Fields: fields,
			Footer: "Node Health Monitor",
			TS:     node.Timestamp.Unix(),
		}},
	}

	return n.post(ctx, payload)
}

// SendRecovery posts a recovery notification.
func (n *SlackNotifier) SendRecovery(ctx context.Context, nodeName, message string) error {
	payload := slackPayload{
		Text:    fmt.Sprintf("✅ *%s* - %s", nodeName, message),
		Channel: n.channel,
		Attachments: []slackAttachment{{
			Color: "good",
			Text:  "System has recovered to healthy state.",
		}},
	}
	return n.post(ctx, payload)
}

func (n *SlackNotifier) post(ctx context.Context, payload slackPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send slack notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func slackColor(status health.HealthStatus) string {
	switch status {
	case health.StatusHealthy:
		return "good"
	case health.StatusWarning:
		return "warning"
	case health.StatusCritical, health.StatusUnreachable:
		return "danger"
	default:
		return "#808080"
	}
}
