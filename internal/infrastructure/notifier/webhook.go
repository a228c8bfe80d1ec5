package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dreschagin/node-health-monitor/internal/application/dto"
	"github.com/dreschagin/node-health-monitor/internal/domain/health"
	"github.com/dreschagin/node-health-monitor/pkg/config"
)

// WebhookNotifier posts alert events to an arbitrary HTTP endpoint.
type WebhookNotifier struct {
	url     string
	method  string
	headers map[string]string
	client  *http.Client
}

// NewWebhookNotifier creates a generic webhook notifier from configuration.
func NewWebhookNotifier(cfg config.WebhookConfig) *WebhookNotifier {
	method := cfg.Method
	if method == "" {
		method = http.MethodPost
	}
	return &WebhookNotifier{
		url:     cfg.URL,
		method:  method,
		headers: cfg.Headers,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *WebhookNotifier) Name() string { return "webhook" }

type webhookEvent struct {
	Event   string             `json:"event"`
	Node    string             `json:"node"`
	Message string             `json:"message"`
	Status  string             `json:"status,omitempty"`
	Health  *dto.NodeHealthDTO `json:"health,omitempty"`
}

// SendAlert posts the full node snapshot along with the alert.
func (n *WebhookNotifier) SendAlert(ctx context.Context, nodeName, message string, node *health.NodeHealth) error {
	return n.send(ctx, webhookEvent{
		Event:   "alert",
		Node:    nodeName,
		Message: message,
		Status:  node.Status().String(),
		Health:  dto.FromNodeHealth(node),
	})
}

// SendRecovery posts a recovery event.
func (n *WebhookNotifier) SendRecovery(ctx context.Context, nodeName, message string) error {
	return n.send(ctx, webhookEvent{
		Event:   "recovery",
		Node:    nodeName,
		Message: message,
	})
}

func (n *WebhookNotifier) send(ctx context.Context, event webhookEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, n.method, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range n.headers {
		req.Header.Set(key, value)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook notification: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
		return nil
	default:
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
}
