package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dreschagin/node-health-monitor/internal/application/dto"
	"github.com/dreschagin/node-health-monitor/internal/domain/health"
	"github.com/dreschagin/node-health-monitor/pkg/logger"
)

// NATSNotifier publishes alert events to NATS JetStream so downstream
// consumers (ticketing, paging, archival) can react without coupling
// to the monitor process.
type NATSNotifier struct {
	nc            *nats.Conn
	js            nats.JetStreamContext
	subjectPrefix string
	logger        *logger.Logger
}

// NewNATSNotifier connects to NATS and prepares the JetStream context.
func NewNATSNotifier(natsURL, subjectPrefix string, log *logger.Logger) (*NATSNotifier, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err.Error())
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	log.Info("Connected to NATS", "url", natsURL)

	return &NATSNotifier{
		nc:            nc,
		js:            js,
		subjectPrefix: subjectPrefix,
		logger:        log,
	}, nil
}

func (n *NATSNotifier) Name() string { return "nats" }

// SendAlert publishes an alert event to <prefix>.<node>.
func (n *NATSNotifier) SendAlert(_ context.Context, nodeName, message string, node *health.NodeHealth) error {
	return n.publish(n.subjectPrefix+"."+nodeName, dto.NewAlertDTO(node, message))
}

// SendRecovery publishes a recovery event to <prefix>.<node>.
func (n *NATSNotifier) SendRecovery(_ context.Context, nodeName, message string) error {
	return n.publish(n.subjectPrefix+"."+nodeName, &dto.AlertDTO{
		Timestamp: time.Now(),
		Node:      nodeName,
		Level:     "recovery",
		Message:   message,
	})
}

func (n *NATSNotifier) publish(subject string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Async publish (fire-and-forget for better performance)
	if _, err := n.js.PublishAsync(subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	n.logger.Debug("Event published", "subject", subject, "size", len(data))
	return nil
}

// Close closes the NATS connection.
func (n *NATSNotifier) Close() error {
	if n.nc != nil {
		n.logger.Info("Closing NATS connection")
		n.nc.Close()
	}
	return nil
}
