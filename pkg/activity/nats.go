package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/pramodksahoo/audit-reporter/pkg/models"
)

// DefaultSubject is the subject generation events are published on
const DefaultSubject = "audit.reports.generated"

// flushing requires a deadline
const flushTimeout = 5 * time.Second

// NATSConfig configures NATS connectivity
type NATSConfig struct {
	URL                  string        `yaml:"url" json:"url"`
	Subject              string        `yaml:"subject" json:"subject"`
	ConnectionTimeout    time.Duration `yaml:"connection_timeout" json:"connection_timeout"`
	ReconnectWait        time.Duration `yaml:"reconnect_wait" json:"reconnect_wait"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts" json:"max_reconnect_attempts"`
	UserCredentials      string        `yaml:"user_credentials" json:"user_credentials,omitempty"`
}

// DefaultNATSConfig returns the default NATS configuration
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:                  nats.DefaultURL,
		Subject:              DefaultSubject,
		ConnectionTimeout:    10 * time.Second,
		ReconnectWait:        2 * time.Second,
		MaxReconnectAttempts: 10,
	}
}

// GenerationEvent is the message published for every generation
type GenerationEvent struct {
	EventType   string                   `json:"event_type"`
	Record      *models.GenerationRecord `json:"record"`
	PublishedAt time.Time                `json:"published_at"`
}

type natsConn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSPublisher publishes generation events to a NATS subject
type NATSPublisher struct {
	conn    natsConn
	subject string
	logger  *zap.Logger
}

// NewNATSPublisher connects to NATS
func NewNATSPublisher(config NATSConfig, logger *zap.Logger) (*NATSPublisher, error) {
	defaults := DefaultNATSConfig()
	if config.URL == "" {
		config.URL = defaults.URL
	}
	if config.ConnectionTimeout <= 0 {
		config.ConnectionTimeout = defaults.ConnectionTimeout
	}
	if config.ReconnectWait <= 0 {
		config.ReconnectWait = defaults.ReconnectWait
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []nats.Option{
		nats.Name("audit-reporter"),
		nats.Timeout(config.ConnectionTimeout),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnectAttempts),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			logger.Info("nats connection closed")
		}),
	}
	if config.UserCredentials != "" {
		opts = append(opts, nats.UserCredentials(config.UserCredentials))
	}

	conn, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return newNATSPublisher(conn, config.Subject, logger), nil
}

func newNATSPublisher(conn natsConn, subject string, logger *zap.Logger) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{conn: conn, subject: subject, logger: logger}
}

// Record implements Recorder
func (p *NATSPublisher) Record(ctx context.Context, rec *models.GenerationRecord) error {
	data, err := json.Marshal(GenerationEvent{
		EventType:   "report." + string(rec.Status),
		Record:      rec,
		PublishedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal generation event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish generation event: %w", err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flushTimeout)
		defer cancel()
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush generation event: %w", err)
	}
	p.logger.Debug("published generation event", zap.String("subject", p.subject), zap.String("id", rec.ID))
	return nil
}

// Close closes the connection
func (p *NATSPublisher) Close() {
	p.conn.Close()
}
