package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/vanshika/txwebhook/internal/worker"
)

// SettlementRequest is the message body published for each accepted transaction.
type SettlementRequest struct {
	TransactionID string `json:"transaction_id"`
}

// Encode serialises a settlement request.
func Encode(id string) ([]byte, error) {
	return json.Marshal(SettlementRequest{TransactionID: id})
}

// Decode parses and checks a settlement request.
func Decode(data []byte) (SettlementRequest, error) {
	var req SettlementRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return SettlementRequest{}, fmt.Errorf("decode settlement request: %w", err)
	}
	if strings.TrimSpace(req.TransactionID) == "" {
		return SettlementRequest{}, errors.New("settlement request without transaction_id")
	}
	return req, nil
}

// Connect dials the broker with reconnects enabled.
func Connect(url string, logger *slog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("txwebhook"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return nc, nil
}

// Publisher schedules settlements by publishing them to a subject. Core NATS
// delivery is at-most-once; requests lost while no consumer is subscribed are
// picked up by the recovery scan.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// NewPublisher builds a Publisher on an established connection.
func NewPublisher(conn *nats.Conn, subject string) *Publisher {
	return &Publisher{conn: conn, subject: subject}
}

// Schedule implements service.Scheduler.
func (p *Publisher) Schedule(transactionID string) error {
	data, err := Encode(transactionID)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish settlement %s: %w", transactionID, err)
	}
	return nil
}

// Flush blocks until the broker has acknowledged everything published so far.
func (p *Publisher) Flush(ctx context.Context) error {
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush settlement requests: %w", err)
	}
	return nil
}

// Scheduler is what the consumer hands decoded requests to.
type Scheduler interface {
	Schedule(transactionID string) error
}

// Consumer receives settlement requests through a queue group, so each request
// is handled by one subscriber, and runs them on a local scheduler.
type Consumer struct {
	conn       *nats.Conn
	subject    string
	queueGroup string
	scheduler  Scheduler
	logger     *slog.Logger

	mu  sync.Mutex
	sub *nats.Subscription
}

// NewConsumer builds a Consumer.
func NewConsumer(logger *slog.Logger, conn *nats.Conn, subject, queueGroup string, scheduler Scheduler) *Consumer {
	return &Consumer{
		conn:       conn,
		subject:    subject,
		queueGroup: queueGroup,
		scheduler:  scheduler,
		logger:     logger.With("component", "settlement-consumer"),
	}
}

// Start subscribes to the settlement subject.
func (c *Consumer) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub != nil {
		return nil
	}
	sub, err := c.conn.QueueSubscribe(c.subject, c.queueGroup, c.handle)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", c.subject, err)
	}
	c.sub = sub
	c.logger.Info("consuming settlement requests", "subject", c.subject, "queue", c.queueGroup)
	return nil
}

// Stop drains the subscription so buffered requests are still handed over.
func (c *Consumer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub == nil {
		return nil
	}
	err := c.sub.Drain()
	c.sub = nil
	return err
}

func (c *Consumer) handle(msg *nats.Msg) {
	req, err := Decode(msg.Data)
	if err != nil {
		c.logger.Warn("dropping malformed settlement request", "error", err)
		return
	}
	if err := c.scheduler.Schedule(req.TransactionID); err != nil {
		if errors.Is(err, worker.ErrAlreadyScheduled) {
			return
		}
		c.logger.Error("failed to schedule settlement", "transaction_id", req.TransactionID, "error", err)
	}
}
