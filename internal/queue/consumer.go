package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Mateusbmelzi/hub-entidades/internal/retry"
)

// DefaultAuditPath is where the audit consumer appends lines.
const DefaultAuditPath = "logs/reservations.log"

// AuditLog appends one human-readable line per message to a file.
type AuditLog struct {
	path string
	mu   sync.Mutex
}

// NewAuditLog writes to path, or DefaultAuditPath when empty.
func NewAuditLog(path string) *AuditLog {
	if path == "" {
		path = DefaultAuditPath
	}
	return &AuditLog{path: path}
}

// FormatLine renders msg as a single log line.
func FormatLine(msg ReservationMessage) string {
	parts := []string{fmt.Sprintf("[%s] %s", msg.At, msg.Type), "reservation_id=" + msg.ReservationID}
	if msg.RoomID != "" {
		parts = append(parts, "room_id="+msg.RoomID)
	}
	if msg.EventID != "" {
		parts = append(parts, "event_id="+msg.EventID)
	}
	if msg.PhaseID != "" {
		parts = append(parts, "phase_id="+msg.PhaseID)
	}
	parts = append(parts, fmt.Sprintf("actor=%q", msg.Actor))
	return strings.Join(parts, " | ") + "\n"
}

// Handle decodes body and appends its line.
func (a *AuditLog) Handle(body []byte) error {
	var msg ReservationMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if msg.Type == "" || msg.ReservationID == "" {
		return errors.New("message without type or reservation_id")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(a.path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(FormatLine(msg)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// Consumer reads QueueName and feeds every delivery to an AuditLog.
type Consumer struct {
	url     string
	audit   *AuditLog
	log     *slog.Logger
	backoff retry.Backoff
}

// NewConsumer returns a consumer for the broker at url.
func NewConsumer(url string, audit *AuditLog, log *slog.Logger) *Consumer {
	if log == nil {
		log = slog.Default()
	}
	return &Consumer{
		url:     url,
		audit:   audit,
		log:     log.With(slog.String("component", "audit-consumer")),
		backoff: retry.Backoff{Initial: time.Second, Max: 30 * time.Second},
	}
}

// Run connects, consumes and reconnects with exponential backoff until ctx
// is cancelled.  It only returns ctx.Err().
func (c *Consumer) Run(ctx context.Context) error {
	failures := 0
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			wait := c.backoff.Delay(failures)
			failures++
			c.log.Warn("dial broker failed", slog.Any("err", err), slog.Duration("retry_in", wait))
			if !sleep(ctx, wait) {
				return ctx.Err()
			}
			continue
		}
		failures = 0
		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("consume loop ended, reconnecting", slog.Any("err", err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("set QoS failed", slog.Any("err", err))
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, QueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.audit.Handle(d.Body); err != nil {
				c.log.Error("handle message failed", slog.Any("err", err))
				_ = d.Nack(false, false) // no requeue, avoids tight loops on bad payloads
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// sleep waits for d or until ctx ends, reporting whether the full wait
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
