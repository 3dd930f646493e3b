// internal/adapters/notify/notify.go
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"argus/internal/core/domain"
	"argus/internal/core/ports"
	"argus/internal/platform/errors"
	"argus/internal/platform/logx"
)

// LogBroadcaster escribe cada cambio de estado en el logger.
type LogBroadcaster struct {
	logger logx.Logger
}

var _ ports.ProgressBroadcaster = (*LogBroadcaster)(nil)

// NewLogBroadcaster crea el broadcaster de logs.
func NewLogBroadcaster(logger logx.Logger) *LogBroadcaster {
	if logger == nil {
		logger = logx.NewSilent()
	}
	return &LogBroadcaster{logger: logger.With("component", "progress")}
}

// BroadcastProgress implements ports.ProgressBroadcaster
func (b *LogBroadcaster) BroadcastProgress(_ context.Context, taskID string, task domain.CollectionTask) error {
	b.logger.Info("task progress",
		"task_id", taskID,
		"status", string(task.Status),
		"progress", task.ProgressPercent,
		"completed", len(task.CollectorsCompleted),
		"failed", len(task.CollectorsFailed),
	)
	return nil
}

// publisher es la parte de *amqp.Channel que usa el broadcaster.
type publisher interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPBroadcaster publica eventos JSON en un exchange topic. La routing
// key es el tipo de evento (task.progress, task.completed, ...).
type AMQPBroadcaster struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       publisher
	exchange string
	now      func() time.Time
	logger   logx.Logger
}

var _ ports.ProgressBroadcaster = (*AMQPBroadcaster)(nil)

// DefaultExchange es el exchange usado si la config no define uno.
const DefaultExchange = "argus.progress"

// DialAMQP conecta al broker y declara el exchange.
func DialAMQP(url, exchange string, logger logx.Logger) (*AMQPBroadcaster, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(errors.ErrConnectionFailed, err.Error())
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "open amqp channel")
	}
	b, err := newAMQPBroadcaster(ch, exchange, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	b.conn = conn
	return b, nil
}

func newAMQPBroadcaster(ch publisher, exchange string, logger logx.Logger) (*AMQPBroadcaster, error) {
	if logger == nil {
		logger = logx.NewSilent()
	}
	if exchange == "" {
		exchange = DefaultExchange
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, errors.Wrapf(err, "declare exchange %s", exchange)
	}
	return &AMQPBroadcaster{
		ch:       ch,
		exchange: exchange,
		now:      time.Now,
		logger:   logger.With("component", "amqp_broadcaster"),
	}, nil
}

// BroadcastProgress implements ports.ProgressBroadcaster
func (b *AMQPBroadcaster) BroadcastProgress(ctx context.Context, taskID string, task domain.CollectionTask) error {
	ev := ports.NewEvent(task, b.now().UTC())
	ev.TaskID = taskID

	body, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	err = b.ch.PublishWithContext(ctx, b.exchange, string(ev.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.Timestamp,
		MessageId:    taskID,
	})
	if err != nil {
		return errors.Wrapf(err, "publish %s", ev.Type)
	}
	return nil
}

// Close cierra canal y conexión.
func (b *AMQPBroadcaster) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.ch.Close()
	if b.conn != nil {
		err = errors.Join(err, b.conn.Close())
	}
	return err
}

// MultiBroadcaster reparte cada evento a varios broadcasters y une los
// errores.
type MultiBroadcaster []ports.ProgressBroadcaster

var _ ports.ProgressBroadcaster = MultiBroadcaster(nil)

// BroadcastProgress implements ports.ProgressBroadcaster
func (m MultiBroadcaster) BroadcastProgress(ctx context.Context, taskID string, task domain.CollectionTask) error {
	var errs []error
	for _, b := range m {
		if err := b.BroadcastProgress(ctx, taskID, task); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
