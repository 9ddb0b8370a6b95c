package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"chat-ingest/internal/platform/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrNotConfirmed broker 以 nack 拒絕或通道在確認前關閉.
var ErrNotConfirmed = errors.New("publish not confirmed by broker")

const (
	defaultPoolSize       = 8
	defaultReconnectDelay = time.Second
	maxReconnectDelay     = 30 * time.Second
)

// publishChannel 單次發佈使用的通道；Publish 會等待 broker 確認.
type publishChannel interface {
	Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// DialFunc 建立新的 AMQP 連線（含重試），斷線後也用它重新連線.
type DialFunc func(ctx context.Context) (*amqp.Connection, error)

// PublisherConfig AMQPPublisher 配置.
type PublisherConfig struct {
	Exchange   string
	RoutingKey string
	PoolSize   int
}

// session 一條連線上的發佈資源；closed 在連線中斷時收到通知.
type session struct {
	pool   *channelPool
	closed <-chan *amqp.Error
}

type connectFunc func(ctx context.Context) (*session, error)

// AMQPPublisher 發佈到 durable topic exchange，持久化投遞並等待 publisher confirm.
// 連線中斷時在背景重新連線並換上新的通道池.
type AMQPPublisher struct {
	exchange   string
	routingKey string

	connect        connectFunc
	reconnectDelay time.Duration

	mu      sync.RWMutex
	current *session

	cancel context.CancelFunc
	done   chan struct{}
}

// NewAMQPPublisher 連線、宣告 exchange 並啟動斷線重連.
func NewAMQPPublisher(ctx context.Context, dial DialFunc, cfg PublisherConfig) (*AMQPPublisher, error) {
	connect := func(ctx context.Context) (*session, error) {
		conn, err := dial(ctx)
		if err != nil {
			return nil, err
		}
		return openSession(conn, cfg.Exchange, cfg.PoolSize)
	}
	return newPublisher(ctx, connect, cfg, defaultReconnectDelay)
}

func newPublisher(ctx context.Context, connect connectFunc, cfg PublisherConfig, reconnectDelay time.Duration) (*AMQPPublisher, error) {
	s, err := connect(ctx)
	if err != nil {
		return nil, err
	}

	superviseCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p := &AMQPPublisher{
		exchange:       cfg.Exchange,
		routingKey:     cfg.RoutingKey,
		connect:        connect,
		reconnectDelay: reconnectDelay,
		current:        s,
		cancel:         cancel,
		done:           make(chan struct{}),
	}
	go p.supervise(superviseCtx)
	return p, nil
}

func openSession(conn *amqp.Connection, exchange string, poolSize int) (*session, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	pool := newChannelPool(poolSize, func() (publishChannel, error) {
		return openConfirmingChannel(conn)
	})
	return &session{
		pool:   pool,
		closed: conn.NotifyClose(make(chan *amqp.Error, 1)),
	}, nil
}

func (p *AMQPPublisher) session() *session {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// supervise 連線中斷後以指數退避重新連線，直到成功或 Close.
func (p *AMQPPublisher) supervise(ctx context.Context) {
	defer close(p.done)
	for {
		s := p.session()
		select {
		case <-ctx.Done():
			return
		case amqpErr, ok := <-s.closed:
			reason := "connection closed"
			if ok && amqpErr != nil {
				reason = amqpErr.Error()
			}
			logger.Error(ctx, "RabbitMQ 連線中斷，重新連線中",
				logger.WithAction("queue"),
				logger.WithDetails(map[string]interface{}{"reason": reason}))
			s.pool.Close()
		}

		if !p.reconnect(ctx) {
			return
		}
	}
}

func (p *AMQPPublisher) reconnect(ctx context.Context) bool {
	delay := p.reconnectDelay
	for {
		s, err := p.connect(ctx)
		if err == nil {
			p.mu.Lock()
			p.current = s
			p.mu.Unlock()
			logger.Info(ctx, "RabbitMQ 已重新連線", logger.WithAction("queue"))
			return true
		}

		logger.Warning(ctx, "RabbitMQ 重新連線失敗",
			logger.WithAction("queue"),
			logger.WithDetails(map[string]interface{}{
				"retry_in": delay.String(),
				"error":    err.Error(),
			}))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
		if delay *= 2; delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// Publish 以持久化 JSON 發佈；AMQP message id 為持久化後的訊息 ID.
func (p *AMQPPublisher) Publish(ctx context.Context, job *MediaJob) error {
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal media job: %w", err)
	}

	pool := p.session().pool
	ch, err := pool.Borrow(ctx)
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}

	err = ch.Publish(ctx, p.exchange, p.routingKey, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     job.MessageID,
		CorrelationId: logger.GetTraceID(ctx),
		Type:          "media.job",
		Timestamp:     job.CreatedAt,
		Body:          body,
	})
	pool.Return(ch, err == nil)
	if err != nil {
		return fmt.Errorf("publish %s/%s: %w", p.exchange, p.routingKey, err)
	}

	logger.Debug(ctx, "媒體任務已發佈",
		logger.WithCompanyID(job.CompanyID),
		logger.WithMessageID(job.MessageID),
		logger.WithDetails(map[string]interface{}{
			"exchange":    p.exchange,
			"routing_key": p.routingKey,
			"attachments": len(job.Attachments),
		}))
	return nil
}

// Close 停止重連並關閉通道池；連線由呼叫端擁有.
func (p *AMQPPublisher) Close() error {
	p.cancel()
	<-p.done
	p.session().pool.Close()
	return nil
}

// confirmingChannel 開啟 confirm 模式的 AMQP 通道.
type confirmingChannel struct {
	ch       *amqp.Channel
	confirms <-chan amqp.Confirmation
}

func openConfirmingChannel(conn *amqp.Connection) (*confirmingChannel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("confirm mode: %w", err)
	}
	return &confirmingChannel{
		ch:       ch,
		confirms: ch.NotifyPublish(make(chan amqp.Confirmation, 1)),
	}, nil
}

func (c *confirmingChannel) Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error {
	if err := c.ch.PublishWithContext(ctx, exchange, key, false, false, msg); err != nil {
		return err
	}
	select {
	case confirm, ok := <-c.confirms:
		if !ok || !confirm.Ack {
			return ErrNotConfirmed
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *confirmingChannel) IsClosed() bool {
	return c.ch.IsClosed()
}

func (c *confirmingChannel) Close() error {
	return c.ch.Close()
}
