package driver

import (
	"context"
	"fmt"
	"time"

	"chat-ingest/internal/platform/config"
	"chat-ingest/internal/platform/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// maxDialDelay 重試間隔上限.
const maxDialDelay = 30 * time.Second

var amqpConn *amqp.Connection

// DialAMQP 以指數退避重試連接 RabbitMQ.
func DialAMQP(ctx context.Context, cfg config.QueueConfig) (*amqp.Connection, error) {
	delay := time.Duration(cfg.RetryDelayMS) * time.Millisecond
	var lastErr error

	for attempt := 1; attempt <= cfg.RetryAttempts; attempt++ {
		conn, err := amqp.Dial(cfg.URL)
		if err == nil {
			if attempt > 1 {
				logger.Infof(ctx, "RabbitMQ 連接成功，第 %d 次嘗試", attempt)
			}
			amqpConn = conn
			return conn, nil
		}
		lastErr = err
		if attempt == cfg.RetryAttempts {
			break
		}

		sleep := backoff(delay, attempt)
		logger.Warning(ctx, "RabbitMQ 連接失敗，稍後重試",
			logger.WithDetails(map[string]interface{}{
				"attempt": attempt,
				"sleep":   sleep.String(),
				"error":   err.Error(),
			}))

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("dial cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}

	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", cfg.RetryAttempts, lastErr)
}

// backoff 第 n 次失敗後的等待時間：base * 2^(n-1)，不超過 maxDialDelay.
func backoff(base time.Duration, attempt int) time.Duration {
	if attempt > 16 {
		return maxDialDelay
	}
	sleep := base << (attempt - 1)
	if sleep <= 0 || sleep > maxDialDelay {
		return maxDialDelay
	}
	return sleep
}

// AMQPConnected 健康檢查用.
func AMQPConnected() bool {
	return amqpConn != nil && !amqpConn.IsClosed()
}

// CloseAMQP 關閉 RabbitMQ 連接.
func CloseAMQP() error {
	if amqpConn == nil {
		return nil
	}
	err := amqpConn.Close()
	amqpConn = nil
	return err
}
