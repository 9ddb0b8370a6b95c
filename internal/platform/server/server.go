package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"chat-ingest/internal/constants"
	"chat-ingest/internal/ingest"
	"chat-ingest/internal/platform/config"
	"chat-ingest/internal/platform/driver"
	"chat-ingest/internal/platform/health"
	"chat-ingest/internal/platform/logger"
	"chat-ingest/internal/queue"
	"chat-ingest/internal/storage/database"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Start 連接依賴、建立管線並啟動 HTTP 伺服器，直到 ctx 結束.
func Start(ctx context.Context) error {
	cfg := config.Get()
	if cfg == nil {
		return fmt.Errorf("配置未載入")
	}
	logger.Infof(ctx, "正在啟動 %s 伺服器，環境: %s", cfg.App.Name, config.GetEnv())

	// connect db
	if err := driver.ConnectMongo(ctx); err != nil {
		logger.Errorf(ctx, "資料庫連接失敗: %v", err)
		return err
	}
	defer func() {
		if err := driver.CloseMongo(); err != nil {
			logger.Errorf(ctx, "關閉 MongoDB 連接失敗: %v", err)
		}
	}()

	db := driver.GetMongoDatabase()
	if err := database.CreateIndexes(ctx, db); err != nil {
		logger.Errorf(ctx, "建立索引失敗: %v", err)
		return err
	}
	repos := database.NewRepositories(db)
	logger.Infof(ctx, "儲存庫集合初始化完成")

	publisher, fallback := openPublisher(ctx, cfg.Queue)
	defer func() {
		if publisher != nil {
			if err := publisher.Close(); err != nil {
				logger.Errorf(ctx, "關閉媒體任務發佈者失敗: %v", err)
			}
		}
		if err := driver.CloseAMQP(); err != nil {
			logger.Errorf(ctx, "關閉 RabbitMQ 連接失敗: %v", err)
		}
	}()

	pipeline := ingest.NewPipeline(repos,
		ingest.WithPublisher(publisher),
		ingest.WithWorkers(cfg.Ingest.Workers),
		ingest.WithNormalizer(ingest.NewNormalizer(ingest.NormalizerOptions{
			DefaultDirection: ingest.Direction(cfg.Ingest.DefaultDirection),
			MaxRawString:     cfg.Ingest.MaxRawString,
		})),
	)
	healthHandler := health.NewHealthHandler(health.WithQueueCheck(cfg.Queue.Enabled, fallback, driver.AMQPConnected))

	tlsConfig, err := loadTLSConfig(cfg.Server.TLS)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              config.GetServerAddr(),
		Handler:           Router(cfg, pipeline, healthHandler),
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.Timeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.Timeout) * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return Serve(ctx, srv)
}

// openPublisher 佇列未啟用時回傳 nil；連線失敗時改用 FallbackPublisher.
func openPublisher(ctx context.Context, cfg config.QueueConfig) (queue.Publisher, bool) {
	if !cfg.Enabled {
		logger.Infof(ctx, "媒體任務佇列未啟用")
		return nil, false
	}

	dial := func(ctx context.Context) (*amqp.Connection, error) {
		return driver.DialAMQP(ctx, cfg)
	}
	publisher, err := queue.NewAMQPPublisher(ctx, dial, queue.PublisherConfig{
		Exchange:   cfg.Exchange,
		RoutingKey: cfg.RoutingKey,
		PoolSize:   cfg.PoolSize,
	})
	if err != nil {
		logger.Warning(ctx, "RabbitMQ 不可用，媒體任務將被略過",
			logger.WithAction("queue"),
			logger.WithDetails(map[string]interface{}{"error": err.Error()}))
		return queue.NewFallback(), true
	}

	logger.Infof(ctx, "媒體任務佇列已連接，exchange: %s", cfg.Exchange)
	return publisher, false
}

// Serve 監聽直到 ctx 結束，然後優雅關閉.
func Serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Infof(ctx, "伺服器正在監聽: %s", srv.Addr)
		var err error
		if srv.TLSConfig != nil {
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			logger.Errorf(ctx, "伺服器啟動失敗: %v", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Infof(ctx, "收到關閉信號，正在優雅關閉伺服器...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.ShutdownTimeout*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf(ctx, "伺服器關閉失敗: %v", err)
		return err
	}

	logger.Infof(ctx, "伺服器已優雅關閉")
	return nil
}
