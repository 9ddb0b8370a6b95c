package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chat-ingest/internal/platform/config"
	"chat-ingest/internal/platform/logger"
	"chat-ingest/internal/platform/server"
)

func main() {
	if err := mainNoExit(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// mainNoExit 分離主要邏輯以避免 exitAfterDefer 問題，確保 defer 函數正常執行.
func mainNoExit() error {
	if env := os.Getenv("APP_ENV"); env != "" {
		config.SetEnv(env)
	}

	// 先載入配置，日誌輪轉設定才會生效.
	if err := config.Load(); err != nil {
		return err
	}

	if err := logger.InitLogger(); err != nil {
		return err
	}
	defer logger.CloseLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Critical(ctx, "服務器異常結束", logger.WithAction("shutdown"),
			logger.WithDetails(map[string]interface{}{"error": err.Error()}))
		return err
	}

	logger.Info(ctx, "服務器已停止", logger.WithAction("shutdown"))
	return nil
}
