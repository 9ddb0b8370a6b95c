package queue

import (
	"context"

	"chat-ingest/internal/platform/logger"
)

// FallbackPublisher 佇列不可用時只記錄並丟棄任務.
type FallbackPublisher struct{}

// NewFallback 創建 FallbackPublisher.
func NewFallback() Publisher {
	return &FallbackPublisher{}
}

// Publish 記錄被略過的任務.
func (p *FallbackPublisher) Publish(ctx context.Context, job *MediaJob) error {
	logger.Warning(ctx, "佇列不可用，略過媒體任務",
		logger.WithCompanyID(job.CompanyID),
		logger.WithMessageID(job.MessageID),
		logger.WithDetails(map[string]interface{}{"attachments": len(job.Attachments)}))
	return nil
}

// Close 不做任何事.
func (p *FallbackPublisher) Close() error {
	return nil
}
