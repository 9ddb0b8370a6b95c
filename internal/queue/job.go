// Package queue 將媒體處理任務發佈到下游佇列.
package queue

import (
	"context"
	"time"
)

// Attachment 任務中的單一附件描述.
type Attachment struct {
	AttachmentID    string `json:"attachmentId"`
	MediaKey        string `json:"mediaKey"`
	ProviderMediaID string `json:"providerMediaId,omitempty"`
	Type            string `json:"type"`
	URL             string `json:"url,omitempty"`
	MimeType        string `json:"mimeType,omitempty"`
	FileName        string `json:"fileName,omitempty"`
	Checksum        string `json:"checksum,omitempty"`
}

// MediaJob 每則帶附件的訊息一個任務，由下游媒體下載 worker 消費.
type MediaJob struct {
	CompanyID         string       `json:"companyId"`
	MessageID         string       `json:"messageId"`
	ProviderMessageID string       `json:"providerMessageId"`
	ConversationID    string       `json:"conversationId"`
	Attachments       []Attachment `json:"attachments"`
	CreatedAt         time.Time    `json:"createdAt"`
}

// Publisher 媒體任務發佈者.
type Publisher interface {
	Publish(ctx context.Context, job *MediaJob) error
	Close() error
}
