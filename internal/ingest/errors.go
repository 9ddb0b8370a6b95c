package ingest

import "errors"

// 候選記錄被丟棄或處理失敗的原因.
var (
	ErrMissingRoutingID = errors.New("missing routing id")
	ErrMissingCompanyID = errors.New("missing company id")
	ErrMissingMessageID = errors.New("missing message id")
	ErrMessageNotFound  = errors.New("message not found")
)

// ErrInvalidPayload 請求內容不是合法的 JSON.
var ErrInvalidPayload = errors.New("invalid JSON payload")
