package ingest

// SideEffect 盡力而為的副作用結果；不影響候選記錄的成功與否，也不回傳給呼叫端.
type SideEffect struct {
	Attempted bool
	Err       error
}

// OK 沒有嘗試或嘗試成功.
func (s SideEffect) OK() bool {
	return s.Err == nil
}

// ItemResult 單一候選記錄的結果：成功時帶 messageId，失敗時帶 error.
type ItemResult struct {
	ProviderMessageID string `json:"providerMessageId"`
	MessageID         string `json:"messageId,omitempty"`
	Error             string `json:"error,omitempty"`

	Err   error      `json:"-"`
	Queue SideEffect `json:"-"`
}

// Failed 是否為失敗結果.
func (r ItemResult) Failed() bool {
	return r.Err != nil
}

// Summary 一次 webhook 請求的彙整結果.
type Summary struct {
	OK        bool         `json:"ok"`
	Processed int          `json:"processed"`
	Results   []ItemResult `json:"results"`
}

func newSummary(results []ItemResult) *Summary {
	if results == nil {
		results = []ItemResult{}
	}
	return &Summary{OK: true, Processed: len(results), Results: results}
}
