package ingest

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Candidate 尚未驗證的原始記錄.
type Candidate struct {
	Category Category
	Raw      gjson.Result
}

// Strategy 從 envelope 取出候選記錄的純函式.
type Strategy struct {
	Name     string
	Category Category // 空值表示沿用 envelope 的事件類別
	Extract  func(envelope gjson.Result) []gjson.Result
}

// DefaultStrategies 依序套用並聯集；沒有任何命中時才使用 fallback.
var DefaultStrategies = []Strategy{
	{Name: "root-array", Extract: rootArray},
	{Name: "root-messages", Extract: arrayAt("messages")},
	{Name: "data-messages", Extract: arrayAt("data.messages")},
	{Name: "data-array", Extract: arrayAt("data")},
	{Name: "data-object", Extract: messageObjectAt("data")},
	{Name: "payload-object", Extract: messageObjectAt("payload")},
	{Name: "singular-message", Extract: singularMessage},
	{Name: "cloud-api-messages", Extract: flattenedAt("entry.#.changes.#.value.messages")},
	{Name: "cloud-api-statuses", Category: CategoryStatus, Extract: flattenedAt("entry.#.changes.#.value.statuses")},
	{Name: "statuses", Category: CategoryStatus, Extract: arraysAt("statuses", "data.statuses", "acks", "data.acks")},
	{Name: "deleted-keys", Category: CategoryDeletion, Extract: arraysAt("keys", "data.keys")},
}

// Extractor 將任意 payload 轉為候選記錄清單.
type Extractor struct {
	Strategies []Strategy
}

// NewExtractor 使用預設策略.
func NewExtractor() *Extractor {
	return &Extractor{Strategies: DefaultStrategies}
}

// Extract 不會失敗；無法辨識的 payload 回傳空清單.
func (e *Extractor) Extract(envelope gjson.Result) []Candidate {
	if !envelope.IsObject() && !envelope.IsArray() {
		return nil
	}
	eventCategory := EventCategory(envelope)
	if eventCategory == CategoryConnection {
		return []Candidate{{Category: CategoryConnection, Raw: envelope}}
	}

	var out []Candidate
	seen := map[string]bool{}
	add := func(cat Category, r gjson.Result) {
		if !r.IsObject() {
			return
		}
		if seen[r.Raw] {
			return
		}
		seen[r.Raw] = true
		out = append(out, Candidate{Category: refineCategory(cat, r), Raw: r})
	}

	for _, s := range e.Strategies {
		cat := s.Category
		if cat == "" {
			cat = eventCategory
		}
		for _, r := range s.Extract(envelope) {
			add(cat, r)
		}
	}

	if len(out) == 0 && LooksLikeMessage(envelope) {
		add(eventCategory, envelope)
	}
	return out
}

// EventCategory 由 envelope 的事件名稱判斷類別.
func EventCategory(envelope gjson.Result) Category {
	name := strings.ToLower(FirstString(envelope, eventPaths...))
	switch {
	case name == "":
		return CategoryMessage
	case containsAny(name, nonMessageEvents):
		return CategoryConnection
	case strings.Contains(name, "revoke") || strings.Contains(name, "delete"):
		return CategoryDeletion
	case strings.Contains(name, "ack") || strings.Contains(name, "status") || strings.HasSuffix(name, "update") || strings.HasSuffix(name, "updated"):
		return CategoryStatus
	}
	return CategoryMessage
}

// nonMessageEvents 連線、QR 與其他不產生訊息的事件.
var nonMessageEvents = []string{"qr", "connection", "session.status", "presence", "chats.", "contacts.", "groups.", "group.", "call"}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// refineCategory 只帶狀態更新、沒有內容的訊息候選改標為 status.
func refineCategory(cat Category, r gjson.Result) Category {
	if cat != CategoryMessage {
		return cat
	}
	if r.Get("update").IsObject() && !r.Get("message").Exists() && !hasContent(r) {
		return CategoryStatus
	}
	return cat
}

func hasContent(r gjson.Result) bool {
	return FirstString(r, bodyPaths...) != "" || FirstString(r, typePaths...) != ""
}

// LooksLikeMessage 有類型、內文、ID 或巢狀 message 欄位.
func LooksLikeMessage(r gjson.Result) bool {
	if !r.IsObject() {
		return false
	}
	if hasContent(r) {
		return true
	}
	if FirstString(r, messageIDPaths...) != "" {
		return true
	}
	return r.Get("message").IsObject() || r.Get("key").IsObject()
}

// isMessageShaped 帶有 Baileys 風格 key 的訊息物件.
func isMessageShaped(r gjson.Result) bool {
	return r.IsObject() && (r.Get("key.id").Exists() || r.Get("key.remoteJid").Exists())
}

func rootArray(envelope gjson.Result) []gjson.Result {
	if envelope.IsArray() {
		return envelope.Array()
	}
	return nil
}

func arrayAt(path string) func(gjson.Result) []gjson.Result {
	return func(envelope gjson.Result) []gjson.Result {
		if v := envelope.Get(path); v.IsArray() {
			return v.Array()
		}
		return nil
	}
}

func arraysAt(paths ...string) func(gjson.Result) []gjson.Result {
	return func(envelope gjson.Result) []gjson.Result {
		var out []gjson.Result
		for _, p := range paths {
			out = append(out, arrayAt(p)(envelope)...)
		}
		return out
	}
}

// flattenedAt 多層 # 查詢結果攤平成單一清單.
func flattenedAt(path string) func(gjson.Result) []gjson.Result {
	return func(envelope gjson.Result) []gjson.Result {
		v := envelope.Get(path)
		if !v.IsArray() {
			return nil
		}
		return flatten(v)
	}
}

// messageObjectAt 路徑上的物件本身就是訊息（而非容器）時才取用.
func messageObjectAt(path string) func(gjson.Result) []gjson.Result {
	return func(envelope gjson.Result) []gjson.Result {
		v := envelope.Get(path)
		if !v.IsObject() {
			return nil
		}
		if isMessageShaped(v) || (!isContainer(v) && LooksLikeMessage(v)) {
			return []gjson.Result{v}
		}
		return nil
	}
}

// isContainer 含有 messages 陣列或非內容的 message 物件.
func isContainer(v gjson.Result) bool {
	if v.Get("messages").IsArray() {
		return true
	}
	m := v.Get("message")
	return m.IsObject() && !isContentObject(m)
}

// singularMessage data.message 或 message；持有者本身是訊息時 message 是內容而非候選.
func singularMessage(envelope gjson.Result) []gjson.Result {
	var out []gjson.Result
	if data := envelope.Get("data"); data.IsObject() && !isMessageShaped(data) {
		if v := data.Get("message"); v.IsObject() && !isContentObject(v) {
			out = append(out, v)
		}
	}
	if !isMessageShaped(envelope) {
		if v := envelope.Get("message"); v.IsObject() && !isContentObject(v) {
			out = append(out, v)
		}
	}
	return out
}

// isContentObject Baileys 的 message 內容物件（conversation、imageMessage…）不是候選.
func isContentObject(v gjson.Result) bool {
	content := false
	v.ForEach(func(key, _ gjson.Result) bool {
		k := key.String()
		if k == "conversation" || strings.HasSuffix(k, "Message") {
			content = true
			return false
		}
		return true
	})
	return content
}
