package ingest

import (
	"strings"

	"github.com/tidwall/gjson"
)

// contentKeywords 類型字串的子字串詞彙表，依序比對.
var contentKeywords = []struct {
	keywords []string
	kind     ContentType
}{
	{[]string{"reaction"}, ContentReaction},
	{[]string{"sticker"}, ContentSticker},
	{[]string{"image"}, ContentImage},
	{[]string{"video"}, ContentVideo},
	{[]string{"audio", "ptt", "voice"}, ContentAudio},
	{[]string{"document", "file"}, ContentDocument},
	{[]string{"location"}, ContentLocation},
	{[]string{"contact", "vcard"}, ContentContact},
	{[]string{"template", "button", "interactive", "list"}, ContentTemplate},
}

// ClassifyType 將類型字串對應到內容分類；無法辨識時回傳 ContentUnknown.
func ClassifyType(raw string) ContentType {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ContentUnknown
	}
	for _, kw := range contentKeywords {
		for _, k := range kw.keywords {
			if strings.Contains(s, k) {
				return kw.kind
			}
		}
	}
	return ContentUnknown
}

// resolveContentType 明確類型優先；其次有媒體則為 document，有內文則為 text.
func resolveContentType(typeHint string, hasMedia, hasBody bool) ContentType {
	if kind := ClassifyType(typeHint); kind != ContentUnknown {
		return kind
	}
	switch {
	case hasMedia:
		return ContentDocument
	case hasBody:
		return ContentText
	default:
		return ContentUnknown
	}
}

// messageKeyType 取 Baileys 風格 message 物件的第一個內容鍵，例如 imageMessage.
func messageKeyType(candidate gjson.Result) string {
	msg := candidate.Get("message")
	if !msg.IsObject() {
		return ""
	}
	var found string
	msg.ForEach(func(key, _ gjson.Result) bool {
		k := key.String()
		if k == "conversation" || strings.HasSuffix(k, "Message") {
			if k == "messageContextInfo" || k == "senderKeyDistributionMessage" {
				return true
			}
			found = k
			return false
		}
		return true
	})
	return found
}

// typeHint 合併明確類型欄位與 message 內容鍵.
func typeHint(candidate gjson.Result) string {
	explicit := FirstString(candidate, typePaths...)
	if ClassifyType(explicit) != ContentUnknown {
		return explicit
	}
	if k := messageKeyType(candidate); k != "" {
		return k
	}
	return explicit
}
