package ingest

import (
	"bytes"
	"encoding/json"
	"strings"
)

// snapshotDroppedKeys 不寫入原始快照的鍵（二進位、縮圖與金鑰材料）.
var snapshotDroppedKeys = map[string]bool{
	"base64":               true,
	"jpegThumbnail":        true,
	"thumbnail":            true,
	"mediaKey":             true,
	"fileEncSha256":        true,
	"streamingSidecar":     true,
	"midQualityFileSha256": true,
	"messageSecret":        true,
	"senderKeyHash":        true,
	"waveform":             true,
	"pngThumbnail":         true,
}

// SanitizeSnapshot 將候選 JSON 轉為可儲存的 map；字串超過 maxString 會被截斷.
func SanitizeSnapshot(raw string, maxString int) map[string]interface{} {
	// UseNumber 保留超過 float64 精度的整數（例如 fileLength）
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var doc map[string]interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil
	}
	cleaned, _ := sanitizeValue(doc, maxString).(map[string]interface{})
	return cleaned
}

func sanitizeValue(v interface{}, maxString int) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if snapshotDroppedKeys[k] {
				continue
			}
			out[k] = sanitizeValue(val, maxString)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = sanitizeValue(val, maxString)
		}
		return out
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case string:
		if maxString > 0 && len(t) > maxString {
			return truncateUTF8(t, maxString) + "…[truncated]"
		}
		return t
	default:
		return v
	}
}

func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// 切在多位元組字元中間時丟棄殘缺的尾端
	return strings.ToValidUTF8(s[:n], "")
}
