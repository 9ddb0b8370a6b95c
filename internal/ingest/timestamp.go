package ingest

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// 大於此值的 epoch 視為毫秒.
const epochMillisThreshold = 1_000_000_000_000

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp 接受 epoch 秒、epoch 毫秒與 ISO 字串；無法解析時回傳 false.
func ParseTimestamp(v gjson.Result) (time.Time, bool) {
	if n, ok := asInt(v); ok {
		if n <= 0 {
			return time.Time{}, false
		}
		if n >= epochMillisThreshold {
			return time.UnixMilli(n).UTC(), true
		}
		return time.Unix(n, 0).UTC(), true
	}
	if v.Type != gjson.String {
		return time.Time{}, false
	}
	s := strings.TrimSpace(v.Str)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// resolveTimestamp 依來源與路徑優先順序取時間，並回傳原始值供產生 ID；全部缺少時使用 now.
func resolveTimestamp(now func() time.Time, sources ...gjson.Result) (time.Time, string) {
	for _, src := range sources {
		for _, p := range timestampPaths {
			v := src.Get(p)
			if !v.Exists() {
				continue
			}
			if t, ok := ParseTimestamp(v); ok {
				return t, v.Raw
			}
		}
	}
	return now().UTC(), ""
}
