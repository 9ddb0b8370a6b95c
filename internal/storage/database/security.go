package database

import (
	"strings"
)

// SanitizeFieldName 消毒字段名（防止 MongoDB 操作符注入）.
func SanitizeFieldName(fieldName string) string {
	// 移除 $ 符號（MongoDB 操作符）
	fieldName = strings.ReplaceAll(fieldName, "$", "")

	// 移除 . 符號（嵌套字段訪問）
	fieldName = strings.ReplaceAll(fieldName, ".", "")

	return fieldName
}

// SanitizeDocument 遞迴消毒供應商原始資料的鍵，並移除 NULL 字元；消毒後為空的鍵會被丟棄.
func SanitizeDocument(doc map[string]interface{}) map[string]interface{} {
	if doc == nil {
		return nil
	}
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		key := SanitizeFieldName(strings.ReplaceAll(k, "\x00", ""))
		if key == "" {
			continue
		}
		out[key] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return SanitizeDocument(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, el := range t {
			out[i] = sanitizeValue(el)
		}
		return out
	case string:
		return strings.ReplaceAll(t, "\x00", "")
	default:
		return v
	}
}

// sanitizeExtras 聯絡人 extras 以 extras.<key> 寫入，鍵必須先消毒.
func sanitizeExtras(extras map[string]string) map[string]string {
	out := make(map[string]string, len(extras))
	for k, v := range extras {
		if key := SanitizeFieldName(k); key != "" && v != "" {
			out[key] = v
		}
	}
	return out
}
