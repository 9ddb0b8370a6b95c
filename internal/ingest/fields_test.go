package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestFirstOf(t *testing.T) {
	tests := []struct {
		name  string
		json  string
		paths []string
		want  string
		found bool
	}{
		{name: "第一個路徑命中", json: `{"a":"x","b":"y"}`, paths: []string{"a", "b"}, want: "x", found: true},
		{name: "略過空字串", json: `{"a":"  ","b":"y"}`, paths: []string{"a", "b"}, want: "y", found: true},
		{name: "略過物件與布林", json: `{"a":{"k":1},"b":true,"c":7}`, paths: []string{"a", "b", "c"}, want: "7", found: true},
		{name: "巢狀路徑", json: `{"key":{"id":"abc"}}`, paths: []string{"id", "key.id"}, want: "abc", found: true},
		{name: "全部缺少", json: `{}`, paths: []string{"a", "b"}, found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := FirstOf(gjson.Parse(tt.json), tt.paths...)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.want, v.String())
			}
		})
	}
}

func TestFirstInt(t *testing.T) {
	tests := []struct {
		name string
		json string
		want int64
		ok   bool
	}{
		{name: "數字", json: `{"n":42}`, want: 42, ok: true},
		{name: "數字字串", json: `{"n":" 1700000000 "}`, want: 1700000000, ok: true},
		{name: "protobuf Long", json: `{"n":{"low":1700000000,"high":0,"unsigned":true}}`, want: 1700000000, ok: true},
		{name: "非數字", json: `{"n":"abc"}`, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FirstInt(gjson.Parse(tt.json), "n")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFirstBool(t *testing.T) {
	src := gjson.Parse(`{"a":"yes","b":"true","c":false}`)

	v, ok := FirstBool(src, "a", "b")
	assert.True(t, ok)
	assert.True(t, v)

	v, ok = FirstBool(src, "c")
	assert.True(t, ok)
	assert.False(t, v)

	_, ok = FirstBool(src, "missing")
	assert.False(t, ok)
}
