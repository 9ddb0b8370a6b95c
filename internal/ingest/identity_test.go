package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestPhoneFromRoutingID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"5547999999999@s.whatsapp.net", "5547999999999"},
		{"5547999999999:12@s.whatsapp.net", "5547999999999"},
		{"+55 (47) 99999-9999", "+5547999999999"},
		{"120363025@g.us", "120363025"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PhoneFromRoutingID(tt.in), tt.in)
	}
}

func TestResolveContact(t *testing.T) {
	candidate := gjson.Parse(`{
		"pushName": "Ana push",
		"contact": {"name": "Ana Souza", "profilePictureUrl": "https://pic/1", "unknownKey": "dropped"},
		"message": {"contact": {"verifiedName": "Ana Ltda", "category": "retail"}}
	}`)
	envelope := gjson.Parse(`{"contact": {"shortName": "Ana", "name": "ignored"}}`)

	info := ResolveContact(candidate, envelope)

	assert.Equal(t, "Ana Souza", info.DisplayName)
	assert.Equal(t, "Ana", info.ProfileName)
	require.NotNil(t, info.IsBusiness)
	assert.True(t, *info.IsBusiness)
	assert.Equal(t, map[string]string{
		"profilePicUrl": "https://pic/1",
		"verifiedName":  "Ana Ltda",
		"category":      "retail",
		"shortName":     "Ana",
	}, info.Extras)
}

func TestResolveContactFallsBackToPushName(t *testing.T) {
	info := ResolveContact(gjson.Parse(`{"pushName":"João"}`), gjson.Parse(`{}`))
	assert.Equal(t, "João", info.ProfileName)
	assert.Equal(t, "João", info.DisplayName)
	assert.Nil(t, info.IsBusiness)
	assert.Nil(t, info.Extras)
}

func TestResolveRoutingID(t *testing.T) {
	tests := []struct {
		name string
		json string
		dir  Direction
		want string
	}{
		{name: "Baileys key", json: `{"key":{"remoteJid":"a@s.whatsapp.net"}}`, dir: DirectionInbound, want: "a@s.whatsapp.net"},
		{name: "收到時取 from", json: `{"from":"a@c.us","to":"me@c.us"}`, dir: DirectionInbound, want: "a@c.us"},
		{name: "送出時取 to", json: `{"from":"me@c.us","to":"b@c.us"}`, dir: DirectionOutbound, want: "b@c.us"},
		{name: "明確欄位優先", json: `{"chatId":"g@g.us","from":"a@c.us"}`, dir: DirectionInbound, want: "g@g.us"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveRoutingID(gjson.Parse(tt.json), tt.dir))
		})
	}
}
