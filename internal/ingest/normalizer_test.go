package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(NormalizerOptions{Now: func() time.Time { return testNow }})
}

func normalize(t *testing.T, candidate, envelope, company string) *NormalizedMessage {
	t.Helper()
	msg, err := newTestNormalizer().Normalize(
		Candidate{Category: CategoryMessage, Raw: gjson.Parse(candidate)},
		gjson.Parse(envelope),
		company,
	)
	require.NoError(t, err)
	return msg
}

func TestNormalizeBaileysImage(t *testing.T) {
	msg := normalize(t, `{
		"key": {"id": "3EB0", "remoteJid": "5547999999999@s.whatsapp.net", "fromMe": true},
		"pushName": "Loja",
		"messageTimestamp": 1700000000,
		"status": "SERVER_ACK",
		"message": {
			"imageMessage": {"url": "https://mmg/x", "mimetype": "image/jpeg", "caption": "veja", "jpegThumbnail": "AAAA"},
			"extendedTextMessage": {"contextInfo": {"stanzaId": "PREV"}}
		}
	}`, `{"instance": "inst-1", "companyId": "7"}`, "42")

	assert.Equal(t, "7", msg.CompanyID, "payload 的公司 ID 優先於 header")
	assert.Equal(t, "inst-1", msg.InstanceID)
	assert.Equal(t, "3EB0", msg.ProviderMessageID)
	assert.False(t, msg.GeneratedID)
	assert.Equal(t, DirectionOutbound, msg.Direction)
	assert.Equal(t, "5547999999999", msg.Phone)
	assert.Equal(t, ContentImage, msg.Type)
	assert.Equal(t, StatusSent, msg.Status)
	assert.Equal(t, "veja", msg.Caption)
	assert.Equal(t, "PREV", msg.ReplyToProviderID)
	assert.Equal(t, int64(1700000000), msg.Timestamp.Unix())
	require.Len(t, msg.Media, 1)
	assert.Equal(t, ContentImage, msg.Media[0].Type)

	image := msg.Raw["message"].(map[string]interface{})["imageMessage"].(map[string]interface{})
	assert.NotContains(t, image, "jpegThumbnail")
}

func TestNormalizeDefaults(t *testing.T) {
	msg := normalize(t, `{"from":"5511@c.us","body":"oi"}`, `{}`, "42")

	assert.Equal(t, DefaultDirection, msg.Direction)
	assert.Equal(t, DefaultInboundStatus, msg.Status)
	assert.Equal(t, ContentText, msg.Type)
	assert.Equal(t, testNow, msg.Timestamp)
	assert.True(t, msg.GeneratedID)
	assert.True(t, strings.HasPrefix(msg.ProviderMessageID, "gen_"))

	outbound := NewNormalizer(NormalizerOptions{DefaultDirection: DirectionOutbound})
	got, err := outbound.Normalize(Candidate{Category: CategoryMessage, Raw: gjson.Parse(`{"to":"5511@c.us","body":"oi"}`)}, gjson.Parse(`{}`), "42")
	require.NoError(t, err)
	assert.Equal(t, DirectionOutbound, got.Direction)
	assert.Equal(t, DefaultOutboundStatus, got.Status)
	assert.Equal(t, "5511@c.us", got.RoutingID)
}

func TestNormalizeDirection(t *testing.T) {
	tests := []struct {
		json string
		want Direction
	}{
		{`{"fromMe":true}`, DirectionOutbound},
		{`{"key":{"fromMe":false}}`, DirectionInbound},
		{`{"id":{"fromMe":true}}`, DirectionOutbound},
		{`{"fromMe":"true"}`, DirectionOutbound},
		{`{"direction":"outgoing"}`, DirectionOutbound},
		{`{"direction":"INBOUND"}`, DirectionInbound},
		{`{}`, DefaultDirection},
	}
	n := newTestNormalizer()
	for _, tt := range tests {
		assert.Equal(t, tt.want, n.direction(gjson.Parse(tt.json)), tt.json)
	}
}

func TestGeneratedIDIsDeterministic(t *testing.T) {
	a := normalize(t, `{"remoteJid":"1@s","body":"hi","timestamp":1700000000}`, `{}`, "42")
	b := normalize(t, `{"remoteJid":"1@s","body":"hi","timestamp":1700000000}`, `{}`, "42")
	c := normalize(t, `{"remoteJid":"1@s","body":"hi","timestamp":1700000001}`, `{}`, "42")
	assert.Equal(t, a.ProviderMessageID, b.ProviderMessageID)
	assert.NotEqual(t, a.ProviderMessageID, c.ProviderMessageID)

	// 沒有時間時以整個候選記錄推導，格式差異不影響結果
	d := normalize(t, `{"remoteJid":"1@s","body":"hi"}`, `{}`, "42")
	e := normalize(t, `{ "remoteJid" : "1@s", "body" : "hi" }`, `{}`, "42")
	assert.Equal(t, d.ProviderMessageID, e.ProviderMessageID)
}

func TestNormalizeCloudAPIText(t *testing.T) {
	msg := normalize(t, `{"from":"5547999999999","id":"wamid.X","timestamp":"1700000000","type":"text","text":{"body":"olá"},"context":{"id":"wamid.P"}}`,
		`{"contacts":[{"profile":{"name":"Maria"},"wa_id":"5547999999999"}]}`, "42")

	assert.Equal(t, "wamid.X", msg.ProviderMessageID)
	assert.Equal(t, "olá", msg.Body)
	assert.Equal(t, ContentText, msg.Type)
	assert.Equal(t, "wamid.P", msg.ReplyToProviderID)
	assert.Equal(t, "5547999999999", msg.Phone)
	assert.Equal(t, "Maria", msg.Contact.DisplayName)
	assert.Equal(t, "5547999999999", msg.Contact.Extras["id"])
}

func TestNormalizeMediaTypeFallbacks(t *testing.T) {
	// 沒有明確類型時採用媒體自身的類型
	msg := normalize(t, `{"from":"1@c.us","id":"v1","attachments":[{"url":"https://a/v.mp4","mimeType":"video/mp4"}]}`, `{}`, "42")
	assert.Equal(t, ContentVideo, msg.Type)

	// 媒體類型未知時為 document，並回填到媒體上
	msg = normalize(t, `{"from":"1@c.us","id":"d1","attachments":[{"url":"https://a/blob"}]}`, `{}`, "42")
	assert.Equal(t, ContentDocument, msg.Type)
	assert.Equal(t, ContentDocument, msg.Media[0].Type)

	// 明確類型回填到類型未知的媒體
	msg = normalize(t, `{"from":"1@c.us","id":"a1","type":"ptt","media":{"url":"https://a/voice"}}`, `{}`, "42")
	assert.Equal(t, ContentAudio, msg.Type)
	assert.Equal(t, ContentAudio, msg.Media[0].Type)
}

func TestNormalizeMissingIdentity(t *testing.T) {
	n := newTestNormalizer()
	tests := []struct {
		name     string
		category Category
		json     string
		company  string
		want     error
	}{
		{name: "沒有 routing id", category: CategoryMessage, json: `{"id":"a","body":"x"}`, company: "42", want: ErrMissingRoutingID},
		{name: "沒有公司 ID", category: CategoryMessage, json: `{"id":"a","from":"1@c.us"}`, want: ErrMissingCompanyID},
		{name: "狀態事件沒有 ID", category: CategoryStatus, json: `{"status":"read"}`, company: "42", want: ErrMissingMessageID},
		{name: "刪除事件沒有 ID", category: CategoryDeletion, json: `{"remoteJid":"1@s"}`, company: "42", want: ErrMissingMessageID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := n.Normalize(Candidate{Category: tt.category, Raw: gjson.Parse(tt.json)}, gjson.Parse(`{}`), tt.company)
			assert.Nil(t, msg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNormalizeStatusCandidate(t *testing.T) {
	msg, err := newTestNormalizer().Normalize(
		Candidate{Category: CategoryStatus, Raw: gjson.Parse(`{"id":"wamid.1","status":"delivered","timestamp":"1700000000","recipient_id":"5547"}`)},
		gjson.Parse(`{}`), "42")
	require.NoError(t, err)
	assert.Equal(t, CategoryStatus, msg.Category)
	assert.Equal(t, StatusDelivered, msg.Status)
	assert.Equal(t, "wamid.1", msg.ProviderMessageID)
	assert.Nil(t, msg.Raw)
}

func TestNormalizeRevokeBecomesDeletion(t *testing.T) {
	msg := normalize(t, `{"key":{"id":"NEW","remoteJid":"1@s"},"message":{"protocolMessage":{"key":{"id":"OLD"},"type":"REVOKE"}}}`, `{}`, "42")
	assert.Equal(t, CategoryDeletion, msg.Category)
	assert.Equal(t, "OLD", msg.ProviderMessageID)
}

func TestSanitizeSnapshot(t *testing.T) {
	long := strings.Repeat("é", 10)
	doc := SanitizeSnapshot(`{"text":"`+long+`","base64":"AAAA","nested":{"mediaKey":"k","keep":[1,"x"]}}`, 5)

	require.NotNil(t, doc)
	assert.Equal(t, "éé…[truncated]", doc["text"])
	assert.NotContains(t, doc, "base64")
	nested := doc["nested"].(map[string]interface{})
	assert.NotContains(t, nested, "mediaKey")
	assert.Equal(t, []interface{}{int64(1), "x"}, nested["keep"])

	assert.Nil(t, SanitizeSnapshot(`[1,2]`, 5))
}

func TestSanitizeSnapshotKeepsNumberPrecision(t *testing.T) {
	doc := SanitizeSnapshot(`{"fileLength":9007199254740993,"seconds":12.5,"huge":1e400}`, 0)

	require.NotNil(t, doc)
	assert.Equal(t, int64(9007199254740993), doc["fileLength"])
	assert.Equal(t, 12.5, doc["seconds"])
	assert.Equal(t, "1e400", doc["huge"])
}
