package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"chat-ingest/internal/constants"

	"github.com/tidwall/gjson"
)

// DefaultDirection 沒有 fromMe 旗標或方向欄位時的方向.
const DefaultDirection = DirectionInbound

// DefaultMaxRawString 原始快照中單一字串的預設上限.
const DefaultMaxRawString = constants.DefaultMaxRawString

// NormalizerOptions 正規化時套用的預設值.
type NormalizerOptions struct {
	DefaultDirection Direction
	MaxRawString     int
	Now              func() time.Time
}

// Normalizer 將候選記錄轉為 NormalizedMessage.
type Normalizer struct {
	opts NormalizerOptions
}

// NewNormalizer 未設定的選項使用套件預設值.
func NewNormalizer(opts NormalizerOptions) *Normalizer {
	if opts.DefaultDirection != DirectionOutbound {
		opts.DefaultDirection = DefaultDirection
	}
	if opts.MaxRawString <= 0 {
		opts.MaxRawString = DefaultMaxRawString
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Normalizer{opts: opts}
}

// Normalize 純轉換；缺少必要識別欄位時回傳 nil 與 ErrMissing* 錯誤.
// companyHint 是 payload 沒有公司 ID 時的後備值（通常來自 header）.
func (n *Normalizer) Normalize(c Candidate, envelope gjson.Result, companyHint string) (*NormalizedMessage, error) {
	src := c.Raw
	category := c.Category

	providerID := FirstString(src, messageIDPaths...)
	if revoked, ok := revokedMessageID(src); ok {
		category = CategoryDeletion
		providerID = revoked
	}

	companyID := firstNonEmpty(
		FirstString(src, companyIDPaths...),
		FirstString(envelope, companyIDPaths...),
		strings.TrimSpace(companyHint),
	)
	if companyID == "" {
		return nil, ErrMissingCompanyID
	}

	dir := n.direction(src)
	routingID := resolveRoutingID(src, dir)
	if category == CategoryMessage && routingID == "" {
		return nil, ErrMissingRoutingID
	}

	ts, rawTS := resolveTimestamp(n.opts.Now, src, envelope)
	body := FirstString(src, bodyPaths...)

	msg := &NormalizedMessage{
		Category:               category,
		CompanyID:              companyID,
		InstanceID:             firstNonEmpty(FirstString(src, instanceIDPaths...), FirstString(envelope, instanceIDPaths...)),
		ProviderMessageID:      providerID,
		RoutingID:              routingID,
		Phone:                  PhoneFromRoutingID(routingID),
		ConversationExternalID: firstNonEmpty(FirstString(src, conversationIDPaths...), FirstString(envelope, conversationIDPaths...)),
		Direction:              dir,
		Status:                 resolveStatus(src, dir),
		Timestamp:              ts,
	}

	if category != CategoryMessage {
		// 狀態與刪除事件必須指向供應商既有的訊息 ID
		if providerID == "" {
			return nil, ErrMissingMessageID
		}
		return msg, nil
	}

	if msg.ProviderMessageID == "" {
		msg.ProviderMessageID = generatedMessageID(routingID, rawTS, body, src)
		msg.GeneratedID = true
	}

	msg.Body = body
	msg.Caption = FirstString(src, captionPaths...)
	msg.ReplyToProviderID = FirstString(src, replyToPaths...)
	msg.Contact = ResolveContact(src, envelope)
	msg.Media = collectMedia(src, msg.ProviderMessageID)
	msg.Type = n.contentType(src, msg)
	msg.Raw = SanitizeSnapshot(src.Raw, n.opts.MaxRawString)
	return msg, nil
}

// direction fromMe 旗標優先，其次方向字串，最後套用預設值.
func (n *Normalizer) direction(src gjson.Result) Direction {
	if fromMe, ok := FirstBool(src, fromMePaths...); ok {
		if fromMe {
			return DirectionOutbound
		}
		return DirectionInbound
	}
	switch s := strings.ToLower(FirstString(src, directionPaths...)); {
	case strings.HasPrefix(s, "out"), s == "sent", s == "send":
		return DirectionOutbound
	case strings.HasPrefix(s, "in"), s == "received":
		return DirectionInbound
	}
	return n.opts.DefaultDirection
}

// contentType 明確類型優先；媒體本身的類型比 document 後備值更準確.
func (n *Normalizer) contentType(src gjson.Result, msg *NormalizedMessage) ContentType {
	hint := typeHint(src)
	hasMedia := len(msg.Media) > 0
	kind := resolveContentType(hint, hasMedia, msg.Body != "")
	if hasMedia && ClassifyType(hint) == ContentUnknown {
		if known := firstKnownMediaType(msg.Media); known != ContentUnknown {
			kind = known
		}
	}
	if hasMedia {
		if isMediaKind(kind) {
			backfillMediaType(msg.Media, kind)
		} else {
			backfillMediaType(msg.Media, ContentDocument)
		}
	}
	return kind
}

func isMediaKind(k ContentType) bool {
	switch k {
	case ContentImage, ContentVideo, ContentAudio, ContentDocument, ContentSticker:
		return true
	}
	return false
}

// resolveStatus 數字視為 ack 代碼，字串依關鍵字比對.
func resolveStatus(src gjson.Result, dir Direction) Status {
	v, ok := FirstOf(src, statusPaths...)
	if !ok {
		return defaultStatus(dir)
	}
	if v.Type == gjson.Number {
		return StatusFromAck(v.Int(), dir)
	}
	return StatusFromString(v.String(), dir)
}

// revokedMessageID Baileys 的撤回以 protocolMessage（type 0 / REVOKE）指向被撤回的訊息.
func revokedMessageID(src gjson.Result) (string, bool) {
	pm := src.Get("message.protocolMessage")
	if !pm.IsObject() {
		return "", false
	}
	t := pm.Get("type")
	revoke := (t.Type == gjson.Number && t.Int() == 0) || strings.EqualFold(t.String(), "REVOKE")
	if !revoke {
		return "", false
	}
	id := FirstString(pm, "key.id")
	return id, id != ""
}

// generatedMessageID 供應商沒有 ID 時由 routing id、原始時間與內文推導；
// 沒有時間時改用整個候選記錄，重送同一事件得到同一個 ID.
func generatedMessageID(routingID, rawTimestamp, body string, src gjson.Result) string {
	h := sha256.New()
	h.Write([]byte(routingID))
	h.Write([]byte{0})
	if rawTimestamp != "" {
		h.Write([]byte(rawTimestamp))
		h.Write([]byte{0})
		h.Write([]byte(body))
	} else {
		h.Write([]byte(gjson.Get(src.Raw, "@ugly").Raw))
	}
	return "gen_" + hex.EncodeToString(h.Sum(nil)[:16])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
