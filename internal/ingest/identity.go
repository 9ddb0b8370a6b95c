package ingest

import (
	"strings"

	"github.com/tidwall/gjson"
)

// PhoneFromRoutingID 取第一個 @ 之前的部分，只保留數字與 +.
func PhoneFromRoutingID(routingID string) string {
	local := routingID
	if i := strings.IndexByte(local, '@'); i >= 0 {
		local = local[:i]
	}
	// 多裝置 JID 形如 5511999999999:12@s.whatsapp.net
	if i := strings.IndexByte(local, ':'); i >= 0 {
		local = local[:i]
	}
	var b strings.Builder
	for _, r := range local {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// contactExtraAliases 白名單鍵與其別名；只有這些鍵會寫入 extras.
var contactExtraAliases = map[string][]string{
	"id":            {"id", "jid", "wa_id"},
	"profilePicUrl": {"profilePicUrl", "profilePictureUrl", "profile_pic_url", "imgUrl", "picture"},
	"shortName":     {"shortName", "short_name"},
	"verifiedName":  {"verifiedName", "verified_name", "verifiedBizName"},
	"businessName":  {"businessName", "business_name"},
	"category":      {"category"},
}

var (
	contactDisplayNamePaths = []string{"name", "displayName", "display_name", "formattedName", "profile.name", "verifiedName"}
	contactProfileNamePaths = []string{"pushName", "pushname", "notifyName", "profile.name", "shortName"}
	candidateProfilePaths   = []string{"pushName", "notifyName", "senderName", "sender_name", "_data.notifyName", "sender.pushName", "sender.name"}
	businessFlagPaths       = []string{"isBusiness", "is_business", "isEnterprise", "business"}
)

// contactSources 依優先順序排列的聯絡人物件：候選頂層、訊息巢狀、envelope.
func contactSources(candidate, envelope gjson.Result) []gjson.Result {
	var out []gjson.Result
	for _, src := range []gjson.Result{
		candidate.Get("contact"),
		candidate.Get("sender"),
		candidate.Get("message.contact"),
		envelope.Get("contact"),
		envelope.Get("data.contact"),
		envelope.Get("contacts.0"),
	} {
		if src.IsObject() {
			out = append(out, src)
		}
	}
	return out
}

// ResolveContact 合併多個位置的聯絡人資料，先出現的來源優先.
func ResolveContact(candidate, envelope gjson.Result) ContactInfo {
	info := ContactInfo{}
	sources := contactSources(candidate, envelope)

	for _, src := range sources {
		if info.DisplayName == "" {
			info.DisplayName = FirstString(src, contactDisplayNamePaths...)
		}
		if info.ProfileName == "" {
			info.ProfileName = FirstString(src, contactProfileNamePaths...)
		}
		if info.IsBusiness == nil {
			if b, ok := FirstBool(src, businessFlagPaths...); ok {
				info.IsBusiness = &b
			} else if FirstString(src, contactExtraAliases["verifiedName"]...) != "" {
				t := true
				info.IsBusiness = &t
			}
		}
		for key, aliases := range contactExtraAliases {
			if _, done := info.Extras[key]; done {
				continue
			}
			if v := FirstString(src, aliases...); v != "" {
				if info.Extras == nil {
					info.Extras = map[string]string{}
				}
				info.Extras[key] = v
			}
		}
	}

	if info.ProfileName == "" {
		info.ProfileName = FirstString(candidate, candidateProfilePaths...)
	}
	if info.DisplayName == "" {
		info.DisplayName = info.ProfileName
	}
	return info
}

// resolveRoutingID 明確欄位優先，其次依方向取對端.
func resolveRoutingID(candidate gjson.Result, dir Direction) string {
	if id := FirstString(candidate, routingIDPaths...); id != "" {
		return id
	}
	if dir == DirectionOutbound {
		return FirstString(candidate, outboundPeerPaths...)
	}
	return FirstString(candidate, inboundPeerPaths...)
}
