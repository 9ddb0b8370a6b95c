package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// 單數媒體來源：路徑與該位置隱含的類型.
var singularMediaSources = []struct {
	path string
	kind ContentType
}{
	{"media", ContentUnknown},
	{"mediaData", ContentUnknown},
	{"attachment", ContentUnknown},
	{"file", ContentUnknown},
	{"message.imageMessage", ContentImage},
	{"message.videoMessage", ContentVideo},
	{"message.audioMessage", ContentAudio},
	{"message.documentMessage", ContentDocument},
	{"message.documentWithCaptionMessage.message.documentMessage", ContentDocument},
	{"message.stickerMessage", ContentSticker},
	{"message.viewOnceMessage.message.imageMessage", ContentImage},
	{"message.viewOnceMessage.message.videoMessage", ContentVideo},
	{"message.viewOnceMessageV2.message.imageMessage", ContentImage},
	{"message.viewOnceMessageV2.message.videoMessage", ContentVideo},
	{"image", ContentImage},
	{"video", ContentVideo},
	{"audio", ContentAudio},
	{"voice", ContentAudio},
	{"document", ContentDocument},
	{"sticker", ContentSticker},
}

// 複數媒體來源，陣列會被攤平.
var pluralMediaPaths = []string{"medias", "media", "attachments", "mediaList", "files"}

var (
	mediaIDPaths       = []string{"id", "mediaId", "media_id", "fileId", "file_id"}
	mediaURLPaths      = []string{"url", "mediaUrl", "media_url", "link", "directPath", "fileUrl"}
	mediaMimePaths     = []string{"mimetype", "mimeType", "mime_type", "contentType"}
	mediaFileNamePaths = []string{"filename", "fileName", "file_name", "name", "title"}
	mediaSizePaths     = []string{"fileLength", "size", "fileSize", "file_size", "filesize"}
	mediaChecksumPaths = []string{"sha256", "fileSha256", "checksum", "hash"}
	mediaTypePaths     = []string{"type", "mediaType", "kind"}
)

// collectMedia 從候選記錄收集媒體描述並去重.
func collectMedia(candidate gjson.Result, messageID string) []MediaDescriptor {
	var items []MediaDescriptor
	for _, src := range singularMediaSources {
		v := candidate.Get(src.path)
		if v.IsObject() {
			if d, ok := parseMedia(v, src.kind); ok {
				items = append(items, d)
			}
		}
	}
	for _, p := range pluralMediaPaths {
		v := candidate.Get(p)
		if !v.IsArray() {
			continue
		}
		for _, el := range flatten(v) {
			if d, ok := parseMedia(el, ContentUnknown); ok {
				items = append(items, d)
			}
		}
	}
	// 僅有頂層 URL 的供應商
	if url := FirstString(candidate, "mediaUrl", "media_url"); url != "" && candidate.Get("hasMedia").Type != gjson.False && !hasURL(items, url) {
		items = append(items, MediaDescriptor{
			URL:      url,
			MimeType: FirstString(candidate, "mimetype", "mimeType"),
			FileName: FirstString(candidate, "filename", "fileName"),
			Type:     ContentUnknown,
		})
	}

	return dedupeMedia(items, messageID)
}

func hasURL(items []MediaDescriptor, url string) bool {
	for _, d := range items {
		if d.URL == url {
			return true
		}
	}
	return false
}

func flatten(arr gjson.Result) []gjson.Result {
	var out []gjson.Result
	for _, el := range arr.Array() {
		if el.IsArray() {
			out = append(out, flatten(el)...)
			continue
		}
		if el.IsObject() {
			out = append(out, el)
		}
	}
	return out
}

func parseMedia(v gjson.Result, kind ContentType) (MediaDescriptor, bool) {
	d := MediaDescriptor{
		ProviderMediaID: FirstString(v, mediaIDPaths...),
		URL:             FirstString(v, mediaURLPaths...),
		MimeType:        FirstString(v, mediaMimePaths...),
		FileName:        FirstString(v, mediaFileNamePaths...),
		Checksum:        FirstString(v, mediaChecksumPaths...),
		Type:            kind,
	}
	if size, ok := FirstInt(v, mediaSizePaths...); ok && size > 0 {
		d.Size = size
	}
	if d.ProviderMediaID == "" && d.URL == "" && d.MimeType == "" && d.FileName == "" {
		return MediaDescriptor{}, false
	}
	if d.Type == ContentUnknown {
		d.Type = ClassifyType(FirstString(v, mediaTypePaths...))
	}
	if d.Type == ContentUnknown && d.MimeType != "" {
		d.Type = classifyMime(d.MimeType)
	}
	d.Metadata = mediaMetadata(v)
	return d, true
}

func classifyMime(mime string) ContentType {
	mime = strings.ToLower(mime)
	switch {
	case strings.HasPrefix(mime, "image/webp"):
		return ContentSticker
	case strings.HasPrefix(mime, "image/"):
		return ContentImage
	case strings.HasPrefix(mime, "video/"):
		return ContentVideo
	case strings.HasPrefix(mime, "audio/"):
		return ContentAudio
	}
	return ContentUnknown
}

func mediaMetadata(v gjson.Result) map[string]interface{} {
	meta := map[string]interface{}{}
	if w, ok := FirstInt(v, "width"); ok {
		meta["width"] = w
	}
	if h, ok := FirstInt(v, "height"); ok {
		meta["height"] = h
	}
	if s, ok := FirstInt(v, "seconds", "duration"); ok {
		meta["seconds"] = s
	}
	if thumb := FirstString(v, "thumbnailUrl", "thumbnail_url", "thumbnailDirectPath"); thumb != "" {
		meta["thumbnail"] = thumb
	}
	if b, ok := FirstBool(v, "viewOnce", "view_once", "isViewOnce"); ok {
		meta["viewOnce"] = b
	}
	if b, ok := FirstBool(v, "ptt", "voice"); ok {
		meta["ptt"] = b
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}

// dedupeKey 供應商媒體 ID，否則 URL，否則 檔名+大小.
func dedupeKey(d MediaDescriptor) string {
	switch {
	case d.ProviderMediaID != "":
		return "id:" + d.ProviderMediaID
	case d.URL != "":
		return "url:" + d.URL
	case d.FileName != "" || d.Size > 0:
		return "file:" + d.FileName + ":" + strconv.FormatInt(d.Size, 10)
	}
	return ""
}

func dedupeMedia(items []MediaDescriptor, messageID string) []MediaDescriptor {
	if len(items) == 0 {
		return nil
	}
	// 同一 URL 若另有帶 ID 的描述，沒有 ID 的那筆視為同一個檔案
	idByURL := make(map[string]string, len(items))
	for _, d := range items {
		if d.ProviderMediaID != "" && d.URL != "" {
			if _, ok := idByURL[d.URL]; !ok {
				idByURL[d.URL] = d.ProviderMediaID
			}
		}
	}

	index := make(map[string]int, len(items))
	out := make([]MediaDescriptor, 0, len(items))
	for i, d := range items {
		if d.ProviderMediaID == "" && d.URL != "" {
			if id, ok := idByURL[d.URL]; ok {
				d.ProviderMediaID = id
			}
		}
		key := dedupeKey(d)
		if key == "" {
			key = "idx:" + messageID + ":" + strconv.Itoa(i)
		}
		if j, ok := index[key]; ok {
			mergeMedia(&out[j], d)
			continue
		}
		index[key] = len(out)

		if d.ProviderMediaID != "" {
			d.Key = d.ProviderMediaID
		} else {
			d.Key = syntheticMediaID(key)
		}
		out = append(out, d)
	}
	return out
}

// mergeMedia 以重複描述補上先出現者缺少的欄位.
func mergeMedia(dst *MediaDescriptor, src MediaDescriptor) {
	if dst.Type == ContentUnknown {
		dst.Type = src.Type
	}
	if dst.URL == "" {
		dst.URL = src.URL
	}
	if dst.MimeType == "" {
		dst.MimeType = src.MimeType
	}
	if dst.FileName == "" {
		dst.FileName = src.FileName
	}
	if dst.Size == 0 {
		dst.Size = src.Size
	}
	if dst.Checksum == "" {
		dst.Checksum = src.Checksum
	}
	for k, v := range src.Metadata {
		if dst.Metadata == nil {
			dst.Metadata = map[string]interface{}{}
		}
		if _, ok := dst.Metadata[k]; !ok {
			dst.Metadata[k] = v
		}
	}
}

// backfillMediaType 類型未知的媒體沿用訊息的內容分類.
func backfillMediaType(items []MediaDescriptor, kind ContentType) {
	for i := range items {
		if items[i].Type == ContentUnknown {
			items[i].Type = kind
		}
	}
}

// firstKnownMediaType 第一個已知類型的媒體.
func firstKnownMediaType(items []MediaDescriptor) ContentType {
	for _, d := range items {
		if d.Type != ContentUnknown {
			return d.Type
		}
	}
	return ContentUnknown
}

// syntheticMediaID 由去重鍵推導的穩定 ID，重送時不變.
func syntheticMediaID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "auto_" + hex.EncodeToString(sum[:12])
}
