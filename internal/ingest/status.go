package ingest

import (
	"strconv"
	"strings"
)

// Status 投遞狀態.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusReceived  Status = "received"
	StatusFailed    Status = "failed"
)

// 未知狀態時依方向套用的預設值.
const (
	DefaultInboundStatus  = StatusReceived
	DefaultOutboundStatus = StatusSent
)

// statusRanks 生命週期順序；failed 為終態.
var statusRanks = map[Status]int{
	StatusPending:   0,
	StatusSent:      1,
	StatusReceived:  2,
	StatusDelivered: 2,
	StatusRead:      3,
	StatusFailed:    9,
}

// Rank 回傳狀態在生命週期中的位置，未知狀態為 -1.
func (s Status) Rank() int {
	if r, ok := statusRanks[s]; ok {
		return r
	}
	return -1
}

// Advance 套用新狀態，永不倒退；同等級時保留目前狀態.
func Advance(current, incoming Status) Status {
	if incoming.Rank() > current.Rank() {
		return incoming
	}
	return current
}

// statusKeywords 字串狀態的子字串比對，依序檢查.
var statusKeywords = []struct {
	keywords []string
	status   Status
}{
	{[]string{"fail", "error"}, StatusFailed},
	{[]string{"deliver"}, StatusDelivered},
	{[]string{"read", "seen", "view", "play"}, StatusRead},
	{[]string{"pending", "queue"}, StatusPending},
	{[]string{"receiv"}, StatusReceived},
	{[]string{"sent", "server"}, StatusSent},
}

func defaultStatus(dir Direction) Status {
	if dir == DirectionOutbound {
		return DefaultOutboundStatus
	}
	return DefaultInboundStatus
}

// StatusFromAck 數字 ack 代碼轉狀態.
func StatusFromAck(code int64, dir Direction) Status {
	switch {
	case code < 0:
		return StatusFailed
	case code == 0:
		if dir == DirectionOutbound {
			return StatusPending
		}
		return StatusReceived
	case code == 1:
		return StatusSent
	case code == 2:
		return StatusDelivered
	default:
		return StatusRead
	}
}

// StatusFromString 字串狀態轉換；數字字串視為 ack 代碼，無法辨識時依方向預設.
func StatusFromString(raw string, dir Direction) Status {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return defaultStatus(dir)
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return StatusFromAck(n, dir)
	}
	for _, kw := range statusKeywords {
		for _, k := range kw.keywords {
			if strings.Contains(s, k) {
				return kw.status
			}
		}
	}
	return defaultStatus(dir)
}
