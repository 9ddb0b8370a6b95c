package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chat-ingest/internal/constants"
	"chat-ingest/internal/platform/logger"
	"chat-ingest/internal/platform/metrics"
	"chat-ingest/internal/queue"
	"chat-ingest/internal/storage/database"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

// defaultQueueTimeout 一次請求內所有媒體任務發佈的等待上限.
const defaultQueueTimeout = constants.DefaultQueueTimeout * time.Second

// Request 一次 webhook 請求.
type Request struct {
	Body []byte
	// CompanyHint payload 沒有公司 ID 時使用，通常來自 header.
	CompanyHint string
}

// Pipeline Extract → Normalize → 持久化 → 媒體任務 → 彙整.
type Pipeline struct {
	extractor    *Extractor
	normalizer   *Normalizer
	store        database.Store
	publisher    queue.Publisher
	workers      int
	queueTimeout time.Duration
}

// Option 設定 Pipeline.
type Option func(*Pipeline)

// WithPublisher 設定媒體任務發佈者；nil 表示不發佈.
func WithPublisher(p queue.Publisher) Option {
	return func(pl *Pipeline) {
		pl.publisher = p
	}
}

// WithWorkers 大於 1 時不同對話的候選記錄會並行處理.
func WithWorkers(n int) Option {
	return func(pl *Pipeline) {
		pl.workers = n
	}
}

// WithNormalizer 替換預設的 Normalizer.
func WithNormalizer(n *Normalizer) Option {
	return func(pl *Pipeline) {
		pl.normalizer = n
	}
}

// WithExtractor 替換預設的 Extractor.
func WithExtractor(e *Extractor) Option {
	return func(pl *Pipeline) {
		pl.extractor = e
	}
}

// WithQueueTimeout 設定整批發佈的等待上限.
func WithQueueTimeout(d time.Duration) Option {
	return func(pl *Pipeline) {
		pl.queueTimeout = d
	}
}

// NewPipeline 創建管線.
func NewPipeline(store database.Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:    NewExtractor(),
		normalizer:   NewNormalizer(NormalizerOptions{}),
		store:        store,
		workers:      1,
		queueTimeout: defaultQueueTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process 只有 body 不是合法 JSON 時回傳錯誤；個別候選記錄的失敗記錄在結果中.
func (p *Pipeline) Process(ctx context.Context, req Request) (*Summary, error) {
	if !gjson.ValidBytes(req.Body) {
		return nil, ErrInvalidPayload
	}
	envelope := gjson.ParseBytes(req.Body)

	// 請求一旦被接受，每個候選記錄都要處理完成
	ctx = context.WithoutCancel(ctx)

	candidates := p.extractor.Extract(envelope)
	items := make([]*NormalizedMessage, 0, len(candidates))
	for _, c := range candidates {
		metrics.CandidatesTotal.WithLabelValues(string(c.Category)).Inc()

		if c.Category == CategoryConnection {
			metrics.DroppedTotal.WithLabelValues("connection_event").Inc()
			logger.Info(ctx, "略過連線事件",
				logger.WithAction("extract"),
				logger.WithDetails(map[string]interface{}{"event": FirstString(envelope, eventPaths...)}))
			continue
		}

		msg, err := p.normalizer.Normalize(c, envelope, req.CompanyHint)
		if err != nil {
			metrics.DroppedTotal.WithLabelValues(dropReason(err)).Inc()
			logger.Warning(ctx, "候選記錄缺少必要識別欄位，已丟棄",
				logger.WithCompanyID(req.CompanyHint),
				logger.WithAction("normalize"),
				logger.WithDetails(map[string]interface{}{
					"reason":    err.Error(),
					"category":  string(c.Category),
					"candidate": truncateUTF8(c.Raw.Raw, constants.MaxDroppedCandidateBytes),
				}))
			continue
		}
		items = append(items, msg)
	}

	if len(candidates) == 0 {
		logger.Info(ctx, "payload 中沒有可辨識的候選記錄", logger.WithAction("extract"))
	}

	// 整批共用一個發佈等待上限，broker 停滯時總延遲不隨媒體訊息數增加
	queueCtx, cancel := context.WithTimeout(ctx, p.queueTimeout)
	defer cancel()

	return newSummary(p.persistAll(ctx, queueCtx, items)), nil
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingCompanyID):
		return "missing_company_id"
	case errors.Is(err, ErrMissingRoutingID):
		return "missing_routing_id"
	case errors.Is(err, ErrMissingMessageID):
		return "missing_message_id"
	}
	return "other"
}

// persistAll 結果順序與輸入相同.
// 並行時共用聯絡人或對話的寫入在同一個 goroutine 內依序執行；沒有任何鍵的記錄在所有群組完成後處理.
func (p *Pipeline) persistAll(ctx, queueCtx context.Context, items []*NormalizedMessage) []ItemResult {
	results := make([]ItemResult, len(items))
	if p.workers <= 1 || len(items) < 2 {
		for i, m := range items {
			results[i] = p.persist(ctx, queueCtx, m)
		}
		return results
	}

	groups, rest := groupByConversation(items)
	var g errgroup.Group
	g.SetLimit(p.workers)
	for _, idxs := range groups {
		g.Go(func() error {
			for _, i := range idxs {
				results[i] = p.persist(ctx, queueCtx, items[i])
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, i := range rest {
		results[i] = p.persist(ctx, queueCtx, items[i])
	}
	return results
}

// groupByConversation 共用聯絡人鍵或對話鍵的記錄併入同一組（遞移），組依第一次出現的順序排列，回傳索引.
func groupByConversation(items []*NormalizedMessage) (groups [][]int, rest []int) {
	parent := make([]int, len(items))
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	keyed := make([]bool, len(items))
	owner := map[string]int{}
	for i, m := range items {
		for _, key := range m.WriteKeys() {
			keyed[i] = true
			j, ok := owner[key]
			if !ok {
				owner[key] = i
				continue
			}
			// 以較小的索引作為根
			ri, rj := find(i), find(j)
			if ri < rj {
				parent[rj] = ri
			} else if rj < ri {
				parent[ri] = rj
			}
		}
	}

	index := map[int]int{}
	for i := range items {
		if !keyed[i] {
			rest = append(rest, i)
			continue
		}
		root := find(i)
		g, ok := index[root]
		if !ok {
			g = len(groups)
			index[root] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups, rest
}

func (p *Pipeline) persist(ctx, queueCtx context.Context, m *NormalizedMessage) ItemResult {
	var res ItemResult
	switch m.Category {
	case CategoryStatus:
		res = p.applyStatus(ctx, m)
	case CategoryDeletion:
		res = p.applyDeletion(ctx, m)
	default:
		res = p.persistMessage(ctx, queueCtx, m)
	}

	if res.Failed() {
		metrics.ResultsTotal.WithLabelValues("error").Inc()
		logger.Error(ctx, "候選記錄持久化失敗",
			logger.WithCompanyID(m.CompanyID),
			logger.WithMessageID(m.ProviderMessageID),
			logger.WithAction("persist"),
			logger.WithDetails(map[string]interface{}{
				"category": string(m.Category),
				"error":    res.Error,
			}))
	} else {
		metrics.ResultsTotal.WithLabelValues("success").Inc()
	}
	return res
}

func failed(res ItemResult, stage string, err error) ItemResult {
	res.Err = fmt.Errorf("%s: %w", stage, err)
	res.Error = res.Err.Error()
	res.MessageID = ""
	return res
}

// persistMessage Contact → Conversation → Message → MediaAttachment[]，任一階段失敗即中止此訊息.
func (p *Pipeline) persistMessage(ctx, queueCtx context.Context, m *NormalizedMessage) ItemResult {
	res := ItemResult{ProviderMessageID: m.ProviderMessageID}

	contact, err := p.store.UpsertContact(ctx, contactRecord(m))
	if err != nil {
		return failed(res, "contact upsert", err)
	}

	conv, err := p.store.UpsertConversation(ctx, conversationRecord(m, contact.ID), m.Direction == DirectionInbound)
	if err != nil {
		return failed(res, "conversation upsert", err)
	}

	msg, err := p.store.UpsertMessage(ctx, messageRecord(m, conv.ID, contact.ID))
	if err != nil {
		return failed(res, "message upsert", err)
	}

	attachments := make([]*database.MediaAttachment, 0, len(m.Media))
	for _, d := range m.Media {
		a, err := p.store.UpsertMediaAttachment(ctx, mediaRecord(m, msg.ID, d))
		if err != nil {
			return failed(res, "media upsert", err)
		}
		attachments = append(attachments, a)
	}

	res.MessageID = msg.ID
	res.Queue = p.enqueueMedia(ctx, queueCtx, m, msg, conv, attachments)
	return res
}

func (p *Pipeline) applyStatus(ctx context.Context, m *NormalizedMessage) ItemResult {
	res := ItemResult{ProviderMessageID: m.ProviderMessageID}
	msg, err := p.store.UpdateMessageStatus(ctx, &database.StatusUpdate{
		CompanyID:         m.CompanyID,
		ProviderMessageID: m.ProviderMessageID,
		Status:            string(m.Status),
		StatusRank:        m.Status.Rank(),
		At:                m.Timestamp,
	})
	if err != nil {
		return failed(res, "status update", err)
	}
	res.MessageID = msg.ID
	return res
}

func (p *Pipeline) applyDeletion(ctx context.Context, m *NormalizedMessage) ItemResult {
	res := ItemResult{ProviderMessageID: m.ProviderMessageID}
	msg, err := p.store.MarkMessageDeleted(ctx, m.CompanyID, m.ProviderMessageID, m.Timestamp)
	if errors.Is(err, database.ErrNotFound) {
		err = ErrMessageNotFound
	}
	if err != nil {
		return failed(res, "message delete", err)
	}
	res.MessageID = msg.ID
	return res
}

// enqueueMedia 盡力發佈；錯誤只記錄，不影響結果.
// queueCtx 是整批共用的等待上限，用完後其餘任務直接記為失敗.
func (p *Pipeline) enqueueMedia(ctx, queueCtx context.Context, m *NormalizedMessage, msg *database.Message, conv *database.Conversation, attachments []*database.MediaAttachment) SideEffect {
	if p.publisher == nil || len(attachments) == 0 {
		return SideEffect{}
	}

	err := queueCtx.Err()
	if err == nil {
		err = p.publisher.Publish(queueCtx, mediaJob(m, msg, conv, attachments))
	}
	if err != nil {
		metrics.QueueFailuresTotal.Inc()
		logger.Error(ctx, "媒體任務發佈失敗",
			logger.WithCompanyID(m.CompanyID),
			logger.WithConversationID(conv.ID),
			logger.WithMessageID(msg.ID),
			logger.WithAction("enqueue"),
			logger.WithDetails(map[string]interface{}{
				"attachments": len(attachments),
				"error":       err.Error(),
			}))
	}
	return SideEffect{Attempted: true, Err: err}
}
