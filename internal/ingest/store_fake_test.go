package ingest

import (
	"context"
	"sync"
	"time"

	"chat-ingest/internal/queue"
	"chat-ingest/internal/storage/database"

	"github.com/google/uuid"
)

// memoryStore 與 Mongo 實作相同語意的記憶體 Store.
type memoryStore struct {
	mu            sync.Mutex
	contacts      map[string]*database.Contact
	conversations map[string]*database.Conversation
	messages      map[string]*database.Message
	media         map[string]*database.MediaAttachment
	// writes 依對話 ID 記錄訊息寫入順序
	writes map[string][]string

	failMessage func(m *database.Message) error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		contacts:      map[string]*database.Contact{},
		conversations: map[string]*database.Conversation{},
		messages:      map[string]*database.Message{},
		media:         map[string]*database.MediaAttachment{},
		writes:        map[string][]string{},
	}
}

func (s *memoryStore) UpsertContact(_ context.Context, c *database.Contact) (*database.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := c.CompanyID + "|" + c.ExternalID
	cur, ok := s.contacts[key]
	if !ok {
		cur = &database.Contact{ID: uuid.NewString(), CompanyID: c.CompanyID, ExternalID: c.ExternalID, CreatedAt: time.Now()}
		s.contacts[key] = cur
	}
	if c.Phone != "" {
		cur.Phone = c.Phone
	}
	if c.DisplayName != "" {
		cur.DisplayName = c.DisplayName
	}
	if c.ProfileName != "" {
		cur.ProfileName = c.ProfileName
	}
	if c.IsBusiness != nil {
		cur.IsBusiness = c.IsBusiness
	}
	for k, v := range c.Extras {
		if cur.Extras == nil {
			cur.Extras = map[string]string{}
		}
		cur.Extras[k] = v
	}
	cp := *cur
	return &cp, nil
}

func (s *memoryStore) UpsertConversation(_ context.Context, c *database.Conversation, reopen bool) (*database.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := c.CompanyID + "|" + c.GroupKey
	cur, ok := s.conversations[key]
	if !ok {
		cur = &database.Conversation{
			ID:         uuid.NewString(),
			CompanyID:  c.CompanyID,
			GroupKey:   c.GroupKey,
			ExternalID: c.ExternalID,
			Status:     database.ConversationOpen,
		}
		s.conversations[key] = cur
	}
	cur.ContactID = c.ContactID
	cur.RoutingID = c.RoutingID
	if reopen {
		cur.Status = database.ConversationOpen
	}
	if c.LastMessageAt.After(cur.LastMessageAt) {
		cur.LastMessageAt = c.LastMessageAt
	}
	cp := *cur
	return &cp, nil
}

func (s *memoryStore) UpsertMessage(_ context.Context, m *database.Message) (*database.Message, error) {
	if s.failMessage != nil {
		if err := s.failMessage(m); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.message(m.CompanyID, m.ProviderMessageID)
	status, rank := cur.Status, cur.StatusRank
	id, created := cur.ID, cur.CreatedAt
	*cur = *m
	cur.ID, cur.CreatedAt = id, created
	cur.Status, cur.StatusRank = status, rank
	advance(cur, m.Status, m.StatusRank)
	s.writes[m.ConversationID] = append(s.writes[m.ConversationID], m.ProviderMessageID)
	cp := *cur
	return &cp, nil
}

func (s *memoryStore) UpsertMediaAttachment(_ context.Context, a *database.MediaAttachment) (*database.MediaAttachment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := a.MessageID + "|" + a.MediaKey
	if cur, ok := s.media[key]; ok {
		cp := *cur
		return &cp, nil
	}
	cp := *a
	cp.ID = uuid.NewString()
	s.media[key] = &cp
	out := cp
	return &out, nil
}

func (s *memoryStore) UpdateMessageStatus(_ context.Context, u *database.StatusUpdate) (*database.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.message(u.CompanyID, u.ProviderMessageID)
	advance(cur, u.Status, u.StatusRank)
	cp := *cur
	return &cp, nil
}

func (s *memoryStore) MarkMessageDeleted(_ context.Context, companyID, providerMessageID string, at time.Time) (*database.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.messages[companyID+"|"+providerMessageID]
	if !ok {
		return nil, database.ErrNotFound
	}
	cur.Deleted = true
	cur.DeletedAt = &at
	cp := *cur
	return &cp, nil
}

// message 取得或建立訊息；呼叫端必須持有鎖.
func (s *memoryStore) message(companyID, providerID string) *database.Message {
	key := companyID + "|" + providerID
	cur, ok := s.messages[key]
	if !ok {
		cur = &database.Message{
			ID:                uuid.NewString(),
			CompanyID:         companyID,
			ProviderMessageID: providerID,
			StatusRank:        -1,
			CreatedAt:         time.Now(),
		}
		s.messages[key] = cur
	}
	return cur
}

func advance(cur *database.Message, status string, rank int) {
	if rank > cur.StatusRank {
		cur.Status, cur.StatusRank = status, rank
	}
}

func (s *memoryStore) stored(companyID, providerID string) *database.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages[companyID+"|"+providerID]
}

// recordingPublisher 記錄收到的任務，可注入錯誤.
type recordingPublisher struct {
	mu   sync.Mutex
	jobs []*queue.MediaJob
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, job *queue.MediaJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }
