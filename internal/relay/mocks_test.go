package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/odanieltavares/whatpro-manager/internal/models"
)

// fakePlatform implements ChatPlatform with canned ids and call recording.
type fakePlatform struct {
	mu             sync.Mutex
	contactID      int
	sourceID       string
	conversationID int
	convStatus     string
	nextMessageID  int

	messages      []string
	privateNotes  []string
	reopened      []int
	createErr     error
	ensureContact error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		contactID:      11,
		sourceID:       "src-11",
		conversationID: 42,
		convStatus:     "open",
		nextMessageID:  1000,
	}
}

func (p *fakePlatform) EnsureContact(_ context.Context, _, _ int, _, _ string) (int, string, error) {
	if p.ensureContact != nil {
		return 0, "", p.ensureContact
	}
	return p.contactID, p.sourceID, nil
}

func (p *fakePlatform) EnsureConversation(_ context.Context, _, _, _ int, _ string) (int, string, error) {
	return p.conversationID, p.convStatus, nil
}

func (p *fakePlatform) CreateMessage(_ context.Context, _, _ int, content string, _ bool) (int, error) {
	if p.createErr != nil {
		return 0, p.createErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, content)
	p.nextMessageID++
	return p.nextMessageID, nil
}

func (p *fakePlatform) CreateAttachmentMessage(_ context.Context, _, _ int, caption, mediaURL, _ string, _ bool) (int, error) {
	if p.createErr != nil {
		return 0, p.createErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, "attachment:"+mediaURL+":"+caption)
	p.nextMessageID++
	return p.nextMessageID, nil
}

func (p *fakePlatform) ReopenConversation(_ context.Context, _, conversationID int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reopened = append(p.reopened, conversationID)
	return nil
}

func (p *fakePlatform) CreatePrivateNote(_ context.Context, _, _ int, content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.privateNotes = append(p.privateNotes, content)
	return nil
}

func (p *fakePlatform) notes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.privateNotes...)
}

// fakeProvider implements ProviderClient.
type fakeProvider struct {
	mu       sync.Mutex
	sent     []*models.OutboundMessage
	rejected []string
	deleted  []string
	sendErr  error
	nextID   int
}

func (p *fakeProvider) SendMessage(_ context.Context, msg *models.OutboundMessage) (string, error) {
	if p.sendErr != nil {
		return "", p.sendErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	copied := *msg
	p.sent = append(p.sent, &copied)
	p.nextID++
	return fmt.Sprintf("wa-%d", p.nextID), nil
}

func (p *fakeProvider) RejectCall(_ context.Context, _ string, callRef string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rejected = append(p.rejected, callRef)
	return nil
}

func (p *fakeProvider) DeleteMessage(_ context.Context, waMessageID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, waMessageID)
	return nil
}

func (p *fakeProvider) sentMessages() []*models.OutboundMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*models.OutboundMessage(nil), p.sent...)
}

// fakeResolver implements ConfigResolver over a fixed instance set.
type fakeResolver struct {
	instances []*models.Instance
}

var errInstanceNotFound = errors.New("instance not found")

func (r *fakeResolver) InstanceByID(_ context.Context, id string) (*models.Instance, error) {
	for _, inst := range r.instances {
		if inst.ID == id {
			return inst, nil
		}
	}
	return nil, errInstanceNotFound
}

func (r *fakeResolver) InstanceByToken(_ context.Context, token string) (*models.Instance, error) {
	for _, inst := range r.instances {
		if inst.APIToken == token {
			return inst, nil
		}
	}
	return nil, errInstanceNotFound
}

func (r *fakeResolver) InstanceByInbox(_ context.Context, accountID, inboxID int) (*models.Instance, error) {
	for _, inst := range r.instances {
		if inst.Chatwoot.AccountID == accountID && inst.Chatwoot.InboxID == inboxID {
			return inst, nil
		}
	}
	return nil, errInstanceNotFound
}

// fakeMappings implements MappingStore in memory.
type fakeMappings struct {
	mu       sync.Mutex
	mappings []*models.MessageMapping
	saveErr  error
}

func (m *fakeMappings) SaveMapping(_ context.Context, mapping *models.MessageMapping) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mappings = append(m.mappings, mapping)
	return nil
}

func (m *fakeMappings) MappingByChatwootID(_ context.Context, chatwootMessageID int) (*models.MessageMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mapping := range m.mappings {
		if mapping.ChatwootMessageID == chatwootMessageID {
			return mapping, nil
		}
	}
	return nil, nil
}

func (m *fakeMappings) MappingByWAMessageID(_ context.Context, waMessageID string) (*models.MessageMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mapping := range m.mappings {
		if mapping.WAMessageID == waMessageID {
			return mapping, nil
		}
	}
	return nil, nil
}

func (m *fakeMappings) UpdateMappingStatus(_ context.Context, waMessageID string, status models.DeliveryStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mapping := range m.mappings {
		if mapping.WAMessageID == waMessageID {
			mapping.Status = status
			return true, nil
		}
	}
	return false, nil
}

func (m *fakeMappings) all() []*models.MessageMapping {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.MessageMapping(nil), m.mappings...)
}
