package main

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"

	"rules-chat/internal/domain"
)

// --- Repos en memoria: la evaluacion no escribe conversaciones en la base ---

type memoryConversationRepo struct {
	items map[string]domain.Conversation
}

func newMemoryConversationRepo() *memoryConversationRepo {
	return &memoryConversationRepo{items: make(map[string]domain.Conversation)}
}

func (m *memoryConversationRepo) Create(ctx context.Context, c domain.Conversation) error {
	m.items[c.ID] = c
	return nil
}

func (m *memoryConversationRepo) GetByID(ctx context.Context, id string) (domain.Conversation, error) {
	c, ok := m.items[id]
	if !ok {
		return domain.Conversation{}, pgx.ErrNoRows
	}
	return c, nil
}

type memoryMessageRepo struct {
	msgs []domain.Message
}

func newMemoryMessageRepo() *memoryMessageRepo { return &memoryMessageRepo{} }

func (m *memoryMessageRepo) Create(ctx context.Context, msg domain.Message) error {
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *memoryMessageRepo) ListByConversationID(ctx context.Context, conversationID string) ([]domain.Message, error) {
	var out []domain.Message
	for _, v := range m.msgs {
		if v.ConversationID == conversationID {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryMessageRepo) ListRecent(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	all, err := m.ListByConversationID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}
