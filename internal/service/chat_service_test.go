package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"rules-chat/internal/domain"
	"rules-chat/internal/llm"
)

type mockConversationRepo struct {
	items map[string]domain.Conversation
}

func newMockConversationRepo() *mockConversationRepo {
	return &mockConversationRepo{items: make(map[string]domain.Conversation)}
}

func (m *mockConversationRepo) Create(_ context.Context, c domain.Conversation) error {
	m.items[c.ID] = c
	return nil
}

func (m *mockConversationRepo) GetByID(_ context.Context, id string) (domain.Conversation, error) {
	c, ok := m.items[id]
	if !ok {
		return domain.Conversation{}, pgx.ErrNoRows
	}
	return c, nil
}

type mockMessageRepo struct {
	items     []domain.Message
	createErr error
}

func (m *mockMessageRepo) Create(_ context.Context, msg domain.Message) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.items = append(m.items, msg)
	return nil
}

func (m *mockMessageRepo) ListByConversationID(_ context.Context, id string) ([]domain.Message, error) {
	out := []domain.Message{}
	for _, msg := range m.items {
		if msg.ConversationID == id {
			out = append(out, msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *mockMessageRepo) ListRecent(ctx context.Context, id string, limit int) ([]domain.Message, error) {
	all, _ := m.ListByConversationID(ctx, id)
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

type mockRuleRepo struct {
	sections  []domain.RuleSection
	lastK     int
	searchErr error
}

func (m *mockRuleRepo) Create(_ context.Context, s domain.RuleSection) error {
	m.sections = append(m.sections, s)
	return nil
}

func (m *mockRuleRepo) DeleteBySource(_ context.Context, source string) (int64, error) {
	kept := m.sections[:0]
	var removed int64
	for _, s := range m.sections {
		if s.Source == source {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	m.sections = kept
	return removed, nil
}

func (m *mockRuleRepo) Search(_ context.Context, _ pgvector.Vector, k int) ([]domain.RuleSection, error) {
	m.lastK = k
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.sections, nil
}

type chatFixture struct {
	svc   *ChatService
	llm   *llm.MockClient
	convs *mockConversationRepo
	msgs  *mockMessageRepo
	rules *mockRuleRepo
}

func newChatFixture() chatFixture {
	f := chatFixture{
		llm:   &llm.MockClient{},
		convs: newMockConversationRepo(),
		msgs:  &mockMessageRepo{},
		rules: &mockRuleRepo{sections: []domain.RuleSection{
			{Source: domain.SourceRules, RuleNumber: "15.A", Content: "15.A. Each point begins with a pull.\n15.A.1. The pull is thrown by the defense."},
			{Source: domain.SourceGlossary, Content: "Pull: the throw that starts a point."},
		}},
	}
	f.svc = NewChatService(zap.NewNop(), f.llm, f.convs, f.msgs,
		NewWindowContextService(f.msgs, 5),
		NewRetriever(f.llm, f.rules, 3),
		ChatServiceConfig{Model: "big", LightModel: "small"},
	)
	return f
}

func TestChatServiceAnswer_NewConversationAppendsRules(t *testing.T) {
	f := newChatFixture()
	f.llm.Response = `{"answer": "The defense pulls.", "relevant_rules": ["15.A.1"], "error": null}`

	answer, convID, err := f.svc.Answer(context.Background(), "u1", "", "who pulls?")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if convID == "" {
		t.Fatalf("expected conversation to be created")
	}
	if f.convs.items[convID].UserID != "u1" {
		t.Fatalf("conversation owner not stored")
	}
	if !strings.HasPrefix(answer, "The defense pulls.") {
		t.Fatalf("unexpected answer %q", answer)
	}
	if !strings.Contains(answer, "**Relevant rules:**") || !strings.Contains(answer, "- **15.A.1**: The pull is thrown by the defense.") {
		t.Fatalf("relevant rules not appended: %q", answer)
	}
	if len(f.llm.Calls) != 1 {
		t.Fatalf("no reword call expected without history, got %d calls", len(f.llm.Calls))
	}
	if f.rules.lastK != 3 {
		t.Fatalf("unexpected retriever limit %d", f.rules.lastK)
	}
	if len(f.msgs.items) != 2 || f.msgs.items[0].Role != domain.RoleUser || f.msgs.items[1].Role != domain.RoleAssistant {
		t.Fatalf("expected user then assistant messages, got %+v", f.msgs.items)
	}
}

func TestChatServiceAnswer_UsesHistoryAndReword(t *testing.T) {
	f := newChatFixture()
	conv, err := f.svc.CreateConversation(context.Background(), "u1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f.llm.Responses = []string{
		`{"answer": "A pull starts a point.", "relevant_rules": [], "error": null}`,
		"who throws the pull",
		`{"answer": "The defense.", "relevant_rules": [], "error": null}`,
	}

	if _, _, err := f.svc.Answer(context.Background(), "u1", conv.ID, "what is a pull?"); err != nil {
		t.Fatalf("first answer: %v", err)
	}
	answer, _, err := f.svc.Answer(context.Background(), "u1", conv.ID, "who throws it?")
	if err != nil {
		t.Fatalf("second answer: %v", err)
	}
	if answer != "The defense." {
		t.Fatalf("unexpected answer %q", answer)
	}
	if len(f.llm.Calls) != 3 {
		t.Fatalf("expected 3 llm calls, got %d", len(f.llm.Calls))
	}
	final := f.llm.Calls[2]
	if final[0].Role != "system" || len(final) != 4 {
		t.Fatalf("expected system + 2 history + prompt, got %+v", final)
	}
	if final[1].Content != "what is a pull?" || final[2].Role != "assistant" {
		t.Fatalf("history not forwarded in order: %+v", final)
	}
	if !strings.Contains(final[3].Content, `"who throws it?"`) {
		t.Fatalf("prompt must carry the original question")
	}
}

func TestChatServiceAnswer_RawFallback(t *testing.T) {
	f := newChatFixture()
	f.llm.Response = "```\nJust text.\n```"

	answer, _, err := f.svc.Answer(context.Background(), "u1", "", "hello")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if answer != "Just text." {
		t.Fatalf("unexpected fallback %q", answer)
	}
}

func TestChatServiceAnswer_Errors(t *testing.T) {
	f := newChatFixture()
	if _, _, err := f.svc.Answer(context.Background(), "u1", "", "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected empty message, got %v", err)
	}
	if _, _, err := f.svc.Answer(context.Background(), "u1", "not-a-uuid", "hi"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	conv, _ := f.svc.CreateConversation(context.Background(), "owner")
	if _, _, err := f.svc.Answer(context.Background(), "intruder", conv.ID, "hi"); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected not found for foreign conversation, got %v", err)
	}

	f.llm.Err = errors.New("llm down")
	if _, _, err := f.svc.Answer(context.Background(), "owner", conv.ID, "hi"); err == nil {
		t.Fatalf("expected llm error")
	}
	if len(f.msgs.items) != 0 {
		t.Fatalf("no messages should be saved on failure")
	}
}

func TestChatServiceHistory(t *testing.T) {
	f := newChatFixture()
	f.llm.Response = `{"answer": "Yes.", "relevant_rules": []}`
	_, convID, err := f.svc.Answer(context.Background(), "u1", "", "is it?")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}

	msgs, err := f.svc.History(context.Background(), "u1", convID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Content != "is it?" || msgs[1].Content != "Yes." {
		t.Fatalf("unexpected history %+v", msgs)
	}
	if _, err := f.svc.History(context.Background(), "u2", convID); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected not found for other user, got %v", err)
	}
}
