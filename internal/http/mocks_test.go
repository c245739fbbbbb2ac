package http

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"rules-chat/internal/domain"
	"rules-chat/internal/llm"
	"rules-chat/internal/service"
)

type mockUserRepo struct {
	mu           sync.Mutex
	usersByID    map[string]domain.User
	usersByEmail map[string]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	id, ok := m.usersByEmail[email]
	m.mu.Unlock()
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(ctx, id)
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.PasswordHash = hash
	m.usersByID[id] = user
	return nil
}

func (m *mockUserRepo) VerifyEmail(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if user.EmailVerifiedAt == nil {
		user.EmailVerifiedAt = &at
	}
	m.usersByID[id] = user
	return nil
}

type mockEmailSender struct {
	mu       sync.Mutex
	lastLink string
}

func (m *mockEmailSender) SendVerificationEmail(_ context.Context, _ string, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLink = link
	return nil
}

func (m *mockEmailSender) SendPasswordResetEmail(_ context.Context, _ string, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLink = link
	return nil
}

type mockConversationRepo struct {
	mu    sync.Mutex
	items map[string]domain.Conversation
}

func (m *mockConversationRepo) Create(_ context.Context, c domain.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[c.ID] = c
	return nil
}

func (m *mockConversationRepo) GetByID(_ context.Context, id string) (domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[id]
	if !ok {
		return domain.Conversation{}, pgx.ErrNoRows
	}
	return c, nil
}

type mockMessageRepo struct {
	mu    sync.Mutex
	items []domain.Message
}

func (m *mockMessageRepo) Create(_ context.Context, msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, msg)
	return nil
}

func (m *mockMessageRepo) ListByConversationID(_ context.Context, id string) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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

type mockRuleRepo struct{}

func (mockRuleRepo) Create(context.Context, domain.RuleSection) error { return nil }

func (mockRuleRepo) DeleteBySource(context.Context, string) (int64, error) { return 0, nil }

func (mockRuleRepo) Search(context.Context, pgvector.Vector, int) ([]domain.RuleSection, error) {
	return []domain.RuleSection{{Source: domain.SourceRules, Content: "1.A. Ultimate is non-contact."}}, nil
}

func seedVerifiedUser(repo *mockUserRepo, id, email, password string) domain.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	now := time.Now().UTC()
	user := domain.User{ID: id, Email: email, PasswordHash: string(hash), EmailVerifiedAt: &now, CreatedAt: now}
	_ = repo.Create(context.Background(), user)
	return user
}

func newTestDeps() (*mockUserRepo, *mockEmailSender, *service.JWTService, *llm.MockClient, *AuthHandler, *ChatHandler) {
	logger := zap.NewNop()
	users := newMockUserRepo()
	sender := &mockEmailSender{}
	jwtSvc := service.NewJWTService("secret", time.Hour, 24*time.Hour, time.Hour)
	userSvc := service.NewUserService(logger, users, sender, jwtSvc, service.NewRequestLimiter(time.Minute, 100), "http://app.test")

	mockLLM := &llm.MockClient{Response: `{"answer": "No contact allowed.", "relevant_rules": ["1.A"], "error": null}`}
	msgs := &mockMessageRepo{}
	chatSvc := service.NewChatService(logger, mockLLM,
		&mockConversationRepo{items: make(map[string]domain.Conversation)},
		msgs,
		service.NewWindowContextService(msgs, 5),
		service.NewRetriever(mockLLM, mockRuleRepo{}, 3),
		service.ChatServiceConfig{Model: "m", LightModel: "l"},
	)
	return users, sender, jwtSvc, mockLLM, NewAuthHandler(logger, userSvc, jwtSvc), NewChatHandler(logger, chatSvc)
}
