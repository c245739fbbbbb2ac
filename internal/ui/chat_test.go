package ui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"rules-chat/internal/client"
	"rules-chat/internal/session"
)

type fakeChatAPI struct {
	convID    string
	createErr error
	sendErr   error
	sent      []string
}

func (f *fakeChatAPI) CreateConversation(context.Context) (string, error) {
	return f.convID, f.createErr
}

func (f *fakeChatAPI) SendMessage(_ context.Context, text, conversationID string) (client.ChatResponse, error) {
	f.sent = append(f.sent, text)
	if f.sendErr != nil {
		return client.ChatResponse{}, f.sendErr
	}
	if conversationID == "" {
		conversationID = "created-by-chat"
	}
	return client.ChatResponse{Message: "reply to " + text, ConversationID: conversationID}, nil
}

func typeText(m *ChatModel, text string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func startedChat(t *testing.T, api *fakeChatAPI) (*ChatModel, *session.MemoryStore, *Router) {
	t.Helper()
	store := session.NewMemoryStore()
	_ = store.SetToken("tok")
	nav := NewRouter(RouteChat)
	m := NewChatModel(context.Background(), api, store, nav)
	m.Update(m.Init()())
	return m, store, nav
}

func TestChatModel_InitCreatesConversationWithWelcome(t *testing.T) {
	m, _, _ := startedChat(t, &fakeChatAPI{convID: "c1"})
	if m.ConversationID != "c1" {
		t.Fatalf("expected conversation id, got %q", m.ConversationID)
	}
	if len(m.Messages) != 1 || m.Messages[0].Role != "assistant" || m.Messages[0].Content != welcomeMessage {
		t.Fatalf("expected welcome message, got %+v", m.Messages)
	}
}

func TestChatModel_OptimisticSendThenReply(t *testing.T) {
	api := &fakeChatAPI{convID: "c1"}
	m, _, _ := startedChat(t, api)

	typeText(m, "who pulls?")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("expected send command")
	}
	if len(m.Messages) != 2 || m.Messages[1].Role != "user" || m.Messages[1].Content != "who pulls?" {
		t.Fatalf("user message must be appended before the reply, got %+v", m.Messages)
	}
	if !m.Pending || m.Input != "" {
		t.Fatalf("expected pending with cleared input")
	}

	typeText(m, "second")
	if _, blocked := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); blocked != nil {
		t.Fatalf("enter must be ignored while a reply is pending")
	}

	m.Update(cmd())
	if m.Pending {
		t.Fatalf("expected pending cleared")
	}
	if len(m.Messages) != 3 || m.Messages[2].Role != "assistant" || m.Messages[2].Content != "reply to who pulls?" {
		t.Fatalf("unexpected messages %+v", m.Messages)
	}
	if len(api.sent) != 1 {
		t.Fatalf("expected one send, got %v", api.sent)
	}
}

func TestChatModel_FailureKeepsOptimisticMessage(t *testing.T) {
	api := &fakeChatAPI{convID: "c1", sendErr: errors.New("boom")}
	m, store, nav := startedChat(t, api)

	typeText(m, "hello")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m.Update(cmd())

	if m.Err == "" {
		t.Fatalf("expected inline error")
	}
	if len(m.Messages) != 2 || m.Messages[1].Content != "hello" {
		t.Fatalf("optimistic message must not be rolled back, got %+v", m.Messages)
	}
	if _, ok := store.Token(); !ok || nav.Current() != RouteChat {
		t.Fatalf("non-auth errors must not log out")
	}
}

func TestChatModel_UnauthorizedLogsOut(t *testing.T) {
	api := &fakeChatAPI{convID: "c1", sendErr: client.ErrUnauthorized}
	m, store, nav := startedChat(t, api)

	typeText(m, "hello")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	_, quit := m.Update(cmd())

	if quit == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := store.Token(); ok {
		t.Fatalf("token must be cleared on 401")
	}
	if nav.Current() != RouteLogin {
		t.Fatalf("expected login route, got %s", nav.Current())
	}
}

func TestChatModel_CreateUnauthorizedLogsOut(t *testing.T) {
	store := session.NewMemoryStore()
	_ = store.SetToken("tok")
	nav := NewRouter(RouteChat)
	m := NewChatModel(context.Background(), &fakeChatAPI{createErr: client.ErrUnauthorized}, store, nav)

	m.Update(m.Init()())
	if nav.Current() != RouteLogin {
		t.Fatalf("expected login route")
	}
}

func TestChatModel_ThemeToggleAndLogout(t *testing.T) {
	m, store, nav := startedChat(t, &fakeChatAPI{convID: "c1"})

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	if !store.DarkMode() {
		t.Fatalf("expected dark mode persisted")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	if store.DarkMode() {
		t.Fatalf("expected dark mode toggled back")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	if _, ok := store.Token(); ok || nav.Current() != RouteLogin {
		t.Fatalf("logout must clear token and go to login")
	}
}

func TestChatModel_ViewShowsMessages(t *testing.T) {
	m, _, _ := startedChat(t, &fakeChatAPI{convID: "c1"})
	typeText(m, "abc")
	m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	if m.Input != "ab" {
		t.Fatalf("unexpected input %q", m.Input)
	}
	if v := m.View(); v == "" {
		t.Fatalf("expected rendered view")
	}
}

func TestChatModel_EnterWaitsForConversation(t *testing.T) {
	api := &fakeChatAPI{convID: "created-on-load"}
	store := session.NewMemoryStore()
	_ = store.SetToken("tok")
	m := NewChatModel(context.Background(), api, store, NewRouter(RouteChat))
	initCmd := m.Init()

	typeText(m, "q1")
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Fatalf("enter must be ignored before the conversation exists")
	}
	if len(m.Messages) != 0 || m.Input != "q1" || len(api.sent) != 0 {
		t.Fatalf("nothing should be sent yet: messages=%+v input=%q sent=%v", m.Messages, m.Input, api.sent)
	}

	m.Update(initCmd())
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("expected send once the conversation exists")
	}
	m.Update(cmd())

	if m.ConversationID != "created-on-load" {
		t.Fatalf("expected the conversation created on load, got %q", m.ConversationID)
	}
	want := []string{welcomeMessage, "q1", "reply to q1"}
	if len(m.Messages) != len(want) {
		t.Fatalf("unexpected messages %+v", m.Messages)
	}
	for i, content := range want {
		if m.Messages[i].Content != content {
			t.Fatalf("message %d = %q, want %q", i, m.Messages[i].Content, content)
		}
	}
}

func TestChatModel_CreateFailureStillAllowsSending(t *testing.T) {
	api := &fakeChatAPI{createErr: errors.New("boom")}
	m, _, nav := startedChat(t, api)
	if m.Err == "" || nav.Current() != RouteChat {
		t.Fatalf("expected inline error and to stay on chat")
	}

	typeText(m, "q1")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("expected send after a failed creation")
	}
	m.Update(cmd())
	if m.ConversationID != "created-by-chat" {
		t.Fatalf("expected the id created by the backend, got %q", m.ConversationID)
	}
}

func TestChatModel_LateCreationKeepsAdoptedConversation(t *testing.T) {
	m := NewChatModel(context.Background(), &fakeChatAPI{}, session.NewMemoryStore(), NewRouter(RouteChat))
	m.ConversationID = "adopted"
	m.Messages = []client.ChatMessage{{Role: "user", Content: "q1"}}

	m.Update(conversationCreatedMsg{id: "late"})

	if m.ConversationID != "adopted" {
		t.Fatalf("expected adopted id kept, got %q", m.ConversationID)
	}
	if m.Messages[0].Content != welcomeMessage || m.Messages[1].Content != "q1" {
		t.Fatalf("welcome must come first, got %+v", m.Messages)
	}
}
