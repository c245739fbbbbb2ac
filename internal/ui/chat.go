package ui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rules-chat/internal/client"
	"rules-chat/internal/session"
)

const welcomeMessage = "👋 Welcome to Ultimate Rules Chat! You can ask me questions about the rules of ultimate (USAU 2024-25), and I'll do my best to provide clear and accurate answers. What would you like to know?"

type ChatAPI interface {
	CreateConversation(ctx context.Context) (string, error)
	SendMessage(ctx context.Context, text, conversationID string) (client.ChatResponse, error)
}

type conversationCreatedMsg struct{ id string }

type conversationFailedMsg struct{ err error }

type replyMsg struct{ resp client.ChatResponse }

type replyFailedMsg struct{ err error }

// ChatModel es la pagina de chat. Los envios son optimistas: el mensaje del usuario se agrega
// antes de llamar al backend y la respuesta al llegar. Enter se ignora hasta que la creacion
// de la conversacion termina (bien o mal) y mientras hay una respuesta pendiente, asi todos
// los turnos van a la misma conversacion y las respuestas quedan en orden de envio.
type ChatModel struct {
	ctx   context.Context
	api   ChatAPI
	store session.Store
	nav   Navigator
	theme Theme

	ConversationID string
	Messages       []client.ChatMessage
	Input          string
	Pending        bool
	Err            string

	ready bool

	width int
}

func NewChatModel(ctx context.Context, api ChatAPI, store session.Store, nav Navigator) *ChatModel {
	return &ChatModel{
		ctx:   ctx,
		api:   api,
		store: store,
		nav:   nav,
		theme: NewTheme(store.DarkMode()),
	}
}

func (m *ChatModel) Init() tea.Cmd {
	return m.createConversation()
}

func (m *ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case conversationCreatedMsg:
		m.ready = true
		if m.ConversationID == "" {
			m.ConversationID = msg.id
		}
		m.Err = ""
		welcome := client.ChatMessage{Role: "assistant", Content: welcomeMessage}
		m.Messages = append([]client.ChatMessage{welcome}, m.Messages...)
		return m, nil

	case conversationFailedMsg:
		// Sin id el primer envio deja que el backend cree la conversacion.
		m.ready = true
		if forceLogout(msg.err, m.store, m.nav) {
			return m, tea.Quit
		}
		m.Err = "Failed to start conversation. Please try again."
		return m, nil

	case replyMsg:
		m.Pending = false
		if m.ConversationID == "" {
			m.ConversationID = msg.resp.ConversationID
		}
		m.Messages = append(m.Messages, client.ChatMessage{Role: "assistant", Content: msg.resp.Message})
		return m, nil

	case replyFailedMsg:
		m.Pending = false
		if forceLogout(msg.err, m.store, m.nav) {
			return m, tea.Quit
		}
		m.Err = "Failed to send message. Please try again."
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *ChatModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.nav.Navigate(RouteQuit)
		return m, tea.Quit
	case tea.KeyCtrlT:
		m.ToggleTheme()
		return m, nil
	case tea.KeyCtrlL:
		m.Logout()
		return m, tea.Quit
	case tea.KeyCtrlP:
		m.nav.Navigate(RouteChangePassword)
		return m, tea.Quit
	case tea.KeyEnter:
		return m, m.submit()
	case tea.KeyBackspace:
		if r := []rune(m.Input); len(r) > 0 {
			m.Input = string(r[:len(r)-1])
		}
		return m, nil
	case tea.KeySpace:
		m.Input += " "
		return m, nil
	case tea.KeyRunes:
		m.Input += string(msg.Runes)
		return m, nil
	}
	return m, nil
}

// Logout borra el token y vuelve a login.
func (m *ChatModel) Logout() {
	_ = m.store.ClearToken()
	m.nav.Navigate(RouteLogin)
}

// ToggleTheme invierte y persiste la preferencia de tema.
func (m *ChatModel) ToggleTheme() {
	dark := !m.theme.Dark
	m.theme = NewTheme(dark)
	if err := m.store.SetDarkMode(dark); err != nil {
		m.Err = "Could not save theme preference"
	}
}

func (m *ChatModel) submit() tea.Cmd {
	text := strings.TrimSpace(m.Input)
	if text == "" || m.Pending || !m.ready {
		return nil
	}
	m.Messages = append(m.Messages, client.ChatMessage{Role: "user", Content: text})
	m.Input = ""
	m.Pending = true
	m.Err = ""

	convID := m.ConversationID
	return func() tea.Msg {
		resp, err := m.api.SendMessage(m.ctx, text, convID)
		if err != nil {
			return replyFailedMsg{err: err}
		}
		return replyMsg{resp: resp}
	}
}

func (m *ChatModel) createConversation() tea.Cmd {
	return func() tea.Msg {
		id, err := m.api.CreateConversation(m.ctx)
		if err != nil {
			return conversationFailedMsg{err: err}
		}
		return conversationCreatedMsg{id: id}
	}
}

func (m *ChatModel) View() string {
	var sb strings.Builder
	sb.WriteString(m.theme.Title.Render("Ultimate Rules Chat"))
	sb.WriteString("\n\n")

	wrap := lipgloss.NewStyle()
	if m.width > 4 {
		wrap = wrap.Width(m.width - 4)
	}
	for _, msg := range m.Messages {
		if msg.Role == "user" {
			sb.WriteString(m.theme.User.Render("You: "))
			sb.WriteString(wrap.Render(msg.Content))
		} else {
			sb.WriteString(m.theme.Assistant.Render(wrap.Render(msg.Content)))
		}
		sb.WriteString("\n\n")
	}
	if !m.ready {
		sb.WriteString(m.theme.Muted.Render("Starting conversation..."))
		sb.WriteString("\n\n")
	}
	if m.Pending {
		sb.WriteString(m.theme.Muted.Render("Markus is typing..."))
		sb.WriteString("\n\n")
	}
	if m.Err != "" {
		sb.WriteString(m.theme.Error.Render(m.Err))
		sb.WriteString("\n\n")
	}
	sb.WriteString(m.theme.Input.Render("> " + m.Input))
	sb.WriteString("\n")
	sb.WriteString(m.theme.Muted.Render("enter send · ctrl+t theme · ctrl+p change password · ctrl+l logout · esc quit"))
	sb.WriteString("\n")
	return sb.String()
}
