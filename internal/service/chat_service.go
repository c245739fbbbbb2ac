package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"rules-chat/internal/domain"
	"rules-chat/internal/llm"
	"rules-chat/internal/repository"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrEmptyMessage         = errors.New("message is empty")
	ErrChatNotConfigured    = errors.New("chat service not configured")
)

// ChatService responde preguntas sobre el reglamento dentro de una conversacion.
type ChatService struct {
	logger        *zap.Logger
	llm           llm.LLMClient
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	history       ContextService
	retriever     *Retriever
	model         string
	lightModel    string
}

type ChatServiceConfig struct {
	Model      string
	LightModel string
}

func NewChatService(
	logger *zap.Logger,
	llmClient llm.LLMClient,
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	history ContextService,
	retriever *Retriever,
	cfg ChatServiceConfig,
) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		logger:        logger,
		llm:           llmClient,
		conversations: conversations,
		messages:      messages,
		history:       history,
		retriever:     retriever,
		model:         cfg.Model,
		lightModel:    cfg.LightModel,
	}
}

func (s *ChatService) CreateConversation(ctx context.Context, userID string) (domain.Conversation, error) {
	if s == nil || s.conversations == nil {
		return domain.Conversation{}, ErrChatNotConfigured
	}
	conv := domain.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return domain.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// Answer responde la pregunta. Si conversationID esta vacio se abre una conversacion nueva.
// Devuelve la respuesta y el id de conversacion usado.
func (s *ChatService) Answer(ctx context.Context, userID, conversationID, question string) (string, string, error) {
	if s == nil || s.llm == nil || s.messages == nil {
		return "", "", ErrChatNotConfigured
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", "", ErrEmptyMessage
	}

	if strings.TrimSpace(conversationID) == "" {
		conv, err := s.CreateConversation(ctx, userID)
		if err != nil {
			return "", "", err
		}
		conversationID = conv.ID
	} else if _, err := s.ownedConversation(ctx, userID, conversationID); err != nil {
		return "", "", err
	}

	history, err := s.history.History(ctx, conversationID)
	if err != nil {
		return "", "", err
	}

	query := s.rewordQuery(ctx, history, question)
	sections, err := s.retriever.Search(ctx, query)
	if err != nil {
		return "", "", err
	}
	items := make([]contextItem, 0, len(sections))
	for _, sec := range sections {
		items = append(items, contextItem{Source: sec.Source, Content: sec.Content})
	}

	answer, err := s.generateAnswer(ctx, history, question, items)
	if err != nil {
		return "", "", err
	}

	now := time.Now().UTC()
	if err := s.saveMessage(ctx, conversationID, domain.RoleUser, question, now); err != nil {
		return "", "", err
	}
	if err := s.saveMessage(ctx, conversationID, domain.RoleAssistant, answer, now.Add(time.Millisecond)); err != nil {
		return "", "", err
	}
	return answer, conversationID, nil
}

// History devuelve todos los mensajes de una conversacion del usuario.
func (s *ChatService) History(ctx context.Context, userID, conversationID string) ([]domain.Message, error) {
	if s == nil || s.messages == nil {
		return nil, ErrChatNotConfigured
	}
	if _, err := s.ownedConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByConversationID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// ownedConversation no distingue entre inexistente y ajena.
func (s *ChatService) ownedConversation(ctx context.Context, userID, conversationID string) (domain.Conversation, error) {
	if _, err := uuid.Parse(conversationID); err != nil {
		return domain.Conversation{}, ErrConversationNotFound
	}
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Conversation{}, ErrConversationNotFound
		}
		return domain.Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	if conv.UserID != userID {
		return domain.Conversation{}, ErrConversationNotFound
	}
	return conv, nil
}

// rewordQuery reescribe la pregunta con el historial. Ante error o "NONE" usa la original.
func (s *ChatService) rewordQuery(ctx context.Context, history []llm.Message, question string) string {
	if len(history) == 0 {
		return question
	}
	out, err := s.llm.Chat(ctx, []llm.Message{{Role: "user", Content: buildRewordPrompt(history, question)}}, llm.Options{
		Model: s.lightModel,
	})
	if err != nil {
		s.logger.Warn("reword query failed", zap.Error(err))
		return question
	}
	out = strings.Trim(strings.TrimSpace(out), `"`)
	if out == "" || strings.EqualFold(out, "none") {
		return question
	}
	s.logger.Debug("reworded query", zap.String("query", out))
	return out
}

func (s *ChatService) generateAnswer(ctx context.Context, history []llm.Message, question string, items []contextItem) (string, error) {
	temperature := 0.1
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: ragSystemPrompt})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: buildRAGPrompt(question, items)})

	raw, err := s.llm.Chat(ctx, messages, llm.Options{
		Model:       s.model,
		Temperature: &temperature,
		MaxTokens:   1000,
		JSONOutput:  true,
	})
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}

	parsed, ok := parseRAGAnswer(raw)
	if !ok {
		s.logger.Warn("unstructured llm answer, using raw text")
		return cleanLLMJSONResponse(raw), nil
	}
	answer := parsed.Answer
	if answer == "" && parsed.Error != nil {
		answer = strings.TrimSpace(*parsed.Error)
	}
	if len(parsed.RelevantRules) > 0 {
		if rules := formatRelevantRules(parsed.RelevantRules, items); rules != "" {
			answer += "\n\n**Relevant rules:**\n\n" + rules
		}
	}
	return answer, nil
}

func (s *ChatService) saveMessage(ctx context.Context, conversationID, role, content string, at time.Time) error {
	msg := domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      at,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return fmt.Errorf("save %s message: %w", role, err)
	}
	return nil
}
