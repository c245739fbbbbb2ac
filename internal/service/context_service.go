package service

import (
	"context"
	"fmt"
	"strings"

	"rules-chat/internal/domain"
	"rules-chat/internal/llm"
	"rules-chat/internal/repository"
)

// ContextService recupera la ventana de historial que acompaña cada pregunta.
type ContextService interface {
	History(ctx context.Context, conversationID string) ([]llm.Message, error)
}

// WindowContextService devuelve los ultimos mensajes de la conversacion en formato chat.
type WindowContextService struct {
	messageRepo repository.MessageRepository
	size        int
}

func NewWindowContextService(messageRepo repository.MessageRepository, size int) *WindowContextService {
	if size <= 0 {
		size = 5
	}
	return &WindowContextService{messageRepo: messageRepo, size: size}
}

func (s *WindowContextService) History(ctx context.Context, conversationID string) ([]llm.Message, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, nil
	}

	messages, err := s.messageRepo.ListRecent(ctx, conversationID, s.size)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Role == domain.RoleAssistant {
			role = "assistant"
		}
		out = append(out, llm.Message{Role: role, Content: m.Content})
	}
	return out, nil
}
