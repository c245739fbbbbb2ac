package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rules-chat/internal/service"
)

// ChatHandler mantiene dependencias para endpoints de conversaciones.
type ChatHandler struct {
	logger   *zap.Logger
	chatServ *service.ChatService
}

func NewChatHandler(logger *zap.Logger, chatServ *service.ChatService) *ChatHandler {
	return &ChatHandler{
		logger:   logger,
		chatServ: chatServ,
	}
}

type chatMessageDTO struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CreateConversation maneja POST /conversation.
func (h *ChatHandler) CreateConversation(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conv, err := h.chatServ.CreateConversation(c.Request.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("create conversation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create conversation"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"conversation_id": conv.ID})
}

// Chat maneja POST /chat.
func (h *ChatHandler) Chat(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req struct {
		Message        string `json:"message"`
		ConversationID string `json:"conversation_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	answer, convID, err := h.chatServ.Answer(c.Request.Context(), claims.UserID, req.ConversationID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyMessage):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrConversationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		default:
			h.logger.Error("chat failed", zap.Error(err), zap.String("conversation_id", req.ConversationID))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate answer"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": answer, "conversation_id": convID})
}

// GetConversation maneja GET /conversation/:id.
func (h *ChatHandler) GetConversation(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	convID := c.Param("id")

	msgs, err := h.chatServ.History(c.Request.Context(), claims.UserID, convID)
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		h.logger.Error("get conversation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load conversation"})
		return
	}

	out := make([]chatMessageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, chatMessageDTO{Role: m.Role, Content: m.Content})
	}
	c.JSON(http.StatusOK, gin.H{"conversation_id": convID, "messages": out})
}
