package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"rules-chat/internal/session"
)

// ErrUnauthorized se devuelve ante cualquier 401. El token guardado ya fue borrado.
var ErrUnauthorized = errors.New("unauthorized: session expired or invalid")

// APIError es una respuesta no 2xx distinta de 401.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status=%d: %s", e.StatusCode, e.Message)
}

// ErrorMessage devuelve el texto para mostrar al usuario.
func ErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, ErrUnauthorized) {
		return "Your session has expired. Please log in again."
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// Client habla con el backend. Adjunta el token Bearer del Store en cada request.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      session.Store
	logger     *zap.Logger
}

func New(baseURL string, store session.Store, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		store:      store,
		logger:     logger,
	}
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Message     string `json:"message,omitempty"`
}

type ChatResponse struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Login usa form-encoding (username, password) como OAuth2 password flow.
func (c *Client) Login(ctx context.Context, username, password string) (TokenResponse, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	var out TokenResponse
	err := c.do(ctx, http.MethodPost, "/token", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), &out)
	return out, err
}

func (c *Client) Signup(ctx context.Context, email, password string) (string, error) {
	var out messageResponse
	err := c.doJSON(ctx, http.MethodPost, "/signup", map[string]string{"email": email, "password": password}, &out)
	return out.Message, err
}

func (c *Client) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) (string, error) {
	var out messageResponse
	err := c.doJSON(ctx, http.MethodPost, "/change-password", map[string]string{
		"email":        email,
		"old_password": oldPassword,
		"new_password": newPassword,
	}, &out)
	return out.Message, err
}

func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var out messageResponse
	err := c.doJSON(ctx, http.MethodPost, "/forgot-password", map[string]string{"email": email}, &out)
	return out.Message, err
}

func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) (TokenResponse, error) {
	var out TokenResponse
	err := c.doJSON(ctx, http.MethodPost, "/reset-password", map[string]string{
		"token":        token,
		"new_password": newPassword,
	}, &out)
	return out, err
}

func (c *Client) VerifyEmail(ctx context.Context, token string) (TokenResponse, error) {
	var out TokenResponse
	err := c.do(ctx, http.MethodGet, "/verify?token="+url.QueryEscape(token), "", nil, &out)
	return out, err
}

func (c *Client) CreateConversation(ctx context.Context) (string, error) {
	var out struct {
		ConversationID string `json:"conversation_id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/conversation", nil, &out); err != nil {
		return "", err
	}
	return out.ConversationID, nil
}

// SendMessage envia un mensaje. Con conversationID vacio el backend abre una conversacion.
func (c *Client) SendMessage(ctx context.Context, text, conversationID string) (ChatResponse, error) {
	payload := map[string]string{"message": text}
	if conversationID != "" {
		payload["conversation_id"] = conversationID
	}
	var out ChatResponse
	err := c.doJSON(ctx, http.MethodPost, "/chat", payload, &out)
	return out, err
}

func (c *Client) GetConversationHistory(ctx context.Context, conversationID string) ([]ChatMessage, error) {
	var out struct {
		Messages []ChatMessage `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/conversation/"+url.PathEscape(conversationID), "", nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	return c.do(ctx, method, path, "application/json", body, out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.store != nil {
		if token, ok := c.store.Token(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if c.store != nil {
			if err := c.store.ClearToken(); err != nil {
				c.logger.Warn("clear token failed", zap.Error(err))
			}
		}
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

// errorMessage lee {"error": "..."} y tambien {"detail": "..."}.
func errorMessage(body []byte) string {
	var e struct {
		Error  string `json:"error"`
		Detail any    `json:"detail"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return strings.TrimSpace(string(body))
	}
	if e.Error != "" {
		return e.Error
	}
	if s, ok := e.Detail.(string); ok {
		return s
	}
	return ""
}
