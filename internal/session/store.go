package session

import "sync"

// TokenKey es la clave fija bajo la que se persiste el token de sesion.
const TokenKey = "token"

// DarkModeKey guarda la preferencia de tema junto al token.
const DarkModeKey = "dark_mode"

// Store es el almacenamiento local del cliente. Token presente implica sesion iniciada.
type Store interface {
	Token() (string, bool)
	SetToken(token string) error
	ClearToken() error
	DarkMode() bool
	SetDarkMode(enabled bool) error
}

type state struct {
	Token    string `json:"token,omitempty"`
	DarkMode bool   `json:"dark_mode"`
}

// MemoryStore guarda el estado en memoria; no sobrevive al proceso.
type MemoryStore struct {
	mu sync.Mutex
	st state
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Token, s.st.Token != ""
}

func (s *MemoryStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.Token = token
	return nil
}

func (s *MemoryStore) ClearToken() error {
	return s.SetToken("")
}

func (s *MemoryStore) DarkMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.DarkMode
}

func (s *MemoryStore) SetDarkMode(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.DarkMode = enabled
	return nil
}
