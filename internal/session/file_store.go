package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persiste el estado del cliente como JSON en disco.
type FileStore struct {
	mu   sync.Mutex
	path string
	st   state
}

// OpenFileStore carga el archivo si existe. Un archivo ausente equivale a estado vacio.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.st); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", path, err)
	}
	return s, nil
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Token, s.st.Token != ""
}

func (s *FileStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.st
	s.st.Token = token
	if err := s.save(); err != nil {
		s.st = prev
		return err
	}
	return nil
}

func (s *FileStore) ClearToken() error {
	return s.SetToken("")
}

func (s *FileStore) DarkMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.DarkMode
}

func (s *FileStore) SetDarkMode(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.st
	s.st.DarkMode = enabled
	if err := s.save(); err != nil {
		s.st = prev
		return err
	}
	return nil
}

// save escribe a un temporal y renombra. Se llama con mu tomado; si falla, el llamador
// restaura el estado anterior para que memoria y disco no diverjan.
func (s *FileStore) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.MarshalIndent(s.st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}
