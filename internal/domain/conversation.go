package domain

import "time"

// Conversation agrupa los turnos de chat de un usuario.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
