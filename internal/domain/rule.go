package domain

import (
	"time"

	pgvector "github.com/pgvector/pgvector-go"
)

const (
	SourceRules    = "rules"
	SourceGlossary = "glossary"
)

// RuleSection es un fragmento del reglamento indexado por embedding.
type RuleSection struct {
	ID         string          `json:"id"`
	RuleNumber string          `json:"rule_number"`
	Source     string          `json:"source"`
	Content    string          `json:"content"`
	Embedding  pgvector.Vector `json:"-"`
	CreatedAt  time.Time       `json:"created_at"`
}
