package service

import (
	"context"
	"fmt"
	"strings"

	pgvector "github.com/pgvector/pgvector-go"

	"rules-chat/internal/domain"
	"rules-chat/internal/llm"
	"rules-chat/internal/repository"
)

// Retriever busca secciones del reglamento por similitud semantica.
type Retriever struct {
	embedder llm.LLMClient
	rules    repository.RuleRepository
	limit    int
}

func NewRetriever(embedder llm.LLMClient, rules repository.RuleRepository, limit int) *Retriever {
	if limit <= 0 {
		limit = 3
	}
	return &Retriever{embedder: embedder, rules: rules, limit: limit}
}

func (r *Retriever) Search(ctx context.Context, query string) ([]domain.RuleSection, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	embedding, err := r.embedder.CreateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	sections, err := r.rules.Search(ctx, pgvector.NewVector(embedding), r.limit)
	if err != nil {
		return nil, fmt.Errorf("search rules: %w", err)
	}
	return sections, nil
}
