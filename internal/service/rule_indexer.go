package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"rules-chat/internal/domain"
	"rules-chat/internal/llm"
	"rules-chat/internal/repository"
)

// RuleIndexer embebe el reglamento y el glosario y los guarda para el Retriever.
// Indexar una fuente reemplaza lo que ya hubiera de esa fuente.
type RuleIndexer struct {
	logger   *zap.Logger
	embedder llm.LLMClient
	rules    repository.RuleRepository
}

func NewRuleIndexer(logger *zap.Logger, embedder llm.LLMClient, rules repository.RuleRepository) *RuleIndexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleIndexer{logger: logger, embedder: embedder, rules: rules}
}

// IndexRules guarda una seccion por regla numerada. Devuelve cuantas se guardaron.
func (i *RuleIndexer) IndexRules(ctx context.Context, text string) (int, error) {
	chunks := SplitRuleSections(text)
	sections := make([]domain.RuleSection, 0, len(chunks))
	for _, c := range chunks {
		sec, err := i.embed(ctx, c.Number, domain.SourceRules, c.Text())
		if err != nil {
			return 0, fmt.Errorf("rule %s: %w", c.Number, err)
		}
		sections = append(sections, sec)
	}
	return i.replace(ctx, domain.SourceRules, sections)
}

// IndexGlossary guarda el glosario en bloques de parrafos.
func (i *RuleIndexer) IndexGlossary(ctx context.Context, text string, maxLen int) (int, error) {
	chunks := SplitGlossary(text, maxLen)
	sections := make([]domain.RuleSection, 0, len(chunks))
	for n, c := range chunks {
		sec, err := i.embed(ctx, "", domain.SourceGlossary, c)
		if err != nil {
			return 0, fmt.Errorf("glossary chunk %d: %w", n, err)
		}
		sections = append(sections, sec)
	}
	return i.replace(ctx, domain.SourceGlossary, sections)
}

// replace borra la fuente y guarda las secciones nuevas. Los embeddings se calculan antes,
// asi un error del LLM deja intacto el indice anterior.
func (i *RuleIndexer) replace(ctx context.Context, source string, sections []domain.RuleSection) (int, error) {
	removed, err := i.rules.DeleteBySource(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("clear %s: %w", source, err)
	}
	for n, sec := range sections {
		if err := i.rules.Create(ctx, sec); err != nil {
			return n, fmt.Errorf("store %s section %d: %w", source, n, err)
		}
	}
	i.logger.Info("source indexed",
		zap.String("source", source),
		zap.Int("sections", len(sections)),
		zap.Int64("replaced", removed),
	)
	return len(sections), nil
}

func (i *RuleIndexer) embed(ctx context.Context, number, source, content string) (domain.RuleSection, error) {
	embedding, err := i.embedder.CreateEmbedding(ctx, content)
	if err != nil {
		return domain.RuleSection{}, fmt.Errorf("embed: %w", err)
	}
	return domain.RuleSection{
		ID:         uuid.NewString(),
		RuleNumber: number,
		Source:     source,
		Content:    content,
		Embedding:  pgvector.NewVector(embedding),
		CreatedAt:  time.Now().UTC(),
	}, nil
}
