package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"rules-chat/internal/domain"
)

type RuleRepository interface {
	Create(ctx context.Context, section domain.RuleSection) error
	Search(ctx context.Context, queryEmbedding pgvector.Vector, k int) ([]domain.RuleSection, error)
	// DeleteBySource borra las secciones de una fuente antes de reindexarla.
	DeleteBySource(ctx context.Context, source string) (int64, error)
}

type PgRuleRepository struct {
	pool *pgxpool.Pool
}

func NewPgRuleRepository(pool *pgxpool.Pool) *PgRuleRepository {
	return &PgRuleRepository{pool: pool}
}

func (r *PgRuleRepository) Create(ctx context.Context, section domain.RuleSection) error {
	const query = `
		INSERT INTO rule_sections (id, rule_number, source, content, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		section.ID,
		section.RuleNumber,
		section.Source,
		section.Content,
		section.Embedding,
		section.CreatedAt,
	)
	return err
}

func (r *PgRuleRepository) DeleteBySource(ctx context.Context, source string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM rule_sections WHERE source = $1`, source)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Search devuelve las k secciones mas cercanas por distancia coseno.
func (r *PgRuleRepository) Search(ctx context.Context, queryEmbedding pgvector.Vector, k int) ([]domain.RuleSection, error) {
	if k <= 0 {
		k = 3
	}
	const query = `
		SELECT id, rule_number, source, content, embedding, created_at
		FROM rule_sections
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, queryEmbedding, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRuleSections(rows)
}

func scanRuleSections(rows pgxRows) ([]domain.RuleSection, error) {
	var sections []domain.RuleSection
	for rows.Next() {
		var s domain.RuleSection
		if err := rows.Scan(
			&s.ID,
			&s.RuleNumber,
			&s.Source,
			&s.Content,
			&s.Embedding,
			&s.CreatedAt,
		); err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sections, nil
}

// pgxRows es una interfaz minima sobre pgx.Rows para simplificar tests.
type pgxRows interface {
	Next() bool
	Scan(...interface{}) error
	Err() error
	Close()
}
