package repository

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/docchat-ai/docchat/internal/domain"
)

// indexNamePattern restricts index names to safe SQL identifiers, since the
// index name becomes a table name.
var indexNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// VectorIndexRepository implements the vector index on Postgres with
// pgvector. Each named index is a dedicated table created on demand, with an
// HNSW index tuned for inner-product (dense dot-product) search.
type VectorIndexRepository struct {
	pool *pgxpool.Pool
}

func NewVectorIndexRepository(pool *pgxpool.Pool) *VectorIndexRepository {
	return &VectorIndexRepository{pool: pool}
}

// ValidIndexName reports whether name is usable as an index identifier.
func ValidIndexName(name string) bool {
	return indexNamePattern.MatchString(name)
}

// Exists reports whether the named index has been created.
func (r *VectorIndexRepository) Exists(ctx context.Context, name string) (bool, error) {
	if !ValidIndexName(name) {
		return false, domain.ErrInvalidIndexName
	}

	var regclass *string
	err := r.pool.QueryRow(ctx, `SELECT to_regclass($1)::text`, name).Scan(&regclass)
	if err != nil {
		return false, wrapIndexErr(name, err)
	}
	return regclass != nil, nil
}

// Create creates the named index with the given dimensionality. Creation is
// idempotent: concurrent callers racing to create the same index all succeed.
func (r *VectorIndexRepository) Create(ctx context.Context, name string, dimension int) error {
	if !ValidIndexName(name) {
		return domain.ErrInvalidIndexName
	}
	if dimension <= 0 {
		return domain.ErrInvalidDimension
	}

	table := pgx.Identifier{name}.Sanitize()

	_, err := r.pool.Exec(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			source TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, table, dimension))
	if err != nil {
		return wrapIndexErr(name, err)
	}

	_, err = r.pool.Exec(ctx, fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_ip_ops)`,
		pgx.Identifier{name + "_embedding_idx"}.Sanitize(), table))
	if err != nil {
		return wrapIndexErr(name, err)
	}

	return nil
}

// Dimension returns the declared vector dimensionality of the named index.
func (r *VectorIndexRepository) Dimension(ctx context.Context, name string) (int, error) {
	if !ValidIndexName(name) {
		return 0, domain.ErrInvalidIndexName
	}

	var dimension int
	err := r.pool.QueryRow(ctx,
		`SELECT a.atttypmod
		 FROM pg_attribute a
		 WHERE a.attrelid = $1::regclass AND a.attname = 'embedding'`,
		name,
	).Scan(&dimension)
	if err != nil {
		return 0, wrapIndexErr(name, err)
	}
	return dimension, nil
}

// Upsert stores all records in one transaction. Either every record is
// committed or none are.
func (r *VectorIndexRepository) Upsert(ctx context.Context, name string, records []domain.IndexedRecord) error {
	if !ValidIndexName(name) {
		return domain.ErrInvalidIndexName
	}
	if len(records) == 0 {
		return nil
	}

	table := pgx.Identifier{name}.Sanitize()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return wrapIndexErr(name, err)
	}
	defer tx.Rollback(ctx)

	sql := fmt.Sprintf(`INSERT INTO %s (id, source, content, embedding) VALUES ($1, $2, $3, $4)`, table)
	for _, rec := range records {
		if _, err := tx.Exec(ctx, sql, uuid.NewString(), rec.Source, rec.Content, pgvector.NewVector(rec.Embedding)); err != nil {
			return wrapIndexErr(name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapIndexErr(name, err)
	}
	return nil
}

// Query returns the k nearest records by inner product, best match first.
// The <#> operator yields the negated inner product, so the score is its
// negation.
func (r *VectorIndexRepository) Query(ctx context.Context, name string, vector []float32, k int) ([]domain.RetrievedRecord, error) {
	if !ValidIndexName(name) {
		return nil, domain.ErrInvalidIndexName
	}
	if k <= 0 {
		k = 2
	}

	table := pgx.Identifier{name}.Sanitize()
	vec := pgvector.NewVector(vector)

	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT source, content, -(embedding <#> $1) AS score
		 FROM %s
		 ORDER BY embedding <#> $1 ASC
		 LIMIT $2`, table),
		vec, k)
	if err != nil {
		return nil, wrapIndexErr(name, err)
	}
	defer rows.Close()

	results := make([]domain.RetrievedRecord, 0, k)
	for rows.Next() {
		var rec domain.RetrievedRecord
		if err := rows.Scan(&rec.Source, &rec.Content, &rec.Score); err != nil {
			return nil, wrapIndexErr(name, err)
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapIndexErr(name, err)
	}
	return results, nil
}

func wrapIndexErr(name string, err error) error {
	return domain.WrapExternal(err, func(e error) *domain.DomainError {
		return domain.NewIndexUnavailableError(name, e)
	})
}
