package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/textfill/textfill/internal/catalog"
	"github.com/textfill/textfill/internal/generator"
)

const (
	kindBrandPrefix = "brand_prefix"
	kindStyleTag    = "style_tag"
	kindProductType = "product_type"
)

type dbTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository reads the vocabulary catalog. It satisfies catalog.Loader.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping catalog db: %w", err)
	}
	return nil
}

// Load assembles the vocabulary from the catalog tables. An unseeded catalog
// reports catalog.ErrNotFound.
func (r *Repository) Load(ctx context.Context) (generator.Vocabulary, error) {
	return loadVocabulary(ctx, r.db)
}

type SeedResult struct {
	Terms        int
	OptionGroups int
}

// Seed replaces the catalog contents with vocab in one transaction.
func (r *Repository) Seed(ctx context.Context, vocab generator.Vocabulary, source string) (SeedResult, error) {
	if err := vocab.Validate(); err != nil {
		return SeedResult{}, fmt.Errorf("validate vocabulary: %w", err)
	}
	var result SeedResult
	err := r.WithTx(ctx, func(tx *TxRepository) error {
		var err error
		result, err = tx.replaceVocabulary(ctx, vocab, source)
		return err
	})
	if err != nil {
		return SeedResult{}, err
	}
	return result, nil
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx *TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	txRepo := &TxRepository{q: tx}
	if err := fn(txRepo); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type TxRepository struct {
	q dbTX
}

func (r *TxRepository) replaceVocabulary(ctx context.Context, vocab generator.Vocabulary, source string) (SeedResult, error) {
	for _, table := range []string{"option_value", "option_group", "vocab_term", "price_range"} {
		if _, err := r.q.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return SeedResult{}, fmt.Errorf("clear %s: %w", table, err)
		}
	}

	terms := 0
	for _, set := range []struct {
		kind   string
		values []string
	}{
		{kindBrandPrefix, vocab.BrandPrefixes},
		{kindStyleTag, vocab.StyleTags},
		{kindProductType, vocab.ProductTypes},
	} {
		for position, value := range set.values {
			if err := r.insertTerm(ctx, set.kind, position, value); err != nil {
				return SeedResult{}, err
			}
			terms++
		}
	}

	for position, group := range vocab.OptionGroups {
		if _, err := r.q.ExecContext(ctx, `
INSERT INTO option_group (label, position)
VALUES ($1, $2)`, group.Label, position); err != nil {
			return SeedResult{}, fmt.Errorf("insert option group %q: %w", group.Label, err)
		}
		for valuePosition, value := range group.Values {
			if _, err := r.q.ExecContext(ctx, `
INSERT INTO option_value (group_label, position, value)
VALUES ($1, $2, $3)`, group.Label, valuePosition, value); err != nil {
				return SeedResult{}, fmt.Errorf("insert option value %q/%q: %w", group.Label, value, err)
			}
		}
	}

	if _, err := r.q.ExecContext(ctx, `
INSERT INTO price_range (id, min_value, max_value, step, suffix)
VALUES (1, $1, $2, $3, $4)`, vocab.Price.Min, vocab.Price.Max, vocab.Price.Step, vocab.Price.Suffix); err != nil {
		return SeedResult{}, fmt.Errorf("insert price range: %w", err)
	}

	if _, err := r.q.ExecContext(ctx, `
INSERT INTO vocabulary_seed_run (source, terms, option_groups)
VALUES ($1, $2, $3)`, source, terms, len(vocab.OptionGroups)); err != nil {
		return SeedResult{}, fmt.Errorf("record seed run: %w", err)
	}
	return SeedResult{Terms: terms, OptionGroups: len(vocab.OptionGroups)}, nil
}

func (r *TxRepository) insertTerm(ctx context.Context, kind string, position int, value string) error {
	if _, err := r.q.ExecContext(ctx, `
INSERT INTO vocab_term (kind, position, value)
VALUES ($1, $2, $3)`, kind, position, value); err != nil {
		return fmt.Errorf("insert %s %q: %w", kind, value, err)
	}
	return nil
}

func loadVocabulary(ctx context.Context, q dbTX) (generator.Vocabulary, error) {
	var vocab generator.Vocabulary

	rows, err := q.QueryContext(ctx, `
SELECT kind, value
FROM vocab_term
ORDER BY kind, position`)
	if err != nil {
		return generator.Vocabulary{}, fmt.Errorf("query vocabulary terms: %w", err)
	}
	terms := 0
	for rows.Next() {
		var kind, value string
		if err := rows.Scan(&kind, &value); err != nil {
			_ = rows.Close()
			return generator.Vocabulary{}, fmt.Errorf("scan vocabulary term: %w", err)
		}
		switch kind {
		case kindBrandPrefix:
			vocab.BrandPrefixes = append(vocab.BrandPrefixes, value)
		case kindStyleTag:
			vocab.StyleTags = append(vocab.StyleTags, value)
		case kindProductType:
			vocab.ProductTypes = append(vocab.ProductTypes, value)
		default:
			_ = rows.Close()
			return generator.Vocabulary{}, fmt.Errorf("unknown vocabulary term kind %q", kind)
		}
		terms++
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return generator.Vocabulary{}, fmt.Errorf("vocabulary terms rows: %w", err)
	}
	_ = rows.Close()
	if terms == 0 {
		return generator.Vocabulary{}, fmt.Errorf("vocabulary terms: %w", catalog.ErrNotFound)
	}

	groupRows, err := q.QueryContext(ctx, `
SELECT g.label, v.value
FROM option_group g
LEFT JOIN option_value v ON v.group_label = g.label
ORDER BY g.position, v.position`)
	if err != nil {
		return generator.Vocabulary{}, fmt.Errorf("query option groups: %w", err)
	}
	defer func() { _ = groupRows.Close() }()
	for groupRows.Next() {
		var label string
		var value sql.NullString
		if err := groupRows.Scan(&label, &value); err != nil {
			return generator.Vocabulary{}, fmt.Errorf("scan option value: %w", err)
		}
		last := len(vocab.OptionGroups) - 1
		if last < 0 || vocab.OptionGroups[last].Label != label {
			vocab.OptionGroups = append(vocab.OptionGroups, generator.OptionGroup{Label: label})
			last++
		}
		// A group without values still surfaces so validation rejects it.
		if value.Valid {
			vocab.OptionGroups[last].Values = append(vocab.OptionGroups[last].Values, value.String)
		}
	}
	if err := groupRows.Err(); err != nil {
		return generator.Vocabulary{}, fmt.Errorf("option group rows: %w", err)
	}

	if err := q.QueryRowContext(ctx, `
SELECT min_value, max_value, step, suffix
FROM price_range
WHERE id = 1`).Scan(&vocab.Price.Min, &vocab.Price.Max, &vocab.Price.Step, &vocab.Price.Suffix); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return generator.Vocabulary{}, fmt.Errorf("price range: %w", catalog.ErrNotFound)
		}
		return generator.Vocabulary{}, fmt.Errorf("get price range: %w", err)
	}
	return vocab, nil
}
