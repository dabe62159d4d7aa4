package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/textfill/textfill/internal/catalog"
	catalogfile "github.com/textfill/textfill/internal/catalog/file"
	catalogobjectstore "github.com/textfill/textfill/internal/catalog/objectstore"
	catalogpostgres "github.com/textfill/textfill/internal/catalog/postgres"
	"github.com/textfill/textfill/internal/config"
	"github.com/textfill/textfill/internal/generator"
	"github.com/textfill/textfill/internal/migrations"
	s3store "github.com/textfill/textfill/internal/storage/s3"
)

func main() {
	direction := flag.String("direction", "up", "migration direction: up|down|status|none")
	steps := flag.Int("steps", 0, "number of migration steps; 0 means all for up, 1 for down")
	seed := flag.Bool("seed", false, "replace the stored vocabulary after migrating")
	vocabularyFile := flag.String("vocabulary-file", "", "JSON or YAML vocabulary to seed or publish; built-in tables when empty")
	publish := flag.String("publish", "", "also publish the vocabulary to the object store under vocabulary/<name>")
	publishFormat := flag.String("publish-format", "yaml", "format of the published vocabulary: json|yaml")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "dotenv error: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadFromEnv("textfill-migrate")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var vocab generator.Vocabulary
	if *seed || *publish != "" {
		vocab, err = readVocabulary(ctx, *vocabularyFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "vocabulary error: %v\n", err)
			os.Exit(1)
		}
	}

	if *direction != "none" || *seed {
		if cfg.Catalog.DSN == "" {
			fmt.Fprintln(os.Stderr, "TEXTFILL_CATALOG_DSN is required")
			os.Exit(1)
		}
		if err := migrateCatalog(ctx, cfg, *direction, *steps, *seed, vocab, *vocabularyFile); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	if *publish != "" {
		format := catalog.Format(*publishFormat)
		if format != catalog.FormatJSON && format != catalog.FormatYAML {
			fmt.Fprintf(os.Stderr, "invalid publish format: %s\n", *publishFormat)
			os.Exit(1)
		}
		store, err := s3store.New(ctx, s3store.ConfigFrom(cfg.ObjectStore))
		if err != nil {
			fmt.Fprintf(os.Stderr, "object store error: %v\n", err)
			os.Exit(1)
		}
		info, err := catalogobjectstore.Publish(ctx, store, *publish, format, vocab)
		if err != nil {
			fmt.Fprintf(os.Stderr, "publish failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("published vocabulary to %s (%d bytes)\n", info.Key, info.Size)
	}
}

func migrateCatalog(ctx context.Context, cfg config.Config, direction string, steps int, seed bool, vocab generator.Vocabulary, sourceName string) error {
	db, err := catalogpostgres.Open(ctx, catalogpostgres.DBConfigFrom(cfg.Catalog))
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	defer func() { _ = db.Close() }()

	runner := migrations.NewRunner()
	switch direction {
	case "up":
		applied, err := runner.Up(ctx, db, steps)
		if err != nil {
			return fmt.Errorf("migration up failed: %w", err)
		}
		fmt.Printf("applied %d migration(s)\n", applied)
	case "down":
		applied, err := runner.Down(ctx, db, steps)
		if err != nil {
			return fmt.Errorf("migration down failed: %w", err)
		}
		fmt.Printf("rolled back %d migration(s)\n", applied)
	case "status":
		statuses, err := runner.Status(ctx, db)
		if err != nil {
			return fmt.Errorf("migration status failed: %w", err)
		}
		for _, status := range statuses {
			state := "pending"
			if status.Applied {
				state = "applied"
			}
			fmt.Printf("%06d %s\n", status.Version, state)
		}
	case "none":
	default:
		return fmt.Errorf("invalid direction: %s", direction)
	}

	if !seed {
		return nil
	}
	source := sourceName
	if source == "" {
		source = "builtin"
	}
	result, err := catalogpostgres.NewRepository(db).Seed(ctx, vocab, source)
	if err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}
	fmt.Printf("seeded %d term(s) and %d option group(s) from %s\n", result.Terms, result.OptionGroups, source)
	return nil
}

func readVocabulary(ctx context.Context, path string) (generator.Vocabulary, error) {
	if path == "" {
		return catalog.LoadValidated(ctx, catalog.Builtin{})
	}
	loader, err := catalogfile.NewFromPath(path)
	if err != nil {
		return generator.Vocabulary{}, err
	}
	return catalog.LoadValidated(ctx, loader)
}
