package generator

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

type Category string

const (
	CategoryProduct Category = "product"
	CategoryOption  Category = "option"
	CategoryPrice   Category = "price"
)

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrEmptyText       = errors.New("text is empty")
)

func Categories() []Category {
	return []Category{CategoryProduct, CategoryOption, CategoryPrice}
}

// ParseCategory accepts the wire tag of a category. An empty tag selects
// CategoryProduct.
func ParseCategory(raw string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(raw))) {
	case "", CategoryProduct:
		return CategoryProduct, nil
	case CategoryOption:
		return CategoryOption, nil
	case CategoryPrice:
		return CategoryPrice, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, raw)
	}
}

// Literal passes user-supplied text through the free-form gate.
func Literal(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	return text, nil
}

// Generator composes placeholder strings from an immutable Vocabulary. It is
// safe for concurrent use.
type Generator struct {
	mu    sync.Mutex
	src   Source
	vocab Vocabulary
}

// New validates vocab and returns a Generator drawing from src. A nil src
// uses a time-seeded source.
func New(vocab Vocabulary, src Source) (*Generator, error) {
	if err := vocab.Validate(); err != nil {
		return nil, fmt.Errorf("invalid vocabulary: %w", err)
	}
	if src == nil {
		src = newTimeSource()
	}
	return &Generator{src: src, vocab: vocab.Clone()}, nil
}

func (g *Generator) Vocabulary() Vocabulary {
	return g.vocab.Clone()
}

// Generate returns one placeholder string. Categories other than option and
// price produce a product name.
func (g *Generator) Generate(category Category) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generateLocked(category)
}

func (g *Generator) GenerateN(category Category, n int) []string {
	if n <= 0 {
		return []string{}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, g.generateLocked(category))
	}
	return out
}

func (g *Generator) generateLocked(category Category) string {
	switch category {
	case CategoryOption:
		return g.optionLine()
	case CategoryPrice:
		return g.priceTag()
	default:
		return g.productName()
	}
}

func (g *Generator) productName() string {
	return pickUniform(g.src, g.vocab.BrandPrefixes) + " " +
		pickUniform(g.src, g.vocab.StyleTags) + " " +
		pickUniform(g.src, g.vocab.ProductTypes)
}

func (g *Generator) optionLine() string {
	groups := shuffleGroups(g.src, g.vocab.OptionGroups)
	n := len(groups)
	count := randomInt(g.src, min(2, n), min(3, n))

	parts := make([]string, 0, count)
	for _, group := range groups[:count] {
		parts = append(parts, group.Label+": "+pickUniform(g.src, group.Values))
	}
	return strings.Join(parts, ", ")
}

func (g *Generator) priceTag() string {
	r := g.vocab.Price
	return PriceAt(r, randomInt64(g.src, 0, r.Steps()))
}
