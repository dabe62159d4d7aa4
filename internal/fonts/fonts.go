package fonts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/textfill/textfill/internal/host"
)

var ErrNoFontAvailable = errors.New("no usable font could be loaded")

func DefaultCandidates() []host.Font {
	return []host.Font{
		{Family: "Pretendard", Style: "Regular"},
		{Family: "Noto Sans KR", Style: "Regular"},
		{Family: "Inter", Style: "Regular"},
	}
}

// ParseCandidates reads "Family:Style,Family:Style". An empty spec yields the
// default candidates.
func ParseCandidates(spec string) ([]host.Font, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return DefaultCandidates(), nil
	}
	entries := strings.Split(spec, ",")
	out := make([]host.Font, 0, len(entries))
	for _, entry := range entries {
		family, style, ok := strings.Cut(strings.TrimSpace(entry), ":")
		family = strings.TrimSpace(family)
		style = strings.TrimSpace(style)
		if !ok || family == "" || style == "" {
			return nil, fmt.Errorf("invalid font candidate %q: expected family:style", entry)
		}
		out = append(out, host.Font{Family: family, Style: style})
	}
	return out, nil
}

// Distinct keeps the first occurrence of each font key, in order.
func Distinct(fonts []host.Font) []host.Font {
	seen := make(map[string]struct{}, len(fonts))
	out := make([]host.Font, 0, len(fonts))
	for _, font := range fonts {
		if _, ok := seen[font.Key()]; ok {
			continue
		}
		seen[font.Key()] = struct{}{}
		out = append(out, font)
	}
	return out
}

// Prepared describes what must happen to a node's fonts before its content
// can change. Assign is non-zero when the node has no usable font of its own.
type Prepared struct {
	NodeID string
	Loaded []host.Font
	Assign host.Font
}

// Loader loads fonts through a host document, remembering what it already
// loaded during one operation.
type Loader struct {
	doc        host.Document
	candidates []host.Font
	loaded     map[string]struct{}
	onFailure  func(host.Font, error)
}

func NewLoader(doc host.Document, candidates []host.Font, onFailure func(host.Font, error)) *Loader {
	if len(candidates) == 0 {
		candidates = DefaultCandidates()
	}
	return &Loader{
		doc:        doc,
		candidates: append([]host.Font(nil), candidates...),
		loaded:     map[string]struct{}{},
		onFailure:  onFailure,
	}
}

func (l *Loader) Load(ctx context.Context, font host.Font) error {
	if _, ok := l.loaded[font.Key()]; ok {
		return nil
	}
	if err := l.doc.LoadFont(ctx, font); err != nil {
		return err
	}
	l.loaded[font.Key()] = struct{}{}
	return nil
}

// Preferred returns the first fallback candidate that loads.
func (l *Loader) Preferred(ctx context.Context) (host.Font, error) {
	for _, font := range l.candidates {
		err := l.Load(ctx, font)
		if err == nil {
			return font, nil
		}
		if ctx.Err() != nil {
			return host.Font{}, ctx.Err()
		}
		if l.onFailure != nil {
			l.onFailure(font, err)
		}
	}
	return host.Font{}, ErrNoFontAvailable
}

// RequiredFonts lists the distinct fonts used by node, in order of first use.
// An empty node with mixed fonts needs none of its own.
func (l *Loader) RequiredFonts(ctx context.Context, node host.Node) ([]host.Font, error) {
	if !node.Mixed {
		return []host.Font{node.Font}, nil
	}
	length := node.Length()
	if length == 0 {
		return nil, nil
	}
	fonts, err := l.doc.FontsInRange(ctx, node.ID, 0, length)
	if err != nil {
		return nil, fmt.Errorf("list fonts of %q: %w", node.ID, err)
	}
	return Distinct(fonts), nil
}

// Prepare loads every font the node needs without mutating it.
func (l *Loader) Prepare(ctx context.Context, node host.Node) (Prepared, error) {
	prepared := Prepared{NodeID: node.ID}
	if node.Mixed && node.Length() == 0 {
		font, err := l.Preferred(ctx)
		if err != nil {
			return Prepared{}, err
		}
		prepared.Assign = font
		prepared.Loaded = []host.Font{font}
		return prepared, nil
	}

	required, err := l.RequiredFonts(ctx, node)
	if err != nil {
		return Prepared{}, err
	}
	for _, font := range required {
		if err := l.Load(ctx, font); err != nil {
			return Prepared{}, fmt.Errorf("load font %q for %q: %w", font.Key(), node.ID, err)
		}
	}
	prepared.Loaded = required
	return prepared, nil
}

// PrepareAll prepares every node before any of them is touched.
func (l *Loader) PrepareAll(ctx context.Context, nodes []host.Node) ([]Prepared, error) {
	out := make([]Prepared, 0, len(nodes))
	for _, node := range nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		prepared, err := l.Prepare(ctx, node)
		if err != nil {
			return nil, err
		}
		out = append(out, prepared)
	}
	return out, nil
}
