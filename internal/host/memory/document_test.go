package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/textfill/textfill/internal/host"
)

var pretendard = host.Font{Family: "Pretendard", Style: "Regular"}

func TestSetCharactersRequiresLoadedFont(t *testing.T) {
	ctx := context.Background()
	doc := New(pretendard)
	node, err := doc.AddNode(host.Node{Type: host.NodeText, Characters: "old", Font: pretendard})
	if err != nil {
		t.Fatalf("AddNode() error = %v", err)
	}

	if err := doc.SetCharacters(ctx, node.ID, "new"); !errors.Is(err, host.ErrFontNotLoaded) {
		t.Fatalf("SetCharacters() error = %v, want ErrFontNotLoaded", err)
	}
	if err := doc.LoadFont(ctx, pretendard); err != nil {
		t.Fatalf("LoadFont() error = %v", err)
	}
	if err := doc.SetCharacters(ctx, node.ID, "new"); err != nil {
		t.Fatalf("SetCharacters() error = %v", err)
	}
	got, _ := doc.Node(node.ID)
	if got.Characters != "new" {
		t.Fatalf("Characters = %q", got.Characters)
	}
}

func TestLoadFontUnavailable(t *testing.T) {
	doc := New()
	err := doc.LoadFont(context.Background(), pretendard)
	if !errors.Is(err, host.ErrFontUnavailable) {
		t.Fatalf("LoadFont() error = %v", err)
	}
	if len(doc.LoadLog()) != 1 {
		t.Fatalf("LoadLog() = %v", doc.LoadLog())
	}
}

func TestFontsInRangeForMixedNode(t *testing.T) {
	inter := host.Font{Family: "Inter", Style: "Bold"}
	doc := New()
	node, _ := doc.AddNode(host.Node{
		Type:       host.NodeText,
		Characters: "abcdef",
		Mixed:      true,
		Runs: []host.FontRun{
			{Start: 0, End: 2, Font: pretendard},
			{Start: 2, End: 4, Font: inter},
			{Start: 4, End: 6, Font: pretendard},
		},
	})

	fonts, err := doc.FontsInRange(context.Background(), node.ID, 0, 6)
	if err != nil {
		t.Fatalf("FontsInRange() error = %v", err)
	}
	if len(fonts) != 3 || fonts[1] != inter {
		t.Fatalf("FontsInRange() = %+v", fonts)
	}
}

func TestSetFontRunsRestoresMixedText(t *testing.T) {
	ctx := context.Background()
	bold := host.Font{Family: "Pretendard", Style: "Bold"}
	doc := New(pretendard, bold)
	node, _ := doc.AddNode(host.Node{Type: host.NodeText, Characters: "ab🛋", Font: pretendard})
	for _, font := range []host.Font{pretendard, bold} {
		if err := doc.LoadFont(ctx, font); err != nil {
			t.Fatalf("LoadFont() error = %v", err)
		}
	}

	runs := []host.FontRun{
		{Start: 0, End: 1, Font: pretendard},
		{Start: 1, End: 2, Font: bold},
		{Start: 2, End: 4, Font: bold},
	}
	if err := doc.SetFontRuns(ctx, node.ID, runs); err != nil {
		t.Fatalf("SetFontRuns() error = %v", err)
	}
	got, _ := doc.Node(node.ID)
	if !got.Mixed || len(got.Runs) != 2 || got.Runs[1] != (host.FontRun{Start: 1, End: 4, Font: bold}) {
		t.Fatalf("node = %+v, want two merged runs", got)
	}

	if err := doc.SetFontRuns(ctx, node.ID, []host.FontRun{{Start: 0, End: 4, Font: bold}}); err != nil {
		t.Fatalf("SetFontRuns(single) error = %v", err)
	}
	got, _ = doc.Node(node.ID)
	if got.Mixed || got.Font != bold || len(got.Runs) != 0 {
		t.Fatalf("node = %+v, want single bold font", got)
	}
}

func TestSetFontRunsRejectsBadRanges(t *testing.T) {
	ctx := context.Background()
	doc := New(pretendard)
	node, _ := doc.AddNode(host.Node{Type: host.NodeText, Characters: "abc", Font: pretendard})
	if err := doc.LoadFont(ctx, pretendard); err != nil {
		t.Fatalf("LoadFont() error = %v", err)
	}

	for _, runs := range [][]host.FontRun{
		nil,
		{{Start: 0, End: 2, Font: pretendard}},
		{{Start: 0, End: 1, Font: pretendard}, {Start: 2, End: 3, Font: pretendard}},
		{{Start: 0, End: 3, Font: host.Font{Family: "Inter", Style: "Regular"}}},
	} {
		if err := doc.SetFontRuns(ctx, node.ID, runs); err == nil {
			t.Fatalf("SetFontRuns(%+v) expected error", runs)
		}
	}
	got, _ := doc.Node(node.ID)
	if got.Mixed || got.Font != pretendard {
		t.Fatalf("node = %+v, want unchanged", got)
	}
}

func TestSetFontRunsClearsEmptyText(t *testing.T) {
	ctx := context.Background()
	doc := New(pretendard)
	node, _ := doc.AddNode(host.Node{Type: host.NodeText, Font: pretendard})

	if err := doc.SetFontRuns(ctx, node.ID, nil); err != nil {
		t.Fatalf("SetFontRuns() error = %v", err)
	}
	got, _ := doc.Node(node.ID)
	if !got.Mixed || !got.Font.IsZero() {
		t.Fatalf("node = %+v, want no font of its own", got)
	}
}

func TestSelectNotifiesSubscribers(t *testing.T) {
	doc := New()
	node, _ := doc.AddNode(host.Node{Type: host.NodeFrame})
	calls := 0
	cancel := doc.OnSelectionChange(func() { calls++ })

	if err := doc.Select(context.Background(), []string{node.ID}); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	cancel()
	if err := doc.Select(context.Background(), nil); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestSelectUnknownNode(t *testing.T) {
	doc := New()
	if err := doc.Select(context.Background(), []string{"missing"}); !errors.Is(err, host.ErrNodeNotFound) {
		t.Fatalf("Select() error = %v", err)
	}
}

func TestCreateTextAssignsIDAndFont(t *testing.T) {
	ctx := context.Background()
	doc := New(pretendard)
	if err := doc.LoadFont(ctx, pretendard); err != nil {
		t.Fatalf("LoadFont() error = %v", err)
	}
	node, err := doc.CreateText(ctx, host.CreateTextInput{Characters: "더미", Font: pretendard, Position: host.Point{X: 10, Y: 20}})
	if err != nil {
		t.Fatalf("CreateText() error = %v", err)
	}
	if node.ID == "" || node.Font != pretendard || node.Position.X != 10 {
		t.Fatalf("CreateText() = %+v", node)
	}
	if len(doc.Nodes()) != 1 {
		t.Fatalf("Nodes() = %d", len(doc.Nodes()))
	}
}

func TestLoadFixture(t *testing.T) {
	raw := `{
		"fonts": [{"family": "Pretendard", "style": "Regular"}],
		"viewport": {"x": 100, "y": 200},
		"nodes": [
			{"id": "t1", "type": "TEXT", "characters": "상품명", "font": {"family": "Pretendard", "style": "Regular"}},
			{"id": "f1", "type": "FRAME"}
		],
		"selection": ["t1", "f1"]
	}`
	doc, err := LoadFixture(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("LoadFixture() error = %v", err)
	}
	selection, err := doc.Selection(context.Background())
	if err != nil {
		t.Fatalf("Selection() error = %v", err)
	}
	if len(selection) != 2 || len(host.TextNodes(selection)) != 1 {
		t.Fatalf("Selection() = %+v", selection)
	}
	center, _ := doc.ViewportCenter(context.Background())
	if center.X != 100 || center.Y != 200 {
		t.Fatalf("ViewportCenter() = %+v", center)
	}
}

func TestFixtureRejectsUnknownSelection(t *testing.T) {
	_, err := FromFixture(Fixture{Selection: []string{"ghost"}})
	if !errors.Is(err, host.ErrNodeNotFound) {
		t.Fatalf("FromFixture() error = %v", err)
	}
}

func TestClosedDocumentRejectsMutations(t *testing.T) {
	ctx := context.Background()
	doc := New(pretendard)
	node, _ := doc.AddNode(host.Node{Type: host.NodeText, Font: pretendard})
	_ = doc.Close(ctx)
	if err := doc.SetCharacters(ctx, node.ID, "x"); !errors.Is(err, host.ErrClosed) {
		t.Fatalf("SetCharacters() error = %v", err)
	}
	if !doc.Closed() {
		t.Fatal("Closed() = false")
	}
}
