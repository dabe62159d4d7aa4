package host

import "testing"

func TestTextNodesFiltersByType(t *testing.T) {
	nodes := []Node{
		{ID: "1", Type: NodeText},
		{ID: "2", Type: NodeFrame},
		{ID: "3", Type: NodeText},
		{ID: "4", Type: NodeRectangle},
	}
	got := TextNodes(nodes)
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "3" {
		t.Fatalf("TextNodes() = %+v", got)
	}
}

func TestNodeLengthCountsUTF16Units(t *testing.T) {
	for _, tc := range []struct {
		text string
		want int
	}{
		{"", 0},
		{"라운지 암체어", 7},
		{"sofa 🛋", 7},
		{"𝒜b", 3},
	} {
		if got := (Node{Characters: tc.text}).Length(); got != tc.want {
			t.Fatalf("Length(%q) = %d, want %d", tc.text, got, tc.want)
		}
	}
}

func TestFontKey(t *testing.T) {
	f := Font{Family: "Noto Sans KR", Style: "Regular"}
	if f.Key() != "Noto Sans KR-Regular" {
		t.Fatalf("Key() = %q", f.Key())
	}
	if f.IsZero() || !(Font{}).IsZero() {
		t.Fatal("IsZero() mismatch")
	}
}
