package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/textfill/textfill/internal/host"
)

type Fixture struct {
	Fonts     []host.Font `json:"fonts"`
	Viewport  host.Point  `json:"viewport"`
	Nodes     []host.Node `json:"nodes"`
	Selection []string    `json:"selection"`
}

// Document is an in-memory host.Document.
type Document struct {
	mu            sync.Mutex
	available     map[string]struct{}
	loaded        map[string]struct{}
	loadLog       []host.Font
	nodes         map[string]*host.Node
	order         []string
	selection     []string
	viewport      host.Point
	scrolledTo    []string
	notifications []string
	closed        bool
	subscribers   map[int]func()
	nextSubID     int
	failures      map[string]error
}

func New(available ...host.Font) *Document {
	d := &Document{
		available:   map[string]struct{}{},
		loaded:      map[string]struct{}{},
		nodes:       map[string]*host.Node{},
		subscribers: map[int]func(){},
		failures:    map[string]error{},
	}
	for _, font := range available {
		d.available[font.Key()] = struct{}{}
	}
	return d
}

func FromFixture(f Fixture) (*Document, error) {
	d := New(f.Fonts...)
	d.viewport = f.Viewport
	for _, node := range f.Nodes {
		if _, err := d.AddNode(node); err != nil {
			return nil, err
		}
	}
	for _, id := range f.Selection {
		if _, ok := d.nodes[id]; !ok {
			return nil, fmt.Errorf("fixture selection %q: %w", id, host.ErrNodeNotFound)
		}
	}
	d.selection = append([]string(nil), f.Selection...)
	return d, nil
}

func LoadFixture(r io.Reader) (*Document, error) {
	var fixture Fixture
	if err := json.NewDecoder(r).Decode(&fixture); err != nil {
		return nil, fmt.Errorf("decode document fixture: %w", err)
	}
	return FromFixture(fixture)
}

// AddNode inserts a node, assigning an id when it has none.
func (d *Document) AddNode(node host.Node) (host.Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if node.ID == "" {
		node.ID = uuid.NewString()
	}
	if _, exists := d.nodes[node.ID]; exists {
		return host.Node{}, fmt.Errorf("duplicate node id %q", node.ID)
	}
	stored := cloneNode(node)
	d.nodes[node.ID] = &stored
	d.order = append(d.order, node.ID)
	return cloneNode(stored), nil
}

func (d *Document) Selection(_ context.Context) ([]host.Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, host.ErrClosed
	}
	out := make([]host.Node, 0, len(d.selection))
	for _, id := range d.selection {
		if node, ok := d.nodes[id]; ok {
			out = append(out, cloneNode(*node))
		}
	}
	return out, nil
}

func (d *Document) LoadFont(ctx context.Context, font host.Font) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loadLog = append(d.loadLog, font)
	if _, ok := d.available[font.Key()]; !ok {
		return fmt.Errorf("load font %q: %w", font.Key(), host.ErrFontUnavailable)
	}
	d.loaded[font.Key()] = struct{}{}
	return nil
}

func (d *Document) FontsInRange(_ context.Context, id string, start, end int) ([]host.Font, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	node, ok := d.nodes[id]
	if !ok {
		return nil, fmt.Errorf("fonts of %q: %w", id, host.ErrNodeNotFound)
	}
	if !node.Mixed {
		return []host.Font{node.Font}, nil
	}
	fonts := make([]host.Font, 0, len(node.Runs))
	for _, run := range node.Runs {
		if run.End > start && run.Start < end {
			fonts = append(fonts, run.Font)
		}
	}
	return fonts, nil
}

func (d *Document) SetCharacters(_ context.Context, id, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	node, err := d.textNodeLocked(id)
	if err != nil {
		return err
	}
	if err := d.failures[id]; err != nil {
		return err
	}
	for _, font := range fontsOf(node) {
		if _, ok := d.loaded[font.Key()]; !ok {
			return fmt.Errorf("set characters of %q with %q: %w", id, font.Key(), host.ErrFontNotLoaded)
		}
	}
	if node.Mixed {
		// The whole run takes the font of its first character.
		if len(node.Runs) > 0 {
			node.Font = node.Runs[0].Font
		}
		node.Mixed = false
		node.Runs = nil
	}
	node.Characters = text
	return nil
}

func (d *Document) SetAutoResize(_ context.Context, id string, mode host.AutoResize) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	node, err := d.textNodeLocked(id)
	if err != nil {
		return err
	}
	node.AutoResize = mode
	return nil
}

func (d *Document) SetFont(_ context.Context, id string, font host.Font) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	node, err := d.textNodeLocked(id)
	if err != nil {
		return err
	}
	if _, ok := d.loaded[font.Key()]; !ok {
		return fmt.Errorf("set font of %q to %q: %w", id, font.Key(), host.ErrFontNotLoaded)
	}
	node.Font = font
	node.Mixed = false
	node.Runs = nil
	return nil
}

func (d *Document) SetFontRuns(_ context.Context, id string, runs []host.FontRun) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	node, err := d.textNodeLocked(id)
	if err != nil {
		return err
	}
	length := node.Length()
	if len(runs) == 0 {
		if length != 0 {
			return fmt.Errorf("set fonts of %q: no runs for %d characters", id, length)
		}
		node.Font = host.Font{}
		node.Mixed = true
		node.Runs = nil
		return nil
	}

	merged := make([]host.FontRun, 0, len(runs))
	next := 0
	for _, run := range runs {
		if run.Start != next || run.End <= run.Start {
			return fmt.Errorf("set fonts of %q: run [%d,%d) does not continue at %d", id, run.Start, run.End, next)
		}
		if _, ok := d.loaded[run.Font.Key()]; !ok {
			return fmt.Errorf("set fonts of %q to %q: %w", id, run.Font.Key(), host.ErrFontNotLoaded)
		}
		next = run.End
		if last := len(merged) - 1; last >= 0 && merged[last].Font == run.Font {
			merged[last].End = run.End
			continue
		}
		merged = append(merged, run)
	}
	if next != length {
		return fmt.Errorf("set fonts of %q: runs end at %d, text has %d", id, next, length)
	}

	if len(merged) == 1 {
		node.Font = merged[0].Font
		node.Mixed = false
		node.Runs = nil
		return nil
	}
	node.Font = host.Font{}
	node.Mixed = true
	node.Runs = merged
	return nil
}

func (d *Document) CreateText(_ context.Context, in host.CreateTextInput) (host.Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return host.Node{}, host.ErrClosed
	}
	if _, ok := d.loaded[in.Font.Key()]; !ok {
		return host.Node{}, fmt.Errorf("create text with %q: %w", in.Font.Key(), host.ErrFontNotLoaded)
	}
	name := in.Name
	if name == "" {
		name = in.Characters
	}
	node := host.Node{
		ID:         uuid.NewString(),
		Type:       host.NodeText,
		Name:       name,
		Characters: in.Characters,
		Font:       in.Font,
		AutoResize: host.AutoResizeWidthAndHeight,
		Position:   in.Position,
	}
	d.nodes[node.ID] = &node
	d.order = append(d.order, node.ID)
	return cloneNode(node), nil
}

func (d *Document) Select(_ context.Context, ids []string) error {
	d.mu.Lock()
	for _, id := range ids {
		if _, ok := d.nodes[id]; !ok {
			d.mu.Unlock()
			return fmt.Errorf("select %q: %w", id, host.ErrNodeNotFound)
		}
	}
	d.selection = append([]string(nil), ids...)
	subscribers := d.subscribersLocked()
	d.mu.Unlock()

	for _, fn := range subscribers {
		fn()
	}
	return nil
}

func (d *Document) ScrollIntoView(_ context.Context, ids []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scrolledTo = append([]string(nil), ids...)
	return nil
}

func (d *Document) ViewportCenter(_ context.Context) (host.Point, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.viewport, nil
}

func (d *Document) Notify(_ context.Context, message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifications = append(d.notifications, message)
}

func (d *Document) OnSelectionChange(fn func()) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextSubID
	d.nextSubID++
	d.subscribers[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.subscribers, id)
	}
}

func (d *Document) Close(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// FailSetCharacters makes every later SetCharacters on id return err.
func (d *Document) FailSetCharacters(id string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.failures, id)
		return
	}
	d.failures[id] = err
}

func (d *Document) Node(id string) (host.Node, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	node, ok := d.nodes[id]
	if !ok {
		return host.Node{}, false
	}
	return cloneNode(*node), true
}

func (d *Document) Nodes() []host.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]host.Node, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, cloneNode(*d.nodes[id]))
	}
	return out
}

func (d *Document) SelectedIDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.selection...)
}

func (d *Document) Notifications() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.notifications...)
}

func (d *Document) LoadLog() []host.Font {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]host.Font(nil), d.loadLog...)
}

func (d *Document) ScrolledTo() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.scrolledTo...)
}

func (d *Document) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *Document) textNodeLocked(id string) (*host.Node, error) {
	if d.closed {
		return nil, host.ErrClosed
	}
	node, ok := d.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %q: %w", id, host.ErrNodeNotFound)
	}
	if !node.IsText() {
		return nil, fmt.Errorf("node %q: %w", id, host.ErrNotText)
	}
	return node, nil
}

func (d *Document) subscribersLocked() []func() {
	ids := make([]int, 0, len(d.subscribers))
	for id := range d.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(), 0, len(ids))
	for _, id := range ids {
		out = append(out, d.subscribers[id])
	}
	return out
}

func fontsOf(node *host.Node) []host.Font {
	if !node.Mixed {
		return []host.Font{node.Font}
	}
	fonts := make([]host.Font, 0, len(node.Runs))
	for _, run := range node.Runs {
		fonts = append(fonts, run.Font)
	}
	return fonts
}

func cloneNode(node host.Node) host.Node {
	node.Runs = append([]host.FontRun(nil), node.Runs...)
	return node
}
