package plugin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/textfill/textfill/internal/fonts"
	"github.com/textfill/textfill/internal/generator"
	"github.com/textfill/textfill/internal/host"
	"github.com/textfill/textfill/internal/observability"
)

const (
	noticeFilled       = "랜덤 텍스트를 적용했습니다."
	noticeApplied      = "텍스트를 적용했습니다."
	noticeInserted     = "텍스트 레이어를 추가했습니다."
	noticeNoSelection  = "텍스트 레이어를 선택해 주세요."
	noticeEmptyText    = "적용할 텍스트를 입력해 주세요."
	noticeFailed       = "⚠️ 텍스트를 적용하는 중 오류가 발생했습니다."
	defaultOutboxDepth = 64
)

var ErrSessionClosed = errors.New("plugin session is closed")

type Options struct {
	FontCandidates []host.Font
	Logger         *slog.Logger
	Outbox         *Outbox
}

// Session runs panel messages against one host document. Messages are
// handled one at a time.
type Session struct {
	mu          sync.Mutex
	doc         host.Document
	gen         *generator.Generator
	candidates  []host.Font
	log         *slog.Logger
	outbox      *Outbox
	closed      bool
	stopWatcher func()
}

func NewSession(doc host.Document, gen *generator.Generator, opts Options) (*Session, error) {
	if doc == nil {
		return nil, fmt.Errorf("host document is required")
	}
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	outbox := opts.Outbox
	if outbox == nil {
		outbox = NewOutbox(defaultOutboxDepth)
	}
	candidates := opts.FontCandidates
	if len(candidates) == 0 {
		candidates = fonts.DefaultCandidates()
	}

	s := &Session{
		doc:        doc,
		gen:        gen,
		candidates: candidates,
		log:        logger,
		outbox:     outbox,
	}
	s.stopWatcher = doc.OnSelectionChange(s.publishSelection)
	// The panel learns the selection as soon as it opens.
	s.publishSelection()
	return s, nil
}

func (s *Session) Outbox() *Outbox {
	return s.outbox
}

// Handle runs one inbound message and returns the messages for the panel.
// Failures never escape: they are reported as an exception result.
func (s *Session) Handle(ctx context.Context, msg Inbound) []Outbound {
	if msg == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.dispatch(ctx, msg)
	if err != nil {
		kind := resultTypeFor(msg)
		s.log.ErrorContext(ctx, "plugin message failed",
			slog.String("trace_id", observability.TraceIDFromContext(ctx)),
			slog.String("type", string(msg.Type())),
			slog.Any("error", err),
		)
		s.doc.Notify(ctx, noticeFailed)
		observability.ObservePluginResult(string(kind), string(StatusError), string(ReasonException))
		out = append(out, Outbound{Type: kind, Payload: Result{
			Status:  StatusError,
			Reason:  ReasonException,
			Message: err.Error(),
		}})
	}
	return out
}

func (s *Session) dispatch(ctx context.Context, msg Inbound) ([]Outbound, error) {
	if s.closed {
		return s.rejectClosed(msg), nil
	}

	switch m := msg.(type) {
	case UIReady:
		info, err := s.selectionInfo(ctx)
		if err != nil {
			return nil, err
		}
		return []Outbound{info, s.preview(generator.CategoryProduct)}, nil
	case RequestPreview:
		return []Outbound{s.preview(m.Category)}, nil
	case FillSelection:
		return s.fillSelection(ctx, m)
	case ApplyText:
		return s.applyText(ctx, m)
	case ClosePlugin:
		s.closed = true
		if s.stopWatcher != nil {
			s.stopWatcher()
		}
		if err := s.doc.Close(ctx); err != nil {
			return nil, fmt.Errorf("close document: %w", err)
		}
		return nil, nil
	default:
		s.log.WarnContext(ctx, "unhandled plugin message", slog.String("type", string(msg.Type())))
		return nil, nil
	}
}

func (s *Session) rejectClosed(msg Inbound) []Outbound {
	switch msg.(type) {
	case FillSelection, ApplyText:
		kind := resultTypeFor(msg)
		observability.ObservePluginResult(string(kind), string(StatusError), string(ReasonClosed))
		return []Outbound{{Type: kind, Payload: Result{Status: StatusError, Reason: ReasonClosed, Message: ErrSessionClosed.Error()}}}
	default:
		return nil
	}
}

func (s *Session) preview(category generator.Category) Outbound {
	text := s.gen.Generate(category)
	observability.ObserveGenerated(string(category), 1)
	return Outbound{Type: TypePreviewText, Payload: PreviewText{TextType: category, Text: text}}
}

// selectionInfo reports how many layers, and how many text layers, are selected.
func (s *Session) selectionInfo(ctx context.Context) (Outbound, error) {
	selection, err := s.doc.Selection(ctx)
	if err != nil {
		return Outbound{}, fmt.Errorf("read selection: %w", err)
	}
	return Outbound{Type: TypeSelectionUpdate, Payload: SelectionInfo{
		TextLayers:  len(host.TextNodes(selection)),
		TotalLayers: len(selection),
	}}, nil
}

func (s *Session) publishSelection() {
	ctx := context.Background()
	info, err := s.selectionInfo(ctx)
	if err != nil {
		s.log.Warn("selection update skipped", slog.Any("error", err))
		return
	}
	s.outbox.Push(info)
}

func (s *Session) fillSelection(ctx context.Context, m FillSelection) ([]Outbound, error) {
	nodes, err := s.selectedText(ctx)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return s.noSelection(ctx, TypeFillResult), nil
	}

	textFor := func() string {
		return s.gen.Generate(m.Category)
	}
	if err := s.replace(ctx, nodes, textFor); err != nil {
		return nil, err
	}
	observability.ObserveGenerated(string(m.Category), len(nodes))

	s.doc.Notify(ctx, noticeFilled)
	observability.ObservePluginResult(string(TypeFillResult), string(StatusOK), "")
	return []Outbound{{Type: TypeFillResult, Payload: Result{
		Status:       StatusOK,
		AppliedCount: len(nodes),
		TextType:     m.Category,
	}}}, nil
}

func (s *Session) applyText(ctx context.Context, m ApplyText) ([]Outbound, error) {
	text, err := generator.Literal(m.Text)
	if err != nil {
		s.doc.Notify(ctx, noticeEmptyText)
		observability.ObservePluginResult(string(TypeApplyResult), string(StatusError), string(ReasonEmptyText))
		return []Outbound{{Type: TypeApplyResult, Payload: Result{
			Status:   StatusError,
			Reason:   ReasonEmptyText,
			Strategy: m.Strategy,
		}}}, nil
	}

	if m.Strategy == StrategyInsert {
		return s.insertText(ctx, text)
	}

	nodes, err := s.selectedText(ctx)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return s.noSelection(ctx, TypeApplyResult), nil
	}
	if err := s.replace(ctx, nodes, func() string { return text }); err != nil {
		return nil, err
	}

	s.doc.Notify(ctx, noticeApplied)
	observability.ObservePluginResult(string(TypeApplyResult), string(StatusOK), "")
	return []Outbound{{Type: TypeApplyResult, Payload: Result{
		Status:       StatusOK,
		AppliedCount: len(nodes),
		Strategy:     StrategyReplaceSelection,
	}}}, nil
}

func (s *Session) insertText(ctx context.Context, text string) ([]Outbound, error) {
	font, err := s.newLoader().Preferred(ctx)
	if err != nil {
		return nil, err
	}
	center, err := s.doc.ViewportCenter(ctx)
	if err != nil {
		return nil, fmt.Errorf("read viewport: %w", err)
	}
	node, err := s.doc.CreateText(ctx, host.CreateTextInput{
		Characters: text,
		Font:       font,
		Position:   center,
	})
	if err != nil {
		return nil, fmt.Errorf("create text layer: %w", err)
	}
	if err := s.doc.Select(ctx, []string{node.ID}); err != nil {
		return nil, fmt.Errorf("select new layer: %w", err)
	}
	if err := s.doc.ScrollIntoView(ctx, []string{node.ID}); err != nil {
		return nil, fmt.Errorf("focus new layer: %w", err)
	}
	observability.ObserveLayersApplied(1)

	s.doc.Notify(ctx, noticeInserted)
	observability.ObservePluginResult(string(TypeApplyResult), string(StatusOK), "")
	return []Outbound{{Type: TypeApplyResult, Payload: Result{
		Status:       StatusOK,
		AppliedCount: 1,
		Strategy:     StrategyInsert,
	}}}, nil
}

func (s *Session) selectedText(ctx context.Context) ([]host.Node, error) {
	selection, err := s.doc.Selection(ctx)
	if err != nil {
		return nil, fmt.Errorf("read selection: %w", err)
	}
	return host.TextNodes(selection), nil
}

func (s *Session) noSelection(ctx context.Context, kind MessageType) []Outbound {
	s.doc.Notify(ctx, noticeNoSelection)
	observability.ObservePluginResult(string(kind), string(StatusError), string(ReasonNoSelection))
	return []Outbound{{Type: kind, Payload: Result{Status: StatusError, Reason: ReasonNoSelection}}}
}

func (s *Session) newLoader() *fonts.Loader {
	return fonts.NewLoader(s.doc, s.candidates, func(font host.Font, err error) {
		observability.IncrementFontLoadFailure(font.Family)
		s.log.Debug("font candidate unavailable", slog.String("font", font.Key()), slog.Any("error", err))
	})
}

// change records which mutations replace made to one node.
type change struct {
	prev       host.Node
	font       bool
	characters bool
	autoResize bool
}

func (c *change) mutated() bool {
	return c.font || c.characters || c.autoResize
}

// replace loads the fonts of every node before touching any of them, then
// rewrites each node. If a rewrite fails, every mutation already made is
// undone: characters, fonts and auto-resize mode.
func (s *Session) replace(ctx context.Context, nodes []host.Node, textFor func() string) error {
	prepared, err := s.newLoader().PrepareAll(ctx, nodes)
	if err != nil {
		return err
	}

	changes := make([]*change, 0, len(nodes))
	for i, node := range nodes {
		if err := ctx.Err(); err != nil {
			return s.rollback(ctx, changes, err)
		}
		c := &change{prev: node}
		changes = append(changes, c)
		if assign := prepared[i].Assign; !assign.IsZero() {
			if err := s.doc.SetFont(ctx, node.ID, assign); err != nil {
				return s.rollback(ctx, changes, fmt.Errorf("assign font to %q: %w", node.ID, err))
			}
			c.font = true
		}
		if err := s.doc.SetCharacters(ctx, node.ID, textFor()); err != nil {
			return s.rollback(ctx, changes, fmt.Errorf("set characters of %q: %w", node.ID, err))
		}
		c.characters = true
		if err := s.doc.SetAutoResize(ctx, node.ID, host.AutoResizeHeight); err != nil {
			return s.rollback(ctx, changes, fmt.Errorf("set auto-resize of %q: %w", node.ID, err))
		}
		c.autoResize = true
	}
	observability.ObserveLayersApplied(len(nodes))
	return nil
}

func (s *Session) rollback(ctx context.Context, changes []*change, cause error) error {
	restoreCtx := context.WithoutCancel(ctx)
	errs := []error{cause}
	restored := 0
	for i := len(changes) - 1; i >= 0; i-- {
		if !changes[i].mutated() {
			continue
		}
		restored++
		if err := s.restore(restoreCtx, changes[i]); err != nil {
			errs = append(errs, err)
		}
	}
	if restored == 0 {
		return cause
	}
	observability.IncrementRollback()
	s.log.WarnContext(ctx, "rolled back partially applied text",
		slog.Int("layers", restored),
		slog.Any("error", cause),
	)
	return errors.Join(errs...)
}

func (s *Session) restore(ctx context.Context, c *change) error {
	prev := c.prev
	if c.characters {
		if err := s.doc.SetCharacters(ctx, prev.ID, prev.Characters); err != nil {
			return fmt.Errorf("restore characters of %q: %w", prev.ID, err)
		}
	}
	var errs []error
	// Rewriting characters collapses mixed runs into one font.
	if c.font || c.characters {
		var err error
		if prev.Mixed {
			err = s.doc.SetFontRuns(ctx, prev.ID, prev.Runs)
		} else {
			err = s.doc.SetFont(ctx, prev.ID, prev.Font)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("restore fonts of %q: %w", prev.ID, err))
		}
	}
	if c.autoResize && prev.AutoResize != "" {
		if err := s.doc.SetAutoResize(ctx, prev.ID, prev.AutoResize); err != nil {
			errs = append(errs, fmt.Errorf("restore auto-resize of %q: %w", prev.ID, err))
		}
	}
	return errors.Join(errs...)
}

func resultTypeFor(msg Inbound) MessageType {
	if msg != nil && msg.Type() == TypeFillSelection {
		return TypeFillResult
	}
	return TypeApplyResult
}
