package host

import (
	"context"
	"errors"
	"unicode/utf16"
)

var (
	ErrNodeNotFound    = errors.New("node not found")
	ErrNotText         = errors.New("node is not a text layer")
	ErrFontNotLoaded   = errors.New("font is not loaded")
	ErrFontUnavailable = errors.New("font is not available")
	ErrClosed          = errors.New("document is closed")
)

type NodeType string

const (
	NodeText      NodeType = "TEXT"
	NodeFrame     NodeType = "FRAME"
	NodeRectangle NodeType = "RECTANGLE"
	NodeGroup     NodeType = "GROUP"
)

type AutoResize string

const (
	AutoResizeNone           AutoResize = "NONE"
	AutoResizeHeight         AutoResize = "HEIGHT"
	AutoResizeWidthAndHeight AutoResize = "WIDTH_AND_HEIGHT"
)

type Font struct {
	Family string `json:"family"`
	Style  string `json:"style"`
}

// Key identifies a font as "family-style".
func (f Font) Key() string {
	return f.Family + "-" + f.Style
}

func (f Font) IsZero() bool {
	return f.Family == "" && f.Style == ""
}

// FontRun assigns Font to the character range [Start, End), counted in
// UTF-16 code units.
type FontRun struct {
	Start int  `json:"start"`
	End   int  `json:"end"`
	Font  Font `json:"font"`
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a snapshot of a layer. Mixed reports that the text run uses more
// than one font; Font is meaningless in that case and Runs holds the ranges.
type Node struct {
	ID         string     `json:"id"`
	Type       NodeType   `json:"type"`
	Name       string     `json:"name,omitempty"`
	Characters string     `json:"characters,omitempty"`
	Font       Font       `json:"font,omitempty"`
	Mixed      bool       `json:"mixed,omitempty"`
	Runs       []FontRun  `json:"runs,omitempty"`
	AutoResize AutoResize `json:"auto_resize,omitempty"`
	Position   Point      `json:"position"`
}

func (n Node) IsText() bool {
	return n.Type == NodeText
}

// Length is the size of the text content in UTF-16 code units, the unit of
// every character range on the host.
func (n Node) Length() int {
	return textLength(n.Characters)
}

func textLength(text string) int {
	length := 0
	for _, r := range text {
		if size := utf16.RuneLen(r); size > 0 {
			length += size
		} else {
			length++
		}
	}
	return length
}

type CreateTextInput struct {
	Name       string
	Characters string
	Font       Font
	Position   Point
}

// Document is the design tool's view of the current page. Character and font
// mutations require every font involved to have been loaded first.
//
// SetFontRuns replaces the fonts of a text node range by range. The runs must
// be contiguous and cover the text exactly; an empty text accepts no runs and
// is left without a font of its own, the state of an emptied mixed run.
type Document interface {
	Selection(ctx context.Context) ([]Node, error)
	LoadFont(ctx context.Context, font Font) error
	FontsInRange(ctx context.Context, id string, start, end int) ([]Font, error)
	SetCharacters(ctx context.Context, id, text string) error
	SetAutoResize(ctx context.Context, id string, mode AutoResize) error
	SetFont(ctx context.Context, id string, font Font) error
	SetFontRuns(ctx context.Context, id string, runs []FontRun) error
	CreateText(ctx context.Context, in CreateTextInput) (Node, error)
	Select(ctx context.Context, ids []string) error
	ScrollIntoView(ctx context.Context, ids []string) error
	ViewportCenter(ctx context.Context) (Point, error)
	Notify(ctx context.Context, message string)
	OnSelectionChange(fn func()) (cancel func())
	Close(ctx context.Context) error
}

func TextNodes(nodes []Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, node := range nodes {
		if node.IsText() {
			out = append(out, node)
		}
	}
	return out
}
