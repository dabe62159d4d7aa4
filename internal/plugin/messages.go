package plugin

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/textfill/textfill/internal/generator"
)

var ErrInvalidMessage = errors.New("invalid message")

type MessageType string

const (
	TypeUIReady        MessageType = "ui-ready"
	TypeRequestPreview MessageType = "request-preview"
	TypeFillSelection  MessageType = "fill-selection"
	TypeApplyText      MessageType = "apply-text"
	TypeClosePlugin    MessageType = "close-plugin"

	TypeSelectionUpdate MessageType = "selection-update"
	TypePreviewText     MessageType = "preview-text"
	TypeFillResult      MessageType = "fill-result"
	TypeApplyResult     MessageType = "apply-result"
)

type Strategy string

const (
	StrategyReplaceSelection Strategy = "replace-selection"
	StrategyInsert           Strategy = "insert"
)

func ParseStrategy(raw string) (Strategy, error) {
	switch Strategy(strings.TrimSpace(raw)) {
	case "", StrategyReplaceSelection:
		return StrategyReplaceSelection, nil
	case StrategyInsert:
		return StrategyInsert, nil
	default:
		return "", fmt.Errorf("%w: unknown strategy %q", ErrInvalidMessage, raw)
	}
}

// Inbound is a message sent by the panel.
type Inbound interface {
	Type() MessageType
}

type UIReady struct{}

type RequestPreview struct {
	Category generator.Category
}

type FillSelection struct {
	Category generator.Category
}

// ApplyText carries literal text. It is not checked for blank content here so
// that the session can report the rejection to the panel.
type ApplyText struct {
	Text     string
	Strategy Strategy
}

type ClosePlugin struct{}

func (UIReady) Type() MessageType        { return TypeUIReady }
func (RequestPreview) Type() MessageType { return TypeRequestPreview }
func (FillSelection) Type() MessageType  { return TypeFillSelection }
func (ApplyText) Type() MessageType      { return TypeApplyText }
func (ClosePlugin) Type() MessageType    { return TypeClosePlugin }

type envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type inboundPayload struct {
	TextType string  `json:"textType"`
	Text     *string `json:"text"`
	Strategy string  `json:"strategy"`
}

// DecodeInbound parses {"type": ..., "payload": {...}} and checks the fields
// each message type requires.
func DecodeInbound(raw []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	var payload inboundPayload
	if trimmed := bytes.TrimSpace(env.Payload); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if err := json.Unmarshal(trimmed, &payload); err != nil {
			return nil, fmt.Errorf("%w: payload of %s: %v", ErrInvalidMessage, env.Type, err)
		}
	}

	switch env.Type {
	case TypeUIReady:
		return UIReady{}, nil
	case TypeClosePlugin:
		return ClosePlugin{}, nil
	case TypeRequestPreview, TypeFillSelection:
		category, err := generator.ParseCategory(payload.TextType)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		if env.Type == TypeRequestPreview {
			return RequestPreview{Category: category}, nil
		}
		return FillSelection{Category: category}, nil
	case TypeApplyText:
		if payload.Text == nil {
			return nil, fmt.Errorf("%w: apply-text requires payload.text", ErrInvalidMessage)
		}
		strategy, err := ParseStrategy(payload.Strategy)
		if err != nil {
			return nil, err
		}
		return ApplyText{Text: *payload.Text, Strategy: strategy}, nil
	case "":
		return nil, fmt.Errorf("%w: type is required", ErrInvalidMessage)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, env.Type)
	}
}

// Outbound is a message sent to the panel.
type Outbound struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload"`
}

type SelectionInfo struct {
	TextLayers  int `json:"textLayers"`
	TotalLayers int `json:"totalLayers"`
}

type PreviewText struct {
	TextType generator.Category `json:"textType"`
	Text     string             `json:"text"`
}

type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

type Reason string

const (
	ReasonNoSelection Reason = "no-selection"
	ReasonEmptyText   Reason = "empty-text"
	ReasonClosed      Reason = "closed"
	ReasonException   Reason = "exception"
)

type Result struct {
	Status       Status             `json:"status"`
	Reason       Reason             `json:"reason,omitempty"`
	AppliedCount int                `json:"appliedCount,omitempty"`
	TextType     generator.Category `json:"textType,omitempty"`
	Strategy     Strategy           `json:"strategy,omitempty"`
	Message      string             `json:"message,omitempty"`
}
