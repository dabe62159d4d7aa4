package api

import (
	"io"
	"net/http"

	"github.com/textfill/textfill/internal/auth"
	"github.com/textfill/textfill/internal/plugin"
)

const maxMessageBytes = 64 << 10

type messagesResponse struct {
	Messages []plugin.Outbound `json:"messages"`
}

func handlePostMessage(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Session == nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "SESSION_UNAVAILABLE", "plugin session is not configured", true, nil)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes+1))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "read request body", false, nil)
		return
	}
	if len(body) > maxMessageBytes {
		writeError(r.Context(), w, http.StatusRequestEntityTooLarge, "MESSAGE_TOO_LARGE", "message body is too large", false, map[string]any{"limit_bytes": maxMessageBytes})
		return
	}

	msg, err := plugin.DecodeInbound(body)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_MESSAGE", err.Error(), false, nil)
		return
	}

	if err := requireRole(r, roleForMessage(msg)); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, map[string]any{"type": msg.Type()})
		return
	}

	out := deps.Session.Handle(r.Context(), msg)
	// Selection updates raised while handling came before the reply.
	messages := append(deps.Session.Outbox().Drain(), out...)
	writeJSON(w, http.StatusOK, messagesResponse{Messages: nonNil(messages)})
}

func handleDrainMessages(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Session == nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "SESSION_UNAVAILABLE", "plugin session is not configured", true, nil)
		return
	}
	writeJSON(w, http.StatusOK, messagesResponse{Messages: nonNil(deps.Session.Outbox().Drain())})
}

func roleForMessage(msg plugin.Inbound) auth.Role {
	switch msg.(type) {
	case plugin.FillSelection, plugin.ApplyText, plugin.ClosePlugin:
		return auth.RoleEditor
	default:
		return auth.RoleViewer
	}
}

func nonNil(messages []plugin.Outbound) []plugin.Outbound {
	if messages == nil {
		return []plugin.Outbound{}
	}
	return messages
}
