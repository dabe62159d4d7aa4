package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/textfill/textfill/internal/host"
)

type documentResponse struct {
	Nodes         []host.Node `json:"nodes"`
	Selection     []string    `json:"selection"`
	Notifications []string    `json:"notifications"`
}

type selectionRequest struct {
	IDs []string `json:"ids"`
}

func handleGetDocument(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Document == nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "DOCUMENT_UNAVAILABLE", "document is not configured", true, nil)
		return
	}
	writeJSON(w, http.StatusOK, snapshotDocument(deps.Document))
}

func handlePutSelection(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Document == nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "DOCUMENT_UNAVAILABLE", "document is not configured", true, nil)
		return
	}

	var req selectionRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body", false, nil)
		return
	}

	if err := deps.Document.Select(r.Context(), req.IDs); err != nil {
		switch {
		case errors.Is(err, host.ErrNodeNotFound):
			writeError(r.Context(), w, http.StatusNotFound, "NODE_NOT_FOUND", err.Error(), false, nil)
		case errors.Is(err, host.ErrClosed):
			writeError(r.Context(), w, http.StatusConflict, "DOCUMENT_CLOSED", err.Error(), false, nil)
		default:
			writeError(r.Context(), w, http.StatusInternalServerError, "SELECT_FAILED", err.Error(), false, nil)
		}
		return
	}
	writeJSON(w, http.StatusOK, snapshotDocument(deps.Document))
}

func snapshotDocument(doc DocumentView) documentResponse {
	resp := documentResponse{
		Nodes:         doc.Nodes(),
		Selection:     doc.SelectedIDs(),
		Notifications: doc.Notifications(),
	}
	if resp.Nodes == nil {
		resp.Nodes = []host.Node{}
	}
	if resp.Selection == nil {
		resp.Selection = []string{}
	}
	if resp.Notifications == nil {
		resp.Notifications = []string{}
	}
	return resp
}
