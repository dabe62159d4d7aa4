package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

type wireMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func decodeMessages(t *testing.T, body []byte) []wireMessage {
	t.Helper()
	var resp struct {
		Messages []wireMessage `json:"messages"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode messages: %v (%s)", err, body)
	}
	return resp.Messages
}

func TestPostUIReadyReturnsSelectionAndPreview(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rr := env.do(t, http.MethodPost, "/v1/messages", `{"type":"ui-ready"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	messages := decodeMessages(t, rr.Body.Bytes())
	if len(messages) != 3 {
		t.Fatalf("messages = %+v", messages)
	}
	// The update queued when the session opened comes before the reply.
	if messages[0].Type != "selection-update" || messages[1].Type != "selection-update" || messages[2].Type != "preview-text" {
		t.Fatalf("types = %s, %s, %s", messages[0].Type, messages[1].Type, messages[2].Type)
	}
	if !strings.Contains(string(messages[1].Payload), `"textLayers":0`) {
		t.Fatalf("selection payload = %s", messages[1].Payload)
	}
}

func TestPostFillSelectionRewritesDocument(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	if rr := env.do(t, http.MethodPut, "/v1/document/selection", map[string]any{"ids": []string{"t1", "t2", "f1"}}, nil); rr.Code != http.StatusOK {
		t.Fatalf("select status = %d body=%s", rr.Code, rr.Body.String())
	}

	rr := env.do(t, http.MethodPost, "/v1/messages", `{"type":"fill-selection","payload":{"textType":"price"}}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	messages := decodeMessages(t, rr.Body.Bytes())
	last := messages[len(messages)-1]
	if last.Type != "fill-result" {
		t.Fatalf("last message = %+v", last)
	}
	var result struct {
		Status       string `json:"status"`
		AppliedCount int    `json:"appliedCount"`
		TextType     string `json:"textType"`
	}
	if err := json.Unmarshal(last.Payload, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Status != "ok" || result.AppliedCount != 2 || result.TextType != "price" {
		t.Fatalf("result = %+v", result)
	}
	for _, id := range []string{"t1", "t2"} {
		node, _ := env.doc.Node(id)
		if !strings.HasSuffix(node.Characters, "원") {
			t.Fatalf("%s characters = %q", id, node.Characters)
		}
	}
}

func TestPostSelectionChangesAreDeliveredBeforeReply(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	if rr := env.do(t, http.MethodPut, "/v1/document/selection", map[string]any{"ids": []string{"t1"}}, nil); rr.Code != http.StatusOK {
		t.Fatalf("select status = %d", rr.Code)
	}

	rr := env.do(t, http.MethodPost, "/v1/messages", `{"type":"request-preview","payload":{"textType":"option"}}`, nil)
	messages := decodeMessages(t, rr.Body.Bytes())
	if len(messages) != 3 || messages[1].Type != "selection-update" || messages[2].Type != "preview-text" {
		t.Fatalf("messages = %+v", messages)
	}
	if !strings.Contains(string(messages[1].Payload), `"textLayers":1`) {
		t.Fatalf("selection payload = %s", messages[1].Payload)
	}

	drained := env.do(t, http.MethodGet, "/v1/messages", nil, nil)
	if got := decodeMessages(t, drained.Body.Bytes()); len(got) != 0 {
		t.Fatalf("pending after reply = %+v", got)
	}
}

func TestDrainMessagesReturnsPendingUpdates(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	if rr := env.do(t, http.MethodPut, "/v1/document/selection", map[string]any{"ids": []string{"t1", "f1"}}, nil); rr.Code != http.StatusOK {
		t.Fatalf("select status = %d", rr.Code)
	}

	rr := env.do(t, http.MethodGet, "/v1/messages", nil, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	messages := decodeMessages(t, rr.Body.Bytes())
	if len(messages) != 2 || messages[0].Type != "selection-update" || messages[1].Type != "selection-update" {
		t.Fatalf("messages = %+v", messages)
	}
	if !strings.Contains(string(messages[0].Payload), `"totalLayers":0`) {
		t.Fatalf("initial payload = %s", messages[0].Payload)
	}
	if !strings.Contains(string(messages[1].Payload), `"totalLayers":2`) {
		t.Fatalf("payload = %s", messages[1].Payload)
	}
}

func TestDrainMessagesAfterOpenReturnsInitialSelection(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rr := env.do(t, http.MethodGet, "/v1/messages", nil, nil)
	messages := decodeMessages(t, rr.Body.Bytes())
	if len(messages) != 1 || messages[0].Type != "selection-update" {
		t.Fatalf("messages = %+v", messages)
	}
	again := env.do(t, http.MethodGet, "/v1/messages", nil, nil)
	if got := decodeMessages(t, again.Body.Bytes()); len(got) != 0 {
		t.Fatalf("second drain = %+v", got)
	}
}

func TestPostMessageRejectsInvalidBodies(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	for _, body := range []string{
		`not json`,
		`{"type":"explode"}`,
		`{"type":"fill-selection","payload":{"textType":"poem"}}`,
		`{"type":"apply-text","payload":{}}`,
	} {
		rr := env.do(t, http.MethodPost, "/v1/messages", body, nil)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d", body, rr.Code)
		}
		if code := decodeErrorCode(t, rr); code != "INVALID_MESSAGE" {
			t.Fatalf("body %s: error_code = %q", body, code)
		}
	}
}

func TestPostMessageRejectsOversizedBody(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	body := `{"type":"apply-text","payload":{"text":"` + strings.Repeat("a", maxMessageBytes) + `"}}`

	rr := env.do(t, http.MethodPost, "/v1/messages", body, nil)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestPostApplyTextInsertCreatesLayer(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	before := len(env.doc.Nodes())

	rr := env.do(t, http.MethodPost, "/v1/messages", `{"type":"apply-text","payload":{"text":"여름 세일","strategy":"insert"}}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	nodes := env.doc.Nodes()
	if len(nodes) != before+1 {
		t.Fatalf("nodes = %d, want %d", len(nodes), before+1)
	}
	if got := nodes[len(nodes)-1].Characters; got != "여름 세일" {
		t.Fatalf("inserted characters = %q", got)
	}
	messages := decodeMessages(t, rr.Body.Bytes())
	if last := messages[len(messages)-1]; last.Type != "apply-result" {
		t.Fatalf("last message = %+v", last)
	}
}

func TestPostMessageWithoutSession(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	env.deps.Session = nil

	rr := env.do(t, http.MethodPost, "/v1/messages", `{"type":"ui-ready"}`, nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
}
