package textfillctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/textfill/textfill/internal/generator"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

// request is one API call. Message requests exit non-zero when the last
// reply reports an error.
type request struct {
	method  string
	path    string
	body    any
	message bool
}

type usageError string

func (e usageError) Error() string { return string(e) }

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("textfillctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "textfill API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 10*time.Second), "HTTP timeout (e.g. 10s)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	req, err := buildRequest(strings.TrimSpace(fs.Arg(0)), fs.Args()[1:])
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%v\n\n", err)
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	endpoint := strings.TrimRight(*baseURL, "/") + req.path
	code, responseBody, err := doRequest(ctx, client, req.method, endpoint, *apiKey, req.body)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}

	if code >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", code, strings.TrimSpace(string(responseBody)))
		return 1
	}

	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
	} else if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(stdout, string(responseBody))
	}
	if req.message {
		if reason, failed := lastResultFailed(responseBody); failed {
			_, _ = fmt.Fprintf(stderr, "plugin reported error: %s\n", reason)
			return 1
		}
	}
	return 0
}

func buildRequest(command string, args []string) (request, error) {
	switch command {
	case "health":
		return request{method: http.MethodGet, path: "/v1/health"}, nil
	case "ready":
		return request{method: http.MethodGet, path: "/v1/ready"}, nil
	case "vocabulary":
		return request{method: http.MethodGet, path: "/v1/vocabulary"}, nil
	case "document":
		return request{method: http.MethodGet, path: "/v1/document"}, nil
	case "messages":
		return request{method: http.MethodGet, path: "/v1/messages"}, nil
	case "generate":
		if len(args) < 1 || len(args) > 2 {
			return request{}, usageError("generate requires <category> [count]")
		}
		category, err := generator.ParseCategory(args[0])
		if err != nil {
			return request{}, err
		}
		query := url.Values{"category": {string(category)}}
		if len(args) == 2 {
			if _, err := strconv.Atoi(args[1]); err != nil {
				return request{}, usageError(fmt.Sprintf("invalid count %q", args[1]))
			}
			query.Set("count", args[1])
		}
		return request{method: http.MethodGet, path: "/v1/generate?" + query.Encode()}, nil
	case "preview", "fill":
		if len(args) != 1 {
			return request{}, usageError(command + " requires <category>")
		}
		category, err := generator.ParseCategory(args[0])
		if err != nil {
			return request{}, err
		}
		kind := "request-preview"
		if command == "fill" {
			kind = "fill-selection"
		}
		return messageRequest(kind, map[string]any{"textType": category}), nil
	case "apply", "insert":
		if len(args) == 0 {
			return request{}, usageError(command + " requires <text>")
		}
		strategy := "replace-selection"
		if command == "insert" {
			strategy = "insert"
		}
		return messageRequest("apply-text", map[string]any{"text": strings.Join(args, " "), "strategy": strategy}), nil
	case "select":
		ids := args
		if ids == nil {
			ids = []string{}
		}
		return request{method: http.MethodPut, path: "/v1/document/selection", body: map[string]any{"ids": ids}}, nil
	case "export":
		if len(args) < 2 || len(args) > 3 {
			return request{}, usageError("export requires <category> <count> [key]")
		}
		category, err := generator.ParseCategory(args[0])
		if err != nil {
			return request{}, err
		}
		count, err := strconv.Atoi(args[1])
		if err != nil {
			return request{}, usageError(fmt.Sprintf("invalid count %q", args[1]))
		}
		body := map[string]any{"category": category, "count": count}
		if len(args) == 3 {
			body["key"] = args[2]
		}
		return request{method: http.MethodPost, path: "/v1/samples/export", body: body}, nil
	default:
		return request{}, usageError(fmt.Sprintf("unknown command %q", command))
	}
}

func messageRequest(kind string, payload map[string]any) request {
	return request{
		method:  http.MethodPost,
		path:    "/v1/messages",
		body:    map[string]any{"type": kind, "payload": payload},
		message: true,
	}
}

func doRequest(ctx context.Context, client *http.Client, method, endpoint, apiKey string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(apiKey))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
}

func lastResultFailed(raw []byte) (string, bool) {
	var resp struct {
		Messages []struct {
			Payload struct {
				Status string `json:"status"`
				Reason string `json:"reason"`
			} `json:"payload"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || len(resp.Messages) == 0 {
		return "", false
	}
	last := resp.Messages[len(resp.Messages)-1].Payload
	return last.Reason, last.Status == "error"
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: textfillctl [flags] <command>")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health                           GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready                            GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  vocabulary                       GET /v1/vocabulary")
	_, _ = fmt.Fprintln(w, "  document                         GET /v1/document")
	_, _ = fmt.Fprintln(w, "  messages                         GET /v1/messages")
	_, _ = fmt.Fprintln(w, "  generate <category> [count]      GET /v1/generate")
	_, _ = fmt.Fprintln(w, "  preview <category>               request-preview message")
	_, _ = fmt.Fprintln(w, "  fill <category>                  fill-selection message")
	_, _ = fmt.Fprintln(w, "  apply <text>                     apply-text, replace-selection")
	_, _ = fmt.Fprintln(w, "  insert <text>                    apply-text, insert")
	_, _ = fmt.Fprintln(w, "  select <id>...                   PUT /v1/document/selection")
	_, _ = fmt.Fprintln(w, "  export <category> <count> [key]  POST /v1/samples/export")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "categories: product, option, price")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
