package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"chatgate/model"
)

func ndjsonServer(t *testing.T, lines []string, gotBody *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if gotBody != nil {
			_ = json.NewDecoder(r.Body).Decode(gotBody)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, l := range lines {
			fmt.Fprintln(w, l)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaStreamThinkingAndText(t *testing.T) {
	srv := ndjsonServer(t, []string{
		`{"model":"qwen3","message":{"role":"assistant","content":"","thinking":"Hmm."},"done":false}`,
		`{"model":"qwen3","message":{"role":"assistant","content":"Hi"},"done":false}`,
		`{"model":"qwen3","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop","prompt_eval_count":9,"eval_count":3}`,
	}, nil)

	p, err := NewOllamaProvider(srv.URL, "qwen3", srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	stream, err := p.Stream(context.Background(), model.ChatRequest{
		Messages: []model.ChatMessage{{Role: model.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	events := collect(t, stream)

	want := []string{"reasoning-delta", "text-delta", "finish"}
	if got := kinds(events); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("kinds = %v, want %v", got, want)
	}
	fin := events[2]
	if fin.FinishReason != "stop" || fin.Usage.PromptTokens != 9 || fin.Usage.CompletionTokens != 3 {
		t.Errorf("finish = %+v", fin)
	}
}

func TestOllamaStreamToolCalls(t *testing.T) {
	var body map[string]any
	srv := ndjsonServer(t, []string{
		`{"model":"qwen3","message":{"role":"assistant","content":"","tool_calls":[{"function":{"name":"fetch_weather_data","arguments":{"location":"Paris"}}}]},"done":false}`,
		`{"model":"qwen3","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop"}`,
	}, &body)

	p, err := NewOllamaProvider(srv.URL, "qwen3", srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	tool := mcptypes.NewTool("fetch_weather_data", mcptypes.WithString("location", mcptypes.Required()))
	stream, err := p.Stream(context.Background(), model.ChatRequest{Tools: []mcptypes.Tool{tool}})
	if err != nil {
		t.Fatal(err)
	}
	events := collect(t, stream)

	if len(events) != 2 || events[0].Kind != model.StreamToolCall {
		t.Fatalf("events = %+v", events)
	}
	call := events[0].ToolCall
	if call.Name != "fetch_weather_data" || call.Arguments != `{"location":"Paris"}` || !strings.HasPrefix(call.ID, "call_") {
		t.Errorf("tool call = %+v", call)
	}
	if events[1].FinishReason != "tool_calls" {
		t.Errorf("finish reason = %q", events[1].FinishReason)
	}
	if tools, _ := body["tools"].([]any); len(tools) != 1 {
		t.Errorf("tools sent = %v", body["tools"])
	}
}

func TestOllamaStreamBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"model \"nope\" not found"}`)
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(srv.URL, "nope", srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	stream, err := p.Stream(context.Background(), model.ChatRequest{})
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()

	for stream.Next() {
	}
	if stream.Err() == nil {
		t.Fatal("expected stream error")
	}
}
