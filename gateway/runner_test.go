package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatgate/model"
	"chatgate/provider/testutil"
	"chatgate/storage"
)

// recorder collects events and starts failing after limit events when
// limit is positive.
type recorder struct {
	events []model.UIEvent
	limit  int
}

func (r *recorder) Emit(ev model.UIEvent) error {
	if r.limit > 0 && len(r.events) >= r.limit {
		return errors.New("client went away")
	}
	r.events = append(r.events, ev)
	return nil
}

func TestRunnerStopsWhenClientGoesAway(t *testing.T) {
	p := testutil.NewScriptedProvider("m", testutil.TextEvents("a", "b", "c", "d"))
	r := NewRunner(p, nil, Options{MaxSteps: 3})
	require.NoError(t, r.Open(context.Background(), model.ChatRequest{}, []model.Message{model.NewUserMessage("hi")}))

	out := &recorder{limit: 4}
	res := r.Stream(context.Background(), out)

	assert.Equal(t, storage.StatusAborted, res.Status)
	assert.Error(t, res.Err)
	assert.Len(t, out.events, 4)
}

func TestRunnerWithoutToolsReportsUnknownTool(t *testing.T) {
	p := testutil.NewScriptedProvider("m",
		testutil.WeatherCallEvents("call_9", "Lima"),
		testutil.TextEvents("no tools here"),
	)
	r := NewRunner(p, nil, Options{MaxSteps: 2})
	require.NoError(t, r.Open(context.Background(), model.ChatRequest{}, []model.Message{model.NewUserMessage("hi")}))

	out := &recorder{}
	res := r.Stream(context.Background(), out)

	assert.Equal(t, storage.StatusOK, res.Status)
	assert.Equal(t, 2, res.Steps)
	failed, ok := find(out.events, model.EventToolOutputError)
	require.True(t, ok)
	assert.Equal(t, "unknown tool: fetch_weather_data", failed.ErrorText)
}

func TestRunnerSingleStepByDefault(t *testing.T) {
	p := testutil.NewScriptedProvider("m", testutil.WeatherCallEvents("call_1", "Lima"))
	r := NewRunner(p, weatherRegistry(t, false), Options{})
	require.NoError(t, r.Open(context.Background(), model.ChatRequest{}, []model.Message{model.NewUserMessage("hi")}))

	out := &recorder{}
	res := r.Stream(context.Background(), out)

	assert.Equal(t, 1, res.Steps)
	assert.Len(t, p.Requests(), 1)
	assert.Equal(t, "tool_calls", res.FinishReason)
	assert.Equal(t, model.EventFinish, out.events[len(out.events)-1].Type)
}

func TestRunnerIgnoresStaleApprovals(t *testing.T) {
	approved := true
	history := []model.Message{
		model.NewUserMessage("first"),
		{
			ID:   "old",
			Role: model.RoleAssistant,
			Parts: []model.Part{{
				Type:       "tool-fetch_weather_data",
				ToolCallID: "call_old",
				State:      model.ToolApprovalResponded,
				Input:      json.RawMessage(`{"location":"Oslo"}`),
				Approval:   &model.Approval{ID: "ap_old", Approved: &approved},
			}},
		},
		model.NewUserMessage("second"),
		{ID: "new", Role: model.RoleAssistant, Parts: []model.Part{{Type: "text", Text: "hello"}}},
		model.NewUserMessage("third"),
	}

	p := testutil.NewScriptedProvider("m", testutil.TextEvents("ok"))
	r := NewRunner(p, weatherRegistry(t, true), Options{MaxSteps: 2})
	require.NoError(t, r.Open(context.Background(), model.ChatRequest{}, history))

	out := &recorder{}
	r.Stream(context.Background(), out)

	_, ran := find(out.events, model.EventToolOutputAvailable)
	assert.False(t, ran, "only the last assistant message is settled")
}

func TestRunnerSettlesOnlyApprovalTools(t *testing.T) {
	approved := true
	answered := func(approvalID string) []model.Message {
		return []model.Message{
			model.NewUserMessage("weather?"),
			{
				ID:   "a1",
				Role: model.RoleAssistant,
				Parts: []model.Part{{
					Type:       "tool-fetch_weather_data",
					ToolCallID: "call_1",
					State:      model.ToolApprovalResponded,
					Input:      json.RawMessage(`{"location":"Oslo"}`),
					Approval:   &model.Approval{ID: approvalID, Approved: &approved},
				}},
			},
		}
	}

	tests := []struct {
		name            string
		requireApproval bool
		approvalID      string
		wantRun         bool
	}{
		{"approval tool runs", true, "ap_1", true},
		{"tool without approval ignored", false, "ap_1", false},
		{"missing approval id ignored", true, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testutil.NewScriptedProvider("m", testutil.TextEvents("ok"))
			r := NewRunner(p, weatherRegistry(t, tt.requireApproval), Options{})
			require.NoError(t, r.Open(context.Background(), model.ChatRequest{}, answered(tt.approvalID)))

			out := &recorder{}
			r.Stream(context.Background(), out)

			_, ran := find(out.events, model.EventToolOutputAvailable)
			assert.Equal(t, tt.wantRun, ran)
		})
	}
}

func TestRunnerSourceIDsUniqueAcrossSteps(t *testing.T) {
	step1 := append([]model.StreamEvent{testutil.Source("src-1", "https://a.example", "A")},
		testutil.WeatherCallEvents("call_1", "Lima")...)
	step2 := []model.StreamEvent{
		testutil.Source("src-1", "https://b.example", "B"),
		testutil.Text("done"),
		testutil.Finish("stop"),
	}
	p := testutil.NewScriptedProvider("m", step1, step2)
	r := NewRunner(p, weatherRegistry(t, false), Options{MaxSteps: 2, SendSources: true})
	require.NoError(t, r.Open(context.Background(), model.ChatRequest{}, []model.Message{model.NewUserMessage("hi")}))

	out := &recorder{}
	r.Stream(context.Background(), out)

	var ids []string
	for _, ev := range out.events {
		if ev.Type == model.EventSourceURL {
			ids = append(ids, ev.SourceID)
		}
	}
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
}

func TestToolInput(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", `{}`},
		{"  ", `{}`},
		{`{"a":1}`, `{"a":1}`},
		{`{"a":`, `"{\"a\":"`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.JSONEq(t, tt.want, string(toolInput(tt.in)))
		})
	}
}
