package testutil

import (
	"chatgate/model"
)

// TestMessages returns a short user/assistant/user exchange.
func TestMessages() []model.Message {
	return []model.Message{
		model.NewUserMessage("Hello, how are you?"),
		{
			ID:    "assistant-1",
			Role:  model.RoleAssistant,
			Parts: []model.Part{{Type: "text", Text: "I'm doing well, thank you!"}},
		},
		model.NewUserMessage("What's the weather in Paris?"),
	}
}

// TextEvents builds a stream that emits each chunk as a text delta and finishes.
func TextEvents(chunks ...string) []model.StreamEvent {
	events := make([]model.StreamEvent, 0, len(chunks)+1)
	for _, c := range chunks {
		events = append(events, model.StreamEvent{Kind: model.StreamTextDelta, Text: c})
	}
	return append(events, Finish("stop"))
}

func Reasoning(text string) model.StreamEvent {
	return model.StreamEvent{Kind: model.StreamReasoningDelta, Text: text}
}

func Text(text string) model.StreamEvent {
	return model.StreamEvent{Kind: model.StreamTextDelta, Text: text}
}

func Source(id, url, title string) model.StreamEvent {
	return model.StreamEvent{Kind: model.StreamSource, Source: model.Source{ID: id, URL: url, Title: title}}
}

func ToolCall(id, name, args string) model.StreamEvent {
	return model.StreamEvent{Kind: model.StreamToolCall, ToolCall: model.ToolCall{ID: id, Name: name, Arguments: args}}
}

func Finish(reason string) model.StreamEvent {
	return model.StreamEvent{
		Kind:         model.StreamFinish,
		FinishReason: reason,
		Usage:        model.Usage{PromptTokens: 10, CompletionTokens: 5},
	}
}

// WeatherCallEvents is a step that asks for the weather tool and stops.
func WeatherCallEvents(callID, location string) []model.StreamEvent {
	return []model.StreamEvent{
		ToolCall(callID, "fetch_weather_data", `{"location":"`+location+`"}`),
		Finish("tool_calls"),
	}
}
