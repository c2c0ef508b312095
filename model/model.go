package model

import (
	"chatgate/config"
)

// Model holds the client application state that is not tied to rendering.
type Model struct {
	Config       *config.Config
	Conversation *Conversation

	Route          Route
	ReasoningModel string

	// TasksPrompt and TasksText hold the last task generation request and its raw output.
	TasksPrompt string
	TasksText   string

	Streaming bool
	Quitting  bool

	Version string
}

func NewModel(cfg *config.Config, version string) *Model {
	reasoning := ""
	if cfg != nil {
		reasoning = cfg.Routes.DefaultReasoningModel
	}
	return &Model{
		Config:         cfg,
		Conversation:   &Conversation{},
		Route:          RouteChat,
		ReasoningModel: reasoning,
		Version:        version,
	}
}

// Request builds the JSON body for a chat route from the current state.
func (m *Model) Request() ChatRouteRequest {
	req := ChatRouteRequest{Messages: m.Conversation.Messages}
	if m.Route == RouteReasoning {
		req.Model = m.ReasoningModel
	}
	return req
}

// ChatRouteRequest is the body accepted by the UI-stream routes.
type ChatRouteRequest struct {
	Model    string    `json:"model,omitempty"`
	Messages []Message `json:"messages"`
}

// TasksRequest is the body accepted by the tasks route.
type TasksRequest struct {
	Prompt string `json:"prompt"`
}
