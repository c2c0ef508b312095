package model

import "context"

// Provider is implemented by every backend adapter. It lives here rather
// than in package provider so the gateway and tests can depend on it
// without importing the SDKs.
type Provider interface {
	// Stream starts a generation. Errors returned here mean nothing was
	// produced; errors after that surface through EventStream.Err.
	Stream(ctx context.Context, req ChatRequest) (EventStream, error)

	// Name returns the provider id ("openai", "deepseek", ...).
	Name() string

	GetModel() string
	SetModel(model string)

	Ping(ctx context.Context) error
}
