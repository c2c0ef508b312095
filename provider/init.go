package provider

import (
	"net/http"

	"chatgate/config"
	"chatgate/model"
)

// Resolver builds providers for "provider/model" strings using the
// configured base URLs and credentials.
type Resolver struct {
	cfg        *config.Config
	httpClient *http.Client
}

func NewResolver(cfg *config.Config, httpClient *http.Client) *Resolver {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Resolver{cfg: cfg, httpClient: httpClient}
}

// Resolve returns a fresh provider for spec. A missing credential is not an
// error here; the backend call fails instead.
func (r *Resolver) Resolve(spec string) (model.Provider, ModelRef, error) {
	ref := ResolveModel(spec)
	id := string(ref.Provider)
	pc := r.cfg.Provider(id)

	p, err := NewProvider(Config{
		Type:    ref.Provider,
		BaseURL: pc.BaseURL,
		Model:   ref.Model,
		APIKey:  r.cfg.APIKey(id),
	}, r.httpClient)
	if err != nil {
		return nil, ref, err
	}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[Provider] resolved %q to %s (base %s)", spec, ref, pc.BaseURL)
	}
	return p, ref, nil
}
