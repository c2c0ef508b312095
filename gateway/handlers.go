package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chatgate/config"
	"chatgate/model"
	"chatgate/provider"
	"chatgate/storage"
	"chatgate/tasks"
)

const searchSystemPrompt = "You are a helpful assistant with search capabilities. " +
	"Keep your responses short (< 100 words) unless you are asked for more details. " +
	"Provide sources and citations when possible."

// route describes one UI-stream endpoint.
type route struct {
	path   model.Route
	system string

	withTools     bool
	sendReasoning bool
	sendSources   bool
	search        bool

	// model is the configured "provider/model"; modelFromBody lets the
	// request override it.
	model         string
	modelFromBody bool
}

func chatRoutes(cfg *config.Config) []route {
	return []route{
		{
			path:      model.RouteChat,
			withTools: true,
			model:     cfg.Routes.ChatModel,
		},
		{
			path:          model.RouteReasoning,
			sendReasoning: true,
			model:         cfg.Routes.DefaultReasoningModel,
			modelFromBody: true,
		},
		{
			path:        model.RouteSearch,
			system:      searchSystemPrompt,
			sendSources: true,
			model:       cfg.Routes.SearchModel,
		},
		{
			path:        model.RouteSearchPerplexity,
			system:      searchSystemPrompt,
			sendSources: true,
			search:      true,
			model:       cfg.Routes.SearchPerplexityModel,
		},
	}
}

var routeErrors = map[string]string{
	string(model.RouteChat):             "Failed to process chat request",
	string(model.RouteReasoning):        "Failed to process reasoning request",
	string(model.RouteSearch):           "Failed to process search request",
	string(model.RouteSearchPerplexity): "Failed to process search request",
	string(model.RouteTasks):            "Failed to process tasks request",
}

func errorMessageFor(path string) string {
	if msg, ok := routeErrors[path]; ok {
		return msg
	}
	return "Internal Server Error"
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("request body is empty")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode request body: %w", err)
	}
	return nil
}

// fail reports a failure that happened before the response started.
func (s *Server) fail(w http.ResponseWriter, path model.Route, err error) {
	if config.DebugLog != nil {
		config.DebugLog.Printf("[Gateway] %s: %v", path, err)
	}
	writeError(w, http.StatusInternalServerError, errorMessageFor(string(path)))
}

func (s *Server) handleUIStream(rt route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()

		var body model.ChatRouteRequest
		if err := decodeBody(r, &body); err != nil {
			s.fail(w, rt.path, err)
			return
		}
		if body.Messages == nil {
			s.fail(w, rt.path, errors.New("messages is required"))
			return
		}

		spec := rt.model
		if rt.modelFromBody && strings.TrimSpace(body.Model) != "" {
			spec = provider.ReasoningModel(body.Model)
		}
		p, ref, err := s.resolver.Resolve(spec)
		if err != nil {
			s.fail(w, rt.path, err)
			s.record(rt.path, ref, started, Result{Status: storage.StatusError})
			return
		}

		registry := s.tools
		if !rt.withTools {
			registry = nil
		}
		runner := NewRunner(p, registry, Options{
			SendReasoning: rt.sendReasoning,
			SendSources:   rt.sendSources,
			MaxSteps:      s.cfg.Server.MaxSteps,
		})

		req := model.ChatRequest{
			System:    rt.system,
			Reasoning: rt.sendReasoning,
			Search:    rt.search,
		}
		if err := runner.Open(r.Context(), req, body.Messages); err != nil {
			s.fail(w, rt.path, err)
			s.record(rt.path, ref, started, Result{Status: storage.StatusError})
			return
		}

		out := NewEventWriter(w)
		res := runner.Stream(r.Context(), out)
		if err := out.Done(); err != nil && res.Status == storage.StatusOK {
			res.Status = storage.StatusAborted
		}
		s.record(rt.path, ref, started, res)
	}
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var body model.TasksRequest
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, model.RouteTasks, err)
		return
	}
	if strings.TrimSpace(body.Prompt) == "" {
		s.fail(w, model.RouteTasks, errors.New("prompt is required"))
		return
	}

	p, ref, err := s.resolver.Resolve(s.cfg.Routes.TasksModel)
	if err != nil {
		s.fail(w, model.RouteTasks, err)
		s.record(model.RouteTasks, ref, started, Result{Status: storage.StatusError})
		return
	}

	stream, err := tasks.NewGenerator(p).Open(r.Context(), body.Prompt)
	if err != nil {
		s.fail(w, model.RouteTasks, err)
		s.record(model.RouteTasks, ref, started, Result{Status: storage.StatusError})
		return
	}
	defer stream.Close()

	s.streamTasks(w, r, stream, ref, started)
}

func (s *Server) streamTasks(w http.ResponseWriter, r *http.Request, stream *tasks.Stream, ref provider.ModelRef, started time.Time) {
	h := w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	_ = rc.Flush()

	res := Result{Status: storage.StatusOK, Steps: 1}
	for stream.Next() {
		if _, err := io.WriteString(w, stream.Delta()); err != nil {
			res.Status = storage.StatusAborted
			res.Err = err
			break
		}
		_ = rc.Flush()
	}

	if res.Err == nil {
		if err := stream.Err(); err != nil {
			res.Err = err
			res.Status = storage.StatusError
			if r.Context().Err() != nil {
				res.Status = storage.StatusAborted
			}
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Gateway] %s stream ended early: %v", model.RouteTasks, err)
			}
		}
	}
	res.Usage = stream.Usage()
	s.record(model.RouteTasks, ref, started, res)
}
