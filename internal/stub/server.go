// Package stub implements a stand-in MCP provider speaking the uniform
// health / methods / call protocol. It backs local development and the
// engine's end-to-end tests.
package stub

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/rs/zerolog/log"
)

// Method is one callable stub method.
type Method func(params map[string]any) (any, error)

// Server is a stub provider with a fixed method table.
type Server struct {
	name    string
	order   []string
	methods map[string]Method
}

// New creates a stub provider with the builtin method set.
func New(name string) *Server {
	s := &Server{
		name:    name,
		methods: make(map[string]Method),
	}
	s.register("search", s.search)
	s.register("search_repositories", s.searchRepositories)
	s.register("list_files", s.listFiles)
	s.register("echo", s.echo)
	return s
}

func (s *Server) register(name string, m Method) {
	s.order = append(s.order, name)
	s.methods[name] = m
}

type callRequest struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

type callError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Handler returns the provider protocol routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, map[string]string{"status": "ok"})
	})

	r.Get("/methods", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, s.order)
	})

	r.Post("/call", func(w http.ResponseWriter, req *http.Request) {
		var call callRequest
		body, err := io.ReadAll(req.Body)
		if err == nil {
			err = json.Unmarshal(body, &call)
		}
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, req, map[string]any{
				"error": callError{Kind: "malformed_request", Message: err.Error()},
			})
			return
		}

		method, ok := s.methods[call.Method]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, req, map[string]any{
				"error": callError{Kind: "unknown_method", Message: fmt.Sprintf("no method %q", call.Method)},
			})
			return
		}

		result, err := method(call.Params)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, req, map[string]any{
				"error": callError{Kind: "internal", Message: err.Error()},
			})
			return
		}
		log.Debug().Str("stub", s.name).Str("method", call.Method).Msg("call served")
		render.JSON(w, req, map[string]any{"result": result})
	})

	return r
}

func (s *Server) search(params map[string]any) (any, error) {
	query, _ := params["query"].(string)
	if query == "" {
		return nil, errors.New("empty query")
	}
	return []map[string]any{
		{"title": "Result for " + query, "url": "https://example.com/1"},
		{"title": "More on " + query, "url": "https://example.com/2"},
	}, nil
}

func (s *Server) searchRepositories(params map[string]any) (any, error) {
	query, _ := params["query"].(string)
	return []map[string]any{
		{"full_name": "example/" + s.name, "description": "matches " + query, "stars": 42},
	}, nil
}

func (s *Server) listFiles(params map[string]any) (any, error) {
	path, _ := params["path"].(string)
	if path == "" {
		path = "."
	}
	return []map[string]any{
		{"name": "README.md", "path": path, "size": 1024},
		{"name": "main.go", "path": path, "size": 2048},
	}, nil
}

func (s *Server) echo(params map[string]any) (any, error) {
	return params, nil
}
