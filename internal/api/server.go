// Package api exposes the orchestrator over HTTP: goal management, blocking
// execution, task lookup and the status snapshot.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/justinas/alice"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"mcp-agent/internal/orchestrator"
	"mcp-agent/pkg/logger"
)

type goalRequest struct {
	Description string `json:"description"`
}

type executeRequest struct {
	Instruction string `json:"instruction"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type goalsResponse struct {
	Goals int `json:"goals"`
}

// Server serves the engine's HTTP surface.
type Server struct {
	engine *orchestrator.Orchestrator
	server *http.Server
}

// New builds a Server around the orchestrator, listening on addr.
func New(engine *orchestrator.Orchestrator, addr string) *Server {
	s := &Server{engine: engine}

	r := chi.NewRouter()
	r.Use(logMiddleware())

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, s.engine.ProviderHealth(req.Context()))
	})

	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, s.engine.Status())
	})

	r.Post("/goals", func(w http.ResponseWriter, req *http.Request) {
		body := goalRequest{}
		if err := unmarshalRequestBody(req, &body); err != nil || body.Description == "" {
			w.WriteHeader(http.StatusBadRequest)
			log.Debug().Msg("cannot parse goal body")
			render.JSON(w, req, errorResponse{Error: "unable to parse body"})
			return
		}
		s.engine.AddGoal(body.Description)
		w.WriteHeader(http.StatusAccepted)
		render.JSON(w, req, goalsResponse{Goals: len(s.engine.Goals())})
	})

	r.Get("/goals", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, s.engine.Goals())
	})

	r.Post("/execute", func(w http.ResponseWriter, req *http.Request) {
		body := executeRequest{}
		if err := unmarshalRequestBody(req, &body); err != nil || body.Instruction == "" {
			w.WriteHeader(http.StatusBadRequest)
			log.Debug().Msg("cannot parse execute body")
			render.JSON(w, req, errorResponse{Error: "unable to parse body"})
			return
		}

		task := s.engine.Execute(req.Context(), body.Instruction) // blocking
		log.Debug().Int64(logger.TaskIDField, task.ID).Msg("task settled")
		render.JSON(w, req, task)
	})

	r.Get("/tasks/{id}", func(w http.ResponseWriter, req *http.Request) {
		idParam := chi.URLParam(req, "id")
		id, err := strconv.ParseInt(idParam, 10, 64)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			log.Debug().Msg("cannot parse id")
			render.JSON(w, req, errorResponse{Error: "unable to parse id"})
			return
		}
		task, ok := s.engine.Task(id)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, req, errorResponse{Error: "unknown task"})
			return
		}
		render.JSON(w, req, task)
	})

	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

// Handler exposes the route tree, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	err := s.server.ListenAndServe()
	if err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	return nil
}

func logMiddleware() func(http.Handler) http.Handler {
	c := alice.New()
	c = c.Append(hlog.NewHandler(log.Logger))
	c = c.Append(hlog.RemoteAddrHandler("ip"))
	c = c.Append(hlog.UserAgentHandler("agent"))
	c = c.Append(hlog.RequestIDHandler("req_id", "Request-Id"))
	c = c.Append(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("verb", r.Method).
			Stringer("url", r.URL).
			Int("size", size).
			Int("status", status).
			Int64("duration", duration.Milliseconds()).
			Msg("REQ")
	}))

	return c.Then
}

func unmarshalRequestBody(req *http.Request, output interface{}) error {
	if req.Body == nil {
		return errors.New("invalid body in request")
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return err
	}
	if err = req.Body.Close(); err != nil {
		return err
	}
	if err = json.Unmarshal(body, &output); err != nil {
		return err
	}

	return nil
}
