// Package apiserver serves the mock cluster API over HTTP with
// Kubernetes-shaped routes, so dashboards and curl can drive the same store
// the in-process facade exposes.
package apiserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentkube/mockcluster/internal/api"
	"github.com/agentkube/mockcluster/internal/mockapi"
	"github.com/agentkube/mockcluster/internal/storage"
)

type Server struct {
	API    *mockapi.Client
	Router *chi.Mux
}

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "path"},
	)
)

func NewServer(apiClient *mockapi.Client) *Server {
	s := &Server{
		API:    apiClient,
		Router: chi.NewRouter(),
	}
	s.routes()
	return s
}

const groupPrefix = "/apis/agents.example.dev/v1alpha1"

func (s *Server) routes() {
	s.Router.Use(middleware.Logger)
	s.Router.Use(middleware.Recoverer)
	s.Router.Use(render.SetContentType(render.ContentTypeJSON))
	s.Router.Use(s.prometheusMiddleware)

	s.Router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("mockcluster API server"))
	})

	s.Router.Handle("/metrics", promhttp.Handler())

	s.Router.Post("/-/connect", s.handleConnect)
	s.Router.Post("/-/disconnect", s.handleDisconnect)

	c := s.API

	registerResourceRoutes(s, groupPrefix, "modelapis", resourceOps[*api.ModelAPI]{
		newObject: func() *api.ModelAPI { return &api.ModelAPI{} },
		list:      func(ctx context.Context, ns string) (any, error) { return c.ListModelAPIs(ctx, ns) },
		get:       c.GetModelAPI,
		create:    c.CreateModelAPI,
		update:    c.UpdateModelAPI,
		del:       c.DeleteModelAPI,
		watch:     c.WatchModelAPIs,
	})

	registerResourceRoutes(s, groupPrefix, "mcpservers", resourceOps[*api.MCPServer]{
		newObject: func() *api.MCPServer { return &api.MCPServer{} },
		list:      func(ctx context.Context, ns string) (any, error) { return c.ListMCPServers(ctx, ns) },
		get:       c.GetMCPServer,
		create:    c.CreateMCPServer,
		update:    c.UpdateMCPServer,
		del:       c.DeleteMCPServer,
		watch:     c.WatchMCPServers,
	})

	registerResourceRoutes(s, groupPrefix, "agents", resourceOps[*api.Agent]{
		newObject: func() *api.Agent { return &api.Agent{} },
		list:      func(ctx context.Context, ns string) (any, error) { return c.ListAgents(ctx, ns) },
		get:       c.GetAgent,
		create:    c.CreateAgent,
		update:    c.UpdateAgent,
		del:       c.DeleteAgent,
		watch:     c.WatchAgents,
	})

	// Standard kinds are read-only in the mock.
	registerResourceRoutes(s, "/api/v1", "pods", resourceOps[*api.Pod]{
		newObject: func() *api.Pod { return &api.Pod{} },
		list:      func(ctx context.Context, ns string) (any, error) { return c.ListPods(ctx, ns) },
		get:       c.GetPod,
	})

	registerResourceRoutes(s, "/apis/apps/v1", "deployments", resourceOps[*api.Deployment]{
		newObject: func() *api.Deployment { return &api.Deployment{} },
		list:      func(ctx context.Context, ns string) (any, error) { return c.ListDeployments(ctx, ns) },
		get:       c.GetDeployment,
	})

	registerResourceRoutes(s, "/api/v1", "persistentvolumeclaims", resourceOps[*api.PersistentVolumeClaim]{
		newObject: func() *api.PersistentVolumeClaim { return &api.PersistentVolumeClaim{} },
		list:      func(ctx context.Context, ns string) (any, error) { return c.ListPersistentVolumeClaims(ctx, ns) },
		get:       c.GetPersistentVolumeClaim,
	})

	s.Router.Get("/api/v1/namespaces/{namespace}/pods/{name}/log", s.handlePodLogs)
}

// resourceOps bundles the facade calls for one kind. Nil create/update/del
// means the kind is read-only; nil watch disables ?watch=true.
type resourceOps[T api.Object] struct {
	newObject func() T
	list      func(ctx context.Context, namespace string) (any, error)
	get       func(ctx context.Context, name, namespace string) (T, error)
	create    func(ctx context.Context, obj T) (T, error)
	update    func(ctx context.Context, obj T) (T, error)
	del       func(ctx context.Context, name, namespace string) error
	watch     func(namespace string, fn storage.EventHandler[T]) (func(), error)
}

func registerResourceRoutes[T api.Object](s *Server, prefix, resource string, ops resourceOps[T]) {
	s.Router.Route(path.Join(prefix, resource), func(r chi.Router) {
		r.Get("/", handleList(ops))
		if ops.create != nil {
			r.Post("/", handleCreate(ops))
		}
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", handleGet(ops))
			if ops.update != nil {
				r.Put("/", handleUpdate(ops))
			}
			if ops.del != nil {
				r.Delete("/", handleDelete(ops))
			}
		})
	})
}

func handleList[T api.Object](ops resourceOps[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		namespace := r.URL.Query().Get("namespace")

		if r.URL.Query().Get("watch") == "true" && ops.watch != nil {
			handleWatch(ops, namespace, w, r)
			return
		}

		list, err := ops.list(r.Context(), namespace)
		if err != nil {
			renderError(w, r, err)
			return
		}
		render.JSON(w, r, list)
	}
}

func handleWatch[T api.Object](ops resourceOps[T], namespace string, w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		renderError(w, r, api.NewInternalError("streaming unsupported by connection"))
		return
	}

	events := make(chan storage.Event[T], 64)
	cancel, err := ops.watch(namespace, func(e storage.Event[T]) {
		select {
		case events <- e:
		default:
			// Slow HTTP consumer; drop for this stream only.
		}
	})
	if err != nil {
		renderError(w, r, err)
		return
	}
	defer cancel()

	// Set headers for streaming
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Transfer-Encoding", "chunked")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	encoder := json.NewEncoder(w)
	for {
		select {
		case <-r.Context().Done():
			return
		case event := <-events:
			if err := encoder.Encode(event); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func handleCreate[T api.Object](ops resourceOps[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		obj := ops.newObject()
		if err := json.NewDecoder(r.Body).Decode(obj); err != nil {
			render.Render(w, r, errInvalidRequest(err))
			return
		}
		if obj.GetObjectMeta().Name == "" {
			render.Render(w, r, errInvalidRequest(fmt.Errorf("metadata.name is required")))
			return
		}

		stored, err := ops.create(r.Context(), obj)
		if err != nil {
			renderError(w, r, err)
			return
		}
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, stored)
	}
}

func handleGet[T api.Object](ops resourceOps[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		namespace := r.URL.Query().Get("namespace")

		obj, err := ops.get(r.Context(), name, namespace)
		if err != nil {
			renderError(w, r, err)
			return
		}
		render.JSON(w, r, obj)
	}
}

func handleUpdate[T api.Object](ops resourceOps[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		obj := ops.newObject()
		if err := json.NewDecoder(r.Body).Decode(obj); err != nil {
			render.Render(w, r, errInvalidRequest(err))
			return
		}
		if obj.GetObjectMeta().Name == "" {
			obj.GetObjectMeta().Name = chi.URLParam(r, "name")
		}
		if obj.GetObjectMeta().Namespace == "" {
			obj.GetObjectMeta().Namespace = r.URL.Query().Get("namespace")
		}

		stored, err := ops.update(r.Context(), obj)
		if err != nil {
			renderError(w, r, err)
			return
		}
		render.JSON(w, r, stored)
	}
}

func handleDelete[T api.Object](ops resourceOps[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		namespace := r.URL.Query().Get("namespace")

		if err := ops.del(r.Context(), name, namespace); err != nil {
			renderError(w, r, err)
			return
		}
		render.JSON(w, r, map[string]string{"status": "deleted"})
	}
}

func (s *Server) handlePodLogs(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	namespace := chi.URLParam(r, "namespace")

	tailLines := 0
	if raw := r.URL.Query().Get("tailLines"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			render.Render(w, r, errInvalidRequest(fmt.Errorf("tailLines must be an integer")))
			return
		}
		tailLines = n
	}

	logs, err := s.API.GetPodLogs(r.Context(), name, namespace, tailLines)
	if err != nil {
		renderError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(logs))
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if err := s.API.Connect(r.Context()); err != nil {
		renderError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"state": string(s.API.State())})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	s.API.Disconnect()
	render.JSON(w, r, map[string]string{"state": string(s.API.State())})
}

// Errors

type errResponse struct {
	*api.Status
	HTTPStatusCode int `json:"-"`
}

func (e *errResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

// renderError maps a Status straight onto the response; the code already
// follows HTTP semantics.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	var status *api.Status
	if errors.As(err, &status) {
		render.Render(w, r, &errResponse{Status: status, HTTPStatusCode: status.Code})
		return
	}
	render.Render(w, r, &errResponse{
		Status:         api.NewInternalError(err.Error()),
		HTTPStatusCode: http.StatusInternalServerError,
	})
}

func errInvalidRequest(err error) render.Renderer {
	return &errResponse{
		Status: &api.Status{
			Code:    http.StatusBadRequest,
			Reason:  "BadRequest",
			Message: err.Error(),
		},
		HTTPStatusCode: http.StatusBadRequest,
	}
}

func (s *Server) prometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start).Seconds()
		status := fmt.Sprintf("%d", ww.Status())
		path := r.URL.Path // Simplified path cardinality for now

		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}
