package handlers

import (
	"net/http"
	"time"

	"taskManager/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type RouterOptions struct {
	// RequestTimeout bounds every request. Zero disables the timeout.
	RequestTimeout time.Duration
	// RateLimitRPM is the per-client budget per minute. Zero disables limiting.
	RateLimitRPM int
	// AllowedOrigins for CORS; empty means any origin.
	AllowedOrigins []string
	// TracerProvider records a server span per request. Nil means the global
	// provider, which is a no-op unless tracing is enabled.
	TracerProvider trace.TracerProvider
}

func NewRouter(h *TaskHandler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	traceOpts := []otelhttp.Option{
		otelhttp.WithPropagators(propagation.TraceContext{}),
	}
	if opts.TracerProvider != nil {
		traceOpts = append(traceOpts, otelhttp.WithTracerProvider(opts.TracerProvider))
	}
	r.Use(otelhttp.NewMiddleware("task-manager", traceOpts...))
	r.Use(middleware.TraceRoute)

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(chimw.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(chimw.Timeout(opts.RequestTimeout))
	}
	if opts.RateLimitRPM > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitRPM))
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		responseWithError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		responseWithError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	r.Get("/", h.Root)
	r.Get("/health", h.HealthCheck)

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.ListTasks) // GET /tasks
		r.Post("/", h.PostTask) // POST /tasks

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetTaskByID)       // GET /tasks/{id}
			r.Put("/", h.UpdateTaskByID)    // PUT /tasks/{id}
			r.Delete("/", h.DeleteTaskByID) // DELETE /tasks/{id}
		})
	})

	return r
}
