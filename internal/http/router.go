package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router thin wrapper over http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterAllocationRoutes mounts the allocation API under /api/v1.
func (r *Router) RegisterAllocationRoutes(h *AllocationHandler) {
	r.Handle("/api/v1/allocations", h.ServeHTTP)
	r.Handle("/api/v1/allocations/", h.ServeHTTP)
	r.Handle("/api/v1/sync", h.ServeHTTP)
	r.Handle("/api/v1/stats", h.ServeHTTP)
	r.Handle("/api/v1/teachers/", h.ServeHTTP)
	r.Handle("/api/v1/students/", h.ServeHTTP)
}

// RegisterHealthRoutes liveness check
func (r *Router) RegisterHealthRoutes() {
	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})
}
