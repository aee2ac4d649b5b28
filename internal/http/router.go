package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Router keeps routing on the standard library ServeMux.
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

// HandleHandler supports http.Handler directly (used for /metrics).
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterAnalysisRoutes coordinator CRUD + activation.
func (r *Router) RegisterAnalysisRoutes(h *AnalysisHandler) {
	r.Handle("/api/v1/analyses", func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			h.List(w, req)
		case http.MethodPost:
			h.Create(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	// /api/v1/analyses/{id} and /api/v1/analyses/{id}/activate
	r.Handle("/api/v1/analyses/", func(w http.ResponseWriter, req *http.Request) {
		rest := strings.TrimPrefix(req.URL.Path, "/api/v1/analyses/")
		if rest == "" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		if id, ok := strings.CutSuffix(rest, "/activate"); ok {
			if req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h.Activate(w, req, id)
			return
		}
		if strings.Contains(rest, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		switch req.Method {
		case http.MethodGet:
			h.GetByID(w, req, rest)
		case http.MethodDelete:
			h.Delete(w, req, rest)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

// RegisterTestingRoutes panelist workflow.
func (r *Router) RegisterTestingRoutes(h *TestingHandler) {
	post := func(fn http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			if req.Method != http.MethodPost {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			fn(w, req)
		}
	}

	r.Handle("/api/v1/testing/start", post(h.Start))
	r.Handle("/api/v1/testing/arrive", post(h.Arrive))
	r.Handle("/api/v1/testing/complete", post(h.Complete))
	r.Handle("/api/v1/ratings", func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodPost {
			h.SubmitRating(w, req)
			return
		}
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

// RegisterRatingsRoutes coordinator read access + export.
func (r *Router) RegisterRatingsRoutes(h *RatingsHandler) {
	r.Handle("/api/v1/ratings/list", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.List(w, req)
	})
	r.Handle("/api/v1/ratings/export", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Export(w, req)
	})
}

// RegisterControllerRoutes rig status and the manual standby escape hatch.
func (r *Router) RegisterControllerRoutes(h *ControllerHandler) {
	r.Handle("/api/v1/controller/status", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Status(w, req)
	})
	r.Handle("/api/v1/controller/error", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.LastError(w, req)
	})
	r.Handle("/api/v1/controller/standby", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Standby(w, req)
	})
	r.Handle("/api/v1/controller/pressurize", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.Pressurize(w, req)
	})
	r.Handle("/api/v1/controller/open", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.OpenRoom(w, req)
	})

	// /api/v1/controller/select/{n} and /api/v1/controller/select/clear
	r.Handle("/api/v1/controller/select/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		rest := strings.TrimPrefix(req.URL.Path, "/api/v1/controller/select/")
		if rest == "clear" {
			h.ClearSelection(w, req)
			return
		}
		room, err := strconv.Atoi(rest)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Fail("room number must be an integer or 'clear'"))
			return
		}
		h.SelectRoom(w, req, room)
	})
}

// RegisterReferenceRoutes read-only project/sample/panelist lookups.
func (r *Router) RegisterReferenceRoutes(h *ReferenceHandler) {
	r.Handle("/api/v1/projects", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ListProjects(w, req)
	})
	r.Handle("/api/v1/projects/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		code, ok := strings.CutSuffix(strings.TrimPrefix(req.URL.Path, "/api/v1/projects/"), "/samples")
		if !ok || code == "" || strings.Contains(code, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.ListSamples(w, req, code)
	})
	r.Handle("/api/v1/panelists", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ListPanelists(w, req)
	})
}

// RegisterHealthRoute liveness probe.
func (r *Router) RegisterHealthRoute() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})
}
