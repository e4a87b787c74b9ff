// Package api serves provenance and market lookups and value edits over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/provenance-cli/internal/auction"
	"github.com/sells-group/provenance-cli/internal/model"
	"github.com/sells-group/provenance-cli/internal/provenance"
	"github.com/sells-group/provenance-cli/internal/valuation"
)

// Actor headers. Authentication happens upstream; these carry the result.
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorName = "X-Actor-Name"
)

// Options configures the router.
type Options struct {
	CORSOrigins    []string
	EditPerMinute  int
	EditBurst      int
	RequestTimeout time.Duration
	// Ready reports whether the backing store is reachable.
	Ready func(r *http.Request) error
}

// Server exposes a valuation.Service.
type Server struct {
	svc     *valuation.Service
	opts    Options
	limiter *ActorLimiter
}

// New creates a Server.
func New(svc *valuation.Service, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	return &Server{
		svc:     svc,
		opts:    opts,
		limiter: NewActorLimiter(opts.EditPerMinute, opts.EditBurst),
	}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	if len(s.opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPut, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", HeaderActorID, HeaderActorName},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.health)
	r.Get("/ready", s.ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/vehicles/{id}/fields/{field}", func(r chi.Router) {
		r.Use(middleware.Timeout(s.opts.RequestTimeout))
		r.Get("/", s.getProvenance)
		r.Put("/", s.editValue)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready != nil {
		if err := s.opts.Ready(r); err != nil {
			zap.L().Warn("api: not ready", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// getProvenance answers GET /v1/vehicles/{id}/fields/{field}.
//
// Query parameters: value (the displayed value), url (repeatable, listing
// URLs most recent first), platform (stored platform code) and the live
// counts bids, views and watchers of a running auction page.
func (s *Server) getProvenance(w http.ResponseWriter, r *http.Request) {
	field, ok := parseField(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	req := valuation.Request{
		EntityID: chi.URLParam(r, "id"),
		Field:    field,
		Context: provenance.ResolveContext{
			Actor: actorFrom(r),
			Hint: auction.Hint{
				URLs:         q["url"],
				PlatformCode: q.Get("platform"),
				Live:         liveFrom(q.Get("bids"), q.Get("views"), q.Get("watchers")),
			},
		},
	}
	if raw := q.Get("value"); raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "value must be a decimal")
			return
		}
		req.CurrentValue = decimal.NewNullDecimal(v)
	}

	resp, err := s.svc.GetProvenanceAndMarket(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Sections carry their own status; the envelope is always 200 unless the
	// vehicle itself is unknown.
	status := http.StatusOK
	if resp.Provenance.Status == valuation.StatusNotFound && resp.Market.Status == valuation.StatusNotFound {
		status = http.StatusNotFound
	}
	writeJSON(w, status, resp)
}

type editRequest struct {
	Value decimal.Decimal `json:"value"`
}

// editValue answers PUT /v1/vehicles/{id}/fields/{field}.
func (s *Server) editValue(w http.ResponseWriter, r *http.Request) {
	field, ok := parseField(w, r)
	if !ok {
		return
	}
	actor := actorFrom(r)
	if actor.ID == "" {
		writeError(w, http.StatusUnauthorized, HeaderActorID+" header is required")
		return
	}
	if !s.limiter.Allow(actor.ID) {
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, "edit rate limit exceeded")
		return
	}

	var body editRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !body.Value.IsPositive() {
		writeError(w, http.StatusBadRequest, "value must be positive")
		return
	}

	res, err := s.svc.EditValue(r.Context(), chi.URLParam(r, "id"), field, body.Value, actor)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, model.ErrPermissionDenied):
		// The unchanged provenance tells the caller who may edit.
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "permission denied", "provenance": res.Provenance})
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "vehicle not found")
	case errors.Is(err, model.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
	default:
		zap.L().Error("api: edit failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "edit failed")
	}
}

func parseField(w http.ResponseWriter, r *http.Request) (model.FieldName, bool) {
	field, err := model.ParseField(chi.URLParam(r, "field"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return field, true
}

func actorFrom(r *http.Request) model.Actor {
	return model.Actor{
		ID:   strings.TrimSpace(r.Header.Get(HeaderActorID)),
		Name: strings.TrimSpace(r.Header.Get(HeaderActorName)),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
