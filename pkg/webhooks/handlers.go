package webhooks

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/heraldhq/herald/pkg/httputil"
	"github.com/heraldhq/herald/pkg/observability"
)

// Handlers provides the webhook management HTTP API
type Handlers struct {
	registry *Registry
	manager  *Manager
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewHandlers creates webhook management handlers backed by the in-memory
// registry.
func NewHandlers(registry *Registry, manager *Manager, logger *observability.Logger, metrics *observability.Metrics) *Handlers {
	return &Handlers{
		registry: registry,
		manager:  manager,
		logger:   logger,
		metrics:  metrics,
	}
}

// RegisterRoutes registers webhook management routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/v1/guilds/{guildID}/webhooks", h.instrument("/v1/guilds/{guildID}/webhooks", h.createEndpoint)).Methods("POST")
	router.HandleFunc("/v1/guilds/{guildID}/webhooks", h.instrument("/v1/guilds/{guildID}/webhooks", h.listEndpoints)).Methods("GET")
	router.HandleFunc("/v1/guilds/{guildID}/webhooks/{id}", h.instrument("/v1/guilds/{guildID}/webhooks/{id}", h.getEndpoint)).Methods("GET")
	router.HandleFunc("/v1/guilds/{guildID}/webhooks/{id}", h.instrument("/v1/guilds/{guildID}/webhooks/{id}", h.updateEndpoint)).Methods("PUT")
	router.HandleFunc("/v1/guilds/{guildID}/webhooks/{id}", h.instrument("/v1/guilds/{guildID}/webhooks/{id}", h.deleteEndpoint)).Methods("DELETE")
	router.HandleFunc("/v1/guilds/{guildID}/webhooks/{id}/test", h.instrument("/v1/guilds/{guildID}/webhooks/{id}/test", h.testEndpoint)).Methods("POST")
	router.HandleFunc("/v1/guilds/{guildID}/webhooks/{id}/stats", h.instrument("/v1/guilds/{guildID}/webhooks/{id}/stats", h.endpointStats)).Methods("GET")
	router.HandleFunc("/v1/guilds/{guildID}/deliveries", h.instrument("/v1/guilds/{guildID}/deliveries", h.listDeliveries)).Methods("GET")
}

// instrument wraps a handler with request metrics and seeds the request
// context with the logger, a request ID, and the guild ID so handlers can
// log through observability.FromContext.
func (h *Handlers) instrument(path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ctx := observability.WithLogger(r.Context(), h.logger)
		ctx = observability.WithRequestID(ctx, uuid.NewString())
		if guildID := mux.Vars(r)["guildID"]; guildID != "" {
			ctx = observability.WithGuildID(ctx, guildID)
		}

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(recorder, r.WithContext(ctx))
		h.metrics.ObserveHTTPRequest(r.Method, path, recorder.status, time.Since(start))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *Handlers) createEndpoint(w http.ResponseWriter, r *http.Request) {
	guildID, ok := httputil.ParsePathStringOrError(w, r, "guildID")
	if !ok {
		return
	}

	var req CreateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	endpoint, err := h.registry.Create(r.Context(), guildID, req)
	if err != nil {
		if errors.Is(err, ErrGuildAtCapacity) {
			httputil.WriteError(w, http.StatusConflict, err)
			return
		}
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	observability.FromContext(r.Context()).
		WithField("endpoint_id", endpoint.ID).
		Info("webhook endpoint registered")

	httputil.WriteCreated(w, endpoint)
}

func (h *Handlers) listEndpoints(w http.ResponseWriter, r *http.Request) {
	guildID, ok := httputil.ParsePathStringOrError(w, r, "guildID")
	if !ok {
		return
	}

	endpoints, err := h.registry.GuildEndpoints(r.Context(), guildID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"endpoints": endpoints,
		"count":     len(endpoints),
	})
}

func (h *Handlers) getEndpoint(w http.ResponseWriter, r *http.Request) {
	guildID, id, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	endpoint, err := h.registry.Get(r.Context(), guildID, id)
	if err != nil {
		httputil.WriteNotFound(w, err.Error())
		return
	}

	httputil.WriteSuccess(w, endpoint)
}

func (h *Handlers) updateEndpoint(w http.ResponseWriter, r *http.Request) {
	guildID, id, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	endpoint, err := h.registry.Update(r.Context(), guildID, id, req)
	if err != nil {
		if errors.Is(err, ErrEndpointNotFound) {
			httputil.WriteNotFound(w, err.Error())
			return
		}
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	httputil.WriteSuccess(w, endpoint)
}

func (h *Handlers) deleteEndpoint(w http.ResponseWriter, r *http.Request) {
	guildID, id, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	if err := h.registry.Delete(r.Context(), guildID, id); err != nil {
		httputil.WriteNotFound(w, err.Error())
		return
	}

	h.manager.deliverer.Limiter().Reset(id)
	httputil.WriteNoContent(w)
}

func (h *Handlers) testEndpoint(w http.ResponseWriter, r *http.Request) {
	guildID, id, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	endpoint, err := h.registry.Get(r.Context(), guildID, id)
	if err != nil {
		httputil.WriteNotFound(w, err.Error())
		return
	}

	result := h.manager.TestEndpoint(r.Context(), guildID, *endpoint)
	httputil.WriteSuccess(w, result)
}

func (h *Handlers) endpointStats(w http.ResponseWriter, r *http.Request) {
	guildID, id, ok := h.pathIDs(w, r)
	if !ok {
		return
	}

	if _, err := h.registry.Get(r.Context(), guildID, id); err != nil {
		httputil.WriteNotFound(w, err.Error())
		return
	}

	stats, err := h.manager.DeliveryStats(r.Context(), guildID, id)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, stats)
}

func (h *Handlers) listDeliveries(w http.ResponseWriter, r *http.Request) {
	guildID, ok := httputil.ParsePathStringOrError(w, r, "guildID")
	if !ok {
		return
	}

	limit := httputil.ParseQueryInt(r, "limit", 0)
	attempts, err := h.manager.DeliveryLog(r.Context(), guildID, limit)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"deliveries": attempts,
		"count":      len(attempts),
	})
}

func (h *Handlers) pathIDs(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	guildID, ok := httputil.ParsePathStringOrError(w, r, "guildID")
	if !ok {
		return "", "", false
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return "", "", false
	}
	return guildID, id, true
}
