package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dockhook/dockhook/internal/dispatch"
	"github.com/dockhook/dockhook/internal/logging"
	"github.com/dockhook/dockhook/internal/subscription"
	"github.com/dockhook/dockhook/internal/tracing"
)

// Server exposes the admin surface: subscription management and event
// triggering. Delivery outcomes are never reported here; triggering is
// fire-and-forget by design.
type Server struct {
	store  subscription.Store
	router *dispatch.Router
	logger *logging.Logger
}

func NewServer(store subscription.Store, router *dispatch.Router) *Server {
	return &Server{
		store:  store,
		router: router,
		logger: logging.New("dockhook-api"),
	}
}

// Register mounts the admin routes on the given mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/subscriptions", s.handleRegister)
	mux.HandleFunc("GET /v1/subscriptions", s.handleList)
	mux.HandleFunc("GET /v1/subscriptions/{id}", s.handleGet)
	mux.HandleFunc("DELETE /v1/subscriptions/{id}", s.handleDelete)
	mux.HandleFunc("POST /v1/subscriptions/{id}/enable", s.handleSetEnabled(true))
	mux.HandleFunc("POST /v1/subscriptions/{id}/disable", s.handleSetEnabled(false))
	mux.HandleFunc("POST /v1/events", s.handleTrigger)
	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
	})
}

type registerRequest struct {
	URL     string   `json:"url"`
	Events  []string `json:"events"`
	Secret  string   `json:"secret,omitempty"`
	Enabled *bool    `json:"enabled,omitempty"` // defaults to true
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	sub, err := s.store.Register(r.Context(), req.URL, req.Events, req.Secret, enabled)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	subs, err := s.store.List(r.Context())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	if subs == nil {
		subs = []subscription.Subscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sub, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.store.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (s *Server) handleSetEnabled(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := s.store.SetEnabled(r.Context(), r.PathValue("id"), enabled)
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	}
}

type triggerRequest struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type triggerResponse struct {
	Enqueued int `json:"enqueued"`
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.StartSpan(r.Context(), "api.trigger")
	defer span.End()

	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Event == "" {
		writeError(w, http.StatusBadRequest, "event is required")
		return
	}
	if len(req.Payload) == 0 {
		writeError(w, http.StatusBadRequest, "payload is required")
		return
	}

	span.SetAttributes(attribute.String("event", req.Event))

	enqueued, err := s.router.Trigger(ctx, req.Event, req.Payload)
	if err != nil {
		tracing.SetSpanError(ctx, err)
		s.logger.WithContext(ctx).WithEvent(req.Event).WithError(err).Error("trigger failed")
		writeError(w, http.StatusInternalServerError, "trigger failed")
		return
	}
	writeJSON(w, http.StatusAccepted, triggerResponse{Enqueued: enqueued})
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *subscription.ValidationError
	var nf *subscription.NotFoundError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	case errors.As(err, &nf):
		writeError(w, http.StatusNotFound, nf.Error())
	default:
		s.logger.WithContext(r.Context()).WithError(err).Error("store error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
