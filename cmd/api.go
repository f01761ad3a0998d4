package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/cratehq/enrich-cli/internal/batch"
	"github.com/cratehq/enrich-cli/internal/enrich"
	"github.com/cratehq/enrich-cli/internal/model"
	"github.com/cratehq/enrich-cli/internal/store"
	"github.com/cratehq/enrich-cli/internal/telemetry"
)

// apiServer is the control-plane HTTP surface the dashboard talks to.
type apiServer struct {
	store         store.Store
	pipeline      *enrich.Pipeline
	orch          *batch.Orchestrator
	sink          telemetry.Sink
	metrics       http.Handler
	artistTimeout time.Duration
}

func newAPIServer(st store.Store, p *enrich.Pipeline, orch *batch.Orchestrator, sink telemetry.Sink, metrics http.Handler, artistTimeout time.Duration) *apiServer {
	if artistTimeout <= 0 {
		artistTimeout = 3 * time.Minute
	}
	return &apiServer{
		store:         st,
		pipeline:      p,
		orch:          orch,
		sink:          sink,
		metrics:       metrics,
		artistTimeout: artistTimeout,
	}
}

// routes builds the router. The dashboard is a browser app on another
// origin, hence the permissive CORS policy.
func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/enrich/{artistID}", s.handleEnrich)
		r.Get("/artists/{artistID}/result", s.handleLatestResult)

		r.Route("/batches", func(r chi.Router) {
			r.Post("/", s.handleCreateBatch)
			r.Get("/", s.handleListBatches)
			r.Get("/{batchID}", s.handleGetBatch)
			r.Post("/{batchID}/start", s.handleBatchVerb(s.orch.Start))
			r.Post("/{batchID}/pause", s.handleBatchVerb(s.orch.Pause))
			r.Post("/{batchID}/resume", s.handleBatchVerb(s.orch.Resume))
			r.Post("/{batchID}/cancel", s.handleBatchVerb(s.orch.Cancel))
			r.Post("/{batchID}/retry-failed", s.handleRetryFailed)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

// writeError maps store and state-machine errors onto HTTP statuses. The
// error text is surfaced as-is; the dashboard shows it to the operator.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, batch.ErrConflict):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		zap.L().Error("api: request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleEnrich runs the pipeline synchronously for one stored artist and
// returns the persisted result.
func (s *apiServer) handleEnrich(w http.ResponseWriter, r *http.Request) {
	artistID := chi.URLParam(r, "artistID")

	artist, err := s.store.GetArtist(r.Context(), artistID)
	if err != nil {
		writeError(w, err)
		return
	}

	runCtx, cancel := context.WithTimeout(r.Context(), s.artistTimeout)
	defer cancel()

	result, err := s.pipeline.Run(runCtx, artist)
	if err != nil {
		writeError(w, err)
		return
	}

	artist.ApplyResult(result, time.Now().UTC())
	if err := s.store.SaveEnrichment(r.Context(), artist, result); err != nil {
		writeError(w, err)
		return
	}
	if s.sink != nil {
		s.sink.RunCompleted(result)
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleLatestResult(w http.ResponseWriter, r *http.Request) {
	artistID := chi.URLParam(r, "artistID")

	result, err := s.store.GetLatestResult(r.Context(), artistID)
	if err != nil {
		writeError(w, err)
		return
	}
	if result == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no enrichment run for artist " + artistID})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string   `json:"name"`
		ArtistIDs []string `json:"artist_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if len(req.ArtistIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "artist_ids is required"})
		return
	}

	b, err := s.orch.Create(r.Context(), req.Name, req.ArtistIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *apiServer) handleListBatches(w http.ResponseWriter, r *http.Request) {
	filter := store.BatchFilter{
		Status: model.BatchStatus(r.URL.Query().Get("status")),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	batches, err := s.store.ListBatches(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batches)
}

func (s *apiServer) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")

	b, err := s.store.GetBatch(r.Context(), batchID)
	if err != nil {
		writeError(w, err)
		return
	}
	members, err := s.store.ListMembers(r.Context(), batchID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Batch   *model.BatchJob     `json:"batch"`
		Members []model.BatchMember `json:"members"`
	}{b, members})
}

// handleBatchVerb wraps one state transition; the fresh batch is returned
// so the dashboard can render the new state without a second request.
func (s *apiServer) handleBatchVerb(verb func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batchID := chi.URLParam(r, "batchID")

		if err := verb(r.Context(), batchID); err != nil {
			writeError(w, err)
			return
		}
		b, err := s.store.GetBatch(r.Context(), batchID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func (s *apiServer) handleRetryFailed(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")

	reopened, err := s.orch.RetryFailed(r.Context(), batchID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"members_reset": reopened})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
