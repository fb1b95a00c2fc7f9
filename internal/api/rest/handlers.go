package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/clintrovert/ticketsmith/internal/apperr"
	"github.com/clintrovert/ticketsmith/internal/pipeline"
	"github.com/clintrovert/ticketsmith/internal/report"
)

// maxBriefBytes bounds the request body of a brief submission
const maxBriefBytes = 1 << 20

// Handler handles REST API requests
type Handler struct {
	orchestrator  *pipeline.Orchestrator
	browseURL     func(key string) string
	defaultDryRun bool
	logger        *zap.Logger
}

// NewHandler creates a new REST handler. browseURL turns an issue key into
// a web link; defaultDryRun applies when a request omits dry_run.
func NewHandler(
	orchestrator *pipeline.Orchestrator,
	browseURL func(key string) string,
	defaultDryRun bool,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		orchestrator:  orchestrator,
		browseURL:     browseURL,
		defaultDryRun: defaultDryRun,
		logger:        logger,
	}
}

// CreateBriefRequest is a brief submitted for processing
type CreateBriefRequest struct {
	Text   string `json:"text"`
	DryRun *bool  `json:"dry_run,omitempty"`
}

// CreateBriefResponse is the outcome of a processed brief
type CreateBriefResponse struct {
	DryRun     bool                    `json:"dry_run"`
	Keys       []string                `json:"keys"`
	Links      []string                `json:"links"`
	Issues     []pipeline.CreatedIssue `json:"issues"`
	Transcript []report.Line           `json:"transcript"`
}

// ErrorResponse describes a failed request
type ErrorResponse struct {
	Error string `json:"error"`
	// Keys, Links and Issues list what was created before the failure
	Keys       []string                `json:"keys,omitempty"`
	Links      []string                `json:"links,omitempty"`
	Issues     []pipeline.CreatedIssue `json:"issues,omitempty"`
	Transcript []report.Line           `json:"transcript"`
}

// CreateBrief handles POST /briefs
func (h *Handler) CreateBrief(w http.ResponseWriter, r *http.Request) {
	var req CreateBriefRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBriefBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error(), Transcript: []report.Line{}})
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "text is required", Transcript: []report.Line{}})
		return
	}

	dryRun := h.defaultDryRun
	if req.DryRun != nil {
		dryRun = *req.DryRun
	}

	transcript := report.NewTranscript()
	result, err := h.orchestrator.WithReporter(transcript).Run(r.Context(), text, dryRun)
	if err != nil {
		status := statusFor(err)
		h.logger.Error("failed to process brief",
			zap.Int("status", status),
			zap.Bool("dry_run", dryRun),
			zap.Error(err),
		)
		resp := ErrorResponse{Error: err.Error(), Transcript: transcript.Lines()}
		if result != nil {
			resp.Keys = result.Keys
			resp.Links = h.links(result.Keys)
			resp.Issues = result.Issues
		}
		writeJSON(w, status, resp)
		return
	}

	links := h.links(result.Keys)

	writeJSON(w, http.StatusOK, CreateBriefResponse{
		DryRun:     result.DryRun,
		Keys:       result.Keys,
		Links:      links,
		Issues:     result.Issues,
		Transcript: transcript.Lines(),
	})
}

func (h *Handler) links(keys []string) []string {
	links := make([]string, 0, len(keys))
	for _, key := range keys {
		links = append(links, h.browseURL(key))
	}
	return links
}

// RegisterRoutes registers REST API routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/briefs", h.CreateBrief)
}

// NewRouter mounts the handler under /api/v1 next to the health check
func NewRouter(h *Handler) chi.Router {
	router := chi.NewRouter()
	router.Route("/api/v1", func(r chi.Router) {
		h.RegisterRoutes(r)
	})
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return router
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrExtraction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrNetwork):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
