package httpd

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/service"
	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/worker/queue"
	"github.com/RubachokBoss/plagiarism-checker/similarity-service/pkg/utils"
)

// maxBodyBytes bounds request bodies; compare requests carry two code files.
const maxBodyBytes = 10 << 20

// WorkerStatsFunc reports the scan worker's counters for the health check.
type WorkerStatsFunc func() queue.WorkerStats

type Handler struct {
	scanService   service.ScanService
	reportService service.ReportService
	workerStats   WorkerStatsFunc
	logger        zerolog.Logger
}

// NewHandler builds the HTTP handlers. workerStats may be nil when no scan
// worker runs in this process.
func NewHandler(
	scanService service.ScanService,
	reportService service.ReportService,
	workerStats WorkerStatsFunc,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		scanService:   scanService,
		reportService: reportService,
		workerStats:   workerStats,
		logger:        logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.HealthCheck)

	router.Route("/api/v1", func(api chi.Router) {
		api.Post("/compare", h.Compare)

		api.Route("/scans", func(r chi.Router) {
			r.Post("/", h.CreateScan)
			r.Post("/async", h.CreateScanAsync)
			r.Post("/retry", h.RetryFailedScans)
			r.Get("/{report_id}", h.GetScan)
			r.Get("/{report_id}/progress", h.GetScanProgress)
			r.Get("/{report_id}/similarities", h.ListSimilarities)
		})

		api.Get("/assignments/{assignment_id}/scans", h.ListAssignmentScans)

		api.Route("/similarities", func(r chi.Router) {
			r.Get("/{similarity_id}", h.GetSimilarity)
			r.Put("/{similarity_id}/ai-analysis", h.AttachAIAnalysis)
		})
	})
}

// handleServiceError maps service sentinels onto status codes.
func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidAssignmentID),
		errors.Is(err, service.ErrInvalidScanMode),
		errors.Is(err, service.ErrInvalidThreshold),
		errors.Is(err, service.ErrEmptyAnnotation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrReportNotFound),
		errors.Is(err, service.ErrSimilarityNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrScanInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrContentUnavailable):
		h.logger.Error().Err(err).Msg("Content source error")
		writeError(w, http.StatusBadGateway, "Submission content unavailable")
	default:
		h.logger.Error().Err(err).Msg("Request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := utils.ReadJSON(r, dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func getIntQueryParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func getFloatQueryParam(r *http.Request, key string, defaultValue float64) float64 {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatValue
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	writeCreated(w, http.StatusOK, data)
}

func writeCreated(w http.ResponseWriter, status int, data interface{}) {
	response := map[string]interface{}{
		"success": true,
		"data":    data,
	}
	writeJSON(w, status, response)
}
