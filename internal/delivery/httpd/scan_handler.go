package httpd

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/models"
)

func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	var req models.CompareRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.scanService.Compare(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, resp)
}

// CreateScan runs the scan within the request and returns the finished report.
func (h *Handler) CreateScan(w http.ResponseWriter, r *http.Request) {
	var req models.CreateScanRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx := r.Context()
	report, err := h.scanService.CreateScan(ctx, req.AssignmentID, req.Mode, req.Threshold)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	done, err := h.scanService.RunScan(ctx, report.ID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, done)
}

func (h *Handler) CreateScanAsync(w http.ResponseWriter, r *http.Request) {
	var req models.CreateScanRequest
	if !decodeBody(w, r, &req) {
		return
	}

	report, err := h.scanService.ScanAsync(r.Context(), req.AssignmentID, req.Mode, req.Threshold)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeCreated(w, http.StatusAccepted, models.CreateScanResponse{
		ReportID:  report.ID,
		Status:    report.Status,
		StatusURL: "/api/v1/scans/" + report.ID + "/progress",
		CreatedAt: report.CreatedAt,
	})
}

func (h *Handler) RetryFailedScans(w http.ResponseWriter, r *http.Request) {
	limit := getIntQueryParam(r, "limit", 10)
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	queued, err := h.scanService.RetryFailedScans(r.Context(), limit)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, map[string]interface{}{
		"queued":    queued,
		"limit":     limit,
		"timestamp": time.Now().UTC(),
	})
}

func (h *Handler) GetScan(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "report_id")

	report, err := h.reportService.GetReport(r.Context(), reportID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, report)
}

func (h *Handler) GetScanProgress(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "report_id")

	progress, err := h.reportService.GetProgress(r.Context(), reportID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, progress)
}

func (h *Handler) ListAssignmentScans(w http.ResponseWriter, r *http.Request) {
	assignmentID := chi.URLParam(r, "assignment_id")
	limit := getIntQueryParam(r, "limit", 20)
	offset := getIntQueryParam(r, "offset", 0)

	reports, total, err := h.reportService.ListReportsByAssignment(r.Context(), assignmentID, limit, offset)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, map[string]interface{}{
		"reports": reports,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}
