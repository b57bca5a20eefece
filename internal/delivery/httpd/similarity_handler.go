package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/models"
)

func (h *Handler) ListSimilarities(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "report_id")
	minScore := getFloatQueryParam(r, "min_score", 0)
	limit := getIntQueryParam(r, "limit", 0)
	offset := getIntQueryParam(r, "offset", 0)

	resp, err := h.reportService.ListSimilarities(r.Context(), reportID, minScore, limit, offset)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, resp)
}

func (h *Handler) GetSimilarity(w http.ResponseWriter, r *http.Request) {
	similarityID := chi.URLParam(r, "similarity_id")

	similarity, err := h.reportService.GetSimilarity(r.Context(), similarityID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, similarity)
}

func (h *Handler) AttachAIAnalysis(w http.ResponseWriter, r *http.Request) {
	similarityID := chi.URLParam(r, "similarity_id")

	var req models.AttachAnalysisRequest
	if !decodeBody(w, r, &req) {
		return
	}

	similarity, err := h.reportService.AttachAIAnalysis(r.Context(), similarityID, req.Analysis)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeSuccess(w, similarity)
}
