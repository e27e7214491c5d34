package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"business-analyst/pipeline"
	"business-analyst/report"
	"business-analyst/validation"
)

// analyzeRequest is the POST /api/analyze body
type analyzeRequest struct {
	Ticker      string `json:"ticker"`
	CompanyName string `json:"company_name"`
	Mode        string `json:"mode"`
	Period      string `json:"period"`
}

// analyzeResponse summarizes one finished pipeline run
type analyzeResponse struct {
	QueryID           int64   `json:"query_id"`
	ReportID          int64   `json:"report_id"`
	Ticker            string  `json:"ticker"`
	CompanyName       string  `json:"company_name"`
	Mode              string  `json:"mode"`
	Period            string  `json:"period"`
	Report            string  `json:"report"`
	WordCount         int     `json:"word_count"`
	CompletenessScore float64 `json:"completeness_score"`
	StructureScore    float64 `json:"structure_score"`
	FromCache         bool    `json:"from_cache"`
	DurationSeconds   float64 `json:"duration_seconds"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Ticker) == "" {
		respondWithError(w, http.StatusBadRequest, "ticker is required", nil)
		return
	}

	mode, ok := normalizeMode(req.Mode)
	if !ok {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("unknown mode %q, use full or quick", req.Mode), nil)
		return
	}

	res, err := s.analyzer.Run(r.Context(), pipeline.Request{
		Mode:        mode,
		Ticker:      req.Ticker,
		CompanyName: req.CompanyName,
		Period:      req.Period,
	})
	if err != nil {
		respondWithError(w, http.StatusBadGateway, fmt.Sprintf("Analysis failed: %v", err), err)
		return
	}

	resp := analyzeResponse{
		QueryID:         res.QueryID,
		ReportID:        res.ReportID,
		Ticker:          res.Ticker,
		CompanyName:     res.CompanyName,
		Mode:            res.Mode,
		Period:          res.Period,
		Report:          res.Report,
		WordCount:       res.WordCount,
		FromCache:       res.FromCache,
		DurationSeconds: res.Duration.Seconds(),
	}
	if res.Validation != nil {
		resp.CompletenessScore = res.Validation.CompletenessScore
		resp.StructureScore = res.Validation.StructureScore
	}
	writeJSON(w, http.StatusOK, resp)
}

// normalizeMode maps the wire values onto the analysis type names
func normalizeMode(mode string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "full", strings.ToLower(validation.ReportTypeFull):
		return validation.ReportTypeFull, true
	case "quick", strings.ToLower(validation.ReportTypeQuick):
		return validation.ReportTypeQuick, true
	default:
		return "", false
	}
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	ticker := strings.TrimSpace(r.URL.Query().Get("ticker"))
	if ticker == "" {
		respondWithError(w, http.StatusBadRequest, "ticker query parameter is required", nil)
		return
	}
	maxLimit := 100
	limit := getIntParam(r, "limit", 10, nil, &maxLimit)

	reports, err := s.repo.GetReportsByTicker(ticker, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load reports", err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid report ID", err)
		return
	}

	rep, err := s.repo.GetReport(id)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load report", err)
		return
	}
	if rep == nil {
		respondWithError(w, http.StatusNotFound, "Report not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleDownloadReport streams a report as an attachment. PDF rendering
// failures fall back to the markdown original so the download always
// succeeds when the report exists.
func (s *Server) handleDownloadReport(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid report ID", err)
		return
	}

	rep, err := s.repo.GetReport(id)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load report", err)
		return
	}
	if rep == nil {
		respondWithError(w, http.StatusNotFound, "Report not found", nil)
		return
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "", "md", "pdf":
	default:
		respondWithError(w, http.StatusBadRequest, "format must be md or pdf", nil)
		return
	}

	if format == "pdf" {
		pdfBytes, err := report.RenderPDF(rep.ReportContent, rep.Ticker, rep.GeneratedAt)
		if err == nil {
			w.Header().Set("Content-Type", "application/pdf")
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(rep.Ticker, rep.GeneratedAt, "pdf")))
			w.Write(pdfBytes)
			return
		}
		log.Printf("⚠️ PDF export failed for report %d, falling back to markdown: %v", id, err)
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(rep.Ticker, rep.GeneratedAt, "md")))
	w.Write([]byte(rep.ReportContent))
}

func (s *Server) handleRecentQueries(w http.ResponseWriter, r *http.Request) {
	maxLimit := 100
	limit := getIntParam(r, "limit", 10, nil, &maxLimit)

	queries, err := s.repo.GetRecentQueries(limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load queries", err)
		return
	}
	writeJSON(w, http.StatusOK, queries)
}

func (s *Server) handleQueryLogs(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid query ID", err)
		return
	}

	logs, err := s.repo.GetAgentLogs(id)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load agent logs", err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleQueryMetadata(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid query ID", err)
		return
	}

	meta, err := s.repo.GetMetadata(id)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load metadata", err)
		return
	}
	if meta == nil {
		respondWithError(w, http.StatusNotFound, "Metadata not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}
