package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"business-analyst/chat"
	"business-analyst/database"
	"business-analyst/llm"
	"business-analyst/pipeline"
	"business-analyst/realtime"
)

// Analyzer runs one analysis request end to end
type Analyzer interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// DocumentExtractor pulls plain text out of PDF documents
type DocumentExtractor interface {
	ExtractFile(path string, maxPages int) (string, error)
	ExtractURL(ctx context.Context, pdfURL string, maxPages int) (string, error)
}

// Server handles HTTP API requests
type Server struct {
	repo      *database.Repository
	analyzer  Analyzer
	broker    *realtime.Broker
	chat      *chat.Router
	extractor DocumentExtractor
	llmClient *llm.Client
	cacheOn   bool

	httpServer *http.Server
}

// NewServer creates a new API server instance
func NewServer(repo *database.Repository, analyzer Analyzer, broker *realtime.Broker, chatRouter *chat.Router, extractor DocumentExtractor, llmClient *llm.Client, cacheOn bool) *Server {
	return &Server{
		repo:      repo,
		analyzer:  analyzer,
		broker:    broker,
		chat:      chatRouter,
		extractor: extractor,
		llmClient: llmClient,
		cacheOn:   cacheOn,
	}
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port int) error {
	handler := s.corsMiddleware(s.loggingMiddleware(s.routes()))

	serverAddr := fmt.Sprintf("0.0.0.0:%d", port)
	s.httpServer = &http.Server{Addr: serverAddr, Handler: handler}

	log.Printf("🚀 API Server starting on %s", serverAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the HTTP server, waiting for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /api/events", s.broker) // SSE Endpoint

	// Analysis Routes
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/reports", s.handleListReports)
	mux.HandleFunc("GET /api/reports/{id}", s.handleGetReport)
	mux.HandleFunc("GET /api/reports/{id}/download", s.handleDownloadReport)
	mux.HandleFunc("GET /api/queries/recent", s.handleRecentQueries)
	mux.HandleFunc("GET /api/queries/{id}/logs", s.handleQueryLogs)
	mux.HandleFunc("GET /api/queries/{id}/metadata", s.handleQueryMetadata)

	// Chat Routes
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/chat/ws", s.handleChatSocket)
	mux.HandleFunc("GET /api/chat/history", s.handleChatHistory)
	mux.HandleFunc("POST /api/documents", s.handleUploadDocument)
	mux.HandleFunc("DELETE /api/documents", s.handleClearDocument)

	// Operations Routes
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("POST /api/maintenance/cleanup", s.handleCleanup)
	mux.HandleFunc("GET /health", s.handleHealth)

	// Serve Static Files (Public UI)
	fs := http.FileServer(http.Dir("./public"))
	mux.Handle("GET /", fs)

	return mux
}

// Middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// Handlers are distributed across multiple files:
// - handlers_analysis.go: Running analyses, reports, queries, exports
// - handlers_chat.go: Chat replies, websocket streaming, documents
// - handlers_admin.go: Stats, data retention, health check
