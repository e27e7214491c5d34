package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"business-analyst/chat"
	"business-analyst/database"
	"business-analyst/llm"
	"business-analyst/pipeline"
	"business-analyst/realtime"
	"business-analyst/validation"
)

type stubAnalyzer struct {
	requests []pipeline.Request
	result   *pipeline.Result
	err      error
}

func (a *stubAnalyzer) Run(_ context.Context, req pipeline.Request) (*pipeline.Result, error) {
	a.requests = append(a.requests, req)
	if a.err != nil {
		return nil, a.err
	}
	return a.result, nil
}

type stubModel struct {
	answer string
}

func (m *stubModel) Complete(_ context.Context, _, _ string, _ llm.Options) (string, error) {
	return m.answer, nil
}

func (m *stubModel) CompleteStream(_ context.Context, _, _ string, _ llm.Options, callback llm.StreamCallback) error {
	return callback(m.answer)
}

type stubExtractor struct {
	text  string
	err   error
	files []string
	urls  []string
}

func (e *stubExtractor) ExtractFile(path string, _ int) (string, error) {
	e.files = append(e.files, path)
	return e.text, e.err
}

func (e *stubExtractor) ExtractURL(_ context.Context, pdfURL string, _ int) (string, error) {
	e.urls = append(e.urls, pdfURL)
	return e.text, e.err
}

type testEnv struct {
	server    *Server
	analyzer  *stubAnalyzer
	extractor *stubExtractor
	repo      *database.Repository
	ts        *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Connect(filepath.Join(t.TempDir(), "analyst.db"))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	repo := database.NewRepository(db)
	if err := repo.InitSchema(); err != nil {
		t.Fatalf("init schema: %v", err)
	}

	analyzer := &stubAnalyzer{result: &pipeline.Result{
		QueryID:   1,
		ReportID:  1,
		Ticker:    "AAPL",
		Mode:      validation.ReportTypeFull,
		Period:    "1y",
		Report:    "# Business Analysis Report: AAPL\n\nSolid quarter.",
		WordCount: 7,
		Duration:  3 * time.Second,
		Validation: &validation.ReportValidation{
			CompletenessScore: 1.0,
			StructureScore:    0.7,
		},
	}}
	extractor := &stubExtractor{text: "Extracted PDF text for testing."}
	chatRouter := chat.NewRouter(analyzer, &stubModel{answer: "stub answer"}, nil, repo)

	srv := NewServer(repo, analyzer, realtime.NewBroker(), chatRouter, extractor, nil, false)
	ts := httptest.NewServer(srv.corsMiddleware(srv.loggingMiddleware(srv.routes())))
	t.Cleanup(ts.Close)

	return &testEnv{server: srv, analyzer: analyzer, extractor: extractor, repo: repo, ts: ts}
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHandleAnalyze(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env.ts.URL+"/api/analyze", `{"ticker":"aapl","mode":"full"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var got analyzeResponse
	decodeJSON(t, resp, &got)

	if got.Ticker != "AAPL" || got.QueryID != 1 || got.ReportID != 1 {
		t.Errorf("response = %+v", got)
	}
	if got.CompletenessScore != 1.0 || got.StructureScore != 0.7 {
		t.Errorf("scores = %v/%v", got.CompletenessScore, got.StructureScore)
	}
	if got.DurationSeconds != 3 {
		t.Errorf("duration = %v, want 3", got.DurationSeconds)
	}

	if len(env.analyzer.requests) != 1 {
		t.Fatalf("analyzer calls = %d", len(env.analyzer.requests))
	}
	req := env.analyzer.requests[0]
	if req.Mode != validation.ReportTypeFull || req.Ticker != "aapl" {
		t.Errorf("request = %+v", req)
	}
}

func TestHandleAnalyzeRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing ticker", `{"mode":"full"}`},
		{"unknown mode", `{"ticker":"AAPL","mode":"deep"}`},
		{"invalid json", `{"ticker":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, env.ts.URL+"/api/analyze", tt.body)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			if len(env.analyzer.requests) != 0 {
				t.Error("analyzer must not run on bad input")
			}
		})
	}
}

func TestHandleAnalyzePipelineFailure(t *testing.T) {
	env := newTestEnv(t)
	env.analyzer.err = errors.New("fetch_stock_data: connection refused")

	resp := postJSON(t, env.ts.URL+"/api/analyze", `{"ticker":"AAPL"}`)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
	var got map[string]string
	decodeJSON(t, resp, &got)
	if !strings.Contains(got["error"], "connection refused") {
		t.Errorf("error = %q", got["error"])
	}
}

func seedReport(t *testing.T, env *testEnv, ticker, content string) (queryID, reportID int64) {
	t.Helper()
	queryID, err := env.repo.CreateQuery(ticker, "", validation.ReportTypeFull, "1y")
	if err != nil {
		t.Fatalf("create query: %v", err)
	}
	reportID, err = env.repo.SaveReport(queryID, ticker, content, 0)
	if err != nil {
		t.Fatalf("save report: %v", err)
	}
	return queryID, reportID
}

func TestHandleGetReport(t *testing.T) {
	env := newTestEnv(t)
	content := "# Business Analysis Report: AAPL\n\n## Executive Summary\n\nSolid."
	_, reportID := seedReport(t, env, "AAPL", content)

	resp, err := http.Get(env.ts.URL + "/api/reports/1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var got database.Report
	decodeJSON(t, resp, &got)
	if got.ID != reportID || got.ReportContent != content {
		t.Errorf("report = %+v", got)
	}

	resp, err = http.Get(env.ts.URL + "/api/reports/999")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing report status = %d, want 404", resp.StatusCode)
	}
}

func TestHandleListReports(t *testing.T) {
	env := newTestEnv(t)
	seedReport(t, env, "AAPL", "apple report")
	seedReport(t, env, "MSFT", "microsoft report")

	resp, err := http.Get(env.ts.URL + "/api/reports?ticker=aapl")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var got []database.Report
	decodeJSON(t, resp, &got)
	if len(got) != 1 || got[0].Ticker != "AAPL" {
		t.Errorf("reports = %+v", got)
	}

	resp, err = http.Get(env.ts.URL + "/api/reports")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing ticker status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleDownloadReport(t *testing.T) {
	env := newTestEnv(t)
	content := "# Business Analysis Report: AAPL\n\n## Executive Summary\n\nRevenue grew 8.1% to $391 billion."
	seedReport(t, env, "AAPL", content)

	t.Run("markdown", func(t *testing.T) {
		resp, err := http.Get(env.ts.URL + "/api/reports/1/download?format=md")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		disposition := resp.Header.Get("Content-Disposition")
		if !strings.Contains(disposition, "attachment") || !strings.Contains(disposition, "AAPL_analysis_") || !strings.Contains(disposition, ".md") {
			t.Errorf("disposition = %q", disposition)
		}
		var buf bytes.Buffer
		buf.ReadFrom(resp.Body)
		if buf.String() != content {
			t.Error("downloaded markdown differs from stored report")
		}
	})

	t.Run("pdf", func(t *testing.T) {
		resp, err := http.Get(env.ts.URL + "/api/reports/1/download?format=pdf")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
			t.Errorf("content type = %q", ct)
		}
		var buf bytes.Buffer
		buf.ReadFrom(resp.Body)
		if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
			t.Error("body is not a PDF document")
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		resp, err := http.Get(env.ts.URL + "/api/reports/1/download?format=xlsx")
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestHandleQueryEndpoints(t *testing.T) {
	env := newTestEnv(t)
	queryID, _ := seedReport(t, env, "AAPL", "report body")
	if _, err := env.repo.LogAgentAction(queryID, "Stock Data Collector", "completed fetch_stock_data (120 chars)", "success"); err != nil {
		t.Fatalf("log action: %v", err)
	}

	resp, err := http.Get(env.ts.URL + "/api/queries/recent?limit=10")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var queries []database.UserQuery
	decodeJSON(t, resp, &queries)
	if len(queries) != 1 || queries[0].Ticker != "AAPL" {
		t.Errorf("queries = %+v", queries)
	}

	resp, err = http.Get(env.ts.URL + "/api/queries/1/logs")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var logs []database.AgentLog
	decodeJSON(t, resp, &logs)
	if len(logs) != 1 || logs[0].AgentName != "Stock Data Collector" {
		t.Errorf("logs = %+v", logs)
	}

	resp, err = http.Get(env.ts.URL + "/api/queries/1/metadata")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("absent metadata status = %d, want 404", resp.StatusCode)
	}

	if _, err := env.repo.SaveMetadata(queryID, "Senior Financial Analyst: completed financial analysis.", 1.0, 0.85, strings.Repeat("Summary sentence. ", 5)); err != nil {
		t.Fatalf("save metadata: %v", err)
	}
	resp, err = http.Get(env.ts.URL + "/api/queries/1/metadata")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var meta database.AnalysisMetadata
	decodeJSON(t, resp, &meta)
	if meta.DataCompleteness != 1.0 || meta.ConfidenceScore != 0.85 {
		t.Errorf("metadata = %+v", meta)
	}
}

func TestHandleStats(t *testing.T) {
	env := newTestEnv(t)
	queryID, _ := seedReport(t, env, "AAPL", "report body")
	if err := env.repo.UpdateQueryStatus(queryID, "completed", ""); err != nil {
		t.Fatalf("update status: %v", err)
	}

	resp, err := http.Get(env.ts.URL + "/api/stats")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var stats database.Stats
	decodeJSON(t, resp, &stats)
	if stats.TotalQueries != 1 || stats.TotalReports != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.SuccessRate != 100 {
		t.Errorf("success rate = %v, want 100", stats.SuccessRate)
	}
}

func TestHandleCleanup(t *testing.T) {
	env := newTestEnv(t)
	seedReport(t, env, "AAPL", "fresh report")

	resp := postJSON(t, env.ts.URL+"/api/maintenance/cleanup", `{"days":30}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var got map[string]interface{}
	decodeJSON(t, resp, &got)
	if got["rows_removed"].(float64) != 0 {
		t.Errorf("fresh rows must survive cleanup: %v", got)
	}

	resp = postJSON(t, env.ts.URL+"/api/maintenance/cleanup", `{"days":0}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleChat(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env.ts.URL+"/api/chat", `{"session_id":"s9","message":"hello"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var got map[string]string
	decodeJSON(t, resp, &got)
	if !strings.Contains(got["reply"], "business analyst") {
		t.Errorf("reply = %q", got["reply"])
	}
	if got["session_id"] != "s9" {
		t.Errorf("session_id = %q", got["session_id"])
	}

	resp = postJSON(t, env.ts.URL+"/api/chat", `{"message":"  "}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("blank message status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleChatHistory(t *testing.T) {
	env := newTestEnv(t)

	postJSON(t, env.ts.URL+"/api/chat", `{"session_id":"s9","message":"hello"}`).Body.Close()

	resp, err := http.Get(env.ts.URL + "/api/chat/history?session_id=s9")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var history []database.ConversationMessage
	decodeJSON(t, resp, &history)
	if len(history) != 1 || history[0].UserMessage != "hello" {
		t.Errorf("history = %+v", history)
	}

	resp, err = http.Get(env.ts.URL + "/api/chat/history")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing session status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleDocumentUpload(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "annual.pdf")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	fw.Write([]byte("%PDF-1.4 fake body"))
	mw.WriteField("session_id", "doc-session")
	mw.Close()

	resp, err := http.Post(env.ts.URL+"/api/documents", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var got map[string]interface{}
	decodeJSON(t, resp, &got)
	if got["filename"] != "annual.pdf" {
		t.Errorf("filename = %v", got["filename"])
	}
	if int(got["characters"].(float64)) != len(env.extractor.text) {
		t.Errorf("characters = %v", got["characters"])
	}
	if len(env.extractor.files) != 1 {
		t.Errorf("extractor calls = %d", len(env.extractor.files))
	}

	name, chars, ok := env.server.chat.Document("doc-session")
	if !ok || name != "annual.pdf" || chars != len(env.extractor.text) {
		t.Errorf("session document = (%q, %d, %v)", name, chars, ok)
	}

	req, err := http.NewRequest(http.MethodDelete, env.ts.URL+"/api/documents?session_id=doc-session", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", delResp.StatusCode)
	}
	if _, _, ok := env.server.chat.Document("doc-session"); ok {
		t.Error("document should be cleared")
	}
}

func TestHandleDocumentUploadRejectsNonPDF(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "notes.txt")
	fw.Write([]byte("plain text"))
	mw.Close()

	resp, err := http.Post(env.ts.URL+"/api/documents", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleDocumentFromURL(t *testing.T) {
	env := newTestEnv(t)

	resp := postJSON(t, env.ts.URL+"/api/documents", `{"session_id":"s1","url":"https://example.com/10k.pdf"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var got map[string]interface{}
	decodeJSON(t, resp, &got)
	if got["filename"] != "https://example.com/10k.pdf" {
		t.Errorf("filename = %v", got["filename"])
	}
	if len(env.extractor.urls) != 1 || env.extractor.urls[0] != "https://example.com/10k.pdf" {
		t.Errorf("extractor urls = %v", env.extractor.urls)
	}
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var got map[string]string
	decodeJSON(t, resp, &got)
	if got["status"] != "ok" || got["llm"] != "disabled" || got["cache"] != "off" {
		t.Errorf("health = %v", got)
	}
}

func TestChatWebSocket(t *testing.T) {
	env := newTestEnv(t)

	wsURL := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/api/chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	if err := conn.WriteJSON(wsInbound{SessionID: "ws-1", Message: "hello"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var token wsOutbound
	if err := conn.ReadJSON(&token); err != nil {
		t.Fatalf("read token frame: %v", err)
	}
	if token.Type != "token" || !strings.Contains(token.Content, "business analyst") {
		t.Errorf("token frame = %+v", token)
	}

	var done wsOutbound
	if err := conn.ReadJSON(&done); err != nil {
		t.Fatalf("read done frame: %v", err)
	}
	if done.Type != "done" || done.Reply != token.Content {
		t.Errorf("done frame = %+v", done)
	}
}
