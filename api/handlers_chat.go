package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/websocket"

	"business-analyst/tools"
)

const (
	defaultSessionID = "default"
	maxUploadBytes   = 20 << 20 // 20 MiB
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The UI is served from the same origin; CORS stays open like the
	// rest of the API.
	CheckOrigin: func(*http.Request) bool { return true },
}

// chatRequest is the POST /api/chat body
type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// wsInbound is one chat message received over the websocket
type wsInbound struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// wsOutbound is one frame sent over the websocket. Freeform answers
// stream as token frames followed by a done frame carrying the full
// reply; command answers arrive as a single token.
type wsOutbound struct {
	Type    string `json:"type"` // token, done, error
	Content string `json:"content,omitempty"`
	Reply   string `json:"reply,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondWithError(w, http.StatusBadRequest, "message is required", nil)
		return
	}
	if req.SessionID == "" {
		req.SessionID = defaultSessionID
	}

	reply := s.chat.Reply(r.Context(), req.SessionID, req.Message)
	writeJSON(w, http.StatusOK, map[string]string{
		"session_id": req.SessionID,
		"reply":      reply,
	})
}

func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("⚠️ WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	log.Printf("💬 Chat WebSocket connected: %s", r.RemoteAddr)

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			log.Printf("💬 Chat WebSocket closed: %s", r.RemoteAddr)
			return
		}
		if strings.TrimSpace(in.Message) == "" {
			conn.WriteJSON(wsOutbound{Type: "error", Content: "message is required"})
			continue
		}
		if in.SessionID == "" {
			in.SessionID = defaultSessionID
		}

		reply, err := s.chat.ReplyStream(r.Context(), in.SessionID, in.Message, func(token string) error {
			return conn.WriteJSON(wsOutbound{Type: "token", Content: token})
		})
		if err != nil {
			conn.WriteJSON(wsOutbound{Type: "error", Content: err.Error()})
			continue
		}
		if err := conn.WriteJSON(wsOutbound{Type: "done", Reply: reply}); err != nil {
			return
		}
	}
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		respondWithError(w, http.StatusBadRequest, "session_id query parameter is required", nil)
		return
	}
	maxLimit := 200
	limit := getIntParam(r, "limit", 50, nil, &maxLimit)

	history, err := s.chat.History(sessionID, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load chat history", err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// documentURLRequest is the JSON body for loading a PDF by URL
type documentURLRequest struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// handleUploadDocument attaches a PDF to a chat session, either as a
// multipart file upload or as a JSON body naming a URL to fetch.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	if s.extractor == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Document extraction is not available", nil)
		return
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		s.loadDocumentFromURL(w, r)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid multipart form", err)
		return
	}
	sessionID := r.FormValue("session_id")
	if sessionID == "" {
		sessionID = defaultSessionID
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "file field is required", err)
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		respondWithError(w, http.StatusBadRequest, "Only PDF files are supported", nil)
		return
	}

	// The PDF reader needs a seekable file, so spool the upload to disk.
	tmp, err := os.CreateTemp("", "upload-*.pdf")
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to store upload", err)
		return
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		respondWithError(w, http.StatusInternalServerError, "Failed to store upload", err)
		return
	}
	tmp.Close()

	text, err := s.extractor.ExtractFile(tmp.Name(), tools.DefaultMaxPages)
	if err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, "Failed to extract text from PDF", err)
		return
	}

	s.chat.LoadDocument(sessionID, header.Filename, text)
	log.Printf("📄 Document loaded for session %s: %s (%d chars)", sessionID, header.Filename, len(text))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"filename":   header.Filename,
		"characters": len(text),
	})
}

func (s *Server) loadDocumentFromURL(w http.ResponseWriter, r *http.Request) {
	var req documentURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		respondWithError(w, http.StatusBadRequest, "url is required", nil)
		return
	}
	if req.SessionID == "" {
		req.SessionID = defaultSessionID
	}

	text, err := s.extractor.ExtractURL(r.Context(), req.URL, tools.DefaultMaxPages)
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "Failed to extract text from PDF URL", err)
		return
	}

	s.chat.LoadDocument(req.SessionID, req.URL, text)
	log.Printf("📄 Document loaded for session %s: %s (%d chars)", req.SessionID, req.URL, len(text))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": req.SessionID,
		"filename":   req.URL,
		"characters": len(text),
	})
}

func (s *Server) handleClearDocument(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = defaultSessionID
	}
	s.chat.ClearDocument(sessionID)
	w.WriteHeader(http.StatusNoContent)
}
