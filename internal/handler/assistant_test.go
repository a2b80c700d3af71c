package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"rashid-gateway/internal/client/rag"
	"rashid-gateway/internal/model"
	"rashid-gateway/internal/service"
	"rashid-gateway/internal/storage"
)

func newAssistantRouter(t *testing.T, mock *rag.Mock) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sessions := service.NewSessionServiceWith(storage.NewMemoryStorage(), mock)
	h := NewAssistantHandler(sessions)

	r := gin.New()
	api := r.Group("/api/assistant")
	{
		api.POST("/init", h.Init)
		api.POST("/chat", h.Chat)
		api.POST("/summary", h.ToggleSummary)
		api.POST("/reset", h.Reset)
		api.GET("/session/:match_result_id", h.GetSession)
		api.GET("/session/:match_result_id/messages", h.GetMessages)
	}
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeSession(t *testing.T, w *httptest.ResponseRecorder) model.SessionResponse {
	t.Helper()
	var resp model.SessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v (body %s)", err, w.Body.String())
	}
	return resp
}

func TestInitEndpointReturnsReadySession(t *testing.T) {
	t.Parallel()

	mock := &rag.Mock{
		InitResult: rag.InitResult{SourceURL: "https://example.com/doc.pdf", ChunksIndexed: 7},
	}
	r := newAssistantRouter(t, mock)

	w := postJSON(t, r, "/api/assistant/init", model.InitRequest{MatchResultID: "mr-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	resp := decodeSession(t, w)
	if resp.State != model.StateReady {
		t.Fatalf("state = %s, want ready", resp.State)
	}
	if resp.SourceURL != "https://example.com/doc.pdf" || resp.ChunksIndexed != 7 {
		t.Fatalf("source = %q chunks = %d", resp.SourceURL, resp.ChunksIndexed)
	}
	if len(resp.Messages) == 0 || resp.Messages[0].Content != service.MsgGreeting {
		t.Fatalf("transcript should open with the greeting, got %+v", resp.Messages)
	}
}

func TestInitEndpointRejectsEmptyID(t *testing.T) {
	t.Parallel()

	mock := &rag.Mock{}
	r := newAssistantRouter(t, mock)

	w := postJSON(t, r, "/api/assistant/init", model.InitRequest{MatchResultID: "   "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != service.MsgNoMatchResult {
		t.Fatalf("error = %q", body["error"])
	}
	if mock.InitCalls.Load() != 0 {
		t.Fatalf("backend should not be called, got %d", mock.InitCalls.Load())
	}
}

func TestInitEndpointFailureStaysHTTP200(t *testing.T) {
	t.Parallel()

	mock := &rag.Mock{FailInit: true}
	r := newAssistantRouter(t, mock)

	w := postJSON(t, r, "/api/assistant/init", model.InitRequest{MatchResultID: "mr-fail"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decodeSession(t, w)
	if resp.State != model.StateFailed {
		t.Fatalf("state = %s, want failed", resp.State)
	}
}

func TestChatEndpointAppendsTurn(t *testing.T) {
	t.Parallel()

	mock := &rag.Mock{
		InitResult: rag.InitResult{SourceURL: "https://example.com/doc.pdf", ChunksIndexed: 3},
		ChatResult: rag.ChatResult{Reply: "الإجابة", Citations: []string{"doc.pdf#p2"}},
	}
	r := newAssistantRouter(t, mock)

	postJSON(t, r, "/api/assistant/init", model.InitRequest{MatchResultID: "mr-chat"})
	w := postJSON(t, r, "/api/assistant/chat", model.ChatRequest{MatchResultID: "mr-chat", Message: "ما الشروط؟"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	resp := decodeSession(t, w)
	last := resp.Messages[len(resp.Messages)-1]
	if last.Role != model.RoleAssistant || last.Content != "الإجابة" {
		t.Fatalf("last message = %+v", last)
	}
	if len(last.Citations) != 1 {
		t.Fatalf("citations = %v", last.Citations)
	}
}

func TestSummaryEndpointTogglesOpenState(t *testing.T) {
	t.Parallel()

	mock := &rag.Mock{
		InitResult:  rag.InitResult{SourceURL: "https://example.com/doc.pdf", ChunksIndexed: 3},
		SummaryText: "ملخص المصدر",
	}
	r := newAssistantRouter(t, mock)

	postJSON(t, r, "/api/assistant/init", model.InitRequest{MatchResultID: "mr-sum"})

	w := postJSON(t, r, "/api/assistant/summary", model.SummaryRequest{MatchResultID: "mr-sum"})
	resp := decodeSession(t, w)
	if !resp.Summary.Open || resp.Summary.Text != "ملخص المصدر" {
		t.Fatalf("summary = %+v", resp.Summary)
	}

	w = postJSON(t, r, "/api/assistant/summary", model.SummaryRequest{MatchResultID: "mr-sum"})
	resp = decodeSession(t, w)
	if resp.Summary.Open {
		t.Fatalf("second toggle should close the panel")
	}
}

func TestGetSessionEndpoint(t *testing.T) {
	t.Parallel()

	mock := &rag.Mock{InitResult: rag.InitResult{ChunksIndexed: 1}}
	r := newAssistantRouter(t, mock)

	req := httptest.NewRequest(http.MethodGet, "/api/assistant/session/mr-missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}

	postJSON(t, r, "/api/assistant/init", model.InitRequest{MatchResultID: "mr-get"})
	req = httptest.NewRequest(http.MethodGet, "/api/assistant/session/mr-get", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decodeSession(t, w)
	if resp.MatchResultID != "mr-get" {
		t.Fatalf("match_result_id = %q", resp.MatchResultID)
	}
}

func TestGetMessagesEndpoint(t *testing.T) {
	t.Parallel()

	mock := &rag.Mock{InitResult: rag.InitResult{SourceURL: "https://example.com/doc.pdf", ChunksIndexed: 2}}
	r := newAssistantRouter(t, mock)

	req := httptest.NewRequest(http.MethodGet, "/api/assistant/session/mr-missing/messages", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}

	postJSON(t, r, "/api/assistant/init", model.InitRequest{MatchResultID: "mr-msgs"})
	req = httptest.NewRequest(http.MethodGet, "/api/assistant/session/mr-msgs/messages", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp model.TranscriptResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// greeting + init outcome
	if len(resp.Messages) != 2 || resp.Messages[0].Content != service.MsgGreeting {
		t.Fatalf("transcript = %+v", resp.Messages)
	}
}

func TestResetEndpointKeepsInitState(t *testing.T) {
	t.Parallel()

	mock := &rag.Mock{InitResult: rag.InitResult{SourceURL: "https://example.com/doc.pdf", ChunksIndexed: 2}}
	r := newAssistantRouter(t, mock)

	postJSON(t, r, "/api/assistant/init", model.InitRequest{MatchResultID: "mr-reset"})
	w := postJSON(t, r, "/api/assistant/reset", model.ResetRequest{MatchResultID: "mr-reset"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	resp := decodeSession(t, w)
	if resp.State != model.StateReady {
		t.Fatalf("state = %s, reset should not drop the retrieval context", resp.State)
	}
	if len(resp.Messages) != 1 || resp.Messages[0].Content != service.MsgGreeting {
		t.Fatalf("transcript after reset = %+v", resp.Messages)
	}
}
