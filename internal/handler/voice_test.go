package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"rashid-gateway/internal/voice"
)

type nopRecognizer struct{}

func (nopRecognizer) Start() {}
func (nopRecognizer) Abort() {}

type nopSpeaker struct{}

func (nopSpeaker) Stop() {}

type recordingSink struct {
	mu      sync.Mutex
	entries []string
}

func (r *recordingSink) record(ctx context.Context, matchResultID, role, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, matchResultID+"/"+role+"/"+text)
}

func newVoiceRouter(sink *recordingSink) (*gin.Engine, *voice.Agent) {
	gin.SetMode(gin.TestMode)
	agent := voice.NewAgent(nopRecognizer{}, nopSpeaker{}, sink.record)
	h := NewVoiceHandler(agent)

	r := gin.New()
	api := r.Group("/api/voice")
	{
		api.POST("/attach", h.Attach)
		api.POST("/toggle", h.Toggle)
		api.POST("/text", h.Text)
		api.GET("/state", h.State)
	}
	return r, agent
}

func voicePost(t *testing.T, r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestVoiceToggleReflectsInState(t *testing.T) {
	t.Parallel()

	r, _ := newVoiceRouter(&recordingSink{})

	w := voicePost(t, r, "/api/voice/toggle", `{"enabled":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var st voice.State
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !st.VoiceEnabled {
		t.Fatalf("state = %+v, want voice enabled", st)
	}

	w = voicePost(t, r, "/api/voice/toggle", `{"enabled":false}`)
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.VoiceEnabled {
		t.Fatalf("state = %+v, want voice disabled", st)
	}
}

func TestVoiceTextRoutesToSink(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	r, _ := newVoiceRouter(sink)

	if w := voicePost(t, r, "/api/voice/attach", `{"match_result_id":"mr-v"}`); w.Code != http.StatusOK {
		t.Fatalf("attach status = %d", w.Code)
	}
	if w := voicePost(t, r, "/api/voice/text", `{"text":"كم التمويل المتاح؟"}`); w.Code != http.StatusOK {
		t.Fatalf("text status = %d", w.Code)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.entries) != 1 || sink.entries[0] != "mr-v/user/كم التمويل المتاح؟" {
		t.Fatalf("sink entries = %v", sink.entries)
	}
}

func TestVoiceTextRequiresBody(t *testing.T) {
	t.Parallel()

	r, _ := newVoiceRouter(&recordingSink{})
	if w := voicePost(t, r, "/api/voice/text", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
