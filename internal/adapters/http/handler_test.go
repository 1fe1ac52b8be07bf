package httpadapter_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/PabloGalante/weaver-agent/internal/adapters/http"
	"github.com/PabloGalante/weaver-agent/internal/adapters/llm"
	"github.com/PabloGalante/weaver-agent/internal/adapters/storage/memory"
	"github.com/PabloGalante/weaver-agent/internal/adapters/tts"
	"github.com/PabloGalante/weaver-agent/internal/app/conversation"
	"github.com/PabloGalante/weaver-agent/internal/app/diagnostics"
	"github.com/PabloGalante/weaver-agent/internal/app/voice"
	"github.com/PabloGalante/weaver-agent/internal/domain"
)

type failingLLM struct{}

func (failingLLM) GenerateReply(context.Context, domain.ReplyRequest) (string, error) {
	return "", errors.New("upstream 503")
}

func newTestServer(t *testing.T, gen domain.ReplyGenerator) http.Handler {
	t.Helper()

	renderer := voice.NewRenderer(tts.NewMockTTS(), voice.Options{Backend: "mock"})
	svc := conversation.NewService(gen, renderer, memory.NewSessionStore(), memory.NewTranscriptStore(), conversation.Options{
		Persona:   domain.Persona{Instruction: llm.PersonaInstruction, Model: "gemini-test"},
		ReplyMode: domain.ReplyModeChat,
	})

	var diag *diagnostics.Service
	if gen != nil {
		diag = diagnostics.NewService(llm.NewMockLLM())
	} else {
		diag = diagnostics.NewService(nil)
	}

	return httpadapter.NewServer(svc, diag, voice.NewPacer(time.Millisecond), "mock")
}

func do(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	} else {
		r = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, srv http.Handler) string {
	t.Helper()

	w := do(t, srv, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var out struct {
		Session struct {
			ID string `json:"id"`
		} `json:"session"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	require.NotEmpty(t, out.Session.ID)
	return out.Session.ID
}

type cycleOut struct {
	Decision      string `json:"decision"`
	Notice        string `json:"notice"`
	AssistantTurn *struct {
		Seq     int64  `json:"seq"`
		Content string `json:"content"`
	} `json:"assistant_turn"`
	Voice *struct {
		State     string `json:"state"`
		AudioURL  string `json:"audio_url"`
		RevealURL string `json:"reveal_url"`
	} `json:"voice"`
	Turns []struct {
		Role     string `json:"role"`
		Modality string `json:"modality"`
		Content  string `json:"content"`
	} `json:"turns"`
}

func decodeCycle(t *testing.T, w *httptest.ResponseRecorder) cycleOut {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out cycleOut
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, llm.NewMockLLM())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestIndexServesPage(t *testing.T) {
	srv := newTestServer(t, llm.NewMockLLM())

	w := do(t, srv, http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "<title>Weaver</title>")
}

func TestTextCycleThenAudioAndReveal(t *testing.T) {
	srv := newTestServer(t, llm.NewMockLLM())
	id := createSession(t, srv)

	out := decodeCycle(t, do(t, srv, http.MethodPost, "/sessions/"+id+"/cycles", map[string]string{"text": "Hello"}))

	assert.Equal(t, "text", out.Decision)
	require.Len(t, out.Turns, 2)
	assert.Equal(t, "user", out.Turns[0].Role)
	assert.Equal(t, "assistant", out.Turns[1].Role)
	require.NotNil(t, out.Voice)
	assert.Equal(t, string(voice.StateReady), out.Voice.State)
	require.NotEmpty(t, out.Voice.AudioURL)

	audio := do(t, srv, http.MethodGet, out.Voice.AudioURL, nil)
	assert.Equal(t, http.StatusOK, audio.Code)
	assert.Equal(t, tts.MIMEMP3, audio.Header().Get("Content-Type"))
	assert.NotEmpty(t, audio.Body.Bytes())

	reveal := do(t, srv, http.MethodGet, out.Voice.RevealURL, nil)
	assert.Equal(t, http.StatusOK, reveal.Code)
	assert.Equal(t, "text/event-stream", reveal.Header().Get("Content-Type"))

	body := reveal.Body.String()
	words := strings.Fields(out.AssistantTurn.Content)
	assert.Equal(t, len(words), strings.Count(body, "event: word"))
	assert.Contains(t, body, "event: done")
}

func TestVoiceCycleDedup(t *testing.T) {
	srv := newTestServer(t, llm.NewMockLLM())
	id := createSession(t, srv)

	payload := map[string]string{
		"audio_base64":      base64.StdEncoding.EncodeToString([]byte("RIFF0000WAVE")),
		"audio_fingerprint": "rec-1",
		"text":              "ignored",
	}

	first := decodeCycle(t, do(t, srv, http.MethodPost, "/sessions/"+id+"/cycles", payload))
	assert.Equal(t, "voice", first.Decision)
	require.Len(t, first.Turns, 2)
	assert.Equal(t, "voice", first.Turns[0].Modality)
	assert.Equal(t, domain.VoicePlaceholder, first.Turns[0].Content)

	again := decodeCycle(t, do(t, srv, http.MethodPost, "/sessions/"+id+"/cycles", map[string]string{
		"audio_base64":      payload["audio_base64"],
		"audio_fingerprint": "rec-1",
	}))
	assert.Equal(t, "none", again.Decision)
	assert.Len(t, again.Turns, 2)
}

func TestMultipartCycle(t *testing.T) {
	srv := newTestServer(t, llm.NewMockLLM())
	id := createSession(t, srv)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("audio_fingerprint", "rec-9"))
	part, err := mw.CreateFormFile("audio", "capture.wav")
	require.NoError(t, err)
	_, err = part.Write([]byte("RIFF1111WAVE"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/cycles", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	out := decodeCycle(t, w)
	assert.Equal(t, "voice", out.Decision)
}

func TestGenerationFailureReturnsNotice(t *testing.T) {
	srv := newTestServer(t, failingLLM{})
	id := createSession(t, srv)

	out := decodeCycle(t, do(t, srv, http.MethodPost, "/sessions/"+id+"/cycles", map[string]string{"text": "printer?"}))

	assert.Equal(t, conversation.GenerationNotice, out.Notice)
	assert.Nil(t, out.AssistantTurn)
	require.Len(t, out.Turns, 1)
	assert.Equal(t, "user", out.Turns[0].Role)
}

func TestResetEndpoint(t *testing.T) {
	srv := newTestServer(t, llm.NewMockLLM())
	id := createSession(t, srv)

	decodeCycle(t, do(t, srv, http.MethodPost, "/sessions/"+id+"/cycles", map[string]string{"text": "Hello"}))

	w := do(t, srv, http.MethodPost, "/sessions/"+id+"/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var tl struct {
		Turns []any `json:"turns"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&tl))
	assert.Empty(t, tl.Turns)
}

func TestNotConfigured(t *testing.T) {
	srv := newTestServer(t, nil)

	w := do(t, srv, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st struct {
		Ready bool `json:"ready"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&st))
	assert.False(t, st.Ready)

	assert.Equal(t, http.StatusServiceUnavailable, do(t, srv, http.MethodPost, "/sessions", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, srv, http.MethodPost, "/sessions/x/cycles", map[string]string{"text": "hi"}).Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, srv, http.MethodGet, "/diagnostics/models", nil).Code)
}

func TestErrors(t *testing.T) {
	srv := newTestServer(t, llm.NewMockLLM())
	id := createSession(t, srv)

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/sessions/missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/sessions/"+id+"/turns/99/audio", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/sessions/"+id+"/turns/abc/audio", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, srv, http.MethodGet, "/sessions/"+id+"/cycles", nil).Code)

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+id+"/cycles", strings.NewReader("{"))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDiagnosticsModels(t *testing.T) {
	srv := newTestServer(t, llm.NewMockLLM())

	w := do(t, srv, http.MethodGet, "/diagnostics/models", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var out struct {
		Models []string `json:"models"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	assert.Equal(t, []string{"models/mock"}, out.Models)
}
