package httpadapter

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PabloGalante/weaver-agent/internal/app/conversation"
	"github.com/PabloGalante/weaver-agent/internal/app/diagnostics"
	"github.com/PabloGalante/weaver-agent/internal/app/voice"
	"github.com/PabloGalante/weaver-agent/internal/domain"
	"github.com/PabloGalante/weaver-agent/internal/observability"
)

const maxCycleBody = 16 << 20 // one recording

type Server struct {
	svc   *conversation.Service
	diag  *diagnostics.Service
	pacer *voice.Pacer
	voice string
}

// NewServer wires the routes. voiceBackend is only reported by /status.
func NewServer(svc *conversation.Service, diag *diagnostics.Service, pacer *voice.Pacer, voiceBackend string) http.Handler {
	if pacer == nil {
		pacer = voice.NewPacer(voice.DefaultWordDelay)
	}
	s := &Server{svc: svc, diag: diag, pacer: pacer, voice: voiceBackend}
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/diagnostics/models", s.handleModels)

	// /sessions → create session (POST)
	mux.HandleFunc("/sessions", s.handleSessions)

	// /sessions/{id}                    → GET: session + turns
	// /sessions/{id}/cycles             → POST: one render cycle
	// /sessions/{id}/reset              → POST: clear transcript
	// /sessions/{id}/turns/{seq}/audio  → GET: reply clip
	// /sessions/{id}/turns/{seq}/reveal → GET: paced words (SSE)
	mux.HandleFunc("/sessions/", s.handleSessionWithID)

	return chainMiddlewares(mux, withLogging, withCORS, withRequestID)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type cycleRequest struct {
	Text             string `json:"text"`
	AudioBase64      string `json:"audio_base64,omitempty"`
	AudioFingerprint string `json:"audio_fingerprint,omitempty"`
}

type statusResponse struct {
	Ready     bool   `json:"ready"`
	Notice    string `json:"notice,omitempty"`
	Model     string `json:"model"`
	ReplyMode string `json:"reply_mode"`
	Voice     string `json:"voice_backend"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type turnResponse struct {
	Seq       int64     `json:"seq"`
	Role      string    `json:"role"`
	Modality  string    `json:"modality"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type voiceResponse struct {
	State         string `json:"state"`
	AudioURL      string `json:"audio_url,omitempty"`
	RevealURL     string `json:"reveal_url"`
	WordDelayMS   int64  `json:"word_delay_ms"`
	EstimatedMS   int64  `json:"estimated_ms"`
	FailureReason string `json:"failure_reason,omitempty"`
}

type cycleResponse struct {
	Decision      string         `json:"decision"`
	UserTurn      *turnResponse  `json:"user_turn,omitempty"`
	AssistantTurn *turnResponse  `json:"assistant_turn,omitempty"`
	Notice        string         `json:"notice,omitempty"`
	Voice         *voiceResponse `json:"voice,omitempty"`
	Turns         []turnResponse `json:"turns"`
}

type timelineResponse struct {
	Session sessionResponse `json:"session"`
	Turns   []turnResponse  `json:"turns"`
}

type modelsResponse struct {
	Models []string `json:"models"`
}

// ─────────────────────────────────────────────
// Basic routing
// ─────────────────────────────────────────────

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Ready:     s.svc.Ready(),
		Model:     s.svc.Model(),
		ReplyMode: string(s.svc.ReplyMode()),
		Voice:     s.voice,
	}
	if !resp.Ready {
		resp.Notice = domain.ErrConfigurationMissing.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	names, err := s.diag.GenerativeModels(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrConfigurationMissing) {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": fmt.Sprintf("model listing failed: %v", err),
		})
		return
	}

	writeJSON(w, http.StatusOK, modelsResponse{Models: names})
}

// /sessions
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateSession(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleSessionWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/sessions/"), "/")
	parts := strings.Split(path, "/")
	id := domain.SessionID(parts[0])

	if id == "" {
		http.NotFound(w, r)
		return
	}

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleGetSession(w, r, id)

	case len(parts) == 2 && parts[1] == "cycles":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.handleCycle(w, r, id)

	case len(parts) == 2 && parts[1] == "reset":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.handleReset(w, r, id)

	case len(parts) == 4 && parts[1] == "turns":
		seq, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			badRequest(w, "invalid turn sequence")
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		switch parts[3] {
		case "audio":
			s.handleAudio(w, r, id, seq)
		case "reveal":
			s.handleReveal(w, r, id, seq)
		default:
			http.NotFound(w, r)
		}

	default:
		http.NotFound(w, r)
	}
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.svc.StartSession(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, timelineResponse{
		Session: toSessionResponse(session),
		Turns:   []turnResponse{},
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	session, turns, err := s.svc.GetSessionTimeline(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, timelineResponse{
		Session: toSessionResponse(session),
		Turns:   toTurnsResponse(turns),
	})
}

func (s *Server) handleCycle(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	if !s.svc.Ready() {
		writeError(w, domain.ErrConfigurationMissing)
		return
	}

	in, err := parseCycle(w, r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	in.SessionID = id

	out, err := s.svc.ProcessCycle(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := cycleResponse{
		Decision: string(out.Decision),
		Notice:   out.Notice,
		Turns:    toTurnsResponse(out.Turns),
	}
	if out.UserTurn != nil {
		t := toTurnResponse(*out.UserTurn)
		resp.UserTurn = &t
	}
	if out.AssistantTurn != nil {
		t := toTurnResponse(*out.AssistantTurn)
		resp.AssistantTurn = &t
		resp.Voice = s.toVoiceResponse(id, out.AssistantTurn.Seq, out.Rendition)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	if err := s.svc.Reset(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	s.handleGetSession(w, r, id)
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request, id domain.SessionID, seq int64) {
	rend, err := s.svc.Rendition(r.Context(), id, seq)
	if err != nil {
		writeError(w, err)
		return
	}

	clip, ok := rend.MarkPlaying()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "no audio for this turn",
			"state": string(rend.State()),
		})
		return
	}

	w.Header().Set("Content-Type", clip.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(clip.Data)))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(clip.Data)
}

// handleReveal streams the reply one word per event at the pacer delay.
// The stream runs independently of audio playback.
func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request, id domain.SessionID, seq int64) {
	rend, err := s.svc.Rendition(r.Context(), id, seq)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	send := func(event string, data any) error {
		b, err := json.Marshal(data)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b); err != nil {
			return err
		}
		return rc.Flush()
	}

	err = s.pacer.Reveal(r.Context(), rend.Text(), func(word string) error {
		return send("word", word)
	})
	if err != nil {
		observability.LoggerFromContext(r.Context()).Debug("reveal stopped early", "seq", seq, "error", err)
		return
	}
	_ = send("done", map[string]int64{"seq": seq})
}

// ─────────────────────────────────────────────
// Conversation Helpers
// ─────────────────────────────────────────────

// parseCycle accepts JSON or multipart (text, audio file, audio_fingerprint).
func parseCycle(w http.ResponseWriter, r *http.Request) (conversation.CycleInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCycleBody)

	var in conversation.CycleInput

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxCycleBody); err != nil {
			return in, fmt.Errorf("invalid multipart body")
		}
		in.Text = r.FormValue("text")

		file, _, err := r.FormFile("audio")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			return in, fmt.Errorf("invalid audio part")
		default:
			defer file.Close()
			data, err := io.ReadAll(file)
			if err != nil {
				return in, fmt.Errorf("audio part unreadable")
			}
			in.Audio = newCapture(data, r.FormValue("audio_fingerprint"))
		}
		return in, nil
	}

	var req cycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return in, fmt.Errorf("invalid JSON body")
	}
	in.Text = req.Text

	if req.AudioBase64 != "" {
		data, err := base64.StdEncoding.DecodeString(req.AudioBase64)
		if err != nil {
			return in, fmt.Errorf("audio_base64 is not valid base64")
		}
		in.Audio = newCapture(data, req.AudioFingerprint)
	}
	return in, nil
}

func newCapture(data []byte, fingerprint string) *domain.AudioCapture {
	if len(data) == 0 {
		return nil
	}
	return &domain.AudioCapture{
		Fingerprint: domain.Fingerprint(strings.TrimSpace(fingerprint)),
		Data:        data,
		MIMEType:    domain.AudioWAV,
	}
}

func (s *Server) toVoiceResponse(id domain.SessionID, seq int64, rend *voice.Rendition) *voiceResponse {
	base := fmt.Sprintf("/sessions/%s/turns/%d", id, seq)
	v := &voiceResponse{
		RevealURL:   base + "/reveal",
		WordDelayMS: s.pacer.Delay.Milliseconds(),
	}
	if rend == nil {
		v.State = string(voice.StateSkipped)
		return v
	}

	v.State = string(rend.State())
	v.EstimatedMS = s.pacer.Estimate(rend.Text()).Milliseconds()
	if rend.State() == voice.StateReady {
		v.AudioURL = base + "/audio"
	}
	if err := rend.Err(); err != nil {
		v.FailureReason = "voice unavailable"
	}
	return v
}

func toSessionResponse(s *domain.Session) sessionResponse {
	return sessionResponse{
		ID:        string(s.ID),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

func toTurnResponse(t domain.Turn) turnResponse {
	return turnResponse{
		Seq:       t.Seq,
		Role:      string(t.Role),
		Modality:  string(t.Modality),
		Content:   t.Content,
		CreatedAt: t.CreatedAt,
	}
}

func toTurnsResponse(turns []domain.Turn) []turnResponse {
	out := make([]turnResponse, 0, len(turns))
	for _, t := range turns {
		out = append(out, toTurnResponse(t))
	}
	return out
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrConfigurationMissing):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": domain.ErrConfigurationMissing.Error()})
	case errors.Is(err, domain.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
	case errors.Is(err, domain.ErrTurnNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "turn not found"})
	case errors.Is(err, domain.ErrEmptyContent):
		badRequest(w, err.Error())
	default:
		internalError(w, err)
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func internalError(w http.ResponseWriter, _ error) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error": "method not allowed",
	})
}
