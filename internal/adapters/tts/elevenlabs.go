package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/PabloGalante/weaver-agent/internal/domain"
)

const (
	elevenBackend  = "elevenlabs"
	elevenBaseURL  = "https://api.elevenlabs.io"
	elevenModelID  = "eleven_flash_v2_5"
	elevenSlowRate = 0.8
)

// ElevenLabsClient is a non-streaming ElevenLabs text-to-speech client.
type ElevenLabsClient struct {
	APIKey  string
	VoiceID string
	BaseURL string

	httpClient *http.Client
}

func NewElevenLabsClient(apiKey, voiceID string) *ElevenLabsClient {
	return &ElevenLabsClient{
		APIKey:     apiKey,
		VoiceID:    voiceID,
		BaseURL:    elevenBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type elevenRequest struct {
	Text          string              `json:"text"`
	ModelID       string              `json:"model_id"`
	LanguageCode  string              `json:"language_code,omitempty"`
	VoiceSettings elevenVoiceSettings `json:"voice_settings"`
}

type elevenVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed"`
}

func (e *ElevenLabsClient) Synthesize(ctx context.Context, req domain.SpeechRequest) (*domain.VoiceClip, error) {
	if e.APIKey == "" || e.VoiceID == "" {
		return nil, &domain.VoiceSynthesisError{Backend: elevenBackend, Err: fmt.Errorf("api key or voice id missing")}
	}

	u, err := url.Parse(e.BaseURL)
	if err != nil {
		return nil, &domain.VoiceSynthesisError{Backend: elevenBackend, Err: err}
	}
	u = u.JoinPath("v1", "text-to-speech", e.VoiceID)
	q := u.Query()
	q.Set("output_format", "mp3_44100_128")
	u.RawQuery = q.Encode()

	speed := 1.0
	if req.Slow {
		speed = elevenSlowRate
	}
	body, err := json.Marshal(elevenRequest{
		Text:         req.Text,
		ModelID:      elevenModelID,
		LanguageCode: req.Language,
		VoiceSettings: elevenVoiceSettings{
			Stability:       0.4,
			SimilarityBoost: 0.7,
			Speed:           speed,
		},
	})
	if err != nil {
		return nil, &domain.VoiceSynthesisError{Backend: elevenBackend, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, &domain.VoiceSynthesisError{Backend: elevenBackend, Err: err}
	}
	httpReq.Header.Set("xi-api-key", e.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", MIMEMP3)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, &domain.VoiceSynthesisError{Backend: elevenBackend, Err: fmt.Errorf("http error: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &domain.VoiceSynthesisError{
			Backend: elevenBackend,
			Err:     fmt.Errorf("http status=%d body=%s", resp.StatusCode, string(b)),
		}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.VoiceSynthesisError{Backend: elevenBackend, Err: fmt.Errorf("read error: %w", err)}
	}

	return &domain.VoiceClip{Data: audio, MIMEType: MIMEMP3}, nil
}
