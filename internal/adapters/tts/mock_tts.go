package tts

import (
	"context"

	"github.com/PabloGalante/weaver-agent/internal/domain"
)

// MIMEMP3 is the container every backend returns.
const MIMEMP3 = "audio/mpeg"

// MockTTS returns a tiny fixed clip. Useful for local dev without credentials.
type MockTTS struct{}

func NewMockTTS() *MockTTS {
	return &MockTTS{}
}

// silentFrame is one silent MPEG-1 Layer III frame.
var silentFrame = append([]byte{0xFF, 0xFB, 0x90, 0x64}, make([]byte, 413)...)

func (m *MockTTS) Synthesize(_ context.Context, req domain.SpeechRequest) (*domain.VoiceClip, error) {
	data := make([]byte, len(silentFrame))
	copy(data, silentFrame)
	return &domain.VoiceClip{Data: data, MIMEType: MIMEMP3}, nil
}
