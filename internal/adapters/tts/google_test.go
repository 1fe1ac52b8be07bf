package tts

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/weaver-agent/internal/domain"
)

type fakeSpeechAPI struct {
	got  *texttospeechpb.SynthesizeSpeechRequest
	resp *texttospeechpb.SynthesizeSpeechResponse
	err  error
}

func (f *fakeSpeechAPI) SynthesizeSpeech(_ context.Context, req *texttospeechpb.SynthesizeSpeechRequest, _ ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error) {
	f.got = req
	return f.resp, f.err
}

func (f *fakeSpeechAPI) Close() error { return nil }

func TestGoogleSynthesize(t *testing.T) {
	api := &fakeSpeechAPI{resp: &texttospeechpb.SynthesizeSpeechResponse{AudioContent: []byte("mp3")}}
	g := &GoogleClient{api: api}

	clip, err := g.Synthesize(context.Background(), domain.SpeechRequest{Text: "Restart it", Language: "en", Slow: true})
	require.NoError(t, err)

	assert.Equal(t, []byte("mp3"), clip.Data)
	assert.Equal(t, MIMEMP3, clip.MIMEType)
	assert.Equal(t, "Restart it", api.got.GetInput().GetText())
	assert.Equal(t, "en-US", api.got.GetVoice().GetLanguageCode())
	assert.Equal(t, texttospeechpb.AudioEncoding_MP3, api.got.GetAudioConfig().GetAudioEncoding())
	assert.InDelta(t, slowRate, api.got.GetAudioConfig().GetSpeakingRate(), 0.001)
}

func TestGoogleSynthesizeQuotaError(t *testing.T) {
	api := &fakeSpeechAPI{err: status.Error(codes.ResourceExhausted, "too many requests")}
	g := &GoogleClient{api: api}

	_, err := g.Synthesize(context.Background(), domain.SpeechRequest{Text: "hi"})

	var vErr *domain.VoiceSynthesisError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, googleBackend, vErr.Backend)
	assert.Contains(t, err.Error(), "quota exhausted")
	assert.Equal(t, codes.ResourceExhausted, status.Code(errors.Unwrap(vErr.Err)))
}

func TestLanguageCode(t *testing.T) {
	assert.Equal(t, "en-US", languageCode(""))
	assert.Equal(t, "en-US", languageCode("en"))
	assert.Equal(t, "en-GB", languageCode("en-GB"))
	assert.Equal(t, "es-ES", languageCode("es"))
	assert.Equal(t, "ja", languageCode("ja"))
}
