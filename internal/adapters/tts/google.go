package tts

import (
	"context"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/weaver-agent/internal/domain"
)

const (
	googleBackend = "google"
	slowRate      = 0.75
)

// speechAPI is the part of the Cloud Text-to-Speech client we use.
type speechAPI interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
	Close() error
}

// GoogleClient speaks replies with Cloud Text-to-Speech, MP3 output.
type GoogleClient struct {
	api speechAPI
}

// NewGoogleClient uses apiKey when set, otherwise application default credentials.
func NewGoogleClient(ctx context.Context, apiKey string) (*GoogleClient, error) {
	var opts []option.ClientOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	c, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating text-to-speech client: %w", err)
	}
	return &GoogleClient{api: c}, nil
}

func (g *GoogleClient) Synthesize(ctx context.Context, req domain.SpeechRequest) (*domain.VoiceClip, error) {
	rate := 1.0
	if req.Slow {
		rate = slowRate
	}

	resp, err := g.api.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: req.Text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: languageCode(req.Language),
			SsmlGender:   texttospeechpb.SsmlVoiceGender_NEUTRAL,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  rate,
		},
	})
	if err != nil {
		return nil, &domain.VoiceSynthesisError{Backend: googleBackend, Err: classify(err)}
	}

	return &domain.VoiceClip{Data: resp.GetAudioContent(), MIMEType: MIMEMP3}, nil
}

func (g *GoogleClient) Close() error {
	return g.api.Close()
}

// languageCode turns a bare tag like "en" into a BCP-47 code Cloud TTS
// has voices for.
func languageCode(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "en-US"
	}
	if strings.Contains(tag, "-") {
		return tag
	}
	switch strings.ToLower(tag) {
	case "en":
		return "en-US"
	case "es":
		return "es-ES"
	case "pt":
		return "pt-BR"
	case "fr":
		return "fr-FR"
	case "de":
		return "de-DE"
	default:
		return tag
	}
}

func classify(err error) error {
	switch status.Code(err) {
	case codes.ResourceExhausted:
		return fmt.Errorf("quota exhausted: %w", err)
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("credential rejected: %w", err)
	case codes.InvalidArgument:
		return fmt.Errorf("request rejected: %w", err)
	default:
		return err
	}
}
