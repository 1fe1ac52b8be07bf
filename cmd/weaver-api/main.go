package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/PabloGalante/weaver-agent/internal/adapters/http"
	"github.com/PabloGalante/weaver-agent/internal/adapters/llm"
	memstore "github.com/PabloGalante/weaver-agent/internal/adapters/storage/memory"
	"github.com/PabloGalante/weaver-agent/internal/adapters/tts"
	"github.com/PabloGalante/weaver-agent/internal/app/conversation"
	"github.com/PabloGalante/weaver-agent/internal/app/diagnostics"
	"github.com/PabloGalante/weaver-agent/internal/app/voice"
	"github.com/PabloGalante/weaver-agent/internal/config"
	"github.com/PabloGalante/weaver-agent/internal/domain"
	"github.com/PabloGalante/weaver-agent/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	observability.SetLevel(cfg.LogLevel)
	log := observability.Logger()

	// Model: without a credential we still serve the page, in a not-ready state
	var (
		replyGen domain.ReplyGenerator
		lister   domain.ModelLister
	)
	if err := cfg.Validate(); err != nil {
		log.Warn("assistant not configured", "error", err)
	} else {
		switch cfg.LLMBackend {
		case config.LLMMock:
			log.Info("using mock LLM client")
			m := llm.NewMockLLM()
			replyGen, lister = m, m
		default:
			log.Info("using Gemini client", "backend", cfg.LLMBackend, "model", cfg.ModelName)
			g, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{
				APIKey:    cfg.GoogleAPIKey,
				Project:   cfg.GCPProjectID,
				Location:  cfg.GCPLocation,
				UseVertex: cfg.LLMBackend == config.LLMVertex,
				ModelName: cfg.ModelName,
			})
			if err != nil {
				log.Error("error initializing Gemini client", "error", err)
				os.Exit(1)
			}
			replyGen, lister = g, g
		}
	}

	// Voice: best effort, a broken backend only disables audio
	synth := newSynthesizer(ctx, cfg)
	if synth == nil {
		cfg.VoiceBackend = config.VoiceNone
	}
	renderer := voice.NewRenderer(synth, voice.Options{
		Backend:  string(cfg.VoiceBackend),
		Language: cfg.VoiceLanguage,
		Slow:     cfg.VoiceSlow,
	})

	svc := conversation.NewService(
		replyGen,
		renderer,
		memstore.NewSessionStore(),
		memstore.NewTranscriptStore(),
		conversation.Options{
			Persona:      cfg.Persona(llm.PersonaInstruction),
			ReplyMode:    cfg.ReplyMode,
			ModelTimeout: cfg.ModelTimeout,
		},
	)
	diag := diagnostics.NewService(lister)

	handler := httpadapter.NewServer(svc, diag, voice.NewPacer(cfg.RevealWordDelay), string(cfg.VoiceBackend))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.ModelTimeout + 2*time.Minute, // model call + voice + reveal stream
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("Weaver API listening", "port", cfg.Port, "ready", svc.Ready(), "voice_backend", cfg.VoiceBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newSynthesizer(ctx context.Context, cfg *config.Config) domain.SpeechSynthesizer {
	log := observability.Logger().With("voice_backend", cfg.VoiceBackend)

	switch cfg.VoiceBackend {
	case config.VoiceGoogle:
		g, err := tts.NewGoogleClient(ctx, cfg.GoogleAPIKey)
		if err != nil {
			log.Warn("voice disabled", "error", err)
			return nil
		}
		return g
	case config.VoiceElevenLabs:
		if cfg.ElevenLabsKey == "" || cfg.ElevenLabsVoiceID == "" {
			log.Warn("voice disabled: ELEVENLABS_API_KEY and ELEVENLABS_VOICE_ID must be set")
			return nil
		}
		return tts.NewElevenLabsClient(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID)
	case config.VoiceMock:
		return tts.NewMockTTS()
	default:
		return nil
	}
}
