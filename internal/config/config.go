package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/PabloGalante/weaver-agent/internal/domain"
)

type LLMBackend string

const (
	LLMGemini LLMBackend = "gemini" // Gemini API, API key
	LLMVertex LLMBackend = "vertex" // Vertex AI, ADC credentials
	LLMMock   LLMBackend = "mock"
)

type VoiceBackend string

const (
	VoiceGoogle     VoiceBackend = "google"
	VoiceElevenLabs VoiceBackend = "elevenlabs"
	VoiceMock       VoiceBackend = "mock"
	VoiceNone       VoiceBackend = "none"
)

type Config struct {
	Port string

	LLMBackend   LLMBackend
	GoogleAPIKey string
	GCPProjectID string
	GCPLocation  string
	ModelName    string
	ReplyMode    domain.ReplyMode
	ModelTimeout time.Duration

	VoiceBackend      VoiceBackend
	VoiceLanguage     string
	VoiceSlow         bool
	ElevenLabsKey     string
	ElevenLabsVoiceID string
	RevealWordDelay   time.Duration

	LogLevel string
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("config: invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}

// Load reads a .env file if present, then all env vars, and builds the config
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}

	cfg := &Config{
		Port: getEnv("WEAVER_PORT", getEnv("PORT", "8080")),

		LLMBackend:   parseLLMBackend(getEnv("WEAVER_LLM_BACKEND", "gemini")),
		GoogleAPIKey: getEnv("GOOGLE_API_KEY", ""),
		GCPProjectID: getEnv("WEAVER_GCP_PROJECT", ""),
		GCPLocation:  getEnv("WEAVER_GCP_LOCATION", "us-central1"),
		ModelName:    getEnv("WEAVER_MODEL_NAME", "gemini-2.5-flash"),
		ReplyMode:    parseReplyMode(getEnv("WEAVER_REPLY_MODE", "chat")),
		ModelTimeout: getDurationEnv("WEAVER_MODEL_TIMEOUT", 60*time.Second),

		VoiceBackend:      parseVoiceBackend(getEnv("WEAVER_VOICE_BACKEND", "google")),
		VoiceLanguage:     getEnv("WEAVER_VOICE_LANGUAGE", "en"),
		VoiceSlow:         getBoolEnv("WEAVER_VOICE_SLOW", false),
		ElevenLabsKey:     getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID: getEnv("ELEVENLABS_VOICE_ID", ""),
		RevealWordDelay:   getDurationEnv("WEAVER_REVEAL_WORD_DELAY", 180*time.Millisecond),

		LogLevel: getEnv("WEAVER_LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate reports domain.ErrConfigurationMissing when the selected model
// backend has no credential. The server still starts, in a not-ready state.
func (c *Config) Validate() error {
	switch c.LLMBackend {
	case LLMGemini:
		if c.GoogleAPIKey == "" {
			return fmt.Errorf("%w: GOOGLE_API_KEY is not set", domain.ErrConfigurationMissing)
		}
	case LLMVertex:
		if c.GCPProjectID == "" || c.GCPLocation == "" {
			return fmt.Errorf("%w: WEAVER_GCP_PROJECT and WEAVER_GCP_LOCATION must be set", domain.ErrConfigurationMissing)
		}
	}
	return nil
}

// Persona is the fixed instruction and model for every call.
func (c *Config) Persona(instruction string) domain.Persona {
	return domain.Persona{Instruction: instruction, Model: c.ModelName}
}

func parseLLMBackend(s string) LLMBackend {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vertex":
		return LLMVertex
	case "mock":
		return LLMMock
	default:
		return LLMGemini
	}
}

func parseVoiceBackend(s string) VoiceBackend {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "elevenlabs", "11labs":
		return VoiceElevenLabs
	case "mock":
		return VoiceMock
	case "none", "off", "":
		return VoiceNone
	default:
		return VoiceGoogle
	}
}

func parseReplyMode(s string) domain.ReplyMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single", "stateless":
		return domain.ReplyModeSingle
	default:
		return domain.ReplyModeChat
	}
}
