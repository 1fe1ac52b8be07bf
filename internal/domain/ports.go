package domain

import "context"

// ReplyRequest carries exactly one of Text or Audio.
type ReplyRequest struct {
	Persona Persona
	History []Turn // empty in single mode
	Text    string
	Audio   *AudioCapture
}

// ReplyGenerator defines how the core application talks to the language model.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, req ReplyRequest) (string, error)
}

// SpeechRequest is what a voice backend needs to speak a reply.
type SpeechRequest struct {
	Text     string
	Language string
	Slow     bool
}

// SpeechSynthesizer converts text to an encoded audio clip.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, req SpeechRequest) (*VoiceClip, error)
}

// ModelInfo describes a model the credential can reach.
type ModelInfo struct {
	Name    string
	Actions []string
}

// ModelLister lists the models available to the configured credential.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// SessionStore defines session's persistence
type SessionStore interface {
	CreateSession(session *Session) error
	UpdateSession(session *Session) error
	GetSession(id SessionID) (*Session, error)
}

// TranscriptStore keeps the ordered turns and the last seen audio
// fingerprint of every session.
type TranscriptStore interface {
	Open(sessionID SessionID) error
	Append(sessionID SessionID, turn Turn) (Turn, error)
	AllTurns(sessionID SessionID) ([]Turn, error)
	Reset(sessionID SessionID) error
	State(sessionID SessionID) ([]Turn, Fingerprint, error)
	AppendVoiceTurn(sessionID SessionID, fp Fingerprint, turn Turn) (Turn, error)
}
