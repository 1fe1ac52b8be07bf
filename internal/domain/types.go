package domain

import "time"

type SessionID string

// Fingerprint identifies one audio capture. Two captures with the same
// fingerprint are the same recording presented again.
type Fingerprint string

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Modality string

const (
	ModalityText  Modality = "text"  // typed by the user
	ModalityVoice Modality = "voice" // recorded by the user
)

// ReplyMode selects whether the model sees the prior transcript.
type ReplyMode string

const (
	ReplyModeChat   ReplyMode = "chat"   // full prior transcript as history
	ReplyModeSingle ReplyMode = "single" // stateless, only the new turn
)

// VoicePlaceholder is the displayable content of a voice user turn.
const VoicePlaceholder = "🎤 (Voice message)"

// AudioWAV is the only capture encoding accepted from the page.
const AudioWAV = "audio/wav"

type Timestamp = time.Time
