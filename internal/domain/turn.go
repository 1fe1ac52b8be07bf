package domain

// Turn is one user or assistant contribution. Turns are never mutated
// after they are appended to a transcript.
type Turn struct {
	Seq       int64
	Role      Role
	Modality  Modality
	Content   string
	CreatedAt Timestamp
}

// NewTextTurn builds a typed user turn.
func NewTextTurn(text string) Turn {
	return Turn{Role: RoleUser, Modality: ModalityText, Content: text}
}

// NewVoiceTurn builds a spoken user turn. The audio itself is not part of
// the turn; only the placeholder is kept for rendering.
func NewVoiceTurn() Turn {
	return Turn{Role: RoleUser, Modality: ModalityVoice, Content: VoicePlaceholder}
}

// NewAssistantTurn builds a model reply turn.
func NewAssistantTurn(text string) Turn {
	return Turn{Role: RoleAssistant, Modality: ModalityText, Content: text}
}

// AudioCapture is one discrete recording produced by the page.
type AudioCapture struct {
	Fingerprint Fingerprint
	Data        []byte
	MIMEType    string
}

// VoiceClip is an encoded reply audio ready for playback.
type VoiceClip struct {
	Data     []byte
	MIMEType string
}

// Session is the per-tab conversation. Its transcript lives in the
// storage layer; this struct only carries the identity.
type Session struct {
	ID        SessionID
	CreatedAt Timestamp
	UpdatedAt Timestamp
}

// Persona is fixed at startup and sent on every model call.
type Persona struct {
	Instruction string
	Model       string
}
