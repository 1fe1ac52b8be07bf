// Package turn decides which raw input of a render cycle, if any, starts a
// new conversational turn.
package turn

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/PabloGalante/weaver-agent/internal/domain"
)

type Kind string

const (
	NoNewTurn    Kind = "none"
	NewTextTurn  Kind = "text"
	NewVoiceTurn Kind = "voice"
)

// Input is everything the page sent in one cycle plus the fingerprint of
// the last processed capture.
type Input struct {
	Audio    *domain.AudioCapture
	Text     string
	LastSeen domain.Fingerprint
}

// Decision is the classifier's verdict. Fingerprint is the value the
// session must remember after this cycle.
type Decision struct {
	Kind        Kind
	Text        string
	Audio       *domain.AudioCapture
	Fingerprint domain.Fingerprint

	// DroppedText is set when typed text lost to a new capture.
	DroppedText bool
}

// Classify applies the rules in priority order: a new capture, then
// non-empty typed text, then nothing. A capture whose fingerprint equals
// LastSeen is a re-render of an already processed recording.
func Classify(in Input) Decision {
	text := strings.TrimSpace(in.Text)

	if in.Audio != nil && len(in.Audio.Data) > 0 {
		fp := in.Audio.Fingerprint
		if fp == "" {
			fp = FingerprintOf(in.Audio.Data)
		}
		if fp != in.LastSeen {
			capture := *in.Audio
			capture.Fingerprint = fp
			return Decision{
				Kind:        NewVoiceTurn,
				Audio:       &capture,
				Fingerprint: fp,
				DroppedText: text != "",
			}
		}
	}

	if text != "" {
		return Decision{Kind: NewTextTurn, Text: text, Fingerprint: in.LastSeen}
	}

	return Decision{Kind: NoNewTurn, Fingerprint: in.LastSeen}
}

// FingerprintOf derives an identity from the capture bytes, for pages
// that don't send one.
func FingerprintOf(data []byte) domain.Fingerprint {
	sum := sha256.Sum256(data)
	return domain.Fingerprint(hex.EncodeToString(sum[:]))
}
