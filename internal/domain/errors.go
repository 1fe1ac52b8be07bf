package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigurationMissing means no model credential is available.
	ErrConfigurationMissing = errors.New("assistant not configured")
	ErrSessionNotFound      = errors.New("session not found")
	ErrTurnNotFound         = errors.New("turn not found")
	ErrEmptyContent         = errors.New("turn content is empty")
)

// GenerationError wraps an upstream model failure.
type GenerationError struct {
	Backend string
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Backend, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// VoiceSynthesisError wraps an upstream text-to-speech failure.
type VoiceSynthesisError struct {
	Backend string
	Err     error
}

func (e *VoiceSynthesisError) Error() string {
	return fmt.Sprintf("%s voice synthesis failed: %v", e.Backend, e.Err)
}

func (e *VoiceSynthesisError) Unwrap() error { return e.Err }
