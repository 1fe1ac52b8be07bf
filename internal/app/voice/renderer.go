package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PabloGalante/weaver-agent/internal/domain"
	"github.com/PabloGalante/weaver-agent/internal/observability"
)

type State string

const (
	StateIdle         State = "idle"
	StateSynthesizing State = "synthesizing"
	StateReady        State = "ready"
	StatePlaying      State = "playing"
	StateSkipped      State = "skipped"
)

var transitions = map[State][]State{
	StateIdle:         {StateSynthesizing, StateSkipped},
	StateSynthesizing: {StateReady, StateSkipped},
	StateReady:        {StatePlaying, StateSkipped},
}

// Rendition is the voice of one assistant turn.
type Rendition struct {
	mu    sync.Mutex
	text  string
	state State
	clip  *domain.VoiceClip
	err   error
}

func newRendition(text string) *Rendition {
	return &Rendition{text: text, state: StateIdle}
}

func (r *Rendition) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Rendition) Text() string { return r.text }

// Err is the synthesis failure, if the rendition was skipped because of one.
func (r *Rendition) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Rendition) transition(to State) error {
	for _, next := range transitions[r.state] {
		if next == to {
			r.state = to
			return nil
		}
	}
	return fmt.Errorf("voice: invalid transition %s -> %s", r.state, to)
}

// MarkPlaying hands the clip to the caller. It reports false if there is
// no clip to play. Once handed over the renderer no longer tracks it, so
// the clip stays fetchable while Playing.
func (r *Rendition) MarkPlaying() (*domain.VoiceClip, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateReady:
		_ = r.transition(StatePlaying)
		return r.clip, true
	case StatePlaying:
		return r.clip, true
	default:
		return nil, false
	}
}

// Skip records that the shell chose not to play the clip.
func (r *Rendition) Skip() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == StateReady {
		_ = r.transition(StateSkipped)
	}
}

// Options configure what the renderer asks the backend for.
type Options struct {
	Backend  string
	Language string
	Slow     bool
}

// Renderer turns reply text into audio. Audio is best effort: failures end
// in StateSkipped and never reach the caller as errors.
type Renderer struct {
	synth domain.SpeechSynthesizer
	opts  Options
}

// NewRenderer builds a renderer. A nil synth disables voice.
func NewRenderer(synth domain.SpeechSynthesizer, opts Options) *Renderer {
	if opts.Language == "" {
		opts.Language = "en"
	}
	if opts.Backend == "" {
		opts.Backend = "none"
	}
	return &Renderer{synth: synth, opts: opts}
}

func (r *Renderer) Enabled() bool { return r.synth != nil }

func (r *Renderer) Render(ctx context.Context, text string) *Rendition {
	rend := newRendition(text)
	log := observability.LoggerFromContext(ctx).With("voice_backend", r.opts.Backend)

	rend.mu.Lock()
	defer rend.mu.Unlock()

	if r.synth == nil || strings.TrimSpace(text) == "" {
		_ = rend.transition(StateSkipped)
		return rend
	}

	_ = rend.transition(StateSynthesizing)

	clip, err := r.synth.Synthesize(ctx, domain.SpeechRequest{
		Text:     text,
		Language: r.opts.Language,
		Slow:     r.opts.Slow,
	})
	if err == nil && (clip == nil || len(clip.Data) == 0) {
		err = errors.New("backend returned no audio")
	}
	if err != nil {
		var vErr *domain.VoiceSynthesisError
		if !errors.As(err, &vErr) {
			err = &domain.VoiceSynthesisError{Backend: r.opts.Backend, Err: err}
		}
		log.Warn("voice synthesis failed, reply stays text only", "error", err)
		rend.err = err
		_ = rend.transition(StateSkipped)
		return rend
	}

	rend.clip = clip
	_ = rend.transition(StateReady)
	log.Debug("voice ready", "bytes", len(clip.Data))
	return rend
}
