package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/weaver-agent/internal/app/turn"
	"github.com/PabloGalante/weaver-agent/internal/app/voice"
	"github.com/PabloGalante/weaver-agent/internal/domain"
	"github.com/PabloGalante/weaver-agent/internal/observability"
)

// GenerationNotice is shown to the user when the model call fails.
const GenerationNotice = "Sorry, I couldn't reach the assistant just now. Please try again."

type Options struct {
	Persona      domain.Persona
	ReplyMode    domain.ReplyMode
	ModelTimeout time.Duration
}

// Service runs one render cycle at a time per session:
// classify -> append user turn -> reply -> append assistant turn -> voice.
type Service struct {
	llm          domain.ReplyGenerator
	renderer     *voice.Renderer
	sessionStore domain.SessionStore
	transcripts  domain.TranscriptStore
	opts         Options
	now          func() time.Time

	mu       sync.Mutex
	runtimes map[domain.SessionID]*runtime
}

// runtime is the per-session processing state the transcript doesn't hold.
type runtime struct {
	mu sync.Mutex // held for a whole cycle or reset

	rmu        sync.RWMutex
	renditions map[int64]*voice.Rendition
}

// NewService builds the turn processor. A nil llm means no credential was
// configured: the service stays in the not-ready state.
func NewService(
	llm domain.ReplyGenerator,
	renderer *voice.Renderer,
	sessionStore domain.SessionStore,
	transcripts domain.TranscriptStore,
	opts Options,
) *Service {
	if renderer == nil {
		renderer = voice.NewRenderer(nil, voice.Options{})
	}
	if opts.ReplyMode == "" {
		opts.ReplyMode = domain.ReplyModeChat
	}
	return &Service{
		llm:          llm,
		renderer:     renderer,
		sessionStore: sessionStore,
		transcripts:  transcripts,
		opts:         opts,
		now:          time.Now,
		runtimes:     make(map[domain.SessionID]*runtime),
	}
}

func (s *Service) Ready() bool { return s.llm != nil }

func (s *Service) ReplyMode() domain.ReplyMode { return s.opts.ReplyMode }

func (s *Service) Model() string { return s.opts.Persona.Model }

func (s *Service) runtimeFor(id domain.SessionID) *runtime {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.runtimes[id]
	if !ok {
		rt = &runtime{renditions: make(map[int64]*voice.Rendition)}
		s.runtimes[id] = rt
	}
	return rt
}

func (s *Service) StartSession(ctx context.Context) (*domain.Session, error) {
	if !s.Ready() {
		return nil, domain.ErrConfigurationMissing
	}

	now := s.now()
	session := &domain.Session{
		ID:        domain.SessionID(uuid.NewString()),
		CreatedAt: now,
		UpdatedAt: now,
	}

	log := observability.LoggerFromContext(ctx).With("session_id", session.ID)

	if err := s.sessionStore.CreateSession(session); err != nil {
		log.Error("failed to create session", "error", err)
		return nil, err
	}
	if err := s.transcripts.Open(session.ID); err != nil {
		log.Error("failed to open transcript", "error", err)
		return nil, err
	}

	log.Info("session started")
	return session, nil
}

type CycleInput struct {
	SessionID domain.SessionID
	Text      string
	Audio     *domain.AudioCapture
}

type CycleOutput struct {
	Decision      turn.Kind
	UserTurn      *domain.Turn
	AssistantTurn *domain.Turn
	Rendition     *voice.Rendition

	// Notice is a user-visible message about a recovered failure.
	Notice string
	// Err is the recovered failure behind Notice, if any.
	Err error

	Turns []domain.Turn
}

// ProcessCycle handles one triggering event. Model and voice failures are
// recovered here and reported through CycleOutput; only session lookup and
// storage errors are returned.
func (s *Service) ProcessCycle(ctx context.Context, in CycleInput) (*CycleOutput, error) {
	if !s.Ready() {
		return nil, domain.ErrConfigurationMissing
	}

	session, err := s.sessionStore.GetSession(in.SessionID)
	if err != nil {
		return nil, err
	}

	ctx = observability.WithSessionID(ctx, string(session.ID))
	log := observability.LoggerFromContext(ctx).With("reply_mode", s.opts.ReplyMode)

	rt := s.runtimeFor(session.ID)
	rt.mu.Lock()
	defer rt.mu.Unlock()

	history, lastSeen, err := s.transcripts.State(session.ID)
	if err != nil {
		return nil, err
	}

	decision := turn.Classify(turn.Input{Audio: in.Audio, Text: in.Text, LastSeen: lastSeen})
	out := &CycleOutput{Decision: decision.Kind}

	if decision.DroppedText {
		log.Debug("input_ambiguity: typed text dropped in favour of audio")
	}

	var userTurn domain.Turn
	switch decision.Kind {
	case turn.NoNewTurn:
		out.Turns = history
		return out, nil
	case turn.NewVoiceTurn:
		userTurn, err = s.transcripts.AppendVoiceTurn(session.ID, decision.Fingerprint, domain.NewVoiceTurn())
	case turn.NewTextTurn:
		userTurn, err = s.transcripts.Append(session.ID, domain.NewTextTurn(decision.Text))
	}
	if err != nil {
		log.Error("failed to append user turn", "error", err)
		return nil, err
	}
	out.UserTurn = &userTurn
	log.Info("user turn appended", "seq", userTurn.Seq, "modality", userTurn.Modality)

	req := domain.ReplyRequest{
		Persona: s.opts.Persona,
		Text:    decision.Text,
		Audio:   decision.Audio,
	}
	if s.opts.ReplyMode == domain.ReplyModeChat {
		req.History = history
	}

	reply, err := s.generate(ctx, req)
	if err != nil {
		log.Error("reply generation failed", "seq", userTurn.Seq, "error", err)
		out.Notice = GenerationNotice
		out.Err = err
		out.Turns, err = s.transcripts.AllTurns(session.ID)
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	assistantTurn, err := s.transcripts.Append(session.ID, domain.NewAssistantTurn(reply))
	if err != nil {
		log.Error("failed to append assistant turn", "error", err)
		return nil, err
	}
	out.AssistantTurn = &assistantTurn

	rend := s.renderer.Render(ctx, reply)
	rt.rmu.Lock()
	rt.renditions[assistantTurn.Seq] = rend
	rt.rmu.Unlock()
	out.Rendition = rend

	session.UpdatedAt = s.now()
	if err := s.sessionStore.UpdateSession(session); err != nil {
		log.Error("failed to update session", "error", err)
		return nil, err
	}

	out.Turns, err = s.transcripts.AllTurns(session.ID)
	if err != nil {
		return nil, err
	}

	log.Info("cycle completed", "seq", assistantTurn.Seq, "voice_state", rend.State())
	return out, nil
}

func (s *Service) generate(ctx context.Context, req domain.ReplyRequest) (string, error) {
	if s.opts.ModelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ModelTimeout)
		defer cancel()
	}

	reply, err := s.llm.GenerateReply(ctx, req)
	if err != nil {
		var genErr *domain.GenerationError
		if !errors.As(err, &genErr) {
			err = &domain.GenerationError{Backend: "model", Err: err}
		}
		return "", err
	}
	if reply == "" {
		return "", &domain.GenerationError{Backend: "model", Err: errors.New("empty reply")}
	}
	return reply, nil
}

// Reset clears the transcript, the audio fingerprint and the voice clips of
// a session. It waits for an in-flight cycle to finish.
func (s *Service) Reset(ctx context.Context, id domain.SessionID) error {
	if _, err := s.sessionStore.GetSession(id); err != nil {
		return err
	}

	rt := s.runtimeFor(id)
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if err := s.transcripts.Reset(id); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to reset transcript", "session_id", id, "error", err)
		return err
	}
	rt.rmu.Lock()
	rt.renditions = make(map[int64]*voice.Rendition)
	rt.rmu.Unlock()

	observability.LoggerFromContext(ctx).Info("session reset", "session_id", id)
	return nil
}

func (s *Service) GetSessionTimeline(ctx context.Context, id domain.SessionID) (*domain.Session, []domain.Turn, error) {
	log := observability.LoggerFromContext(ctx).With("session_id", id)

	session, err := s.sessionStore.GetSession(id)
	if err != nil {
		log.Error("failed to get session", "error", err)
		return nil, nil, err
	}

	turns, err := s.transcripts.AllTurns(id)
	if err != nil {
		log.Error("failed to get turns", "error", err)
		return nil, nil, err
	}

	log.Info("fetched session timeline", "turn_count", len(turns))
	return session, turns, nil
}

// Rendition returns the voice of an assistant turn.
func (s *Service) Rendition(_ context.Context, id domain.SessionID, seq int64) (*voice.Rendition, error) {
	if _, err := s.sessionStore.GetSession(id); err != nil {
		return nil, err
	}

	rt := s.runtimeFor(id)
	rt.rmu.RLock()
	defer rt.rmu.RUnlock()

	rend, ok := rt.renditions[seq]
	if !ok {
		return nil, domain.ErrTurnNotFound
	}
	return rend, nil
}
