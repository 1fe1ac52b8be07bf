package memory

import (
	"sync"
	"time"

	"github.com/PabloGalante/weaver-agent/internal/domain"
)

// transcript is the state of one session. turns and fingerprint share a
// single lock so Reset never exposes one cleared without the other.
type transcript struct {
	mu          sync.RWMutex
	turns       []domain.Turn
	nextSeq     int64
	fingerprint domain.Fingerprint
}

// TranscriptStore is an in-memory implementation of domain.TranscriptStore.
// It is NOT persistent; sessions live as long as the process.
type TranscriptStore struct {
	mu          sync.RWMutex
	transcripts map[domain.SessionID]*transcript
	now         func() time.Time
}

func NewTranscriptStore() *TranscriptStore {
	return &TranscriptStore{
		transcripts: make(map[domain.SessionID]*transcript),
		now:         time.Now,
	}
}

// Open registers an empty transcript for a session. Opening an existing
// session is a no-op.
func (s *TranscriptStore) Open(sessionID domain.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.transcripts[sessionID]; !ok {
		s.transcripts[sessionID] = &transcript{nextSeq: 1}
	}
	return nil
}

func (s *TranscriptStore) get(sessionID domain.SessionID) (*transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transcripts[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return t, nil
}

// Append adds turn at the end and assigns the next sequence index.
// Sequence indexes keep growing across resets and are never reused.
func (s *TranscriptStore) Append(sessionID domain.SessionID, turn domain.Turn) (domain.Turn, error) {
	if turn.Content == "" {
		return domain.Turn{}, domain.ErrEmptyContent
	}

	t, err := s.get(sessionID)
	if err != nil {
		return domain.Turn{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	return s.appendLocked(t, turn), nil
}

func (s *TranscriptStore) appendLocked(t *transcript, turn domain.Turn) domain.Turn {
	turn.Seq = t.nextSeq
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = s.now()
	}
	t.nextSeq++
	t.turns = append(t.turns, turn)
	return turn
}

// AllTurns returns a snapshot in creation order.
func (s *TranscriptStore) AllTurns(sessionID domain.SessionID) ([]domain.Turn, error) {
	t, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]domain.Turn, len(t.turns))
	copy(out, t.turns)
	return out, nil
}

// Reset clears the turns and the audio fingerprint together.
func (s *TranscriptStore) Reset(sessionID domain.SessionID) error {
	t, err := s.get(sessionID)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.turns = nil
	t.fingerprint = ""
	return nil
}

// AppendVoiceTurn records the capture fingerprint and appends its turn
// in one step.
func (s *TranscriptStore) AppendVoiceTurn(sessionID domain.SessionID, fp domain.Fingerprint, turn domain.Turn) (domain.Turn, error) {
	if turn.Content == "" {
		return domain.Turn{}, domain.ErrEmptyContent
	}

	t, err := s.get(sessionID)
	if err != nil {
		return domain.Turn{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.fingerprint = fp
	return s.appendLocked(t, turn), nil
}

// State returns the turns and the fingerprint read under one lock.
func (s *TranscriptStore) State(sessionID domain.SessionID) ([]domain.Turn, domain.Fingerprint, error) {
	t, err := s.get(sessionID)
	if err != nil {
		return nil, "", err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]domain.Turn, len(t.turns))
	copy(out, t.turns)
	return out, t.fingerprint, nil
}
