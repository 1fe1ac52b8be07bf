package memory_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/weaver-agent/internal/adapters/storage/memory"
	"github.com/PabloGalante/weaver-agent/internal/domain"
)

const sid = domain.SessionID("s-1")

func newStore(t *testing.T) *memory.TranscriptStore {
	t.Helper()
	store := memory.NewTranscriptStore()
	require.NoError(t, store.Open(sid))
	return store
}

func TestAppendKeepsCreationOrder(t *testing.T) {
	store := newStore(t)

	contents := []string{"one", "two", "three", "four", "five"}
	for _, c := range contents {
		_, err := store.Append(sid, domain.NewTextTurn(c))
		require.NoError(t, err)
	}

	turns, err := store.AllTurns(sid)
	require.NoError(t, err)
	require.Len(t, turns, len(contents))

	for i, turn := range turns {
		assert.Equal(t, contents[i], turn.Content)
		if i > 0 {
			assert.Greater(t, turn.Seq, turns[i-1].Seq)
		}
	}
}

func TestAppendRejectsEmptyContent(t *testing.T) {
	store := newStore(t)

	_, err := store.Append(sid, domain.NewTextTurn(""))
	assert.ErrorIs(t, err, domain.ErrEmptyContent)

	turns, err := store.AllTurns(sid)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestUnknownSession(t *testing.T) {
	store := memory.NewTranscriptStore()

	_, err := store.Append("missing", domain.NewTextTurn("hi"))
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, store.Reset("missing"), domain.ErrSessionNotFound)
}

func TestSequenceNotReusedAfterReset(t *testing.T) {
	store := newStore(t)

	first, err := store.Append(sid, domain.NewTextTurn("before"))
	require.NoError(t, err)
	require.NoError(t, store.Reset(sid))

	second, err := store.Append(sid, domain.NewTextTurn("after"))
	require.NoError(t, err)
	assert.Greater(t, second.Seq, first.Seq)
}

func TestAllTurnsIsSnapshot(t *testing.T) {
	store := newStore(t)
	_, err := store.Append(sid, domain.NewTextTurn("hello"))
	require.NoError(t, err)

	snap, err := store.AllTurns(sid)
	require.NoError(t, err)
	snap[0].Content = "changed"

	_, err = store.Append(sid, domain.NewAssistantTurn("hi"))
	require.NoError(t, err)

	turns, err := store.AllTurns(sid)
	require.NoError(t, err)
	assert.Equal(t, "hello", turns[0].Content)
	assert.Len(t, snap, 1)
}

func TestResetClearsTurnsAndFingerprint(t *testing.T) {
	store := newStore(t)
	_, err := store.AppendVoiceTurn(sid, "cap-1", domain.NewVoiceTurn())
	require.NoError(t, err)

	require.NoError(t, store.Reset(sid))

	turns, fp, err := store.State(sid)
	require.NoError(t, err)
	assert.Empty(t, turns)
	assert.Empty(t, fp)
}

// A reader racing with resets must only ever observe both parts set or
// both parts cleared.
func TestResetHasNoIntermediateState(t *testing.T) {
	store := newStore(t)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = store.Reset(sid)
			_, _ = store.AppendVoiceTurn(sid, "cap", domain.NewVoiceTurn())
		}
		close(stop)
	}()

	for {
		select {
		case <-stop:
			wg.Wait()
			return
		default:
		}

		turns, fp, err := store.State(sid)
		require.NoError(t, err)
		if len(turns) == 0 {
			assert.Empty(t, fp, "fingerprint survived a cleared transcript")
		} else {
			assert.NotEmpty(t, fp, "transcript survived a cleared fingerprint")
		}
	}
}
