package voice

import (
	"context"
	"iter"
	"strings"
	"time"
)

// DefaultWordDelay approximates the speaking rate of the voice backends.
// It is a fixed constant; the real clip duration is never measured, so
// text and audio only roughly line up.
const DefaultWordDelay = 180 * time.Millisecond

// Words lazily splits text into words.
func Words(text string) iter.Seq[string] {
	return strings.FieldsSeq(text)
}

// Pacer reveals a reply word by word at a constant delay.
type Pacer struct {
	Delay time.Duration
	sleep func(ctx context.Context, d time.Duration) error
}

func NewPacer(delay time.Duration) *Pacer {
	if delay <= 0 {
		delay = DefaultWordDelay
	}
	return &Pacer{Delay: delay, sleep: sleepCtx}
}

// Reveal calls emit once per word, waiting Delay after each one. It stops
// early when ctx ends or emit fails.
func (p *Pacer) Reveal(ctx context.Context, text string, emit func(word string) error) error {
	for w := range Words(text) {
		if err := emit(w); err != nil {
			return err
		}
		if err := p.sleep(ctx, p.Delay); err != nil {
			return err
		}
	}
	return nil
}

// Estimate is how long Reveal takes for text.
func (p *Pacer) Estimate(text string) time.Duration {
	n := 0
	for range Words(text) {
		n++
	}
	return time.Duration(n) * p.Delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
