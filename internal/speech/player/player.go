// Package player plays finished MP3 artifacts on the local audio device.
package player

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// Player owns the speaker. The speaker is initialised once, on first use.
type Player struct {
	mu         sync.Mutex
	sampleRate beep.SampleRate
}

func New() *Player {
	return &Player{}
}

// Decode checks that data is playable MP3 and reports its duration.
func Decode(data []byte) (time.Duration, error) {
	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return 0, fmt.Errorf("failed to decode MP3: %w", err)
	}
	defer streamer.Close()
	return format.SampleRate.D(streamer.Len()), nil
}

// Play blocks until data has played or ctx is done.
func (p *Player) Play(ctx context.Context, data []byte) error {
	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return fmt.Errorf("failed to decode MP3: %w", err)
	}
	defer streamer.Close()

	if err := p.init(format.SampleRate); err != nil {
		return err
	}

	var source beep.Streamer = streamer
	if format.SampleRate != p.sampleRate {
		source = beep.Resample(4, format.SampleRate, p.sampleRate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(source, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

func (p *Player) init(rate beep.SampleRate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sampleRate != 0 {
		return nil
	}
	if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
		return fmt.Errorf("failed to initialise speaker: %w", err)
	}
	p.sampleRate = rate
	return nil
}
