package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tubequiz/internal/domain"
)

// CaptionSource attempts direct transcript retrieval. A video without captions
// yields domain.ErrNoCaptions; anything else is a transient fault.
type CaptionSource interface {
	Fetch(ctx context.Context, ref domain.VideoRef) (domain.Transcript, error)
}

// AudioExtractor downloads the audio-only stream; the returned cleanup func
// removes the temporary artifact and must run on all exit paths.
type AudioExtractor interface {
	Extract(ctx context.Context, ref domain.VideoRef) (path string, cleanup func(), err error)
}

// Transcriber turns an audio artifact into a transcript via managed
// speech-to-text. observe, when non-nil, receives the upload and transcribe
// stage transitions as the job progresses.
type Transcriber interface {
	Transcribe(ctx context.Context, localPath string, ref domain.VideoRef, observe func(domain.Stage)) (domain.Transcript, error)
}

// Pipeline implements the two-tier acquisition policy: direct captions are
// cheap but not guaranteed to exist, transcription always works but costs
// storage and minutes of latency, so it is strictly the fallback.
type Pipeline struct {
	captions     CaptionSource
	audio        AudioExtractor
	transcriber  Transcriber
	retryBackoff time.Duration
}

func New(captions CaptionSource, audio AudioExtractor, transcriber Transcriber, retryBackoff time.Duration) *Pipeline {
	if retryBackoff <= 0 {
		retryBackoff = 2 * time.Second
	}
	return &Pipeline{
		captions:     captions,
		audio:        audio,
		transcriber:  transcriber,
		retryBackoff: retryBackoff,
	}
}

// Acquire produces a transcript for the video. observe, when non-nil, receives
// stage transitions as the pipeline advances. The fallback path runs at most
// once; any terminal fault comes back wrapped in domain.ErrTranscriptAcquisition.
func (p *Pipeline) Acquire(ctx context.Context, ref domain.VideoRef, observe func(domain.Stage)) (domain.Transcript, error) {
	notify := func(stage domain.Stage) {
		if observe != nil {
			observe(stage)
		}
	}

	notify(domain.StageFetchingCaptions)
	transcript, captionErr := p.fetchDirect(ctx, ref)
	if captionErr == nil {
		return transcript, nil
	}
	if !errors.Is(captionErr, domain.ErrNoCaptions) {
		log.Printf("caption fetch failed for %s, falling back to transcription: %v", ref.ID, captionErr)
	}

	transcript, err := p.transcribeFallback(ctx, ref, captionErr, notify)
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("%w: %w", domain.ErrTranscriptAcquisition, err)
	}
	return transcript, nil
}

// fetchDirect tries the caption track, retrying once with backoff on
// transient faults. ErrNoCaptions is returned as-is so the caller falls back
// immediately.
func (p *Pipeline) fetchDirect(ctx context.Context, ref domain.VideoRef) (domain.Transcript, error) {
	transcript, err := p.captions.Fetch(ctx, ref)
	if err == nil || errors.Is(err, domain.ErrNoCaptions) {
		return transcript, err
	}

	select {
	case <-ctx.Done():
		return domain.Transcript{}, ctx.Err()
	case <-time.After(p.retryBackoff):
	}
	return p.captions.Fetch(ctx, ref)
}

// transcribeFallback runs the audio path. captionErr is the fault that forced
// the fallback; when the fallback itself cannot run, the returned error keeps
// it as cause so the caller sees what actually broke.
func (p *Pipeline) transcribeFallback(ctx context.Context, ref domain.VideoRef, captionErr error, notify func(domain.Stage)) (domain.Transcript, error) {
	if p.audio == nil || p.transcriber == nil {
		return domain.Transcript{}, fmt.Errorf("transcription fallback not configured: %w", captionErr)
	}

	notify(domain.StageDownloadingAudio)
	path, cleanup, err := p.audio.Extract(ctx, ref)
	if err != nil {
		return domain.Transcript{}, err
	}
	defer cleanup()

	return p.transcriber.Transcribe(ctx, path, ref, notify)
}
