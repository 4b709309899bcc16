package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"tubequiz/internal/domain"
)

// BlobStore uploads local files to object storage and deletes them afterwards.
type BlobStore interface {
	Upload(ctx context.Context, key, localPath string) (uri string, err error)
	Delete(ctx context.Context, key string) error
}

// JobStatus is the lifecycle state of a managed transcription job.
type JobStatus string

const (
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// JobState is a point-in-time snapshot of a transcription job.
type JobState struct {
	Status        JobStatus
	ResultURI     string
	FailureReason string
}

// JobRunner starts and polls managed transcription jobs.
type JobRunner interface {
	Start(ctx context.Context, jobName, mediaURI string) error
	Poll(ctx context.Context, jobName string) (JobState, error)
}

// Service runs the audio-to-text fallback: upload the artifact, start a job,
// poll until a terminal status or the deadline, then fetch and flatten the
// result payload. The uploaded blob is removed on every exit path.
type Service struct {
	blobs        BlobStore
	jobs         JobRunner
	httpClient   *http.Client
	pollInterval time.Duration
	timeout      time.Duration
}

func NewService(blobs BlobStore, jobs JobRunner, pollInterval, timeout time.Duration) *Service {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Service{
		blobs:        blobs,
		jobs:         jobs,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		pollInterval: pollInterval,
		timeout:      timeout,
	}
}

// Transcribe converts the audio artifact at localPath into a transcript.
// observe, when non-nil, is told when the upload starts and when the job
// itself begins; the upload of a long video is slow enough to deserve its own
// progress signal.
func (s *Service) Transcribe(ctx context.Context, localPath string, ref domain.VideoRef, observe func(domain.Stage)) (domain.Transcript, error) {
	notify := func(stage domain.Stage) {
		if observe != nil {
			observe(stage)
		}
	}
	key := fmt.Sprintf("audio/%s-%s.mp3", ref.ID, uuid.NewString()[:8])

	notify(domain.StageUploading)
	uri, err := s.blobs.Upload(ctx, key, localPath)
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("%w: %w", domain.ErrUpload, err)
	}
	defer func() {
		if err := s.blobs.Delete(context.WithoutCancel(ctx), key); err != nil {
			log.Printf("delete audio blob %s: %v", key, err)
		}
	}()

	notify(domain.StageTranscribing)
	jobName := "tubequiz-" + ref.ID + "-" + uuid.NewString()[:8]
	if err := s.jobs.Start(ctx, jobName, uri); err != nil {
		return domain.Transcript{}, fmt.Errorf("start transcription job: %w", err)
	}

	state, err := s.waitForJob(ctx, jobName)
	if err != nil {
		return domain.Transcript{}, err
	}

	text, err := s.fetchResult(ctx, state.ResultURI)
	if err != nil {
		return domain.Transcript{}, fmt.Errorf("fetch transcription result: %w", err)
	}
	if text == "" {
		return domain.Transcript{}, fmt.Errorf("%w: empty transcript payload", domain.ErrTranscriptionFailed)
	}
	return domain.Transcript{Text: text, Source: domain.TranscriptTranscribed}, nil
}

// waitForJob polls at a fixed interval until the job reaches a terminal state,
// the deadline passes, or the caller cancels.
func (s *Service) waitForJob(ctx context.Context, jobName string) (JobState, error) {
	deadline := time.NewTimer(s.timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return JobState{}, fmt.Errorf("%w: %w", domain.ErrTranscriptionTimeout, ctx.Err())
		case <-deadline.C:
			return JobState{}, fmt.Errorf("%w: job %s still running after %s", domain.ErrTranscriptionTimeout, jobName, s.timeout)
		case <-ticker.C:
		}

		state, err := s.jobs.Poll(ctx, jobName)
		if err != nil {
			return JobState{}, fmt.Errorf("poll transcription job: %w", err)
		}
		switch state.Status {
		case JobCompleted:
			return state, nil
		case JobFailed:
			return JobState{}, fmt.Errorf("%w: %s", domain.ErrTranscriptionFailed, state.FailureReason)
		}
	}
}

// transcribeResult mirrors the relevant slice of the AWS Transcribe output
// document; timing and confidence metadata are deliberately ignored.
type transcribeResult struct {
	Results struct {
		Transcripts []struct {
			Transcript string `json:"transcript"`
		} `json:"transcripts"`
	} `json:"results"`
}

func (s *Service) fetchResult(ctx context.Context, uri string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var result transcribeResult
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse result payload: %w", err)
	}

	parts := make([]string, 0, len(result.Results.Transcripts))
	for _, t := range result.Results.Transcripts {
		if t.Transcript != "" {
			parts = append(parts, t.Transcript)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " ")), nil
}
