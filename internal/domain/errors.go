package domain

import "errors"

var (
	// ErrInvalidVideoReference is returned when no video id can be extracted from the input.
	ErrInvalidVideoReference = errors.New("invalid video reference")
	// ErrNoCaptions signals the expected no-transcript branch: none published,
	// captions disabled, or the video is private/restricted. It triggers the
	// fallback path and is never surfaced as a failure by itself.
	ErrNoCaptions = errors.New("no caption track available")
	// ErrAudioDownload is returned when the audio stream cannot be downloaded.
	ErrAudioDownload = errors.New("audio download failed")
	// ErrUpload is returned when the audio artifact cannot be placed in the bucket.
	ErrUpload = errors.New("audio upload failed")
	// ErrTranscriptionFailed indicates the managed transcription job reported failure.
	ErrTranscriptionFailed = errors.New("transcription job failed")
	// ErrTranscriptionTimeout indicates the job did not finish within the poll deadline.
	ErrTranscriptionTimeout = errors.New("transcription timed out")
	// ErrTranscriptAcquisition is the terminal acquisition error; it always wraps
	// the fault from whichever stage broke.
	ErrTranscriptAcquisition = errors.New("transcript acquisition failed")
	// ErrGenerationParse indicates the backend's quiz payload violated the schema.
	// Never retried: a schema violation is a flawed generation, not a transient fault.
	ErrGenerationParse = errors.New("quiz generation returned malformed payload")
	// ErrGenerationUnavailable indicates a backend/network fault during generation.
	ErrGenerationUnavailable = errors.New("quiz generation backend unavailable")
	// ErrEvaluationUnavailable indicates a backend fault during answer grading;
	// the affected attempt stays pending.
	ErrEvaluationUnavailable = errors.New("answer evaluation backend unavailable")

	// ErrSessionNotFound is returned for unknown or expired session ids.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrItemNotFound indicates a submitted item index is out of range.
	ErrItemNotFound = errors.New("quiz item not found")
	// ErrAlreadyGraded indicates the attempt already holds a final verdict.
	ErrAlreadyGraded = errors.New("answer already graded")
)
