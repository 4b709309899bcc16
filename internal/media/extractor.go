package media

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"

	"tubequiz/internal/domain"
)

// Extractor downloads a video's audio-only stream as mp3 by shelling out to yt-dlp.
type Extractor struct {
	binPath string
	tempDir string
	run     func(ctx context.Context, name string, args ...string) error
}

// NewExtractor locates yt-dlp on PATH and prepares a working directory for
// temporary audio artifacts.
func NewExtractor() (*Extractor, error) {
	binPath, err := exec.LookPath("yt-dlp")
	if err != nil {
		return nil, fmt.Errorf("yt-dlp not found in PATH: %w", err)
	}

	tempDir := filepath.Join(os.TempDir(), "tubequiz-audio")
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}

	return &Extractor{
		binPath: binPath,
		tempDir: tempDir,
		run:     runCommand,
	}, nil
}

// Extract downloads the best audio stream and converts it to mp3. It returns
// the artifact path and a cleanup func the caller must invoke on every exit
// path; cleanup is safe to call more than once.
func (e *Extractor) Extract(ctx context.Context, ref domain.VideoRef) (string, func(), error) {
	outPath := filepath.Join(e.tempDir, ref.ID+".mp3")
	template := filepath.Join(e.tempDir, ref.ID+".%(ext)s")

	args := []string{
		"-f", "bestaudio/best",
		"-x",
		"--audio-format", "mp3",
		"--audio-quality", "192K",
		"--no-playlist",
		"-o", template,
		ref.URL(),
	}

	if err := e.run(ctx, e.binPath, args...); err != nil {
		os.Remove(outPath)
		return "", nil, fmt.Errorf("%w: %w", domain.ErrAudioDownload, err)
	}
	if _, err := os.Stat(outPath); err != nil {
		return "", nil, fmt.Errorf("%w: expected artifact missing: %w", domain.ErrAudioDownload, err)
	}

	cleanup := func() {
		if err := os.Remove(outPath); err != nil && !os.IsNotExist(err) {
			log.Printf("remove audio artifact %s: %v", outPath, err)
		}
	}
	return outPath, cleanup, nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := bytes.TrimSpace(stderr.Bytes())
		if len(msg) > 0 {
			return fmt.Errorf("%s: %s: %w", name, msg, err)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
