package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstranscribe "github.com/aws/aws-sdk-go-v2/service/transcribe"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"tubequiz/internal/app"
	"tubequiz/internal/config"
	"tubequiz/internal/domain"
	"tubequiz/internal/genai"
	"tubequiz/internal/infra/memory"
	redisstore "tubequiz/internal/infra/redis"
	"tubequiz/internal/media"
	"tubequiz/internal/pipeline"
	"tubequiz/internal/transcribe"
	transport "tubequiz/internal/transport/http"
	"tubequiz/internal/youtube"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		apiKey = cfg.OpenAI.APIKey
	}
	backend := genai.NewOpenAIBackend(apiKey, cfg.OpenAI.Model)

	captions := youtube.NewCaptionClient(cfg.YouTube.CaptionBaseURL)
	acquirer := buildAcquirer(ctx, cfg, captions)

	sessionTTL := config.Duration(cfg.Session.TTL, time.Hour)
	var sessions app.SessionStore = memory.NewSessionStore(sessionTTL)
	if cfg.Redis.Addr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		sessions = redisstore.NewSessionStore(client, sessionTTL)
	}

	service := app.NewSessionService(sessions, acquirer, genai.NewGenerator(backend), genai.NewEvaluator(backend))
	service.SetGenerationDefaults(domain.GenerationConfig{
		NumQuestions: cfg.Quiz.NumQuestions,
		MCQRatio:     cfg.Quiz.MCQRatio,
	})
	handler := transport.NewHandler(service)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)
	mux.HandleFunc("/ws/quizzes", wsHandler.ServeWS)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// Quiz creation can sit on the transcription fallback for minutes.
		WriteTimeout: 15 * time.Minute,
	}

	go func() {
		log.Printf("starting tubequiz on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildAcquirer assembles the acquisition pipeline. The transcription
// fallback needs yt-dlp on PATH plus an S3 bucket; without either the server
// still runs on the caption-only path and logs why.
func buildAcquirer(ctx context.Context, cfg config.Config, captions *youtube.CaptionClient) app.TranscriptAcquirer {
	var (
		audio       pipeline.AudioExtractor
		transcriber pipeline.Transcriber
	)

	extractor, err := media.NewExtractor()
	if err != nil {
		log.Printf("transcription fallback disabled: %v", err)
	} else if cfg.AWS.Bucket == "" {
		log.Printf("transcription fallback disabled: aws.bucket not configured")
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
		if err != nil {
			log.Printf("transcription fallback disabled: load aws config: %v", err)
		} else {
			audio = extractor
			transcriber = transcribe.NewService(
				transcribe.NewS3BlobStore(s3.NewFromConfig(awsCfg), cfg.AWS.Bucket),
				transcribe.NewTranscribeJobRunner(awstranscribe.NewFromConfig(awsCfg), cfg.Transcribe.Language),
				config.Duration(cfg.Transcribe.PollInterval, 5*time.Second),
				config.Duration(cfg.Transcribe.Timeout, 10*time.Minute),
			)
		}
	}

	p := pipeline.New(captions, audio, transcriber, 2*time.Second)
	transcriptTTL := config.Duration(cfg.Quiz.TranscriptTTL, 30*time.Minute)
	return memory.NewTranscriptCache(p, transcriptTTL)
}
