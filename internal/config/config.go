package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Session struct {
		TTL string `yaml:"ttl"`
	} `yaml:"session"`
	YouTube struct {
		// CaptionBaseURL overrides the timedtext endpoint (tests, proxies).
		CaptionBaseURL string `yaml:"captionBaseUrl"`
	} `yaml:"youtube"`
	AWS struct {
		Region string `yaml:"region"`
		Bucket string `yaml:"bucket"`
	} `yaml:"aws"`
	Transcribe struct {
		Language     string `yaml:"language"`
		PollInterval string `yaml:"pollInterval"`
		Timeout      string `yaml:"timeout"`
	} `yaml:"transcribe"`
	OpenAI struct {
		// APIKey is normally supplied via OPENAI_API_KEY instead.
		APIKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
	} `yaml:"openai"`
	Quiz struct {
		NumQuestions int `yaml:"numQuestions"`
		// MCQRatio is a pointer so an absent key falls through to the
		// built-in default while an explicit 0 is honored.
		MCQRatio      *float64 `yaml:"mcqRatio"`
		TranscriptTTL string   `yaml:"transcriptTtl"`
	} `yaml:"quiz"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
