package domain_test

import (
	"testing"

	"tubequiz/internal/domain"
)

func TestGenerationConfigDefaults(t *testing.T) {
	cfg := domain.GenerationConfig{}.Normalized()
	if cfg.NumQuestions != domain.DefaultNumQuestions {
		t.Fatalf("numQuestions = %d", cfg.NumQuestions)
	}
	if cfg.MCQRatio == nil || *cfg.MCQRatio != domain.DefaultMCQRatio {
		t.Fatalf("mcqRatio = %v", cfg.MCQRatio)
	}
	if cfg.MCQCount() != 3 {
		t.Fatalf("mcq count = %d", cfg.MCQCount())
	}
}

func TestGenerationConfigPartialKeepsRatioDefault(t *testing.T) {
	// only the question count is set; the ratio must still default
	cfg := domain.GenerationConfig{NumQuestions: 4}.Normalized()
	if cfg.NumQuestions != 4 {
		t.Fatalf("numQuestions = %d", cfg.NumQuestions)
	}
	if cfg.MCQRatio == nil || *cfg.MCQRatio != domain.DefaultMCQRatio {
		t.Fatalf("mcqRatio = %v", cfg.MCQRatio)
	}
	if cfg.MCQCount() != 3 {
		t.Fatalf("mcq count = %d, want 3", cfg.MCQCount())
	}
}

func TestGenerationConfigExplicitZeroRatio(t *testing.T) {
	cfg := domain.GenerationConfig{NumQuestions: 4, MCQRatio: domain.Ratio(0)}.Normalized()
	if *cfg.MCQRatio != 0 {
		t.Fatalf("explicit zero ratio overridden: %v", *cfg.MCQRatio)
	}
	if cfg.MCQCount() != 0 {
		t.Fatalf("mcq count = %d, want 0", cfg.MCQCount())
	}
}

func TestGenerationConfigWithDefaults(t *testing.T) {
	defaults := domain.GenerationConfig{NumQuestions: 7, MCQRatio: domain.Ratio(0.5)}

	merged := domain.GenerationConfig{}.WithDefaults(defaults)
	if merged.NumQuestions != 7 || merged.MCQRatio == nil || *merged.MCQRatio != 0.5 {
		t.Fatalf("merged = %+v", merged)
	}

	// request-level settings win over the configured defaults
	merged = domain.GenerationConfig{NumQuestions: 2, MCQRatio: domain.Ratio(1)}.WithDefaults(defaults)
	if merged.NumQuestions != 2 || *merged.MCQRatio != 1 {
		t.Fatalf("merged = %+v", merged)
	}

	// zero-value defaults leave the config untouched for Normalized to fill
	merged = domain.GenerationConfig{}.WithDefaults(domain.GenerationConfig{})
	if merged.NumQuestions != 0 || merged.MCQRatio != nil {
		t.Fatalf("merged = %+v", merged)
	}
}

func TestMCQCountClamping(t *testing.T) {
	if got := (domain.GenerationConfig{NumQuestions: 3, MCQRatio: domain.Ratio(1)}).MCQCount(); got != 3 {
		t.Fatalf("mcq count = %d, want 3", got)
	}
	if got := (domain.GenerationConfig{NumQuestions: 8, MCQRatio: domain.Ratio(domain.DefaultMCQRatio)}).MCQCount(); got != 5 {
		t.Fatalf("mcq count = %d, want 5", got)
	}
}
