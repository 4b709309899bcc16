package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"tubequiz/internal/domain"
)

const (
	generatorSystemPrompt = "You are an expert quiz author. Extract the key points from the transcript you are given and write questions that test understanding of the video's content. Phrase questions as being about the video, not about the transcript."

	mcqOptionCount = 4
)

// Generator turns a transcript into a structured quiz via the generative backend.
type Generator struct {
	backend    Backend
	retryDelay time.Duration
}

func NewGenerator(backend Backend) *Generator {
	return &Generator{backend: backend, retryDelay: 2 * time.Second}
}

// quizPayload is the tool-argument shape the backend must produce.
type quizPayload struct {
	Questions []questionPayload `json:"questions"`
}

type questionPayload struct {
	Question string   `json:"question"`
	Kind     string   `json:"kind"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

func quizSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{
							"type":        "string",
							"description": "The question text",
						},
						"kind": map[string]any{
							"type": "string",
							"enum": []string{string(domain.KindMCQ), string(domain.KindShortAnswer)},
						},
						"options": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "Exactly 4 distinct options for mcq questions; empty for short_answer",
						},
						"answer": map[string]any{
							"type":        "string",
							"description": "For mcq, the correct option verbatim; for short_answer, a reference answer",
						},
					},
					"required": []string{"question", "kind", "answer"},
				},
			},
		},
		"required": []string{"questions"},
	}
}

// Generate builds one prompt for the whole quiz, invokes the backend, and
// validates the structured reply. Schema violations fail with
// domain.ErrGenerationParse and are never retried; transport faults get a
// single retry before surfacing domain.ErrGenerationUnavailable.
func (g *Generator) Generate(ctx context.Context, transcript domain.Transcript, cfg domain.GenerationConfig) (domain.Quiz, error) {
	cfg = cfg.Normalized()
	if cfg.NumQuestions < 1 {
		return domain.Quiz{}, fmt.Errorf("numQuestions must be at least 1, got %d", cfg.NumQuestions)
	}
	if *cfg.MCQRatio < 0 || *cfg.MCQRatio > 1 {
		return domain.Quiz{}, fmt.Errorf("mcqRatio must be in [0,1], got %g", *cfg.MCQRatio)
	}
	if transcript.Text == "" {
		return domain.Quiz{}, fmt.Errorf("empty transcript")
	}

	wantMCQ := cfg.MCQCount()
	wantShort := cfg.NumQuestions - wantMCQ
	prompt := buildQuizPrompt(transcript.Text, wantMCQ, wantShort)

	raw, err := g.invokeWithRetry(ctx, prompt)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: %w", domain.ErrGenerationUnavailable, err)
	}

	var payload quizPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: %v", domain.ErrGenerationParse, err)
	}

	quiz, err := buildQuiz(payload, wantMCQ, wantShort)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("%w: %v", domain.ErrGenerationParse, err)
	}
	return quiz, nil
}

func (g *Generator) invokeWithRetry(ctx context.Context, prompt string) (json.RawMessage, error) {
	raw, err := g.backend.Invoke(ctx, generatorSystemPrompt, prompt, "submit_quiz", quizSchema())
	if err == nil {
		return raw, nil
	}
	log.Printf("quiz generation attempt failed, retrying once: %v", err)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(g.retryDelay):
	}
	return g.backend.Invoke(ctx, generatorSystemPrompt, prompt, "submit_quiz", quizSchema())
}

func buildQuizPrompt(transcript string, wantMCQ, wantShort int) string {
	var sb strings.Builder
	sb.WriteString("Generate a quiz using this transcript as reference:\n\n")
	sb.WriteString(transcript)
	sb.WriteString("\n\nThe quiz must include, in this order:\n")
	sb.WriteString(fmt.Sprintf("- exactly %d multiple choice questions (kind \"mcq\") with exactly 4 distinct options each, the correct option repeated verbatim in the answer field\n", wantMCQ))
	sb.WriteString(fmt.Sprintf("- exactly %d short answer questions (kind \"short_answer\") with no options and a concise reference answer in the answer field\n", wantShort))
	sb.WriteString("Submit the questions with the submit_quiz tool.\n")
	return sb.String()
}

// buildQuiz validates the payload against the quiz invariants. Violations are
// rejected outright, never repaired: a malformed generation is not trusted.
func buildQuiz(payload quizPayload, wantMCQ, wantShort int) (domain.Quiz, error) {
	if got, want := len(payload.Questions), wantMCQ+wantShort; got != want {
		return domain.Quiz{}, fmt.Errorf("expected %d questions, got %d", want, got)
	}

	var mcqs, shorts []domain.QuizItem
	for i, q := range payload.Questions {
		if strings.TrimSpace(q.Question) == "" {
			return domain.Quiz{}, fmt.Errorf("question %d has empty text", i)
		}
		if strings.TrimSpace(q.Answer) == "" {
			return domain.Quiz{}, fmt.Errorf("question %d has empty answer", i)
		}

		switch domain.QuestionKind(q.Kind) {
		case domain.KindMCQ:
			if err := validateOptions(q.Options, q.Answer); err != nil {
				return domain.Quiz{}, fmt.Errorf("question %d: %w", i, err)
			}
			mcqs = append(mcqs, domain.QuizItem{
				Question:      q.Question,
				Kind:          domain.KindMCQ,
				Options:       q.Options,
				CorrectAnswer: q.Answer,
			})
		case domain.KindShortAnswer:
			if len(q.Options) != 0 {
				return domain.Quiz{}, fmt.Errorf("question %d: short answer question carries options", i)
			}
			shorts = append(shorts, domain.QuizItem{
				Question:      q.Question,
				Kind:          domain.KindShortAnswer,
				CorrectAnswer: q.Answer,
			})
		default:
			return domain.Quiz{}, fmt.Errorf("question %d has unknown kind %q", i, q.Kind)
		}
	}

	if len(mcqs) != wantMCQ {
		return domain.Quiz{}, fmt.Errorf("expected %d mcq questions, got %d", wantMCQ, len(mcqs))
	}
	if len(shorts) != wantShort {
		return domain.Quiz{}, fmt.Errorf("expected %d short answer questions, got %d", wantShort, len(shorts))
	}

	// Presentation order: MCQs first, then short answers.
	return domain.Quiz{Items: append(mcqs, shorts...)}, nil
}

func validateOptions(options []string, answer string) error {
	if len(options) != mcqOptionCount {
		return fmt.Errorf("expected %d options, got %d", mcqOptionCount, len(options))
	}
	seen := make(map[string]struct{}, len(options))
	answerFound := false
	for _, opt := range options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("empty option")
		}
		if _, dup := seen[opt]; dup {
			return fmt.Errorf("duplicate option %q", opt)
		}
		seen[opt] = struct{}{}
		if opt == answer {
			answerFound = true
		}
	}
	if !answerFound {
		return fmt.Errorf("answer %q not among options", answer)
	}
	return nil
}
