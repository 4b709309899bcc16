package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"tubequiz/internal/domain"
)

const evaluatorSystemPrompt = "You are grading a student's quiz answer. Judge whether the student's answer is substantively correct for the question, using the reference answer as a guide rather than requiring exact wording. Paraphrases and equivalent phrasings count as correct."

// Evaluator grades answer attempts. MCQ grading is structural string equality
// and never touches the backend; short-answer grading asks the backend for a
// binary verdict plus feedback, since exact matching fails on paraphrase.
type Evaluator struct {
	backend Backend
}

func NewEvaluator(backend Backend) *Evaluator {
	return &Evaluator{backend: backend}
}

type verdictPayload struct {
	Correct  bool   `json:"correct"`
	Feedback string `json:"feedback"`
}

func verdictSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"correct": map[string]any{
				"type":        "boolean",
				"description": "Whether the student's answer is substantively correct",
			},
			"feedback": map[string]any{
				"type":        "string",
				"description": "One or two sentences explaining the verdict",
			},
		},
		"required": []string{"correct", "feedback"},
	}
}

// Evaluate grades one response. A backend fault yields
// domain.ErrEvaluationUnavailable and a pending verdict; the caller must not
// coerce that into correct or incorrect.
func (e *Evaluator) Evaluate(ctx context.Context, item domain.QuizItem, response string) (domain.Verdict, string, error) {
	switch item.Kind {
	case domain.KindMCQ:
		verdict, feedback := gradeMCQ(item, response)
		return verdict, feedback, nil
	case domain.KindShortAnswer:
		return e.gradeShortAnswer(ctx, item, response)
	default:
		return domain.VerdictPending, "", fmt.Errorf("unknown question kind %q", item.Kind)
	}
}

func gradeMCQ(item domain.QuizItem, response string) (domain.Verdict, string) {
	if response == item.CorrectAnswer {
		return domain.VerdictCorrect, "Correct."
	}
	return domain.VerdictIncorrect, fmt.Sprintf("The correct answer is %q.", item.CorrectAnswer)
}

func (e *Evaluator) gradeShortAnswer(ctx context.Context, item domain.QuizItem, response string) (domain.Verdict, string, error) {
	if strings.TrimSpace(response) == "" {
		return domain.VerdictIncorrect, "No answer provided.", nil
	}

	prompt := fmt.Sprintf(
		"Question: %s\n\nReference Answer: %s\n\nStudent Answer: %s\n\nSubmit your verdict with the submit_verdict tool.",
		item.Question, item.CorrectAnswer, response,
	)
	raw, err := e.backend.Invoke(ctx, evaluatorSystemPrompt, prompt, "submit_verdict", verdictSchema())
	if err != nil {
		return domain.VerdictPending, "", fmt.Errorf("%w: %w", domain.ErrEvaluationUnavailable, err)
	}

	var payload verdictPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.VerdictPending, "", fmt.Errorf("%w: malformed verdict: %v", domain.ErrEvaluationUnavailable, err)
	}
	if strings.TrimSpace(payload.Feedback) == "" {
		payload.Feedback = "No feedback available."
	}
	if payload.Correct {
		return domain.VerdictCorrect, payload.Feedback, nil
	}
	return domain.VerdictIncorrect, payload.Feedback, nil
}

// EvaluateAll grades a full response sheet in place. MCQ items are graded
// inline; short-answer items fan out one backend call each, every goroutine
// owning a distinct attempt slot. Attempts whose evaluation faults are left
// pending and the first error is returned.
func (e *Evaluator) EvaluateAll(ctx context.Context, quiz domain.Quiz, attempts []domain.AnswerAttempt) error {
	if len(attempts) != len(quiz.Items) {
		return fmt.Errorf("attempt count %d does not match item count %d", len(attempts), len(quiz.Items))
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range attempts {
		if attempts[i].Verdict != domain.VerdictPending {
			continue
		}
		item := quiz.Items[i]

		if item.Kind == domain.KindMCQ {
			attempts[i].Verdict, attempts[i].Feedback = gradeMCQ(item, attempts[i].UserResponse)
			continue
		}

		i := i
		g.Go(func() error {
			verdict, feedback, err := e.gradeShortAnswer(gctx, item, attempts[i].UserResponse)
			if err != nil {
				return err
			}
			attempts[i].Verdict = verdict
			attempts[i].Feedback = feedback
			return nil
		})
	}
	return g.Wait()
}
