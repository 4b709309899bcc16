package app

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"tubequiz/internal/domain"
	"tubequiz/internal/youtube"
)

// SessionStore abstracts how active sessions are held (in-memory, Redis-marked).
type SessionStore interface {
	Put(session *Session)
	Get(id string) (*Session, bool)
	Delete(id string)
}

// TranscriptAcquirer resolves a video into transcript text.
type TranscriptAcquirer interface {
	Acquire(ctx context.Context, ref domain.VideoRef, observe func(domain.Stage)) (domain.Transcript, error)
}

// QuizGenerator turns a transcript into a quiz.
type QuizGenerator interface {
	Generate(ctx context.Context, transcript domain.Transcript, cfg domain.GenerationConfig) (domain.Quiz, error)
}

// AnswerEvaluator grades responses against quiz items.
type AnswerEvaluator interface {
	Evaluate(ctx context.Context, item domain.QuizItem, response string) (domain.Verdict, string, error)
	EvaluateAll(ctx context.Context, quiz domain.Quiz, attempts []domain.AnswerAttempt) error
}

// SessionService contains the quiz-taking use cases: build a session from a
// URL, hand out the quiz, grade answers into attempt slots.
type SessionService struct {
	sessions  SessionStore
	acquirer  TranscriptAcquirer
	generator QuizGenerator
	evaluator AnswerEvaluator
	defaults  domain.GenerationConfig
	clock     func() time.Time
	newID     func() string
}

func NewSessionService(sessions SessionStore, acquirer TranscriptAcquirer, generator QuizGenerator, evaluator AnswerEvaluator) *SessionService {
	return &SessionService{
		sessions:  sessions,
		acquirer:  acquirer,
		generator: generator,
		evaluator: evaluator,
		clock:     time.Now,
		newID:     uuid.NewString,
	}
}

// SetGenerationDefaults installs operator-configured quiz shape defaults.
// They apply only where a request leaves a setting unset; the built-in
// defaults still cover anything left after that.
func (s *SessionService) SetGenerationDefaults(cfg domain.GenerationConfig) {
	s.defaults = cfg
}

// NewSessionServiceWithClock is test-only for deterministic ids and timestamps.
func NewSessionServiceWithClock(sessions SessionStore, acquirer TranscriptAcquirer, generator QuizGenerator, evaluator AnswerEvaluator, clock func() time.Time, newID func() string) *SessionService {
	svc := NewSessionService(sessions, acquirer, generator, evaluator)
	svc.clock = clock
	svc.newID = newID
	return svc
}

// CreateSession runs the full pipeline for a raw video URL and stores the
// resulting session. observe, when non-nil, receives stage transitions
// including the terminal ready/failed stage.
func (s *SessionService) CreateSession(ctx context.Context, rawURL string, cfg domain.GenerationConfig, observe func(domain.Stage)) (*Session, error) {
	notify := func(stage domain.Stage) {
		if observe != nil {
			observe(stage)
		}
	}

	notify(domain.StageResolving)
	ref, err := youtube.Resolve(rawURL)
	if err != nil {
		notify(domain.StageFailed)
		return nil, err
	}

	transcript, err := s.acquirer.Acquire(ctx, ref, observe)
	if err != nil {
		notify(domain.StageFailed)
		return nil, err
	}

	notify(domain.StageGenerating)
	quiz, err := s.generator.Generate(ctx, transcript, cfg.WithDefaults(s.defaults))
	if err != nil {
		notify(domain.StageFailed)
		return nil, err
	}

	session := newSession(s.newID(), ref.ID, transcript, quiz, s.clock())
	s.sessions.Put(session)
	notify(domain.StageReady)
	return session, nil
}

// Get returns the active session with the given id.
func (s *SessionService) Get(id string) (*Session, error) {
	session, ok := s.sessions.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// SubmitAnswer grades one response and finalizes its attempt slot. When the
// evaluation backend is unavailable the slot keeps the recorded response but
// stays pending, and the error is surfaced so the caller can show the item as
// ungraded.
func (s *SessionService) SubmitAnswer(ctx context.Context, id string, itemIndex int, response string) (domain.AnswerAttempt, error) {
	session, err := s.Get(id)
	if err != nil {
		return domain.AnswerAttempt{}, err
	}
	item, err := session.item(itemIndex)
	if err != nil {
		return domain.AnswerAttempt{}, err
	}
	if err := session.recordResponse(itemIndex, response); err != nil {
		return domain.AnswerAttempt{}, err
	}

	verdict, feedback, err := s.evaluator.Evaluate(ctx, item, response)
	if err != nil {
		if errors.Is(err, domain.ErrEvaluationUnavailable) {
			attempt, _ := session.applyVerdict(itemIndex, domain.VerdictPending, "")
			return attempt, err
		}
		return domain.AnswerAttempt{}, err
	}
	return session.applyVerdict(itemIndex, verdict, feedback)
}

// SubmitAll records a full response sheet and grades every still-pending slot,
// fanning out short-answer evaluations. Slots whose grading faults remain
// pending; the score reflects whatever was finalized.
func (s *SessionService) SubmitAll(ctx context.Context, id string, responses map[int]string) (domain.Score, error) {
	session, err := s.Get(id)
	if err != nil {
		return domain.Score{}, err
	}
	for index, response := range responses {
		if err := session.recordResponse(index, response); err != nil && !errors.Is(err, domain.ErrAlreadyGraded) {
			return domain.Score{}, err
		}
	}

	attempts := session.Attempts()
	evalErr := s.evaluator.EvaluateAll(ctx, session.Quiz(), attempts)
	for _, attempt := range attempts {
		if attempt.Verdict != domain.VerdictPending {
			_, _ = session.applyVerdict(attempt.ItemIndex, attempt.Verdict, attempt.Feedback)
		}
	}
	return session.Score(), evalErr
}

// Score reports the session's grading summary.
func (s *SessionService) Score(id string) (domain.Score, error) {
	session, err := s.Get(id)
	if err != nil {
		return domain.Score{}, err
	}
	return session.Score(), nil
}

// Delete ends a session early.
func (s *SessionService) Delete(id string) {
	s.sessions.Delete(id)
}
