package app

import (
	"sync"
	"time"

	"tubequiz/internal/domain"
)

// Session holds one quiz-taking pass: the acquired transcript, the generated
// quiz, and one answer attempt slot per item. It lives for a single
// interaction and is owned by that interaction alone.
type Session struct {
	ID        string
	VideoID   string
	CreatedAt time.Time

	mu         sync.RWMutex
	transcript domain.Transcript
	quiz       domain.Quiz
	attempts   []domain.AnswerAttempt
}

func newSession(id string, videoID string, transcript domain.Transcript, quiz domain.Quiz, now time.Time) *Session {
	attempts := make([]domain.AnswerAttempt, len(quiz.Items))
	for i := range attempts {
		attempts[i] = domain.AnswerAttempt{ItemIndex: i, Verdict: domain.VerdictPending}
	}
	return &Session{
		ID:         id,
		VideoID:    videoID,
		CreatedAt:  now,
		transcript: transcript,
		quiz:       quiz,
		attempts:   attempts,
	}
}

// Quiz returns the generated quiz; item order is presentation order.
func (s *Session) Quiz() domain.Quiz {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quiz
}

// Transcript returns the session's source transcript.
func (s *Session) Transcript() domain.Transcript {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transcript
}

// Attempts returns a copy of the attempt slots.
func (s *Session) Attempts() []domain.AnswerAttempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AnswerAttempt, len(s.attempts))
	copy(out, s.attempts)
	return out
}

// item returns the quiz item at index, guarding the range.
func (s *Session) item(index int) (domain.QuizItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.quiz.Items) {
		return domain.QuizItem{}, domain.ErrItemNotFound
	}
	return s.quiz.Items[index], nil
}

// recordResponse stores the user's response on a still-pending slot.
func (s *Session) recordResponse(index int, response string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.attempts) {
		return domain.ErrItemNotFound
	}
	if s.attempts[index].Verdict != domain.VerdictPending {
		return domain.ErrAlreadyGraded
	}
	s.attempts[index].UserResponse = response
	return nil
}

// applyVerdict finalizes a slot exactly once; a slot that already holds a
// final verdict is never overwritten.
func (s *Session) applyVerdict(index int, verdict domain.Verdict, feedback string) (domain.AnswerAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.attempts) {
		return domain.AnswerAttempt{}, domain.ErrItemNotFound
	}
	if s.attempts[index].Verdict != domain.VerdictPending {
		return s.attempts[index], domain.ErrAlreadyGraded
	}
	if verdict != domain.VerdictPending {
		s.attempts[index].Verdict = verdict
		s.attempts[index].Feedback = feedback
	}
	return s.attempts[index], nil
}

// Score summarizes grading progress.
func (s *Session) Score() domain.Score {
	s.mu.RLock()
	defer s.mu.RUnlock()
	score := domain.Score{Total: len(s.attempts)}
	for _, attempt := range s.attempts {
		switch attempt.Verdict {
		case domain.VerdictCorrect:
			score.Correct++
			score.Answered++
		case domain.VerdictIncorrect:
			score.Answered++
		default:
			score.Pending++
		}
	}
	return score
}
