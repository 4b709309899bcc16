package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"tubequiz/internal/app"
	"tubequiz/internal/domain"
)

// SessionAPI is the slice of the session service the transport needs.
type SessionAPI interface {
	CreateSession(ctx context.Context, rawURL string, cfg domain.GenerationConfig, observe func(domain.Stage)) (*app.Session, error)
	Get(id string) (*app.Session, error)
	SubmitAnswer(ctx context.Context, id string, itemIndex int, response string) (domain.AnswerAttempt, error)
	SubmitAll(ctx context.Context, id string, responses map[int]string) (domain.Score, error)
	Delete(id string)
}

// Handler exposes the quiz pipeline over a small JSON API. It is a thin
// shell: all branching lives in the service and pipeline layers.
type Handler struct {
	service SessionAPI
}

func NewHandler(service SessionAPI) *Handler {
	return &Handler{service: service}
}

// Register wires the routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/quizzes", h.createQuiz)
	mux.HandleFunc("GET /api/quizzes/{id}", h.getQuiz)
	mux.HandleFunc("POST /api/quizzes/{id}/answers", h.submitAnswer)
	mux.HandleFunc("POST /api/quizzes/{id}/submit", h.submitAll)
	mux.HandleFunc("GET /api/quizzes/{id}/results", h.getResults)
	mux.HandleFunc("DELETE /api/quizzes/{id}", h.deleteQuiz)
}

type createQuizRequest struct {
	URL          string `json:"url"`
	NumQuestions int    `json:"numQuestions,omitempty"`
	// MCQRatio distinguishes omitted (nil, server default applies) from an
	// explicit 0 (all short answer).
	MCQRatio *float64 `json:"mcqRatio,omitempty"`
}

// questionView omits the correct answer so the quiz stays gradable.
type questionView struct {
	Index    int      `json:"index"`
	Question string   `json:"question"`
	Kind     string   `json:"kind"`
	Options  []string `json:"options,omitempty"`
}

type sessionView struct {
	SessionID        string         `json:"sessionId"`
	VideoID          string         `json:"videoId"`
	TranscriptSource string         `json:"transcriptSource"`
	Questions        []questionView `json:"questions"`
	Score            domain.Score   `json:"score"`
}

type answerRequest struct {
	ItemIndex int    `json:"itemIndex"`
	Response  string `json:"response"`
}

type answerView struct {
	ItemIndex int    `json:"itemIndex"`
	Verdict   string `json:"verdict"`
	Feedback  string `json:"feedback"`
}

type submitAllRequest struct {
	Answers []answerRequest `json:"answers"`
}

type resultItemView struct {
	Index         int    `json:"index"`
	Question      string `json:"question"`
	Kind          string `json:"kind"`
	CorrectAnswer string `json:"correctAnswer"`
	UserResponse  string `json:"userResponse"`
	Verdict       string `json:"verdict"`
	Feedback      string `json:"feedback"`
}

type resultsView struct {
	SessionID string           `json:"sessionId"`
	Score     domain.Score     `json:"score"`
	Items     []resultItemView `json:"items"`
}

func (h *Handler) createQuiz(w http.ResponseWriter, r *http.Request) {
	var req createQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cfg := domain.GenerationConfig{NumQuestions: req.NumQuestions, MCQRatio: req.MCQRatio}

	session, err := h.service.CreateSession(r.Context(), req.URL, cfg, nil)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionView(session))
}

func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Get(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(session))
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	attempt, err := h.service.SubmitAnswer(r.Context(), r.PathValue("id"), req.ItemIndex, req.Response)
	if err != nil && !errors.Is(err, domain.ErrEvaluationUnavailable) {
		writeServiceError(w, err)
		return
	}
	// An unavailable evaluator leaves the attempt pending; the client shows
	// the item as ungraded instead of treating it as wrong.
	status := http.StatusOK
	if err != nil {
		status = http.StatusAccepted
	}
	writeJSON(w, status, answerView{
		ItemIndex: attempt.ItemIndex,
		Verdict:   string(attempt.Verdict),
		Feedback:  attempt.Feedback,
	})
}

func (h *Handler) submitAll(w http.ResponseWriter, r *http.Request) {
	var req submitAllRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	responses := make(map[int]string, len(req.Answers))
	for _, a := range req.Answers {
		responses[a.ItemIndex] = a.Response
	}

	score, err := h.service.SubmitAll(r.Context(), r.PathValue("id"), responses)
	if err != nil && !errors.Is(err, domain.ErrEvaluationUnavailable) {
		writeServiceError(w, err)
		return
	}
	status := http.StatusOK
	if err != nil {
		status = http.StatusAccepted
	}
	writeJSON(w, status, score)
}

func (h *Handler) getResults(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Get(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	quiz := session.Quiz()
	attempts := session.Attempts()
	items := make([]resultItemView, len(quiz.Items))
	for i, item := range quiz.Items {
		items[i] = resultItemView{
			Index:         i,
			Question:      item.Question,
			Kind:          string(item.Kind),
			CorrectAnswer: item.CorrectAnswer,
			UserResponse:  attempts[i].UserResponse,
			Verdict:       string(attempts[i].Verdict),
			Feedback:      attempts[i].Feedback,
		}
	}
	writeJSON(w, http.StatusOK, resultsView{
		SessionID: session.ID,
		Score:     session.Score(),
		Items:     items,
	})
}

func (h *Handler) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	h.service.Delete(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func newSessionView(session *app.Session) sessionView {
	quiz := session.Quiz()
	questions := make([]questionView, len(quiz.Items))
	for i, item := range quiz.Items {
		questions[i] = questionView{
			Index:    i,
			Question: item.Question,
			Kind:     string(item.Kind),
			Options:  item.Options,
		}
	}
	return sessionView{
		SessionID:        session.ID,
		VideoID:          session.VideoID,
		TranscriptSource: string(session.Transcript().Source),
		Questions:        questions,
		Score:            session.Score(),
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidVideoReference):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrItemNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadyGraded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrTranscriptAcquisition),
		errors.Is(err, domain.ErrGenerationUnavailable),
		errors.Is(err, domain.ErrGenerationParse),
		errors.Is(err, domain.ErrEvaluationUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		log.Printf("unhandled service error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type errorPayload struct {
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorPayload{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}
