package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tubequiz/internal/app"
	"tubequiz/internal/domain"
	"tubequiz/internal/infra/memory"
	transporthttp "tubequiz/internal/transport/http"
)

type stubAcquirer struct {
	transcript domain.Transcript
	err        error
}

func (s *stubAcquirer) Acquire(context.Context, domain.VideoRef, func(domain.Stage)) (domain.Transcript, error) {
	return s.transcript, s.err
}

type stubGenerator struct {
	quiz    domain.Quiz
	err     error
	gotCfgs []domain.GenerationConfig
}

func (s *stubGenerator) Generate(_ context.Context, _ domain.Transcript, cfg domain.GenerationConfig) (domain.Quiz, error) {
	s.gotCfgs = append(s.gotCfgs, cfg)
	return s.quiz, s.err
}

type stubEvaluator struct {
	err error
}

func (s *stubEvaluator) Evaluate(_ context.Context, item domain.QuizItem, response string) (domain.Verdict, string, error) {
	if s.err != nil {
		return domain.VerdictPending, "", s.err
	}
	if response == item.CorrectAnswer {
		return domain.VerdictCorrect, "Correct.", nil
	}
	return domain.VerdictIncorrect, "Wrong.", nil
}

func (s *stubEvaluator) EvaluateAll(ctx context.Context, quiz domain.Quiz, attempts []domain.AnswerAttempt) error {
	for i := range attempts {
		if attempts[i].Verdict != domain.VerdictPending {
			continue
		}
		verdict, feedback, err := s.Evaluate(ctx, quiz.Items[i], attempts[i].UserResponse)
		if err != nil {
			return err
		}
		attempts[i].Verdict = verdict
		attempts[i].Feedback = feedback
	}
	return nil
}

var apiQuiz = domain.Quiz{Items: []domain.QuizItem{
	{
		Question:      "At what temperature does water boil at sea level?",
		Kind:          domain.KindMCQ,
		Options:       []string{"90 degrees Celsius", "100 degrees Celsius", "110 degrees Celsius", "120 degrees Celsius"},
		CorrectAnswer: "100 degrees Celsius",
	},
	{
		Question:      "Why does water boil at a lower temperature at altitude?",
		Kind:          domain.KindShortAnswer,
		CorrectAnswer: "Atmospheric pressure drops with altitude.",
	},
}}

func newTestServer(t *testing.T, evaluator app.AnswerEvaluator) *httptest.Server {
	server, _ := newTestServerWithGenerator(t, evaluator)
	return server
}

func newTestServerWithGenerator(t *testing.T, evaluator app.AnswerEvaluator) (*httptest.Server, *stubGenerator) {
	t.Helper()
	ids := 0
	generator := &stubGenerator{quiz: apiQuiz}
	service := app.NewSessionServiceWithClock(
		memory.NewSessionStore(time.Hour),
		&stubAcquirer{transcript: domain.Transcript{Text: "text", Source: domain.TranscriptDirect}},
		generator,
		evaluator,
		time.Now,
		func() string { ids++; return fmt.Sprintf("session-%d", ids) },
	)

	mux := http.NewServeMux()
	transporthttp.NewHandler(service).Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, generator
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func createQuiz(t *testing.T, server *httptest.Server) string {
	t.Helper()
	resp := postJSON(t, server.URL+"/api/quizzes", `{"url":"https://youtu.be/dQw4w9WgXcQ"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var view struct {
		SessionID string `json:"sessionId"`
	}
	decodeBody(t, resp, &view)
	return view.SessionID
}

func TestCreateQuizHidesAnswers(t *testing.T) {
	server := newTestServer(t, &stubEvaluator{})

	resp := postJSON(t, server.URL+"/api/quizzes", `{"url":"https://youtu.be/dQw4w9WgXcQ"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var view struct {
		SessionID        string `json:"sessionId"`
		VideoID          string `json:"videoId"`
		TranscriptSource string `json:"transcriptSource"`
		Questions        []map[string]any
	}
	decodeBody(t, resp, &view)
	if view.VideoID != "dQw4w9WgXcQ" || view.TranscriptSource != "direct" {
		t.Fatalf("view = %+v", view)
	}
	if len(view.Questions) != 2 {
		t.Fatalf("questions = %d", len(view.Questions))
	}
	for _, q := range view.Questions {
		if _, ok := q["correctAnswer"]; ok {
			t.Fatalf("question view leaks the correct answer: %v", q)
		}
	}
}

func TestCreateQuizOmittedRatioStaysUnset(t *testing.T) {
	server, generator := newTestServerWithGenerator(t, &stubEvaluator{})

	resp := postJSON(t, server.URL+"/api/quizzes", `{"url":"https://youtu.be/dQw4w9WgXcQ","numQuestions":4}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	resp.Body.Close()
	cfg := generator.gotCfgs[0]
	if cfg.NumQuestions != 4 {
		t.Fatalf("numQuestions = %d", cfg.NumQuestions)
	}
	// omitted ratio must stay unset so the default applies downstream
	if cfg.MCQRatio != nil {
		t.Fatalf("omitted mcqRatio arrived as %v", *cfg.MCQRatio)
	}

	// an explicit zero is a real setting, not an omission
	resp = postJSON(t, server.URL+"/api/quizzes", `{"url":"https://youtu.be/dQw4w9WgXcQ","numQuestions":4,"mcqRatio":0}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	resp.Body.Close()
	cfg = generator.gotCfgs[1]
	if cfg.MCQRatio == nil || *cfg.MCQRatio != 0 {
		t.Fatalf("explicit zero mcqRatio = %v", cfg.MCQRatio)
	}
}

func TestCreateQuizBadURL(t *testing.T) {
	server := newTestServer(t, &stubEvaluator{})
	resp := postJSON(t, server.URL+"/api/quizzes", `{"url":"nope"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSubmitAnswerRoundTrip(t *testing.T) {
	server := newTestServer(t, &stubEvaluator{})
	id := createQuiz(t, server)

	resp := postJSON(t, server.URL+"/api/quizzes/"+id+"/answers", `{"itemIndex":0,"response":"100 degrees Celsius"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var answer struct {
		ItemIndex int    `json:"itemIndex"`
		Verdict   string `json:"verdict"`
	}
	decodeBody(t, resp, &answer)
	if answer.Verdict != "correct" {
		t.Fatalf("verdict = %q", answer.Verdict)
	}

	// a graded slot rejects a second submission
	resp = postJSON(t, server.URL+"/api/quizzes/"+id+"/answers", `{"itemIndex":0,"response":"90 degrees Celsius"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("resubmit status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSubmitAnswerEvaluatorDown(t *testing.T) {
	server := newTestServer(t, &stubEvaluator{err: fmt.Errorf("%w: backend down", domain.ErrEvaluationUnavailable)})
	id := createQuiz(t, server)

	resp := postJSON(t, server.URL+"/api/quizzes/"+id+"/answers", `{"itemIndex":1,"response":"pressure"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var answer struct {
		Verdict string `json:"verdict"`
	}
	decodeBody(t, resp, &answer)
	if answer.Verdict != "pending" {
		t.Fatalf("verdict = %q", answer.Verdict)
	}
}

func TestSubmitAllAndResults(t *testing.T) {
	server := newTestServer(t, &stubEvaluator{})
	id := createQuiz(t, server)

	resp := postJSON(t, server.URL+"/api/quizzes/"+id+"/submit",
		`{"answers":[{"itemIndex":0,"response":"100 degrees Celsius"},{"itemIndex":1,"response":"less pressure"}]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit status = %d", resp.StatusCode)
	}
	var score domain.Score
	decodeBody(t, resp, &score)
	if score.Total != 2 || score.Answered != 2 || score.Correct != 1 {
		t.Fatalf("score = %+v", score)
	}

	results, err := http.Get(server.URL + "/api/quizzes/" + id + "/results")
	if err != nil {
		t.Fatalf("get results: %v", err)
	}
	if results.StatusCode != http.StatusOK {
		t.Fatalf("results status = %d", results.StatusCode)
	}
	var view struct {
		Items []struct {
			CorrectAnswer string `json:"correctAnswer"`
			Verdict       string `json:"verdict"`
		} `json:"items"`
	}
	decodeBody(t, results, &view)
	if len(view.Items) != 2 {
		t.Fatalf("items = %d", len(view.Items))
	}
	// the results view does reveal answers
	if view.Items[0].CorrectAnswer != "100 degrees Celsius" {
		t.Fatalf("results item = %+v", view.Items[0])
	}
}

func TestUnknownSessionIs404(t *testing.T) {
	server := newTestServer(t, &stubEvaluator{})

	resp, err := http.Get(server.URL + "/api/quizzes/missing")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestDeleteQuiz(t *testing.T) {
	server := newTestServer(t, &stubEvaluator{})
	id := createQuiz(t, server)

	req, _ := http.NewRequest(http.MethodDelete, server.URL+"/api/quizzes/"+id, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	after, err := http.Get(server.URL + "/api/quizzes/" + id)
	if err != nil {
		t.Fatal(err)
	}
	if after.StatusCode != http.StatusNotFound {
		t.Fatalf("status after delete = %d", after.StatusCode)
	}
	after.Body.Close()
}
