package domain

// VideoRef is a canonical 11-character YouTube video identifier.
type VideoRef struct {
	ID string
}

// URL returns the canonical watch URL for the video.
func (v VideoRef) URL() string {
	return "https://www.youtube.com/watch?v=" + v.ID
}

// TranscriptSource records how a transcript was obtained.
type TranscriptSource string

const (
	// TranscriptDirect means the platform-hosted caption track was used.
	TranscriptDirect TranscriptSource = "direct"
	// TranscriptTranscribed means audio was extracted and run through speech-to-text.
	TranscriptTranscribed TranscriptSource = "transcribed"
)

// Transcript is the normalized text of a video's spoken content.
type Transcript struct {
	Text   string           `json:"text"`
	Source TranscriptSource `json:"source"`
}

// QuestionKind distinguishes the two gradable question shapes.
type QuestionKind string

const (
	KindMCQ         QuestionKind = "mcq"
	KindShortAnswer QuestionKind = "short_answer"
)

// QuizItem is one gradable question. MCQ items carry exactly four unique
// options with CorrectAnswer among them; short-answer items carry no options
// and CorrectAnswer holds the reference answer used for semantic grading.
type QuizItem struct {
	Question      string       `json:"question"`
	Kind          QuestionKind `json:"kind"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer"`
}

// Quiz is an ordered, non-empty set of quiz items; order is presentation order.
type Quiz struct {
	Items []QuizItem `json:"items"`
}

// Verdict is the graded outcome of one answer attempt.
type Verdict string

const (
	VerdictPending   Verdict = "pending"
	VerdictCorrect   Verdict = "correct"
	VerdictIncorrect Verdict = "incorrect"
)

// AnswerAttempt tracks one item's answer state. Verdict moves from pending to
// correct/incorrect exactly once and is never reverted; an evaluation fault
// leaves the attempt pending rather than defaulting either way.
type AnswerAttempt struct {
	ItemIndex    int     `json:"itemIndex"`
	UserResponse string  `json:"userResponse"`
	Verdict      Verdict `json:"verdict"`
	Feedback     string  `json:"feedback"`
}

// GenerationConfig controls quiz shape.
type GenerationConfig struct {
	// NumQuestions is the total item count; must be at least 1. Zero means unset.
	NumQuestions int
	// MCQRatio is the fraction of items that are MCQ; the rest are short
	// answer. nil means unset; an explicit 0 yields an all-short-answer quiz.
	MCQRatio *float64
}

const (
	DefaultNumQuestions = 5
	// DefaultMCQRatio reproduces the original 5 MCQ / 3 short-answer split.
	DefaultMCQRatio = 0.625
)

// Ratio builds an MCQRatio value for config literals.
func Ratio(v float64) *float64 {
	return &v
}

// WithDefaults fills unset fields from d. Used to layer operator-configured
// defaults under per-request settings; built-in defaults still apply last via
// Normalized.
func (c GenerationConfig) WithDefaults(d GenerationConfig) GenerationConfig {
	if c.NumQuestions == 0 {
		c.NumQuestions = d.NumQuestions
	}
	if c.MCQRatio == nil {
		c.MCQRatio = d.MCQRatio
	}
	return c
}

// Normalized fills unset fields with the built-in defaults. Each field
// defaults independently, so a config carrying only NumQuestions still gets
// the default MCQ ratio.
func (c GenerationConfig) Normalized() GenerationConfig {
	if c.NumQuestions == 0 {
		c.NumQuestions = DefaultNumQuestions
	}
	if c.MCQRatio == nil {
		c.MCQRatio = Ratio(DefaultMCQRatio)
	}
	return c
}

// MCQCount returns how many of the total items should be MCQ.
func (c GenerationConfig) MCQCount() int {
	ratio := DefaultMCQRatio
	if c.MCQRatio != nil {
		ratio = *c.MCQRatio
	}
	n := int(float64(c.NumQuestions)*ratio + 0.5)
	if n < 0 {
		n = 0
	}
	if n > c.NumQuestions {
		n = c.NumQuestions
	}
	return n
}

// Stage identifies where the acquisition/generation pipeline currently is.
type Stage string

const (
	StageResolving        Stage = "resolving"
	StageFetchingCaptions Stage = "fetching_captions"
	StageDownloadingAudio Stage = "downloading_audio"
	StageUploading        Stage = "uploading_audio"
	StageTranscribing     Stage = "transcribing"
	StageGenerating       Stage = "generating"
	StageReady            Stage = "ready"
	StageFailed           Stage = "failed"
)

// Score summarizes a session's grading state.
type Score struct {
	Total    int `json:"total"`
	Answered int `json:"answered"`
	Correct  int `json:"correct"`
	Pending  int `json:"pending"`
}
