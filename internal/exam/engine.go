package exam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/neetprep/neetprep/internal/model"
	"github.com/neetprep/neetprep/internal/store"
)

// maxTestQuestions bounds a single test. One minute per question, so this is
// also the longest possible timer.
const maxTestQuestions = 50

// questionSource tags durable question rows created from generated batches.
const questionSource = "ai_generated"

// QuestionSource produces a batch of candidate questions. The LLM client is
// the production implementation.
type QuestionSource interface {
	Generate(ctx context.Context, subject, topic string, count int, difficulty model.Difficulty) ([]model.EphemeralQuestion, error)
}

// Engine drives the test-session lifecycle on top of the store and a
// question source.
type Engine struct {
	store  *store.Store
	source QuestionSource
}

func NewEngine(st *store.Store, src QuestionSource) *Engine {
	return &Engine{store: st, source: src}
}

// QuestionView is a question as shown to a test taker: no correct answer, no
// explanation. The ID is the batch-scoped ephemeral ID.
type QuestionView struct {
	ID        model.EphemeralID `json:"id"`
	Text      string            `json:"question_text"`
	Options   model.Options     `json:"options"`
	SubjectID int64             `json:"subject_id"`
	TopicID   *int64            `json:"topic_id,omitempty"`
}

// StartResult is the response to a successful test start.
type StartResult struct {
	TestID         int64          `json:"test_id"`
	Questions      []QuestionView `json:"questions"`
	TotalQuestions int            `json:"total_questions"`
	TimerMinutes   int            `json:"timer_minutes"`
	TimerSeconds   int            `json:"timer_seconds"`
	StartTime      time.Time      `json:"start_time"`
	EndTime        time.Time      `json:"end_time"`
	AutoSubmitAt   time.Time      `json:"auto_submit_at"`
	Instructions   []string       `json:"instructions"`
}

var testInstructions = []string{
	"Each question carries 4 marks for a correct answer.",
	"1 mark is deducted for each wrong answer.",
	"Unattempted questions score 0 marks.",
	"You have 1 minute per question. Submit before the timer runs out.",
}

// Start generates a fresh question batch, creates an in_progress session and
// returns the answer-blind question set with timer details. A generation
// shortfall aborts the whole start: no session row is left behind.
func (e *Engine) Start(ctx context.Context, userID, subjectID int64, topicID *int64, count int) (*StartResult, error) {
	if count < 1 || count > maxTestQuestions {
		return nil, fmt.Errorf("%w: question count must be between 1 and %d, got %d", ErrInvalidRequest, maxTestQuestions, count)
	}

	subject, err := e.store.GetSubject(subjectID)
	if err != nil {
		return nil, err
	}
	if subject == nil {
		return nil, fmt.Errorf("%w: subject %d", ErrNotFound, subjectID)
	}

	topicName := ""
	if topicID != nil {
		topic, err := e.store.GetTopic(*topicID)
		if err != nil {
			return nil, err
		}
		if topic == nil || topic.SubjectID != subjectID {
			return nil, fmt.Errorf("%w: topic %d under subject %d", ErrNotFound, *topicID, subjectID)
		}
		topicName = topic.Name
	}

	batch, err := e.source.Generate(ctx, subject.Name, topicName, count, model.DifficultyMedium)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(batch) < count {
		return nil, fmt.Errorf("%w: requested %d questions, generated %d", ErrGenerationFailed, count, len(batch))
	}
	batch = batch[:count]

	now := time.Now().UTC()
	sess := model.TestSession{
		UserID:         userID,
		SubjectID:      subjectID,
		TopicID:        topicID,
		TotalQuestions: count,
		Status:         model.StatusInProgress,
		StartedAt:      now,
	}
	sessionID, _, err := e.store.CreateSessionWithQuestions(sess, batch, questionSource)
	if err != nil {
		return nil, err
	}

	questions := make([]QuestionView, 0, count)
	for _, eq := range batch {
		questions = append(questions, QuestionView{
			ID:        eq.ID,
			Text:      eq.Text,
			Options:   eq.Options,
			SubjectID: subjectID,
			TopicID:   topicID,
		})
	}

	deadline := now.Add(time.Duration(count) * time.Minute)
	slog.Info("started test session",
		"session_id", sessionID, "user_id", userID, "subject", subject.Name, "questions", count)

	return &StartResult{
		TestID:         sessionID,
		Questions:      questions,
		TotalQuestions: count,
		TimerMinutes:   count,
		TimerSeconds:   count * 60,
		StartTime:      now,
		EndTime:        deadline,
		AutoSubmitAt:   deadline,
		Instructions:   testInstructions,
	}, nil
}

// StatusResult reports a session's timer state.
type StatusResult struct {
	TestID                  int64               `json:"test_id"`
	Status                  model.SessionStatus `json:"status"`
	TimeElapsedSeconds      int                 `json:"time_elapsed_seconds"`
	TimeRemainingSeconds    int                 `json:"time_remaining_seconds"`
	TimeRemainingMinutes    float64             `json:"time_remaining_minutes"`
	IsExpired               bool                `json:"is_expired"`
	TotalQuestions          int                 `json:"total_questions"`
	ExpectedDurationMinutes int                 `json:"expected_duration_minutes"`
}

// Status computes the session timer. Expiry is lazy: an overdue in_progress
// session is marked expired here, on read. Expired is advisory only, a late
// submission is still accepted and scored.
func (e *Engine) Status(id int64) (*StatusResult, error) {
	sess, err := e.store.GetTestSession(id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("%w: test session %d", ErrNotFound, id)
	}

	now := time.Now().UTC()
	elapsed := int(now.Sub(sess.StartedAt).Seconds())
	expected := int(sess.ExpectedDuration().Seconds())
	remaining := expected - elapsed
	if remaining < 0 {
		remaining = 0
	}

	if remaining == 0 && sess.Status == model.StatusInProgress {
		if err := e.store.UpdateSessionStatus(id, model.StatusExpired); err != nil {
			return nil, err
		}
		sess.Status = model.StatusExpired
		slog.Info("test session expired", "session_id", id)
	}

	return &StatusResult{
		TestID:                  id,
		Status:                  sess.Status,
		TimeElapsedSeconds:      elapsed,
		TimeRemainingSeconds:    remaining,
		TimeRemainingMinutes:    round1(float64(remaining) / 60),
		IsExpired:               sess.Status == model.StatusExpired,
		TotalQuestions:          sess.TotalQuestions,
		ExpectedDurationMinutes: sess.TotalQuestions,
	}, nil
}

// AnswerSubmission is one answered (or skipped) question in a submit request.
// QuestionID is either a durable numeric ID or the ephemeral ID handed out at
// start. An empty Answer means not attempted.
type AnswerSubmission struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
	TimeTaken  int    `json:"time_taken"`
}

// AnswerDetail is the per-question breakdown in a submit or results response.
type AnswerDetail struct {
	QuestionID    string        `json:"question_id"`
	Text          string        `json:"question_text"`
	UserAnswer    string        `json:"user_answer"`
	CorrectAnswer string        `json:"correct_answer"`
	IsCorrect     bool          `json:"is_correct"`
	IsAttempted   bool          `json:"is_attempted"`
	Explanation   string        `json:"explanation"`
	Options       model.Options `json:"options"`
}

// Results holds the scored outcome of one test.
type Results struct {
	Correct             int     `json:"correct_answers"`
	Wrong               int     `json:"wrong_answers"`
	NotAttempted        int     `json:"not_attempted"`
	Total               int     `json:"total_questions"`
	NeetScore           int     `json:"neet_score"`
	MaxScore            int     `json:"max_score"`
	ScorePercentage     float64 `json:"score_percentage"`
	Grade               string  `json:"grade"`
	TimeTakenMinutes    float64 `json:"time_taken_minutes"`
	TimeTakenSeconds    int     `json:"time_taken_seconds"`
	ExpectedTimeMinutes int     `json:"expected_time_minutes"`
}

// Performance pairs a grade with its descriptive message.
type Performance struct {
	Grade   string `json:"grade"`
	Message string `json:"grade_message"`
}

// SubmitResult is the response to a scored submission.
type SubmitResult struct {
	TestID        int64          `json:"test_id"`
	Results       Results        `json:"results"`
	Performance   Performance    `json:"performance_analysis"`
	AnswerDetails []AnswerDetail `json:"answer_details"`
}

// Submit scores a submission and completes the session. The caller echoes the
// original question payloads back so the answers can be reconciled into
// durable rows; the session's stored question count is overwritten with the
// submitted count. An already completed session is rejected, a merely expired
// one is scored normally.
func (e *Engine) Submit(ctx context.Context, id int64, answers []AnswerSubmission, originals []model.RawQuestionPayload) (*SubmitResult, error) {
	sess, err := e.store.GetTestSession(id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("%w: test session %d", ErrNotFound, id)
	}
	if sess.Status == model.StatusCompleted {
		return nil, fmt.Errorf("%w: test session %d", ErrAlreadyCompleted, id)
	}

	now := time.Now().UTC()
	timeTaken := int(now.Sub(sess.StartedAt).Seconds())
	if timeTaken < 0 {
		timeTaken = 0
	}

	// Reconcile the echoed question content into durable rows first, so
	// answer rows have real question IDs to point at. Lenient on purpose:
	// malformed items stay visible in the breakdown, the store just skips
	// persisting them.
	batch := make([]model.EphemeralQuestion, 0, len(originals))
	byEphemeralID := make(map[model.EphemeralID]model.EphemeralQuestion, len(originals))
	for _, p := range originals {
		eq := lenientQuestion(p)
		batch = append(batch, eq)
		byEphemeralID[eq.ID] = eq
	}
	mapping, err := e.store.ReconcileQuestions(batch, sess.SubjectID, sess.TopicID, questionSource)
	if err != nil {
		return nil, err
	}

	var correct, attempted int
	details := make([]AnswerDetail, 0, len(answers))
	rows := make([]model.TestAnswer, 0, len(answers))

	for _, a := range answers {
		raw := strings.ToUpper(strings.TrimSpace(a.Answer))
		isAttempted := raw != ""
		if isAttempted {
			attempted++
		}

		durableID, q, err := e.resolveQuestion(a.QuestionID, mapping)
		if err != nil {
			return nil, err
		}

		var content model.EphemeralQuestion
		haveContent := false
		if q != nil {
			content = model.EphemeralQuestion{
				Text:          q.Text,
				Options:       q.Options,
				CorrectAnswer: q.CorrectAnswer,
				Explanation:   q.Explanation,
			}
			haveContent = true
		} else if eq, ok := byEphemeralID[model.EphemeralID(a.QuestionID)]; ok {
			content = eq
			haveContent = true
		}

		correctKnown := haveContent && content.CorrectAnswer.Valid()
		isCorrect := isAttempted && correctKnown && model.AnswerLetter(raw) == content.CorrectAnswer
		if isCorrect {
			correct++
		}

		if durableID != 0 {
			row := model.TestAnswer{
				TestSessionID: id,
				QuestionID:    durableID,
				IsCorrect:     isCorrect,
				TimeTaken:     a.TimeTaken,
			}
			if isAttempted {
				answer := raw
				row.UserAnswer = &answer
			}
			rows = append(rows, row)
		} else {
			slog.Warn("answer has no durable question, scoring without persisting",
				"session_id", id, "question_id", a.QuestionID)
		}

		userAnswer := raw
		if !isAttempted {
			userAnswer = "Not Attempted"
		}
		detailID := a.QuestionID
		if durableID != 0 {
			detailID = strconv.FormatInt(int64(durableID), 10)
		}
		details = append(details, AnswerDetail{
			QuestionID:    detailID,
			Text:          content.Text,
			UserAnswer:    userAnswer,
			CorrectAnswer: string(content.CorrectAnswer),
			IsCorrect:     isCorrect,
			IsAttempted:   isAttempted,
			Explanation:   content.Explanation,
			Options:       content.Options,
		})
	}

	total := len(answers)
	wrong := attempted - correct
	notAttempted := total - attempted
	summary := Score(correct, wrong, notAttempted)
	pct := round2(summary.Percentage)
	grade := GradeFor(pct)

	update := *sess
	update.TotalQuestions = total
	update.CorrectAnswers = correct
	update.WrongAnswers = &wrong
	update.NotAttempted = &notAttempted
	update.NeetScore = &summary.NeetScore
	update.MaxScore = &summary.MaxScore
	update.ScorePercentage = pct
	update.TimeTaken = &timeTaken
	update.Status = model.StatusCompleted
	update.CompletedAt = &now

	if err := e.store.CompleteSession(update, rows); err != nil {
		if errors.Is(err, store.ErrSessionConflict) {
			return nil, fmt.Errorf("%w: test session %d", ErrAlreadyCompleted, id)
		}
		return nil, err
	}

	slog.Info("completed test session",
		"session_id", id, "score", summary.NeetScore, "percentage", pct, "grade", grade)

	return &SubmitResult{
		TestID: id,
		Results: Results{
			Correct:             correct,
			Wrong:               wrong,
			NotAttempted:        notAttempted,
			Total:               total,
			NeetScore:           summary.NeetScore,
			MaxScore:            summary.MaxScore,
			ScorePercentage:     pct,
			Grade:               grade,
			TimeTakenMinutes:    round1(float64(timeTaken) / 60),
			TimeTakenSeconds:    timeTaken,
			ExpectedTimeMinutes: total,
		},
		Performance: Performance{
			Grade:   grade,
			Message: GradeMessage(grade),
		},
		AnswerDetails: details,
	}, nil
}

// resolveQuestion resolves a submitted question ID to a durable row: numeric
// IDs are looked up directly, anything else goes through the batch's
// reconciliation mapping. Returns zero and nil when unresolvable.
func (e *Engine) resolveQuestion(id string, mapping map[model.EphemeralID]model.QuestionID) (model.QuestionID, *model.Question, error) {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		q, err := e.store.GetQuestion(model.QuestionID(n))
		if err != nil {
			return 0, nil, err
		}
		if q != nil {
			return q.ID, q, nil
		}
		return 0, nil, nil
	}
	durableID, ok := mapping[model.EphemeralID(id)]
	if !ok {
		return 0, nil, nil
	}
	q, err := e.store.GetQuestion(durableID)
	if err != nil {
		return 0, nil, err
	}
	return durableID, q, nil
}

// lenientQuestion converts a raw payload without dropping anything. Invalid
// fields pass through as-is; the store's reconciliation decides what persists
// and the scorer only trusts a valid correct-answer letter.
func lenientQuestion(p model.RawQuestionPayload) model.EphemeralQuestion {
	difficulty := model.Difficulty(strings.ToLower(p.Difficulty))
	if !difficulty.Valid() {
		difficulty = model.DifficultyMedium
	}
	return model.EphemeralQuestion{
		ID:            model.EphemeralID(p.ID),
		Text:          strings.TrimSpace(p.Text),
		Options:       p.NormalizeOptions(),
		CorrectAnswer: model.AnswerLetter(strings.ToUpper(strings.TrimSpace(p.CorrectAnswer))),
		Explanation:   p.Explanation,
		Difficulty:    difficulty,
		Topic:         p.Topic,
	}
}

// Results returns the stored outcome of a completed session, rebuilding the
// per-question breakdown from the persisted answer rows.
func (e *Engine) Results(id int64) (*SubmitResult, error) {
	sess, err := e.store.GetTestSession(id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("%w: test session %d", ErrNotFound, id)
	}
	if sess.Status != model.StatusCompleted {
		return nil, fmt.Errorf("%w: test session %d is not completed", ErrInvalidRequest, id)
	}

	counters := model.DerivedCounters(*sess)
	grade := GradeFor(sess.ScorePercentage)

	timeTaken := 0
	if sess.TimeTaken != nil {
		timeTaken = *sess.TimeTaken
	}

	answers, err := e.store.ListAnswers(id)
	if err != nil {
		return nil, err
	}
	details := make([]AnswerDetail, 0, len(answers))
	for _, a := range answers {
		q, err := e.store.GetQuestion(a.QuestionID)
		if err != nil {
			return nil, err
		}
		if q == nil {
			continue
		}
		userAnswer := "Not Attempted"
		if a.UserAnswer != nil {
			userAnswer = *a.UserAnswer
		}
		details = append(details, AnswerDetail{
			QuestionID:    strconv.FormatInt(int64(a.QuestionID), 10),
			Text:          q.Text,
			UserAnswer:    userAnswer,
			CorrectAnswer: string(q.CorrectAnswer),
			IsCorrect:     a.IsCorrect,
			IsAttempted:   a.UserAnswer != nil,
			Explanation:   q.Explanation,
			Options:       q.Options,
		})
	}

	return &SubmitResult{
		TestID: id,
		Results: Results{
			Correct:             sess.CorrectAnswers,
			Wrong:               counters.Wrong,
			NotAttempted:        counters.NotAttempted,
			Total:               sess.TotalQuestions,
			NeetScore:           counters.NeetScore,
			MaxScore:            counters.MaxScore,
			ScorePercentage:     sess.ScorePercentage,
			Grade:               grade,
			TimeTakenMinutes:    round1(float64(timeTaken) / 60),
			TimeTakenSeconds:    timeTaken,
			ExpectedTimeMinutes: sess.TotalQuestions,
		},
		Performance: Performance{
			Grade:   grade,
			Message: GradeMessage(grade),
		},
		AnswerDetails: details,
	}, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
