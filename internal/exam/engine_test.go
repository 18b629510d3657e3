package exam

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/neetprep/neetprep/internal/model"
	"github.com/neetprep/neetprep/internal/store"
)

// stubSource returns a fixed number of generated questions, or an error.
type stubSource struct {
	produce int
	err     error
}

func (s *stubSource) Generate(_ context.Context, subject, _ string, count int, difficulty model.Difficulty) ([]model.EphemeralQuestion, error) {
	if s.err != nil {
		return nil, s.err
	}
	n := s.produce
	if n == 0 {
		n = count
	}
	questions := make([]model.EphemeralQuestion, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, model.EphemeralQuestion{
			ID:            model.EphemeralID(fmt.Sprintf("q_test_%d", i)),
			Text:          fmt.Sprintf("%s question %d", subject, i),
			Options:       model.Options{A: "opt a", B: "opt b", C: "opt c", D: "opt d"},
			CorrectAnswer: model.LetterA,
			Explanation:   "explained",
			Difficulty:    difficulty,
		})
	}
	return questions, nil
}

type fixture struct {
	store     *store.Store
	engine    *Engine
	userID    int64
	subjectID int64
	topicID   int64
}

func newFixture(t *testing.T, src QuestionSource) *fixture {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	userID, err := s.CreateUser(model.User{Username: "tester", Email: "tester@neettest.com", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	subjectID, err := s.CreateSubject(model.Subject{Name: "Physics", IsActive: true})
	if err != nil {
		t.Fatalf("CreateSubject: %v", err)
	}
	topicID, err := s.CreateTopic(model.Topic{SubjectID: subjectID, Name: "Mechanics", IsActive: true})
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	return &fixture{
		store:     s,
		engine:    NewEngine(s, src),
		userID:    userID,
		subjectID: subjectID,
		topicID:   topicID,
	}
}

// submissionFor builds the answers and echoed question payloads for a started
// test, answering each question with the given letters ("" = skip).
func submissionFor(result *StartResult, letters []string) ([]AnswerSubmission, []model.RawQuestionPayload) {
	answers := make([]AnswerSubmission, 0, len(result.Questions))
	payloads := make([]model.RawQuestionPayload, 0, len(result.Questions))
	for i, q := range result.Questions {
		answer := ""
		if i < len(letters) {
			answer = letters[i]
		}
		answers = append(answers, AnswerSubmission{
			QuestionID: string(q.ID),
			Answer:     answer,
			TimeTaken:  30,
		})
		payloads = append(payloads, model.RawQuestionPayload{
			ID:            string(q.ID),
			Text:          q.Text,
			OptionA:       q.Options.A,
			OptionB:       q.Options.B,
			OptionC:       q.Options.C,
			OptionD:       q.Options.D,
			CorrectAnswer: "A",
			Explanation:   "explained",
		})
	}
	return answers, payloads
}

func TestStartTest(t *testing.T) {
	f := newFixture(t, &stubSource{})

	result, err := f.engine.Start(context.Background(), f.userID, f.subjectID, &f.topicID, 5)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if result.TotalQuestions != 5 || len(result.Questions) != 5 {
		t.Fatalf("expected 5 questions, got %d/%d", result.TotalQuestions, len(result.Questions))
	}
	if result.TimerMinutes != 5 || result.TimerSeconds != 300 {
		t.Errorf("expected 5 minute timer, got %d/%d", result.TimerMinutes, result.TimerSeconds)
	}
	if !result.EndTime.Equal(result.StartTime.Add(5 * time.Minute)) {
		t.Errorf("end time should be start + 5m")
	}
	if !result.AutoSubmitAt.Equal(result.EndTime) {
		t.Errorf("auto submit should match end time")
	}
	if len(result.Instructions) == 0 {
		t.Error("expected instructions")
	}

	sess, err := f.store.GetTestSession(result.TestID)
	if err != nil {
		t.Fatalf("GetTestSession: %v", err)
	}
	if sess == nil || sess.Status != model.StatusInProgress {
		t.Fatalf("expected in_progress session, got %+v", sess)
	}
}

func TestStartValidation(t *testing.T) {
	f := newFixture(t, &stubSource{})
	ctx := context.Background()

	tests := []struct {
		name      string
		subjectID int64
		topicID   *int64
		count     int
		wantErr   error
	}{
		{"zero count", f.subjectID, nil, 0, ErrInvalidRequest},
		{"count too large", f.subjectID, nil, 51, ErrInvalidRequest},
		{"unknown subject", 9999, nil, 5, ErrNotFound},
		{"unknown topic", f.subjectID, int64Ptr(9999), 5, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Start(ctx, f.userID, tt.subjectID, tt.topicID, tt.count)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Start() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStartTopicFromOtherSubject(t *testing.T) {
	f := newFixture(t, &stubSource{})
	otherSubject, err := f.store.CreateSubject(model.Subject{Name: "Biology", IsActive: true})
	if err != nil {
		t.Fatalf("CreateSubject: %v", err)
	}
	otherTopic, err := f.store.CreateTopic(model.Topic{SubjectID: otherSubject, Name: "Genetics", IsActive: true})
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	_, err = f.engine.Start(context.Background(), f.userID, f.subjectID, &otherTopic, 5)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for cross-subject topic, got %v", err)
	}
}

func TestStartShortBatchLeavesNoSession(t *testing.T) {
	f := newFixture(t, &stubSource{produce: 2})

	_, err := f.engine.Start(context.Background(), f.userID, f.subjectID, nil, 5)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}

	sessions, err := f.store.ListCompletedSessions(f.userID)
	if err != nil {
		t.Fatalf("ListCompletedSessions: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("expected no sessions, got %d", len(sessions))
	}
	// The failed start must not leave an in_progress row either.
	if sess, err := f.store.GetTestSession(1); err != nil || sess != nil {
		t.Errorf("expected no session row, got %+v (err %v)", sess, err)
	}
}

func TestStartGenerationError(t *testing.T) {
	f := newFixture(t, &stubSource{err: errors.New("api down")})
	_, err := f.engine.Start(context.Background(), f.userID, f.subjectID, nil, 5)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestSubmitScoring(t *testing.T) {
	f := newFixture(t, &stubSource{})
	ctx := context.Background()

	started, err := f.engine.Start(ctx, f.userID, f.subjectID, nil, 5)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// One correct, one wrong, three skipped.
	answers, payloads := submissionFor(started, []string{"A", "B", "", "", ""})
	result, err := f.engine.Submit(ctx, started.TestID, answers, payloads)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	r := result.Results
	if r.Correct != 1 || r.Wrong != 1 || r.NotAttempted != 3 {
		t.Errorf("counts = %d/%d/%d, want 1/1/3", r.Correct, r.Wrong, r.NotAttempted)
	}
	if r.NeetScore != 3 || r.MaxScore != 20 {
		t.Errorf("score = %d/%d, want 3/20", r.NeetScore, r.MaxScore)
	}
	if r.ScorePercentage != 15 {
		t.Errorf("percentage = %v, want 15", r.ScorePercentage)
	}
	if r.Grade != "Poor" {
		t.Errorf("grade = %q, want Poor", r.Grade)
	}
	if result.Performance.Grade != r.Grade || result.Performance.Message == "" {
		t.Errorf("unexpected performance analysis: %+v", result.Performance)
	}

	if len(result.AnswerDetails) != 5 {
		t.Fatalf("expected 5 answer details, got %d", len(result.AnswerDetails))
	}
	if !result.AnswerDetails[0].IsCorrect || !result.AnswerDetails[0].IsAttempted {
		t.Errorf("first answer should be correct and attempted: %+v", result.AnswerDetails[0])
	}
	if result.AnswerDetails[1].IsCorrect || !result.AnswerDetails[1].IsAttempted {
		t.Errorf("second answer should be wrong but attempted: %+v", result.AnswerDetails[1])
	}
	if result.AnswerDetails[2].UserAnswer != "Not Attempted" {
		t.Errorf("skipped answer label = %q", result.AnswerDetails[2].UserAnswer)
	}

	// Session persisted as completed with the submitted totals.
	sess, err := f.store.GetTestSession(started.TestID)
	if err != nil {
		t.Fatalf("GetTestSession: %v", err)
	}
	if sess.Status != model.StatusCompleted {
		t.Errorf("expected completed, got %q", sess.Status)
	}
	if sess.TotalQuestions != 5 || sess.CorrectAnswers != 1 {
		t.Errorf("persisted totals = %d/%d", sess.TotalQuestions, sess.CorrectAnswers)
	}

	// Answer rows landed with durable question IDs.
	rows, err := f.store.ListAnswers(started.TestID)
	if err != nil {
		t.Fatalf("ListAnswers: %v", err)
	}
	if len(rows) != 5 {
		t.Errorf("expected 5 answer rows, got %d", len(rows))
	}
}

func TestSubmitLowercaseAndPaddedAnswers(t *testing.T) {
	f := newFixture(t, &stubSource{})
	ctx := context.Background()

	started, err := f.engine.Start(ctx, f.userID, f.subjectID, nil, 2)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	answers, payloads := submissionFor(started, []string{" a ", "a"})
	result, err := f.engine.Submit(ctx, started.TestID, answers, payloads)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Results.Correct != 2 {
		t.Errorf("expected both normalized answers to score, got %d correct", result.Results.Correct)
	}
}

func TestSubmitTwiceRejected(t *testing.T) {
	f := newFixture(t, &stubSource{})
	ctx := context.Background()

	started, err := f.engine.Start(ctx, f.userID, f.subjectID, nil, 2)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	answers, payloads := submissionFor(started, []string{"A", "A"})
	first, err := f.engine.Submit(ctx, started.TestID, answers, payloads)
	if err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	_, err = f.engine.Submit(ctx, started.TestID, answers, payloads)
	if !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}

	// Stored results are unchanged by the rejected attempt.
	stored, err := f.engine.Results(started.TestID)
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if stored.Results.NeetScore != first.Results.NeetScore {
		t.Errorf("stored score %d changed after rejected resubmit (was %d)",
			stored.Results.NeetScore, first.Results.NeetScore)
	}
}

func TestSubmitUnknownSession(t *testing.T) {
	f := newFixture(t, &stubSource{})
	_, err := f.engine.Submit(context.Background(), 9999, nil, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSubmitAfterExpiryStillScores(t *testing.T) {
	f := newFixture(t, &stubSource{})

	// Session started well past its deadline.
	sessionID, mapping, err := f.store.CreateSessionWithQuestions(model.TestSession{
		UserID:         f.userID,
		SubjectID:      f.subjectID,
		TotalQuestions: 1,
		StartedAt:      time.Now().UTC().Add(-2 * time.Hour),
	}, []model.EphemeralQuestion{{
		ID:            "q_late_0",
		Text:          "Late question",
		Options:       model.Options{A: "a", B: "b", C: "c", D: "d"},
		CorrectAnswer: model.LetterA,
	}}, "ai_generated")
	if err != nil {
		t.Fatalf("CreateSessionWithQuestions: %v", err)
	}

	status, err := f.engine.Status(sessionID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.IsExpired || status.Status != model.StatusExpired {
		t.Fatalf("expected expired session, got %+v", status)
	}
	if status.TimeRemainingSeconds != 0 {
		t.Errorf("expected 0 remaining, got %d", status.TimeRemainingSeconds)
	}

	// Expiry is advisory: the late submit still goes through.
	durableID := mapping["q_late_0"]
	result, err := f.engine.Submit(context.Background(), sessionID, []AnswerSubmission{
		{QuestionID: fmt.Sprint(durableID), Answer: "A", TimeTaken: 60},
	}, nil)
	if err != nil {
		t.Fatalf("Submit after expiry: %v", err)
	}
	if result.Results.Correct != 1 {
		t.Errorf("expected late submission scored, got %+v", result.Results)
	}
}

func TestSubmitOverwritesQuestionCount(t *testing.T) {
	f := newFixture(t, &stubSource{})
	ctx := context.Background()

	started, err := f.engine.Start(ctx, f.userID, f.subjectID, nil, 5)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Client submits only 3 of the 5 questions; the session adopts the
	// submitted count.
	answers, payloads := submissionFor(started, []string{"A", "A", "A"})
	answers = answers[:3]
	payloads = payloads[:3]

	result, err := f.engine.Submit(ctx, started.TestID, answers, payloads)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Results.Total != 3 || result.Results.MaxScore != 12 {
		t.Errorf("expected totals from submission, got %+v", result.Results)
	}

	sess, err := f.store.GetTestSession(started.TestID)
	if err != nil {
		t.Fatalf("GetTestSession: %v", err)
	}
	if sess.TotalQuestions != 3 {
		t.Errorf("persisted total = %d, want 3", sess.TotalQuestions)
	}
}

func TestStatusInProgress(t *testing.T) {
	f := newFixture(t, &stubSource{})

	started, err := f.engine.Start(context.Background(), f.userID, f.subjectID, nil, 5)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	status, err := f.engine.Status(started.TestID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Status != model.StatusInProgress || status.IsExpired {
		t.Errorf("expected in_progress, got %+v", status)
	}
	if status.TimeRemainingSeconds <= 0 || status.TimeRemainingSeconds > 300 {
		t.Errorf("remaining out of range: %d", status.TimeRemainingSeconds)
	}
	if status.ExpectedDurationMinutes != 5 {
		t.Errorf("expected duration 5, got %d", status.ExpectedDurationMinutes)
	}
}

func TestStatusUnknownSession(t *testing.T) {
	f := newFixture(t, &stubSource{})
	_, err := f.engine.Status(9999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestResultsRequiresCompletion(t *testing.T) {
	f := newFixture(t, &stubSource{})

	started, err := f.engine.Start(context.Background(), f.userID, f.subjectID, nil, 2)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, err = f.engine.Results(started.TestID)
	if !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for in_progress session, got %v", err)
	}
}

func int64Ptr(v int64) *int64 { return &v }
