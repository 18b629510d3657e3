package exam

import (
	"testing"
	"time"

	"github.com/neetprep/neetprep/internal/model"
)

func addCompletedSession(t *testing.T, f *fixture, subjectID int64, score float64, completedAt time.Time) {
	t.Helper()
	sessionID, _, err := f.store.CreateSessionWithQuestions(model.TestSession{
		UserID:         f.userID,
		SubjectID:      subjectID,
		TotalQuestions: 5,
		StartedAt:      completedAt.Add(-5 * time.Minute),
	}, nil, "ai_generated")
	if err != nil {
		t.Fatalf("CreateSessionWithQuestions: %v", err)
	}
	sess, err := f.store.GetTestSession(sessionID)
	if err != nil {
		t.Fatalf("GetTestSession: %v", err)
	}
	update := *sess
	update.ScorePercentage = score
	update.Status = model.StatusCompleted
	update.CompletedAt = &completedAt
	if err := f.store.CompleteSession(update, nil); err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}
}

func TestAnalyticsEmpty(t *testing.T) {
	f := newFixture(t, &stubSource{})

	result, err := f.engine.Analytics(f.userID)
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}
	if result.TotalTests != 0 {
		t.Errorf("expected 0 tests, got %d", result.TotalTests)
	}
	if result.Trend != nil {
		t.Errorf("expected no trend, got %+v", result.Trend)
	}
	if len(result.Subjects) != 0 || len(result.RecentScores) != 0 {
		t.Errorf("expected empty aggregates: %+v", result)
	}
}

func TestAnalyticsAggregates(t *testing.T) {
	f := newFixture(t, &stubSource{})
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	// Chronological scores 80, 60, 70, 90.
	for i, score := range []float64{80, 60, 70, 90} {
		addCompletedSession(t, f, f.subjectID, score, base.AddDate(0, 0, i*7))
	}

	result, err := f.engine.Analytics(f.userID)
	if err != nil {
		t.Fatalf("Analytics: %v", err)
	}

	if result.TotalTests != 4 {
		t.Errorf("total tests = %d, want 4", result.TotalTests)
	}
	if result.AverageScore != 75 {
		t.Errorf("average = %v, want 75", result.AverageScore)
	}
	if result.BestScore != 90 {
		t.Errorf("best = %v, want 90", result.BestScore)
	}
	if len(result.RecentScores) != 4 || result.RecentScores[0] != 90 {
		t.Errorf("recent scores wrong: %v", result.RecentScores)
	}

	if result.Trend == nil {
		t.Fatal("expected a trend")
	}
	if result.Trend.Direction != "improving" || result.Trend.Change != 20 {
		t.Errorf("trend = %+v, want improving +20", result.Trend)
	}

	perf, ok := result.Subjects["physics"]
	if !ok {
		t.Fatalf("expected physics performance, got %v", result.Subjects)
	}
	if perf.Count != 4 || perf.Average != 75 || perf.Best != 90 {
		t.Errorf("physics performance = %+v", perf)
	}
	if len(perf.RecentTests) != 4 {
		t.Errorf("expected 4 recent tests, got %d", len(perf.RecentTests))
	}

	// 4 tests over a 21 day span.
	if result.Frequency.TestsPerWeek != 1.3 {
		t.Errorf("tests per week = %v, want 1.3", result.Frequency.TestsPerWeek)
	}
}

func TestScoreTrend(t *testing.T) {
	tests := []struct {
		name       string
		recent     []float64
		wantNil    bool
		wantDir    string
		wantChange float64
	}{
		{"too few scores", []float64{50}, true, "", 0},
		{"improving", []float64{80, 60}, false, "improving", 20},
		{"declining", []float64{40, 70}, false, "declining", -30},
		{"stable small gain", []float64{63, 60}, false, "stable", 3},
		{"stable small drop", []float64{58, 60}, false, "stable", -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoreTrend(tt.recent)
			if tt.wantNil {
				if got != nil {
					t.Errorf("expected nil trend, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("expected a trend")
			}
			if got.Direction != tt.wantDir || got.Change != tt.wantChange {
				t.Errorf("trend = %+v, want %s %v", got, tt.wantDir, tt.wantChange)
			}
		})
	}
}

func TestTestFrequency(t *testing.T) {
	now := time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)
	day := func(d int) *time.Time {
		t := time.Date(2025, 3, d, 12, 0, 0, 0, time.UTC)
		return &t
	}

	t.Run("no dated sessions", func(t *testing.T) {
		freq := testFrequency([]model.TestSession{{}, {}}, now)
		if freq.TestsPerWeek != 0 {
			t.Errorf("expected 0 tests/week, got %v", freq.TestsPerWeek)
		}
	})

	t.Run("single session", func(t *testing.T) {
		freq := testFrequency([]model.TestSession{{CompletedAt: day(10)}}, now)
		if freq.TestsPerWeek != 0 {
			t.Errorf("expected 0 tests/week, got %v", freq.TestsPerWeek)
		}
		if freq.LastTestDaysAgo != 21 {
			t.Errorf("last test days ago = %d, want 21", freq.LastTestDaysAgo)
		}
	})

	t.Run("weekly cadence", func(t *testing.T) {
		sessions := []model.TestSession{
			{CompletedAt: day(1)},
			{CompletedAt: day(8)},
			{CompletedAt: day(15)},
		}
		freq := testFrequency(sessions, now)
		if freq.TestsPerWeek != 1.5 {
			t.Errorf("tests per week = %v, want 1.5", freq.TestsPerWeek)
		}
		if freq.LastTestDaysAgo != 16 {
			t.Errorf("last test days ago = %d, want 16", freq.LastTestDaysAgo)
		}
	})
}

func TestSuggestions(t *testing.T) {
	sessionsWith := func(scores ...float64) []model.TestSession {
		out := make([]model.TestSession, 0, len(scores))
		for _, s := range scores {
			out = append(out, model.TestSession{ScorePercentage: s})
		}
		return out
	}

	t.Run("weak subject called out", func(t *testing.T) {
		got := suggestions(65, map[string][]model.TestSession{
			"physics":   sessionsWith(80, 80),
			"chemistry": sessionsWith(40, 50),
		})
		if len(got) != 2 {
			t.Fatalf("expected 2 suggestions, got %v", got)
		}
		if got[0] != "Focus more on chemistry - your average score is 45.0%" {
			t.Errorf("unexpected weak-subject suggestion: %q", got[0])
		}
	})

	t.Run("low overall average", func(t *testing.T) {
		got := suggestions(42, map[string][]model.TestSession{"physics": sessionsWith(42)})
		last := got[len(got)-1]
		if last != "Review fundamental concepts before attempting more tests" {
			t.Errorf("unexpected suggestion: %q", last)
		}
	})

	t.Run("strong performer", func(t *testing.T) {
		got := suggestions(85, map[string][]model.TestSession{"physics": sessionsWith(85)})
		if len(got) != 1 {
			t.Fatalf("expected 1 suggestion, got %v", got)
		}
		if got[0] != "Great progress! Keep practicing regularly to maintain your performance" {
			t.Errorf("unexpected suggestion: %q", got[0])
		}
	})
}

func TestHistory(t *testing.T) {
	f := newFixture(t, &stubSource{})
	base := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

	addCompletedSession(t, f, f.subjectID, 60, base)
	addCompletedSession(t, f, f.subjectID, 80, base.AddDate(0, 0, 1))

	history, err := f.engine.History(f.userID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if history[0].ScorePercentage != 80 {
		t.Errorf("expected most recent first, got %+v", history[0])
	}
	if history[0].TestName != "Physics Test" || history[0].Subject != "Physics" {
		t.Errorf("unexpected naming: %+v", history[0])
	}
	if history[0].MaxScore != 20 {
		t.Errorf("expected derived max score 20, got %d", history[0].MaxScore)
	}
}

func TestHistoryDerivesLegacyCounters(t *testing.T) {
	f := newFixture(t, &stubSource{})

	// Simulate a legacy row: completed with null counter columns.
	completedAt := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	sessionID, _, err := f.store.CreateSessionWithQuestions(model.TestSession{
		UserID:         f.userID,
		SubjectID:      f.subjectID,
		TotalQuestions: 5,
		StartedAt:      completedAt.Add(-5 * time.Minute),
	}, nil, "ai_generated")
	if err != nil {
		t.Fatalf("CreateSessionWithQuestions: %v", err)
	}
	sess, err := f.store.GetTestSession(sessionID)
	if err != nil {
		t.Fatalf("GetTestSession: %v", err)
	}
	update := *sess
	update.CorrectAnswers = 3
	update.ScorePercentage = 50
	update.Status = model.StatusCompleted
	update.CompletedAt = &completedAt
	if err := f.store.CompleteSession(update, nil); err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}

	history, err := f.engine.History(f.userID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(history))
	}
	entry := history[0]
	if entry.WrongAnswers != 2 || entry.NotAttempted != 0 {
		t.Errorf("derived counters = %d/%d, want 2/0", entry.WrongAnswers, entry.NotAttempted)
	}
	if entry.NeetScore != 10 || entry.MaxScore != 20 {
		t.Errorf("derived scores = %d/%d, want 10/20", entry.NeetScore, entry.MaxScore)
	}
}
