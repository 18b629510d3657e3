package exam

import (
	"fmt"
	"strings"
	"time"

	"github.com/neetprep/neetprep/internal/model"
)

// HistoryEntry is one completed test in a user's history.
type HistoryEntry struct {
	TestID           int64     `json:"test_id"`
	TestName         string    `json:"test_name"`
	Subject          string    `json:"subject"`
	Topic            string    `json:"topic,omitempty"`
	TotalQuestions   int       `json:"total_questions"`
	CorrectAnswers   int       `json:"correct_answers"`
	WrongAnswers     int       `json:"wrong_answers"`
	NotAttempted     int       `json:"not_attempted"`
	NeetScore        int       `json:"neet_score"`
	MaxScore         int       `json:"max_score"`
	ScorePercentage  float64   `json:"score_percentage"`
	TimeTakenMinutes float64   `json:"time_taken_minutes"`
	CompletedAt      time.Time `json:"completed_at"`
}

// History lists a user's completed tests, most recent first.
func (e *Engine) History(userID int64) ([]HistoryEntry, error) {
	sessions, err := e.store.ListCompletedSessions(userID)
	if err != nil {
		return nil, err
	}

	subjectNames := map[int64]string{}
	topicNames := map[int64]string{}

	entries := make([]HistoryEntry, 0, len(sessions))
	for _, sess := range sessions {
		subjectName, ok := subjectNames[sess.SubjectID]
		if !ok {
			subject, err := e.store.GetSubject(sess.SubjectID)
			if err != nil {
				return nil, err
			}
			if subject != nil {
				subjectName = subject.Name
			}
			subjectNames[sess.SubjectID] = subjectName
		}

		topicName := ""
		if sess.TopicID != nil {
			topicName, ok = topicNames[*sess.TopicID]
			if !ok {
				topic, err := e.store.GetTopic(*sess.TopicID)
				if err != nil {
					return nil, err
				}
				if topic != nil {
					topicName = topic.Name
				}
				topicNames[*sess.TopicID] = topicName
			}
		}

		counters := model.DerivedCounters(sess)
		timeTaken := 0
		if sess.TimeTaken != nil {
			timeTaken = *sess.TimeTaken
		}
		completedAt := sess.StartedAt
		if sess.CompletedAt != nil {
			completedAt = *sess.CompletedAt
		}

		entries = append(entries, HistoryEntry{
			TestID:           sess.ID,
			TestName:         fmt.Sprintf("%s Test", subjectName),
			Subject:          subjectName,
			Topic:            topicName,
			TotalQuestions:   sess.TotalQuestions,
			CorrectAnswers:   sess.CorrectAnswers,
			WrongAnswers:     counters.Wrong,
			NotAttempted:     counters.NotAttempted,
			NeetScore:        counters.NeetScore,
			MaxScore:         counters.MaxScore,
			ScorePercentage:  sess.ScorePercentage,
			TimeTakenMinutes: round1(float64(timeTaken) / 60),
			CompletedAt:      completedAt,
		})
	}
	return entries, nil
}

// RecentTest is a compact score point for the per-subject breakdown.
type RecentTest struct {
	TestID int64      `json:"test_id"`
	Score  float64    `json:"score"`
	Date   *time.Time `json:"date,omitempty"`
}

// SubjectPerformance aggregates a user's scores within one subject.
type SubjectPerformance struct {
	Average     float64      `json:"average"`
	Best        float64      `json:"best"`
	Count       int          `json:"count"`
	RecentTests []RecentTest `json:"recent_tests"`
}

// Trend compares the latest score against the previous one.
type Trend struct {
	Direction string  `json:"direction"`
	Change    float64 `json:"change"`
	Latest    float64 `json:"latest"`
	Previous  float64 `json:"previous"`
}

// Frequency describes how often the user takes tests.
type Frequency struct {
	TestsPerWeek    float64 `json:"tests_per_week"`
	LastTestDaysAgo int     `json:"last_test_days_ago"`
}

// AnalyticsResult is the full analytics view over a user's completed tests.
type AnalyticsResult struct {
	TotalTests   int                           `json:"total_tests"`
	AverageScore float64                       `json:"average_score"`
	BestScore    float64                       `json:"best_score"`
	RecentScores []float64                     `json:"recent_scores"`
	Subjects     map[string]SubjectPerformance `json:"subject_performance"`
	Trend        *Trend                        `json:"trend,omitempty"`
	Frequency    Frequency                     `json:"test_frequency"`
	Suggestions  []string                      `json:"suggestions"`
}

// Analytics computes aggregate performance statistics over all of a user's
// completed tests. With no completed tests it returns an empty result rather
// than an error.
func (e *Engine) Analytics(userID int64) (*AnalyticsResult, error) {
	sessions, err := e.store.ListCompletedSessions(userID)
	if err != nil {
		return nil, err
	}

	result := &AnalyticsResult{
		TotalTests:   len(sessions),
		Subjects:     map[string]SubjectPerformance{},
		RecentScores: []float64{},
		Suggestions:  []string{},
	}
	if len(sessions) == 0 {
		return result, nil
	}

	var sum float64
	for _, sess := range sessions {
		sum += sess.ScorePercentage
		if sess.ScorePercentage > result.BestScore {
			result.BestScore = sess.ScorePercentage
		}
	}
	result.AverageScore = round2(sum / float64(len(sessions)))

	// Sessions arrive most recent first.
	for i, sess := range sessions {
		if i == 10 {
			break
		}
		result.RecentScores = append(result.RecentScores, sess.ScorePercentage)
	}

	subjectNames := map[int64]string{}
	bySubject := map[string][]model.TestSession{}
	for _, sess := range sessions {
		name, ok := subjectNames[sess.SubjectID]
		if !ok {
			subject, err := e.store.GetSubject(sess.SubjectID)
			if err != nil {
				return nil, err
			}
			if subject != nil {
				name = subject.Name
			}
			subjectNames[sess.SubjectID] = name
		}
		key := strings.ToLower(name)
		bySubject[key] = append(bySubject[key], sess)
	}
	for name, subjectSessions := range bySubject {
		result.Subjects[name] = subjectPerformance(subjectSessions)
	}

	result.Trend = scoreTrend(result.RecentScores)
	result.Frequency = testFrequency(sessions, time.Now().UTC())
	result.Suggestions = suggestions(result.AverageScore, bySubject)

	return result, nil
}

func subjectPerformance(sessions []model.TestSession) SubjectPerformance {
	perf := SubjectPerformance{Count: len(sessions), RecentTests: []RecentTest{}}
	var sum float64
	for _, sess := range sessions {
		sum += sess.ScorePercentage
		if sess.ScorePercentage > perf.Best {
			perf.Best = sess.ScorePercentage
		}
	}
	perf.Average = round2(sum / float64(len(sessions)))
	for i, sess := range sessions {
		if i == 5 {
			break
		}
		perf.RecentTests = append(perf.RecentTests, RecentTest{
			TestID: sess.ID,
			Score:  sess.ScorePercentage,
			Date:   sess.CompletedAt,
		})
	}
	return perf
}

// scoreTrend classifies the latest-vs-previous score delta. More than 5
// points up is improving, more than 5 down is declining, anything between
// is stable. Needs at least two scores.
func scoreTrend(recent []float64) *Trend {
	if len(recent) < 2 {
		return nil
	}
	latest, previous := recent[0], recent[1]
	change := latest - previous
	direction := "stable"
	if change > 5 {
		direction = "improving"
	} else if change < -5 {
		direction = "declining"
	}
	return &Trend{
		Direction: direction,
		Change:    round1(change),
		Latest:    latest,
		Previous:  previous,
	}
}

// testFrequency computes tests per week over the span between the earliest
// and latest completion. Fewer than two dated sessions yields zero.
func testFrequency(sessions []model.TestSession, now time.Time) Frequency {
	var freq Frequency
	var earliest, latest *time.Time
	for i := range sessions {
		t := sessions[i].CompletedAt
		if t == nil {
			continue
		}
		if earliest == nil || t.Before(*earliest) {
			earliest = t
		}
		if latest == nil || t.After(*latest) {
			latest = t
		}
	}
	if latest != nil {
		freq.LastTestDaysAgo = int(now.Sub(*latest).Hours() / 24)
	}
	if earliest == nil || latest == nil || earliest.Equal(*latest) {
		return freq
	}
	days := latest.Sub(*earliest).Hours() / 24
	if days > 0 {
		freq.TestsPerWeek = round1(float64(len(sessions)) / (days / 7))
	}
	return freq
}

// suggestions builds study advice from the overall average and the weakest
// subject.
func suggestions(average float64, bySubject map[string][]model.TestSession) []string {
	out := []string{}

	weakest := ""
	weakestAvg := 0.0
	for name, sessions := range bySubject {
		var sum float64
		for _, sess := range sessions {
			sum += sess.ScorePercentage
		}
		avg := sum / float64(len(sessions))
		if weakest == "" || avg < weakestAvg {
			weakest = name
			weakestAvg = avg
		}
	}
	if weakest != "" && weakestAvg < 60 {
		out = append(out, fmt.Sprintf("Focus more on %s - your average score is %.1f%%", weakest, weakestAvg))
	}

	switch {
	case average < 50:
		out = append(out, "Review fundamental concepts before attempting more tests")
	case average < 70:
		out = append(out, "Work on time management and accuracy to push your scores higher")
	default:
		out = append(out, "Great progress! Keep practicing regularly to maintain your performance")
	}
	return out
}
