package model

import (
	"context"
	"time"
)

// User represents a system user.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuthSession represents a bearer-token authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// SessionStatus represents the status of a test session.
type SessionStatus string

const (
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	StatusExpired    SessionStatus = "expired"
)

// Difficulty represents question difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the known difficulty levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// AnswerLetter is one of the four option letters A-D.
type AnswerLetter string

const (
	LetterA AnswerLetter = "A"
	LetterB AnswerLetter = "B"
	LetterC AnswerLetter = "C"
	LetterD AnswerLetter = "D"
)

// Valid reports whether l is one of A, B, C, D.
func (l AnswerLetter) Valid() bool {
	switch l {
	case LetterA, LetterB, LetterC, LetterD:
		return true
	}
	return false
}

// QuestionID is a durable database question identifier. It is distinct from
// EphemeralID on purpose: only store reconciliation converts one into the other.
type QuestionID int64

// EphemeralID is an opaque generator-assigned question identifier, unique only
// within one generation batch. It never flows into a numeric ID column.
type EphemeralID string

// Subject is a semantic category (Physics, Chemistry, Biology).
type Subject struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

// Topic refines a subject. A test session may be subject-only (no topic).
type Topic struct {
	ID          int64  `json:"id"`
	SubjectID   int64  `json:"subject_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

// Options holds the four answer options keyed A-D.
type Options struct {
	A string `json:"A"`
	B string `json:"B"`
	C string `json:"C"`
	D string `json:"D"`
}

// Get returns the option text for a letter.
func (o Options) Get(l AnswerLetter) string {
	switch l {
	case LetterA:
		return o.A
	case LetterB:
		return o.B
	case LetterC:
		return o.C
	case LetterD:
		return o.D
	}
	return ""
}

// Complete reports whether all four options are non-empty.
func (o Options) Complete() bool {
	return o.A != "" && o.B != "" && o.C != "" && o.D != ""
}

// Question is a durable question record. The reconciliation store is its sole
// writer; at most one row may share (question_text, subject_id).
type Question struct {
	ID            QuestionID   `json:"id"`
	SubjectID     int64        `json:"subject_id"`
	TopicID       *int64       `json:"topic_id,omitempty"`
	Text          string       `json:"question_text"`
	Options       Options      `json:"options"`
	CorrectAnswer AnswerLetter `json:"correct_answer"`
	Explanation   string       `json:"explanation"`
	Difficulty    Difficulty   `json:"difficulty"`
	Source        string       `json:"source"`
	IsActive      bool         `json:"is_active"`
	CreatedAt     time.Time    `json:"created_at"`
}

// IsAnswerCorrect reports whether the given letter matches the correct answer.
func (q Question) IsAnswerCorrect(l AnswerLetter) bool {
	return l == q.CorrectAnswer
}

// EphemeralQuestion is a transient generator-produced question. It lives only
// for one session's creation-to-submission round trip; durable Question rows
// created by reconciliation are the system of record.
type EphemeralQuestion struct {
	ID            EphemeralID  `json:"id"`
	Text          string       `json:"question_text"`
	Options       Options      `json:"options"`
	CorrectAnswer AnswerLetter `json:"correct_answer"`
	Explanation   string       `json:"explanation"`
	Difficulty    Difficulty   `json:"difficulty"`
	Topic         string       `json:"topic,omitempty"`
}

// TestSession is one timed test attempt by one user.
//
// The four counter fields are nullable: rows persisted before those columns
// existed carry NULLs, and readers go through DerivedCounters instead of
// defaulting ad hoc per call site.
type TestSession struct {
	ID              int64         `json:"id"`
	UserID          int64         `json:"user_id"`
	SubjectID       int64         `json:"subject_id"`
	TopicID         *int64        `json:"topic_id,omitempty"`
	TotalQuestions  int           `json:"total_questions"`
	CorrectAnswers  int           `json:"correct_answers"`
	WrongAnswers    *int          `json:"wrong_answers,omitempty"`
	NotAttempted    *int          `json:"not_attempted,omitempty"`
	NeetScore       *int          `json:"neet_score,omitempty"`
	MaxScore        *int          `json:"max_score,omitempty"`
	ScorePercentage float64       `json:"score_percentage"`
	TimeTaken       *int          `json:"time_taken,omitempty"` // seconds
	Status          SessionStatus `json:"status"`
	StartedAt       time.Time     `json:"started_at"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
}

// ExpectedDuration returns the session's allotted time: one minute per question.
func (s TestSession) ExpectedDuration() time.Duration {
	return time.Duration(s.TotalQuestions) * time.Minute
}

// Deadline returns the moment the session timer runs out.
func (s TestSession) Deadline() time.Time {
	return s.StartedAt.Add(s.ExpectedDuration())
}

// Counters holds the resolved score counters for a session.
type Counters struct {
	Wrong        int
	NotAttempted int
	NeetScore    int
	MaxScore     int
}

// DerivedCounters resolves the nullable counter fields, defaulting missing
// values from total/correct for rows written before the columns existed.
// Missing not_attempted defaults to zero, matching the stored history.
func DerivedCounters(s TestSession) Counters {
	var c Counters
	if s.WrongAnswers != nil {
		c.Wrong = *s.WrongAnswers
	} else {
		c.Wrong = max(0, s.TotalQuestions-s.CorrectAnswers)
	}
	if s.NotAttempted != nil {
		c.NotAttempted = *s.NotAttempted
	}
	if s.NeetScore != nil {
		c.NeetScore = *s.NeetScore
	} else {
		c.NeetScore = s.CorrectAnswers*4 - c.Wrong
	}
	if s.MaxScore != nil {
		c.MaxScore = *s.MaxScore
	} else {
		c.MaxScore = s.TotalQuestions * 4
	}
	return c
}

// TestAnswer is one submitted answer row, owned by its session. UserAnswer is
// nil when the question was not attempted.
type TestAnswer struct {
	ID            int64      `json:"id"`
	TestSessionID int64      `json:"test_session_id"`
	QuestionID    QuestionID `json:"question_id"`
	UserAnswer    *string    `json:"user_answer"`
	IsCorrect     bool       `json:"is_correct"`
	TimeTaken     int        `json:"time_taken"` // seconds
	AnsweredAt    time.Time  `json:"answered_at"`
}
