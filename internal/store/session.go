package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/neetprep/neetprep/internal/model"
)

// ErrSessionConflict is returned when a session update loses the
// check-then-set race against a concurrent completion.
var ErrSessionConflict = fmt.Errorf("session already completed")

const sessionColumns = `id, user_id, subject_id, topic_id, total_questions, correct_answers,
	wrong_answers, not_attempted, neet_score, max_score, score_percentage,
	time_taken, status, started_at, completed_at`

func scanSession(row interface{ Scan(...any) error }) (model.TestSession, error) {
	var sess model.TestSession
	var topicID, wrong, notAttempted, neet, maxScore, timeTaken sql.NullInt64
	var completedAt sql.NullTime
	err := row.Scan(
		&sess.ID, &sess.UserID, &sess.SubjectID, &topicID,
		&sess.TotalQuestions, &sess.CorrectAnswers,
		&wrong, &notAttempted, &neet, &maxScore,
		&sess.ScorePercentage, &timeTaken, &sess.Status, &sess.StartedAt, &completedAt,
	)
	if err != nil {
		return sess, err
	}
	if topicID.Valid {
		sess.TopicID = &topicID.Int64
	}
	sess.WrongAnswers = nullableInt(wrong)
	sess.NotAttempted = nullableInt(notAttempted)
	sess.NeetScore = nullableInt(neet)
	sess.MaxScore = nullableInt(maxScore)
	sess.TimeTaken = nullableInt(timeTaken)
	if completedAt.Valid {
		t := completedAt.Time
		sess.CompletedAt = &t
	}
	return sess, nil
}

func nullableInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

// CreateSessionWithQuestions creates a test session and reconciles its
// question batch in one transaction, so a reconciliation failure leaves no
// orphaned in_progress session behind.
func (s *Store) CreateSessionWithQuestions(sess model.TestSession, batch []model.EphemeralQuestion, source string) (int64, map[model.EphemeralID]model.QuestionID, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, nil, err
	}
	defer tx.Rollback()

	var topicID any
	if sess.TopicID != nil {
		topicID = *sess.TopicID
	}
	res, err := tx.Exec(
		`INSERT INTO test_sessions (user_id, subject_id, topic_id, total_questions, correct_answers,
			score_percentage, status, started_at)
		 VALUES (?, ?, ?, ?, 0, 0, ?, ?)`,
		sess.UserID, sess.SubjectID, topicID, sess.TotalQuestions, model.StatusInProgress, sess.StartedAt,
	)
	if err != nil {
		return 0, nil, err
	}
	sessionID, err := res.LastInsertId()
	if err != nil {
		return 0, nil, err
	}

	mapping, err := reconcileTx(tx, batch, sess.SubjectID, sess.TopicID, source)
	if err != nil {
		return 0, nil, err
	}

	return sessionID, mapping, tx.Commit()
}

// GetTestSession returns a session by ID, or nil if not found.
func (s *Store) GetTestSession(id int64) (*model.TestSession, error) {
	sess, err := scanSession(s.db.QueryRow(
		`SELECT `+sessionColumns+` FROM test_sessions WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// UpdateSessionStatus sets a session's status. Used for lazy expiry.
func (s *Store) UpdateSessionStatus(id int64, status model.SessionStatus) error {
	_, err := s.db.Exec(`UPDATE test_sessions SET status = ? WHERE id = ?`, status, id)
	return err
}

// CompleteSession writes final counters, marks the session completed and
// persists its answer rows, all in one transaction. The status guard in the
// UPDATE is the check-then-set against a concurrent double submit: if another
// submission won, no row matches and ErrSessionConflict is returned.
func (s *Store) CompleteSession(sess model.TestSession, answers []model.TestAnswer) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE test_sessions
		 SET total_questions = ?, correct_answers = ?, wrong_answers = ?, not_attempted = ?,
			 neet_score = ?, max_score = ?, score_percentage = ?, time_taken = ?,
			 status = ?, completed_at = ?
		 WHERE id = ? AND status <> ?`,
		sess.TotalQuestions, sess.CorrectAnswers, deref(sess.WrongAnswers), deref(sess.NotAttempted),
		deref(sess.NeetScore), deref(sess.MaxScore), sess.ScorePercentage, deref(sess.TimeTaken),
		model.StatusCompleted, sess.CompletedAt,
		sess.ID, model.StatusCompleted,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSessionConflict
	}

	for _, a := range answers {
		var userAnswer any
		if a.UserAnswer != nil {
			userAnswer = *a.UserAnswer
		}
		_, err := tx.Exec(
			`INSERT INTO test_answers (test_session_id, question_id, user_answer, is_correct, time_taken, answered_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			sess.ID, a.QuestionID, userAnswer, a.IsCorrect, a.TimeTaken, time.Now().UTC(),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func deref(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

// ListAnswers returns all answer rows for a session in insertion order.
func (s *Store) ListAnswers(sessionID int64) ([]model.TestAnswer, error) {
	rows, err := s.db.Query(
		`SELECT id, test_session_id, question_id, user_answer, is_correct, time_taken, answered_at
		 FROM test_answers WHERE test_session_id = ? ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var answers []model.TestAnswer
	for rows.Next() {
		var a model.TestAnswer
		var userAnswer sql.NullString
		if err := rows.Scan(&a.ID, &a.TestSessionID, &a.QuestionID, &userAnswer, &a.IsCorrect, &a.TimeTaken, &a.AnsweredAt); err != nil {
			return nil, err
		}
		if userAnswer.Valid {
			v := userAnswer.String
			a.UserAnswer = &v
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// ListCompletedSessions returns a user's completed sessions, most recent first.
func (s *Store) ListCompletedSessions(userID int64) ([]model.TestSession, error) {
	rows, err := s.db.Query(
		`SELECT `+sessionColumns+` FROM test_sessions
		 WHERE user_id = ? AND status = ?
		 ORDER BY completed_at DESC`, userID, model.StatusCompleted,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []model.TestSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}
