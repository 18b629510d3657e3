package store

import (
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/neetprep/neetprep/internal/model"
)

const questionColumns = `id, subject_id, topic_id, question_text, option_a, option_b, option_c, option_d,
	correct_answer, explanation, difficulty, source, is_active, created_at`

func scanQuestion(row interface{ Scan(...any) error }) (model.Question, error) {
	var q model.Question
	var topicID sql.NullInt64
	err := row.Scan(
		&q.ID, &q.SubjectID, &topicID, &q.Text,
		&q.Options.A, &q.Options.B, &q.Options.C, &q.Options.D,
		&q.CorrectAnswer, &q.Explanation, &q.Difficulty, &q.Source, &q.IsActive, &q.CreatedAt,
	)
	if err != nil {
		return q, err
	}
	if topicID.Valid {
		q.TopicID = &topicID.Int64
	}
	return q, nil
}

// InsertQuestion stores a question and returns its durable ID.
func (s *Store) InsertQuestion(q model.Question) (model.QuestionID, error) {
	id, err := insertQuestion(s.db, q)
	return id, err
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

func insertQuestion(db execer, q model.Question) (model.QuestionID, error) {
	var topicID any
	if q.TopicID != nil {
		topicID = *q.TopicID
	}
	res, err := db.Exec(
		`INSERT INTO questions (subject_id, topic_id, question_text, option_a, option_b, option_c, option_d,
			correct_answer, explanation, difficulty, source, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.SubjectID, topicID, q.Text,
		q.Options.A, q.Options.B, q.Options.C, q.Options.D,
		q.CorrectAnswer, q.Explanation, q.Difficulty, q.Source, q.IsActive, time.Now().UTC(),
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return model.QuestionID(id), err
}

// GetQuestion returns a question by durable ID, or nil if not found.
func (s *Store) GetQuestion(id model.QuestionID) (*model.Question, error) {
	q, err := scanQuestion(s.db.QueryRow(
		`SELECT `+questionColumns+` FROM questions WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// FindQuestionByText returns the question with exactly this text under the
// subject, or nil. This is the dedup lookup reconciliation is built on.
func (s *Store) FindQuestionByText(text string, subjectID int64) (*model.Question, error) {
	return findQuestionByText(s.db, text, subjectID)
}

func findQuestionByText(db execer, text string, subjectID int64) (*model.Question, error) {
	q, err := scanQuestion(db.QueryRow(
		`SELECT `+questionColumns+` FROM questions WHERE question_text = ? AND subject_id = ?`,
		text, subjectID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// QuestionCount returns the number of stored questions.
func (s *Store) QuestionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}

// ReconcileQuestions maps a batch of ephemeral questions onto durable IDs,
// creating rows for questions not seen before. Items with incomplete option
// data are skipped and simply absent from the returned mapping. The
// lookup-or-create is idempotent: reconciling the same text+subject twice
// yields the same durable ID.
func (s *Store) ReconcileQuestions(batch []model.EphemeralQuestion, subjectID int64, topicID *int64, source string) (map[model.EphemeralID]model.QuestionID, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	mapping, err := reconcileTx(tx, batch, subjectID, topicID, source)
	if err != nil {
		return nil, err
	}
	return mapping, tx.Commit()
}

// reconcileTx runs the lookup-or-create loop inside an existing transaction.
// A UNIQUE(question_text, subject_id) index backs the dedup pair: if another
// writer materializes the same question first, the insert fails the constraint
// and we re-read and reuse the winner's row.
func reconcileTx(tx *sql.Tx, batch []model.EphemeralQuestion, subjectID int64, topicID *int64, source string) (map[model.EphemeralID]model.QuestionID, error) {
	mapping := make(map[model.EphemeralID]model.QuestionID, len(batch))

	for _, eq := range batch {
		if eq.Text == "" {
			slog.Warn("skipping question with empty text", "ephemeral_id", eq.ID, "subject_id", subjectID)
			continue
		}
		existing, err := findQuestionByText(tx, eq.Text, subjectID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			mapping[eq.ID] = existing.ID
			continue
		}

		if !eq.Options.Complete() || !eq.CorrectAnswer.Valid() {
			slog.Warn("skipping question with incomplete data",
				"ephemeral_id", eq.ID, "subject_id", subjectID)
			continue
		}

		id, err := insertQuestion(tx, model.Question{
			SubjectID:     subjectID,
			TopicID:       topicID,
			Text:          eq.Text,
			Options:       eq.Options,
			CorrectAnswer: eq.CorrectAnswer,
			Explanation:   eq.Explanation,
			Difficulty:    eq.Difficulty,
			Source:        source,
			IsActive:      true,
		})
		if err != nil {
			if !isUniqueViolation(err) {
				return nil, err
			}
			winner, ferr := findQuestionByText(tx, eq.Text, subjectID)
			if ferr != nil {
				return nil, ferr
			}
			if winner == nil {
				return nil, err
			}
			mapping[eq.ID] = winner.ID
			continue
		}
		mapping[eq.ID] = id
	}

	return mapping, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
