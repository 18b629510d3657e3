package store

import (
	"database/sql"
	"fmt"

	"github.com/neetprep/neetprep/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS subjects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS topics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subject_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT 1,
		FOREIGN KEY (subject_id) REFERENCES subjects(id)
	);

	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subject_id INTEGER NOT NULL,
		topic_id INTEGER,
		question_text TEXT NOT NULL,
		option_a TEXT NOT NULL,
		option_b TEXT NOT NULL,
		option_c TEXT NOT NULL,
		option_d TEXT NOT NULL,
		correct_answer TEXT NOT NULL,
		explanation TEXT NOT NULL DEFAULT '',
		difficulty TEXT NOT NULL DEFAULT 'medium',
		source TEXT NOT NULL DEFAULT 'manual',
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (subject_id) REFERENCES subjects(id),
		FOREIGN KEY (topic_id) REFERENCES topics(id)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_questions_text_subject
		ON questions(question_text, subject_id);

	CREATE TABLE IF NOT EXISTS test_sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		subject_id INTEGER NOT NULL,
		topic_id INTEGER,
		total_questions INTEGER NOT NULL,
		correct_answers INTEGER NOT NULL DEFAULT 0,
		wrong_answers INTEGER,
		not_attempted INTEGER,
		neet_score INTEGER,
		max_score INTEGER,
		score_percentage REAL NOT NULL DEFAULT 0,
		time_taken INTEGER,
		status TEXT NOT NULL DEFAULT 'in_progress',
		started_at DATETIME NOT NULL,
		completed_at DATETIME,
		FOREIGN KEY (user_id) REFERENCES users(id),
		FOREIGN KEY (subject_id) REFERENCES subjects(id),
		FOREIGN KEY (topic_id) REFERENCES topics(id)
	);

	CREATE TABLE IF NOT EXISTS test_answers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		test_session_id INTEGER NOT NULL,
		question_id INTEGER NOT NULL,
		user_answer TEXT,
		is_correct BOOLEAN NOT NULL DEFAULT 0,
		time_taken INTEGER NOT NULL DEFAULT 0,
		answered_at DATETIME NOT NULL,
		FOREIGN KEY (test_session_id) REFERENCES test_sessions(id),
		FOREIGN KEY (question_id) REFERENCES questions(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateSubject inserts a new subject.
func (s *Store) CreateSubject(sub model.Subject) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO subjects (name, description, is_active) VALUES (?, ?, ?)`,
		sub.Name, sub.Description, sub.IsActive,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetSubject returns a subject by ID, or nil if not found.
func (s *Store) GetSubject(id int64) (*model.Subject, error) {
	var sub model.Subject
	err := s.db.QueryRow(
		`SELECT id, name, description, is_active FROM subjects WHERE id = ?`, id,
	).Scan(&sub.ID, &sub.Name, &sub.Description, &sub.IsActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetSubjectByName returns a subject by name, or nil if not found.
func (s *Store) GetSubjectByName(name string) (*model.Subject, error) {
	var sub model.Subject
	err := s.db.QueryRow(
		`SELECT id, name, description, is_active FROM subjects WHERE name = ?`, name,
	).Scan(&sub.ID, &sub.Name, &sub.Description, &sub.IsActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListSubjects returns all active subjects.
func (s *Store) ListSubjects() ([]model.Subject, error) {
	rows, err := s.db.Query(
		`SELECT id, name, description, is_active FROM subjects WHERE is_active = 1 ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subjects []model.Subject
	for rows.Next() {
		var sub model.Subject
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Description, &sub.IsActive); err != nil {
			return nil, err
		}
		subjects = append(subjects, sub)
	}
	return subjects, rows.Err()
}

// SubjectCount returns the number of subjects.
func (s *Store) SubjectCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM subjects`).Scan(&count)
	return count, err
}

// CreateTopic inserts a new topic under a subject.
func (s *Store) CreateTopic(t model.Topic) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO topics (subject_id, name, description, is_active) VALUES (?, ?, ?, ?)`,
		t.SubjectID, t.Name, t.Description, t.IsActive,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetTopic returns a topic by ID, or nil if not found.
func (s *Store) GetTopic(id int64) (*model.Topic, error) {
	var t model.Topic
	err := s.db.QueryRow(
		`SELECT id, subject_id, name, description, is_active FROM topics WHERE id = ?`, id,
	).Scan(&t.ID, &t.SubjectID, &t.Name, &t.Description, &t.IsActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTopicByName returns a topic by name within a subject, or nil if not found.
func (s *Store) GetTopicByName(subjectID int64, name string) (*model.Topic, error) {
	var t model.Topic
	err := s.db.QueryRow(
		`SELECT id, subject_id, name, description, is_active FROM topics WHERE subject_id = ? AND name = ?`,
		subjectID, name,
	).Scan(&t.ID, &t.SubjectID, &t.Name, &t.Description, &t.IsActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTopics returns all topics for a subject.
func (s *Store) ListTopics(subjectID int64) ([]model.Topic, error) {
	rows, err := s.db.Query(
		`SELECT id, subject_id, name, description, is_active FROM topics WHERE subject_id = ? ORDER BY id`,
		subjectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var topics []model.Topic
	for rows.Next() {
		var t model.Topic
		if err := rows.Scan(&t.ID, &t.SubjectID, &t.Name, &t.Description, &t.IsActive); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// UpdateTopic updates a topic's name and description.
func (s *Store) UpdateTopic(id int64, name, description string) error {
	_, err := s.db.Exec(`UPDATE topics SET name = ?, description = ? WHERE id = ?`, name, description, id)
	return err
}

// DeleteTopic removes a topic.
func (s *Store) DeleteTopic(id int64) error {
	_, err := s.db.Exec(`DELETE FROM topics WHERE id = ?`, id)
	return err
}

// SubjectStats holds aggregate test statistics for a subject or topic.
type SubjectStats struct {
	TotalTopics    int     `json:"total_topics,omitempty"`
	TotalQuestions int     `json:"total_questions"`
	TotalTests     int     `json:"total_tests_taken"`
	AverageScore   float64 `json:"average_score"`
}

// GetSubjectStats returns question/test aggregates for a subject.
func (s *Store) GetSubjectStats(subjectID int64) (SubjectStats, error) {
	var st SubjectStats
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM topics WHERE subject_id = ?`, subjectID).Scan(&st.TotalTopics); err != nil {
		return st, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM questions WHERE subject_id = ?`, subjectID).Scan(&st.TotalQuestions); err != nil {
		return st, err
	}
	var avg sql.NullFloat64
	err := s.db.QueryRow(
		`SELECT COUNT(*), AVG(score_percentage) FROM test_sessions WHERE subject_id = ?`, subjectID,
	).Scan(&st.TotalTests, &avg)
	if err != nil {
		return st, err
	}
	st.AverageScore = avg.Float64
	return st, nil
}

// GetTopicStats returns question/test aggregates for a topic.
func (s *Store) GetTopicStats(topicID int64) (SubjectStats, error) {
	var st SubjectStats
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM questions WHERE topic_id = ?`, topicID).Scan(&st.TotalQuestions); err != nil {
		return st, err
	}
	var avg sql.NullFloat64
	err := s.db.QueryRow(
		`SELECT COUNT(*), AVG(score_percentage) FROM test_sessions WHERE topic_id = ?`, topicID,
	).Scan(&st.TotalTests, &avg)
	if err != nil {
		return st, err
	}
	st.AverageScore = avg.Float64
	return st, nil
}
