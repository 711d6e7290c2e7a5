package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"lesson-quiz/internal/lesson"
	"lesson-quiz/internal/quiz"
)

func (s *SQLiteStore) ActiveScope(ctx context.Context, userID int64) (quiz.Scope, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT scope FROM active_scopes WHERE user_id = ?`, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return quiz.Scope{}, false, nil
		}
		return quiz.Scope{}, false, err
	}
	scope, err := parseScope(raw)
	if err != nil {
		return quiz.Scope{}, false, err
	}
	return scope, true, nil
}

func (s *SQLiteStore) SetActiveScope(ctx context.Context, userID int64, scope quiz.Scope) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO active_scopes (user_id, scope, updated_at_unix) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET scope = excluded.scope, updated_at_unix = excluded.updated_at_unix`,
		userID,
		formatScope(scope),
		time.Now().UTC().UnixNano(),
	)
	return err
}

func (s *SQLiteStore) AnsweredQuestions(ctx context.Context, userID int64, scope quiz.Scope) (map[string]bool, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT question_id FROM test_progress WHERE user_id = ? AND scope = ?`,
		userID,
		formatScope(scope),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answered := make(map[string]bool)
	for rows.Next() {
		var questionID string
		if err := rows.Scan(&questionID); err != nil {
			return nil, err
		}
		answered[questionID] = true
	}
	return answered, rows.Err()
}

// RecordAttempt appends the attempt and, for full answers, moves the user past
// the question in one transaction. Answering twice keeps the first progress
// row.
func (s *SQLiteStore) RecordAttempt(ctx context.Context, attempt lesson.Attempt) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	at := attempt.SubmittedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	scope := formatScope(attempt.Scope)

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO attempts (user_id, question_id, scope, full_answer, correct, submitted_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		attempt.UserID,
		attempt.QuestionID,
		scope,
		boolToInt(attempt.Full),
		boolToInt(attempt.Correct),
		at.UnixNano(),
	); err != nil {
		return err
	}

	if attempt.Full {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT OR IGNORE INTO test_progress (user_id, scope, question_id, answered_at_unix) VALUES (?, ?, ?, ?)`,
			attempt.UserID,
			scope,
			attempt.QuestionID,
			at.UnixNano(),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) ResetScope(ctx context.Context, userID int64, scope quiz.Scope) error {
	_, err := s.db.ExecContext(
		ctx,
		`DELETE FROM test_progress WHERE user_id = ? AND scope = ?`,
		userID,
		formatScope(scope),
	)
	return err
}

func (s *SQLiteStore) CompletedLessons(ctx context.Context, userID int64) (map[int64]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT lesson_id FROM lesson_completions WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	completed := make(map[int64]bool)
	for rows.Next() {
		var lessonID int64
		if err := rows.Scan(&lessonID); err != nil {
			return nil, err
		}
		completed[lessonID] = true
	}
	return completed, rows.Err()
}

func (s *SQLiteStore) MarkLessonCompleted(ctx context.Context, userID, lessonID int64, at time.Time) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO lesson_completions (user_id, lesson_id, completed_at_unix) VALUES (?, ?, ?)`,
		userID,
		lessonID,
		at.UnixNano(),
	)
	return err
}
