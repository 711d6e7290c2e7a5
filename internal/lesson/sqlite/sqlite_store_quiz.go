package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"lesson-quiz/internal/lesson"
	"lesson-quiz/internal/quiz"
)

const questionColumns = `question_id, lesson_id, block_id, position, type, prompt, media_url, items_json, answer_json`

// SaveQuestions upserts questions by id.
func (s *SQLiteStore) SaveQuestions(ctx context.Context, questions []lesson.TestQuestion) error {
	if len(questions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().UnixNano()
	for _, question := range questions {
		if question.ID == "" {
			return errors.New("question id is required")
		}
		itemsJSON, err := json.Marshal(question.Items)
		if err != nil {
			return err
		}
		answerJSON, err := json.Marshal(question.Answer)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO questions (`+questionColumns+`, created_at_unix)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(question_id) DO UPDATE SET
				lesson_id = excluded.lesson_id,
				block_id = excluded.block_id,
				position = excluded.position,
				type = excluded.type,
				prompt = excluded.prompt,
				media_url = excluded.media_url,
				items_json = excluded.items_json,
				answer_json = excluded.answer_json`,
			question.ID,
			question.LessonID,
			question.BlockID,
			question.Position,
			question.Type.String(),
			question.Text,
			question.MediaURL,
			string(itemsJSON),
			string(answerJSON),
			now,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetQuestion(ctx context.Context, questionID string) (lesson.TestQuestion, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+questionColumns+` FROM questions WHERE question_id = ?`, questionID)
	question, err := scanQuestion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return lesson.TestQuestion{}, lesson.ErrQuestionNotFound
	}
	return question, err
}

// ScopeQuestions lists a block's questions, or every question of a lesson,
// in position order.
func (s *SQLiteStore) ScopeQuestions(ctx context.Context, scope quiz.Scope) ([]lesson.TestQuestion, error) {
	id, err := strconv.ParseInt(scope.ID, 10, 64)
	if err != nil {
		return nil, lesson.ErrInvalidScope
	}

	var where string
	switch scope.Kind {
	case quiz.ScopeBlock:
		where = `block_id = ?`
	case quiz.ScopeLesson:
		where = `lesson_id = ?`
	default:
		return nil, lesson.ErrInvalidScope
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+questionColumns+` FROM questions WHERE `+where+` ORDER BY position ASC, created_at_unix ASC, question_id ASC`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := make([]lesson.TestQuestion, 0)
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, question)
	}
	return questions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (lesson.TestQuestion, error) {
	var (
		question   lesson.TestQuestion
		typeName   string
		itemsJSON  string
		answerJSON string
	)
	err := row.Scan(
		&question.ID,
		&question.LessonID,
		&question.BlockID,
		&question.Position,
		&typeName,
		&question.Text,
		&question.MediaURL,
		&itemsJSON,
		&answerJSON,
	)
	if err != nil {
		return lesson.TestQuestion{}, err
	}

	question.Type, err = quiz.ParseQuestionType(typeName)
	if err != nil {
		return lesson.TestQuestion{}, fmt.Errorf("question %s: %w", question.ID, err)
	}
	if err := json.Unmarshal([]byte(itemsJSON), &question.Items); err != nil {
		return lesson.TestQuestion{}, err
	}
	if err := json.Unmarshal([]byte(answerJSON), &question.Answer); err != nil {
		return lesson.TestQuestion{}, err
	}
	return question, nil
}
