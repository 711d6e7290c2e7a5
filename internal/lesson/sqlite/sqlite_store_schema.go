package sqlite

import (
	"context"
)

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	// Questions keep block_id 0 for lesson-level tests, so blocks are not a
	// foreign key there.
	statements := []string{
		`CREATE TABLE IF NOT EXISTS lessons (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			order_index INTEGER NOT NULL,
			created_at_unix INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS blocks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			lesson_id INTEGER NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
			type TEXT NOT NULL,
			order_index INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS block_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			block_id INTEGER NOT NULL REFERENCES blocks(id) ON DELETE CASCADE,
			item_type TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			media_url TEXT NOT NULL DEFAULT '',
			order_index INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS questions (
			question_id TEXT PRIMARY KEY,
			lesson_id INTEGER NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
			block_id INTEGER NOT NULL DEFAULT 0,
			position INTEGER NOT NULL,
			type TEXT NOT NULL,
			prompt TEXT NOT NULL,
			media_url TEXT NOT NULL DEFAULT '',
			items_json TEXT NOT NULL,
			answer_json TEXT NOT NULL,
			created_at_unix INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE COLLATE NOCASE,
			email TEXT NOT NULL UNIQUE COLLATE NOCASE,
			password_hash TEXT NOT NULL,
			language TEXT NOT NULL DEFAULT '',
			birth_date TEXT NOT NULL DEFAULT '',
			created_at_unix INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS active_scopes (
			user_id INTEGER PRIMARY KEY,
			scope TEXT NOT NULL,
			updated_at_unix INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS test_progress (
			user_id INTEGER NOT NULL,
			scope TEXT NOT NULL,
			question_id TEXT NOT NULL,
			answered_at_unix INTEGER NOT NULL,
			PRIMARY KEY (user_id, scope, question_id)
		);`,
		`CREATE TABLE IF NOT EXISTS attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			question_id TEXT NOT NULL,
			scope TEXT NOT NULL,
			full_answer INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			submitted_at_unix INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS lesson_completions (
			user_id INTEGER NOT NULL,
			lesson_id INTEGER NOT NULL,
			completed_at_unix INTEGER NOT NULL,
			PRIMARY KEY (user_id, lesson_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_lessons_order ON lessons(order_index);`,
		`CREATE INDEX IF NOT EXISTS idx_blocks_lesson ON blocks(lesson_id, order_index);`,
		`CREATE INDEX IF NOT EXISTS idx_questions_lesson ON questions(lesson_id, position);`,
		`CREATE INDEX IF NOT EXISTS idx_questions_block ON questions(block_id, position);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_user ON attempts(user_id, submitted_at_unix);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
