package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"lesson-quiz/internal/quiz"
)

// SQLiteStore persists lessons, test questions, learner progress and user
// accounts in one SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		path = "lessons.db"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	for _, pragma := range []string{`PRAGMA busy_timeout = 5000;`, `PRAGMA foreign_keys = ON;`} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func formatScope(scope quiz.Scope) string {
	return scope.String()
}

func parseScope(raw string) (quiz.Scope, error) {
	kind, id, ok := strings.Cut(raw, ":")
	if !ok || id == "" {
		return quiz.Scope{}, fmt.Errorf("malformed scope %q", raw)
	}
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return quiz.Scope{}, fmt.Errorf("malformed scope %q", raw)
	}
	switch kind {
	case quiz.ScopeBlock.String():
		return quiz.BlockScope(id), nil
	case quiz.ScopeLesson.String():
		return quiz.LessonScope(id), nil
	default:
		return quiz.Scope{}, fmt.Errorf("malformed scope %q", raw)
	}
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
