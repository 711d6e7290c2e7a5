package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"lesson-quiz/internal/auth"
)

const userColumns = `id, username, email, password_hash, language, birth_date, created_at_unix`

func (s *SQLiteStore) CreateUser(ctx context.Context, user auth.User) (auth.User, error) {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO users (username, email, password_hash, language, birth_date, created_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Language,
		user.BirthDate,
		user.CreatedAt.UnixNano(),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return auth.User{}, auth.ErrAccountExists
		}
		return auth.User{}, err
	}
	if user.ID, err = res.LastInsertId(); err != nil {
		return auth.User{}, err
	}
	return user, nil
}

func (s *SQLiteStore) UserByID(ctx context.Context, id int64) (auth.User, error) {
	return s.userWhere(ctx, `id = ?`, id)
}

func (s *SQLiteStore) UserByUsername(ctx context.Context, username string) (auth.User, error) {
	return s.userWhere(ctx, `username = ?`, username)
}

func (s *SQLiteStore) AccountExists(ctx context.Context, field auth.AccountField, value string) (bool, error) {
	var query string
	switch field {
	case auth.FieldUsername:
		query = `SELECT 1 FROM users WHERE username = ? LIMIT 1`
	case auth.FieldEmail:
		query = `SELECT 1 FROM users WHERE email = ? LIMIT 1`
	default:
		return false, auth.ErrInvalidField
	}

	var found int
	err := s.db.QueryRowContext(ctx, query, value).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) userWhere(ctx context.Context, where string, arg any) (auth.User, error) {
	var (
		user      auth.User
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Language,
		&user.BirthDate,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.User{}, auth.ErrUserNotFound
		}
		return auth.User{}, err
	}
	user.CreatedAt = time.Unix(0, createdAt).UTC()
	return user, nil
}
