package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"lesson-quiz/internal/lesson"
)

func (s *SQLiteStore) ListLessons(ctx context.Context) ([]lesson.Lesson, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, title, description, order_index
		 FROM lessons
		 ORDER BY order_index ASC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lessons := make([]lesson.Lesson, 0)
	for rows.Next() {
		var item lesson.Lesson
		if err := rows.Scan(&item.ID, &item.Title, &item.Description, &item.OrderIndex); err != nil {
			return nil, err
		}
		lessons = append(lessons, item)
	}
	return lessons, rows.Err()
}

func (s *SQLiteStore) GetLesson(ctx context.Context, lessonID int64) (lesson.Lesson, error) {
	var out lesson.Lesson
	err := s.db.QueryRowContext(
		ctx,
		`SELECT id, title, description, order_index FROM lessons WHERE id = ?`,
		lessonID,
	).Scan(&out.ID, &out.Title, &out.Description, &out.OrderIndex)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return lesson.Lesson{}, lesson.ErrLessonNotFound
		}
		return lesson.Lesson{}, err
	}

	blocks, err := s.lessonBlocks(ctx, lessonID)
	if err != nil {
		return lesson.Lesson{}, err
	}
	out.Blocks = blocks
	return out, nil
}

func (s *SQLiteStore) lessonBlocks(ctx context.Context, lessonID int64) ([]lesson.Block, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT b.id, b.type, b.order_index,
			EXISTS (SELECT 1 FROM questions q WHERE q.block_id = b.id)
		 FROM blocks b
		 WHERE b.lesson_id = ?
		 ORDER BY b.order_index ASC, b.id ASC`,
		lessonID,
	)
	if err != nil {
		return nil, err
	}

	blocks := make([]lesson.Block, 0)
	index := make(map[int64]int)
	for rows.Next() {
		var (
			block   lesson.Block
			kind    string
			hasTest int
		)
		if err := rows.Scan(&block.ID, &kind, &block.OrderIndex, &hasTest); err != nil {
			_ = rows.Close()
			return nil, err
		}
		block.LessonID = lessonID
		block.Type = lesson.BlockType(kind)
		block.HasTest = hasTest == 1
		block.Items = []lesson.BlockItem{}
		index[block.ID] = len(blocks)
		blocks = append(blocks, block)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	itemRows, err := s.db.QueryContext(
		ctx,
		`SELECT i.id, i.block_id, i.item_type, i.content, i.media_url, i.order_index
		 FROM block_items i
		 JOIN blocks b ON b.id = i.block_id
		 WHERE b.lesson_id = ?
		 ORDER BY i.order_index ASC, i.id ASC`,
		lessonID,
	)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var (
			item    lesson.BlockItem
			blockID int64
		)
		if err := itemRows.Scan(&item.ID, &blockID, &item.ItemType, &item.Content, &item.MediaURL, &item.OrderIndex); err != nil {
			return nil, err
		}
		if i, ok := index[blockID]; ok {
			blocks[i].Items = append(blocks[i].Items, item)
		}
	}
	return blocks, itemRows.Err()
}

func (s *SQLiteStore) BlockLesson(ctx context.Context, blockID int64) (int64, error) {
	var lessonID int64
	err := s.db.QueryRowContext(ctx, `SELECT lesson_id FROM blocks WHERE id = ?`, blockID).Scan(&lessonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, lesson.ErrBlockNotFound
		}
		return 0, err
	}
	return lessonID, nil
}

// SaveLesson inserts a lesson, or replaces the content of an existing one
// when ID is set. Blocks and items are rewritten and get fresh ids.
func (s *SQLiteStore) SaveLesson(ctx context.Context, in lesson.Lesson) (lesson.Lesson, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return lesson.Lesson{}, err
	}
	defer tx.Rollback()

	out := in
	if in.ID > 0 {
		res, err := tx.ExecContext(
			ctx,
			`UPDATE lessons SET title = ?, description = ?, order_index = ? WHERE id = ?`,
			in.Title, in.Description, in.OrderIndex, in.ID,
		)
		if err != nil {
			return lesson.Lesson{}, err
		}
		if n, err := res.RowsAffected(); err != nil {
			return lesson.Lesson{}, err
		} else if n == 0 {
			return lesson.Lesson{}, lesson.ErrLessonNotFound
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM blocks WHERE lesson_id = ?`, in.ID); err != nil {
			return lesson.Lesson{}, err
		}
	} else {
		res, err := tx.ExecContext(
			ctx,
			`INSERT INTO lessons (title, description, order_index, created_at_unix) VALUES (?, ?, ?, ?)`,
			in.Title, in.Description, in.OrderIndex, time.Now().UTC().UnixNano(),
		)
		if err != nil {
			return lesson.Lesson{}, err
		}
		if out.ID, err = res.LastInsertId(); err != nil {
			return lesson.Lesson{}, err
		}
	}

	out.Blocks = make([]lesson.Block, len(in.Blocks))
	for i, block := range in.Blocks {
		res, err := tx.ExecContext(
			ctx,
			`INSERT INTO blocks (lesson_id, type, order_index) VALUES (?, ?, ?)`,
			out.ID, string(block.Type), block.OrderIndex,
		)
		if err != nil {
			return lesson.Lesson{}, err
		}
		if block.ID, err = res.LastInsertId(); err != nil {
			return lesson.Lesson{}, err
		}
		block.LessonID = out.ID

		items := make([]lesson.BlockItem, len(block.Items))
		for j, item := range block.Items {
			res, err := tx.ExecContext(
				ctx,
				`INSERT INTO block_items (block_id, item_type, content, media_url, order_index) VALUES (?, ?, ?, ?, ?)`,
				block.ID, item.ItemType, item.Content, item.MediaURL, item.OrderIndex,
			)
			if err != nil {
				return lesson.Lesson{}, err
			}
			if item.ID, err = res.LastInsertId(); err != nil {
				return lesson.Lesson{}, err
			}
			items[j] = item
		}
		block.Items = items
		out.Blocks[i] = block
	}

	if err := tx.Commit(); err != nil {
		return lesson.Lesson{}, err
	}
	return out, nil
}
