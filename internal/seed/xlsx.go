package seed

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"lesson-quiz/internal/lesson"
	"lesson-quiz/internal/quiz"
)

var sheetColumns = []string{"lesson", "block", "type", "text", "key", "value", "correct", "media"}

// RowError points at a sheet cell that could not be imported. Row is the
// 1-based spreadsheet row.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func (e RowError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("row %d, %s: %s (%q)", e.Row, e.Column, e.Message, e.Value)
	}
	return fmt.Sprintf("row %d, %s: %s", e.Row, e.Column, e.Message)
}

type SheetResult struct {
	TotalRows int
	Questions int
	Errors    []RowError
}

type sheetQuestion struct {
	firstRow int
	question lesson.TestQuestion
	correct  []string
	rowErrs  []RowError
}

// ImportSheet reads test questions from the first sheet of an XLSX workbook.
// Consecutive rows sharing lesson, block and text form one question, one
// row per item. Choice questions mark their right item in the correct
// column. Questions with any bad row are skipped and reported; the rest are
// stored.
func (l *Loader) ImportSheet(ctx context.Context, r io.Reader) (SheetResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return SheetResult{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return SheetResult{}, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return SheetResult{}, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return SheetResult{}, fmt.Errorf("sheet needs a header row and at least one data row")
	}

	header := make(map[string]int)
	for i, name := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"lesson", "type", "text", "key", "value"} {
		if _, ok := header[required]; !ok {
			return SheetResult{}, fmt.Errorf("missing column %q", required)
		}
	}

	result := SheetResult{TotalRows: len(rows) - 1}
	groups := groupRows(rows[1:], header)

	questions := make([]lesson.TestQuestion, 0, len(groups))
	for _, group := range groups {
		errs := group.rowErrs
		if len(errs) == 0 {
			if err := group.finish(); err != nil {
				errs = append(errs, RowError{Row: group.firstRow, Column: "text", Message: err.Error(), Value: group.question.Text})
			}
		}
		if len(errs) > 0 {
			result.Errors = append(result.Errors, errs...)
			continue
		}
		questions = append(questions, group.question)
	}

	if len(questions) > 0 {
		if err := l.store.ImportQuestions(ctx, questions); err != nil {
			return result, fmt.Errorf("save questions: %w", err)
		}
	}
	result.Questions = len(questions)

	l.log.Info("question sheet imported",
		"total_rows", result.TotalRows,
		"questions", result.Questions,
		"error_count", len(result.Errors))
	return result, nil
}

func groupRows(rows [][]string, header map[string]int) []*sheetQuestion {
	var (
		groups  []*sheetQuestion
		current *sheetQuestion
		lastKey string
	)
	positions := make(map[string]int)

	for i, row := range rows {
		rowNum := i + 2
		cell := func(name string) string {
			if index, ok := header[name]; ok && index < len(row) {
				return strings.TrimSpace(row[index])
			}
			return ""
		}
		if strings.Join(row, "") == "" {
			current, lastKey = nil, ""
			continue
		}

		groupKey := cell("lesson") + "\x00" + cell("block") + "\x00" + cell("text")
		if current == nil || groupKey != lastKey {
			current = newSheetQuestion(rowNum, cell)
			if current.question.LessonID != 0 {
				scope := current.question.Scope().String()
				positions[scope]++
				current.question.Position = positions[scope]
			}
			groups = append(groups, current)
			lastKey = groupKey
		} else if kind := cell("type"); kind != "" && !strings.EqualFold(kind, current.question.Type.String()) {
			current.rowErrs = append(current.rowErrs, RowError{Row: rowNum, Column: "type", Message: "differs from the question's first row", Value: kind})
		}

		key, value := cell("key"), cell("value")
		if key == "" {
			current.rowErrs = append(current.rowErrs, RowError{Row: rowNum, Column: "key", Message: "is required"})
			continue
		}
		if value == "" {
			current.rowErrs = append(current.rowErrs, RowError{Row: rowNum, Column: "value", Message: "is required"})
			continue
		}
		current.question.Items = append(current.question.Items, quiz.Item{Key: key, Value: value})
		if isTruthy(cell("correct")) {
			current.correct = append(current.correct, key)
		}
	}
	return groups
}

func newSheetQuestion(rowNum int, cell func(string) string) *sheetQuestion {
	group := &sheetQuestion{firstRow: rowNum}
	question := &group.question
	question.ID = uuid.NewString()

	lessonID, err := strconv.ParseInt(cell("lesson"), 10, 64)
	if err != nil || lessonID <= 0 {
		group.rowErrs = append(group.rowErrs, RowError{Row: rowNum, Column: "lesson", Message: "must be a lesson id", Value: cell("lesson")})
	}
	question.LessonID = lessonID

	if raw := cell("block"); raw != "" {
		blockID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || blockID <= 0 {
			group.rowErrs = append(group.rowErrs, RowError{Row: rowNum, Column: "block", Message: "must be a block id or empty", Value: raw})
		}
		question.BlockID = blockID
	}

	kind, err := quiz.ParseQuestionType(cell("type"))
	if err != nil {
		group.rowErrs = append(group.rowErrs, RowError{Row: rowNum, Column: "type", Message: "unsupported question type", Value: cell("type")})
	}
	question.Type = kind
	question.Text = cell("text")
	question.MediaURL = cell("media")
	return group
}

func (g *sheetQuestion) finish() error {
	q := &g.question
	switch q.Type {
	case quiz.SingleChoice, quiz.TrueFalse:
		if len(g.correct) != 1 {
			return fmt.Errorf("choice question needs exactly one correct row, got %d", len(g.correct))
		}
		q.Answer = lesson.ChoiceAnswer(q.Items, g.correct[0])
	default:
		q.Answer = lesson.PairsAnswer(q.Items)
	}
	if err := q.Validate(); err != nil {
		return err
	}
	return nil
}

func isTruthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "x", "yes", "true", "+":
		return true
	default:
		return false
	}
}

// WriteSheetTemplate writes an empty question workbook with the expected
// header row.
func WriteSheetTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Questions"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}
	for i, name := range sheetColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return err
		}
	}
	_, err := f.WriteTo(w)
	return err
}
