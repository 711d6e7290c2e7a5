package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"
	"time"

	"lesson-quiz/internal/auth"
	"lesson-quiz/internal/lesson"
	"lesson-quiz/internal/quiz"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
		_ = os.Remove(path)
		_ = os.Remove(path + "-journal")
	})
	return store
}

func sampleLesson() lesson.Lesson {
	return lesson.Lesson{
		Title:       "Greetings",
		Description: "Say hello",
		OrderIndex:  1,
		Blocks: []lesson.Block{
			{
				Type:       lesson.BlockText,
				OrderIndex: 2,
				Items: []lesson.BlockItem{
					{ItemType: "TEXT", Content: "second", OrderIndex: 2},
					{ItemType: "TEXT", Content: "first", OrderIndex: 1},
				},
			},
			{
				Type:       lesson.BlockVideo,
				OrderIndex: 1,
				Items:      []lesson.BlockItem{{ItemType: "VIDEO", MediaURL: "https://youtu.be/abc", OrderIndex: 1}},
			},
		},
	}
}

func TestSQLiteStoreSaveAndReadLesson(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	saved, err := store.SaveLesson(ctx, sampleLesson())
	if err != nil {
		t.Fatalf("SaveLesson failed: %v", err)
	}
	if saved.ID == 0 || saved.Blocks[0].ID == 0 || saved.Blocks[0].Items[0].ID == 0 {
		t.Fatalf("expected ids to be assigned: %+v", saved)
	}

	got, err := store.GetLesson(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetLesson failed: %v", err)
	}
	if got.Title != "Greetings" || len(got.Blocks) != 2 {
		t.Fatalf("unexpected lesson: %+v", got)
	}
	if got.Blocks[0].Type != lesson.BlockVideo {
		t.Fatalf("blocks not ordered by order_index: %+v", got.Blocks)
	}
	text := got.Blocks[1]
	if text.Items[0].Content != "first" || text.Items[1].Content != "second" {
		t.Fatalf("items not ordered by order_index: %+v", text.Items)
	}

	lessonID, err := store.BlockLesson(ctx, text.ID)
	if err != nil || lessonID != saved.ID {
		t.Fatalf("BlockLesson = %d, %v", lessonID, err)
	}
	if _, err := store.BlockLesson(ctx, 9999); !errors.Is(err, lesson.ErrBlockNotFound) {
		t.Fatalf("expected ErrBlockNotFound, got %v", err)
	}
	if _, err := store.GetLesson(ctx, 9999); !errors.Is(err, lesson.ErrLessonNotFound) {
		t.Fatalf("expected ErrLessonNotFound, got %v", err)
	}
}

func TestSQLiteStoreListLessonsOrdered(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, item := range []lesson.Lesson{{Title: "Two", OrderIndex: 2}, {Title: "One", OrderIndex: 1}} {
		if _, err := store.SaveLesson(ctx, item); err != nil {
			t.Fatalf("SaveLesson failed: %v", err)
		}
	}

	lessons, err := store.ListLessons(ctx)
	if err != nil {
		t.Fatalf("ListLessons failed: %v", err)
	}
	if len(lessons) != 2 || lessons[0].Title != "One" || lessons[1].Title != "Two" {
		t.Fatalf("unexpected order: %+v", lessons)
	}
}

func TestSQLiteStoreResaveReplacesBlocks(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	saved, err := store.SaveLesson(ctx, sampleLesson())
	if err != nil {
		t.Fatalf("SaveLesson failed: %v", err)
	}
	saved.Title = "Greetings v2"
	saved.Blocks = saved.Blocks[:1]
	if _, err := store.SaveLesson(ctx, saved); err != nil {
		t.Fatalf("resave failed: %v", err)
	}

	got, err := store.GetLesson(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetLesson failed: %v", err)
	}
	if got.Title != "Greetings v2" || len(got.Blocks) != 1 {
		t.Fatalf("unexpected lesson after resave: %+v", got)
	}

	if _, err := store.SaveLesson(ctx, lesson.Lesson{ID: 777, Title: "ghost"}); !errors.Is(err, lesson.ErrLessonNotFound) {
		t.Fatalf("expected ErrLessonNotFound, got %v", err)
	}
}

func TestSQLiteStoreQuestionsByScope(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	saved, err := store.SaveLesson(ctx, sampleLesson())
	if err != nil {
		t.Fatalf("SaveLesson failed: %v", err)
	}
	blockID := saved.Blocks[0].ID

	items := []quiz.Item{{Key: "A", Value: "hi"}, {Key: "B", Value: "bye"}}
	pairs := []quiz.Item{{Key: "1", Value: "one"}, {Key: "2", Value: "two"}}
	questions := []lesson.TestQuestion{
		{ID: "q2", LessonID: saved.ID, Position: 2, Type: quiz.Match, Text: "Numbers", Items: pairs, Answer: lesson.PairsAnswer(pairs)},
		{ID: "q1", LessonID: saved.ID, BlockID: blockID, Position: 1, Type: quiz.SingleChoice, Text: "Hello?", MediaURL: "https://example.com/a.png", Items: items, Answer: lesson.ChoiceAnswer(items, "A")},
	}
	if err := store.SaveQuestions(ctx, questions); err != nil {
		t.Fatalf("SaveQuestions failed: %v", err)
	}

	all, err := store.ScopeQuestions(ctx, quiz.LessonScope(strconv.FormatInt(saved.ID, 10)))
	if err != nil {
		t.Fatalf("ScopeQuestions failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != "q1" || all[1].ID != "q2" {
		t.Fatalf("unexpected lesson scope: %+v", all)
	}
	if !reflect.DeepEqual(all[0], questions[1]) {
		t.Fatalf("question did not round trip:\n got %+v\nwant %+v", all[0], questions[1])
	}

	block, err := store.ScopeQuestions(ctx, quiz.BlockScope(strconv.FormatInt(blockID, 10)))
	if err != nil {
		t.Fatalf("ScopeQuestions failed: %v", err)
	}
	if len(block) != 1 || block[0].ID != "q1" {
		t.Fatalf("unexpected block scope: %+v", block)
	}

	got, err := store.GetLesson(ctx, saved.ID)
	if err != nil {
		t.Fatalf("GetLesson failed: %v", err)
	}
	if !got.Blocks[1].HasTest || got.Blocks[0].HasTest {
		t.Fatalf("unexpected HasTest flags: %+v", got.Blocks)
	}

	if _, err := store.GetQuestion(ctx, "missing"); !errors.Is(err, lesson.ErrQuestionNotFound) {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
}

func TestSQLiteStoreProgress(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()
	scope := quiz.LessonScope("1")

	if _, ok, err := store.ActiveScope(ctx, 5); err != nil || ok {
		t.Fatalf("expected no active scope, ok=%v err=%v", ok, err)
	}
	if err := store.SetActiveScope(ctx, 5, quiz.BlockScope("3")); err != nil {
		t.Fatalf("SetActiveScope failed: %v", err)
	}
	if err := store.SetActiveScope(ctx, 5, scope); err != nil {
		t.Fatalf("SetActiveScope failed: %v", err)
	}
	active, ok, err := store.ActiveScope(ctx, 5)
	if err != nil || !ok || active != scope {
		t.Fatalf("ActiveScope = %v %v %v", active, ok, err)
	}

	now := time.Unix(1700000000, 0).UTC()
	attempts := []lesson.Attempt{
		{UserID: 5, QuestionID: "q1", Scope: scope, Correct: false, SubmittedAt: now},
		{UserID: 5, QuestionID: "q1", Scope: scope, Full: true, Correct: true, SubmittedAt: now},
		{UserID: 5, QuestionID: "q1", Scope: scope, Full: true, Correct: false, SubmittedAt: now},
		{UserID: 6, QuestionID: "q2", Scope: scope, Full: true, SubmittedAt: now},
	}
	for _, attempt := range attempts {
		if err := store.RecordAttempt(ctx, attempt); err != nil {
			t.Fatalf("RecordAttempt failed: %v", err)
		}
	}

	answered, err := store.AnsweredQuestions(ctx, 5, scope)
	if err != nil {
		t.Fatalf("AnsweredQuestions failed: %v", err)
	}
	if !reflect.DeepEqual(answered, map[string]bool{"q1": true}) {
		t.Fatalf("unexpected answered set: %v", answered)
	}

	if err := store.ResetScope(ctx, 5, scope); err != nil {
		t.Fatalf("ResetScope failed: %v", err)
	}
	answered, _ = store.AnsweredQuestions(ctx, 5, scope)
	if len(answered) != 0 {
		t.Fatalf("expected reset, got %v", answered)
	}
	other, _ := store.AnsweredQuestions(ctx, 6, scope)
	if len(other) != 1 {
		t.Fatalf("reset touched another user: %v", other)
	}

	if err := store.MarkLessonCompleted(ctx, 5, 1, now); err != nil {
		t.Fatalf("MarkLessonCompleted failed: %v", err)
	}
	if err := store.MarkLessonCompleted(ctx, 5, 1, now); err != nil {
		t.Fatalf("MarkLessonCompleted twice failed: %v", err)
	}
	completed, err := store.CompletedLessons(ctx, 5)
	if err != nil || !completed[1] || len(completed) != 1 {
		t.Fatalf("CompletedLessons = %v %v", completed, err)
	}
}

func TestSQLiteStoreUsers(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := store.CreateUser(ctx, auth.User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash", Language: "EN"})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("expected id")
	}

	if _, err := store.CreateUser(ctx, auth.User{Username: "ALICE", Email: "x@example.com", PasswordHash: "h"}); !errors.Is(err, auth.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists for duplicate username, got %v", err)
	}

	byName, err := store.UserByUsername(ctx, "alice")
	if err != nil || byName.ID != created.ID || byName.Language != "EN" {
		t.Fatalf("UserByUsername = %+v %v", byName, err)
	}
	if _, err := store.UserByID(ctx, 999); !errors.Is(err, auth.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	taken, err := store.AccountExists(ctx, auth.FieldEmail, "ALICE@example.com")
	if err != nil || !taken {
		t.Fatalf("AccountExists(email) = %v %v", taken, err)
	}
	taken, err = store.AccountExists(ctx, auth.FieldUsername, "bob")
	if err != nil || taken {
		t.Fatalf("AccountExists(username) = %v %v", taken, err)
	}
}

func TestParseScope(t *testing.T) {
	for _, scope := range []quiz.Scope{quiz.BlockScope("4"), quiz.LessonScope("12")} {
		got, err := parseScope(formatScope(scope))
		if err != nil || got != scope {
			t.Fatalf("parseScope(%q) = %v %v", formatScope(scope), got, err)
		}
	}
	for _, raw := range []string{"", "block", "block:x", "unit:3"} {
		if _, err := parseScope(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
