package seed

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"lesson-quiz/internal/lesson"
	"lesson-quiz/internal/logger"
	"lesson-quiz/internal/quiz"
)

// Store is the part of the lesson service the importers write through.
type Store interface {
	ImportLesson(ctx context.Context, lesson lesson.Lesson, questions []lesson.TestQuestion, blockOf []int) (lesson.Lesson, error)
	ImportQuestions(ctx context.Context, questions []lesson.TestQuestion) error
}

// Fixture is a YAML document describing lessons with their content and
// tests:
//
//	lessons:
//	  - title: Greetings
//	    order: 1
//	    blocks:
//	      - type: TEXT
//	        items: [{type: TEXT, content: "Hello means hi"}]
//	        questions:
//	          - type: SINGLE_CHOICE
//	            text: "Hello?"
//	            items: [{key: a, value: Hi}, {key: b, value: Bye}]
//	            correct: a
type Fixture struct {
	Lessons []LessonFixture `yaml:"lessons" validate:"min=1,dive"`
}

type LessonFixture struct {
	Title       string            `yaml:"title" validate:"required"`
	Description string            `yaml:"description"`
	Order       int               `yaml:"order"`
	Blocks      []BlockFixture    `yaml:"blocks" validate:"dive"`
	Questions   []QuestionFixture `yaml:"questions" validate:"dive"`
}

type BlockFixture struct {
	Type      string            `yaml:"type" validate:"required,oneof=TEXT IMAGE VIDEO"`
	Items     []ItemFixture     `yaml:"items" validate:"dive"`
	Questions []QuestionFixture `yaml:"questions" validate:"dive"`
}

type ItemFixture struct {
	Type    string `yaml:"type" validate:"required,oneof=TEXT IMAGE VIDEO"`
	Content string `yaml:"content"`
	Media   string `yaml:"media" validate:"omitempty,url"`
}

// QuestionFixture holds one test question. Correct names the right item of
// a choice question; matching questions list their pairs as items.
type QuestionFixture struct {
	ID      string      `yaml:"id"`
	Type    string      `yaml:"type" validate:"required"`
	Text    string      `yaml:"text"`
	Media   string      `yaml:"media" validate:"omitempty,url"`
	Items   []quiz.Item `yaml:"items" validate:"min=1"`
	Correct string      `yaml:"correct"`
}

type Loader struct {
	store    Store
	log      *logger.Logger
	validate *validator.Validate
}

func NewLoader(store Store, log *logger.Logger) *Loader {
	if log == nil {
		log = logger.Nop()
	}
	return &Loader{store: store, log: log, validate: validator.New()}
}

func (l *Loader) ParseFixture(data []byte) (Fixture, error) {
	var fixture Fixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	if err := l.validate.Struct(fixture); err != nil {
		return Fixture{}, fmt.Errorf("invalid fixture: %w", err)
	}
	return fixture, nil
}

// LoadFiles parses every fixture file concurrently and then imports them in
// argument order so lesson ids follow the files.
func (l *Loader) LoadFiles(ctx context.Context, paths ...string) ([]lesson.Lesson, error) {
	fixtures := make([]Fixture, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			fixture, err := l.ParseFixture(data)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			fixtures[i] = fixture
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var saved []lesson.Lesson
	for i, fixture := range fixtures {
		lessons, err := l.Load(ctx, fixture)
		if err != nil {
			return saved, fmt.Errorf("%s: %w", paths[i], err)
		}
		saved = append(saved, lessons...)
	}
	return saved, nil
}

func (l *Loader) Load(ctx context.Context, fixture Fixture) ([]lesson.Lesson, error) {
	saved := make([]lesson.Lesson, 0, len(fixture.Lessons))
	for i, lf := range fixture.Lessons {
		item, questions, blockOf, err := lf.build(i)
		if err != nil {
			return saved, err
		}
		stored, err := l.store.ImportLesson(ctx, item, questions, blockOf)
		if err != nil {
			return saved, fmt.Errorf("lesson %q: %w", lf.Title, err)
		}
		l.log.Info("lesson imported", "lesson", stored.ID, "title", stored.Title, "blocks", len(stored.Blocks), "questions", len(questions))
		saved = append(saved, stored)
	}
	return saved, nil
}

func (lf LessonFixture) build(index int) (lesson.Lesson, []lesson.TestQuestion, []int, error) {
	order := lf.Order
	if order == 0 {
		order = index + 1
	}
	out := lesson.Lesson{
		Title:       strings.TrimSpace(lf.Title),
		Description: strings.TrimSpace(lf.Description),
		OrderIndex:  order,
		Blocks:      make([]lesson.Block, 0, len(lf.Blocks)),
	}

	var (
		questions []lesson.TestQuestion
		blockOf   []int
	)
	add := func(block int, qf QuestionFixture) error {
		question, err := qf.build(len(questions) + 1)
		if err != nil {
			return fmt.Errorf("lesson %q question %d: %w", lf.Title, len(questions)+1, err)
		}
		questions = append(questions, question)
		blockOf = append(blockOf, block)
		return nil
	}

	for b, bf := range lf.Blocks {
		block := lesson.Block{
			Type:       lesson.BlockType(bf.Type),
			OrderIndex: b + 1,
			Items:      make([]lesson.BlockItem, 0, len(bf.Items)),
		}
		for i, item := range bf.Items {
			block.Items = append(block.Items, lesson.BlockItem{
				ItemType:   item.Type,
				Content:    item.Content,
				MediaURL:   item.Media,
				OrderIndex: i + 1,
			})
		}
		out.Blocks = append(out.Blocks, block)
		for _, qf := range bf.Questions {
			if err := add(b, qf); err != nil {
				return lesson.Lesson{}, nil, nil, err
			}
		}
	}
	for _, qf := range lf.Questions {
		if err := add(-1, qf); err != nil {
			return lesson.Lesson{}, nil, nil, err
		}
	}
	return out, questions, blockOf, nil
}

func (qf QuestionFixture) build(position int) (lesson.TestQuestion, error) {
	kind, err := quiz.ParseQuestionType(qf.Type)
	if err != nil {
		return lesson.TestQuestion{}, err
	}
	question := lesson.TestQuestion{
		ID:       strings.TrimSpace(qf.ID),
		Position: position,
		Type:     kind,
		Text:     qf.Text,
		MediaURL: qf.Media,
		Items:    qf.Items,
	}
	question.Answer, err = answerKey(kind, qf.Items, qf.Correct)
	if err != nil {
		return lesson.TestQuestion{}, err
	}
	return question, nil
}

func answerKey(kind quiz.QuestionType, items []quiz.Item, correct string) (map[string]string, error) {
	switch kind {
	case quiz.SingleChoice, quiz.TrueFalse:
		correct = strings.TrimSpace(correct)
		answer := lesson.ChoiceAnswer(items, correct)
		if len(answer) == 0 {
			return nil, fmt.Errorf("correct item %q is not among the items", correct)
		}
		return answer, nil
	default:
		return lesson.PairsAnswer(items), nil
	}
}
