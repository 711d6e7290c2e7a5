package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"lesson-quiz/internal/lesson"
	"lesson-quiz/internal/lesson/sqlite"
	"lesson-quiz/internal/logger"
	"lesson-quiz/internal/opentdb"
	"lesson-quiz/internal/seed"
)

const defaultTriviaAmount = 10

type options struct {
	dbPath     string
	fixtures   []string
	sheet      string
	template   string
	trivia     int
	triviaType string
	category   int
	difficulty string
	lessonID   int64
	blockID    int64
	dryRun     bool
}

// Run is the lesson-seed command line. args excludes the program name.
func Run(ctx context.Context, args []string, out io.Writer, dbPath string, log *logger.Logger) error {
	opts, err := parseFlags(args, out, dbPath)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	if opts.template != "" {
		if err := writeTemplate(opts.template); err != nil {
			return err
		}
		fmt.Fprintf(out, "Template written to %s\n", opts.template)
	}

	if opts.dryRun {
		return previewTrivia(ctx, out, opentdb.NewClient(nil), opts)
	}
	if len(opts.fixtures) == 0 && opts.sheet == "" && opts.trivia == 0 {
		return nil
	}

	store, err := sqlite.NewSQLiteStore(opts.dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	loader := seed.NewLoader(lesson.NewService(store, store, store), log)

	if len(opts.fixtures) > 0 {
		saved, err := loader.LoadFiles(ctx, opts.fixtures...)
		if err != nil {
			return err
		}
		for _, item := range saved {
			fmt.Fprintf(out, "lesson %d: %s (%d blocks)\n", item.ID, item.Title, len(item.Blocks))
		}
	}

	if opts.sheet != "" {
		if err := importSheet(ctx, out, loader, opts.sheet); err != nil {
			return err
		}
	}

	if opts.trivia > 0 {
		n, err := loader.ImportTrivia(ctx, opentdb.NewClient(nil),
			seed.TriviaTarget{LessonID: opts.lessonID, BlockID: opts.blockID},
			opts.query())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Imported %d trivia questions\n", n)
	}
	return nil
}

func parseFlags(args []string, out io.Writer, dbPath string) (options, error) {
	var (
		opts     options
		fixtures string
	)
	fs := flag.NewFlagSet("lesson-seed", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&opts.dbPath, "db", dbPath, "SQLite database path")
	fs.StringVar(&fixtures, "fixtures", "", "comma-separated YAML lesson fixtures")
	fs.StringVar(&opts.sheet, "xlsx", "", "XLSX question sheet to import")
	fs.StringVar(&opts.template, "xlsx-template", "", "write an empty question sheet to this path")
	fs.IntVar(&opts.trivia, "opentdb", 0, "number of OpenTDB questions to import")
	fs.StringVar(&opts.triviaType, "opentdb-type", "", "OpenTDB question type: multiple or boolean")
	fs.IntVar(&opts.category, "opentdb-category", 0, "OpenTDB category id")
	fs.StringVar(&opts.difficulty, "opentdb-difficulty", "", "OpenTDB difficulty: easy, medium or hard")
	fs.Int64Var(&opts.lessonID, "lesson", 0, "lesson id receiving OpenTDB questions")
	fs.Int64Var(&opts.blockID, "block", 0, "block id receiving OpenTDB questions (0 = lesson test)")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "print OpenTDB questions instead of storing them")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	for _, path := range strings.Split(fixtures, ",") {
		if path = strings.TrimSpace(path); path != "" {
			opts.fixtures = append(opts.fixtures, path)
		}
	}
	switch opts.triviaType {
	case "", opentdb.TypeMultiple, opentdb.TypeBoolean:
	default:
		return options{}, fmt.Errorf("unknown -opentdb-type %q", opts.triviaType)
	}
	if opts.dryRun && opts.trivia == 0 {
		opts.trivia = defaultTriviaAmount
	}
	if opts.trivia > 0 && !opts.dryRun && opts.lessonID <= 0 {
		return options{}, errors.New("-opentdb needs -lesson")
	}
	return opts, nil
}

func (o options) query() opentdb.Query {
	return opentdb.Query{Amount: o.trivia, Category: o.category, Difficulty: o.difficulty, Type: o.triviaType}
}

func importSheet(ctx context.Context, out io.Writer, loader *seed.Loader, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	result, err := loader.ImportSheet(ctx, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Imported %d questions from %d rows\n", result.Questions, result.TotalRows)
	for _, rowErr := range result.Errors {
		fmt.Fprintf(out, "  %v\n", rowErr)
	}
	return nil
}

func writeTemplate(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := seed.WriteSheetTemplate(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func previewTrivia(ctx context.Context, out io.Writer, source seed.TriviaSource, opts options) error {
	raw, err := source.Fetch(ctx, opts.query())
	if err != nil {
		return err
	}
	for idx, item := range raw {
		question, err := seed.ConvertTrivia(item, nil)
		if err != nil {
			fmt.Fprintf(out, "\nQ%d skipped: %v\n", idx+1, err)
			continue
		}
		printQuestion(out, idx+1, question)
	}
	return nil
}

func printQuestion(out io.Writer, number int, question lesson.TestQuestion) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Q%d [%s]: %s\n\n", number, question.Type, question.Text)
	for _, item := range question.Items {
		marker := " "
		if question.Answer[item.Key] == item.Value {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s. %s\n", marker, item.Key, item.Value)
	}
}
