package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lesson-quiz/internal/lesson/sqlite"
	"lesson-quiz/internal/logger"
	"lesson-quiz/internal/opentdb"
)

type stubTrivia []opentdb.RawQuestion

func (s stubTrivia) Fetch(context.Context, opentdb.Query) ([]opentdb.RawQuestion, error) {
	return s, nil
}

func TestParseFlags(t *testing.T) {
	var out bytes.Buffer

	opts, err := parseFlags([]string{"-fixtures", "a.yaml, b.yaml,", "-db", "x.db"}, &out, "lessons.db")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.yaml", "b.yaml"}, opts.fixtures)
	assert.Equal(t, "x.db", opts.dbPath)

	opts, err = parseFlags([]string{"-dry-run"}, &out, "lessons.db")
	require.NoError(t, err)
	assert.Equal(t, defaultTriviaAmount, opts.trivia)

	_, err = parseFlags([]string{"-opentdb", "5"}, &out, "lessons.db")
	assert.ErrorContains(t, err, "-lesson")

	_, err = parseFlags([]string{"-opentdb-type", "essay"}, &out, "lessons.db")
	assert.Error(t, err)
}

func TestPreviewTriviaMarksCorrectAnswer(t *testing.T) {
	var out bytes.Buffer
	source := stubTrivia{
		{Type: opentdb.TypeBoolean, Question: "Water is wet", CorrectAnswer: "True"},
		{Type: "essay", Question: "Explain"},
	}

	require.NoError(t, previewTrivia(context.Background(), &out, source, options{trivia: 2}))

	text := out.String()
	assert.Contains(t, text, "Q1 [TRUE_FALSE]: Water is wet")
	assert.Contains(t, text, "* true. True")
	assert.Contains(t, text, "  false. False")
	assert.Contains(t, text, "Q2 skipped")
}

func TestRunLoadsFixturesAndTemplate(t *testing.T) {
	dir := t.TempDir()
	fixture := filepath.Join(dir, "lessons.yaml")
	require.NoError(t, os.WriteFile(fixture, []byte(`
lessons:
  - title: Greetings
    blocks:
      - type: TEXT
        items: [{type: TEXT, content: Hello}]
        questions:
          - type: TRUE_FALSE
            text: Hello means hi
            items: [{key: "true", value: "True"}, {key: "false", value: "False"}]
            correct: "true"
`), 0o600))
	dbPath := filepath.Join(dir, "lessons.db")
	template := filepath.Join(dir, "template.xlsx")

	var out bytes.Buffer
	err := Run(context.Background(), []string{"-fixtures", fixture, "-xlsx-template", template}, &out, dbPath, logger.Nop())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Greetings (1 blocks)")
	assert.FileExists(t, template)

	store, err := sqlite.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()
	lessons, err := store.ListLessons(context.Background())
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	assert.Equal(t, "Greetings", lessons[0].Title)

	out.Reset()
	err = Run(context.Background(), []string{"-xlsx", template}, &out, dbPath, logger.Nop())
	assert.ErrorContains(t, err, "at least one data row")
}
