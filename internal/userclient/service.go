package userclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lesson-quiz/internal/logger"
	"lesson-quiz/internal/quiz"
	"lesson-quiz/internal/quizview"
)

const (
	defaultServer      = "http://127.0.0.1:8080"
	defaultHTTPTimeout = 5 * time.Second
)

type Config struct {
	ServerURL   string
	HTTPTimeout time.Duration
	Lang        string
	TokenFile   string
	Logger      *logger.Logger
	// Delays overrides the quiz display pauses; zero values keep the defaults.
	Delays quiz.Delays
}

type app struct {
	client  *HTTPClient
	tokens  *FileTokenStore
	reader  *bufio.Reader
	out     io.Writer
	log     *logger.Logger
	msgs    quizview.Messages
	delays  quiz.Delays
	lang    string
	pending string // uuid of a registration waiting for its code
}

func Run(ctx context.Context, in io.Reader, out io.Writer, cfg Config) error {
	serverURL := strings.TrimSpace(cfg.ServerURL)
	if serverURL == "" {
		serverURL = defaultServer
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	tokens := NewFileTokenStore(cfg.TokenFile)
	a := &app{
		client: NewHTTPClient(serverURL, &http.Client{Timeout: timeout}, tokens),
		tokens: tokens,
		reader: bufio.NewReader(in),
		out:    out,
		log:    log,
		msgs:   quizview.MessagesFor(cfg.Lang),
		delays: cfg.Delays,
		lang:   strings.ToUpper(strings.TrimSpace(cfg.Lang)),
	}

	fmt.Fprintf(out, "lesson-client\nserver=%s\n", serverURL)
	if tokens.Token() != "" {
		fmt.Fprintln(out, "session token loaded")
	}
	fmt.Fprintln(out)
	printHelp(out)

	for {
		fmt.Fprint(out, "\n> ")
		line, err := a.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(out)
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		args := strings.Fields(line)
		command := strings.ToLower(args[0])
		if command == "exit" {
			return nil
		}
		if err := a.dispatch(ctx, command, args); err != nil {
			fmt.Fprintf(out, "error: %v\n", describeClientError(err, serverURL))
		}
	}
}

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "help":
		printHelp(a.out)
	case "login":
		if len(args) != 3 {
			fmt.Fprintln(a.out, "usage: login <username> <password>")
			return nil
		}
		return a.login(ctx, args[1], args[2])
	case "register":
		if len(args) < 4 || len(args) > 5 {
			fmt.Fprintln(a.out, "usage: register <username> <email> <password> [birth_date]")
			return nil
		}
		req := RegisterRequest{Username: args[1], Email: args[2], Password: args[3], Language: a.lang}
		if len(args) == 5 {
			req.BirthDate = args[4]
		}
		return a.register(ctx, req)
	case "verify":
		if len(args) < 2 || len(args) > 3 {
			fmt.Fprintln(a.out, "usage: verify <code> [uuid]")
			return nil
		}
		uuid := a.pending
		if len(args) == 3 {
			uuid = args[2]
		}
		return a.verify(ctx, uuid, args[1])
	case "logout":
		if err := a.tokens.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Logged out.")
	case "me":
		return a.me(ctx)
	case "lessons":
		return a.lessons(ctx)
	case "lesson":
		id, err := parseID(args, 1)
		if err != nil {
			fmt.Fprintf(a.out, "usage: lesson <lesson_id> (%v)\n", err)
			return nil
		}
		return a.viewLesson(ctx, id)
	case "test":
		id, err := parseID(args, 1)
		if err != nil {
			fmt.Fprintf(a.out, "usage: test <lesson_id> (%v)\n", err)
			return nil
		}
		return a.lessonTest(ctx, id)
	case "block":
		id, err := parseID(args, 1)
		if err != nil {
			fmt.Fprintf(a.out, "usage: block <block_id> (%v)\n", err)
			return nil
		}
		_, err = a.runQuiz(ctx, quiz.BlockScope(fmt.Sprint(id)))
		return err
	default:
		fmt.Fprintln(a.out, "unknown command. type 'help' for usage.")
	}
	return nil
}

func (a *app) login(ctx context.Context, username, password string) error {
	token, err := a.client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if err := a.tokens.Set(token); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s.\n", username)
	return nil
}

func (a *app) register(ctx context.Context, req RegisterRequest) error {
	for _, check := range []struct {
		field AccountField
		value string
	}{{AccountUsername, req.Username}, {AccountEmail, req.Email}} {
		taken, err := a.client.ContainsAccount(ctx, check.field, check.value)
		if err != nil {
			return err
		}
		if taken {
			fmt.Fprintf(a.out, "%s %q is already taken.\n", strings.ToLower(string(check.field)), check.value)
			return nil
		}
	}

	reg, err := a.client.Register(ctx, req)
	if err != nil {
		return err
	}
	a.pending = reg.UUID
	fmt.Fprintf(a.out, "Verification code sent. uuid=%s expires in %s\n", reg.UUID, formatCountdown(reg.SecondsLeft))
	fmt.Fprintln(a.out, "Run: verify <code>")
	return nil
}

func (a *app) verify(ctx context.Context, uuid, code string) error {
	if strings.TrimSpace(uuid) == "" {
		fmt.Fprintln(a.out, "no pending registration; pass the uuid explicitly")
		return nil
	}
	status, err := a.client.VerifyStatus(ctx, uuid)
	if err != nil {
		return err
	}
	if status.SecondsLeft <= 0 {
		fmt.Fprintln(a.out, "The code has expired. Register again.")
		return nil
	}
	token, err := a.client.VerifyOTP(ctx, uuid, code)
	if err != nil {
		return err
	}
	if err := a.tokens.Set(token); err != nil {
		return err
	}
	a.pending = ""
	fmt.Fprintln(a.out, "Account verified. You are logged in.")
	return nil
}

func (a *app) me(ctx context.Context) error {
	info, err := a.client.CurrentUser(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s <%s> language=%s\n", info.Username, info.Email, info.Language)
	return nil
}

func (a *app) lessons(ctx context.Context) error {
	lessons, err := a.client.ListLessons(ctx)
	if err != nil {
		return err
	}
	if len(lessons) == 0 {
		fmt.Fprintln(a.out, "No lessons yet.")
		return nil
	}
	fmt.Fprintln(a.out, "Lessons:")
	for _, lesson := range lessons {
		fmt.Fprintf(a.out, "%d. [%s] %s (id=%d)\n", lesson.OrderIndex, lesson.Status, lesson.Title, lesson.ID)
	}
	return nil
}

// viewLesson walks intro, blocks and finish screens, then offers the test.
func (a *app) viewLesson(ctx context.Context, lessonID int64) error {
	lesson, err := a.client.GetLesson(ctx, lessonID)
	if err != nil {
		return err
	}
	if lesson.Status == LessonLocked {
		fmt.Fprintln(a.out, "This lesson is locked. Finish the previous one first.")
		return nil
	}

	fmt.Fprintf(a.out, "\nLesson %d: %s\n", lesson.OrderIndex, lesson.Title)
	if lesson.Description != "" {
		fmt.Fprintln(a.out, lesson.Description)
	}

	total := len(lesson.Blocks)
	for i, block := range lesson.Blocks {
		if !a.next() {
			return nil
		}
		fmt.Fprintf(a.out, "\n[%d/%d] ", i+1, total)
		renderBlock(a.out, block)
		if block.HasTest {
			fmt.Fprintf(a.out, "(practice: block %d)\n", block.ID)
		}
	}
	fmt.Fprintln(a.out, "\nEnd of lesson.")

	start, err := promptYesNo(a.reader, a.out, "Start the lesson test? (yes/no): ")
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	if !start {
		return nil
	}
	return a.lessonTest(ctx, lessonID)
}

func (a *app) next() bool {
	fmt.Fprint(a.out, "(enter: next, back: leave) ")
	line, err := a.reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.ToLower(strings.TrimSpace(line)) != "back"
}

func (a *app) lessonTest(ctx context.Context, lessonID int64) error {
	completed, err := a.runQuiz(ctx, quiz.LessonScope(fmt.Sprint(lessonID)))
	if err != nil || !completed {
		return err
	}
	ok, err := a.client.CompleteLesson(ctx, lessonID)
	if err != nil {
		return fmt.Errorf("complete lesson: %w", err)
	}
	if !ok {
		fmt.Fprintln(a.out, "Could not complete the lesson.")
		return nil
	}
	fmt.Fprintln(a.out, "Lesson completed. The next lesson is unlocked.")
	return nil
}

func renderBlock(out io.Writer, block Block) {
	texts := block.Texts()
	switch block.Type {
	case BlockImage:
		if media, ok := block.Media(); ok && media.MediaURL != "" {
			fmt.Fprintf(out, "[image] %s\n", media.MediaURL)
		}
		fmt.Fprintln(out, strings.Join(texts, "\n\n"))
	case BlockVideo:
		media, _ := block.Media()
		if id, ok := YouTubeID(media.MediaURL); ok {
			kind := "video"
			if IsYouTubeShorts(media.MediaURL) {
				kind = "short"
			}
			fmt.Fprintf(out, "[%s] %s\n", kind, YouTubeEmbedURL(id))
		} else if media.MediaURL != "" {
			fmt.Fprintf(out, "[video] %s\n", media.MediaURL)
		}
		fmt.Fprintln(out, strings.Join(texts, "\n\n"))
	default:
		if len(texts) == 0 {
			fmt.Fprintln(out)
			return
		}
		fmt.Fprintln(out, strings.ToUpper(texts[0]))
		for _, text := range texts[1:] {
			fmt.Fprintln(out, text)
		}
	}
}
