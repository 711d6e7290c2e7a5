package userclient

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  help")
	fmt.Fprintln(out, "  login <username> <password>")
	fmt.Fprintln(out, "  register <username> <email> <password> [birth_date]")
	fmt.Fprintln(out, "  verify <code> [uuid]")
	fmt.Fprintln(out, "  logout")
	fmt.Fprintln(out, "  me")
	fmt.Fprintln(out, "  lessons")
	fmt.Fprintln(out, "  lesson <lesson_id>")
	fmt.Fprintln(out, "  test <lesson_id>")
	fmt.Fprintln(out, "  block <block_id>")
	fmt.Fprintln(out, "  exit")
}

func printQuizHelp(out io.Writer) {
	fmt.Fprintln(out, "Quiz input:")
	fmt.Fprintln(out, "  <n>            choose option n")
	fmt.Fprintln(out, "  <slot> <value> match: drop value onto slot; progressive: pick a pair")
	fmt.Fprintln(out, "  clear <slot>   match: empty a slot")
	fmt.Fprintln(out, "  submit         send a complete match")
	fmt.Fprintln(out, "  retry          repeat the request that failed")
	fmt.Fprintln(out, "  back           leave the quiz")
}

func parseID(args []string, index int) (int64, error) {
	if len(args) <= index {
		return 0, errors.New("id is required")
	}
	value, err := strconv.ParseInt(args[index], 10, 64)
	if err != nil || value <= 0 {
		return 0, errors.New("id must be a positive integer")
	}
	return value, nil
}

// parseIndex maps a 1-based position typed by the user onto [0, size).
func parseIndex(raw string, size int) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 1 || value > size {
		return 0, fmt.Errorf("choose a number between 1 and %d", size)
	}
	return value - 1, nil
}

func promptYesNo(reader *bufio.Reader, out io.Writer, prompt string) (bool, error) {
	for {
		fmt.Fprint(out, prompt)
		line, err := reader.ReadString('\n')
		if err != nil {
			return false, err
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		switch answer {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		default:
			fmt.Fprintln(out, "Please answer yes or no.")
		}
	}
}

func describeClientError(err error, serverURL string) error {
	if errors.Is(err, ErrServiceUnavailable) {
		return fmt.Errorf("lesson service unavailable at %s", serverURL)
	}
	if IsUnauthorized(err) {
		return errors.New("not logged in (use 'login' or 'register')")
	}
	return err
}

func formatCountdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
