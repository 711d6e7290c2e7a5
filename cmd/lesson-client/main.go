package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"lesson-quiz/internal/config"
	"lesson-quiz/internal/logger"
	"lesson-quiz/internal/userclient"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	server := flag.String("server", cfg.APIBaseURL, "lesson service base URL")
	lang := flag.String("lang", cfg.Lang, "interface language: ru or en")
	tokenFile := flag.String("token-file", cfg.TokenFile, "where the session token is kept")
	timeout := flag.Duration("timeout", 10*time.Second, "HTTP timeout")
	debug := flag.Bool("debug", false, "log quiz session events to stderr")
	flag.Parse()

	log := logger.Nop()
	if *debug {
		if log, err = logger.New(cfg.LogMode); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		defer log.Sync()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = userclient.Run(ctx, os.Stdin, os.Stdout, userclient.Config{
		ServerURL:   *server,
		HTTPTimeout: *timeout,
		Lang:        *lang,
		TokenFile:   *tokenFile,
		Logger:      log,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
