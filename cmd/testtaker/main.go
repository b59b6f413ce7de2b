package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/nurkhatq/connect/internal/apiclient"
	"github.com/nurkhatq/connect/internal/config"
	"github.com/nurkhatq/connect/internal/logger"
	"github.com/nurkhatq/connect/internal/model"
	"github.com/nurkhatq/connect/internal/session"
	"github.com/nurkhatq/connect/internal/validator"
)

func main() {
	testID := flag.String("test", "", "ID of the test to take; prompts when empty")
	category := flag.String("category", "", "only list tests of this category (ict, logical, reading, useofenglish, grammar)")
	listOnly := flag.Bool("list", false, "list available tests and exit")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	// Logs go to stderr; stdout is the test UI.
	format := cfg.LogFormat
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		format = "json"
	}
	log := logger.Setup(cfg.LogLevel, format, "testtaker", os.Stderr)

	validator.Setup()

	// ─── Credentials ───────────────────────────────────────────────────
	if cfg.InitData == "" && cfg.Token == "" {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			log.Fatal().Msg("TELEGRAM_INIT_DATA or CONNECT_TOKEN is required")
		}
		fmt.Print("Telegram init data: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to read init data")
		}
		cfg.InitData = strings.TrimSpace(string(raw))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := apiclient.New(apiclient.Options{
		BaseURL:     cfg.APIBaseURL,
		InitData:    cfg.InitData,
		Token:       cfg.Token,
		Timeout:     cfg.HTTPTimeout,
		RefreshSkew: cfg.TokenRefreshSkew,
	}, log)

	lines := readLines(os.Stdin)

	if err := run(ctx, client, cfg, log, lines, options{
		testID:   *testID,
		category: model.TestCategory(*category),
		listOnly: *listOnly,
	}); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type options struct {
	testID   string
	category model.TestCategory
	listOnly bool
}

func run(ctx context.Context, client *apiclient.Client, cfg *config.Config, log zerolog.Logger, lines <-chan string, opts options) error {
	var (
		user *model.User
		err  error
	)
	if cfg.InitData != "" {
		user, err = client.Login(ctx)
	} else {
		user, err = client.Me(ctx)
	}
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	fmt.Printf("Signed in as %s (level %d, %d points)\n\n", displayName(user), user.Level, user.Points)

	tests, err := client.ListTests(ctx, opts.category)
	if err != nil {
		return fmt.Errorf("list tests: %w", err)
	}
	printTests(os.Stdout, tests)
	if opts.listOnly {
		return nil
	}

	id := opts.testID
	if id == "" {
		if len(tests) == 0 {
			return nil
		}
		id, err = pickTest(ctx, tests, lines)
		if err != nil {
			return err
		}
	}

	detail, err := client.GetTest(ctx, id)
	if err != nil {
		return fmt.Errorf("get test: %w", err)
	}
	printDetail(os.Stdout, detail)

	ctrl := session.NewController(client, session.Options{
		TickInterval:      cfg.TickInterval,
		ReconcileInterval: cfg.ReconcileInterval,
		SavePause:         cfg.SavePause,
		FlushPause:        cfg.FlushPause,
	}, log)

	t := newTaker(ctrl, os.Stdout, lines)
	return t.take(ctx, id)
}

// pickTest prompts until a valid list number or test ID is entered.
func pickTest(ctx context.Context, tests []model.TestSummary, lines <-chan string) (string, error) {
	for {
		fmt.Print("Choose a test (number or ID): ")
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return "", fmt.Errorf("no test chosen")
			}
			line = strings.TrimSpace(line)
			if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(tests) {
				return tests[n-1].ID, nil
			}
			for _, t := range tests {
				if t.ID == line {
					return t.ID, nil
				}
			}
			fmt.Println("No such test.")
		}
	}
}

// readLines feeds stdin lines to a channel that is closed on EOF.
func readLines(f *os.File) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			out <- sc.Text()
		}
	}()
	return out
}

func displayName(u *model.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" && u.Username != "" {
		return "@" + u.Username
	}
	if name == "" {
		return strconv.FormatInt(u.TelegramID, 10)
	}
	return name
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
