// Command fitcoach-tick runs one scheduler tick for real and prints its report
// as JSON. Messages are sent and reminder, preview and reset state is saved
// exactly as the in-process scheduler would. Use it from cron when the server
// runs with the scheduler disabled.
//
// Exit codes: 0 on success, 1 on startup or output errors, 2 on bad flags or a
// failed tick, 3 when any delivery in the report failed.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/meltforce/fitcoach/internal/app"
	"github.com/meltforce/fitcoach/internal/config"
	"github.com/meltforce/fitcoach/internal/schedule"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the exit code so deferred cleanup happens before the process exits.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("fitcoach-tick", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "config.yaml", "path to config file")
	kindFlag := fs.String("kind", "all", "tick to run: reminders, previews, reset, or all")
	at := fs.String("at", "", "instant to evaluate (RFC 3339), default now")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	kind, err := tickKind(*kindFlag)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	now := time.Now()
	if *at != "" {
		now, err = time.Parse(time.RFC3339, *at)
		if err != nil {
			fmt.Fprintf(stderr, "invalid -at %q: %v\n", *at, err)
			return 2
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(stderr, nil)).Error("failed to load config", "error", err)
		return 1
	}
	// Logs go to stderr so stdout carries only the report.
	log := app.NewLogger(stderr, cfg.Logging)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		return 1
	}
	defer a.Close()

	var reports []schedule.Report
	if kind == "all" {
		reports = a.Runner.RunAll(ctx, now)
	} else {
		r, err := a.Runner.Run(ctx, kind, now)
		if err != nil {
			log.Error("tick failed", "error", err)
			return 2
		}
		reports = []schedule.Report{r}
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reports); err != nil {
		log.Error("writing report", "error", err)
		return 1
	}
	return exitCode(reports)
}

// tickKind maps the -kind flag to a runner kind; "all" passes through.
func tickKind(s string) (string, error) {
	switch s {
	case "all", schedule.KindReminders, schedule.KindPreviews, schedule.KindResets:
		return s, nil
	case "reset":
		return schedule.KindResets, nil
	}
	return "", fmt.Errorf("unknown kind %q", s)
}

func exitCode(reports []schedule.Report) int {
	for _, r := range reports {
		if r.Failed() > 0 || r.Err != "" {
			return 3
		}
	}
	return 0
}
