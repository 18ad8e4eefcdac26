package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/mehrshud/rapidapi-setup/internal/config"
	"github.com/mehrshud/rapidapi-setup/internal/pkginfo"
	"github.com/mehrshud/rapidapi-setup/internal/setup"
	"github.com/mehrshud/rapidapi-setup/internal/store"
)

var version = pkginfo.Version

// Replaced in tests to observe how main invokes it.
var (
	runFn            = run
	exit             = os.Exit
	stdout io.Writer = os.Stdout
)

func main() {
	if err := runFn(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(1)
	}
}

func run() error {
	// Handle version and help before touching config
	switch infoFlag(os.Args[1:]) {
	case "version":
		fmt.Fprintf(stdout, "%s v%s\n", pkginfo.Name, version)
		return nil
	case "help":
		printHelp(stdout)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	descriptor := pkginfo.Default()
	descriptor.Version = version

	if cfg.JSON {
		data, err := descriptor.JSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(data))
		return nil
	}

	logWriter, err := cfg.LogWriter()
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer func() {
		if closer, ok := logWriter.(io.Closer); ok && !cfg.DebugMode {
			closer.Close()
		}
	}()

	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	db, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	logger.Debug("Configuration loaded", "config", cfg.String())

	if cfg.History > 0 {
		runs, err := db.ListRuns(cfg.History)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		printHistory(stdout, runs)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printBanner(stdout, cfg, descriptor)

	runner := setup.New(db, descriptor, logger)
	rec, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}

	fmt.Fprintf(stdout, "Run %s %s\n", rec.ID, rec.Status)
	return nil
}

// infoFlag returns "version" or "help" when args ask for either, skipping
// values that belong to other flags.
func infoFlag(args []string) string {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--version", "-v":
			return "version"
		case "--help", "-h":
			return "help"
		case "--db", "--env-file":
			i++
		case "--history":
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				i++
			}
		}
	}
	return ""
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func printBanner(w io.Writer, cfg *config.Config, d *pkginfo.Descriptor) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s v%s\n", d.Name, d.Version)
	fmt.Fprintln(w, "Requires:")
	mods := d.Go()
	for _, name := range d.RequirementNames() {
		fmt.Fprintf(w, "  %-15s -> %s\n", name, mods[name])
	}
	fmt.Fprintf(w, "Env file: %s (%d keys)\n", cfg.EnvFile, len(cfg.EnvKeys))
	fmt.Fprintf(w, "Database: %s\n", cfg.DBPath)
	fmt.Fprintln(w)
}

func printHistory(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tDURATION\tVERSION\tSTATUS\tERROR")
	for _, r := range runs {
		duration := "-"
		if r.FinishedAt != nil {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.StartedAt.Format(time.RFC3339), duration, r.Version, r.Status, strings.Join(strings.Fields(r.Error), " "))
	}
	tw.Flush()
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "rapidapi-setup - package setup and run ledger")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: rapidapi-setup [OPTIONS]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --version          Print version and exit")
	fmt.Fprintln(w, "  --help             Print this help message")
	fmt.Fprintln(w, "  --env-file PATH    Dotenv file to load (default: .env)")
	fmt.Fprintln(w, "  --db PATH          SQLite run ledger path (default: ./rapidapi-setup.db)")
	fmt.Fprintln(w, "  --debug            Log to stdout instead of the log file")
	fmt.Fprintln(w, "  --json             Print the package descriptor as JSON and exit")
	fmt.Fprintln(w, "  --history [N]      List the N most recent runs (default: 10)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment Variables:")
	fmt.Fprintln(w, "  RAPIDAPI_SETUP_ENV_FILE   Dotenv file to load")
	fmt.Fprintln(w, "  RAPIDAPI_SETUP_DB_PATH    SQLite run ledger path")
	fmt.Fprintln(w, "  RAPIDAPI_SETUP_LOG_LEVEL  Log level: debug, info, warn, error")
}
