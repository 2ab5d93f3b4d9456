package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/praveshjainnn/BasketBuddy/internal/config"
)

// levelRouter is a slog.Handler that routes DEBUG/INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	min    slog.Leveler
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= lr.min.Level()
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		min:    lr.min,
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		min:    lr.min,
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

func newLevelRouter(stdout, stderr io.Writer, level slog.Level) *levelRouter {
	opts := &slog.HandlerOptions{Level: level}
	return &levelRouter{
		min:    level,
		stdout: slog.NewTextHandler(stdout, opts),
		stderr: slog.NewTextHandler(stderr, opts),
	}
}

// setupLogger configures structured logging. ERROR goes to stderr, the rest
// to stdout. If logPath is non-empty, all levels are also written to that
// file. Returns a cleanup function that closes the log file (if opened).
func setupLogger(logPath string, level slog.Level) (func(), error) {
	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	slog.SetDefault(slog.New(newLevelRouter(stdoutW, stderrW, level)))
	return cleanup, nil
}

const usage = `Usage: basketbuddy [flags] [command]

Commands:
  serve                   run the HTTP API (default)
  recompute               recompute every item's discount for today and exit
  token [-admin] [-ttl d] <seller>
                          print an API token for seller

Flags:
  -c, -config <path>      YAML config file (default: $CONFIG_PATH, else environment only)
  -d, -db <path>          SQLite database path (default: basketbuddy.db)
  -a, -addr <host:port>   listen address (default: :8080)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit

Environment variables BB_DB_PATH, BB_ADDR, BB_LOG_PATH, BB_LOG_LEVEL,
BB_REDIS_ADDR, BB_REDIS_PASSWORD, BB_REDIS_DB, BB_CACHE_TTL, BB_RATE_RPS,
BB_RATE_BURST and BB_ENV apply unless overridden by a flag.
`

// parseArgs loads the configuration, applies command-line overrides and
// returns the remaining arguments.
func parseArgs(args []string, stdout io.Writer) (*config.Config, []string, error) {
	fs := flag.NewFlagSet("basketbuddy", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var configPath, dbPath, addr, logPath string
	fs.StringVar(&configPath, "config", "", "")
	fs.StringVar(&configPath, "c", "", "")
	fs.StringVar(&dbPath, "db", "", "")
	fs.StringVar(&dbPath, "d", "", "")
	fs.StringVar(&addr, "addr", "", "")
	fs.StringVar(&addr, "a", "", "")
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	fs.Usage = func() { fmt.Fprint(stdout, usage) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.Usage()
		}
		return nil, nil, err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	// Only flags given explicitly override file and environment.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "db", "d":
			cfg.Database.Path = dbPath
		case "addr", "a":
			cfg.HTTPServer.Addr = addr
		case "log", "l":
			cfg.Log.Path = logPath
		}
	})

	return cfg, fs.Args(), nil
}

func main() {
	cfg, rest, err := parseArgs(os.Args[1:], os.Stdout)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	level, _ := cfg.SlogLevel()
	closeLog, err := setupLogger(cfg.Log.Path, level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	command := "serve"
	if len(rest) > 0 {
		command, rest = rest[0], rest[1:]
	}

	ctx := context.Background()
	switch command {
	case "serve":
		err = cmdServe(ctx, cfg, rest)
	case "recompute":
		err = cmdRecompute(ctx, cfg, rest)
	case "token":
		err = cmdToken(ctx, cfg, rest, os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", command, usage)
		os.Exit(1)
	}

	if err != nil {
		slog.Error(command+" failed", "error", err)
		if closeLog != nil {
			closeLog()
		}
		os.Exit(1)
	}
}
