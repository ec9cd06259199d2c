package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/dentdir"
	"github.com/fwojciec/dentdir/config"
	"github.com/fwojciec/dentdir/fs"
	"github.com/fwojciec/dentdir/gemini"
	"github.com/fwojciec/dentdir/ingest"
	dentredis "github.com/fwojciec/dentdir/redis"
	dentslog "github.com/fwojciec/dentdir/slog"
	"github.com/fwojciec/dentdir/sqlite"
	"github.com/fwojciec/dentdir/store"
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	ctx := context.Background()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	Stdin  io.Reader
	Getenv func(string) string

	// KV replaces the configured storage when set.
	KV dentdir.KVStore

	// Connect replaces the Gemini searcher when set.
	Connect ingest.ConnectFunc

	// Sleep replaces real waits between queries and retries when set.
	Sleep ingest.SleepFunc

	Now func() time.Time

	closers []io.Closer
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		Stdin:  os.Stdin,
		Getenv: os.Getenv,
		Now:    time.Now,
	}
}

// Close releases storage opened by Run.
func (m *Main) Close() error {
	var first error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	m.closers = nil
	return first
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdin:  m.Stdin,
		Stdout: stdout,
		Stderr: stderr,
		Now:    m.Now,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("dentdir"),
		kong.Description("Build and annotate a directory of dental clinics."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'dentdir --help' to see available commands")
	}

	cmd := args[0]
	if cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	configPath := cli.Config
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Hint: fix or remove %s\n", configPath)
		return err
	}
	if cli.Verbose {
		cfg.LogLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	kv, err := m.openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer m.Close()
	kv = dentslog.NewLoggingKVStore(kv, logger)

	clinics := store.New(kv, store.WithMatcher(cfg.Matcher()))
	credentials := store.NewCredentials(kv, cfg.ResolveAPIKey(m.Getenv))

	planner := dentdir.NewPlanner()
	if len(cfg.Ingest.Categories) > 0 {
		planner.Categories = cfg.Ingest.Categories
	}

	deps.Config = cfg
	deps.Logger = logger
	deps.Clinics = clinics
	deps.Credentials = credentials
	deps.Ingester = &ingest.Pipeline{
		Planner:     planner,
		Clinics:     clinics,
		Credentials: credentials,
		Connect:     m.connector(cfg, logger),
		Limiter:     ingest.NewCallLimiter(cfg.Ingest.RequestsPerMinute),
		Retry: ingest.RetryPolicy{
			MaxAttempts:    cfg.Ingest.MaxAttempts,
			RateLimitDelay: cfg.Ingest.RateLimitDelay,
			TransientDelay: cfg.Ingest.TransientDelay,
		},
		QueryDelay: cfg.Ingest.QueryDelay,
		Sleep:      m.Sleep,
		Logger:     logger,
	}

	return kongCtx.Run(deps)
}

// openStorage opens the configured KV store.
func (m *Main) openStorage(ctx context.Context, cfg *config.Config) (dentdir.KVStore, error) {
	if m.KV != nil {
		return m.KV, nil
	}

	dataDir := config.DataDir()
	path := cfg.Storage.ResolvedPath(dataDir)
	switch cfg.Storage.Driver {
	case config.DriverFS:
		return fs.NewKVStore(path), nil
	case config.DriverRedis:
		kv, err := dentredis.Open(ctx, cfg.Storage.RedisAddr, cfg.Storage.RedisPassword, cfg.Storage.RedisDB)
		if err != nil {
			return nil, err
		}
		m.closers = append(m.closers, kv)
		return kv, nil
	default:
		db := sqlite.NewDB(path)
		if err := db.Open(); err != nil {
			return nil, fmt.Errorf("failed to open database at %q: %w", path, err)
		}
		m.closers = append(m.closers, db)
		return sqlite.NewKVStore(db), nil
	}
}

// connector returns the function creating a logged searcher for an API key.
func (m *Main) connector(cfg *config.Config, logger *slog.Logger) ingest.ConnectFunc {
	return func(ctx context.Context, apiKey string) (dentdir.Searcher, error) {
		var searcher dentdir.Searcher
		if m.Connect != nil {
			s, err := m.Connect(ctx, apiKey)
			if err != nil {
				return nil, err
			}
			searcher = s
		} else {
			s, err := gemini.Connect(ctx, apiKey,
				gemini.WithModel(cfg.Gemini.Model),
				gemini.WithTemperature(cfg.Gemini.Temperature),
				gemini.WithStructuredOutput(cfg.Gemini.Structured),
			)
			if err != nil {
				return nil, err
			}
			searcher = s
		}
		return dentslog.NewLoggingSearcher(searcher, logger), nil
	}
}
