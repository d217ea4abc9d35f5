package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"recraftgen/internal/infra"
	"recraftgen/internal/providers/fal"
	"recraftgen/internal/providers/recraft"
	"recraftgen/internal/settings"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run returns the process exit code so deferred cleanup always happens before
// main exits.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("recraft", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		promptFlag string
		userFlag   string
		sizeFlag   string
		styleFlag  string
		colorsFlag string
	)
	fs.StringVar(&promptFlag, "prompt", "", "Text prompt to render")
	fs.StringVar(&userFlag, "user", "", "User id whose stored settings apply (requires DATABASE_URL)")
	fs.StringVar(&sizeFlag, "size", "", "Image size override, e.g. square_hd or landscape_16_9")
	fs.StringVar(&styleFlag, "style", "", "Style override, e.g. realistic_image")
	fs.StringVar(&colorsFlag, "colors", "", "Comma-separated r,g,b values, e.g. 255,0,0,0,0,255")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "invalid configuration: %v\n", err)
		return 1
	}
	logger := infra.NewLoggerTo(stderr, cfg.AppEnv).With().
		Str("cmd", "recraft").
		Str("invocation_id", uuid.NewString()).
		Logger()

	var source settings.Source
	userID := strings.TrimSpace(userFlag)
	if userID != "" {
		if !cfg.HasDatabase() {
			fmt.Fprintln(stderr, "DATABASE_URL is required with -user")
			return 1
		}
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			fmt.Fprintf(stderr, "failed to create pool: %v\n", err)
			return 1
		}
		defer pool.Close()
		source = settings.NewStore(infra.NewSQLRunner(pool, logger))
	}

	resolver := settings.NewResolver(settings.FromConfig(cfg), source, &logger)
	resolved, err := resolver.Resolve(ctx, userID)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load settings: %v\n", err)
		return 1
	}
	effective := resolved.Merge(settings.Settings{
		ImageSize: sizeFlag,
		Style:     styleFlag,
		Colors:    colorsFlag,
	})

	client := fal.NewClient(fal.Options{
		BaseURL:        cfg.FalBaseURL,
		Model:          cfg.FalModel,
		RequestTimeout: cfg.FalRequestTimeout,
		Logger:         &logger,
	})
	out := recraft.NewGenerator(client, &logger).Generate(ctx, promptFlag, effective)
	fmt.Fprintln(stdout, out)
	if strings.HasPrefix(out, recraft.ErrorPrefix) {
		return 1
	}
	return 0
}
