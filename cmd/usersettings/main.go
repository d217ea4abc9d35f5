package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"recraftgen/internal/infra"
	"recraftgen/internal/middleware"
	"recraftgen/internal/providers/recraft"
	"recraftgen/internal/settings"
)

type options struct {
	userID     string
	settings   settings.Settings
	issueToken bool
	tokenTTL   time.Duration
}

func main() {
	_ = godotenv.Load()
	os.Exit(run(context.Background(), os.Args[1:], os.Getenv, os.Stdout, os.Stderr))
}

// parseOptions reads the command line. The deployment FAL_KEY is only copied
// into a user's row when -key-from-env asks for it.
func parseOptions(args []string, getenv func(string) string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("usersettings", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		opts       options
		userFlag   string
		keyFlag    string
		keyFromEnv bool
		sizeFlag   string
		styleFlag  string
		colorsFlag string
	)
	fs.StringVar(&userFlag, "user", "", "User id to configure")
	fs.StringVar(&keyFlag, "key", "", "fal.ai API key for the user")
	fs.BoolVar(&keyFromEnv, "key-from-env", false, "Store the FAL_KEY environment value as the user's key")
	fs.StringVar(&sizeFlag, "size", "", "Default image size for the user")
	fs.StringVar(&styleFlag, "style", "", "Default style for the user")
	fs.StringVar(&colorsFlag, "colors", "", "Default comma-separated r,g,b palette for the user")
	fs.BoolVar(&opts.issueToken, "issue-token", false, "Print a bearer token for the user signed with JWT_SECRET")
	fs.DurationVar(&opts.tokenTTL, "token-ttl", 24*time.Hour, "Lifetime of the issued token")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	opts.userID = strings.TrimSpace(userFlag)
	if opts.userID == "" {
		return options{}, errors.New("-user is required")
	}

	key := strings.TrimSpace(keyFlag)
	if keyFromEnv {
		if key != "" {
			return options{}, errors.New("-key and -key-from-env are mutually exclusive")
		}
		key = strings.TrimSpace(getenv("FAL_KEY"))
		if key == "" {
			return options{}, errors.New("-key-from-env given but FAL_KEY is empty")
		}
	}
	opts.settings = settings.Settings{APIKey: key, ImageSize: sizeFlag, Style: styleFlag, Colors: colorsFlag}
	if opts.settings == (settings.Settings{}) && !opts.issueToken {
		return options{}, errors.New("nothing to do: pass -key, -key-from-env, -size, -style, -colors or -issue-token")
	}
	if opts.issueToken && opts.tokenTTL <= 0 {
		return options{}, errors.New("-token-ttl must be positive")
	}
	return opts, nil
}

func run(ctx context.Context, args []string, getenv func(string) string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args, getenv, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, err)
		}
		return 1
	}

	logger := infra.NewLoggerTo(stderr, "cli").With().Str("cmd", "usersettings").Str("user_id", opts.userID).Logger()

	// Surface palette typos now instead of at generation time.
	if colors := opts.settings.Colors; strings.TrimSpace(colors) != "" && len(recraft.ParseColors(colors, &logger)) == 0 {
		fmt.Fprintf(stderr, "no valid r,g,b triple in %q\n", colors)
		return 1
	}

	if opts.settings != (settings.Settings{}) {
		if code := store(ctx, getenv, opts, logger, stdout, stderr); code != 0 {
			return code
		}
	}

	if opts.issueToken {
		secret := strings.TrimSpace(getenv("JWT_SECRET"))
		now := time.Now()
		token, err := middleware.SignJWT(secret, middleware.TokenClaims{
			Sub: opts.userID,
			Iat: now.Unix(),
			Exp: now.Add(opts.tokenTTL).Unix(),
		})
		if err != nil {
			fmt.Fprintf(stderr, "failed to issue token: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, token)
	}
	return 0
}

func store(ctx context.Context, getenv func(string) string, opts options, logger infra.Logger, stdout, stderr io.Writer) int {
	dbURL := strings.TrimSpace(getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(stderr, "DATABASE_URL is required")
		return 1
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(stderr, "failed to create pool: %v\n", err)
		return 1
	}
	defer pool.Close()

	st := settings.NewStore(infra.NewSQLRunner(pool, logger))
	if err := st.Save(ctx, opts.userID, opts.settings); err != nil {
		fmt.Fprintf(stderr, "failed to persist settings for %s: %v\n", opts.userID, err)
		return 1
	}
	fmt.Fprintf(stdout, "settings stored for user %s\n", opts.userID)
	return 0
}
