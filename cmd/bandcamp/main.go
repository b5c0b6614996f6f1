package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/csmith/envflag/v2"
	"github.com/csmith/slogflags"
	"github.com/joho/godotenv"

	"github.com/handiism/bandcamp-catalog/internal/app"
	"github.com/handiism/bandcamp-catalog/internal/config"
)

var (
	configPath    = flag.String("config", "", "Path to the settings file (default: user config dir)")
	handle        = flag.String("handle", "", "Bandcamp account handle (overrides settings)")
	identityToken = flag.String("identity-token", "", "Bandcamp identity cookie value (overrides settings)")
	developerKey  = flag.String("developer-key", "", "Bandcamp API developer key (overrides settings)")
	cacheBackend  = flag.String("cache-backend", "", "Cache backend: memory, redis or sqlite (overrides settings)")
	redisURL      = flag.String("redis-url", "", "Redis URL for the redis cache backend")
	output        = flag.String("output", "", "Download directory (overrides settings)")
	listen        = flag.String("listen", "", "Listen address for serve (overrides settings)")
	discography   = flag.Bool("discography", false, "Download every release of band URLs")
	jsonOutput    = flag.Bool("json", false, "Print items as JSON")
	verbose       = flag.Bool("verbose", false, "Show verbose download progress")
)

func main() {
	_ = godotenv.Load()
	flag.Usage = usage
	envflag.Parse()
	logger := slogflags.Logger(slogflags.WithSetDefault(true))

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	os.Exit(run(ctx, logger, flag.Arg(0), flag.Args()[1:]))
}

func run(ctx context.Context, logger *slog.Logger, name string, args []string) int {
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", name)
		usage()
		return 2
	}

	path := *configPath
	if path == "" {
		path = config.DefaultPath()
	}
	settings, err := config.Load(path)
	if err != nil {
		logger.Error("Failed to load settings", "path", path, "error", err)
		return 1
	}
	applyFlags(settings)
	if err := settings.Validate(); err != nil {
		logger.Error("Invalid settings", "error", err)
		return 1
	}

	a, err := app.New(ctx, settings, logger)
	if err != nil {
		logger.Error("Failed to start", "error", err)
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("Failed to close", "error", err)
		}
	}()

	env := &env{app: a, out: os.Stdout, settingsPath: path, json: *jsonOutput}
	if err := cmd.run(ctx, env, args); err != nil {
		if ctx.Err() != nil {
			logger.Info("Cancelled")
			return 130
		}
		logger.Error("Command failed", "command", name, "error", err)
		return 1
	}
	return 0
}

func applyFlags(s *config.Settings) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&s.Handle, *handle)
	set(&s.IdentityToken, *identityToken)
	set(&s.DeveloperKey, *developerKey)
	set(&s.CacheBackend, *cacheBackend)
	set(&s.RedisURL, *redisURL)
	set(&s.DownloadsPath, *output)
	set(&s.ListenAddr, *listen)
	if *discography {
		s.DownloadArtistDiscography = true
	}
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintln(out, "bandcamp - browse, search and download from Bandcamp")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  bandcamp [flags] <command> [args]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	for _, name := range commandNames() {
		fmt.Fprintf(out, "  %-12s %s\n", name, commands[name].usage)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "For interactive mode, use: bandcamp-tui")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Flags (also read from the environment, e.g. IDENTITY_TOKEN):")
	flag.PrintDefaults()
}
