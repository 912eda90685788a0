package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

// Command names.
const (
	cmdPick = "pick"
	cmdHelp = "help"
)

// Process exit codes.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	_ = godotenv.Load()
	log := newLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, log, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		log.err("Error: " + err.Error())
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error returned by run to a process exit code.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *ConfigError
	if errors.As(err, &ce) {
		return exitConfig
	}
	return exitRuntime
}

func run(ctx context.Context, log *logger, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		printUsage(stdout)
		return nil
	}

	switch args[0] {
	case cmdHelp, "-h", "--help":
		printUsage(stdout)
		return nil
	case cmdPick:
		return runPick(ctx, log, args[1:], stdout)
	default:
		printUsage(os.Stderr)
		return &ConfigError{Msg: fmt.Sprintf("unknown command: %s", args[0])}
	}
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "cf-pick: pick Codeforces problems unseen by a group of users, one per rating")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  cf-pick pick [--config PATH] [--seed N] [--verbose]")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Options:")
	_, _ = fmt.Fprintln(w, "  --config   Path to a JSON or TOML config (default: $CF_PICK_CONFIG or cf_pick.json)")
	_, _ = fmt.Fprintln(w, "  --seed     Override the config seed for reproducible picks")
	_, _ = fmt.Fprintln(w, "  --verbose  Log throttling, retries and pagination")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Environment:")
	_, _ = fmt.Fprintln(w, "  CF_PICK_CONFIG  Config path when --config is not given")
	_, _ = fmt.Fprintln(w, "  NO_COLOR        Disable colored output")
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Exit codes: 0 success, 1 runtime error, 2 configuration error")
}

func runPick(ctx context.Context, log *logger, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet(cmdPick, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		configPath string
		seedFlag   string
		verbose    bool
	)
	fs.StringVar(&configPath, "config", "", "config path")
	fs.StringVar(&seedFlag, "seed", "", "override config seed")
	fs.BoolVar(&verbose, "verbose", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return &ConfigError{Msg: err.Error()}
	}

	path := resolveConfigPath(configPath)
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	if s := strings.TrimSpace(seedFlag); s != "" {
		seed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return &ConfigError{Field: "seed", Msg: "must be an integer"}
		}
		cfg.Seed = &seed
	}
	log.setVerbose(cfg.Verbose || verbose)
	log.debugf("config: %s handles=%d ratings=%v years=%d..%d", path, len(cfg.Handles), cfg.Ratings, *cfg.YearMin, *cfg.YearMax)

	client, err := newAPIClient(cfg, log)
	if err != nil {
		return err
	}

	start := time.Now()
	picks, err := pick(ctx, log, client, cfg)
	if err != nil {
		return err
	}
	log.okf("done: picked=%d elapsed=%s", len(picks), time.Since(start).Round(100*time.Millisecond))

	return renderPicks(stdout, cfg.Ratings, picks, siteURL(cfg.APIHosts))
}

// pick runs aggregation, catalog loading and selection. Nothing is printed
// unless all three succeed.
func pick(ctx context.Context, log *logger, client *apiClient, cfg appConfig) ([]Problem, error) {
	attempted, err := loadAttempted(ctx, client, cfg.Handles, cfg.PageSize, cfg.maxPages())
	if err != nil {
		return nil, err
	}
	log.infof("attempted: %d problems across %d handle(s)", len(attempted), len(cfg.Handles))

	candidates, err := loadFiltered(ctx, client, newCatalogFilter(cfg))
	if err != nil {
		return nil, err
	}
	log.infof("candidates: %d problems after filtering", len(candidates))

	return pickStrictOrder(candidates, attempted, cfg.Ratings, newPickConstraints(cfg))
}
