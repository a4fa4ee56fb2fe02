// Command vpp-sync fetches the users and licenses of a VPP account and
// writes them to stdout as JSON, one document per operation.
//
// With --incremental the sinceModifiedToken of every successful fetch is
// stored in Redis and the next run only asks for changes since then.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/vpp-client/pkg/client"
	"github.com/Sternrassler/vpp-client/pkg/config"
	"github.com/Sternrassler/vpp-client/pkg/cursor"
	"github.com/Sternrassler/vpp-client/pkg/logging"
	"github.com/Sternrassler/vpp-client/pkg/metrics"
	"github.com/Sternrassler/vpp-client/pkg/vpp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "vpp-sync: %v\n", err)
		}
		os.Exit(1)
	}
}

type options struct {
	configPath   string
	operation    string
	since        string
	incremental  bool
	resetCursor  bool
	maxCursorAge time.Duration
	retries      int
	metricsAddr  string
	logLevel     string
	pretty       bool
	newGUID      bool
}

// syncResult is the document written for each fetched operation.
type syncResult struct {
	Operation          vpp.Operation `json:"operation"`
	Count              int           `json:"count"`
	SinceModifiedToken string        `json:"sinceModifiedToken"`
	Results            any           `json:"results"`
}

func parseFlags(args []string, stderr io.Writer) (*options, *pflag.FlagSet, error) {
	opts := &options{}

	flagSet := pflag.NewFlagSet("vpp-sync", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.configPath, "config", "", "path to the YAML config file (default: $"+config.EnvConfig+")")
	flagSet.StringVarP(&opts.operation, "operation", "o", "all", "what to fetch: users, licenses or all")
	flagSet.StringVar(&opts.since, "since", "", "sinceModifiedToken to fetch changes from")
	flagSet.BoolVar(&opts.incremental, "incremental", false, "read and store the sinceModifiedToken cursor in Redis")
	flagSet.BoolVar(&opts.resetCursor, "reset-cursor", false, "forget stored cursors before fetching (with --incremental)")
	flagSet.DurationVar(&opts.maxCursorAge, "max-cursor-age", 0, "do a full fetch when the stored cursor is older than this (0: never)")
	flagSet.IntVar(&opts.retries, "retries", client.DefaultRetryConfig().MaxAttempts, "attempts per fetch for transport and 5xx failures")
	flagSet.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides config)")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	flagSet.BoolVar(&opts.pretty, "pretty", false, "human-readable log output")
	flagSet.BoolVar(&opts.newGUID, "new-guid", false, "print a new client GUID and exit")

	if err := flagSet.Parse(args); err != nil {
		return nil, flagSet, err
	}
	if flagSet.NArg() > 0 {
		return nil, flagSet, fmt.Errorf("unexpected arguments: %v", flagSet.Args())
	}
	return opts, flagSet, nil
}

func operations(name string) ([]vpp.Operation, error) {
	switch name {
	case "users":
		return []vpp.Operation{vpp.OpGetUsers}, nil
	case "licenses":
		return []vpp.Operation{vpp.OpGetLicenses}, nil
	case "all":
		return []vpp.Operation{vpp.OpGetUsers, vpp.OpGetLicenses}, nil
	default:
		return nil, fmt.Errorf("unknown operation %q (want users, licenses or all)", name)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, flagSet, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	if opts.newGUID {
		_, err := fmt.Fprintln(stdout, config.GenerateClientGUID())
		return err
	}

	ops, err := operations(opts.operation)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if flagSet.Changed("log-level") {
		cfg.Log.Level = logging.LogLevel(opts.logLevel)
	}
	if flagSet.Changed("pretty") {
		cfg.Log.Pretty = opts.pretty
	}
	if flagSet.Changed("metrics-addr") {
		cfg.MetricsAddr = opts.metricsAddr
	}

	cfg.Log.Output = stderr
	logging.Setup(cfg.Log)
	logger := logging.NewLogger("vpp-sync")

	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("Invalid configuration")
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient = cfg.Redis.NewClient()
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		logger.Debug().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	}

	var store *cursor.Store
	if opts.incremental {
		if redisClient == nil {
			return fmt.Errorf("--incremental requires redis (set redis.addr or %s)", config.EnvRedisAddr)
		}
		store = cursor.NewStore(redisClient, cfg.ClientGUID, logging.NewLogger("vpp-cursor"))
	}

	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("Metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("Serving metrics")
	}

	retryCfg := client.DefaultRetryConfig()
	retryCfg.MaxAttempts = opts.retries

	var vppClient *client.Client
	err = client.Retry(ctx, retryCfg, func(ctx context.Context) error {
		var err error
		vppClient, err = client.New(ctx, cfg.ClientConfig(redisClient))
		return err
	})
	if err != nil {
		logger.Error().Err(err).Str("error_kind", string(vpp.KindOf(err))).Msg("Failed to set up VPP client")
		return err
	}
	defer vppClient.Close()

	enc := json.NewEncoder(stdout)
	for _, op := range ops {
		since, err := resolveSince(ctx, store, op, opts, logger)
		if err != nil {
			return err
		}

		var result *syncResult
		err = client.Retry(ctx, retryCfg, func(ctx context.Context) error {
			var err error
			result, err = fetch(ctx, vppClient, op, since)
			return err
		})
		if err != nil {
			logger.Error().
				Err(err).
				Str("operation", string(op)).
				Str("error_kind", string(vpp.KindOf(err))).
				Msg("Sync failed")
			return err
		}

		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("write %s results: %w", op, err)
		}

		logger.Info().
			Str("operation", string(op)).
			Int("count", result.Count).
			Bool("incremental", since != "").
			Msg("Sync complete")

		if store != nil {
			if err := store.Save(ctx, op, result.SinceModifiedToken, result.Count); err != nil {
				return err
			}
		}
	}

	return nil
}

// resolveSince picks the sinceModifiedToken for op: the --since flag wins,
// then the stored cursor unless it was reset or is too old.
func resolveSince(ctx context.Context, store *cursor.Store, op vpp.Operation, opts *options, logger zerolog.Logger) (string, error) {
	if opts.since != "" || store == nil {
		return opts.since, nil
	}

	if opts.resetCursor {
		if err := store.Reset(ctx, op); err != nil {
			return "", err
		}
		return "", nil
	}

	state, err := store.Get(ctx, op)
	if err != nil {
		return "", err
	}
	if state.IsEmpty() {
		return "", nil
	}
	if opts.maxCursorAge > 0 && state.IsStale(opts.maxCursorAge) {
		logger.Info().
			Str("operation", string(op)).
			Time("updated_at", state.UpdatedAt).
			Msg("Stored cursor is stale, doing a full fetch")
		return "", nil
	}
	return state.Token, nil
}

func fetch(ctx context.Context, c *client.Client, op vpp.Operation, since string) (*syncResult, error) {
	switch op {
	case vpp.OpGetUsers:
		resp, err := c.FetchUsers(ctx, since)
		if err != nil {
			return nil, err
		}
		return &syncResult{Operation: op, Count: resp.Count, SinceModifiedToken: resp.SinceModifiedToken, Results: resp.Results}, nil
	case vpp.OpGetLicenses:
		resp, err := c.FetchLicenses(ctx, since)
		if err != nil {
			return nil, err
		}
		return &syncResult{Operation: op, Count: resp.Count, SinceModifiedToken: resp.SinceModifiedToken, Results: resp.Results}, nil
	default:
		return nil, fmt.Errorf("unsupported operation %q", op)
	}
}
