// Command glazectl drives a glaze account from the terminal: it logs in,
// keeps the session in a file or Redis, and issues authenticated calls
// against a glaze server.
//
// Usage:
//
//	glazectl [flags] <command> [args]
//
// Commands:
//
//	login-email <email> <password>   credential login
//	login-wx <code>                  provider login with a one-time code
//	logout                           end the session
//	whoami                           print the cached user
//	check                            validate the stored token with the server
//	refresh                          exchange the refresh token
//	get <path> [key=value ...]       authenticated GET, prints the payload
//	keys                             list stored session keys
//
// The session lives in -session-file unless -redis is set; -redis mem starts
// an in-process miniredis, which only lives as long as the command.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	glazeAuth "github.com/MrEthical07/glazeAuth"
	"github.com/MrEthical07/glazeAuth/autherr"
	promexport "github.com/MrEthical07/glazeAuth/metrics/export/prometheus"
	"github.com/MrEthical07/glazeAuth/platform"
	"github.com/MrEthical07/glazeAuth/request"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	configPath  string
	baseURL     string
	sessionFile string
	redisAddr   string
	userAgent   string
	metrics     bool
	verbose     bool
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "glazectl", "session.json")
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("glazectl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.configPath, "config", "", "YAML config file")
	fs.StringVar(&opts.baseURL, "base-url", "", "server base URL; overrides the config file")
	fs.StringVar(&opts.sessionFile, "session-file", defaultSessionFile(), "session file for the file backend")
	fs.StringVar(&opts.redisAddr, "redis", "", "redis address for the session, or \"mem\" for an in-process server")
	fs.StringVar(&opts.userAgent, "ua", "", "user agent reported to the capability probe")
	fs.BoolVar(&opts.metrics, "metrics", false, "print client metrics in Prometheus text format on exit")
	fs.BoolVar(&opts.verbose, "v", false, "debug logging to stderr")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}

	logger := zap.NewNop()
	if opts.verbose {
		cfg.Log = glazeAuth.LogConfig{Env: "dev", Level: "debug"}
		if logger, err = glazeAuth.NewLogger(cfg.Log); err != nil {
			fmt.Fprintf(stderr, "logger: %v\n", err)
			return 1
		}
	}
	defer logger.Sync()

	presenter := &stdoutPresenter{w: stdout}
	scheduler := platform.NewManualScheduler(presenter)
	command, rest := fs.Arg(0), fs.Args()[1:]

	provider := &codeProvider{}
	if command == "login-wx" && len(rest) > 0 {
		provider.code = rest[0]
	}

	b := glazeAuth.New().
		WithConfig(cfg).
		WithLogger(logger).
		WithPresenter(presenter).
		WithScheduler(scheduler).
		WithProviderHost(provider).
		WithProbe(platform.StaticProbe{Env: platform.PlatformWeb, UA: opts.userAgent})

	cleanup, err := attachRedis(b, opts.redisAddr)
	if err != nil {
		fmt.Fprintf(stderr, "redis: %v\n", err)
		return 1
	}
	defer cleanup()

	client, err := b.Build()
	if err != nil {
		fmt.Fprintf(stderr, "build: %v\n", err)
		return 1
	}
	defer client.Close()

	client.Restore(ctx)
	code := execute(ctx, client, command, rest, stdout, stderr)
	// deferred navigation and bind offers are printed rather than awaited
	scheduler.Flush()

	if opts.metrics {
		if err := writeMetrics(stdout, client); err != nil {
			fmt.Fprintf(stderr, "metrics: %v\n", err)
		}
	}
	return code
}

func loadConfig(opts options) (glazeAuth.Config, error) {
	cfg := glazeAuth.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := glazeAuth.LoadConfig(opts.configPath)
		if err != nil {
			return glazeAuth.Config{}, err
		}
		cfg = loaded
	}
	if opts.baseURL != "" {
		cfg.Server.BaseURL = opts.baseURL
	}
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = os.Getenv("GLAZE_BASE_URL")
	}

	cfg.Metrics.Enabled = cfg.Metrics.Enabled || opts.metrics
	if opts.redisAddr != "" {
		cfg.Session.Backend = glazeAuth.BackendRedis
		cfg.Session.RedisAddr = opts.redisAddr
		return cfg, nil
	}
	if cfg.Session.Backend == glazeAuth.BackendMemory {
		cfg.Session.Backend = glazeAuth.BackendFile
		cfg.Session.FilePath = opts.sessionFile
	}
	if cfg.Session.Backend == glazeAuth.BackendFile {
		if err := os.MkdirAll(filepath.Dir(cfg.Session.FilePath), 0o700); err != nil {
			return glazeAuth.Config{}, err
		}
	}
	return cfg, nil
}

func attachRedis(b *glazeAuth.Builder, addr string) (func(), error) {
	if addr != "mem" {
		return func() {}, nil
	}
	mr, err := miniredis.Run()
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b.WithRedis(rdb)
	return func() {
		_ = rdb.Close()
		mr.Close()
	}, nil
}

func execute(ctx context.Context, client *glazeAuth.Client, command string, args []string, stdout, stderr io.Writer) int {
	switch command {
	case "login-email":
		if len(args) != 2 {
			fmt.Fprintln(stderr, "usage: login-email <email> <password>")
			return 2
		}
		res, err := client.LoginWithEmail(ctx, args[0], args[1])
		return reportLogin(res, err, stdout, stderr)
	case "login-wx":
		if len(args) != 1 {
			fmt.Fprintln(stderr, "usage: login-wx <code>")
			return 2
		}
		res, err := client.LoginWithProvider(ctx)
		return reportLogin(res, err, stdout, stderr)
	case "logout":
		client.Logout(ctx)
		fmt.Fprintln(stdout, "logged out")
		return 0
	case "whoami":
		u := client.CurrentUser(ctx)
		if u == nil {
			fmt.Fprintln(stderr, glazeAuth.ErrNotLoggedIn)
			return 1
		}
		return printJSON(stdout, stderr, u)
	case "check":
		if !client.CheckLogin(ctx) {
			fmt.Fprintln(stdout, "session invalid")
			return 1
		}
		fmt.Fprintln(stdout, "session valid")
		return 0
	case "refresh":
		if err := client.RefreshSession(ctx); err != nil {
			fmt.Fprintf(stderr, "refresh: %s\n", autherr.Message(err))
			return 1
		}
		fmt.Fprintln(stdout, "token refreshed")
		return 0
	case "get":
		if len(args) == 0 {
			fmt.Fprintln(stderr, "usage: get <path> [key=value ...]")
			return 2
		}
		query, err := parseQuery(args[1:])
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
		var out json.RawMessage
		req := request.Request{Method: http.MethodGet, Path: args[0], Query: query}
		if err := client.Request(ctx, req, &out, request.Options{}); err != nil {
			fmt.Fprintf(stderr, "get %s: %s\n", args[0], autherr.Message(err))
			return 1
		}
		return printJSON(stdout, stderr, out)
	case "keys":
		for _, k := range client.SessionKeys(ctx) {
			fmt.Fprintln(stdout, k)
		}
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", command)
		return 2
	}
}

func reportLogin(res *glazeAuth.LoginResult, err error, stdout, stderr io.Writer) int {
	if err != nil {
		var le *glazeAuth.LoginError
		if errors.As(err, &le) {
			fmt.Fprintf(stderr, "login failed: %s\n", le.Message)
		} else {
			fmt.Fprintf(stderr, "login failed: %v\n", err)
		}
		return 1
	}
	fmt.Fprintf(stdout, "logged in as %s (%s)\n", res.User.Nickname, res.User.UserID)
	return 0
}

func parseQuery(pairs []string) (url.Values, error) {
	q := url.Values{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("query parameter %q is not key=value", p)
		}
		q.Add(k, v)
	}
	return q, nil
}

func printJSON(stdout, stderr io.Writer, v any) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(stderr, "encode: %v\n", err)
		return 1
	}
	return 0
}

func writeMetrics(w io.Writer, client *glazeAuth.Client) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(promexport.NewPrometheusExporter(client)); err != nil {
		return err
	}
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
