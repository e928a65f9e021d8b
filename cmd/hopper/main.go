// Command hopper issues a single logical HTTP request and writes the
// decoded response body to stdout.
//
//	hopper [flags] URL
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/adamwoolhether/hopper/client"
	"github.com/adamwoolhether/hopper/client/stage"
	"github.com/adamwoolhether/hopper/config"
	"github.com/adamwoolhether/hopper/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "hopper:", err)
		}
		os.Exit(1)
	}
}

type headerFlags http.Header

func (h headerFlags) String() string { return fmt.Sprint(http.Header(h)) }

func (h headerFlags) Set(v string) error {
	k, val, ok := strings.Cut(v, ":")
	if !ok || strings.TrimSpace(k) == "" {
		return fmt.Errorf("header %q must be Key: Value", v)
	}
	http.Header(h).Add(strings.TrimSpace(k), strings.TrimSpace(val))
	return nil
}

type cli struct {
	configPath string
	method     string
	data       string
	output     string
	user       string
	password   string
	authMode   string
	follow     int
	timeout    time.Duration
	aggregate  bool
	compressed bool
	trace      bool
	jsonLogs   bool
	verbose    bool
	headers    headerFlags
}

func parseFlags(args []string, stderr io.Writer) (cli, string, error) {
	c := cli{headers: headerFlags{}}

	fs := flag.NewFlagSet("hopper", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&c.configPath, "config", "hopper.yaml", "path to the YAML defaults file")
	fs.StringVar(&c.method, "X", "", "request method (default GET, or POST with -d)")
	fs.StringVar(&c.data, "d", "", "request body sent as is")
	fs.StringVar(&c.output, "o", "", "also write the raw body of a 200 response to this file")
	fs.StringVar(&c.user, "user", "", "username for authentication")
	fs.StringVar(&c.password, "password", "", "password for authentication")
	fs.StringVar(&c.authMode, "auth", "basic", "authentication mode: basic, auto or digest")
	fs.IntVar(&c.follow, "follow", -1, "redirect budget (default from config)")
	fs.DurationVar(&c.timeout, "timeout", -1, "header timeout (default from config)")
	fs.BoolVar(&c.aggregate, "aggregate", false, "collect the whole body and print status and body")
	fs.BoolVar(&c.compressed, "compressed", false, "advertise gzip, deflate and br")
	fs.BoolVar(&c.trace, "trace", false, "export spans to stderr")
	fs.BoolVar(&c.jsonLogs, "json-logs", false, "log as JSON")
	fs.BoolVar(&c.verbose, "v", false, "debug logging")
	fs.Var(c.headers, "H", "request header as 'Key: Value', repeatable")

	if err := fs.Parse(args); err != nil {
		return cli{}, "", err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return cli{}, "", errors.New("exactly one URL is required")
	}

	return c, fs.Arg(0), nil
}

func (c cli) requestOptions() ([]client.RequestOption, error) {
	var opts []client.RequestOption

	if c.follow != -1 {
		opts = append(opts, client.WithFollow(c.follow))
	}
	if c.timeout != -1 {
		opts = append(opts, client.WithRequestTimeout(c.timeout))
	}
	if c.compressed {
		opts = append(opts, client.WithCompressed(true))
	}
	if c.data != "" {
		opts = append(opts, client.WithBody([]byte(c.data)))
	}
	if len(c.headers) > 0 {
		opts = append(opts, client.WithHeaders(c.headers))
	}
	if c.output != "" {
		opts = append(opts, client.WithOutput(c.output, client.WithProgress()))
	}

	if c.user != "" {
		var mode client.AuthMode
		switch strings.ToLower(c.authMode) {
		case "basic":
			mode = client.AuthBasic
		case "auto":
			mode = client.AuthAuto
		case "digest":
			mode = client.AuthDigest
		default:
			return nil, fmt.Errorf("unknown auth mode %q", c.authMode)
		}
		opts = append(opts, client.WithAuth(c.user, c.password, mode))
	}

	return opts, nil
}

func (c cli) requestMethod() string {
	switch {
	case c.method != "":
		return strings.ToUpper(c.method)
	case c.data != "":
		return http.MethodPost
	default:
		return http.MethodGet
	}
}

func newLogger(w io.Writer, jsonLogs, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	ho := &slog.HandlerOptions{Level: level}

	if jsonLogs {
		return slog.New(slog.NewJSONHandler(w, ho))
	}
	return slog.New(slog.NewTextHandler(w, ho))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	c, target, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	logger := newLogger(stderr, c.jsonLogs, c.verbose)

	defaults, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	buildOpts := []client.Option{
		client.WithDefaults(defaults),
		client.WithLogger(logger),
	}

	if c.trace {
		tp, shutdown, err := telemetry.InitTracer("hopper", config.Version, stderr, logger)
		if err != nil {
			return fmt.Errorf("initializing tracer: %w", err)
		}
		defer func() {
			if err := shutdown(context.WithoutCancel(ctx)); err != nil {
				logger.Error("failed to shutdown tracer", "error", err)
			}
		}()
		buildOpts = append(buildOpts, client.WithTracerProvider(tp))
	}

	cl, err := client.Build(buildOpts...)
	if err != nil {
		return fmt.Errorf("building client: %w", err)
	}

	opts, err := c.requestOptions()
	if err != nil {
		return err
	}

	if c.aggregate {
		return aggregate(ctx, cl, c.requestMethod(), target, opts, stdout)
	}

	return stream(ctx, cl, c.requestMethod(), target, opts, stdout)
}

func aggregate(ctx context.Context, cl *client.Client, method, target string, opts []client.RequestOption, stdout io.Writer) error {
	resp, body, err := cl.Do(ctx, method, target, opts...)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%s (%d bytes, %d attempts)\n", resp.Status, resp.Bytes, resp.Attempts)

	if body.Kind() == client.BodyObject {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(body.Object())
	}

	_, err = stdout.Write(body.Bytes())
	return err
}

func stream(ctx context.Context, cl *client.Client, method, target string, opts []client.RequestOption, stdout io.Writer) error {
	s := cl.Request(ctx, method, target, opts...)
	defer s.Close()

	<-s.Ready()
	if s.Response() == nil {
		<-s.Done()
		return s.Err()
	}

	if s.Kind() == stage.KindBytes {
		if _, err := io.Copy(stdout, s); err != nil {
			return err
		}
		return s.Err()
	}

	enc := json.NewEncoder(stdout)
	for {
		item, err := s.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if item.Kind == stage.KindBytes {
			if _, err := stdout.Write(item.Bytes); err != nil {
				return err
			}
			continue
		}
		if err := enc.Encode(item.Object); err != nil {
			return err
		}
	}
}
