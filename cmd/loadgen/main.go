// Command loadgen prints signed relay frames and drives virtual users against a relay.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/relay-loadgen/internal/convert"
	"github.com/and161185/relay-loadgen/internal/crypto"
	"github.com/and161185/relay-loadgen/internal/model"
	"github.com/and161185/relay-loadgen/internal/runner"
	"github.com/and161185/relay-loadgen/internal/scenario"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// ---- utils ----

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

type keyRow struct {
	Secret     string `json:"secret"`
	PrivateKey string `json:"private_key"`
	PublicKey  string `json:"public_key"`
}

// poolKeys lists the identities of a pool, or the single identity for secret.
func poolKeys(pool int, secret string) ([]keyRow, error) {
	secrets := []string{secret}
	if secret == "" {
		secrets = secrets[:0]
		for i := 0; i < pool; i++ {
			secrets = append(secrets, strconv.Itoa(i))
		}
	}
	rows := make([]keyRow, 0, len(secrets))
	for _, s := range secrets {
		id, err := crypto.Derive(s)
		if err != nil {
			return nil, fmt.Errorf("secret %q: %w", s, err)
		}
		rows = append(rows, keyRow{Secret: s, PrivateKey: id.PrivateKey, PublicKey: id.PublicKey})
	}
	return rows, nil
}

// writeFrames writes n wire frames, one per line.
func writeFrames(ctx context.Context, w io.Writer, gen *scenario.Generator, publish bool, n int) error {
	for i := 0; i < n; i++ {
		var (
			m   model.Message
			err error
		)
		if publish {
			m, err = gen.Publish(ctx)
		} else {
			m, err = gen.Subscribe(ctx)
		}
		if err != nil {
			return err
		}
		b, err := convert.EncodeMessage(m)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s\n", b); err != nil {
			return err
		}
	}
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `loadgen
Usage:
  loadgen [-pool N] [-relay-hint host] [-v] <cmd> [args]

Commands:
  version
  keys       [-secret s]                         (pool identities or one secret)
  publish    [-n count]                          (print EVENT frames)
  subscribe  [-n count]                          (print REQ frames)
  run        -relay URL [-vus N] [-iterations N] [-duration D] [-rate R] [-burst B]
             [-publish-ratio P] [-read] [-breaker N]
`)
	os.Exit(2)
}

// ---- main ----

// main dispatches subcommands.
func main() {
	pool := flag.Int("pool", model.DefaultPoolSize, "identity pool size")
	hint := flag.String("relay-hint", model.DefaultRelayHint, "relay hint placed in e tags")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)

	gen, err := scenario.New(scenario.Config{PoolSize: *pool, RelayHint: *hint})
	if err != nil {
		fail(err)
	}

	switch cmd {

	case "version":
		fmt.Printf("loadgen %s (%s)\n", version, buildDate)

	case "keys":
		fs := flag.NewFlagSet("keys", flag.ExitOnError)
		secret := fs.String("secret", "", "derive a single secret instead of the pool")
		_ = fs.Parse(flag.Args()[1:])

		rows, err := poolKeys(gen.PoolSize(), *secret)
		if err != nil {
			fail(err)
		}
		printJSON(rows)

	case "publish", "subscribe":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		n := fs.Int("n", 1, "number of frames")
		_ = fs.Parse(flag.Args()[1:])
		if *n < 0 {
			fmt.Fprintln(os.Stderr, "need -n >= 0")
			os.Exit(1)
		}

		if err := writeFrames(context.Background(), os.Stdout, gen, cmd == "publish", *n); err != nil {
			fail(err)
		}

	case "run":
		fs := flag.NewFlagSet("run", flag.ExitOnError)
		relayURL := fs.String("relay", "", "relay URL (ws://, wss://, http://, https://)")
		vus := fs.Int("vus", 10, "virtual users")
		iterations := fs.Int("iterations", 100, "iterations per virtual user (0 = unbounded)")
		duration := fs.Duration("duration", 0, "run duration (0 = unbounded)")
		rate := fs.Float64("rate", 0, "iterations per second per virtual user (0 = unlimited)")
		burst := fs.Int("burst", 1, "rate limiter burst")
		ratio := fs.Float64("publish-ratio", 0.5, "share of iterations that publish")
		read := fs.Bool("read", true, "read and count relay replies")
		breaker := fs.Uint("breaker", runner.DefaultBreakerFailures, "consecutive send failures before a virtual user stops")
		_ = fs.Parse(flag.Args()[1:])

		logger, err := newLogger(*verbose)
		if err != nil {
			fail(err)
		}
		defer func() { _ = logger.Sync() }()

		r, err := runner.New(runner.Config{
			RelayURL:        *relayURL,
			VirtualUsers:    *vus,
			Iterations:      *iterations,
			Duration:        *duration,
			Rate:            *rate,
			Burst:           *burst,
			PublishRatio:    *ratio,
			ReadResponses:   *read,
			BreakerFailures: uint32(*breaker),
		}, gen, runner.DialWebsocket, logger)
		if err != nil {
			fail(err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := r.Run(ctx)
		printJSON(statsView(st))
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("run failed", zap.Error(err))
			_ = logger.Sync()
			os.Exit(1)
		}

	default:
		usage()
	}
}

type statsRow struct {
	Publishes     int64   `json:"publishes"`
	Subscriptions int64   `json:"subscriptions"`
	Failures      int64   `json:"failures"`
	Sent          int64   `json:"sent"`
	SendErrors    int64   `json:"send_errors"`
	Accepted      int64   `json:"accepted"`
	Rejected      int64   `json:"rejected"`
	EOSE          int64   `json:"eose"`
	Notices       int64   `json:"notices"`
	Closed        int64   `json:"closed"`
	Elapsed       string  `json:"elapsed"`
	PerSecond     float64 `json:"per_second"`
}

func statsView(st runner.Stats) statsRow {
	row := statsRow{
		Publishes:     st.Publishes,
		Subscriptions: st.Subscriptions,
		Failures:      st.Failures,
		Sent:          st.Sent,
		SendErrors:    st.SendErrors,
		Accepted:      st.Accepted,
		Rejected:      st.Rejected,
		EOSE:          st.EOSE,
		Notices:       st.Notices,
		Closed:        st.Closed,
		Elapsed:       st.Elapsed.Round(time.Millisecond).String(),
	}
	if st.Elapsed > 0 {
		row.PerSecond = float64(st.Sent) / st.Elapsed.Seconds()
	}
	return row
}
