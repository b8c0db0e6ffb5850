package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joripage/matching-engine/config"
	"github.com/joripage/matching-engine/pkg/command"
	"github.com/joripage/matching-engine/pkg/engine"
	"github.com/joripage/matching-engine/pkg/logging"
	"github.com/joripage/matching-engine/pkg/metrics"
	"github.com/joripage/matching-engine/pkg/sequencer"
	"github.com/joripage/matching-engine/pkg/sink"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "config file, defaults to $CONFIG_FILE")
	inputPath := flag.String("input", "", "command file, defaults to stdin")
	format := flag.String("format", "", "output format: text or json")
	flag.Parse()

	cfg, err := loadConfig(*configPath, logging.NewLogger(logging.INFO, ""))
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	if *format != "" {
		cfg.Sink.Format = *format
		if err := cfg.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.NewLogger(level, cfg.ServiceName)
	defer logger.Sync() // nolint
	zap.ReplaceGlobals(logger.Zap())

	var in io.Reader = os.Stdin
	if *inputPath != "" {
		f, err := os.Open(*inputPath)
		if err != nil {
			logger.Error(context.Background(), "open input", zap.Error(err))
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, in, os.Stdout, logger); err != nil {
		logger.Error(ctx, "matcher stopped", zap.Error(err))
		stop()
		os.Exit(1)
	}
}

// loadConfig installs boot as the global logger so the loader's zap.S() output
// is not dropped, then reads the config.
func loadConfig(path string, boot *logging.Logger) (*config.AppConfig, error) {
	zap.ReplaceGlobals(boot.Zap())
	return config.Load(path)
}

type flusher interface {
	engine.EventSink
	Flush() error
}

type broker interface {
	engine.EventSink
	Err() error
	Close() error
}

// run feeds every record of in through a sequencer into one engine and writes
// the event stream to out.
func run(ctx context.Context, cfg *config.AppConfig, in io.Reader, out io.Writer, logger *logging.Logger) error {
	log, ctx := logger.NewSession(ctx)
	zl := log.Zap()

	var stream flusher
	if cfg.Sink.Format == "json" {
		stream = sink.NewJSONSink(out)
	} else {
		stream = sink.NewTextSink(out)
	}
	sinks := sink.Multi{stream}

	brokers, err := openBrokers(ctx, cfg.Sink, zl)
	defer func() {
		for _, b := range brokers {
			if cerr := b.Close(); cerr != nil {
				log.Warn(ctx, "close broker sink", zap.Error(cerr))
			}
		}
	}()
	if err != nil {
		return err
	}
	for _, b := range brokers {
		sinks = append(sinks, b)
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(cfg.Metrics.Namespace, reg)
	sinks = append(sinks, collector)
	if cfg.Metrics.ListenAddr != "" {
		srv := serveMetrics(cfg.Metrics.ListenAddr, reg, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	eng := engine.New(
		engine.WithSink(sinks),
		engine.WithObserver(collector),
		engine.WithLogger(zl),
	)
	var rejected int
	seq := sequencer.New(eng, cfg.Sequencer,
		sequencer.WithLogger(zl),
		sequencer.WithResultFunc(func(_ uint64, _ command.Command, err error) {
			if err != nil {
				rejected++
			}
		}),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return seq.Run(gctx) })
	g.Go(func() error {
		defer seq.Close()
		return feed(gctx, seq, in, log)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if err := stream.Flush(); err != nil {
		return fmt.Errorf("write events: %w", err)
	}
	for _, b := range brokers {
		if err := b.Err(); err != nil {
			return err
		}
	}

	log.Info(ctx, "input done",
		zap.Uint64("commands", seq.Seq()),
		zap.Int("rejected", rejected),
		zap.Int("resting", eng.Book().Len()))
	return nil
}

// feed submits parsed records in input order. Malformed records are logged
// and skipped.
func feed(ctx context.Context, seq *sequencer.Sequencer, in io.Reader, log *logging.Logger) error {
	r := command.NewReader(in)
	for r.Next() {
		if err := r.Err(); err != nil {
			log.Warn(ctx, "skip record", zap.Int("line", r.Line()), zap.Error(err))
			continue
		}
		if err := seq.Submit(ctx, r.Command()); err != nil {
			return err
		}
	}
	return r.Err()
}

func openBrokers(ctx context.Context, cfg config.SinkConfig, logger *zap.Logger) ([]broker, error) {
	var out []broker
	if k := cfg.Kafka; k != nil {
		if err := sink.WaitForBrokers(ctx, k.Brokers, logger); err != nil {
			return out, fmt.Errorf("kafka: %w", err)
		}
		ks, err := sink.NewKafkaSink(*k, logger)
		if err != nil {
			return out, err
		}
		out = append(out, ks)
	}
	if n := cfg.Nats; n != nil {
		nc, err := sink.ConnectNATS(ctx, *n, logger)
		if err != nil {
			return out, err
		}
		out = append(out, sink.NewNatsSink(nc, n.Subject, logger))
	}
	return out, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, log *logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(context.Background(), "metrics server", zap.Error(err))
		}
	}()
	return srv
}
