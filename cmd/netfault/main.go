package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"codeberg.org/mutker/netfault/internal/config"
	"codeberg.org/mutker/netfault/internal/errors"
	"codeberg.org/mutker/netfault/internal/journal"
	"codeberg.org/mutker/netfault/internal/logger"
	"codeberg.org/mutker/netfault/internal/metrics"
	"codeberg.org/mutker/netfault/internal/pid"
	"codeberg.org/mutker/netfault/internal/probe"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
)

const usage = `usage: netfault [flags] <command> [args]

commands:
  probe <url>...     fetch and decode each URL once, reporting classified failures
  watch <url>...     probe the URLs every --interval until interrupted
  stats              print journaled error counts per code
  classify <text>    render text as a classified parameter error`

type app struct {
	cfg        *config.Config
	errFactory errors.Factory
	journal    journal.Journal
	registry   *prom.Registry
	recorder   metrics.Recorder
	prober     *probe.Prober
	log        logger.Logger
	out        io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	cfg, err := config.Load(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(out, usage)
			return 0
		}
		fmt.Fprintln(os.Stderr, render(errors.New().Wrap(err), config.FormatSimple))
		return 1
	}

	level, err := logger.ParseLevel(cfg.LogLevel.String())
	if err != nil {
		fmt.Fprintln(os.Stderr, render(errors.New().Wrap(err), cfg.Format))
		return 1
	}
	logger.Init(level, logger.IsService())
	logger.Debug().Msg("Config loaded")

	a, err := newApp(cfg, out)
	if err != nil {
		logger.ErrorWithCode(errors.New().Wrap(err)).Msg("Failed to initialize")
		return 1
	}
	defer a.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if len(cfg.Args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		return 1
	}

	command, rest := cfg.Args[0], cfg.Args[1:]
	switch command {
	case "probe":
		return a.probe(ctx, rest)
	case "watch":
		return a.watch(ctx, rest)
	case "stats":
		return a.stats(ctx)
	case "classify":
		return a.classify(rest)
	default:
		derr := a.errFactory.Wrap(errors.NewArgumentError("command", "unknown command "+command))
		fmt.Fprintln(os.Stderr, a.render(derr))
		fmt.Fprintln(os.Stderr, usage)
		return 1
	}
}

func newApp(cfg *config.Config, out io.Writer) (*app, error) {
	log := logger.Default()

	j, err := journal.NewService(journal.Config{
		DBPath:       cfg.JournalDB,
		BatchSize:    cfg.JournalBatchSize,
		BatchTimeout: cfg.JournalBatchTimeout,
		Enabled:      cfg.Journal,
	}, log)
	if err != nil {
		return nil, err
	}

	registry := prom.NewRegistry()

	return &app{
		cfg:        cfg,
		errFactory: errors.NewFactory(errors.WithTraceCapture(cfg.CaptureTrace)),
		journal:    j,
		registry:   registry,
		recorder:   metrics.NewPrometheusRecorder(registry),
		prober:     probe.New(probe.Config{Timeout: cfg.Timeout}, nil),
		log:        log,
		out:        out,
	}, nil
}

func (a *app) close() {
	if err := a.journal.Close(); err != nil {
		a.log.ErrorWithContext(a.errFactory.Wrap(err), "journal", "close").Msg("Failed to close journal")
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func (a *app) probe(ctx context.Context, urls []string) int {
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, a.render(a.errFactory.Wrap(errors.NewArgumentError("url", "at least one URL is required"))))
		return 1
	}

	if a.probeAll(ctx, urls) > 0 {
		return 1
	}
	return 0
}

// probeAll probes every URL in order and returns how many failed
func (a *app) probeAll(ctx context.Context, urls []string) int {
	failed := 0

	for _, url := range urls {
		start := time.Now()
		res, err := a.prober.Probe(ctx, url)
		if err != nil {
			derr := a.errFactory.Wrap(err)
			a.report(ctx, url, time.Since(start), derr)
			failed++
			continue
		}

		a.recorder.ObserveOperation("probe", res.Duration, nil)
		fmt.Fprintf(a.out, "%s OK status=%d format=%s duration=%s\n",
			errors.Sanitize(res.URL), res.Status, res.Format, res.Duration.Round(time.Millisecond))
		a.log.Info().
			Str("url", errors.Sanitize(res.URL)).
			Int("status", res.Status).
			Dur("duration", res.Duration).
			Msg("Probe succeeded")
	}

	return failed
}

func (a *app) report(ctx context.Context, url string, duration time.Duration, derr errors.Error) {
	fmt.Fprintf(a.out, "%s %s\n", errors.Sanitize(url), a.render(derr))
	a.log.ErrorWithContext(derr, "probe", errors.Sanitize(url)).Msg("Probe failed")
	a.recorder.ObserveOperation("probe", duration, derr)

	if err := a.journal.Record(ctx, derr, "probe "+url); err != nil {
		a.log.Warn().Err(err).Msg("Failed to journal probe failure")
	}
}

func (a *app) watch(ctx context.Context, urls []string) int {
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, a.render(a.errFactory.Wrap(errors.NewArgumentError("url", "at least one URL is required"))))
		return 1
	}

	pidFile := pid.New("", "")
	if err := pidFile.Write(); err != nil {
		a.log.ErrorWithCode(a.errFactory.Wrap(err)).Msg("Failed to write PID file")
		return 1
	}
	defer func() {
		if err := pidFile.Remove(); err != nil {
			a.log.ErrorWithCode(a.errFactory.Wrap(err)).Msg("Failed to remove PID file")
		}
	}()

	serveErr := make(chan error, 1)
	if a.cfg.MetricsAddr != "" {
		srv, err := metrics.Listen(a.cfg.MetricsAddr, a.registry, a.log)
		if err != nil {
			a.log.ErrorWithCode(a.errFactory.Wrap(err)).Msg("Failed to start metrics server")
			return 1
		}
		go func() { serveErr <- srv.Serve(ctx) }()
	}

	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	a.log.Info().
		Int("urls", len(urls)).
		Dur("interval", a.cfg.Interval).
		Msg("Watching")

	a.probeAll(ctx, urls)
	for {
		select {
		case <-ctx.Done():
			return 0
		case err := <-serveErr:
			if err != nil {
				a.log.ErrorWithCode(a.errFactory.Wrap(err)).Msg("Metrics server stopped")
				return 1
			}
		case <-ticker.C:
			a.probeAll(ctx, urls)
		}
	}
}

func (a *app) stats(ctx context.Context) int {
	if !a.cfg.Journal {
		a.log.Warn().Msg("Journal is disabled, counts are always zero")
	}

	counts, err := a.journal.CountByCode(ctx)
	if err != nil {
		derr := a.errFactory.Wrap(err)
		fmt.Fprintln(os.Stderr, a.render(derr))
		return 1
	}

	for _, code := range errors.Codes() {
		fmt.Fprintf(a.out, "%-16s %d\n", code, counts[code])
	}
	return 0
}

func (a *app) classify(words []string) int {
	text := strings.Join(words, " ")
	derr := a.errFactory.Wrap(errors.NewArgumentError("", text))
	fmt.Fprintln(a.out, a.render(derr))
	return 0
}

func (a *app) render(err errors.Error) string {
	return render(err, a.cfg.Format)
}

func render(err errors.Error, format config.Format) string {
	if format == config.FormatFull {
		return err.FullString()
	}
	return err.SimpleString()
}
