package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/stimkit/stimkit/internal/config"
	"github.com/stimkit/stimkit/internal/events"
	"github.com/stimkit/stimkit/internal/logger"
	"github.com/stimkit/stimkit/internal/metrics"
	"github.com/stimkit/stimkit/internal/monitor"
	"github.com/stimkit/stimkit/internal/recorder"
	"github.com/stimkit/stimkit/internal/renderer"
	"github.com/stimkit/stimkit/internal/session"
	"github.com/stimkit/stimkit/internal/suspend"
	"github.com/stimkit/stimkit/internal/tracing"
	v1 "github.com/stimkit/stimkit/pkg/stimkit/v1"
	stimerrors "github.com/stimkit/stimkit/pkg/stimkit/v1/errors"
	stimlog "github.com/stimkit/stimkit/pkg/stimkit/v1/log"
)

// recordAuto asks for a generated presentation log file name.
const recordAuto = "auto"

type runOptions struct {
	protocolPath string
	logLevel     string
	logFormat    string
	record       string
	plot         bool
	monitorAddr  string
	envFile      string
}

func newRunCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every sequence of a protocol",
		Long: "Runs the sequences of a protocol in order. SIGUSR1 toggles suspension; " +
			"SIGINT or SIGTERM stops after the current stimulus, a second one also cuts the current wait short.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.logFormat != "text" && opts.logFormat != "json" {
				return errors.New("--log-format must be 'text' or 'json'")
			}
			if code := runProtocol(opts, stdout, stderr); code != ExitSuccess {
				return &exitError{code: code}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.protocolPath, "protocol", "", "Path to the protocol YAML file (required)")
	f.StringVar(&opts.logLevel, "log-level", DefaultLogLevel, "Log level (debug, info, warn, error)")
	f.StringVar(&opts.logFormat, "log-format", DefaultLogFmt, "Log format (text, json)")
	f.StringVar(&opts.record, "record", "", "Write the presentation log as CSV to this path ('auto' picks a name)")
	f.BoolVar(&opts.plot, "plot", false, "Plot onset errors after the run")
	f.StringVar(&opts.monitorAddr, "metrics-addr", "", "Serve /metrics and the control API on this address")
	f.StringVar(&opts.envFile, "env-file", "", "Load environment variables (e.g. OTEL_*) from this file")
	_ = cmd.MarkFlagRequired("protocol")
	return cmd
}

func runProtocol(opts *runOptions, stdout, stderr io.Writer) int {
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil {
			fmt.Fprintf(stderr, "Error: loading env file '%s': %v\n", opts.envFile, err)
			return ExitUsageError
		}
	}

	log := logger.NewLogger(opts.logLevel, opts.logFormat, stderr)
	log = log.With("stimkit_version", version)
	log.Infof("stimkit v%s starting...", version)
	log.Debugf("Log level: %s", opts.logLevel)
	log.Debugf("Log format: %s", opts.logFormat)

	log.Infof("Loading protocol: %s", opts.protocolPath)
	protocol, err := config.LoadProtocolFromFile(opts.protocolPath)
	if err != nil {
		log.Errorf("Failed to load protocol: %v", err)
		return ExitFailure
	}

	eventBus := events.NewChannelEventBus(DefaultEventBusSize, log)
	defer eventBus.Close()
	metricsProvider := metrics.NewProcessRegistryProvider()
	tracerProvider, err := tracing.NewProviderFromEnv(context.Background(), stderr)
	if err != nil {
		log.Warnf("Failed to initialize tracing from environment: %v. Using NoOp tracer.", err)
		tracerProvider, _ = tracing.NewNoOpProvider()
	}

	flag := suspend.New()
	var rec *recorder.Recorder
	factoryOpts := []v1.FactoryOption{
		v1.WithEventBus(eventBus),
		v1.WithMetricsRegistryProvider(metricsProvider),
		v1.WithTracerProvider(tracerProvider),
	}
	if opts.record != "" || opts.plot {
		rec = recorder.New()
		factoryOpts = append(factoryOpts, v1.WithHooks(rec))
		log.Debugf("Recording presentations for session %s", rec.ID())
	}

	runner, err := session.NewRunner(protocol, log, session.Options{
		Registry:       renderer.Default(),
		Flag:           flag,
		Out:            stdout,
		FactoryOptions: factoryOpts,
	})
	if err != nil {
		log.Errorf("Failed to prepare session: %v", err)
		return ExitFailure
	}

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	listener := events.NewMetricsEventListener(eventBus, metricsProvider.Registry(), log)
	go listener.Start(runCtx)

	var mon *monitor.Server
	if opts.monitorAddr != "" {
		mon = monitor.New(flag, metricsProvider.Handler(), func() (string, string) {
			p := runner.Current()
			if p == nil {
				return "", "idle"
			}
			return p.Name(), p.State().String()
		}, log)
		if err := mon.Start(opts.monitorAddr); err != nil {
			log.Errorf("Failed to start monitor on %s: %v", opts.monitorAddr, err)
			return ExitFailure
		}
	}

	sigs := watchSignals(runCtx, flag, cancelRun, log)
	defer sigs.wait()

	log.Infof("Starting protocol '%s' (%d sequences)", protocol.Name, len(protocol.Sequences))
	reports, runErr := runner.Run(runCtx)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if mon != nil {
		if err := mon.Shutdown(shutdownCtx); err != nil {
			log.Warnf("Error shutting down monitor: %v", err)
		}
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warnf("Error shutting down tracer provider: %v", err)
	}
	if dropped := eventBus.Dropped(); dropped > 0 {
		log.Warnf("Event bus dropped %d events", dropped)
	}

	printSummary(stderr, reports)
	if rec != nil {
		if opts.plot {
			printOnsetPlot(stderr, rec)
		}
		if opts.record != "" {
			path := opts.record
			if path == recordAuto {
				path = rec.DefaultPath()
			}
			if err := rec.Save(path); err != nil {
				log.Errorf("Failed to save presentation log: %v", err)
				if runErr == nil {
					runErr = err
				}
			} else {
				log.Infof("Presentation log written to %s", path)
			}
		}
	}

	cancelRun()
	return determineExitCode(runErr, sigs.received(), log)
}

// signalWatcher turns process signals into flag operations.
type signalWatcher struct {
	mu     sync.Mutex
	signal os.Signal
	wg     sync.WaitGroup
}

func watchSignals(ctx context.Context, flag *suspend.Flag, cancel context.CancelFunc, log stimlog.Logger) *signalWatcher {
	w := &signalWatcher{}
	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer signal.Stop(sigChan)
		for {
			select {
			case sig := <-sigChan:
				if isToggleSignal(sig) {
					if flag.Toggle() {
						log.Infof("Received %v, session suspended", sig)
					} else {
						log.Infof("Received %v, session resumed", sig)
					}
					continue
				}
				w.mu.Lock()
				first := w.signal == nil
				w.signal = sig
				w.mu.Unlock()
				if first {
					log.Warnf("Received signal: %v. Stopping after the current stimulus...", sig)
					flag.Stop()
				} else {
					log.Warnf("Received signal: %v again. Cutting the current wait short.", sig)
					cancel()
				}
			case <-ctx.Done():
				log.Debugf("Signal handler exiting because run context is done.")
				return
			}
		}
	}()
	return w
}

func (w *signalWatcher) received() os.Signal {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.signal
}

func (w *signalWatcher) wait() { w.wg.Wait() }

func determineExitCode(runErr error, sig os.Signal, log stimlog.Logger) int {
	if runErr != nil {
		var presErr *stimerrors.PresentationError
		if errors.As(runErr, &presErr) {
			log.Errorf("Session aborted: sequence '%s' failed at stimulus %d", presErr.Sequence, presErr.Index)
		} else {
			log.Errorf("Session failed: %v", runErr)
		}
		return ExitFailure
	}
	switch sig {
	case nil:
		log.Infof("Protocol completed successfully.")
		return ExitSuccess
	case syscall.SIGINT:
		log.Warnf("Session interrupted by signal: SIGINT")
		return ExitSigInt
	case syscall.SIGTERM:
		log.Warnf("Session terminated by signal: SIGTERM")
		return ExitSigTerm
	default:
		log.Warnf("Session terminated by signal: %v", sig)
		return ExitFailure
	}
}
