package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stimkit/stimkit/internal/config"
	"github.com/stimkit/stimkit/internal/logger"
	"github.com/stimkit/stimkit/internal/renderer"
	"github.com/stimkit/stimkit/internal/session"
	stimerrors "github.com/stimkit/stimkit/pkg/stimkit/v1/errors"

	_ "github.com/stimkit/stimkit/renderers/console"
	_ "github.com/stimkit/stimkit/renderers/null"
)

const (
	ExitSuccess         = 0
	ExitFailure         = 1
	ExitUsageError      = 2
	ExitSigIntBase      = 128
	ExitSigInt          = ExitSigIntBase + int(syscall.SIGINT)
	ExitSigTerm         = ExitSigIntBase + int(syscall.SIGTERM)
	DefaultLogLevel     = "info"
	DefaultLogFmt       = "text"
	DefaultEventBusSize = 256
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitUsageError
	}
	return ExitSuccess
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "stimkit",
		Short:         "Present timed stimulus sequences from a protocol file",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate(versionString())

	root.AddCommand(newRunCommand(stdout, stderr))
	root.AddCommand(newValidateCommand(stderr))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprint(cmd.OutOrStdout(), versionString())
		},
	})
	return root
}

func versionString() string {
	return fmt.Sprintf("stimkit version %s\ncommit: %s\nbuilt: %s\ngo version: %s\nos/arch: %s/%s\n",
		version, commit, buildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func newValidateCommand(stderr io.Writer) *cobra.Command {
	var protocolPath, logLevel string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the structure and schema compatibility of a protocol",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logger.NewLogger(logLevel, DefaultLogFmt, stderr)
			log.Infof("Validating protocol: %s", protocolPath)

			protocol, err := config.LoadProtocolFromFile(protocolPath)
			if err == nil {
				err = session.CheckRenderers(protocol, renderer.Default())
			}
			if err != nil {
				var validationErr *stimerrors.ValidationError
				var configErr *stimerrors.ConfigError
				var notFound *stimerrors.RendererNotFoundError
				switch {
				case errors.As(err, &validationErr):
					log.Errorf("Protocol validation failed:\n%s", validationErr.Error())
				case errors.As(err, &notFound):
					log.Errorf("Protocol uses unknown renderer '%s' (available: %v)", notFound.RendererName, renderer.Default().List())
				case errors.As(err, &configErr):
					log.Errorf("Protocol configuration error:\n%s", configErr.Error())
				default:
					log.Errorf("Failed to load or validate protocol: %v", err)
				}
				return &exitError{code: ExitFailure}
			}

			log.Infof("Protocol validation successful: %s (%d sequences)", protocolPath, len(protocol.Sequences))
			return nil
		},
	}
	cmd.Flags().StringVar(&protocolPath, "protocol", "", "Path to the protocol YAML file to validate (required)")
	cmd.Flags().StringVar(&logLevel, "log-level", DefaultLogLevel, "Log level for validation output (debug, info, warn, error)")
	_ = cmd.MarkFlagRequired("protocol")
	return cmd
}
