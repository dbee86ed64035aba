package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"whisper-stt/internal/app"
	"whisper-stt/internal/app/logging"
	"whisper-stt/internal/app/stt"
	"whisper-stt/internal/config"
)

// Exit codes.
const (
	ExitOK            = 0
	ExitUsage         = 1
	ExitNoCapability  = 2
	capabilityMessage = "ERROR: no speech recognition engine available"
)

var version = "v0.1.0"

// capabilityError marks failures to obtain the engine at startup.
type capabilityError struct {
	err error
}

func (e *capabilityError) Error() string { return e.err.Error() }
func (e *capabilityError) Unwrap() error { return e.err }

// configError marks configuration that could not be loaded or validated.
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

type invocation struct {
	verbose bool
	cfg     *config.Config
	logger  *zap.Logger
	runner  *stt.Runner
}

func newRootCmd(inv *invocation) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stt <audio_file_path>",
		Short: "Transcribe an audio file to text with a whisper model",
		Long: `Transcribe one audio file with the "small" whisper model and print the text.

Any failure while loading the model or transcribing prints nothing and exits 0.
If no speech recognition engine can be obtained, or the configuration is
invalid, a message is written to stderr and the exit status is 2.`,
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		FParseErrWhitelist: cobra.FParseErrWhitelist{
			UnknownFlags: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return inv.setup(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return nil
			}
			outcome := inv.runner.Transcribe(cmd.Context(), absPath(args[0]))
			if outcome.OK() {
				fmt.Fprintln(cmd.OutOrStdout(), outcome.Output())
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			inv.finish()
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&inv.verbose, "verbose", "V", false, "verbose output on stderr")

	// stdout carries a transcript or nothing, so -h/--help print nothing.
	rootCmd.SetHelpFunc(func(*cobra.Command, []string) {})
	rootCmd.Flags().BoolP("help", "h", false, "")
	_ = rootCmd.Flags().MarkHidden("help")
	return rootCmd
}

// absPath resolves relative paths against the working directory.
func absPath(path string) string {
	if path == "" {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// setup loads configuration and obtains the engine. Both failures abort the
// run before any argument is processed.
func (inv *invocation) setup(stderr io.Writer) error {
	inv.logger = logging.NewLogger(inv.verbose, stderr)

	cfg, err := config.Load()
	if err != nil {
		return &configError{err: err}
	}
	inv.cfg = cfg

	opts := app.Options{}
	if inv.verbose {
		opts.Progress = stderr
	}

	runner, err := app.InitializeRunner(cfg, inv.logger, opts)
	if err != nil {
		return &capabilityError{err: err}
	}
	inv.runner = runner
	return nil
}

func (inv *invocation) finish() {
	if inv.runner == nil || inv.cfg == nil {
		return
	}
	if err := inv.runner.Metrics().WriteTextfile(inv.cfg.MetricsTextfile); err != nil {
		inv.logger.Debug("failed to write metrics textfile",
			zap.String("path", inv.cfg.MetricsTextfile), zap.Error(err))
	}
	_ = inv.logger.Sync()
}

// Run executes the command line and returns the process exit status.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	inv := &invocation{}
	rootCmd := newRootCmd(inv)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}

	var cfgErr *configError
	if errors.As(err, &cfgErr) {
		fmt.Fprintf(stderr, "ERROR: %v\n", cfgErr.err)
		return ExitNoCapability
	}

	var capErr *capabilityError
	if errors.As(err, &capErr) {
		fmt.Fprintf(stderr, "%s: %v\n", capabilityMessage, capErr.err)
		fmt.Fprintln(stderr, "Install whisper.cpp (whisper-cli) or set STT_ENGINE with the matching API key.")
		return ExitNoCapability
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitUsage
}

// Execute runs the CLI with the process arguments and exits.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
