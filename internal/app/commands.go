package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/virinco/watsclient/internal/cli"
	"github.com/virinco/watsclient/internal/config"
	apperrors "github.com/virinco/watsclient/internal/errors"
	"github.com/virinco/watsclient/internal/tracelistener"
	"github.com/virinco/watsclient/internal/ui"
)

// skipConfig marks commands that run without resolving the configuration.
const skipConfig = "watslog/skip-config"

// RootOptions holds the configuration shared by all commands. App is set by
// the root command once flags, environment and settings are resolved.
type RootOptions struct {
	Config config.AppConfig
	App    *Application
}

// NewRootCommand creates the root command of the watslog CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Config: config.Default()}

	cmd := &cobra.Command{
		Use:   "watslog",
		Short: "Rolling diagnostic log of a WATS client station",
		Long: `watslog writes, inspects and maintains the rolling WATS log file.

The log starts with a JSON header describing the station and is kept
between a minimum and maximum size by dropping the oldest entries.
Several processes may write to it at once.

Configuration priority: flags > WATSLOG_* environment > settings file > defaults.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipConfig] == "true" {
				return nil
			}
			if err := config.Resolve(cmd.Flags(), &opts.Config); err != nil {
				return err
			}
			ui.InitTheme(cmd.OutOrStdout(), opts.Config.NoColor)
			opts.App = New(opts.Config, cmd.Flags(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return apperrors.NewConfigError("%v", err)
	})

	config.BindFlags(cmd.PersistentFlags(), &opts.Config)

	cmd.AddCommand(NewWriteCommand(opts))
	cmd.AddCommand(NewTruncateCommand(opts))
	cmd.AddCommand(NewHeaderCommand(opts))
	cmd.AddCommand(NewTailCommand(opts))
	cmd.AddCommand(NewBundleCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewVersionCommand())
	cmd.AddCommand(NewCompletionCommand())

	return cmd
}

// WriteOptions holds flags for the write command.
type WriteOptions struct {
	*RootOptions
	Level    string
	Category string
	Source   string
}

// NewWriteCommand creates the write command.
func NewWriteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WriteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "write [message...]",
		Short: "Append one entry to the log",
		Long: `Append one entry to the log through the level filter.

Without arguments the message is read from standard input, so multi-line
output can be piped in.

Examples:
  watslog write "Converter started"
  watslog write --severity Error --source converter "disk full"
  some-tool 2>&1 | watslog write --category CONVERTER`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := tracelistener.ParseLevel(opts.Level)
			if err != nil || level == tracelistener.Off {
				return apperrors.NewValidationError("severity", "must be Critical, Error, Warning, Information or Verbose", opts.Level)
			}
			message, err := readMessage(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			ctx, lc := SetupLifecycle(cmd.Context(), opts.Config.Timeout)
			defer lc.Cleanup()
			return opts.App.WriteEntry(ctx, level, opts.Category, opts.Source, message)
		},
	}

	cmd.Flags().StringVarP(&opts.Level, "severity", "s", tracelistener.Information.String(), "Level of the entry: Critical, Error, Warning, Information, Verbose.")
	cmd.Flags().StringVar(&opts.Category, "category", "", "Category tag (default: the level's tag).")
	cmd.Flags().StringVar(&opts.Source, "source", "", "Source prefixed to the message.")

	return cmd
}

// readMessage joins args, or reads r when there are none.
func readMessage(args []string, r io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read message: %w", err)
	}
	message := strings.TrimRight(string(data), "\r\n")
	if message == "" {
		return "", apperrors.NewValidationError("message", "must not be empty", nil)
	}
	return message, nil
}

// NewTruncateCommand creates the truncate command.
func NewTruncateCommand(rootOpts *RootOptions) *cobra.Command {
	var headerOnly bool

	cmd := &cobra.Command{
		Use:   "truncate",
		Short: "Trim the log to its configured size",
		Long: `Trim the log from the front when it exceeds --max-size, keeping the
last --min-size bytes from a line boundary behind a fresh header.

With --header-only the header is rewritten with current station facts and
every entry is kept.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, lc := SetupLifecycle(cmd.Context(), rootOpts.Config.Timeout)
			defer lc.Cleanup()
			return rootOpts.App.Truncate(ctx, headerOnly)
		},
	}

	cmd.Flags().BoolVar(&headerOnly, "header-only", false, "Only rewrite the header.")
	return cmd
}

// NewHeaderCommand creates the header command.
func NewHeaderCommand(rootOpts *RootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:          "header",
		Short:        "Print the log header",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.App.PrintHeader(asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the header as JSON in file order.")
	return cmd
}

// NewTailCommand creates the tail command.
func NewTailCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		lines     int
		followLog bool
	)

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print the last entries of the log",
		Long: `Print the last entries of the log body.

With --follow, keep printing entries as other processes append them and
report truncations until interrupted.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if lines <= 0 {
				return apperrors.NewValidationError("lines", "must be strictly positive", lines)
			}
			if !followLog {
				return rootOpts.App.Tail(cmd.Context(), lines, false)
			}
			ctx, stop := SetupSignals(cmd.Context())
			defer stop()
			return rootOpts.App.Tail(ctx, lines, true)
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", config.DefaultTailLines, "Number of entries to print.")
	cmd.Flags().BoolVarP(&followLog, "follow", "f", false, "Keep printing appended entries.")
	return cmd
}

// NewBundleCommand creates the bundle command.
func NewBundleCommand(rootOpts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Write a support bundle",
		Long: `Write a zip archive with the log, the settings file and a status
snapshot for support. A missing settings file is recorded in the archive;
a missing log is an error.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = fmt.Sprintf("watslog-support-%s.zip", time.Now().Format("20060102-150405"))
			}
			ctx, lc := SetupLifecycle(cmd.Context(), rootOpts.Config.Timeout)
			defer lc.Cleanup()
			return rootOpts.App.Bundle(ctx, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Archive path (default: watslog-support-<time>.zip).")
	return cmd
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Keep the log open and serve its status over HTTP",
		Long: `Keep the log open for a station process: serve /health, /metrics,
/header, /tail, /follow and POST /entries, report truncations, and reload
the settings file when it changes. Stops on SIGINT or SIGTERM.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := SetupSignals(cmd.Context())
			defer stop()
			return rootOpts.App.Serve(ctx)
		},
	}

	cmd.Flags().StringVar(&rootOpts.Config.Listen, "listen", rootOpts.Config.Listen, "Status server address.")
	return cmd
}

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:          "version",
		Short:        "Print version information",
		Args:         cobra.NoArgs,
		Annotations:  map[string]string{skipConfig: "true"},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return PrintVersion(cmd.OutOrStdout(), asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print version information as JSON.")
	return cmd
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "completion [bash|zsh|fish|powershell]",
		Short:        "Generate a shell completion script",
		Args:         cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs:    cli.CompletionShells,
		Annotations:  map[string]string{skipConfig: "true"},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.GenerateCompletion(cmd.OutOrStdout(), cmd.Root(), args[0])
		},
	}
}

// Run executes the CLI with args and returns the process exit code.
//
// Parameters:
//   - ctx: The parent context.
//   - args: The command-line arguments without the program name.
//   - out: The writer for standard output.
//   - errOut: The writer for error output.
//
// Returns:
//   - int: An exit code (0 for success, non-zero for errors).
func Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	start := time.Now()
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return apperrors.ExitSuccess
	}
	return apperrors.HandleCommandError(err, time.Since(start).Round(time.Millisecond), errOut, themeColors{})
}

// themeColors adapts the ui theme to apperrors.ColorProvider.
type themeColors struct{}

func (themeColors) Yellow() string { return ui.ColorYellow() }
func (themeColors) Reset() string  { return ui.ColorReset() }
