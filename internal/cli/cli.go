package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/specialistvlad/assetgrid/internal/app"
	"github.com/specialistvlad/assetgrid/internal/hcl_adapter"
	"github.com/spf13/cobra"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: 2, Message: err.Error()}
}

// flags holds the raw flag values. They only override the settings file
// when set on the command line.
type flags struct {
	configPath string
	source     string
	output     string
	pipeline   string
	debounce   string
	workers    int
	addr       string
	noServer   bool
	logLevel   string
	logFormat  string
}

// Execute runs the assetgrid command line with args and returns once the
// selected command has finished.
func Execute(ctx context.Context, args []string, outW, errW io.Writer) error {
	root := newRootCommand(outW)
	root.SetArgs(args)
	root.SetOut(outW)
	root.SetErr(errW)
	return root.ExecuteContext(ctx)
}

func newRootCommand(outW io.Writer) *cobra.Command {
	f := &flags{}

	start := func(cmd *cobra.Command, _ []string) error {
		a, err := f.newApp(cmd, outW)
		if err != nil {
			return err
		}
		return a.Run(cmd.Context())
	}

	rootCmd := &cobra.Command{
		Use:   "assetgrid",
		Short: "assetgrid - a front-end asset pipeline with watch mode and live reload",
		Long: `assetgrid builds a static site's assets from a pipeline of tasks declared in
HCL, then watches the source tree, rebuilds only the tasks a change affects,
and pushes a reload to every connected browser.

Running assetgrid without a command is the same as "assetgrid start".`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          start,
	}
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", app.DefaultConfigFile, "Path to the settings file. A missing default file is ignored.")
	pf.StringVarP(&f.source, "source", "s", "", "Source root every selector and watch pattern is relative to.")
	pf.StringVarP(&f.output, "output", "o", "", "Output root the tasks write under.")
	pf.StringVarP(&f.pipeline, "pipeline", "p", "", "Path to the .hcl pipeline file or a directory of them.")
	pf.StringVar(&f.debounce, "debounce", "", "Watch debounce window, e.g. 100ms.")
	pf.IntVar(&f.workers, "workers", 0, "Maximum concurrent tasks. 0 is one per CPU.")
	pf.StringVar(&f.addr, "addr", "", "Development server listen address.")
	pf.BoolVar(&f.noServer, "no-server", false, "Watch and rebuild without serving the output.")
	pf.StringVar(&f.logLevel, "log-level", "", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.StringVar(&f.logFormat, "log-format", "", "Log output format. Options: 'text' or 'json'.")

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Build once, then watch, rebuild and serve with live reload until interrupted",
		Args:  cobra.NoArgs,
		RunE:  start,
	}
	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Run the root pipeline once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := f.newApp(cmd, outW)
			if err != nil {
				return err
			}
			_, err = a.Build(cmd.Context())
			return err
		},
	}
	rootCmd.AddCommand(startCmd, buildCmd)
	return rootCmd
}

// settings loads the settings file and applies every flag that was set.
func (f *flags) settings(cmd *cobra.Command) (*app.Config, error) {
	changed := cmd.Flags().Changed

	if changed("config") {
		if _, err := os.Stat(f.configPath); err != nil {
			return nil, usageError(fmt.Errorf("settings file: %w", err))
		}
	}
	cfg, err := app.LoadFrom(f.configPath)
	if err != nil {
		return nil, usageError(err)
	}

	if changed("source") {
		cfg.Source = f.source
	}
	if changed("output") {
		cfg.Output = f.output
	}
	if changed("pipeline") {
		cfg.Pipeline = f.pipeline
	}
	if changed("debounce") {
		cfg.Debounce = f.debounce
	}
	if changed("workers") {
		cfg.Workers = f.workers
	}
	if changed("addr") {
		cfg.Server.Addr = f.addr
	}
	if changed("no-server") {
		cfg.Server.Enabled = !f.noServer
	}
	if changed("log-level") {
		cfg.Log.Level = strings.ToLower(f.logLevel)
	}
	if changed("log-format") {
		cfg.Log.Format = strings.ToLower(f.logFormat)
	}

	if err := cfg.Validate(); err != nil {
		return nil, usageError(err)
	}
	return cfg, nil
}

func (f *flags) newApp(cmd *cobra.Command, outW io.Writer) (*app.App, error) {
	cfg, err := f.settings(cmd)
	if err != nil {
		return nil, err
	}
	return app.NewApp(outW, cfg, hcl_adapter.NewLoader())
}
