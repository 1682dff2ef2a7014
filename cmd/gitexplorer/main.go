package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/greg-hellings/gitexplorer/pkg/config"
	"github.com/greg-hellings/gitexplorer/pkg/explorer"
	"github.com/greg-hellings/gitexplorer/pkg/prompt"
	"github.com/greg-hellings/gitexplorer/pkg/registry"
	"github.com/greg-hellings/gitexplorer/pkg/repository"
	"github.com/greg-hellings/gitexplorer/pkg/state"
)

// build-time override (e.g. -ldflags "-X main.version=1.2.3")
var version = "dev"

// app holds the global flags and the components built from them before any
// subcommand runs.
type app struct {
	flagVerbose bool
	flagDebug   bool
	flagConfig  string
	flagNoColor bool
	flagTimeout time.Duration

	in  io.ReadCloser
	out io.WriteCloser
	err io.Writer

	// newUI is replaceable in tests.
	newUI func(a *app) explorer.UI

	cfg      *config.Config
	registry *registry.Registry
	factory  *repository.Factory
	ui       explorer.UI
	explorer *explorer.Explorer
}

func main() {
	a := newApp()
	root := newRootCmd(a)
	root.SilenceUsage = true
	root.SilenceErrors = true

	if err := root.Execute(); err != nil {
		// If Execute() returns an error, logging may or may not be initialized yet.
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *app {
	return &app{
		in:  os.Stdin,
		out: os.Stdout,
		err: os.Stderr,
		newUI: func(a *app) explorer.UI {
			return prompt.New(prompt.WithIO(a.in, a.out), prompt.WithColors(!a.flagNoColor))
		},
	}
}

// newRootCmd creates the root Cobra command.
func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gitexplorer",
		Short: "Browse GitLab and Gitee repositories from the terminal",
		Long: strings.TrimSpace(`
gitexplorer - repository browser for GitLab and Gitee

Register repositories by URL and access token, then list them, walk their
trees, read and upload files and open merge requests. Repositories hosted on
the Gitee host are served through the Gitee API; every other host is treated
as a GitLab instance.`),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&a.flagVerbose, "verbose", "v", false, "Enable verbose (info) logging")
	cmd.PersistentFlags().BoolVar(&a.flagDebug, "debug", false, "Enable debug logging (overrides --verbose)")
	cmd.PersistentFlags().StringVarP(&a.flagConfig, "config", "c", "", "Configuration file (default ~/.config/gitexplorer/config.yaml)")
	cmd.PersistentFlags().BoolVar(&a.flagNoColor, "no-color", false, "Disable ANSI colors")
	cmd.PersistentFlags().DurationVar(&a.flagTimeout, "timeout", 0, "Abort backend calls after this long (0 = no limit)")
	cmd.Version = version
	cmd.SetIn(a.in)
	cmd.SetOut(a.out)
	cmd.SetErr(a.err)

	// Add subcommands
	cmd.AddCommand(newRegisterCmd(a))
	cmd.AddCommand(newResetCmd(a))
	cmd.AddCommand(newListCmd(a))
	cmd.AddCommand(newTreeCmd(a))
	cmd.AddCommand(newCatCmd(a))
	cmd.AddCommand(newSubmitCmd(a))
	cmd.AddCommand(newMergeRequestCmd(a))
	cmd.AddCommand(newCopyPathCmd(a))
	cmd.AddCommand(newCopyNameCmd(a))
	cmd.AddCommand(newBrowseCmd(a))
	cmd.AddCommand(newVersionCmd(a))

	return cmd
}

// newVersionCmd prints version info (simple helper).
func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.out, "gitexplorer version: %s\n", version)
		},
	}
}

// setup loads the configuration, sets up logging and wires the explorer.
func (a *app) setup() error {
	cfg, err := config.Load(a.flagConfig)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg

	if err := a.initLogging(); err != nil {
		return err
	}

	store, err := state.NewFileStore(cfg.Store)
	if err != nil {
		return err
	}
	slog.Debug("Using state file", "path", store.Path())

	a.registry = registry.New(store)
	a.factory = repository.NewFactory(cfg.FactoryOptions()...)
	a.ui = a.newUI(a)
	a.explorer = explorer.New(a.registry, a.factory, a.ui,
		append(cfg.ExplorerOptions(), explorer.WithLogger(slog.Default()))...)
	return nil
}

func (a *app) initLogging() error {
	var level slog.Level
	switch {
	case a.flagDebug:
		level = slog.LevelDebug
	case a.flagVerbose:
		level = slog.LevelInfo
	default:
		l, err := config.ParseLevel(a.cfg.Log.Level)
		if err != nil {
			return err
		}
		level = l
	}

	handler := slog.NewTextHandler(a.err, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging initialized", "level", level.String())
	return nil
}
