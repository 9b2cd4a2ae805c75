// Command shell hosts a foreign rendering module behind the bridge.
//
//	shell run --module scene.wasm --send '"Trigger"'
//	shell tui --module scene.wasm
//
// Without a subcommand the interactive window opens when stdout is a
// terminal and the headless runner otherwise.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/wasm-bridge/config"
	"github.com/wippyai/wasm-bridge/logging"
)

var log = zap.NewNop()

type flags struct {
	configPath string
	loader     string
	module     string
	debug      string
	logLevel   string
	logDev     bool
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags
	var cfg config.Config

	root := &cobra.Command{
		Use:           "shell",
		Short:         "Host a foreign rendering module through the bridge",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(f.configPath)
			if err != nil {
				return err
			}
			cfg = applyFlags(cmd, loaded, f)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return installLogger(cfg, cmd.Name() == "tui" || (cmd.Name() == "shell" && isTerminal()))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if isTerminal() {
				return runTUI(cmd.Context(), cfg)
			}
			return runHeadless(cmd.Context(), cfg, headlessOptions{out: cmd.OutOrStdout()})
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "Config file (.toml, .yaml, .json)")
	pf.StringVar(&f.loader, "loader", "", "Loader path the module loader is registered under")
	pf.StringVarP(&f.module, "module", "m", "", "Foreign module path")
	pf.StringVar(&f.debug, "debug", "", "Initial debug mode: Off|Normals|Steps|Depth")
	pf.StringVar(&f.logLevel, "log-level", "", "Log level: debug|info|warn|error")
	pf.BoolVar(&f.logDev, "log-dev", false, "Human readable console logs")

	root.AddCommand(newRunCmd(&cfg), newTUICmd(&cfg))
	return root
}

// applyFlags layers explicitly set flags over the file and environment.
func applyFlags(cmd *cobra.Command, cfg config.Config, f flags) config.Config {
	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}
	if changed("loader") {
		cfg.LoaderPath = f.loader
	}
	if changed("module") {
		cfg.ModulePath = f.module
	}
	if changed("debug") {
		cfg.Debug = f.debug
	}
	if changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if changed("log-dev") {
		cfg.Log.Development = f.logDev
	}
	return cfg
}

// installLogger wires the configured logger into every bridge package. The
// interactive window owns the terminal, so its logs go to a file instead.
func installLogger(cfg config.Config, interactive bool) error {
	lc := logging.DefaultConfig()
	lc.Level = cfg.Log.Level
	lc.Development = cfg.Log.Development
	if interactive {
		lc.OutputPaths = []string{"shell.log"}
	}
	l, err := logging.New(lc)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	logging.Install(l)
	log = l.Named("shell")
	return nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
