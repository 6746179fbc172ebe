package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"babelbeam/config"
	"babelbeam/logging"
)

// Version is set at build time.
var Version = "dev"

// Flags holds all command-line flag values
type Flags struct {
	CfgFile string
	Addr    string

	// translate command
	From      string
	To        string
	Fallback  bool
	AudioOut  string
	InputFile string
	Refresh   bool
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		From: "auto",
		To:   "en",
	}
}

// CreateRootCommand creates the babelbeam command tree. Without a
// subcommand it starts the web server.
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "babelbeam",
		Short: "BabelBeam translator",
		Long: `BabelBeam translates text between languages and reads the result aloud.

Examples:
  babelbeam                                  # Start the web server (default)
  babelbeam serve --addr :9000               # Start the web server on another port
  babelbeam translate --to fr "Hello world"  # Translate from the command line
  echo "Hola" | babelbeam translate --to en  # Translate stdin`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.babelbeam.yaml)")

	serveCmd := newServeCommand(flags)
	rootCmd.AddCommand(serveCmd, newTranslateCommand(flags))

	rootCmd.Flags().StringVar(&flags.Addr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.RunE = serveCmd.RunE

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	flags := NewFlags()
	if err := CreateRootCommand(flags).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads the configuration and builds the logger. Callers defer the
// returned cleanup.
func setup(flags *Flags) (*config.Config, *zap.Logger, func(), error) {
	cfg, err := config.Load(flags.CfgFile)
	if err != nil {
		return nil, nil, nil, err
	}

	logger, cleanup, err := logging.NewLogger(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, cleanup, nil
}
