package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mdwlog "github.com/msto63/dal/foundation/core/log"
	"github.com/msto63/dal/pkg/core/config"
	"github.com/msto63/dal/pkg/core/logging"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "dal",
	Short: "DAL - runtime for attributed service and agent programs",
	Long: `dal tokenizes, parses, validates and executes DAL programs.

Commands:
  run      - execute a program and call its main function
  check    - tokenize, parse and validate without executing
  tokens   - print the token stream
  ast      - print the parsed program
  repl     - interactive session
  audit    - inspect stored audit entries, events and runs
  version  - print component versions`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	_ = logging.CloseFiles()
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $DAL_CONFIG or ./dal.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// setup loads the configuration and builds the CLI logger
func setup() (*config.Config, *mdwlog.Logger, error) {
	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.NewCLILogger(cfg.General.Name, cfg.Log, verbose)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func printError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
}
