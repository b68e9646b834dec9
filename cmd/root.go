package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agentic-research/resgrid/internal/config"
)

// Version is set at build time.
var Version = "dev"

type globalOptions struct {
	configPath string
	logLevel   string
	logger     *log.Logger
}

// NewRootCmd builds the resgrid command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "resgrid",
		Short:         "Filter and page a layered resource tree",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			opts.logLevel = v.GetString("log-level")
			level, err := log.ParseLevel(opts.logLevel)
			if err != nil {
				return fmt.Errorf("invalid --log-level %q: %w", opts.logLevel, err)
			}
			opts.logger = log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
				Prefix: "resgrid",
				Level:  level,
			})
			log.SetDefault(opts.logger)
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to layout file (default ./resgrid.yaml)")
	root.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn, error")
	if err := v.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level")); err != nil {
		panic(err)
	}

	root.AddCommand(newListCmd(opts))
	root.AddCommand(newCountCmd(opts))
	root.AddCommand(newStatsCmd(opts))
	root.AddCommand(newMCPCmd(opts))
	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("error:"), err)
		os.Exit(1)
	}
}
