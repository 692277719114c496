// Package main is the entry point of the textlsp language server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/kianmeng/textLSP/internal/config"
	"github.com/kianmeng/textLSP/internal/server"
)

// Version will be set during the build process using ldflags
var version = "(dev) v0.0.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type serveFlags struct {
	envFile   string
	logFile   string
	verbosity int
	settings  string
	cachePath string
}

func rootCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:     "textlsp",
		Short:   "Language server checking the prose in LaTeX, Markdown and plain text",
		Version: version,
		Long: `textlsp checks the prose of LaTeX, Markdown and plain text documents.
It strips the markup, checks the remaining text paragraph by paragraph and
reports findings at their place in the source.

Without a subcommand it serves the Language Server Protocol on stdio.
Settings come from the client, or from --settings until the client sends
its own. Process options are also read from TEXTLSP_* environment variables
and an optional .env file; flags win.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.envFile, "env-file", "", "Path to .env file")
	cmd.Flags().StringVar(&flags.logFile, "logfile", "", "Path to log file (default stderr)")
	cmd.Flags().CountVarP(&flags.verbosity, "verbose", "v", "Log more, repeat for debug output")
	cmd.Flags().StringVar(&flags.settings, "settings", "", "YAML or JSON settings file")
	cmd.Flags().StringVar(&flags.cachePath, "cache-path", "", "SQLite file caching check results (default in memory)")

	cmd.AddCommand(cleanCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

func runServe(cmd *cobra.Command, flags serveFlags) error {
	env, err := config.LoadEnv(flags.envFile)
	if err != nil {
		return fmt.Errorf("load environment: %w", err)
	}
	if cmd.Flags().Changed("logfile") {
		env.LogFile = flags.logFile
	}
	if cmd.Flags().Changed("verbose") {
		env.Verbosity = flags.verbosity
	}
	if cmd.Flags().Changed("settings") {
		env.Settings = flags.settings
	}
	if cmd.Flags().Changed("cache-path") {
		env.CachePath = flags.cachePath
	}

	// glsp logs through the same backend.
	var logFile *string
	if env.LogFile != "" {
		logFile = &env.LogFile
	}
	commonlog.Configure(env.Verbosity, logFile)
	log := commonlog.GetLogger("textlsp")
	log.Infof("starting textlsp %s", version)

	settings := config.Default()
	if env.Settings != "" {
		if settings, err = config.LoadFile(env.Settings); err != nil {
			return err
		}
	}

	srv, err := server.New(server.Options{Env: env, Settings: settings, Version: version})
	if err != nil {
		return err
	}
	return srv.RunStdio()
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("textlsp version %s\n", version)
		},
	}
}
