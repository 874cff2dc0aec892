package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/duihost"
)

// Version information
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCommand creates the root command for the duihost application
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duihost",
		Short: "duihost - host for declarative UI runtimes",
		Long: `duihost brings up a declarative UI runtime, shows a splash while it loads
and hands over to routed pages once it is ready.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), PrintVersion())
		},
	}
}

// PrintVersion returns version information
func PrintVersion() string {
	reload := "enabled"
	if !duihost.HotReloadEnabled() {
		reload = "disabled"
	}
	return fmt.Sprintf("duihost %s (commit: %s, built on: %s, hot reload %s)", Version, Commit, Date, reload)
}
