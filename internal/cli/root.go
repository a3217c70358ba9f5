package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCmd собирает корневую команду dfs-bridge.
func NewRootCmd(version string, env *Env) *cobra.Command {
	var jsonOutput bool

	root := &cobra.Command{
		Use:           "dfs-bridge",
		Short:         "Bridge between the tender platform and the tax service registry",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&env.ConfigPath, "config", "", "Path to YAML config (defaults + env if empty)")
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	envFn := func() *Env { return env }
	outputFn := func() *Output {
		return NewOutput(root.OutOrStdout(), root.ErrOrStderr(), jsonOutput)
	}

	root.AddCommand(
		NewRunCmd(envFn),
		NewCheckTenderCmd(envFn, outputFn),
		NewEnqueueCmd(envFn, outputFn),
		NewPendingCmd(envFn, outputFn),
		NewSendRequestCmd(envFn, outputFn),
		newVersionCmd(version),
	)

	return root
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
