package cli

import (
	"github.com/spf13/cobra"
)

// ServeFunc runs the service until it is told to stop.
type ServeFunc func(configPath string) error

func NewRootCommand(serve ServeFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "flowdesk",
		Short:         "Workflow template catalog and tenant workflow service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(configPath(cmd))
		},
	}

	cmd.PersistentFlags().String("config", "config.yaml", "Path to config file")
	cmd.AddCommand(
		newServeCommand(serve),
		newTemplatesCommand(),
		newTokenCommand(),
	)
	return cmd
}

func newServeCommand(serve ServeFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(configPath(cmd))
		},
	}
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}
