package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// options are the flags shared by every command
type options struct {
	server  string
	output  string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "mctl",
		Short: "Query mission-control dashboards",
		Long:  `mctl reads build history and job statuses of mission-control views from the terminal.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != outputTable && opts.output != outputJSON {
				return fmt.Errorf("unsupported output %q, use %s or %s", opts.output, outputTable, outputJSON)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.server, "server", "s", "http://localhost:8080", "mission-control base URL")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", outputTable, "output format: table or json")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")

	cmd.AddCommand(
		newBuildsCmd(opts),
		newJobsCmd(opts),
		newQueueCmd(opts),
		newNodesCmd(opts),
		newViewsCmd(opts),
		newStatusCmd(opts),
	)

	return cmd
}
