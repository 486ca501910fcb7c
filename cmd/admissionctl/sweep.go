package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"relaygate/internal/admission/handler"
)

func (c *cli) sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one breaker auto-recovery sweep now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.connect(cmd); err != nil {
				return err
			}
			res, err := c.sweep.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			return c.render(handler.NewSweepResponse(res), []table.Row{
				{"skipped", res.Skipped},
				{"scanned", res.Scanned},
				{"recovered", res.Recovered},
				{"failed", res.Failed},
				{"duration", res.Duration.String()},
			})
		},
	}
}
