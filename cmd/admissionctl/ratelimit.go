package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"relaygate/internal/admission/handler"
)

func (c *cli) rateLimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Inspect per-account rate limit windows",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status <type> <id>",
		Short: "Show the live window count and resolved limits",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(args)
			if err != nil {
				return err
			}
			if err := c.connect(cmd); err != nil {
				return err
			}
			status, err := c.limiter.Status(cmd.Context(), key)
			if err != nil {
				return err
			}
			return c.render(handler.NewRateLimitResponse(status), []table.Row{
				{"account", key.String()},
				{"enabled", status.Enabled},
				{"window", fmt.Sprintf("%d/%d in %ds", status.CurrentCount, status.MaxRequests, status.WindowSeconds)},
				{"limited", status.IsLimited},
				{"oldest request", formatTime(status.OldestRequest)},
				{"reset in", status.ResetIn.String()},
			})
		},
	})
	return cmd
}
