package main

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"relaygate/internal/admission/handler"
	"relaygate/internal/admission/models"
)

func (c *cli) breakerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "breaker",
		Short: "Inspect and operate per-account circuit breakers",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "status <type> <id>",
			Short: "Show breaker state, live error count and resolved config",
			Args:  cobra.ExactArgs(2),
			RunE:  c.breakerStatus,
		},
		&cobra.Command{
			Use:   "close <type> <id>",
			Short: "Close the breaker and clear its error history",
			Args:  cobra.ExactArgs(2),
			RunE:  c.breakerClose,
		},
		&cobra.Command{
			Use:   "open <type> <id>",
			Short: "Force the breaker open for the configured duration",
			Args:  cobra.ExactArgs(2),
			RunE:  c.breakerOpen,
		},
		&cobra.Command{
			Use:   "recover <type> <id>",
			Short: "Promote an open breaker whose cooldown has elapsed",
			Args:  cobra.ExactArgs(2),
			RunE:  c.breakerRecover,
		},
	)
	return cmd
}

func (c *cli) breakerStatus(cmd *cobra.Command, args []string) error {
	key, err := parseKey(args)
	if err != nil {
		return err
	}
	if err := c.connect(cmd); err != nil {
		return err
	}
	status, err := c.breaker.Status(cmd.Context(), key)
	if err != nil {
		return err
	}
	rows := []table.Row{
		{"account", key.String()},
		{"enabled", status.Enabled},
		{"state", status.State},
		{"errors", fmt.Sprintf("%d/%d in %ds", status.ErrorCount, status.Threshold, status.WindowSeconds)},
		{"duration", fmt.Sprintf("%dm", status.DurationMinutes)},
		{"auto recovery", status.AutoRecovery},
		{"open at", formatTime(status.OpenAt)},
		{"open until", formatTime(status.OpenUntil)},
	}
	if status.RemainingMs != nil {
		rows = append(rows, table.Row{"remaining", status.Remaining.Round(time.Second).String()})
	}
	return c.render(status, rows)
}

func (c *cli) breakerClose(cmd *cobra.Command, args []string) error {
	key, err := parseKey(args)
	if err != nil {
		return err
	}
	if err := c.connect(cmd); err != nil {
		return err
	}
	if err := c.breaker.Close(cmd.Context(), key); err != nil {
		return err
	}
	resp := &handler.BreakerStateResponse{State: models.BreakerClosed}
	return c.render(resp, []table.Row{{"account", key.String()}, {"state", resp.State}})
}

func (c *cli) breakerOpen(cmd *cobra.Command, args []string) error {
	key, err := parseKey(args)
	if err != nil {
		return err
	}
	if err := c.connect(cmd); err != nil {
		return err
	}
	rec, err := c.breaker.Open(cmd.Context(), key)
	if err != nil {
		return err
	}
	resp := &handler.BreakerStateResponse{State: rec.State, OpenAt: rec.OpenAt, OpenUntil: rec.OpenUntil}
	return c.render(resp, []table.Row{
		{"account", key.String()},
		{"state", resp.State},
		{"open until", formatTime(resp.OpenUntil)},
	})
}

func (c *cli) breakerRecover(cmd *cobra.Command, args []string) error {
	key, err := parseKey(args)
	if err != nil {
		return err
	}
	if err := c.connect(cmd); err != nil {
		return err
	}
	res, err := c.breaker.CheckAndRecover(cmd.Context(), key)
	if err != nil {
		return err
	}
	rows := []table.Row{
		{"account", key.String()},
		{"recovered", res.Recovered},
		{"state", res.State},
	}
	if res.State == models.BreakerOpen {
		rows = append(rows, table.Row{"remaining", res.Remaining.Round(time.Second).String()})
	}
	return c.render(handler.NewRecoverResponse(res), rows)
}
