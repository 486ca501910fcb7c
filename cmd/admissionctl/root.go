package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	admissionconfig "relaygate/internal/admission/config"
	"relaygate/internal/admission/models"
	"relaygate/internal/admission/service/accountlimit"
	"relaygate/internal/admission/service/breaker"
	"relaygate/internal/admission/store/registry"
	"relaygate/internal/admission/store/window"
	"relaygate/internal/admission/workers/recovery"
	"relaygate/internal/platform/logger"
)

// dialFunc opens the shared state store connection.
type dialFunc func(ctx context.Context, url string) (*goredis.Client, error)

func dialRedis(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

type cli struct {
	out        io.Writer
	dial       dialFunc
	redisURL   string
	configPath string
	format     string
	logLevel   string

	client   *goredis.Client
	provider *admissionconfig.Provider
	breaker  *breaker.Service
	limiter  *accountlimit.Service
	sweep    *recovery.Service
}

func newRootCmd(out io.Writer, dial dialFunc) *cobra.Command {
	c := &cli{out: out, dial: dial}
	root := &cobra.Command{
		Use:           "admissionctl",
		Short:         "Inspect and operate relaygate admission state",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return c.close()
		},
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVar(&c.redisURL, "redis-url", "redis://localhost:6379/0", "Shared state store URL")
	flags.StringVar(&c.configPath, "admission-config", "", "Admission config file (YAML)")
	flags.StringVarP(&c.format, "output", "o", formatTable, "Output format: table|json|yaml")
	flags.StringVar(&c.logLevel, "log-level", "warn", "Log level written to stderr")

	root.AddCommand(
		c.breakerCmd(),
		c.rateLimitCmd(),
		c.sweepCmd(),
		c.configCmd(),
	)
	return root
}

func (c *cli) logger(cmd *cobra.Command) *slog.Logger {
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: logger.ParseLevel(c.logLevel)}))
}

// loadConfig reads the admission config without touching the store.
func (c *cli) loadConfig(cmd *cobra.Command) error {
	if c.provider != nil {
		return nil
	}
	provider, err := admissionconfig.NewProvider(c.configPath, admissionconfig.WithLogger(c.logger(cmd)))
	if err != nil {
		return err
	}
	c.provider = provider
	return nil
}

// connect builds the admission services on the shared store.
func (c *cli) connect(cmd *cobra.Command) error {
	if c.client != nil {
		return nil
	}
	if err := c.loadConfig(cmd); err != nil {
		return err
	}
	client, err := c.dial(cmd.Context(), c.redisURL)
	if err != nil {
		return err
	}
	c.client = client

	log := c.logger(cmd)
	accounts := registry.NewRedis(client)
	c.breaker, err = breaker.New(accounts, window.NewRedis(client), c.provider, breaker.WithLogger(log))
	if err != nil {
		return err
	}
	c.limiter, err = accountlimit.New(window.NewRedis(client), c.provider,
		accountlimit.WithLogger(log),
		accountlimit.WithRegistry(accounts),
	)
	if err != nil {
		return err
	}
	c.sweep, err = recovery.New(c.breaker, accounts, c.provider, recovery.WithLogger(log))
	return err
}

func (c *cli) close() error {
	if c.breaker != nil {
		c.breaker.Stop()
		c.breaker = nil
	}
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

func parseKey(args []string) (models.AccountKey, error) {
	accountType, err := models.ParseAccountType(args[0])
	if err != nil {
		return models.AccountKey{}, err
	}
	return models.NewAccountKey(accountType, args[1])
}
