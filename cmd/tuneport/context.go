package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"tuneport/internal/api"
	"tuneport/internal/config"
	"tuneport/internal/jobs"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) apiClient() (*api.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	client, err := api.NewClient(cfg.Paths.APIBind, cfg.Paths.APIToken)
	if err != nil {
		return nil, fmt.Errorf("daemon api address: %w", err)
	}
	return client, nil
}

// withClient runs fn against the daemon API and rewrites connection
// failures into a hint about starting the daemon.
func (c *commandContext) withClient(fn func(*api.Client) error) error {
	client, err := c.apiClient()
	if err != nil {
		return err
	}
	if client == nil {
		return fmt.Errorf("connect to daemon: paths.api_bind is not configured")
	}
	if err := fn(client); err != nil {
		return wrapClientError(err)
	}
	return nil
}

// withJobs prefers the daemon API and falls back to reading the job database
// directly when the daemon is unreachable. Exactly one of client and service
// is non-nil.
func (c *commandContext) withJobs(cmd *cobra.Command, fn func(client *api.Client, service *api.JobService) error) error {
	client, err := c.apiClient()
	if err != nil {
		return err
	}
	if client != nil {
		_, pingErr := client.Status(cmd.Context())
		if pingErr == nil {
			return wrapClientError(fn(client, nil))
		}
		if !api.IsAPIUnavailable(pingErr) {
			return wrapClientError(pingErr)
		}
	}

	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := jobs.Open(cfg)
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	defer store.Close()
	return fn(nil, api.NewJobService(store))
}

func wrapClientError(err error) error {
	if err == nil {
		return nil
	}
	if api.IsAPIUnavailable(err) {
		return fmt.Errorf("connect to daemon: %w; start it with `tuneport daemon` or `tuneportd`", err)
	}
	var statusErr *api.StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		return errors.New(statusErr.Message)
	}
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
