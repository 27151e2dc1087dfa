package cmd

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/frahmantamala/service-desk/internal"
	"github.com/frahmantamala/service-desk/internal/core/events"
	"github.com/frahmantamala/service-desk/internal/core/invalidation"
	"github.com/frahmantamala/service-desk/pkg/logger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Mutation event commands",
	Long:  `Inspect the mutation events the dashboard publishes and the cache keys each one makes stale`,
}

var eventKeysCmd = &cobra.Command{
	Use:   "keys [mutation] [resource-id]",
	Short: "List the cache keys a mutation invalidates",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			printDependencyTable(cmd)
			return nil
		}
		id := ""
		if len(args) == 2 {
			id = args[1]
		}
		return printKeys(cmd, events.Mutation(args[0]), id)
	},
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [mutation] [resource-id]",
	Short: "Publish a mutation through the invalidation subscriber",
	Long:  `Publish a mutation against the configured query cache and log what gets invalidated`,
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := ""
		if len(args) == 2 {
			id = args[1]
		}
		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return publishMutation(cmd.Context(), cfg.Cache, events.Mutation(args[0]), id)
	},
}

var eventActor string

func printDependencyTable(cmd *cobra.Command) {
	mutations := make([]string, 0, len(invalidation.Dependencies))
	for m := range invalidation.Dependencies {
		mutations = append(mutations, string(m))
	}
	sort.Strings(mutations)

	for _, m := range mutations {
		_ = printKeys(cmd, events.Mutation(m), "{id}")
	}
}

func printKeys(cmd *cobra.Command, m events.Mutation, id string) error {
	stale := invalidation.Dependencies.Keys(m, id)
	if stale == nil {
		return fmt.Errorf("unknown mutation %q", m)
	}
	for _, key := range stale {
		cmd.Printf("%s\t%s\n", m, key)
	}
	return nil
}

// publishMutation bumps the versions a mutation makes stale in the cache the
// server is configured with. With the memory driver nothing outlives the
// command, so only the key listing is meaningful.
func publishMutation(ctx context.Context, cfg internal.CacheConfig, m events.Mutation, id string) error {
	if invalidation.Dependencies.Keys(m, id) == nil {
		return fmt.Errorf("unknown mutation %q", m)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	lg := logger.LoggerWrapper()
	if cfg.Driver != "redis" {
		lg.Warn("cache driver is not shared, invalidation only affects this process", "driver", cfg.Driver)
	}

	cache, err := initCache(ctx, cfg, nil, lg)
	if err != nil {
		return err
	}
	defer cache.Close()

	bus := events.NewEventBus(lg)
	invalidation.NewSubscriber(invalidation.Dependencies, cache, lg).Register(bus)

	event := events.NewResourceMutatedEvent(m, id, eventActor)
	lg.Info("publishing mutation", "mutation", m, "resource_id", id, "event_id", event.EventID(), "driver", cfg.Driver)

	if err := bus.PublishSync(ctx, event); err != nil {
		return fmt.Errorf("publish %s: %w", m, err)
	}

	lg.Info("mutation published", "keys", len(invalidation.Dependencies.Keys(m, id)))
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventActor, "actor", "cli", "Actor id recorded on the event")

	eventCmd.AddCommand(eventKeysCmd)
	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
