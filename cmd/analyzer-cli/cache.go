package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the shared post cache",
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate [prefix]",
	Short: "Drop cached keywords, optionally only those starting with prefix",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCacheInvalidate,
}

func init() {
	cacheCmd.AddCommand(cacheInvalidateCmd)
}

func runCacheInvalidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Cache.Backend != "redis" {
		return fmt.Errorf("cache backend is %q; only the redis cache is shared with the service", cfg.Cache.Backend)
	}

	prefix := ""
	if len(args) == 1 {
		prefix = args[0]
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	rc := cache.NewRedisCache(client, cfg.Cache.TTL)
	defer rc.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	if err := rc.Invalidate(ctx, prefix); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Invalidated cached keywords with prefix %q\n", prefix)
	return nil
}
