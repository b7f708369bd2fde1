package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/domain"
	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/source"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the search API credentials",
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Twitter.BearerToken == "" {
		return fmt.Errorf("no bearer token configured (set TWITTER_BEARER_TOKEN)")
	}

	src := source.NewTwitterSource(source.Config{
		BaseURL:     cfg.Twitter.BaseURL,
		BearerToken: cfg.Twitter.BearerToken,
		Timeout:     cfg.Twitter.Timeout,
	})

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	n, err := src.Check(ctx)
	if err != nil {
		var rl *domain.RateLimitError
		if errors.As(err, &rl) {
			fmt.Fprintf(cmd.OutOrStdout(), "Credentials accepted but rate limited: %v\n", rl)
			return nil
		}
		return fmt.Errorf("search API check failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Search API connection OK (%d posts returned)\n", n)
	return nil
}
