package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/app"
	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/domain"
	"github.com/umanagarjuna/tweet-analyzer/internal/analyzer/handler"
)

var (
	flagNum     int
	flagServer  string
	flagTimeout time.Duration
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <keyword>",
	Short: "Analyze recent posts for a keyword and print JSON",
	Long: "Analyze runs the pipeline in-process, or against a running service " +
		"when --server is given.",
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().IntVarP(&flagNum, "num", "n", 0, "number of posts (default from config)")
	analyzeCmd.Flags().StringVar(&flagServer, "server", "", "gRPC address of a running analyzer service")
	analyzeCmd.Flags().DurationVar(&flagTimeout, "timeout", 5*time.Minute, "overall timeout, including rate-limit waits")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
	defer cancel()

	req := &domain.AnalyzeRequest{Keyword: args[0]}
	if flagNum != 0 {
		n := flagNum
		req.NumTweets = &n
	}

	var (
		resp *domain.AnalyzeResponse
		err  error
	)
	if flagServer != "" {
		resp, err = analyzeRemote(ctx, flagServer, req)
	} else {
		resp, err = analyzeLocal(ctx, req)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func analyzeLocal(ctx context.Context, req *domain.AnalyzeRequest) (*domain.AnalyzeResponse, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}
	defer logger.Sync()

	a, err := app.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	return a.Service.Analyze(ctx, req)
}

func analyzeRemote(ctx context.Context, addr string, req *domain.AnalyzeRequest) (*domain.AnalyzeResponse, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()

	return handler.NewAnalyzerClient(conn).Analyze(ctx, req)
}
