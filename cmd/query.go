package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grovekit/grove/internal/app"
	"github.com/grovekit/grove/internal/config"
	"github.com/grovekit/grove/internal/query"
)

var queryOwner string

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask a question against an owner's corpus",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd.Context(), strings.Join(args, " "))
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryOwner, "owner", "", "owner id whose corpus to search (required)")
	_ = queryCmd.MarkFlagRequired("owner")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(ctx context.Context, question string) error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.Querier.Run(ctx, query.Request{OwnerID: queryOwner, Query: question})
	if err != nil {
		return err
	}

	fmt.Println(resp.Answer)
	if resp.Degraded {
		fmt.Println("\n(answer degraded: a provider call fell back)")
	}
	if resp.ResultCount > 0 {
		fmt.Printf("\nGrounded on %d chunks: %s\n",
			resp.ResultCount, strings.Join(resp.CitedChunkIDs, ", "))
	}
	return nil
}
