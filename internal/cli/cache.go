package cli

import (
	"context"
	"fmt"

	"github.com/ppiankov/claimlens/internal/cache"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the report cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached report",
	Long:  `Clear removes cached reports from the configured cache layers (Redis or disk). Saved reports are not touched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		c, closeFn, err := cache.New(ctx, appConfig.Cache)
		if err != nil {
			return err
		}
		defer func() { _ = closeFn() }()

		if err := c.Clear(ctx); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Cache cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
