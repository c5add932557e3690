package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

// NewPingCmd checks that the configured store (and Redis, if set) answers.
func NewPingCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check database connectivity and list collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			return runPing(ctx, cmd.OutOrStdout(), *configPath)
		},
	}
}

type collectionLister interface {
	Collections(ctx context.Context) ([]string, error)
}

func runPing(ctx context.Context, out io.Writer, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	st, err := openStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close(ctx)

	if err := st.store.Ping(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s store: ok\n", cfg.Store.Backend)
	if lister, ok := st.store.(collectionLister); ok {
		names, err := lister.Collections(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "collections: %v\n", names)
	}
	if st.redis != nil {
		fmt.Fprintf(out, "redis %s: ok\n", cfg.Redis.Addr)
	}
	return nil
}
