package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/restkeep/stockfeed/internal/adapter/identity"
	"github.com/restkeep/stockfeed/internal/adapter/storage"
	"github.com/restkeep/stockfeed/internal/adapter/tui"
	"github.com/restkeep/stockfeed/internal/config"
)

func main() {
	var (
		appID string
		blob  string
		token string
	)

	root := &cobra.Command{
		Use:           "tracker",
		Short:         "Live shared inventory feed",
		Long:          "Tracker authenticates, subscribes to the shared inventory collection and shows a live, server-ordered feed. New items become visible only once the backend confirms them.",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv(appID, blob, token)
			if err != nil {
				return err
			}

			rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			defer rdb.Close()

			pingCtx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			if err := rdb.Ping(pingCtx).Err(); err != nil {
				return fmt.Errorf("connect redis at %s: %w", cfg.RedisAddr, err)
			}

			store := storage.NewRedisStore(rdb)
			provider := identity.NewLocalProvider(cfg.Raw["authSecret"])
			return tui.Run(cfg, provider, store)
		},
	}

	root.Flags().StringVar(&appID, "app-id", "", "application id namespacing the collection (env APP_ID)")
	root.Flags().StringVar(&blob, "config", "", "backend configuration JSON (env BACKEND_CONFIG)")
	root.Flags().StringVar(&token, "token", "", "pre-issued auth token; anonymous sign-in when empty (env INITIAL_AUTH_TOKEN)")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
