package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/pilab-dev/requesttoken/config"
	"github.com/pilab-dev/requesttoken/log"
	"github.com/pilab-dev/requesttoken/store"
	"github.com/pilab-dev/requesttoken/store/bolt"
	"github.com/pilab-dev/requesttoken/store/mongodb"
	"github.com/pilab-dev/requesttoken/store/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// openStore builds the backend selected in the config. The returned close
// function releases everything the store depends on.
func (a *app) openStore(ctx context.Context) (store.RequestTokenStore, func(), error) {
	cfg := a.cfg
	switch cfg.StoreBackend {
	case config.StoreBackendMemory:
		s := store.NewMemoryStore(a.codec, cfg.TokenTTL, a.logger)
		return s, func() { _ = s.Close() }, nil

	case config.StoreBackendRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		s := redis.New(client, cfg.RedisPrefix, a.codec, cfg.TokenTTL, a.logger)
		return s, func() { _ = s.Close() }, nil

	case config.StoreBackendBolt:
		s, err := bolt.New(cfg.BoltPath, a.codec, cfg.TokenTTL, 0, a.logger)
		if err != nil {
			return nil, nil, err
		}
		if n, err := s.Sweep(); err == nil && n > 0 {
			a.logger.Debug(ctx, "swept expired request tokens", log.Fields{"removed": n})
		}
		return s, func() { _ = s.Close() }, nil

	case config.StoreBackendMongoDB:
		client, err := mongodb.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		disconnect := func(c *mongo.Client) {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = c.Disconnect(dctx)
		}
		s, err := mongodb.New(ctx, client.Database(cfg.MongoDBName), a.codec, cfg.TokenTTL, a.logger)
		if err != nil {
			disconnect(client)
			return nil, nil, err
		}
		return s, func() { disconnect(client) }, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

func newStoreCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Park request tokens in the configured store and redeem them",
	}

	var (
		tf  tokenFlags
		ttl time.Duration
	)
	put := &cobra.Command{
		Use:   "put",
		Short: "Store a request token and print its handle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tok, err := tf.build()
			if err != nil {
				return err
			}
			s, closeFn, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			handle, err := s.Put(cmd.Context(), tok, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), handle)
			return err
		},
	}
	tf.register(put)
	put.Flags().DurationVar(&ttl, "ttl", 0, "lifetime of the entry (default from config)")

	take := &cobra.Command{
		Use:   "take <handle>",
		Short: "Redeem a handle once and print the token as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, closeFn, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			tok, err := s.Take(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printToken(cmd.OutOrStdout(), tok)
		},
	}

	del := &cobra.Command{
		Use:   "delete <handle>",
		Short: "Drop a stored request token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, closeFn, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()
			return s.Delete(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(put, take, del)
	return cmd
}
