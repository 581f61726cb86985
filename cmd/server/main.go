package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ideafeed/internal/auth"
	"ideafeed/internal/blob"
	"ideafeed/internal/config"
	"ideafeed/internal/feed"
	"ideafeed/internal/handlers"
	"ideafeed/internal/logging"
	"ideafeed/internal/metrics"
	"ideafeed/internal/realtime"
	"ideafeed/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "ideafeed",
		Short:         "Idea feed service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")

	root.AddCommand(newServeCmd(&configPath), newMigrateCmd(&configPath))
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(*configPath)
		},
	}
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			defer log.Sync()

			st, err := openStore(cfg, log)
			if err != nil {
				return err
			}
			defer st.Close()
			log.Info("migrations applied", zap.String("db", cfg.DBPath))
			return nil
		},
	}
}

func serve(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	hub := realtime.NewHub(log)
	defer hub.Close()

	// The collection is the loaded working set that trending and search run
	// over. It is seeded from the store and replaced wholesale on every
	// broadcast by the consumer loop below.
	col := feed.NewCollection()
	if ideas, err := st.ListIdeas(ctx); err != nil {
		log.Warn("initial feed load failed, starting empty", zap.Error(err))
	} else {
		col.Replace(ideas)
	}

	sub := hub.Subscribe()
	go func() {
		for snapshot := range sub.Updates() {
			col.Replace(snapshot)
		}
	}()

	st.OnChange(func() {
		qctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		ideas, err := st.ListIdeas(qctx)
		if err != nil {
			log.Error("snapshot query failed", zap.Error(err))
			return
		}
		hub.Broadcast(ideas)
		metrics.SnapshotsBroadcast.Inc()
	})

	blobs, err := blob.NewDiskStore(cfg.AvatarDir, "/static/avatars")
	if err != nil {
		return err
	}
	sessions := auth.NewManager(cfg.Auth.Secret, cfg.Auth.TokenTTL.Duration())

	h := handlers.New(st, sessions, blobs, col, hub, log)
	mux := http.NewServeMux()
	h.Routes(mux, blobs.Dir())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handlers.WithRecover(mux, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}

func openStore(cfg *config.Config, log *zap.Logger) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.DBPath, log)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(context.Background()); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}
