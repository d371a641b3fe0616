package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/recera/conceptmap/internal/cache"
	"github.com/recera/conceptmap/internal/live"
	"github.com/recera/conceptmap/pkg/conceptmap/graph"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the map to browsers",
		Long: `Serve the concept map over HTTP. Each browser tab gets its own session
driven over a WebSocket; /api/concepts lists the concepts as JSON and
/snapshot.png or /snapshot.svg renders a still image.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			p, _, err := e.src.Load()
			if err != nil {
				return err
			}

			opts := e.engineOptions()
			hub, err := live.NewHub(opts, e.log)
			if err != nil {
				return err
			}
			if err := publish(hub, p); err != nil {
				return err
			}
			var serverOpts []live.ServerOption
			if snapshots, err := cache.New(cache.DefaultConfig(), cache.WithLogger(e.log)); err != nil {
				e.log.Warn("snapshot cache unavailable", "error", err)
			} else {
				serverOpts = append(serverOpts, live.WithSnapshotCache(snapshots))
			}
			srv := live.NewServer(hub, opts, e.cfg.Server.FPS, e.log, serverOpts...)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			grp, ctx := errgroup.WithContext(ctx)
			grp.Go(func() error { return srv.ListenAndServe(ctx, e.cfg.Server.Addr) })
			grp.Go(func() error {
				return e.watch(ctx, func(p graph.Payload) {
					if err := publish(hub, p); err != nil {
						e.log.Error("publish concepts", "error", err)
					}
				}, nil)
			})
			if err := grp.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().Bool("watch", false, "push changes to connected browsers")
	cmd.Flags().String("addr", "", "listen address (default localhost:8080)")
	cmd.Flags().Int("fps", 0, "frame rate cap per session")
	cmd.Flags().Float64("width", 0, "canvas width before the browser reports its size")
	cmd.Flags().Float64("height", 0, "canvas height before the browser reports its size")
	return cmd
}

// publish hands p to the hub. Integrity problems were already logged
// and do not stop the server.
func publish(hub *live.Hub, p graph.Payload) error {
	var integrity *graph.DataIntegrityError
	if err := hub.SetPayload(p); err != nil && !errors.As(err, &integrity) {
		return err
	}
	return nil
}
