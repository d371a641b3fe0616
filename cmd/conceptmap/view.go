package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/recera/conceptmap/internal/gui"
)

func newViewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Open the map in a desktop window",
		Long: `Open the concept map in a resizable window. Drag to pan, scroll to zoom,
click a concept for its details. Tab cycles through concepts, arrows pan,
+/- zoom, r resets the view, f fits the graph and Esc closes the panel.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			p, _, err := e.src.Load()
			if err != nil {
				return err
			}
			g, err := gui.New(gui.Options{Engine: e.engineOptions(), Payload: p, Logger: e.log})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancel(ctx)
			grp, ctx := errgroup.WithContext(ctx)
			grp.Go(func() error { return e.watch(ctx, g.SetPayload, nil) })

			// ebiten needs the main goroutine
			runErr := gui.Run(ctx, g, "conceptmap - "+e.src.Root())
			cancel()
			if err := grp.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().Bool("watch", false, "reload when concept files change")
	cmd.Flags().Float64("width", 0, "initial window width")
	cmd.Flags().Float64("height", 0, "initial window height")
	return cmd
}
